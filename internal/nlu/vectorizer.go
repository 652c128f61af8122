package nlu

import (
	"math"
	"slices"
	"sort"
)

// sparse is a vector with strictly increasing indices.
type sparse struct {
	idx []int
	val []float64
}

// vocabulary is a fitted TF-IDF vectorizer.
type vocabulary struct {
	index map[string]int
	idf   []float64
}

// fitVocabulary keeps the maxFeatures most frequent terms and computes smoothed idf:
// ln((1+n)/(1+df)) + 1.
func fitVocabulary(docs [][]string, maxFeatures int) *vocabulary {
	tf := map[string]int{}
	df := map[string]int{}
	for _, doc := range docs {
		seen := map[string]bool{}
		for _, t := range doc {
			tf[t]++
			if !seen[t] {
				seen[t] = true
				df[t]++
			}
		}
	}

	vocab := make([]string, 0, len(tf))
	for t := range tf {
		vocab = append(vocab, t)
	}
	if maxFeatures > 0 && len(vocab) > maxFeatures {
		sort.Slice(vocab, func(i, j int) bool {
			if tf[vocab[i]] != tf[vocab[j]] {
				return tf[vocab[i]] > tf[vocab[j]]
			}
			return vocab[i] < vocab[j]
		})
		vocab = vocab[:maxFeatures]
	}
	slices.Sort(vocab)

	n := float64(len(docs))
	v := &vocabulary{index: make(map[string]int, len(vocab)), idf: make([]float64, len(vocab))}
	for i, t := range vocab {
		v.index[t] = i
		v.idf[i] = math.Log((1+n)/(1+float64(df[t]))) + 1
	}
	return v
}

func (v *vocabulary) size() int { return len(v.idf) }

// transform maps terms to an L2-normalized TF-IDF vector. Unknown terms are ignored.
func (v *vocabulary) transform(doc []string) sparse {
	counts := map[int]float64{}
	for _, t := range doc {
		if i, ok := v.index[t]; ok {
			counts[i]++
		}
	}
	x := sparse{idx: make([]int, 0, len(counts)), val: make([]float64, 0, len(counts))}
	for i := range counts {
		x.idx = append(x.idx, i)
	}
	slices.Sort(x.idx)

	var norm float64
	for _, i := range x.idx {
		w := counts[i] * v.idf[i]
		x.val = append(x.val, w)
		norm += w * w
	}
	if norm > 0 {
		norm = math.Sqrt(norm)
		for k := range x.val {
			x.val[k] /= norm
		}
	}
	return x
}
