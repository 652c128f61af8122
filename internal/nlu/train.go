package nlu

import (
	"context"
	"math"
	"runtime"
	"time"

	errx "github.com/bank-of-trust/bankbot-core/internal/core/error"
	"github.com/bank-of-trust/bankbot-core/internal/knowledge"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// TrainOptions tune the softmax regression. Zero values fall back to the defaults.
type TrainOptions struct {
	Epochs       int
	LearningRate float64
	L2           float64
	MaxFeatures  int
	// Workers bounds the goroutines used per epoch; 0 means GOMAXPROCS.
	Workers int
}

func (o TrainOptions) withDefaults() TrainOptions {
	if o.Epochs <= 0 {
		o.Epochs = 2000
	}
	if o.LearningRate <= 0 {
		o.LearningRate = 1.0
	}
	if o.L2 < 0 {
		o.L2 = 0
	}
	if o.MaxFeatures <= 0 {
		o.MaxFeatures = 18000
	}
	if o.Workers <= 0 {
		o.Workers = runtime.GOMAXPROCS(0)
	}
	return o
}

// Train fits a generation on the catalog. Every sum runs in a fixed order so the same catalog
// and options always produce the same weights.
func Train(ctx context.Context, catalog *knowledge.Catalog, opts TrainOptions) (*Generation, error) {
	opts = opts.withDefaults()
	labels := catalog.Labels()
	classOf := make(map[string]int, len(labels))
	for i, l := range labels {
		classOf[l] = i
	}

	examples := catalog.Examples()
	docs := make([][]string, 0, len(examples))
	ys := make([]int, 0, len(examples))
	for _, ex := range examples {
		doc := terms(ex.Text)
		if len(doc) == 0 {
			continue
		}
		docs = append(docs, doc)
		ys = append(ys, classOf[ex.Intent])
	}
	if len(docs) == 0 {
		return nil, errx.Training("no usable training text", nil)
	}

	vocab := fitVocabulary(docs, opts.MaxFeatures)
	xs := make([]sparse, len(docs))
	for i, d := range docs {
		xs[i] = vocab.transform(d)
	}

	m := &softmax{
		weights: make([][]float64, len(labels)),
		bias:    make([]float64, len(labels)),
	}
	for k := range m.weights {
		m.weights[k] = make([]float64, vocab.size())
	}
	if err := m.fit(ctx, xs, ys, opts); err != nil {
		return nil, errx.Training("optimization stopped", err)
	}

	return &Generation{
		ID:        uuid.NewString(),
		TrainedAt: time.Now().UTC(),
		Examples:  len(docs),
		labels:    labels,
		vocab:     vocab,
		model:     m,
		catalog:   catalog,
	}, nil
}

type softmax struct {
	weights [][]float64
	bias    []float64
}

// probs writes the class distribution for x into p.
func (m *softmax) probs(x sparse, p []float64) {
	maxZ := math.Inf(-1)
	for k := range m.weights {
		z := m.bias[k]
		w := m.weights[k]
		for n, j := range x.idx {
			z += w[j] * x.val[n]
		}
		p[k] = z
		if z > maxZ {
			maxZ = z
		}
	}
	var sum float64
	for k := range p {
		p[k] = math.Exp(p[k] - maxZ)
		sum += p[k]
	}
	for k := range p {
		p[k] /= sum
	}
}

// fit runs full-batch gradient descent on the mean cross-entropy with L2 on the weights.
// Within an epoch examples are scored in parallel chunks and each class is updated by its
// own goroutine; no two goroutines write the same memory.
func (m *softmax) fit(ctx context.Context, xs []sparse, ys []int, opts TrainOptions) error {
	n := len(xs)
	classes := len(m.weights)
	probs := make([][]float64, n)
	for i := range probs {
		probs[i] = make([]float64, classes)
	}
	grads := make([][]float64, classes)
	for k := range grads {
		grads[k] = make([]float64, len(m.weights[k]))
	}

	chunk := (n + opts.Workers - 1) / opts.Workers
	inv := 1 / float64(n)
	lr, l2 := opts.LearningRate, opts.L2

	for epoch := 0; epoch < opts.Epochs; epoch++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		var score errgroup.Group
		score.SetLimit(opts.Workers)
		for lo := 0; lo < n; lo += chunk {
			hi := min(lo+chunk, n)
			score.Go(func() error {
				for i := lo; i < hi; i++ {
					m.probs(xs[i], probs[i])
				}
				return nil
			})
		}
		_ = score.Wait()

		var update errgroup.Group
		update.SetLimit(opts.Workers)
		for k := 0; k < classes; k++ {
			update.Go(func() error {
				g := grads[k]
				clear(g)
				var gb float64
				for i, x := range xs {
					d := probs[i][k]
					if ys[i] == k {
						d -= 1
					}
					if d == 0 {
						continue
					}
					gb += d
					for nz, j := range x.idx {
						g[j] += d * x.val[nz]
					}
				}
				w := m.weights[k]
				for j := range w {
					w[j] -= lr * (g[j]*inv + l2*w[j])
				}
				m.bias[k] -= lr * gb * inv
				return nil
			})
		}
		_ = update.Wait()
	}
	return nil
}
