package nlu

import (
	"strings"
	"time"

	errx "github.com/bank-of-trust/bankbot-core/internal/core/error"
	"github.com/bank-of-trust/bankbot-core/internal/knowledge"
)

// Generation is one trained, immutable model together with the catalog it was trained on.
type Generation struct {
	ID        string
	Seq       uint64
	TrainedAt time.Time
	Examples  int

	labels  []string
	vocab   *vocabulary
	model   *softmax
	catalog *knowledge.Catalog
}

// Result is the outcome of classifying one utterance.
type Result struct {
	Label      string
	Confidence float64
	// Intent is nil for the empty and unknown pseudo-intents.
	Intent     knowledge.Intent
	Generation string
}

// Accept demotes the result to unknown when its confidence is below threshold. The empty
// pseudo-intent is always accepted.
func (r Result) Accept(threshold float64) (Result, error) {
	if r.Label == knowledge.LabelEmpty || r.Confidence >= threshold {
		return r, nil
	}
	return Result{Label: knowledge.LabelUnknown, Confidence: r.Confidence, Generation: r.Generation}, errx.ErrLowConfidence
}

func emptyResult(gen string) Result {
	return Result{Label: knowledge.LabelEmpty, Confidence: 1, Generation: gen}
}

// Classify scores text. Identical text always yields the identical result.
func (g *Generation) Classify(text string) Result {
	if strings.TrimSpace(text) == "" {
		return emptyResult(g.ID)
	}
	x := g.vocab.transform(terms(text))
	p := make([]float64, len(g.labels))
	g.model.probs(x, p)

	best := 0
	for k := 1; k < len(p); k++ {
		if p[k] > p[best] {
			best = k
		}
	}
	label := g.labels[best]
	intent, _ := g.catalog.Intent(label)
	return Result{Label: label, Confidence: p[best], Intent: intent, Generation: g.ID}
}

// Catalog returns the intents this generation resolves labels to.
func (g *Generation) Catalog() *knowledge.Catalog {
	return g.catalog
}

// Labels returns the labels in class order.
func (g *Generation) Labels() []string {
	return append([]string(nil), g.labels...)
}
