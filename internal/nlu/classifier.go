// Package nlu is the intent classifier: a TF-IDF vectorizer and softmax regression trained on the
// knowledge base. The active model is an immutable Generation that can be swapped while
// turns keep reading the previous one.
package nlu

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	errx "github.com/bank-of-trust/bankbot-core/internal/core/error"
	"github.com/bank-of-trust/bankbot-core/internal/knowledge"
	logx "github.com/bank-of-trust/bankbot-core/pkg/logger"
)

type Options struct {
	Train TrainOptions
	// Flows lists the registered flow names; flow intents must name one of them.
	Flows []string
	// OnSwap is called after a new generation becomes active.
	OnSwap func(*Generation)
}

type Classifier struct {
	current atomic.Pointer[Generation]

	mu   sync.Mutex // serializes swaps only
	seq  uint64
	opts Options
}

func New(opts Options) *Classifier {
	return &Classifier{opts: opts}
}

// Current returns the active generation or nil. Callers pin it for the length of a turn.
func (c *Classifier) Current() *Generation {
	return c.current.Load()
}

// Classify runs text through the active generation. Empty text never touches the model.
func (c *Classifier) Classify(text string) (Result, error) {
	if strings.TrimSpace(text) == "" {
		return emptyResult(""), nil
	}
	g := c.current.Load()
	if g == nil {
		return Result{}, errx.ErrModelUnavailable
	}
	return g.Classify(text), nil
}

// Reload trains a new generation from the dataset and makes it active. Training happens
// without holding any lock; a failed reload leaves the previous generation in place.
func (c *Classifier) Reload(ctx context.Context, d knowledge.Dataset) (string, error) {
	start := time.Now()
	catalog, err := knowledge.Compile(d, c.opts.Flows)
	if err != nil {
		return "", errx.Training("dataset rejected", err)
	}
	g, err := Train(ctx, catalog, c.opts.Train)
	if err != nil {
		return "", err
	}

	c.mu.Lock()
	c.seq++
	g.Seq = c.seq
	c.current.Store(g)
	c.mu.Unlock()

	logx.Info().
		Str("generation", g.ID).
		Uint64("seq", g.Seq).
		Int("examples", g.Examples).
		Int("intents", len(g.labels)).
		Int("features", g.vocab.size()).
		Dur("took", time.Since(start)).
		Msg("classifier generation activated")

	if c.opts.OnSwap != nil {
		c.opts.OnSwap(g)
	}
	return g.ID, nil
}
