// Package knowledge holds the labelled utterances the classifier trains on and the catalog of
// intents they resolve to. Datasets come from YAML files or from a SQLite table of
// text/intent/response triples.
package knowledge

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/bank-of-trust/bankbot-core/internal/router"
)

var ErrInvalidDataset = errors.New("invalid dataset")

type Kind string

const (
	KindAnswer  Kind = "answer"
	KindFlow    Kind = "flow"
	KindControl Kind = "control"
)

// IntentSpec is one labelled intent as written in a dataset file.
type IntentSpec struct {
	Label      string   `yaml:"label"`
	Kind       Kind     `yaml:"kind"`
	Flow       string   `yaml:"flow,omitempty"`
	Control    string   `yaml:"control,omitempty"`
	Attributes []string `yaml:"attributes,omitempty"`
	Utterances []string `yaml:"utterances"`
	// Responses are paired with utterances by position, wrapping around when shorter.
	Responses []string `yaml:"responses,omitempty"`
}

type Dataset struct {
	Intents []IntentSpec `yaml:"intents"`
}

// Example is a single training triple.
type Example struct {
	Text     string
	Intent   string
	Response string
}

// Examples flattens the dataset into triples in file order.
func (d Dataset) Examples() []Example {
	var out []Example
	for _, in := range d.Intents {
		for i, u := range in.Utterances {
			ex := Example{Text: u, Intent: in.Label}
			if len(in.Responses) > 0 {
				ex.Response = in.Responses[i%len(in.Responses)]
			}
			out = append(out, ex)
		}
	}
	return out
}

// Catalog is the validated, immutable set of intents for one classifier generation.
type Catalog struct {
	intents  map[string]Intent
	labels   []string
	examples []Example
}

// Compile validates d and resolves every label to its Intent. When flows is non-nil, flow intents
// must name one of them.
func Compile(d Dataset, flows []string) (*Catalog, error) {
	c := &Catalog{intents: make(map[string]Intent, len(d.Intents))}
	for _, spec := range d.Intents {
		label := strings.TrimSpace(spec.Label)
		if label == "" {
			return nil, fmt.Errorf("%w: intent without a label", ErrInvalidDataset)
		}
		if label == LabelEmpty || label == LabelUnknown {
			return nil, fmt.Errorf("%w: label %q is reserved", ErrInvalidDataset, label)
		}
		if _, dup := c.intents[label]; dup {
			return nil, fmt.Errorf("%w: duplicate label %q", ErrInvalidDataset, label)
		}

		var utterances []string
		for _, u := range spec.Utterances {
			if strings.TrimSpace(u) != "" {
				utterances = append(utterances, u)
			}
		}
		if len(utterances) == 0 {
			return nil, fmt.Errorf("%w: intent %q has no utterances", ErrInvalidDataset, label)
		}

		intent, err := resolve(label, spec, flows)
		if err != nil {
			return nil, err
		}
		c.intents[label] = intent
		c.labels = append(c.labels, label)
	}
	if len(c.labels) < 2 {
		return nil, fmt.Errorf("%w: need at least two intents, got %d", ErrInvalidDataset, len(c.labels))
	}
	slices.Sort(c.labels)

	for _, ex := range d.Examples() {
		if strings.TrimSpace(ex.Text) == "" {
			continue
		}
		ex.Intent = strings.TrimSpace(ex.Intent)
		c.examples = append(c.examples, ex)
	}
	return c, nil
}

func resolve(label string, spec IntentSpec, flows []string) (Intent, error) {
	switch spec.Kind {
	case KindFlow:
		if spec.Flow == "" {
			return nil, fmt.Errorf("%w: flow intent %q names no flow", ErrInvalidDataset, label)
		}
		if flows != nil && !slices.Contains(flows, spec.Flow) {
			return nil, fmt.Errorf("%w: intent %q names unknown flow %q", ErrInvalidDataset, label, spec.Flow)
		}
		return FlowIntent{Name: label, Flow: spec.Flow}, nil
	case KindControl:
		tok, ok := router.ParseToken(spec.Control)
		if !ok {
			return nil, fmt.Errorf("%w: intent %q has unknown control %q", ErrInvalidDataset, label, spec.Control)
		}
		return ControlIntent{Name: label, Token: tok}, nil
	case KindAnswer, "":
		if len(spec.Responses) == 0 {
			return nil, fmt.Errorf("%w: answer intent %q has no responses", ErrInvalidDataset, label)
		}
		a := AnswerIntent{
			Name:       label,
			Responses:  slices.Clone(spec.Responses),
			Attributes: slices.Clone(spec.Attributes),
			exact:      make(map[string]string, len(spec.Utterances)),
		}
		for i, u := range spec.Utterances {
			k := fold(u)
			if _, seen := a.exact[k]; !seen {
				a.exact[k] = spec.Responses[i%len(spec.Responses)]
			}
		}
		return a, nil
	default:
		return nil, fmt.Errorf("%w: intent %q has unknown kind %q", ErrInvalidDataset, label, spec.Kind)
	}
}

// Intent returns the resolved intent for a label.
func (c *Catalog) Intent(label string) (Intent, bool) {
	in, ok := c.intents[label]
	return in, ok
}

// Labels returns the sorted labels.
func (c *Catalog) Labels() []string {
	return slices.Clone(c.labels)
}

// Examples returns the training triples in dataset order.
func (c *Catalog) Examples() []Example {
	return slices.Clone(c.examples)
}
