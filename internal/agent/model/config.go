package model

import (
	"time"

	"github.com/bank-of-trust/bankbot-core/internal/nlu"
)

// ================ Config ================
type DialogueConfig struct {
	Threshold   float64       `envconfig:"DIALOGUE_THRESHOLD" default:"0.55"`
	MaxFailures int           `envconfig:"DIALOGUE_MAX_FAILURES" default:"3"`
	SessionTTL  time.Duration `envconfig:"DIALOGUE_SESSION_TTL" default:"30m"`
	FlowTTL     time.Duration `envconfig:"DIALOGUE_FLOW_TTL" default:"10m"`
	LockTimeout time.Duration `envconfig:"DIALOGUE_LOCK_TIMEOUT" default:"5s"`
	Transcript  struct {
		TTL      time.Duration `envconfig:"DIALOGUE_TRANSCRIPT_TTL" default:"24h"`
		MaxTurns int           `envconfig:"DIALOGUE_TRANSCRIPT_MAX_TURNS" default:"50"`
	}
}

type ClassifierConfig struct {
	Epochs       int     `envconfig:"CLASSIFIER_EPOCHS" default:"2000"`
	LearningRate float64 `envconfig:"CLASSIFIER_LEARNING_RATE" default:"1.0"`
	L2           float64 `envconfig:"CLASSIFIER_L2" default:"0.0001"`
	MaxFeatures  int     `envconfig:"CLASSIFIER_MAX_FEATURES" default:"18000"`
	Workers      int     `envconfig:"CLASSIFIER_WORKERS" default:"0"`
}

func (c ClassifierConfig) TrainOptions() nlu.TrainOptions {
	return nlu.TrainOptions{
		Epochs:       c.Epochs,
		LearningRate: c.LearningRate,
		L2:           c.L2,
		MaxFeatures:  c.MaxFeatures,
		Workers:      c.Workers,
	}
}

type KnowledgeConfig struct {
	// Path is a YAML dataset; empty uses the dataset built into the binary.
	Path string `envconfig:"KNOWLEDGE_PATH"`
	// SQLitePath, when set, is the training_examples database. An empty table is seeded
	// from the YAML dataset.
	SQLitePath string `envconfig:"KNOWLEDGE_SQLITE_PATH"`
}

type MetricsConfig struct {
	Addr      string `envconfig:"METRICS_ADDR" default:":9090"`
	Namespace string `envconfig:"METRICS_NAMESPACE" default:"bankbot"`
}
