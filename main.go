package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"github.com/bank-of-trust/bankbot-core/internal/agent/dialogue"
	"github.com/bank-of-trust/bankbot-core/internal/agent/graph/conversations"
	"github.com/bank-of-trust/bankbot-core/internal/agent/model"
	"github.com/bank-of-trust/bankbot-core/internal/agent/repo"
	"github.com/bank-of-trust/bankbot-core/internal/core"
	"github.com/bank-of-trust/bankbot-core/internal/flow"
	"github.com/bank-of-trust/bankbot-core/internal/knowledge"
	"github.com/bank-of-trust/bankbot-core/internal/ledger"
	"github.com/bank-of-trust/bankbot-core/internal/nlu"
	"github.com/bank-of-trust/bankbot-core/internal/observability"
	"github.com/bank-of-trust/bankbot-core/internal/session"
	logx "github.com/bank-of-trust/bankbot-core/pkg/logger"
	pkgredis "github.com/bank-of-trust/bankbot-core/pkg/redis"
)

// demoAccount is the sandbox customer the terminal session is signed in as.
const demoAccount = "100001"

// AppConfig defines all configurable parameters of the bot core,
// sourced from environment variables (loaded from .env for local runs).
type AppConfig struct {
	Environment core.Environment `envconfig:"ENVIRONMENT" default:"development"`

	// Infrastructure
	Redis pkgredis.Config

	Dialogue   model.DialogueConfig
	Classifier model.ClassifierConfig
	Knowledge  model.KnowledgeConfig
	Metrics    model.MetricsConfig
}

func main() {
	// Load .env file
	if err := godotenv.Load(".env"); err != nil {
		log.Printf("Warning: Could not load .env file: %v", err)
	}

	var envCfg AppConfig
	if err := envconfig.Process("", &envCfg); err != nil {
		log.Fatalf("Failed to process environment config: %v", err)
	}
	logx.Init(logx.LoggerOpts{Environment: envCfg.Environment})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sandbox := ledger.NewSandbox()
	metrics := observability.NewMetrics(envCfg.Metrics.Namespace)

	store, transcripts, closeStores := openStores(ctx, envCfg)
	defer closeStores()

	dataset, err := loadDataset(ctx, envCfg.Knowledge)
	if err != nil {
		logx.Fatal().Err(err).Msg("Failed to load knowledge base")
	}

	history := conversations.NewMessagesManager(transcripts, envCfg.Dialogue)
	flows := flow.Builtin()
	classifier := nlu.New(nlu.Options{
		Train: envCfg.Classifier.TrainOptions(),
		Flows: flows.Names(),
	})

	manager, err := dialogue.New(ctx, envCfg.Dialogue, dialogue.Deps{
		Store:      store,
		Profiles:   sandbox,
		Balances:   sandbox,
		Classifier: classifier,
		Flows:      flows,
		Transcript: history,
		Metrics:    metrics,
	})
	if err != nil {
		logx.Fatal().Err(err).Msg("Failed to build dialogue manager")
	}

	// No model means every free-text turn would fall back; refuse to start.
	if _, err := manager.Reload(ctx, dataset); err != nil {
		logx.Fatal().Err(err).Msg("Failed to train intent classifier")
	}

	go reloadOnHangup(ctx, manager, envCfg.Knowledge)

	srv := startOpsServer(envCfg.Metrics.Addr, classifier, metrics)
	defer func() {
		if srv == nil {
			return
		}
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	sessionID := "cli-" + uuid.NewString()
	sandbox.Bind(sessionID, demoAccount)
	runTerminal(ctx, os.Stdin, os.Stdout, manager, sandbox, history, sessionID)
}

// openStores selects Redis when REDIS_URL is set and in-process stores otherwise.
func openStores(ctx context.Context, cfg AppConfig) (session.Store, model.ConversationRepository, func()) {
	if !cfg.Redis.Enabled() {
		mem := session.NewMemoryStore(cfg.Dialogue.SessionTTL)
		mem.StartJanitor(ctx, time.Minute)
		logx.Info().Msg("Using in-memory session store")
		return mem, repo.NewMemoryConversationRepository(), func() {}
	}

	rdb, err := cfg.Redis.New()
	if err != nil {
		logx.Fatal().Err(err).Msg("Failed to initialise Redis client")
	}
	logx.Info().Msg("Connected to Redis successfully")
	return session.NewRedisStore(rdb, cfg.Dialogue.SessionTTL),
		repo.NewRedisConversationRepository(rdb, cfg.Dialogue.Transcript.TTL),
		func() { _ = rdb.Close() }
}

// loadDataset reads the knowledge base from SQLite, a YAML file, or the built-in dataset,
// in that order. An empty SQLite table is seeded from the YAML source.
func loadDataset(ctx context.Context, cfg model.KnowledgeConfig) (knowledge.Dataset, error) {
	seed := func() (knowledge.Dataset, error) {
		if cfg.Path != "" {
			return knowledge.LoadFile(cfg.Path)
		}
		return knowledge.Default()
	}
	if cfg.SQLitePath == "" {
		return seed()
	}

	src, err := knowledge.OpenSQLite(cfg.SQLitePath)
	if err != nil {
		return knowledge.Dataset{}, err
	}
	defer src.Close()

	n, err := src.Count(ctx)
	if err != nil {
		return knowledge.Dataset{}, err
	}
	if n == 0 {
		d, err := seed()
		if err != nil {
			return knowledge.Dataset{}, err
		}
		if err := src.Import(ctx, d); err != nil {
			return knowledge.Dataset{}, fmt.Errorf("seed knowledge base: %w", err)
		}
		logx.Info().Str("path", cfg.SQLitePath).Int("intents", len(d.Intents)).Msg("Seeded knowledge base")
	}
	return src.Load(ctx)
}

// reloadOnHangup retrains the classifier from the knowledge base on SIGHUP.
func reloadOnHangup(ctx context.Context, m *dialogue.Manager, cfg model.KnowledgeConfig) {
	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	defer signal.Stop(hup)

	for {
		select {
		case <-ctx.Done():
			return
		case <-hup:
			d, err := loadDataset(ctx, cfg)
			if err != nil {
				logx.Error().Err(err).Msg("Reload skipped: knowledge base unreadable")
				continue
			}
			if _, err := m.Reload(ctx, d); err != nil {
				logx.Error().Err(err).Msg("Reload failed; keeping current model")
			}
		}
	}
}

func runTerminal(ctx context.Context, in io.Reader, out io.Writer, m *dialogue.Manager, l ledger.Ledger, history *conversations.MessagesManager, sessionID string) {
	fmt.Fprintln(out, "Bank of Trust assistant. Type 'exit' to quit, 'history' for the transcript.")
	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, "You: ")
		if !scanner.Scan() {
			return
		}
		line := scanner.Text()
		switch strings.ToLower(strings.TrimSpace(line)) {
		case "exit", "quit":
			fmt.Fprintln(out, "Bot: Goodbye!")
			return
		case "history":
			printHistory(ctx, out, history, sessionID)
			continue
		}

		resp, err := m.Handle(ctx, sessionID, line)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return
			}
			logx.Error().Err(err).Msg("Turn failed")
			fmt.Fprintln(out, "Bot: Sorry, something went wrong. Please try again.")
			continue
		}
		fmt.Fprintf(out, "Bot: %s\n", resp.Reply.Text)

		if resp.Request == nil {
			continue
		}
		res := ledger.Execute(ctx, l, *resp.Request)
		settled, err := m.Settle(ctx, sessionID, res)
		if err != nil {
			logx.Error().Err(err).Str("request_id", resp.Request.ID).Msg("Settle failed")
			continue
		}
		fmt.Fprintf(out, "Bot: %s\n", settled.Reply.Text)
	}
}

func printHistory(ctx context.Context, out io.Writer, history *conversations.MessagesManager, sessionID string) {
	msgs, err := history.Recent(ctx, sessionID, 20)
	if err != nil {
		logx.Error().Err(err).Msg("Failed to load transcript")
		return
	}
	for _, msg := range msgs {
		intent, _ := msg.Extra[model.ExtraIntent].(string)
		if intent != "" {
			fmt.Fprintf(out, "  %-9s: %s  [%s]\n", msg.Role, msg.Content, intent)
			continue
		}
		fmt.Fprintf(out, "  %-9s: %s\n", msg.Role, msg.Content)
	}
}
