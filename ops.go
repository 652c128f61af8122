package main

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/bank-of-trust/bankbot-core/internal/nlu"
	"github.com/bank-of-trust/bankbot-core/internal/observability"
	logx "github.com/bank-of-trust/bankbot-core/pkg/logger"
)

// startOpsServer serves /metrics and /healthz. An empty addr disables it.
func startOpsServer(addr string, classifier *nlu.Classifier, metrics *observability.Metrics) *http.Server {
	if addr == "" {
		return nil
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Method(http.MethodGet, "/metrics", metrics.Handler())
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		body := map[string]any{"status": "ok"}
		status := http.StatusOK
		if g := classifier.Current(); g != nil {
			body["generation"] = g.ID
			body["generation_seq"] = g.Seq
			body["trained_at"] = g.TrainedAt.Format(time.RFC3339)
		} else {
			body["status"] = "model unavailable"
			status = http.StatusServiceUnavailable
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(body)
	})

	srv := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		logx.Info().Str("addr", addr).Msg("Ops server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logx.Error().Err(err).Msg("Ops server stopped")
		}
	}()
	return srv
}
