// cmd/worker-manager/main.go
package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	_ "net/http/pprof"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"dealer-workers/internal/app"
	"dealer-workers/internal/common/config"
	"dealer-workers/internal/common/logger"
	"dealer-workers/internal/fipe"
)

func main() {
	zapLog := logger.New("info", "console")
	defer zapLog.Sync()

	zapLog.Info("Starting worker manager...")

	cfg, err := config.Load()
	if err != nil {
		zapLog.Fatal("config load failed", zap.Error(err))
	}

	zapLog = logger.New(cfg.Logging.Level, cfg.Logging.Format)
	log := logger.NewZapAdapter(zapLog).WithFields(map[string]interface{}{
		"service": cfg.App.Name,
		"env":     cfg.App.Environment,
	})

	ctx := context.Background()

	a, err := app.New(ctx, cfg, log, app.Options{
		ServiceName: "worker-manager",
		Retries:     15,
		RetryDelay:  2 * time.Second,
	})
	if err != nil {
		zapLog.Fatal("startup failed", zap.Error(err))
	}
	defer a.Close()

	// --- Expiration triggers schedule ---
	if cfg.Jobs.ExpirationTriggers.Enabled {
		if err := a.Scheduler.Start(); err != nil {
			zapLog.Fatal("failed to start expiration triggers schedule", zap.Error(err))
		}
	} else {
		zapLog.Info("expiration triggers job disabled by configuration")
	}

	// --- HTTP: health, readiness, metrics, FIPE lookups ---
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		writeStatus(w, http.StatusOK, map[string]string{
			"status": "healthy",
			"time":   time.Now().Format(time.RFC3339),
		})
	})
	mux.HandleFunc("GET /ready", func(w http.ResponseWriter, r *http.Request) {
		pingCtx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		body := map[string]string{
			"status":       "ready",
			"time":         time.Now().Format(time.RFC3339),
			"lastJobState": a.Job.State().String(),
		}
		if next := a.Scheduler.Next(); !next.IsZero() {
			body["nextRun"] = next.Format(time.RFC3339)
		}
		if err := a.Ready(pingCtx); err != nil {
			body["status"] = "not ready"
			body["error"] = err.Error()
			writeStatus(w, http.StatusServiceUnavailable, body)
			return
		}
		writeStatus(w, http.StatusOK, body)
	})
	mux.Handle("GET /metrics", promhttp.Handler())
	mux.Handle("/debug/pprof/", http.DefaultServeMux)
	fipe.NewHandler(a.Fipe, config.GetDuration(cfg.Fipe.Timeout), log).Register(mux)

	server := &http.Server{
		Addr:              cfg.Server.Address,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		zapLog.Info("HTTP server listening", zap.String("address", cfg.Server.Address))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zapLog.Error("HTTP server failed", zap.Error(err))
		}
	}()

	// --- Graceful Shutdown ---
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	zapLog.Info("Shutdown signal received, stopping...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		zapLog.Error("Error shutting down HTTP server", zap.Error(err))
	}

	select {
	case <-a.Scheduler.Stop().Done():
	case <-shutdownCtx.Done():
		zapLog.Warn("expiration run still in progress at shutdown deadline")
	}

	zapLog.Info("Worker manager stopped gracefully")
}

func writeStatus(w http.ResponseWriter, status int, body map[string]string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}
