package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"admission-gateway/middleware/ratelimit"
	"admission-gateway/middleware/ratelimit/infra"
)

func main() {
	// Exemplo: middleware direto no seu webserver (sem proxy)
	logger := zerolog.New(os.Stdout).With().Timestamp().Str("service", "example-server").Logger()
	stats := infra.NewMemoryStatsStore()

	r := chi.NewRouter()
	r.Use(ratelimit.ConcurrencyMiddleware(ratelimit.ConcurrencyOptions{Max: 50, Logger: &logger}))
	r.Use(ratelimit.Middleware(ratelimit.Options{
		Stats:  stats,
		Logger: &logger,
	}))

	r.Post("/api/chat", decisionHandler)
	r.Post("/api/voice", decisionHandler)
	r.Get("/api/admin/users", decisionHandler)
	r.Post("/api/payments", decisionHandler)
	r.Get("/api/conversation/{id}", func(w http.ResponseWriter, r *http.Request) {
		// possui limiter próprio: o middleware se abstém aqui
		writeJSON(w, map[string]string{"conversation": chi.URLParam(r, "id")})
	})
	r.Get("/static/*", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("static\n"))
	})
	r.Get("/stats", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]any{
			"total":       stats.Total(),
			"by_category": stats.ByCategory(),
		})
	})
	r.NotFound(decisionHandler)

	addr := ":8081"
	if v := os.Getenv("LISTEN_ADDR"); v != "" {
		addr = v
	}

	srv := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       90 * time.Second,
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.Info().Str("addr", addr).Msg("example server listening")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatal().Err(err).Msg("server error")
	}
}

func decisionHandler(w http.ResponseWriter, r *http.Request) {
	d, ok := ratelimit.DecisionFromContext(r.Context())
	if !ok {
		writeJSON(w, map[string]string{"path": r.URL.Path})
		return
	}
	writeJSON(w, map[string]any{
		"path":       r.URL.Path,
		"category":   d.Category,
		"remaining":  d.Remaining(),
		"violations": d.Violations,
	})
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
