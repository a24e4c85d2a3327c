package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httputil"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"admission-gateway/middleware/ratelimit"
	"admission-gateway/middleware/ratelimit/domain"
	"admission-gateway/middleware/ratelimit/infra"
	"admission-gateway/middleware/ratelimit/policy"
)

func main() {
	rootCmd := &cobra.Command{
		Use:          "gateway",
		Short:        "Reverse proxy with per-category admission control",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve()
		},
	}
	rootCmd.AddCommand(serveCmd(), policiesCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the gateway (default)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve()
		},
	}
}

func policiesCmd() *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "policies",
		Short: "Print the effective policy table",
		RunE: func(cmd *cobra.Command, args []string) error {
			if file == "" {
				file = os.Getenv("POLICY_FILE")
			}
			table, err := loadPolicies(file)
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "CATEGORY\tQUOTA\tWINDOW\tMAX VIOLATIONS\tBLOCK")
			for _, e := range table.Policies() {
				fmt.Fprintf(w, "%s\t%d\t%s\t%d\t%s\n",
					e.Category, e.Policy.Quota, e.Policy.Window(), e.Policy.MaxViolations, e.Policy.BlockDuration())
			}
			return w.Flush()
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "YAML policy file (default $POLICY_FILE)")
	return cmd
}

func loadPolicies(file string) (*policy.Table, error) {
	if file == "" {
		return policy.DefaultTable(), nil
	}
	return policy.LoadFile(file)
}

func newLogger(level string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}
	return zerolog.New(os.Stdout).Level(lvl).With().Timestamp().Str("service", "gateway").Logger()
}

func serve() error {
	cfg, err := readConfig()
	if err != nil {
		return fmt.Errorf("config error: %w", err)
	}
	logger := newLogger(cfg.logLevel)

	target, err := url.Parse(cfg.upstreamURL)
	if err != nil {
		return fmt.Errorf("invalid UPSTREAM_URL: %w", err)
	}

	policies, err := loadPolicies(cfg.policyFile)
	if err != nil {
		return err
	}

	proxy := httputil.NewSingleHostReverseProxy(target)
	proxy.ErrorHandler = func(w http.ResponseWriter, r *http.Request, err error) {
		logger.Error().Err(err).Str("path", r.URL.Path).Msg("proxy error")
		http.Error(w, "bad gateway", http.StatusBadGateway)
	}

	windows := infra.NewWindowStore()
	violations := infra.NewViolationTracker()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	observer, err := infra.NewPrometheusObserver(reg, windows, violations)
	if err != nil {
		return fmt.Errorf("register metrics: %w", err)
	}

	var statsStore domain.StatsStore
	if cfg.rateStatsEnabled {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.rateStatsRedisAddr,
			Password: cfg.rateStatsRedisPassword,
			DB:       cfg.rateStatsRedisDB,
		})
		defer func() { _ = rdb.Close() }()

		pingCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		_, err := rdb.Ping(pingCtx).Result()
		cancel()
		if err != nil {
			return fmt.Errorf("redis stats ping error: %w", err)
		}

		statsStore = infra.NewRedisStatsStore(
			rdb,
			infra.WithStatsPrefix(cfg.rateStatsPrefix),
			infra.WithStatsTTL(cfg.rateStatsTTL),
			infra.WithStatsBucket(cfg.rateStatsBucket),
			infra.WithStatsTrackKeys(cfg.rateStatsTrackKeys),
		)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()
	if cfg.sweepEvery > 0 {
		go sweepLoop(ctx, windows, cfg.sweepEvery, logger)
	}

	h := http.Handler(proxy)
	if cfg.rateEnabled {
		h = ratelimit.Middleware(ratelimit.Options{
			Policies:   policies,
			Classifier: policy.NewClassifier(cfg.exemptPrefixes...),
			Windows:    windows,
			Violations: violations,
			Stats:      statsStore,
			Observer:   observer,
			Logger:     &logger,
		})(h)
	}
	h = ratelimit.ConcurrencyMiddleware(ratelimit.ConcurrencyOptions{
		Max:            cfg.concurrencyMax,
		RejectStatus:   http.StatusServiceUnavailable,
		AcquireTimeout: cfg.concurrencyTimeout,
		Logger:         &logger,
	})(h)
	h = accessLog(logger)(h)

	srv := &http.Server{
		Addr:              cfg.listenAddr,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       90 * time.Second,
	}

	var metricsSrv *http.Server
	if cfg.metricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
		metricsSrv = &http.Server{
			Addr:              cfg.metricsAddr,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error().Err(err).Msg("metrics server error")
			}
		}()
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		if metricsSrv != nil {
			_ = metricsSrv.Shutdown(shutdownCtx)
		}
	}()

	logger.Info().
		Str("listen", cfg.listenAddr).
		Str("upstream", target.String()).
		Str("metrics", cfg.metricsAddr).
		Msg("gateway listening")
	logger.Info().
		Bool("enabled", cfg.rateEnabled).
		Str("policy_file", cfg.policyFile).
		Strs("extra_exempt", cfg.exemptPrefixes).
		Dur("sweep_every", cfg.sweepEvery).
		Msg("rate")
	logger.Info().
		Bool("enabled", cfg.rateStatsEnabled).
		Str("redis_addr", cfg.rateStatsRedisAddr).
		Str("bucket", cfg.rateStatsBucket).
		Dur("ttl", cfg.rateStatsTTL).
		Bool("track_keys", cfg.rateStatsTrackKeys).
		Msg("rate-stats")
	logger.Info().
		Int("max", cfg.concurrencyMax).
		Dur("acquire_timeout", cfg.concurrencyTimeout).
		Msg("concurrency")

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// sweepLoop limpa janelas vencidas de shards que ficaram sem tráfego; os
// shards ativos já se limpam sozinhos a cada Increment.
func sweepLoop(ctx context.Context, windows *infra.WindowStore, every time.Duration, logger zerolog.Logger) {
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if n := windows.SweepExpired(); n > 0 {
				logger.Debug().Int("removed", n).Int("live", windows.Len()).Msg("window sweep")
			}
		}
	}
}
