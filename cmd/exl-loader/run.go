package main

import (
	"context"
	"log/slog"

	"github.com/sirilvk/exl-loader/cmd/exl-loader/internal/config"
	"github.com/sirilvk/exl-loader/cmd/exl-loader/internal/ui"
	"github.com/sirilvk/exl-loader/pkg/drivers/redis"
	"github.com/sirilvk/exl-loader/pkg/loader"
	"github.com/sirilvk/exl-loader/pkg/observability"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func newRunCmd(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Load every document in the input directory once",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLoad(cmd, v)
		},
	}
}

// session holds everything a load needs, built from the resolved config.
type session struct {
	cfg         *config.Config
	logger      *slog.Logger
	obs         *observability.Manager
	cache       *redis.Cache
	coordinator *loader.Coordinator
}

func newSession(cmd *cobra.Command, v *viper.Viper) (*session, error) {
	cfg, err := config.Load(v)
	if err != nil {
		return nil, err
	}

	// Validated by config.Load
	level, _ := observability.ParseLevel(cfg.Logging.Level)
	logger := observability.NewLogger(cmd.ErrOrStderr(), level, cfg.Logging.Format)
	slog.SetDefault(logger)

	ctx := cmd.Context()
	metrics := loader.NewPrometheusMetricsCollector("exl_loader")

	obs := observability.NewManager(observability.Config{
		ServiceName:    "exl-loader",
		ServiceVersion: version,
		MetricsPort:    cfg.Metrics.Port,
		EnableTracing:  cfg.Tracing.Enabled,
		TraceOutput:    cmd.ErrOrStderr(),
		Gatherer:       metrics.Registry(),
	}, logger)
	if err := obs.Initialize(ctx); err != nil {
		return nil, err
	}

	cache, err := redis.New(ctx, cfg.Redis)
	if err != nil {
		obs.Shutdown(context.WithoutCancel(ctx))
		return nil, err
	}
	logger.Info("Connected to Redis", "address", cache.Config().Address)

	coordinator := loader.NewCoordinator(cfg.InputDir, cache,
		loader.WithWorkers(cfg.Threads),
		loader.WithExtension(cfg.Extension),
		loader.WithLogger(logger),
		loader.WithMetricsCollector(metrics),
		loader.WithTracer(obs.Tracer("exl-loader")),
		loader.WithDebounce(cfg.Watch.Debounce),
	)

	return &session{
		cfg:         cfg,
		logger:      logger,
		obs:         obs,
		cache:       cache,
		coordinator: coordinator,
	}, nil
}

func (s *session) Close(ctx context.Context) {
	if err := s.cache.Close(); err != nil {
		s.logger.Warn("Failed to close Redis client", "error", err)
	}
	s.obs.Shutdown(context.WithoutCancel(ctx))
}

// batch runs the coordinator once and reports the result.
func (s *session) batch(cmd *cobra.Command) (*loader.Summary, error) {
	summary, err := s.coordinator.Run(cmd.Context())
	if err != nil {
		return nil, err
	}

	s.logger.Info("Total Time", "elapsed", summary.Elapsed)
	s.logger.Info("Total Product Records", "total", summary.Records)
	ui.New(cmd.OutOrStdout(), cmd.ErrOrStderr()).Summary(summary)
	return summary, nil
}

func runLoad(cmd *cobra.Command, v *viper.Viper) error {
	s, err := newSession(cmd, v)
	if err != nil {
		return err
	}
	defer s.Close(cmd.Context())

	stop := notifyShutdown(s.logger, s.coordinator.Cancel)
	defer stop()

	summary, err := s.batch(cmd)
	if err != nil {
		return err
	}
	if summary.Interrupted {
		return errInterrupted
	}
	return nil
}
