package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"fraudguard/audit"
	"fraudguard/config"
	"fraudguard/db"
	qhttp "fraudguard/http"
	"fraudguard/logger"
	"fraudguard/ml"
	"fraudguard/monitoring"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 5 * time.Second

func newServeCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Load the model artifact and serve predictions over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), opts.configPath)
		},
	}
}

func runServe(ctx context.Context, configPath string) error {
	if ctx == nil {
		ctx = context.Background()
	}

	// 1. Load config
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	// 2. Logger
	log, level, err := logger.New(logger.Options{
		Level:      cfg.Log.Level,
		File:       cfg.Log.File,
		MaxSizeMB:  cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAgeDays: cfg.Log.MaxAgeDays,
	})
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer log.Sync()

	// 3. Model artifact, degraded mode on failure
	artifact := ml.LoadOrDegrade(cfg.Model.Path, log)

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	var metrics *monitoring.Metrics
	if cfg.Metrics.Enabled {
		metrics = monitoring.NewMetrics(registry)
		metrics.SetModelAvailable(artifact.Available())
	}

	hub := monitoring.NewHub(log)

	// 4. Audit trail
	recorder, closeAudit, err := openAudit(cfg.Audit, log, hub)
	if err != nil {
		return err
	}
	defer closeAudit()

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if _, err := os.Stat(configPath); err == nil {
		err := config.Watch(ctx, configPath, log, func(c *config.Config) {
			if err := logger.SetLevel(level, c.Log.Level); err != nil {
				log.Warn("ignoring log level change", zap.Error(err))
			}
		})
		if err != nil {
			log.Warn("config watch disabled", zap.Error(err))
		}
	}

	// 5. HTTP server
	server := qhttp.NewServer(serverConfig(cfg), qhttp.Deps{
		Predictor: ml.NewPredictor(artifact),
		Recorder:  recorder,
		Metrics:   metrics,
		Hub:       hub,
		Logger:    log,
	})

	log.Info("fraudguard ready",
		zap.String("addr", server.Addr()),
		zap.Bool("model_available", artifact.Available()))

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		hub.Run(gctx)
		return nil
	})
	g.Go(server.Start)
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return server.Stop(shutdownCtx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	log.Info("exiting")
	return nil
}

func serverConfig(cfg *config.Config) qhttp.ServerConfig {
	return qhttp.ServerConfig{
		Addr:         cfg.Addr(),
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		MaxBodyBytes: cfg.HTTP.MaxBodyBytes,
	}
}

// openAudit 审计存储打不开时只保留内存缓存，不影响推理服务
func openAudit(cfg config.AuditConfig, log *zap.Logger, hub *monitoring.Hub) (*audit.Recorder, func(), error) {
	opts := []audit.Option{audit.WithPublisher(hub)}
	var store *db.Store
	if cfg.Enabled {
		s, err := db.Open(cfg.DBPath)
		if err != nil {
			log.Error("audit database unavailable, keeping in-memory records only",
				zap.String("path", cfg.DBPath), zap.Error(err))
		} else {
			store = s
			opts = append(opts, audit.WithStore(store))
			fields := []zap.Field{zap.String("path", cfg.DBPath)}
			if n, err := store.CountPredictions(context.Background()); err == nil {
				fields = append(fields, zap.Int("records", n))
			}
			log.Info("audit database opened", fields...)
		}
	}

	recorder, err := audit.NewRecorder(cfg.CacheSize, log, opts...)
	if err != nil {
		if store != nil {
			store.Close()
		}
		return nil, nil, err
	}

	if store != nil && cfg.RetentionDays > 0 {
		retention := time.Duration(cfg.RetentionDays) * 24 * time.Hour
		if err := recorder.StartRetention(cfg.PurgeSchedule, retention); err != nil {
			store.Close()
			return nil, nil, err
		}
	}

	return recorder, func() {
		recorder.Stop()
		if store != nil {
			store.Close()
		}
	}, nil
}
