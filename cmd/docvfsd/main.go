// Command docvfsd runs the document VFS daemon: the VFS/DocService
// primitives over Postgres, the signaling relay, and the ops HTTP surface
// (health/status/metrics/signal) described in spec.md §6.
package main

import (
	"context"
	"flag"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/objectfs/docvfs/internal/cache"
	"github.com/objectfs/docvfs/internal/config"
	"github.com/objectfs/docvfs/internal/docservice"
	activehealth "github.com/objectfs/docvfs/internal/health"
	"github.com/objectfs/docvfs/internal/messagestore"
	"github.com/objectfs/docvfs/internal/metrics"
	"github.com/objectfs/docvfs/internal/signaling"
	"github.com/objectfs/docvfs/internal/store"
	"github.com/objectfs/docvfs/internal/vfs"
	"github.com/objectfs/docvfs/pkg/api"
	"github.com/objectfs/docvfs/pkg/errors"
	"github.com/objectfs/docvfs/pkg/health"
	"github.com/objectfs/docvfs/pkg/status"
	"github.com/objectfs/docvfs/pkg/types"
	"github.com/objectfs/docvfs/pkg/utils"
)

func main() {
	var (
		configPath = flag.String("config", "", "path to a YAML configuration file (optional; env vars and defaults apply otherwise)")
	)
	flag.Parse()

	cfg := config.NewDefault()
	if *configPath != "" {
		if err := cfg.LoadFromFile(*configPath); err != nil {
			log.Fatalf("docvfsd: %v", err)
		}
	}
	if err := cfg.LoadFromEnv(); err != nil {
		log.Fatalf("docvfsd: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("docvfsd: invalid configuration: %v", err)
	}

	level, err := utils.ParseLogLevel(cfg.Monitoring.Logging.Level)
	if err != nil {
		log.Fatalf("docvfsd: %v", err)
	}

	var logOutput io.Writer = os.Stdout
	var logRotator *utils.LogRotator
	if cfg.Monitoring.Logging.FilePath != "" {
		logRotator, err = utils.NewLogRotator(&utils.RotationConfig{
			Filename:   cfg.Monitoring.Logging.FilePath,
			MaxSize:    cfg.Monitoring.Logging.MaxSizeMB,
			MaxAge:     cfg.Monitoring.Logging.MaxAgeDays,
			MaxBackups: cfg.Monitoring.Logging.MaxBackups,
			Compress:   cfg.Monitoring.Logging.CompressOld,
			LocalTime:  true,
		})
		if err != nil {
			log.Fatalf("docvfsd: log rotator: %v", err)
		}
		logOutput = logRotator
	}

	var logger utils.Printer
	if cfg.Monitoring.Logging.Structured {
		format := utils.FormatText
		if cfg.Monitoring.Logging.Format == "json" {
			format = utils.FormatJSON
		}
		structured, err := utils.NewStructuredLogger(&utils.StructuredLoggerConfig{
			Level:         level,
			Output:        logOutput,
			Format:        format,
			IncludeCaller: true,
		})
		if err != nil {
			log.Fatalf("docvfsd: structured logger: %v", err)
		}
		logger = utils.StructuredPrinter{L: structured}
	} else {
		logger = utils.NewLogger(level, logOutput)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var metricsCollector *metrics.Collector
	var metricsIface types.MetricsCollector
	if cfg.Monitoring.Metrics.Enabled {
		metricsCollector, err = metrics.NewCollector(&metrics.Config{
			Enabled:        true,
			Port:           9090,
			Path:           "/metrics",
			Namespace:      "docvfs",
			Labels:         cfg.Monitoring.Metrics.CustomLabels,
			UpdateInterval: 30 * time.Second,
		})
		if err != nil {
			log.Fatalf("docvfsd: metrics collector: %v", err)
		}
		metricsIface = metricsCollector
		if err := metricsCollector.Start(ctx); err != nil {
			log.Fatalf("docvfsd: starting metrics server: %v", err)
		}
	}

	st, err := store.New(ctx, cfg.Database, metricsIface)
	if err != nil {
		log.Fatalf("docvfsd: connecting to database: %v", err)
	}
	defer st.Close()

	if err := st.Bootstrap(ctx); err != nil {
		log.Fatalf("docvfsd: bootstrapping schema: %v", err)
	}

	dirCache := cache.NewDirCache(cache.DefaultConfig())
	engine := vfs.NewEngine(st, dirCache, metricsIface)
	docs := docservice.New(st, engine)
	msgs := messagestore.New(st)

	hub := signaling.New(msgs, nil, cfg.Signaling.AdminPublicKey, logger)
	_ = docs // DocService is consumed by the (out-of-scope) REST routing surface, spec.md §1.

	healthTracker := health.NewTracker(health.TrackerConfig{
		ErrorThreshold:       3,
		UnavailableThreshold: 5,
		RecoveryThreshold:    2,
		HealthCheckInterval:  cfg.Monitoring.HealthChecks.Interval,
		StateHistorySize:     50,
		EnableAutoRecovery:   true,
	})
	statusTracker := status.NewTracker(status.TrackerConfig{
		MaxHistorySize: 1000,
		HealthTracker:  healthTracker,
	})

	healthTracker.RegisterComponent("database")

	// internal/health.Checker drives the active probing loop (the
	// teacher's own periodic Check runner); each run's outcome is fed
	// into the pkg/health.Tracker above, which turns consecutive
	// failures/successes into the degraded/unavailable states the
	// ops server's /health/ready route reports.
	checker, err := activehealth.NewChecker(&activehealth.Config{
		Enabled:       true,
		CheckInterval: cfg.Monitoring.HealthChecks.Interval,
		Timeout:       5 * time.Second,
		HTTPEnabled:   false,
	})
	if err != nil {
		log.Fatalf("docvfsd: health checker: %v", err)
	}
	err = checker.RegisterCheck("database", "Postgres reachability", activehealth.CategoryStorage, activehealth.PriorityCritical,
		func(checkCtx context.Context) error {
			err := st.HealthCheck(checkCtx)
			if err != nil {
				healthTracker.RecordError("database", err)
			} else {
				healthTracker.RecordSuccess("database")
			}
			return err
		})
	if err != nil {
		log.Fatalf("docvfsd: registering database health check: %v", err)
	}
	err = checker.RegisterCheck("pool-saturation", "Postgres pool has spare capacity", activehealth.CategoryPerformance, activehealth.PriorityMedium,
		func(context.Context) error {
			stats := st.Stats()
			if stats.MaxOpen > 0 && stats.Active >= stats.MaxOpen {
				return errors.Newf(errors.ErrCodeResourceExhausted, "connection pool saturated: %d/%d in use", stats.Active, stats.MaxOpen)
			}
			return nil
		})
	if err != nil {
		log.Fatalf("docvfsd: registering pool-saturation health check: %v", err)
	}
	err = checker.RegisterCheck("relay-rooms", "SigningRelay room count (informational)", activehealth.CategoryNetwork, activehealth.PriorityLow,
		func(context.Context) error {
			logger.Debug("docvfsd: signaling relay has %d active rooms", hub.RoomCount())
			return nil
		})
	if err != nil {
		log.Fatalf("docvfsd: registering relay-rooms health check: %v", err)
	}
	if err := checker.Start(ctx); err != nil {
		log.Fatalf("docvfsd: starting health checker: %v", err)
	}

	// The metrics collector runs its own Prometheus endpoint (above) on a
	// separate port, against its own registry; the ops server's /metrics
	// route is only the textual placeholder and stays disabled here.
	serverConfig := api.DefaultServerConfig()
	serverConfig.Address = cfg.Ops.Address

	server := api.NewServer(serverConfig, statusTracker, healthTracker, hub.Handler(), nil)
	server.StartBackground()
	logger.Info("docvfsd listening on %s", cfg.Ops.Address)

	<-ctx.Done()
	logger.Info("docvfsd shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("docvfsd: server shutdown: %v", err)
	}
	if err := checker.Stop(); err != nil {
		logger.Error("docvfsd: health checker shutdown: %v", err)
	}
	if metricsCollector != nil {
		if err := metricsCollector.Stop(shutdownCtx); err != nil {
			logger.Error("docvfsd: metrics shutdown: %v", err)
		}
	}
	if logRotator != nil {
		if err := logRotator.Close(); err != nil {
			logger.Error("docvfsd: log rotator shutdown: %v", err)
		}
	}
}
