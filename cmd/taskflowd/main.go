package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/skillsenselab/taskflow/config"
	"github.com/skillsenselab/taskflow/logger"
	"github.com/skillsenselab/taskflow/observability"
	"github.com/skillsenselab/taskflow/resilience"
	"github.com/skillsenselab/taskflow/runner"
	"github.com/skillsenselab/taskflow/server"
	"github.com/skillsenselab/taskflow/server/middleware"
	"github.com/skillsenselab/taskflow/store"
	"github.com/skillsenselab/taskflow/version"
)

const serviceName = "taskflowd"

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", serviceName, err)
		os.Exit(1)
	}
}

func run() error {
	configFile := flag.String("config", "", "path to config.yml")
	showVersion := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println(serviceName, version.Get())
		return nil
	}

	var opts []config.LoaderOption
	if *configFile != "" {
		opts = append(opts, config.WithConfigFile(*configFile))
	}
	cfg, err := config.Load(serviceName, opts...)
	if err != nil {
		return err
	}
	if cfg.Version == "" {
		cfg.Version = version.Get().Version
	}

	log := logger.New(&cfg.Logging, cfg.Name)
	logger.SetGlobalLogger(log)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var metrics *observability.SchedulerMetrics
	if cfg.Observability.Enabled {
		tp, err := observability.InitTracer(ctx, observability.TracerConfig{
			ServiceName:    cfg.Name,
			ServiceVersion: cfg.Version,
			Environment:    cfg.Environment,
			Endpoint:       cfg.Observability.Endpoint,
			Insecure:       cfg.Observability.Insecure,
			SampleRate:     cfg.Observability.SampleRate,
		})
		if err != nil {
			return fmt.Errorf("init tracer: %w", err)
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = tp.Shutdown(shutdownCtx)
		}()

		mp, err := observability.InitMeter(ctx, &observability.MeterConfig{
			ServiceName:    cfg.Name,
			ServiceVersion: cfg.Version,
			Environment:    cfg.Environment,
			Endpoint:       cfg.Observability.Endpoint,
			Insecure:       cfg.Observability.Insecure,
			Interval:       time.Duration(cfg.Observability.MetricsInterval) * time.Second,
		})
		if err != nil {
			return fmt.Errorf("init meter: %w", err)
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = mp.Shutdown(shutdownCtx)
		}()

		metrics, err = observability.NewSchedulerMetrics(observability.Meter(cfg.Name))
		if err != nil {
			return fmt.Errorf("init metrics: %w", err)
		}
	}

	st, err := store.New(cfg.Storage.Dir)
	if err != nil {
		return err
	}

	engineOpts := []runner.Option{
		runner.WithMaxParallel(cfg.Runner.MaxParallel),
		runner.WithLogger(log),
	}
	if cfg.Runner.TaskTimeout > 0 {
		engineOpts = append(engineOpts, runner.WithTaskTimeout(time.Duration(cfg.Runner.TaskTimeout)*time.Second))
	}
	if cfg.Runner.TaskRetries > 1 {
		retryCfg := resilience.DefaultRetryConfig()
		retryCfg.MaxAttempts = cfg.Runner.TaskRetries
		engineOpts = append(engineOpts, runner.WithRetry(retryCfg))
	}
	if metrics != nil {
		engineOpts = append(engineOpts, runner.WithMetrics(metrics))
	}
	engine := runner.New(nil, engineOpts...)

	srv := server.New(cfg.Server, log)
	srv.ApplyMiddleware()

	svc := server.NewService(cfg.Name, cfg.Version, engine, st, log)
	var mws []gin.HandlerFunc
	if cfg.Auth.Enabled {
		mws = append(mws, middleware.Auth(middleware.AuthConfig{
			TokenValidator: middleware.JWTValidator(cfg.Auth.Secret),
		}))
	}
	svc.RegisterRoutes(srv.GinEngine(), mws...)

	if err := srv.Start(ctx); err != nil {
		return err
	}

	log.Info("taskflow ready", logger.Fields(
		"addr", srv.Addr(),
		"environment", cfg.Environment,
		"storage", cfg.Storage.Dir,
	))

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return srv.Stop(shutdownCtx)
}
