package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/aulasoft/academia-engine/internal/audit"
	"github.com/aulasoft/academia-engine/internal/repository"
	"github.com/aulasoft/academia-engine/internal/service"
	"github.com/aulasoft/academia-engine/pkg/cache"
	"github.com/aulasoft/academia-engine/pkg/clock"
	"github.com/aulasoft/academia-engine/pkg/config"
	"github.com/aulasoft/academia-engine/pkg/database"
	"github.com/aulasoft/academia-engine/pkg/jobs"
	"github.com/aulasoft/academia-engine/pkg/logger"
	"github.com/aulasoft/academia-engine/pkg/sequence"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	if !cfg.Sweeper.Enabled {
		logr.Info("sweeper disabled, exiting")
		return
	}

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Fatal("failed to connect to postgres", zap.Error(err))
	}
	defer db.Close()

	clk := clock.System{}

	var seq sequence.Generator
	if redisClient, err := cache.NewRedis(cfg.Redis); err != nil {
		logr.Warn("redis unavailable, using in-memory sequences", zap.Error(err))
	} else {
		defer redisClient.Close()
		seq = sequence.NewRedis(redisClient, clk)
	}

	facturas := service.NewFacturaService(
		repository.NewFacturaRepository(db),
		repository.NewAlumnoRepository(db),
		seq,
		cfg.Engine,
		clk,
		audit.NewZapSink(logr),
		nil,
		logr,
	)

	runner := jobs.NewRunner(jobs.Config{
		Workers:    cfg.Sweeper.Workers,
		MaxRetries: cfg.Sweeper.MaxRetries,
		RetryDelay: cfg.Sweeper.RetryDelay,
	}, logr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	runner.Start(ctx)

	sweep := jobs.Task{
		Name: "mark-overdue-facturas",
		Run: func(ctx context.Context) error {
			_, err := facturas.MarkOverdue(ctx)
			return err
		},
	}
	if err := runner.Every(cfg.Sweeper.Interval, sweep); err != nil {
		logr.Fatal("failed to schedule sweep", zap.Error(err))
	}

	logr.Info("overdue sweeper running",
		zap.Duration("interval", cfg.Sweeper.Interval),
		zap.Int("workers", cfg.Sweeper.Workers))

	<-ctx.Done()
	logr.Info("shutting down")
	runner.Stop()
}
