package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"

	"github.com/odyssey-erp/trialbalance/internal/app"
	"github.com/odyssey-erp/trialbalance/internal/platform/cache"
	"github.com/odyssey-erp/trialbalance/internal/platform/db"
	"github.com/odyssey-erp/trialbalance/internal/report"
	"github.com/odyssey-erp/trialbalance/internal/report/format"
	"github.com/odyssey-erp/trialbalance/jobs"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	repo := report.NewRepository(pool)
	printer := format.NewPrinter(cfg.Locale)
	reportSvc := report.NewService(repo, repo, repo, printer, redisClient, logger)

	warmup := jobs.NewReportWarmupJob(reportSvc, logger)

	var cron []jobs.CronRegistration
	for _, companyID := range cfg.WarmupCompanyIDs {
		task, err := jobs.NewReportWarmupTask(jobs.ReportWarmupPayload{CompanyID: companyID})
		if err != nil {
			logger.Error("build warmup task", slog.Any("error", err))
			os.Exit(1)
		}
		cron = append(cron, jobs.CronRegistration{Spec: cfg.WarmupCron, Task: task})
	}

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts: asynq.RedisClientOpt{Addr: cfg.RedisAddr},
		Logger:    logger,
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskReportWarmup, Handler: warmup.Handle},
		},
		Cron: cron,
	})
	if err != nil {
		logger.Error("build worker", slog.Any("error", err))
		os.Exit(1)
	}

	logger.Info("worker starting", slog.Int("warmup_companies", len(cfg.WarmupCompanyIDs)))
	if err := worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("worker stopped", slog.Any("error", err))
		os.Exit(1)
	}
}
