package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/Spok95/stock-planner/internal/bot"
	"github.com/Spok95/stock-planner/internal/config"
	"github.com/Spok95/stock-planner/internal/domain/allocation"
	"github.com/Spok95/stock-planner/internal/domain/demand"
	"github.com/Spok95/stock-planner/internal/infra/db"
	httpx "github.com/Spok95/stock-planner/internal/infra/http"
	"github.com/Spok95/stock-planner/internal/infra/logger"
	"github.com/Spok95/stock-planner/internal/infra/metrics"
	"github.com/Spok95/stock-planner/internal/notify"
	"github.com/Spok95/stock-planner/internal/planner"
	"github.com/Spok95/stock-planner/internal/reports"
)

func main() {
	configPath := flag.String("config", "config/example.yaml", "path to config file")
	job := flag.String("job", planner.JobAll, "job to run: analyze | allocate | reconcile | all")
	source := flag.String("source", "", "input source override: xlsx | postgres")
	flag.Parse()

	if err := run(*configPath, *job, *source); err != nil {
		os.Exit(1)
	}
}

func run(configPath, job, source string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		slog.Error("config load failed", "err", err)
		return err
	}
	if source != "" {
		cfg.Source = source
		if err := cfg.Validate(); err != nil {
			slog.Error("invalid source override", "err", err)
			return err
		}
	}

	log := logger.New(cfg.App.Env)
	if _, err := planner.ParseJob(job); err != nil {
		log.Error("bad job", "err", err)
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	opts := planner.Options{
		Allocation:      allocationParams(cfg),
		Weights:         weights(cfg),
		Discontinued:    cfg.Ranking.Discontinued,
		ScheduledStatus: cfg.Allocation.ScheduledStatus,
		FailOnAmbiguous: cfg.Reconcile.FailOnAmbiguous,
		OutputDir:       cfg.Workbook.Output,
	}

	var m *metrics.Metrics
	if cfg.Metrics.Enabled {
		m = metrics.New()
		opts.Metrics = m
	}

	var tracker reports.Tracker = reports.NewMemTracker()
	var src planner.Source
	if cfg.Postgres.DSN != "" {
		if err := db.Migrate(cfg.Postgres.DSN, cfg.Postgres.MigrationsDir); err != nil {
			log.Error("migrations failed", "err", err)
			return err
		}
		log.Info("migrations applied")

		pool, err := db.Connect(ctx, cfg.Postgres.DSN)
		if err != nil {
			log.Error("db connect failed", "err", err)
			return err
		}
		defer pool.Close()
		log.Info("db connected")

		pg := planner.NewPGSource(pool)
		opts.Snapshots = pg
		tracker = reports.NewRepo(pool)
		if cfg.Source == config.SourcePostgres {
			src = pg
		}
	}
	if src == nil {
		src = planner.NewXLSXSource(cfg.Workbook.Input)
	}
	log.Info("input source", "source", cfg.Source)

	if cfg.Reports.AccessToken != "" {
		client := reports.NewClient(cfg.Reports.BaseURL, cfg.Reports.AccessToken, cfg.Reports.MarketplaceID, nil)
		poller := reports.NewPoller(client, cfg.Reports.PollInterval, cfg.Reports.MaxAttempts, log)
		if m != nil {
			poller.OnPoll(func(status string) { m.ReportPolls.WithLabelValues(status).Inc() })
		}
		opts.Fetcher = reports.NewFetcher(client, tracker, poller, cfg.Reports.MaxAge, log)
	}

	var api *tgbotapi.BotAPI
	if cfg.Telegram.Token != "" && cfg.Telegram.AdminChatID != 0 {
		api, err = tgbotapi.NewBotAPI(cfg.Telegram.Token)
		if err != nil {
			log.Error("telegram init failed", "err", err)
			return err
		}
		log.Info("telegram authorized", "bot", api.Self.UserName)
		opts.Notifier = notify.New(api, cfg.Telegram.AdminChatID, log)
	}

	p := planner.New(src, opts, log)

	// без расписания и бота — один прогон и выход
	if cfg.Schedule.Interval <= 0 && api == nil {
		_, err := p.Run(ctx, job)
		return err
	}

	var metricsHandler http.Handler
	if m != nil {
		metricsHandler = m.Handler()
	}
	srv := httpx.New(cfg.HTTP.Addr, metricsHandler, func() (any, bool) { return p.LastRun() })
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("http server error", "err", err)
		}
	}()
	log.Info("HTTP server started", "addr", cfg.HTTP.Addr)

	if api != nil {
		b := bot.New(api, log, cfg.Telegram.AdminChatID, p, cfg.Workbook.Input)
		go func() {
			if err := b.Run(ctx, 30); err != nil && !errors.Is(err, context.Canceled) {
				log.Error("bot stopped", "err", err)
			}
		}()
		log.Info("bot started")
	}

	if cfg.Schedule.Interval > 0 {
		log.Info("scheduler started", "job", job, "interval", cfg.Schedule.Interval)
		err = p.Loop(ctx, job, cfg.Schedule.Interval)
	} else {
		<-ctx.Done()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
	log.Info("graceful shutdown complete")
	return err
}

func allocationParams(cfg config.Config) allocation.Params {
	a := cfg.Allocation
	return allocation.Params{
		SinglePackSize:   a.SinglePackSize,
		ComboPackSize:    a.ComboPackSize,
		MinThreshold:     a.MinThreshold,
		YesRatio:         a.YesRatio,
		LeadTimeDays:     a.LeadTimeDays,
		HighRiskDays:     a.HighRiskDays,
		MediumRiskDays:   a.MediumRiskDays,
		InfiniteCoverage: a.InfiniteCoverage,
		ComboPackagingOz: a.ComboPackagingOz,
	}
}

func weights(cfg config.Config) demand.Weights {
	r := cfg.Ranking
	return demand.Weights{
		HighShare:                  r.HighShare,
		MediumShare:                r.MediumShare,
		VelocityWeight:             r.VelocityWeight,
		CoverageWeight:             r.CoverageWeight,
		TrendWeight:                r.TrendWeight,
		OutOfStockMultiplier:       r.OutOfStockMultiplier,
		CriticalCoverageDays:       r.CriticalCoverageDays,
		CriticalCoverageMultiplier: r.CriticalCoverageMultiplier,
		LowCoverageDays:            r.LowCoverageDays,
		LowCoverageMultiplier:      r.LowCoverageMultiplier,
	}
}
