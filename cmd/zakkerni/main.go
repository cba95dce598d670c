package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "time/tzdata"

	"github.com/zakkerni/zakkerni/internal/bus"
	"github.com/zakkerni/zakkerni/internal/channels"
	"github.com/zakkerni/zakkerni/internal/config"
	"github.com/zakkerni/zakkerni/internal/dialog"
	"github.com/zakkerni/zakkerni/internal/sched"
	"github.com/zakkerni/zakkerni/internal/store"
	"github.com/zakkerni/zakkerni/internal/timeparse"
)

func main() {
	if err := run(); err != nil {
		slog.Error("zakkerni exited with error", "error", err)
		os.Exit(1)
	}
}

func run() error {
	configPath := flag.String("config", "", "path to config file (default ~/.zakkerni/config.json)")
	flag.Parse()

	var cfg *config.Config
	var err error
	if *configPath != "" {
		cfg, err = config.LoadFromFile(*configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	loc, err := time.LoadLocation(cfg.Scheduler.Timezone)
	if err != nil {
		return fmt.Errorf("load timezone %q: %w", cfg.Scheduler.Timezone, err)
	}

	st, err := store.Open(cfg.Storage.DBPath, loc)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer st.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	msgBus := bus.NewMessageBus(100)
	mgr := channels.NewManager(msgBus)

	tgCfg, err := json.Marshal(cfg.Channels.Telegram)
	if err != nil {
		return fmt.Errorf("marshal telegram config: %w", err)
	}
	if err := mgr.AddChannel("telegram", tgCfg); err != nil {
		return err
	}

	parser := timeparse.New(loc)
	handler := dialog.NewHandler(st, parser, msgBus, dialog.Config{
		FreeTaskLimit:     cfg.Limits.FreeTasks,
		FreeReminderLimit: cfg.Limits.FreeReminders,
		PremiumPriceStars: cfg.Premium.PriceStars,
		PremiumDays:       cfg.Premium.Days,
	})

	svc := sched.NewService(st, mgr, sched.Config{
		Location:      loc,
		Channel:       "telegram",
		SummaryHour:   cfg.Scheduler.SummaryHour,
		FixedInterval: cfg.Scheduler.FixedInterval,
	})

	go msgBus.DispatchOutbound(ctx)
	if err := mgr.StartAll(ctx); err != nil {
		return err
	}
	if err := svc.Start(ctx); err != nil {
		return fmt.Errorf("start scheduler: %w", err)
	}
	go handler.Run(ctx)

	slog.Info("zakkerni started", "timezone", cfg.Scheduler.Timezone)
	<-ctx.Done()

	slog.Info("shutting down")
	svc.Stop()
	if err := mgr.StopAll(); err != nil {
		slog.Warn("channel shutdown", "error", err)
	}
	return nil
}
