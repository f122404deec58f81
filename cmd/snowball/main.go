package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"snowball/internal/archive"
	"snowball/internal/config"
	"snowball/internal/fetcher"
	"snowball/internal/recorder"
	"snowball/internal/roller"
	"snowball/internal/scheduler"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Println("[INFO] snowball starting...")

	rollOnce := flag.Bool("roll", false, "run one roll pass and exit")
	backfillOnce := flag.Bool("backfill", false, "run one backfill pass and exit")
	flag.Parse()

	// Load config
	cfgPath := "configs/config.yaml"
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		cfgPath = v
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("[FATAL] load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("[FATAL] config validation: %v", err)
	}

	// Init fetcher
	f := fetcher.NewYahooFetcher(cfg.Proxy, cfg.FetchTimeout())
	log.Printf("[INFO] data source: %s", f.Name())

	// Init archive
	arc, err := archive.New(cfg.Storage.Path)
	if err != nil {
		log.Fatalf("[FATAL] init archive: %v", err)
	}
	log.Printf("[INFO] archive root: %s", arc.Root())

	// Init recorder
	var rec recorder.Recorder
	if cfg.Database.SQLitePath != "" {
		sr, err := recorder.NewSQLiteRecorder(cfg.Database.SQLitePath)
		if err != nil {
			log.Printf("[WARN] init sqlite recorder failed, using noop: %v", err)
			rec = recorder.NewNoopRecorder()
		} else {
			rec = sr
			defer sr.Close()
		}
	} else {
		rec = recorder.NewNoopRecorder()
	}

	// Context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	r := roller.New(cfg, f, arc, rec)

	// One-shot modes
	if *rollOnce || *backfillOnce {
		exit := 0
		if *rollOnce {
			if summary, err := r.Roll(ctx); err != nil || len(summary.Failed()) > 0 {
				exit = 1
			}
		}
		if *backfillOnce {
			if summary, err := r.RollBackfill(ctx); err != nil || len(summary.Failed()) > 0 {
				exit = 1
			}
		}
		os.Exit(exit)
	}

	// Init scheduler
	sched := scheduler.NewScheduler(ctx, r)
	if err := sched.RegisterAll(cfg.Schedule.RollCron, cfg.Schedule.BackfillCron); err != nil {
		log.Fatalf("[FATAL] register cron tasks: %v", err)
	}
	sched.Start()
	defer sched.Stop()

	// Optional: run immediately on start
	if os.Getenv("RUN_ON_START") == "true" {
		log.Println("[INFO] RUN_ON_START enabled, executing roll now")
		go sched.RunRollNow()
	}

	log.Println("[INFO] snowball is running. Press Ctrl+C to stop.")

	// Wait for shutdown signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Println("[INFO] shutdown signal received, stopping...")
	cancel()
	log.Println("[INFO] snowball stopped")
}
