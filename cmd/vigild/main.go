// Package main provides the vigil daemon entry point.
package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm/logger"

	"github.com/vigildev/vigil/internal/actuator"
	"github.com/vigildev/vigil/internal/audit"
	"github.com/vigildev/vigil/internal/config"
	"github.com/vigildev/vigil/internal/db"
	"github.com/vigildev/vigil/internal/economy"
	"github.com/vigildev/vigil/internal/metabolism"
	"github.com/vigildev/vigil/internal/oracle"
	"github.com/vigildev/vigil/internal/orchestrator"
	"github.com/vigildev/vigil/internal/recovery"
	"github.com/vigildev/vigil/internal/scheduler"
	"github.com/vigildev/vigil/internal/supervisor"
	"github.com/vigildev/vigil/internal/watcher"
)

// Version is set at build time via ldflags.
var Version = "dev"

func main() {
	goal := flag.String("goal", "", "Focus goal for this session")
	done := flag.Bool("done", false, "Mark the active focus session completed and exit")
	dbPath := flag.String("db", "", "Database path (default: ~/.vigil/vigil.db)")
	debug := flag.Bool("debug", false, "Enable debug logging")
	flag.Parse()

	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	if *debug {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, NoColor: true})

	if err := config.EnsureAll(); err != nil {
		log.Fatal().Err(err).Msg("failed to ensure data directory")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Warn().Err(err).Msg("failed to load config, using defaults")
		cfg = config.Default()
	}

	path := config.DBPath()
	if *dbPath != "" {
		path = *dbPath
	}

	store, err := db.NewStore(db.Config{
		Path:     path,
		MaxConns: cfg.MaxConns,
		LogLevel: logger.Silent,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open database")
	}
	defer store.Close()

	wallet := db.NewWalletStore(store)
	activity := db.NewActivityStore(store)
	blocks := db.NewBlockStore(store)
	insights := db.NewInsightStore(store)
	audits := db.NewAuditStore(store)
	episodic := db.NewEpisodicStore(store)
	sessions := db.NewSessionStore(store)

	if *done {
		completeSession(sessions)
		return
	}

	client := oracle.NewClient(cfg.OracleURL, cfg.OracleModel, os.Getenv("VIGIL_ORACLE_API_KEY"), nil)
	eco := economy.NewEngine(wallet, cfg.BankruptcyThreshold, cfg.MiningRatePerMinute)
	auditor := audit.NewAuditor(client, blocks, audits)
	detector := recovery.NewDetector(episodic, 0, 0, 0)
	detector.SetKeywords(cfg.WorkKeywords, cfg.DistractionKeywords)

	orch := orchestrator.New(eco, auditor, episodic, activity, actuator.NewLogActuator(), orchestrator.Config{
		SnoozeDuration:    time.Duration(cfg.SnoozeMinutes) * time.Minute,
		WhitelistDuration: time.Duration(cfg.WhitelistMinutes) * time.Minute,
		StrictDuration:    time.Duration(cfg.StrictMinutes) * time.Minute,
	})
	sup := supervisor.New(activity, blocks, insights, episodic, sessions, eco, auditor, detector, orch, client, cfg)
	transformer := metabolism.NewTransformer(activity, blocks, insights, scheduler.CompressInterval, scheduler.TransformNightly)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Info().Msg("shutting down")
		cancel()
	}()

	if *goal != "" {
		if err := sup.SetGoal(ctx, *goal); err != nil {
			log.Fatal().Err(err).Msg("failed to start focus session")
		}
	}

	// A deleted database means every handle is stale; exit and let the
	// process supervisor bring the daemon back with a fresh file.
	dbWatch, err := watcher.New(path, func() {
		log.Error().Str("path", path).Msg("database deleted, exiting")
		cancel()
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create database watcher")
	}

	sched := scheduler.New("vigild")
	sched.AddService("supervision", sup.Run)
	sched.AddService("db-watcher", dbWatch.Serve)
	sched.AddJob(&scheduler.Job{
		Name:     "compress",
		Interval: scheduler.CompressInterval,
		Fn: func(ctx context.Context) error {
			_, err := transformer.CompressTick(ctx)
			return err
		},
	})
	sched.AddJob(&scheduler.Job{
		Name:     "transform",
		Interval: scheduler.TransformNightly,
		Fn:       transformer.TransformTick,
	})
	sched.AddJob(&scheduler.Job{
		Name:       "trim",
		Interval:   scheduler.TrimInterval,
		RunAtStart: true,
		Fn: func(ctx context.Context) error {
			if _, err := activity.Trim(ctx, db.ActivityRetention); err != nil {
				return err
			}
			_, err := episodic.Trim(ctx, db.ActivityRetention)
			return err
		},
	})
	sched.AddJob(&scheduler.Job{
		Name:     "watchdog",
		Interval: scheduler.WatchdogInterval,
		Fn: func(ctx context.Context) error {
			orch.WatchdogTick(ctx)
			return nil
		},
	})

	log.Info().
		Str("version", Version).
		Str("db", path).
		Str("oracle", cfg.OracleURL).
		Msg("vigild starting")

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return sched.Serve(gctx) })

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		log.Fatal().Err(err).Msg("vigild stopped")
	}
	log.Info().Msg("vigild stopped")
}

// completeSession closes the active focus session, if any.
func completeSession(sessions *db.SessionStore) {
	ctx := context.Background()
	session, err := sessions.Active(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load focus session")
	}
	if session == nil {
		log.Info().Msg("no active focus session")
		return
	}
	if err := sessions.End(ctx, session.ID, "completed"); err != nil {
		log.Fatal().Err(err).Msg("failed to complete focus session")
	}
	log.Info().Str("goal", session.GoalText).Msg("focus session completed")
}
