// Copyright (c) 2026 John Earle
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Paneworks vendor work-order ingestion.
//
// Entry point for the mailbox poller. It:
//  1. Loads configuration from the environment
//  2. Loads the vendor allowlist (builtin or vendors.yaml)
//  3. Optionally connects Redis (cross-window seen filter) and
//     Postgres (decision ledger)
//  4. Authenticates against the shared IMAP mailbox (fatal on failure)
//  5. Polls for unseen vendor emails and runs each through admission
//  6. Handles graceful shutdown on SIGTERM/SIGINT
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/paneworks/ingestion/internal/admission"
	"github.com/paneworks/ingestion/internal/config"
	"github.com/paneworks/ingestion/internal/crm"
	"github.com/paneworks/ingestion/internal/docanalysis"
	"github.com/paneworks/ingestion/internal/extract"
	"github.com/paneworks/ingestion/internal/ledger"
	"github.com/paneworks/ingestion/internal/mailbox"
	"github.com/paneworks/ingestion/internal/review"
	"github.com/paneworks/ingestion/internal/seen"
	"github.com/paneworks/ingestion/internal/vendors"
)

func main() {
	// Structured JSON logging
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	slog.Info("starting work-order ingestion poller")

	// --- Load Configuration ---
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	slog.Info("configuration loaded",
		"poll_interval", cfg.PollInterval,
		"poll_lookback", cfg.PollLookback,
		"confidence_threshold", cfg.ConfidenceThreshold,
		"dry_run", cfg.DryRun,
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// --- Vendor Registry ---
	registry, err := vendors.LoadRegistry(cfg.VendorsPath)
	if err != nil {
		slog.Error("failed to load vendor registry", "error", err)
		os.Exit(1)
	}
	slog.Info("vendor registry loaded", "vendors", len(registry.Profiles()))

	// --- Optional Seen Filter (Redis) ---
	var seenFilter mailbox.SeenFilter
	var rdb *redis.Client
	if cfg.RedisURL != "" {
		opt, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			slog.Error("invalid REDIS_URL", "error", err)
			os.Exit(1)
		}
		rdb = redis.NewClient(opt)

		filter := seen.NewFilter(rdb)
		if err := filter.Ping(ctx); err != nil {
			slog.Error("failed to connect to Redis", "error", err)
			os.Exit(1)
		}
		seenFilter = filter
		slog.Info("connected to Redis")
	}

	// --- Optional Decision Ledger (Postgres) ---
	var decisionLedger mailbox.Ledger
	var pgPool *pgxpool.Pool
	if cfg.DatabaseURL != "" {
		pgPool, err = pgxpool.New(ctx, cfg.DatabaseURL)
		if err != nil {
			slog.Error("failed to create Postgres pool", "error", err)
			os.Exit(1)
		}
		defer pgPool.Close()

		if err := pgPool.Ping(ctx); err != nil {
			slog.Error("failed to connect to PostgreSQL", "error", err)
			os.Exit(1)
		}

		store, err := ledger.NewStore(ctx, pgPool)
		if err != nil {
			slog.Error("failed to initialise decision ledger", "error", err)
			os.Exit(1)
		}
		decisionLedger = store
		slog.Info("connected to PostgreSQL")

		// Startup summary of where the last run left off.
		if last, err := store.LastProcessedUID(ctx); err != nil {
			slog.Warn("failed to read ledger high-water mark", "error", err)
		} else if last > 0 {
			slog.Info("ledger high-water mark", "last_processed_uid", last)
		}
		if counts, err := store.CountByOutcome(ctx, time.Now().Add(-24*time.Hour)); err != nil {
			slog.Warn("failed to summarise ledger outcomes", "error", err)
		} else if len(counts) > 0 {
			slog.Info("ledger outcomes over the last day", "counts", counts)
		}
	}

	// --- Optional Document Analysis (S3 + Textract) ---
	var analyzer extract.Analyzer
	if cfg.OCRBucket != "" {
		client, err := docanalysis.New(ctx, cfg.AWSRegion, cfg.OCRBucket)
		if err != nil {
			slog.Error("failed to initialise document analysis", "error", err)
			os.Exit(1)
		}
		analyzer = client
		slog.Info("document analysis enabled",
			"bucket", cfg.OCRBucket,
			"region", cfg.AWSRegion,
		)
	} else {
		slog.Info("document analysis disabled (no OCR_BUCKET)")
	}

	// --- CRM Client ---
	crmClient := crm.NewClient(cfg.CRMBaseURL, cfg.CRMToken)

	// --- Review Queue ---
	reviewWriter, err := review.NewWriter(cfg.ReviewDir)
	if err != nil {
		slog.Error("failed to initialise review queue", "error", err)
		os.Exit(1)
	}

	// --- Admission Controller ---
	controller := admission.NewController(admission.Config{
		Registry:   registry,
		Strategies: extract.NewSet(analyzer),
		Duplicates: crmClient,
		Submitter:  crmClient,
		Reviews:    reviewWriter,
		Threshold:  cfg.ConfidenceThreshold,
		DryRun:     cfg.DryRun,
	})

	// --- Mailbox (fatal on bad credentials) ---
	mbox, err := mailbox.Dial(cfg.MailHost, cfg.MailPort, cfg.MailUsername, cfg.MailPassword, cfg.MailFolder)
	if err != nil {
		slog.Error("failed to open mailbox", "error", err)
		os.Exit(1)
	}

	// --- Poller ---
	poller := mailbox.NewPoller(mailbox.PollerConfig{
		Mailbox:   mbox,
		Processor: controller,
		Seen:      seenFilter,
		Ledger:    decisionLedger,
		Interval:  cfg.PollInterval,
		Lookback:  cfg.PollLookback,
	})

	// --- Graceful Shutdown ---
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)
		sig := <-sigCh

		slog.Info("received shutdown signal", "signal", sig)
		cancel()
	}()

	poller.Run(ctx)

	if err := mbox.Close(); err != nil {
		slog.Warn("mailbox close error", "error", err)
	}
	if rdb != nil {
		rdb.Close()
	}

	slog.Info("work-order ingestion poller stopped")
}
