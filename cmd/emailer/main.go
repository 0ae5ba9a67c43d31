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

// Emailer service
//
// Entry point for the emailer process. It:
//  1. Loads configuration from config.yaml and the environment
//  2. Connects to Redis and, when configured, PostgreSQL
//  3. Registers the emailer object as "applications.email"
//  4. Serves calls from the Redis queue and the HTTP front-end
//  5. Shuts down gracefully on SIGTERM/SIGINT
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/bcem/emailer/internal/config"
	"github.com/bcem/emailer/internal/emailer"
	"github.com/bcem/emailer/internal/ipc"
	"github.com/bcem/emailer/internal/journal"
	"github.com/bcem/emailer/internal/logging"
	"github.com/bcem/emailer/internal/mailer"
	"github.com/bcem/emailer/internal/profile"
	"github.com/bcem/emailer/internal/transport"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

const pruneInterval = time.Hour

func main() {
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})))

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger, flush := logging.New(logging.Config{
		Level:             cfg.LogLevel,
		SentryDSN:         cfg.SentryDSN,
		SentryEnvironment: cfg.SentryEnvironment,
		Release:           version,
	})
	slog.SetDefault(logger)

	slog.Info("starting emailer service", "version", version)
	if err := run(cfg); err != nil {
		slog.Error("emailer service failed", "error", err)
		flush()
		os.Exit(1)
	}
	slog.Info("emailer service stopped", "version", version)
	flush()
}

func run(cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	// --- Connect to Redis ---
	opt, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return fmt.Errorf("invalid REDIS_URL: %w", err)
	}
	rdb := redis.NewClient(opt)
	defer rdb.Close()

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	err = rdb.Ping(pingCtx).Err()
	cancel()
	if err != nil {
		return fmt.Errorf("connect to Redis: %w", err)
	}
	slog.Info("connected to Redis")

	// --- Call journal (optional) ---
	var (
		regOpts []ipc.RegistryOption
		pgPool  *pgxpool.Pool
		store   *journal.Store
	)
	if cfg.DatabaseURL != "" {
		pgPool, err = pgxpool.New(ctx, cfg.DatabaseURL)
		if err != nil {
			return fmt.Errorf("create Postgres pool: %w", err)
		}
		defer pgPool.Close()

		if err := pgPool.Ping(ctx); err != nil {
			return fmt.Errorf("connect to PostgreSQL: %w", err)
		}
		slog.Info("connected to PostgreSQL")

		store, err = journal.NewStore(ctx, pgPool)
		if err != nil {
			return err
		}
		regOpts = append(regOpts, ipc.WithRecorder(store))
	}

	// --- Emailer object ---
	resolver := profile.NewResolver(transport.NewHTTP(transport.WithTimeout(cfg.HTTPTimeout)))
	sender := mailer.NewSender(mailer.NewSMTPDialer(
		mailer.WithDialTimeout(cfg.SMTPDialTimeout),
		mailer.WithHelloName(cfg.SMTPHelloName),
	))

	registry := ipc.NewRegistry(regOpts...)
	if err := registry.Register(cfg.ObjectName, emailer.New(resolver, sender)); err != nil {
		return err
	}

	server := ipc.NewServer(rdb, registry, ipc.ServerConfig{
		Queue:       cfg.IPCQueue,
		MaxInFlight: cfg.IPCMaxInFlight,
		ReplyTTL:    cfg.IPCReplyTTL,
		Dedup:       ipc.NewDedup(rdb, ipc.DefaultSeenTTL),
	})

	g, gctx := errgroup.WithContext(ctx)

	if cfg.HTTPPort > 0 {
		checks := map[string]ipc.HealthCheck{"redis": server.Ping}
		if pgPool != nil {
			checks["postgres"] = pgPool.Ping
		}
		ready, err := ipc.Serve(gctx, cfg.HTTPPort, ipc.NewHTTPHandler(registry, checks))
		if err != nil {
			return err
		}
		<-ready
	}

	g.Go(func() error {
		return server.Run(gctx)
	})

	if store != nil && cfg.JournalRetention > 0 {
		g.Go(func() error {
			pruneJournal(gctx, store, cfg.JournalRetention)
			return nil
		})
	}

	slog.Info("emailer service ready",
		"object", cfg.ObjectName,
		"queue", cfg.IPCQueue,
		"http_port", cfg.HTTPPort,
		"journal", store != nil,
	)

	<-gctx.Done()
	slog.Info("shutting down")

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// pruneJournal deletes journal entries older than retention once an hour.
func pruneJournal(ctx context.Context, store *journal.Store, retention time.Duration) {
	ticker := time.NewTicker(pruneInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := store.Prune(ctx, time.Now().Add(-retention))
			if err != nil {
				slog.Warn("journal prune failed", "error", err)
				continue
			}
			if n > 0 {
				slog.Info("journal pruned", "deleted", n)
			}
		}
	}
}
