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

// Package logging builds the process logger: JSON records on stdout,
// optionally fanned out to Sentry, decorated with call-scoped attributes
// taken from the context.
package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/getsentry/sentry-go"
	sentryslog "github.com/getsentry/sentry-go/slog"
)

// Config selects the level and the optional Sentry sink.
type Config struct {
	Level             string
	SentryDSN         string
	SentryEnvironment string
	Release           string
	// Output defaults to os.Stdout.
	Output io.Writer
}

// ParseLevel accepts debug, info, warn/warning and error, case-insensitively.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "info":
		return slog.LevelInfo, nil
	case "debug":
		return slog.LevelDebug, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("unknown log level %q", s)
	}
}

// New returns the logger and a flush function to call before exit. When no
// Sentry DSN is configured, or Sentry fails to start, only stdout is used.
func New(cfg Config) (*slog.Logger, func()) {
	level, err := ParseLevel(cfg.Level)
	out := cfg.Output
	if out == nil {
		out = os.Stdout
	}

	stdout := slog.NewJSONHandler(out, &slog.HandlerOptions{Level: level})
	noop := func() {}

	if err != nil {
		slog.New(stdout).Warn("falling back to info level", "error", err)
	}

	if cfg.SentryDSN == "" {
		return slog.New(NewDecorator(stdout, CallExtractors()...)), noop
	}

	if err := sentry.Init(sentry.ClientOptions{
		Dsn:         cfg.SentryDSN,
		Environment: cfg.SentryEnvironment,
		Release:     cfg.Release,
		EnableLogs:  true,
	}); err != nil {
		slog.New(stdout).Error("failed to initialize Sentry", "error", err)
		return slog.New(NewDecorator(stdout, CallExtractors()...)), noop
	}

	sentryHandler := sentryslog.Option{
		EventLevel: []slog.Level{slog.LevelError},
		LogLevel:   []slog.Level{slog.LevelWarn, slog.LevelError},
	}.NewSentryHandler(context.Background())

	combined := newMultiHandler(stdout, sentryHandler)
	flush := func() { sentry.Flush(2 * time.Second) }
	return slog.New(NewDecorator(combined, CallExtractors()...)), flush
}
