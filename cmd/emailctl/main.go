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

// Emailer control command
//
// Issues one remote call to a running emailer service over Redis and
// prints the reply, or lists recent entries from the call journal.
//
// Usage:
//
//	go run ./cmd/emailctl/ -method getProfile -param '{"access_token":"...","profile_endpoint":"https://graph.microsoft.com/v1.0/me"}'
//	go run ./cmd/emailctl/ -method sendMail -param @message.json
//	go run ./cmd/emailctl/ -history 20
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/bcem/emailer/internal/apperr"
	"github.com/bcem/emailer/internal/config"
	"github.com/bcem/emailer/internal/ipc"
	"github.com/bcem/emailer/internal/journal"
)

func main() {
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelWarn,
	})))

	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

// run executes one invocation and returns the process exit code: 0 on
// success, 2 for bad flags or a classified remote failure, 1 otherwise.
func run(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	// --- CLI Flags ---
	fs := flag.NewFlagSet("emailctl", flag.ContinueOnError)
	fs.SetOutput(stderr)
	objectFlag := fs.String("object", "", "Registry object name (default from configuration)")
	methodFlag := fs.String("method", "", "Remote method to call, e.g. getProfile or sendMail")
	paramFlag := fs.String("param", "", "Call parameter as JSON, or @path to read it from a file (@- for stdin)")
	timeoutFlag := fs.Duration("timeout", time.Minute, "How long to wait for the reply")
	historyFlag := fs.Int("history", 0, "List the N most recent journal entries instead of calling")
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if *historyFlag > 0 {
		if err := printHistory(ctx, cfg.DatabaseURL, *historyFlag, stdout); err != nil {
			fmt.Fprintf(stderr, "Error: %v\n", err)
			return 1
		}
		return 0
	}

	if *methodFlag == "" {
		fmt.Fprintf(stderr, "Error: -method is required\n\n")
		fs.Usage()
		return 1
	}

	param, err := readParam(*paramFlag, stdin)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}

	object := *objectFlag
	if object == "" {
		object = cfg.ObjectName
	}

	// --- Connect to Redis ---
	opt, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		fmt.Fprintf(stderr, "Error: invalid REDIS_URL: %v\n", err)
		return 1
	}
	rdb := redis.NewClient(opt)
	defer rdb.Close()

	client := ipc.NewClient(rdb, cfg.IPCQueue, *timeoutFlag)
	result, err := client.Call(ctx, object, *methodFlag, param)
	if err != nil {
		var appErr *apperr.Error
		if errors.As(err, &appErr) {
			fmt.Fprintf(stderr, "%s: %s\n", appErr.Kind, appErr.Error())
			return 2
		}
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}

	if err := printJSON(stdout, result); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

// readParam accepts inline JSON, "@file", or "@-" for stdin. An empty flag
// sends no parameter at all.
func readParam(raw string, stdin io.Reader) (json.RawMessage, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}

	data := []byte(raw)
	if strings.HasPrefix(raw, "@") {
		path := strings.TrimPrefix(raw, "@")
		var err error
		if path == "-" {
			data, err = io.ReadAll(stdin)
		} else {
			data, err = os.ReadFile(path)
		}
		if err != nil {
			return nil, fmt.Errorf("read parameter %s: %w", path, err)
		}
	}

	if !json.Valid(data) {
		return nil, errors.New("parameter is not valid JSON")
	}
	return json.RawMessage(bytes.TrimSpace(data)), nil
}

func printJSON(w io.Writer, raw json.RawMessage) error {
	if len(raw) == 0 {
		_, err := fmt.Fprintln(w, "null")
		return err
	}
	var buf bytes.Buffer
	if err := json.Indent(&buf, raw, "", "  "); err != nil {
		return fmt.Errorf("format result: %w", err)
	}
	buf.WriteByte('\n')
	_, err := buf.WriteTo(w)
	return err
}

func printHistory(ctx context.Context, databaseURL string, limit int, w io.Writer) error {
	if databaseURL == "" {
		return errors.New("DATABASE_URL is required for -history")
	}
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return fmt.Errorf("create Postgres pool: %w", err)
	}
	defer pool.Close()

	store, err := journal.NewStore(ctx, pool)
	if err != nil {
		return err
	}
	entries, err := store.Recent(ctx, limit)
	if err != nil {
		return err
	}
	return writeHistory(w, entries)
}

func writeHistory(w io.Writer, entries []journal.Entry) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "FINISHED\tOBJECT\tMETHOD\tOUTCOME\tDURATION\tCALL ID")
	for _, e := range entries {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
			e.FinishedAt.UTC().Format(time.RFC3339),
			e.Object,
			e.Method,
			e.Outcome,
			time.Duration(e.DurationMS)*time.Millisecond,
			e.CallID,
		)
	}
	return tw.Flush()
}
