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

package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"
)

func decode(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	return rec
}

func TestNew_InjectsCallAttributes(t *testing.T) {
	var buf bytes.Buffer
	logger, flush := New(Config{Level: "debug", Output: &buf})
	defer flush()

	ctx := WithCall(context.Background(), "call-1", "applications.email", "sendMail")
	logger.InfoContext(ctx, "email sent", "recipients", 2)

	rec := decode(t, &buf)
	require.Equal(t, "email sent", rec["msg"])
	require.Equal(t, "call-1", rec["call_id"])
	require.Equal(t, "applications.email", rec["object"])
	require.Equal(t, "sendMail", rec["method"])
	require.EqualValues(t, 2, rec["recipients"])
}

func TestNew_NoCallInContext(t *testing.T) {
	var buf bytes.Buffer
	logger, _ := New(Config{Output: &buf})

	logger.Info("starting")

	rec := decode(t, &buf)
	require.NotContains(t, rec, "call_id")
	require.NotContains(t, rec, "method")
}

func TestNew_LevelFilters(t *testing.T) {
	var buf bytes.Buffer
	logger, _ := New(Config{Level: "warn", Output: &buf})

	logger.Info("hidden")
	require.Zero(t, buf.Len())

	logger.Warn("shown")
	require.Contains(t, buf.String(), "shown")
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    slog.Level
		wantErr bool
	}{
		{in: "", want: slog.LevelInfo},
		{in: "DEBUG", want: slog.LevelDebug},
		{in: "warning", want: slog.LevelWarn},
		{in: "error", want: slog.LevelError},
		{in: "verbose", want: slog.LevelInfo, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseLevel(tt.in)
			require.Equal(t, tt.want, got)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
		})
	}
}

func TestMultiHandler_FansOutByLevel(t *testing.T) {
	var all, errs bytes.Buffer
	h := newMultiHandler(
		slog.NewJSONHandler(&all, &slog.HandlerOptions{Level: slog.LevelDebug}),
		slog.NewJSONHandler(&errs, &slog.HandlerOptions{Level: slog.LevelError}),
	)
	logger := slog.New(h).With("component", "test")

	logger.Info("info")
	logger.Error("failure")

	require.Contains(t, all.String(), `"msg":"info"`)
	require.Contains(t, all.String(), `"msg":"failure"`)
	require.NotContains(t, errs.String(), `"msg":"info"`)
	require.Contains(t, errs.String(), `"component":"test"`)
}
