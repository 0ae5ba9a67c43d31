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

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

var envKeys = []string{
	"OBJECT_NAME", "REDIS_URL", "IPC_QUEUE", "IPC_MAX_IN_FLIGHT", "IPC_REPLY_TTL",
	"HTTP_PORT", "DATABASE_URL", "JOURNAL_RETENTION", "LOG_LEVEL", "SENTRY_DSN",
	"SENTRY_ENVIRONMENT", "HTTP_TIMEOUT", "SMTP_DIAL_TIMEOUT", "SMTP_HELLO_NAME",
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range envKeys {
		t.Setenv(k, "")
	}
}

func writeConfig(t *testing.T, body string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	t.Setenv("CONFIG_PATH", path)
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	clearEnv(t)
	t.Setenv("CONFIG_PATH", filepath.Join(t.TempDir(), "absent.yaml"))

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, "applications.email", cfg.ObjectName)
	require.Equal(t, "redis://localhost:6379/0", cfg.RedisURL)
	require.Equal(t, int64(16), cfg.IPCMaxInFlight)
	require.Equal(t, 8080, cfg.HTTPPort)
	require.Empty(t, cfg.DatabaseURL)
	require.Equal(t, 30*time.Second, cfg.HTTPTimeout)
}

func TestLoad_FileWithExpansion(t *testing.T) {
	clearEnv(t)
	t.Setenv("EMAILER_REDIS_PASSWORD", "hunter2")
	writeConfig(t, `
object_name: applications.mail
redis:
  url: redis://:${EMAILER_REDIS_PASSWORD}@redis:6379/1
  queue: mail:calls
  max_in_flight: 4
  reply_ttl: 90s
http:
  port: 0
  timeout: 10s
database:
  url: postgres://emailer@db/emailer
  journal_retention: 168h
logging:
  level: debug
smtp:
  dial_timeout: 5s
  hello_name: mail.example.com
`)

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, "applications.mail", cfg.ObjectName)
	require.Equal(t, "redis://:hunter2@redis:6379/1", cfg.RedisURL)
	require.Equal(t, "mail:calls", cfg.IPCQueue)
	require.Equal(t, int64(4), cfg.IPCMaxInFlight)
	require.Equal(t, 90*time.Second, cfg.IPCReplyTTL)
	require.Equal(t, 0, cfg.HTTPPort)
	require.Equal(t, 10*time.Second, cfg.HTTPTimeout)
	require.Equal(t, "postgres://emailer@db/emailer", cfg.DatabaseURL)
	require.Equal(t, 168*time.Hour, cfg.JournalRetention)
	require.Equal(t, "debug", cfg.LogLevel)
	require.Equal(t, 5*time.Second, cfg.SMTPDialTimeout)
	require.Equal(t, "mail.example.com", cfg.SMTPHelloName)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	clearEnv(t)
	writeConfig(t, "redis:\n  queue: from-file\n  max_in_flight: 4\n")
	t.Setenv("IPC_QUEUE", "from-env")
	t.Setenv("IPC_MAX_IN_FLIGHT", "32")
	t.Setenv("SMTP_DIAL_TIMEOUT", "2s")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, "from-env", cfg.IPCQueue)
	require.Equal(t, int64(32), cfg.IPCMaxInFlight)
	require.Equal(t, 2*time.Second, cfg.SMTPDialTimeout)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]string
		file    string
		wantErr string
	}{
		{name: "bad duration", env: map[string]string{"HTTP_TIMEOUT": "soon"}, wantErr: "HTTP_TIMEOUT"},
		{name: "bad port", env: map[string]string{"HTTP_PORT": "http"}, wantErr: "HTTP_PORT"},
		{name: "port out of range", env: map[string]string{"HTTP_PORT": "70000"}, wantErr: "http port out of range"},
		{name: "zero in flight", env: map[string]string{"IPC_MAX_IN_FLIGHT": "0"}, wantErr: "max in-flight"},
		{name: "negative reply ttl", file: "redis:\n  reply_ttl: -1s\n", wantErr: "reply TTL must be positive"},
		{name: "broken yaml", file: "redis: [", wantErr: "parse config YAML"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			if tt.file != "" {
				writeConfig(t, tt.file)
			} else {
				t.Setenv("CONFIG_PATH", filepath.Join(t.TempDir(), "absent.yaml"))
			}
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			_, err := Load()
			require.ErrorContains(t, err, tt.wantErr)
		})
	}
}
