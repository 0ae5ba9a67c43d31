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

// Package config loads configuration from config.yaml and environment
// variables. Environment variables override the file; the file is optional.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultPath is read when CONFIG_PATH is unset.
const DefaultPath = "/app/config/config.yaml"

// Config holds all configuration for the emailer service.
type Config struct {
	// Registry name of the emailer object.
	ObjectName string

	// Redis IPC transport
	RedisURL       string
	IPCQueue       string
	IPCMaxInFlight int64
	IPCReplyTTL    time.Duration

	// HTTP front-end (0 disables it)
	HTTPPort int

	// Call journal (empty URL disables it)
	DatabaseURL      string
	JournalRetention time.Duration

	// Logging
	LogLevel          string
	SentryDSN         string
	SentryEnvironment string

	// Outbound
	HTTPTimeout     time.Duration
	SMTPDialTimeout time.Duration
	SMTPHelloName   string
}

// rawConfig mirrors the YAML structure for unmarshalling.
type rawConfig struct {
	ObjectName string `yaml:"object_name"`
	Redis      struct {
		URL         string `yaml:"url"`
		Queue       string `yaml:"queue"`
		MaxInFlight int64  `yaml:"max_in_flight"`
		ReplyTTL    string `yaml:"reply_ttl"`
	} `yaml:"redis"`
	HTTP struct {
		Port    *int   `yaml:"port"`
		Timeout string `yaml:"timeout"`
	} `yaml:"http"`
	Database struct {
		URL              string `yaml:"url"`
		JournalRetention string `yaml:"journal_retention"`
	} `yaml:"database"`
	Logging struct {
		Level             string `yaml:"level"`
		SentryDSN         string `yaml:"sentry_dsn"`
		SentryEnvironment string `yaml:"sentry_environment"`
	} `yaml:"logging"`
	SMTP struct {
		DialTimeout string `yaml:"dial_timeout"`
		HelloName   string `yaml:"hello_name"`
	} `yaml:"smtp"`
}

func defaults() *Config {
	return &Config{
		ObjectName:        "applications.email",
		RedisURL:          "redis://localhost:6379/0",
		IPCQueue:          "emailer:calls",
		IPCMaxInFlight:    16,
		IPCReplyTTL:       5 * time.Minute,
		HTTPPort:          8080,
		JournalRetention:  30 * 24 * time.Hour,
		LogLevel:          "info",
		SentryEnvironment: "production",
		HTTPTimeout:       30 * time.Second,
		SMTPDialTimeout:   30 * time.Second,
		SMTPHelloName:     "localhost",
	}
}

// Load reads CONFIG_PATH (with ${VAR} expansion), then applies environment
// overrides and validates the result.
func Load() (*Config, error) {
	cfg := defaults()
	var errs []error

	configPath := envOrDefault("CONFIG_PATH", DefaultPath)
	data, err := os.ReadFile(configPath)
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("read config file %s: %w", configPath, err)
	default:
		expanded := os.ExpandEnv(string(data))
		var raw rawConfig
		if err := yaml.Unmarshal([]byte(expanded), &raw); err != nil {
			return nil, fmt.Errorf("parse config YAML: %w", err)
		}
		errs = append(errs, cfg.applyFile(&raw)...)
	}

	errs = append(errs, cfg.applyEnv()...)
	errs = append(errs, cfg.validate()...)
	if err := errors.Join(errs...); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func (c *Config) applyFile(raw *rawConfig) []error {
	var errs []error
	setString(&c.ObjectName, raw.ObjectName)
	setString(&c.RedisURL, raw.Redis.URL)
	setString(&c.IPCQueue, raw.Redis.Queue)
	if raw.Redis.MaxInFlight != 0 {
		c.IPCMaxInFlight = raw.Redis.MaxInFlight
	}
	if raw.HTTP.Port != nil {
		c.HTTPPort = *raw.HTTP.Port
	}
	setString(&c.DatabaseURL, raw.Database.URL)
	setString(&c.LogLevel, raw.Logging.Level)
	setString(&c.SentryDSN, raw.Logging.SentryDSN)
	setString(&c.SentryEnvironment, raw.Logging.SentryEnvironment)
	setString(&c.SMTPHelloName, raw.SMTP.HelloName)

	errs = appendErr(errs, setDuration(&c.IPCReplyTTL, "redis.reply_ttl", raw.Redis.ReplyTTL))
	errs = appendErr(errs, setDuration(&c.HTTPTimeout, "http.timeout", raw.HTTP.Timeout))
	errs = appendErr(errs, setDuration(&c.JournalRetention, "database.journal_retention", raw.Database.JournalRetention))
	errs = appendErr(errs, setDuration(&c.SMTPDialTimeout, "smtp.dial_timeout", raw.SMTP.DialTimeout))
	return errs
}

func (c *Config) applyEnv() []error {
	var errs []error
	setString(&c.ObjectName, os.Getenv("OBJECT_NAME"))
	setString(&c.RedisURL, os.Getenv("REDIS_URL"))
	setString(&c.IPCQueue, os.Getenv("IPC_QUEUE"))
	setString(&c.DatabaseURL, os.Getenv("DATABASE_URL"))
	setString(&c.LogLevel, os.Getenv("LOG_LEVEL"))
	setString(&c.SentryDSN, os.Getenv("SENTRY_DSN"))
	setString(&c.SentryEnvironment, os.Getenv("SENTRY_ENVIRONMENT"))
	setString(&c.SMTPHelloName, os.Getenv("SMTP_HELLO_NAME"))

	if v := os.Getenv("IPC_MAX_IN_FLIGHT"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			errs = append(errs, fmt.Errorf("IPC_MAX_IN_FLIGHT: %w", err))
		} else {
			c.IPCMaxInFlight = n
		}
	}
	if v := os.Getenv("HTTP_PORT"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("HTTP_PORT: %w", err))
		} else {
			c.HTTPPort = n
		}
	}

	errs = appendErr(errs, setDuration(&c.IPCReplyTTL, "IPC_REPLY_TTL", os.Getenv("IPC_REPLY_TTL")))
	errs = appendErr(errs, setDuration(&c.HTTPTimeout, "HTTP_TIMEOUT", os.Getenv("HTTP_TIMEOUT")))
	errs = appendErr(errs, setDuration(&c.JournalRetention, "JOURNAL_RETENTION", os.Getenv("JOURNAL_RETENTION")))
	errs = appendErr(errs, setDuration(&c.SMTPDialTimeout, "SMTP_DIAL_TIMEOUT", os.Getenv("SMTP_DIAL_TIMEOUT")))
	return errs
}

func (c *Config) validate() []error {
	var errs []error
	if strings.TrimSpace(c.ObjectName) == "" {
		errs = append(errs, errors.New("object name must not be empty"))
	}
	if strings.TrimSpace(c.RedisURL) == "" {
		errs = append(errs, errors.New("redis URL must not be empty"))
	}
	if c.IPCMaxInFlight < 1 {
		errs = append(errs, fmt.Errorf("max in-flight calls must be at least 1, got %d", c.IPCMaxInFlight))
	}
	if c.HTTPPort < 0 || c.HTTPPort > 65535 {
		errs = append(errs, fmt.Errorf("http port out of range: %d", c.HTTPPort))
	}
	for name, d := range map[string]time.Duration{
		"reply TTL":         c.IPCReplyTTL,
		"http timeout":      c.HTTPTimeout,
		"smtp dial timeout": c.SMTPDialTimeout,
	} {
		if d <= 0 {
			errs = append(errs, fmt.Errorf("%s must be positive, got %s", name, d))
		}
	}
	return errs
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func setString(dst *string, v string) {
	if strings.TrimSpace(v) != "" {
		*dst = strings.TrimSpace(v)
	}
}

func setDuration(dst *time.Duration, name, v string) error {
	if strings.TrimSpace(v) == "" {
		return nil
	}
	d, err := time.ParseDuration(strings.TrimSpace(v))
	if err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	*dst = d
	return nil
}

func appendErr(errs []error, err error) []error {
	if err != nil {
		return append(errs, err)
	}
	return errs
}
