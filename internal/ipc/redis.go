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

package ipc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/semaphore"
)

const (
	// DefaultQueue is the list calls are pushed onto.
	DefaultQueue = "emailer:calls"
	// DefaultReplyTTL bounds how long an unread reply list survives.
	DefaultReplyTTL = 5 * time.Minute

	replyPrefix  = "emailer:reply:"
	pollTimeout  = 5 * time.Second
	errorBackoff = time.Second
)

// Broker is the subset of the Redis client used by the IPC transport.
// *redis.Client satisfies it.
type Broker interface {
	LPush(ctx context.Context, key string, values ...interface{}) *redis.IntCmd
	BRPop(ctx context.Context, timeout time.Duration, keys ...string) *redis.StringSliceCmd
	Expire(ctx context.Context, key string, expiration time.Duration) *redis.BoolCmd
	SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.BoolCmd
	Ping(ctx context.Context) *redis.StatusCmd
}

// ServerConfig configures the Redis consumer.
type ServerConfig struct {
	Queue       string
	MaxInFlight int64
	ReplyTTL    time.Duration
	Dedup       *Dedup
}

// Server consumes calls from a Redis list and pushes each reply onto the
// list named by the call's ReplyTo.
type Server struct {
	rdb      Broker
	registry *Registry
	queue    string
	replyTTL time.Duration
	sem      *semaphore.Weighted
	dedup    *Dedup
	wg       sync.WaitGroup
}

// NewServer creates a consumer for reg.
func NewServer(rdb Broker, reg *Registry, cfg ServerConfig) *Server {
	if cfg.Queue == "" {
		cfg.Queue = DefaultQueue
	}
	if cfg.MaxInFlight <= 0 {
		cfg.MaxInFlight = 16
	}
	if cfg.ReplyTTL <= 0 {
		cfg.ReplyTTL = DefaultReplyTTL
	}
	return &Server{
		rdb:      rdb,
		registry: reg,
		queue:    cfg.Queue,
		replyTTL: cfg.ReplyTTL,
		sem:      semaphore.NewWeighted(cfg.MaxInFlight),
		dedup:    cfg.Dedup,
	}
}

// Run consumes until ctx is cancelled, then waits for in-flight calls to
// finish and deliver their replies.
func (s *Server) Run(ctx context.Context) error {
	slog.Info("ipc server consuming", "queue", s.queue)
	defer s.wg.Wait()

	for {
		if err := s.sem.Acquire(ctx, 1); err != nil {
			return nil
		}

		res, err := s.rdb.BRPop(ctx, pollTimeout, s.queue).Result()
		if err != nil {
			s.sem.Release(1)
			if ctx.Err() != nil {
				return nil
			}
			if errors.Is(err, redis.Nil) {
				continue
			}
			slog.Error("ipc BRPOP failed", "queue", s.queue, "error", err)
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(errorBackoff):
			}
			continue
		}
		if len(res) != 2 {
			s.sem.Release(1)
			continue
		}

		s.wg.Add(1)
		go func(raw string) {
			defer s.wg.Done()
			defer s.sem.Release(1)
			s.handle(context.WithoutCancel(ctx), raw)
		}(res[1])
	}
}

func (s *Server) handle(ctx context.Context, raw string) {
	var call Call
	if err := json.Unmarshal([]byte(raw), &call); err != nil {
		slog.Warn("dropping malformed call", "bytes", len(raw), "error", err)
		return
	}
	if call.ID == "" {
		slog.Warn("dropping call without id", "object", call.Object, "method", call.Method)
		return
	}

	if s.dedup != nil {
		isNew, err := s.dedup.IsNew(ctx, call.ID)
		if err != nil {
			slog.Warn("dedup check failed, proceeding", "call_id", call.ID, "error", err)
		} else if !isNew {
			slog.Info("skipping redelivered call", "call_id", call.ID)
			return
		}
	}

	reply := s.registry.Call(ctx, call)
	if call.ReplyTo == "" {
		return
	}
	if err := s.deliver(ctx, call.ReplyTo, reply); err != nil {
		slog.Error("failed to deliver reply", "call_id", call.ID, "error", err)
	}
}

func (s *Server) deliver(ctx context.Context, key string, reply Reply) error {
	data, err := json.Marshal(reply)
	if err != nil {
		return fmt.Errorf("marshal reply: %w", err)
	}
	if err := s.rdb.LPush(ctx, key, data).Err(); err != nil {
		return fmt.Errorf("redis LPUSH: %w", err)
	}
	if err := s.rdb.Expire(ctx, key, s.replyTTL).Err(); err != nil {
		return fmt.Errorf("redis EXPIRE: %w", err)
	}
	return nil
}

// Ping checks the Redis connection.
func (s *Server) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	return s.rdb.Ping(ctx).Err()
}
