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
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/bcem/emailer/internal/apperr"
)

// fakeBroker is an in-memory list store with just enough Redis semantics
// for the IPC transport.
type fakeBroker struct {
	mu      sync.Mutex
	lists   map[string][]string
	seen    map[string]bool
	expires map[string]time.Duration
	pingErr error
}

func newFakeBroker() *fakeBroker {
	return &fakeBroker{
		lists:   make(map[string][]string),
		seen:    make(map[string]bool),
		expires: make(map[string]time.Duration),
	}
}

func (b *fakeBroker) LPush(_ context.Context, key string, values ...interface{}) *redis.IntCmd {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, v := range values {
		var s string
		switch val := v.(type) {
		case []byte:
			s = string(val)
		case string:
			s = val
		default:
			s = fmt.Sprint(val)
		}
		b.lists[key] = append([]string{s}, b.lists[key]...)
	}
	return redis.NewIntResult(int64(len(b.lists[key])), nil)
}

func (b *fakeBroker) BRPop(ctx context.Context, timeout time.Duration, keys ...string) *redis.StringSliceCmd {
	deadline := time.After(timeout)
	for {
		b.mu.Lock()
		for _, key := range keys {
			if l := b.lists[key]; len(l) > 0 {
				v := l[len(l)-1]
				b.lists[key] = l[:len(l)-1]
				b.mu.Unlock()
				return redis.NewStringSliceResult([]string{key, v}, nil)
			}
		}
		b.mu.Unlock()

		select {
		case <-ctx.Done():
			return redis.NewStringSliceResult(nil, ctx.Err())
		case <-deadline:
			return redis.NewStringSliceResult(nil, redis.Nil)
		case <-time.After(2 * time.Millisecond):
		}
	}
}

func (b *fakeBroker) Expire(_ context.Context, key string, expiration time.Duration) *redis.BoolCmd {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.expires[key] = expiration
	return redis.NewBoolResult(true, nil)
}

func (b *fakeBroker) SetNX(_ context.Context, key string, _ interface{}, _ time.Duration) *redis.BoolCmd {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.seen[key] {
		return redis.NewBoolResult(false, nil)
	}
	b.seen[key] = true
	return redis.NewBoolResult(true, nil)
}

func (b *fakeBroker) Ping(context.Context) *redis.StatusCmd {
	if b.pingErr != nil {
		return redis.NewStatusResult("", b.pingErr)
	}
	return redis.NewStatusResult("PONG", nil)
}

func (b *fakeBroker) expiry(key string) time.Duration {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.expires[key]
}

// echoObject returns its parameter for "echo", fails for "fail" and
// panics for "panic".
type echoObject struct {
	mu    sync.Mutex
	calls int
}

func (o *echoObject) RemoteCall(_ context.Context, method string, param json.RawMessage) (any, error) {
	o.mu.Lock()
	o.calls++
	o.mu.Unlock()

	switch method {
	case "echo":
		var v any
		if err := json.Unmarshal(param, &v); err != nil {
			return nil, apperr.InvalidParameter(err.Error())
		}
		return v, nil
	case "fail":
		return nil, apperr.MailSend(errors.New("535 5.7.3 Authentication unsuccessful"))
	case "plain":
		return nil, errors.New("unclassified")
	case "unencodable":
		return make(chan int), nil
	case "panic":
		panic("boom")
	default:
		return nil, apperr.UnsupportedMethod(method)
	}
}

func (o *echoObject) count() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.calls
}

type memRecorder struct {
	mu       sync.Mutex
	outcomes []Outcome
	err      error
}

func (r *memRecorder) Record(_ context.Context, o Outcome) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.outcomes = append(r.outcomes, o)
	return r.err
}
