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
	"fmt"
	"time"
)

const (
	// DefaultSeenTTL is how long a delivered call ID is remembered.
	DefaultSeenTTL = 24 * time.Hour

	seenPrefix = "emailer:seen:"
)

// Dedup drops calls whose ID was already delivered, so a redelivered call
// never sends the same message twice.
type Dedup struct {
	rdb Broker
	ttl time.Duration
}

// NewDedup creates a dedup filter backed by Redis.
func NewDedup(rdb Broker, ttl time.Duration) *Dedup {
	if ttl <= 0 {
		ttl = DefaultSeenTTL
	}
	return &Dedup{rdb: rdb, ttl: ttl}
}

// IsNew reports whether id has not been seen, marking it seen atomically.
func (d *Dedup) IsNew(ctx context.Context, id string) (bool, error) {
	set, err := d.rdb.SetNX(ctx, seenPrefix+id, 1, d.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("dedup SETNX: %w", err)
	}
	return set, nil
}
