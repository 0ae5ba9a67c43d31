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
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ErrNoReply is returned when the server did not answer in time.
var ErrNoReply = errors.New("no reply")

// Client issues calls to a Server over Redis.
type Client struct {
	rdb     Broker
	queue   string
	timeout time.Duration
}

// NewClient creates a caller. A zero timeout waits one minute.
func NewClient(rdb Broker, queue string, timeout time.Duration) *Client {
	if queue == "" {
		queue = DefaultQueue
	}
	if timeout <= 0 {
		timeout = time.Minute
	}
	return &Client{rdb: rdb, queue: queue, timeout: timeout}
}

// Call publishes one call and blocks until its reply arrives. A failed call
// is returned as an *apperr.Error carrying the remote kind.
func (c *Client) Call(ctx context.Context, object, method string, param json.RawMessage) (json.RawMessage, error) {
	id := uuid.NewString()
	call := Call{
		ID:      id,
		Object:  object,
		Method:  method,
		Param:   param,
		ReplyTo: replyPrefix + id,
	}

	data, err := json.Marshal(call)
	if err != nil {
		return nil, fmt.Errorf("marshal call: %w", err)
	}
	if err := c.rdb.LPush(ctx, c.queue, data).Err(); err != nil {
		return nil, fmt.Errorf("redis LPUSH: %w", err)
	}

	res, err := c.rdb.BRPop(ctx, c.timeout, call.ReplyTo).Result()
	if errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("call %s after %s: %w", id, c.timeout, ErrNoReply)
	}
	if err != nil {
		return nil, fmt.Errorf("redis BRPOP: %w", err)
	}
	if len(res) != 2 {
		return nil, fmt.Errorf("redis BRPOP: unexpected reply %v", res)
	}

	var reply Reply
	if err := json.Unmarshal([]byte(res[1]), &reply); err != nil {
		return nil, fmt.Errorf("decode reply: %w", err)
	}
	if reply.Error != nil {
		return nil, reply.Error.Err()
	}
	return reply.Result, nil
}
