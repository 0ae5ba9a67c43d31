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
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/bcem/emailer/internal/apperr"
)

func startServer(t *testing.T, b *fakeBroker, obj SharedObject, cfg ServerConfig) {
	t.Helper()
	reg := NewRegistry()
	require.NoError(t, reg.Register("obj", obj))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = NewServer(b, reg, cfg).Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
}

func TestServerClient_RoundTrip(t *testing.T) {
	b := newFakeBroker()
	startServer(t, b, &echoObject{}, ServerConfig{ReplyTTL: time.Minute})

	client := NewClient(b, "", 2*time.Second)
	res, err := client.Call(context.Background(), "obj", "echo", json.RawMessage(`{"sender_name":"A B"}`))
	require.NoError(t, err)
	require.JSONEq(t, `{"sender_name":"A B"}`, string(res))
}

func TestServerClient_ErrorKindPropagates(t *testing.T) {
	b := newFakeBroker()
	startServer(t, b, &echoObject{}, ServerConfig{})

	client := NewClient(b, "", 2*time.Second)
	_, err := client.Call(context.Background(), "obj", "fail", nil)
	require.ErrorIs(t, err, apperr.ErrMailSend)
	require.Contains(t, err.Error(), "Authentication unsuccessful")
}

func TestClient_NoReply(t *testing.T) {
	client := NewClient(newFakeBroker(), "", 20*time.Millisecond)
	_, err := client.Call(context.Background(), "obj", "echo", nil)
	require.ErrorIs(t, err, ErrNoReply)
}

func TestServer_RedeliveredCallRunsOnce(t *testing.T) {
	b := newFakeBroker()
	obj := &echoObject{}

	call, err := json.Marshal(Call{ID: "fixed", Object: "obj", Method: "echo", Param: json.RawMessage(`1`), ReplyTo: "replies"})
	require.NoError(t, err)
	b.LPush(context.Background(), DefaultQueue, call)
	b.LPush(context.Background(), DefaultQueue, call)

	startServer(t, b, obj, ServerConfig{Dedup: NewDedup(b, 0), ReplyTTL: time.Minute})

	res, err := b.BRPop(context.Background(), 2*time.Second, "replies").Result()
	require.NoError(t, err)

	var reply Reply
	require.NoError(t, json.Unmarshal([]byte(res[1]), &reply))
	require.Equal(t, "fixed", reply.ID)
	require.JSONEq(t, `1`, string(reply.Result))

	_, err = b.BRPop(context.Background(), 100*time.Millisecond, "replies").Result()
	require.Error(t, err)
	require.Equal(t, 1, obj.count())
	require.Eventually(t, func() bool {
		return b.expiry("replies") == time.Minute
	}, time.Second, 5*time.Millisecond)
}

func TestServer_DropsMalformedCalls(t *testing.T) {
	b := newFakeBroker()
	obj := &echoObject{}

	b.LPush(context.Background(), DefaultQueue, "not json")
	noID, _ := json.Marshal(Call{Object: "obj", Method: "echo", ReplyTo: "replies"})
	b.LPush(context.Background(), DefaultQueue, noID)

	startServer(t, b, obj, ServerConfig{})

	require.Eventually(t, func() bool {
		b.mu.Lock()
		defer b.mu.Unlock()
		return len(b.lists[DefaultQueue]) == 0
	}, time.Second, 5*time.Millisecond)

	_, err := b.BRPop(context.Background(), 50*time.Millisecond, "replies").Result()
	require.Error(t, err)
	require.Equal(t, 0, obj.count())
}

func TestServer_Ping(t *testing.T) {
	b := newFakeBroker()
	s := NewServer(b, NewRegistry(), ServerConfig{})
	require.NoError(t, s.Ping(context.Background()))

	b.pingErr = errors.New("connection refused")
	require.Error(t, s.Ping(context.Background()))
}

func TestDedup_IsNew(t *testing.T) {
	d := NewDedup(newFakeBroker(), time.Hour)

	first, err := d.IsNew(context.Background(), "abc")
	require.NoError(t, err)
	require.True(t, first)

	again, err := d.IsNew(context.Background(), "abc")
	require.NoError(t, err)
	require.False(t, again)
}
