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

// Package ipc is the host side of the shared-object registry: objects are
// registered under a name and invoked with framed calls arriving over Redis
// or HTTP. Every call produces exactly one reply, carrying either a JSON
// result or a classified error.
package ipc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/bcem/emailer/internal/apperr"
	"github.com/bcem/emailer/internal/logging"
)

// KindUnknownObject is reported when a call names an object that was never
// registered.
const KindUnknownObject apperr.Kind = "UnknownObject"

// SharedObject is anything that can be published in the registry.
type SharedObject interface {
	RemoteCall(ctx context.Context, method string, param json.RawMessage) (any, error)
}

// Call is one framed invocation.
type Call struct {
	ID      string          `json:"id"`
	Object  string          `json:"object"`
	Method  string          `json:"method"`
	Param   json.RawMessage `json:"param,omitempty"`
	ReplyTo string          `json:"reply_to,omitempty"`
}

// Reply answers a Call. Exactly one of Result and Error is set.
type Reply struct {
	ID     string          `json:"id"`
	Result json.RawMessage `json:"result,omitempty"`
	Error  *ReplyError     `json:"error,omitempty"`
}

// ReplyError is the wire form of a failed call.
type ReplyError struct {
	Kind    apperr.Kind `json:"kind"`
	Message string      `json:"message"`
}

// Err converts the wire form back to an *apperr.Error.
func (e *ReplyError) Err() error {
	if e == nil {
		return nil
	}
	return apperr.New(e.Kind, e.Message)
}

// Outcome summarizes a completed call for a Recorder. Parameters and
// results are never included.
type Outcome struct {
	CallID     string
	Object     string
	Method     string
	Kind       apperr.Kind // empty on success
	Elapsed    time.Duration
	FinishedAt time.Time
}

// Recorder receives one Outcome per completed call.
type Recorder interface {
	Record(ctx context.Context, o Outcome) error
}

// ErrDuplicateObject is returned when a name is registered twice.
var ErrDuplicateObject = errors.New("object already registered")

// Registry routes calls to registered objects. It is safe for concurrent use.
type Registry struct {
	mu       sync.RWMutex
	objects  map[string]SharedObject
	recorder Recorder
}

// RegistryOption configures a Registry.
type RegistryOption func(*Registry)

// WithRecorder attaches a call journal.
func WithRecorder(rec Recorder) RegistryOption {
	return func(r *Registry) { r.recorder = rec }
}

// NewRegistry creates an empty registry.
func NewRegistry(opts ...RegistryOption) *Registry {
	r := &Registry{objects: make(map[string]SharedObject)}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register publishes obj under name.
func (r *Registry) Register(name string, obj SharedObject) error {
	if name == "" || obj == nil {
		return fmt.Errorf("register %q: name and object are required", name)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.objects[name]; exists {
		return fmt.Errorf("register %q: %w", name, ErrDuplicateObject)
	}
	r.objects[name] = obj
	slog.Info("shared object registered", "object", name)
	return nil
}

// Names lists the registered objects in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.objects))
	for name := range r.objects {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (r *Registry) lookup(name string) (SharedObject, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	obj, ok := r.objects[name]
	return obj, ok
}

// Call invokes the target object and always returns a reply.
func (r *Registry) Call(ctx context.Context, call Call) Reply {
	ctx = logging.WithCall(ctx, call.ID, call.Object, call.Method)
	start := time.Now()

	reply := Reply{ID: call.ID}
	if obj, ok := r.lookup(call.Object); !ok {
		reply.Error = &ReplyError{Kind: KindUnknownObject, Message: fmt.Sprintf("unknown object %q", call.Object)}
		slog.WarnContext(ctx, "call for unknown object")
	} else {
		reply = invoke(ctx, obj, call)
	}

	if r.recorder != nil {
		o := Outcome{
			CallID:     call.ID,
			Object:     call.Object,
			Method:     call.Method,
			Elapsed:    time.Since(start),
			FinishedAt: time.Now().UTC(),
		}
		if reply.Error != nil {
			o.Kind = reply.Error.Kind
		}
		if err := r.recorder.Record(ctx, o); err != nil {
			slog.WarnContext(ctx, "failed to journal call", "error", err)
		}
	}
	return reply
}

func invoke(ctx context.Context, obj SharedObject, call Call) (reply Reply) {
	reply.ID = call.ID
	defer func() {
		if p := recover(); p != nil {
			reply.Result = nil
			reply.Error = &ReplyError{Kind: apperr.KindInternal, Message: fmt.Sprintf("panic: %v", p)}
			slog.ErrorContext(ctx, "shared object panicked", "panic", p)
		}
	}()

	result, err := obj.RemoteCall(ctx, call.Method, call.Param)
	if err != nil {
		e := apperr.From(err)
		reply.Error = &ReplyError{Kind: e.Kind, Message: e.Error()}
		return reply
	}

	data, err := json.Marshal(result)
	if err != nil {
		reply.Error = &ReplyError{Kind: apperr.KindInternal, Message: fmt.Sprintf("encode result: %v", err)}
		return reply
	}
	reply.Result = data
	return reply
}
