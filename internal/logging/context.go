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
	"context"
	"log/slog"
)

// Extractor pulls one attribute out of a context.
type Extractor func(ctx context.Context) (slog.Attr, bool)

type callKey struct{}

type callInfo struct {
	id     string
	object string
	method string
}

// WithCall stores the identity of the remote call being served in ctx.
func WithCall(ctx context.Context, id, object, method string) context.Context {
	return context.WithValue(ctx, callKey{}, callInfo{id: id, object: object, method: method})
}

// CallExtractors adds call_id, object and method to records logged with a
// context prepared by WithCall.
func CallExtractors() []Extractor {
	field := func(key string, pick func(callInfo) string) Extractor {
		return func(ctx context.Context) (slog.Attr, bool) {
			ci, ok := ctx.Value(callKey{}).(callInfo)
			if !ok || pick(ci) == "" {
				return slog.Attr{}, false
			}
			return slog.String(key, pick(ci)), true
		}
	}
	return []Extractor{
		field("call_id", func(c callInfo) string { return c.id }),
		field("object", func(c callInfo) string { return c.object }),
		field("method", func(c callInfo) string { return c.method }),
	}
}

// Decorator injects extracted attributes into every record it handles.
type Decorator struct {
	next       slog.Handler
	extractors []Extractor
}

// NewDecorator wraps next. Nil extractors are dropped.
func NewDecorator(next slog.Handler, extractors ...Extractor) slog.Handler {
	clean := make([]Extractor, 0, len(extractors))
	for _, ex := range extractors {
		if ex != nil {
			clean = append(clean, ex)
		}
	}
	return &Decorator{next: next, extractors: clean}
}

func (h *Decorator) Enabled(ctx context.Context, level slog.Level) bool {
	return h.next.Enabled(ctx, level)
}

func (h *Decorator) Handle(ctx context.Context, rec slog.Record) error {
	for _, ex := range h.extractors {
		if attr, ok := ex(ctx); ok {
			rec.AddAttrs(attr)
		}
	}
	return h.next.Handle(ctx, rec)
}

func (h *Decorator) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &Decorator{next: h.next.WithAttrs(attrs), extractors: h.extractors}
}

func (h *Decorator) WithGroup(name string) slog.Handler {
	return &Decorator{next: h.next.WithGroup(name), extractors: h.extractors}
}
