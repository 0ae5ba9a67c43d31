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

// Package transport performs single HTTP requests on behalf of the profile
// resolver. Connection reuse, TLS and timeouts live here so that callers
// only see one request in and one response out.
package transport

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// maxBodySize caps how much of a response body is buffered.
const maxBodySize = 4 << 20

// Request is one outbound HTTP request.
type Request struct {
	URL    *url.URL
	Method string
	Header http.Header
	Body   []byte
}

// Response is the buffered result of a request. Body is nil when the
// server sent no body at all.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// Interface performs one HTTP request. Implementations must be safe for
// concurrent use by many callers.
type Interface interface {
	Perform(ctx context.Context, req *Request) (*Response, error)
}

// Option configures the HTTP transport.
type Option func(*HTTP)

// WithHTTPClient replaces the underlying client, e.g. for httptest servers.
func WithHTTPClient(client *http.Client) Option {
	return func(t *HTTP) {
		if client != nil {
			t.client = client
		}
	}
}

// WithTimeout bounds every request end to end. Zero means no timeout.
func WithTimeout(d time.Duration) Option {
	return func(t *HTTP) {
		t.timeout = d
	}
}

// HTTP is the production Interface backed by net/http.
type HTTP struct {
	client  *http.Client
	timeout time.Duration
}

// NewHTTP creates a transport with a pooled client whose round trips are
// logged at debug level.
func NewHTTP(opts ...Option) *HTTP {
	t := &HTTP{
		client: &http.Client{Transport: &loggingTransport{base: http.DefaultTransport}},
	}
	for _, opt := range opts {
		opt(t)
	}
	if t.timeout > 0 && t.client.Timeout == 0 {
		c := *t.client
		c.Timeout = t.timeout
		t.client = &c
	}
	return t
}

// Perform sends req and buffers the response body.
func (t *HTTP) Perform(ctx context.Context, req *Request) (*Response, error) {
	if req == nil || req.URL == nil {
		return nil, fmt.Errorf("build request: missing URL")
	}

	var body io.Reader
	if req.Body != nil {
		body = bytes.NewReader(req.Body)
	}

	method := req.Method
	if method == "" {
		method = http.MethodGet
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, req.URL.String(), body)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	for key, values := range req.Header {
		for _, v := range values {
			httpReq.Header.Add(key, v)
		}
	}

	resp, err := t.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("perform request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}
	if len(data) == 0 {
		data = nil
	}

	return &Response{
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Body:       data,
	}, nil
}
