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

// Package transporttest provides a canned transport.Interface for tests.
package transporttest

import (
	"context"
	"net/http"
	"sync"

	"github.com/bcem/emailer/internal/transport"
)

// Stub returns the same response (or error) for every request and records
// what it was asked to do. It is safe for concurrent use.
type Stub struct {
	mu       sync.Mutex
	response *transport.Response
	err      error
	requests []*transport.Request
}

// New returns a stub answering 200 OK with no body.
func New() *Stub {
	return &Stub{response: &transport.Response{StatusCode: http.StatusOK, Header: http.Header{}}}
}

// WithBody makes the stub answer 200 OK with body.
func (s *Stub) WithBody(body string) *Stub {
	return s.WithResponse(&transport.Response{
		StatusCode: http.StatusOK,
		Header:     http.Header{"Content-Type": []string{"application/json"}},
		Body:       []byte(body),
	})
}

// WithResponse makes the stub answer with resp.
func (s *Stub) WithResponse(resp *transport.Response) *Stub {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.response = resp
	s.err = nil
	return s
}

// WithError makes the stub fail every request with err.
func (s *Stub) WithError(err error) *Stub {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = err
	return s
}

// Perform implements transport.Interface.
func (s *Stub) Perform(_ context.Context, req *transport.Request) (*transport.Response, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.requests = append(s.requests, req)
	if s.err != nil {
		return nil, s.err
	}
	resp := *s.response
	return &resp, nil
}

// Calls reports how many requests were performed.
func (s *Stub) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.requests)
}

// LastRequest returns the most recent request, or nil.
func (s *Stub) LastRequest() *transport.Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.requests) == 0 {
		return nil
	}
	return s.requests[len(s.requests)-1]
}
