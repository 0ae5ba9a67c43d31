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

// Package profile resolves the caller's display name and address from an
// identity provider's "who am I" endpoint. Microsoft and Google payloads are
// both understood and normalized to the same pair.
package profile

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"unicode/utf8"

	"github.com/bcem/emailer/internal/apperr"
	"github.com/bcem/emailer/internal/models"
	"github.com/bcem/emailer/internal/transport"
)

// Resolver fetches and normalizes sender profiles.
type Resolver struct {
	transport transport.Interface
}

// NewResolver creates a resolver that performs its requests through t.
func NewResolver(t transport.Interface) *Resolver {
	return &Resolver{transport: t}
}

// Resolve performs one authenticated GET against the profile endpoint and
// returns the normalized identity. It never retries.
func (r *Resolver) Resolve(ctx context.Context, params models.ProfileParams) (models.Identity, error) {
	auth, err := params.AccessToken.AuthorizationHeader()
	if err != nil {
		return models.Identity{}, apperr.Header(err)
	}

	req := &transport.Request{
		URL:    params.ProfileEndpoint.URL,
		Method: http.MethodGet,
		Header: http.Header{
			"Authorization": []string{auth},
			"Accept":        []string{"application/json"},
		},
	}

	resp, err := r.transport.Perform(ctx, req)
	if err != nil {
		return models.Identity{}, apperr.Transport(err)
	}

	if len(resp.Body) == 0 {
		return models.Identity{}, apperr.New(apperr.KindTransport, "No body")
	}

	body := resp.Body
	if !utf8.Valid(body) {
		// Not text: parse the empty string, which reports a schema mismatch.
		body = []byte{}
	}

	// Status alone never decides the outcome. An error payload fails to parse
	// and the status is kept in the detail.
	p, err := Parse(body)
	if err != nil {
		if resp.StatusCode >= http.StatusBadRequest {
			err = fmt.Errorf("profile endpoint returned HTTP %d: %w", resp.StatusCode, err)
		}
		return models.Identity{}, apperr.Schema(err)
	}

	id := p.Identity()
	slog.InfoContext(ctx, "sender profile resolved",
		"provider", p.Provider(),
		"endpoint_host", params.ProfileEndpoint.Host,
	)
	return id, nil
}
