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

// Package token holds the OAuth2 access token handed to us by callers.
// The token is owned by the caller for the duration of one call; it is
// never persisted and never rendered in logs.
package token

import (
	"encoding/json"
	"errors"
	"log/slog"

	"golang.org/x/net/http/httpguts"
	"golang.org/x/oauth2"
)

const redacted = "[redacted]"

// ErrInvalidHeaderValue is returned when the token cannot be carried in an
// HTTP header value.
var ErrInvalidHeaderValue = errors.New("failed to parse header value")

// AccessToken is an opaque bearer credential.
type AccessToken struct {
	tok *oauth2.Token
}

// New wraps a raw bearer secret.
func New(secret string) AccessToken {
	return AccessToken{tok: &oauth2.Token{AccessToken: secret, TokenType: "Bearer"}}
}

// Secret returns the raw token value. Callers must not log it.
func (a AccessToken) Secret() string {
	if a.tok == nil {
		return ""
	}
	return a.tok.AccessToken
}

// Empty reports whether no usable token was supplied.
func (a AccessToken) Empty() bool {
	return a.tok == nil || !a.tok.Valid()
}

// AuthorizationHeader renders the Authorization header value ("Bearer <secret>").
func (a AccessToken) AuthorizationHeader() (string, error) {
	if a.tok == nil {
		return "", ErrInvalidHeaderValue
	}
	value := a.tok.Type() + " " + a.tok.AccessToken
	if !httpguts.ValidHeaderFieldValue(value) {
		return "", ErrInvalidHeaderValue
	}
	return value, nil
}

// String never reveals the secret.
func (a AccessToken) String() string { return redacted }

// GoString never reveals the secret, even under %#v.
func (a AccessToken) GoString() string { return redacted }

// LogValue implements slog.LogValuer.
func (a AccessToken) LogValue() slog.Value { return slog.StringValue(redacted) }

// MarshalJSON emits the raw secret; the wire format carries tokens as plain strings.
func (a AccessToken) MarshalJSON() ([]byte, error) {
	return json.Marshal(a.Secret())
}

// UnmarshalJSON accepts a JSON string.
func (a *AccessToken) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	*a = New(s)
	return nil
}
