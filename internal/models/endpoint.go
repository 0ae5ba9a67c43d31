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

package models

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
)

// Endpoint is an absolute http(s) URL, validated when decoded.
type Endpoint struct {
	*url.URL
}

// ParseEndpoint validates raw as an absolute http or https URL.
func ParseEndpoint(raw string) (Endpoint, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return Endpoint{}, fmt.Errorf("invalid URL: %w", err)
	}
	if !u.IsAbs() || u.Host == "" {
		return Endpoint{}, fmt.Errorf("relative URL without a base: %q", raw)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return Endpoint{}, fmt.Errorf("unsupported URL scheme %q", u.Scheme)
	}
	return Endpoint{URL: u}, nil
}

// UnmarshalJSON decodes and validates a URL string.
func (e *Endpoint) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	parsed, err := ParseEndpoint(raw)
	if err != nil {
		return err
	}
	*e = parsed
	return nil
}

// MarshalJSON encodes the URL as a string.
func (e Endpoint) MarshalJSON() ([]byte, error) {
	if e.URL == nil {
		return []byte("null"), nil
	}
	return json.Marshal(e.URL.String())
}
