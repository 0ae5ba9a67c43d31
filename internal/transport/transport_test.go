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

package transport

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func mustParse(t *testing.T, raw string) *url.URL {
	t.Helper()
	u, err := url.Parse(raw)
	require.NoError(t, err)
	return u
}

func TestHTTP_PerformSendsHeadersAndBuffersBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodGet, r.Method)
		require.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"ok":true}`))
	}))
	defer server.Close()

	tr := NewHTTP(WithHTTPClient(server.Client()))
	resp, err := tr.Perform(context.Background(), &Request{
		URL:    mustParse(t, server.URL+"/me"),
		Method: http.MethodGet,
		Header: http.Header{"Authorization": []string{"Bearer tok"}},
	})
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "application/json", resp.Header.Get("Content-Type"))
	require.JSONEq(t, `{"ok":true}`, string(resp.Body))
}

func TestHTTP_EmptyBodyIsNil(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	tr := NewHTTP(WithHTTPClient(server.Client()))
	resp, err := tr.Perform(context.Background(), &Request{URL: mustParse(t, server.URL)})
	require.NoError(t, err)
	require.Equal(t, http.StatusNoContent, resp.StatusCode)
	require.Nil(t, resp.Body)
}

func TestHTTP_PostBodyIsForwarded(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, _ := io.ReadAll(r.Body)
		w.Write(data)
	}))
	defer server.Close()

	tr := NewHTTP(WithHTTPClient(server.Client()))
	resp, err := tr.Perform(context.Background(), &Request{
		URL:    mustParse(t, server.URL),
		Method: http.MethodPost,
		Body:   []byte("echo"),
	})
	require.NoError(t, err)
	require.Equal(t, "echo", string(resp.Body))
}

func TestHTTP_ConnectionFailure(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	addr := server.URL
	server.Close()

	tr := NewHTTP()
	_, err := tr.Perform(context.Background(), &Request{URL: mustParse(t, addr)})
	require.ErrorContains(t, err, "perform request")
}

func TestHTTP_TimeoutApplies(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer server.Close()
	defer close(release)

	tr := NewHTTP(WithTimeout(50 * time.Millisecond))
	_, err := tr.Perform(context.Background(), &Request{URL: mustParse(t, server.URL)})
	require.Error(t, err)
}

func TestHTTP_MissingURL(t *testing.T) {
	_, err := NewHTTP().Perform(context.Background(), &Request{})
	require.ErrorContains(t, err, "missing URL")
}
