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

	"github.com/stretchr/testify/require"

	"github.com/bcem/emailer/internal/apperr"
)

func TestRegistry_RegisterDuplicate(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, reg.Register("applications.email", &echoObject{}))

	err := reg.Register("applications.email", &echoObject{})
	require.ErrorIs(t, err, ErrDuplicateObject)

	require.Error(t, reg.Register("", &echoObject{}))
	require.Equal(t, []string{"applications.email"}, reg.Names())
}

func TestRegistry_Call(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, reg.Register("obj", &echoObject{}))

	tests := []struct {
		name       string
		call       Call
		wantResult string
		wantKind   apperr.Kind
	}{
		{name: "result", call: Call{ID: "1", Object: "obj", Method: "echo", Param: json.RawMessage(`{"a":1}`)}, wantResult: `{"a":1}`},
		{name: "classified error", call: Call{ID: "2", Object: "obj", Method: "fail"}, wantKind: apperr.KindMailSend},
		{name: "unclassified error", call: Call{ID: "3", Object: "obj", Method: "plain"}, wantKind: apperr.KindInternal},
		{name: "unencodable result", call: Call{ID: "4", Object: "obj", Method: "unencodable"}, wantKind: apperr.KindInternal},
		{name: "panic", call: Call{ID: "5", Object: "obj", Method: "panic"}, wantKind: apperr.KindInternal},
		{name: "unknown object", call: Call{ID: "6", Object: "applications.calendar", Method: "echo"}, wantKind: KindUnknownObject},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reply := reg.Call(context.Background(), tt.call)
			require.Equal(t, tt.call.ID, reply.ID)
			if tt.wantKind != "" {
				require.Nil(t, reply.Result)
				require.NotNil(t, reply.Error)
				require.Equal(t, tt.wantKind, reply.Error.Kind)
				require.NotEmpty(t, reply.Error.Message)
				return
			}
			require.Nil(t, reply.Error)
			require.JSONEq(t, tt.wantResult, string(reply.Result))
		})
	}
}

func TestRegistry_RecorderSeesEveryCall(t *testing.T) {
	rec := &memRecorder{err: errors.New("journal down")}
	reg := NewRegistry(WithRecorder(rec))
	require.NoError(t, reg.Register("obj", &echoObject{}))

	reg.Call(context.Background(), Call{ID: "a", Object: "obj", Method: "echo", Param: json.RawMessage(`1`)})
	reg.Call(context.Background(), Call{ID: "b", Object: "obj", Method: "fail"})

	require.Len(t, rec.outcomes, 2)
	require.Equal(t, "a", rec.outcomes[0].CallID)
	require.Empty(t, rec.outcomes[0].Kind)
	require.Equal(t, apperr.KindMailSend, rec.outcomes[1].Kind)
	require.Equal(t, "fail", rec.outcomes[1].Method)
}

func TestReplyError_Err(t *testing.T) {
	var nilErr *ReplyError
	require.NoError(t, nilErr.Err())

	err := (&ReplyError{Kind: apperr.KindSchema, Message: "no match"}).Err()
	require.ErrorIs(t, err, apperr.ErrSchema)
	require.Equal(t, "no match", err.Error())
}
