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

package emailer

import (
	"bytes"
	"encoding/json"

	"github.com/bcem/emailer/internal/apperr"
	"github.com/bcem/emailer/internal/models"
)

// Remote method names served by the object.
const (
	MethodGetProfile = "getProfile"
	MethodSendMail   = "sendMail"
)

// Request is a decoded remote call. The set of variants is closed.
type Request interface {
	Method() string
	request()
}

// GetProfile asks for the caller's normalized profile.
type GetProfile struct {
	Params models.ProfileParams
}

// SendMail asks for one message to be sent.
type SendMail struct {
	Email models.EmailRequest
}

func (GetProfile) Method() string { return MethodGetProfile }
func (SendMail) Method() string   { return MethodSendMail }

func (GetProfile) request() {}
func (SendMail) request()   {}

// DecodeRequest turns a method name and its raw parameter into a request
// variant. The method is checked before the parameter, so an unknown
// method is reported as such even when no parameter was supplied.
func DecodeRequest(method string, param json.RawMessage) (Request, error) {
	switch method {
	case MethodGetProfile:
		var p models.ProfileParams
		if err := decodeParam(param, &p); err != nil {
			return nil, err
		}
		if err := p.Validate(); err != nil {
			return nil, apperr.InvalidParameter(err.Error())
		}
		return GetProfile{Params: p}, nil

	case MethodSendMail:
		var e models.EmailRequest
		if err := decodeParam(param, &e); err != nil {
			return nil, err
		}
		if err := e.Validate(); err != nil {
			return nil, apperr.InvalidParameter(err.Error())
		}
		return SendMail{Email: e}, nil

	default:
		return nil, apperr.UnsupportedMethod(method)
	}
}

func decodeParam(param json.RawMessage, v any) error {
	trimmed := bytes.TrimSpace(param)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return apperr.InvalidParameter("No parameter")
	}
	if err := json.Unmarshal(trimmed, v); err != nil {
		return apperr.InvalidParameter(err.Error())
	}
	return nil
}
