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

// Package emailer is the shared object registered as "applications.email".
// It decodes remote calls, routes them to the profile resolver or the mail
// sender, and returns either a plain result value or a classified error.
package emailer

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/bcem/emailer/internal/apperr"
	"github.com/bcem/emailer/internal/models"
)

// ObjectName is the registry name the object is published under.
const ObjectName = "applications.email"

// SendMailResult is the value returned by a successful sendMail call.
const SendMailResult = "success"

// ProfileResolver fetches and normalizes a sender profile.
type ProfileResolver interface {
	Resolve(ctx context.Context, params models.ProfileParams) (models.Identity, error)
}

// MailSender delivers one message.
type MailSender interface {
	Send(ctx context.Context, req *models.EmailRequest) error
}

// Object serves the remote methods. It holds no mutable state and is safe
// for concurrent calls.
type Object struct {
	profiles ProfileResolver
	mail     MailSender
}

// New creates the emailer object.
func New(profiles ProfileResolver, mail MailSender) *Object {
	return &Object{profiles: profiles, mail: mail}
}

// RemoteCall executes one call. On success it returns a map[string]string
// for getProfile and the string "success" for sendMail. Every error it
// returns is an *apperr.Error.
func (o *Object) RemoteCall(ctx context.Context, method string, param json.RawMessage) (result any, err error) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			result, err = nil, apperr.Newf(apperr.KindInternal, "panic: %v", r)
		}
		if err != nil {
			e := apperr.From(err)
			result, err = nil, e
			slog.ErrorContext(ctx, "remote call failed",
				"method", method,
				"kind", e.Kind,
				"error", e.Detail,
				"elapsed", time.Since(start),
			)
			return
		}
		slog.DebugContext(ctx, "remote call completed",
			"method", method,
			"elapsed", time.Since(start),
		)
	}()

	req, err := DecodeRequest(method, param)
	if err != nil {
		return nil, err
	}

	switch r := req.(type) {
	case GetProfile:
		return o.getProfile(ctx, r)
	case SendMail:
		return o.sendMail(ctx, r)
	default:
		return nil, apperr.New(apperr.KindInternal, fmt.Sprintf("unhandled request %T", req))
	}
}

func (o *Object) getProfile(ctx context.Context, r GetProfile) (map[string]string, error) {
	id, err := o.profiles.Resolve(ctx, r.Params)
	if err != nil {
		return nil, err
	}
	return models.ProfileResult{SenderName: id.Name, SenderEmail: id.Email}.AsMap(), nil
}

func (o *Object) sendMail(ctx context.Context, r SendMail) (string, error) {
	if err := o.mail.Send(ctx, &r.Email); err != nil {
		return "", err
	}
	return SendMailResult, nil
}
