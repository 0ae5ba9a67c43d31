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

// Package mailer sends one message per call through an SMTP server,
// authenticating with the sender's OAuth2 access token (XOAUTH2).
package mailer

import (
	"bytes"
	"context"
	"log/slog"
	"time"

	"github.com/bcem/emailer/internal/apperr"
	"github.com/bcem/emailer/internal/models"
)

// Option configures a Sender.
type Option func(*Sender)

// WithClock replaces the clock used for the Date header.
func WithClock(now func() time.Time) Option {
	return func(s *Sender) {
		if now != nil {
			s.now = now
		}
	}
}

// Sender builds and delivers messages.
type Sender struct {
	dialer Dialer
	now    func() time.Time
}

// NewSender creates a Sender that opens its sessions through dialer.
func NewSender(dialer Dialer, opts ...Option) *Sender {
	s := &Sender{dialer: dialer, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Send builds the message, authenticates as the sender with XOAUTH2 and
// transmits it. The session is always closed before returning.
func (s *Sender) Send(ctx context.Context, req *models.EmailRequest) error {
	msg, err := buildMessage(req, s.now())
	if err != nil {
		return apperr.MailSend(err)
	}
	slog.DebugContext(ctx, "message built",
		"recipients", len(req.Recipients),
		"html", req.HTMLBody != nil,
		"text", req.TextBody != nil,
		"bytes", len(msg),
	)

	creds := NewXOAuth2Client(req.Sender.Email, req.AccessToken.Secret())

	slog.InfoContext(ctx, "authenticating SMTP XOAUTH2 credentials",
		"host", req.SMTPServer,
		"port", req.SMTPPort,
	)
	client, err := s.dialer.Dial(ctx, req.SMTPServer, req.SMTPPort)
	if err != nil {
		return apperr.Transport(err)
	}
	defer func() {
		if cerr := client.Close(); cerr != nil {
			slog.DebugContext(ctx, "smtp session close failed", "error", cerr)
		}
	}()

	if err := client.Auth(creds); err != nil {
		slog.WarnContext(ctx, "SMTP XOAUTH2 credentials rejected", "host", req.SMTPServer)
		return apperr.MailSend(err)
	}
	slog.InfoContext(ctx, "SMTP XOAUTH2 credentials accepted")

	to := make([]string, 0, len(req.Recipients))
	for _, r := range req.Recipients {
		to = append(to, r.Email)
	}

	if err := client.Send(req.Sender.Email, to, bytes.NewReader(msg)); err != nil {
		return apperr.MailSend(err)
	}

	slog.InfoContext(ctx, "email sent", "recipients", len(to))
	return nil
}
