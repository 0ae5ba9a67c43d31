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

// Package models defines the request-scoped data structures exchanged with
// remote callers of the emailer object.
package models

import (
	"errors"
	"fmt"
	"strings"

	"github.com/bcem/emailer/internal/token"
)

// Identity is a display name and address pair. It is used both for the
// sender and for each recipient of a message.
type Identity struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

// EmailRequest is the sendMail parameter: the message, its envelope, the
// SMTP endpoint, and the caller's access token.
//
// This struct's JSON field names are the wire contract of the sendMail
// remote method and must not change.
type EmailRequest struct {
	SMTPServer  string            `json:"smtp_server"`
	SMTPPort    uint16            `json:"smtp_port"`
	Sender      Identity          `json:"sender"`
	Recipients  []Identity        `json:"recipients"`
	Subject     string            `json:"subject"`
	HTMLBody    *string           `json:"html_body,omitempty"`
	TextBody    *string           `json:"text_body,omitempty"`
	AccessToken token.AccessToken `json:"access_token"`
}

// Validate checks the invariants the decoder cannot express. A message
// with neither body is valid and is sent empty.
func (r *EmailRequest) Validate() error {
	var errs []error
	if strings.TrimSpace(r.SMTPServer) == "" {
		errs = append(errs, errors.New("smtp_server is required"))
	}
	if r.SMTPPort == 0 {
		errs = append(errs, errors.New("smtp_port must be between 1 and 65535"))
	}
	if strings.TrimSpace(r.Sender.Email) == "" {
		errs = append(errs, errors.New("sender.email is required"))
	}
	if len(r.Recipients) == 0 {
		errs = append(errs, errors.New("at least one recipient is required"))
	}
	for i, rcpt := range r.Recipients {
		if strings.TrimSpace(rcpt.Email) == "" {
			errs = append(errs, fmt.Errorf("recipients[%d].email is required", i))
		}
	}
	if r.AccessToken.Empty() {
		errs = append(errs, errors.New("access_token is required"))
	}
	return errors.Join(errs...)
}

// ProfileParams is the getProfile parameter.
type ProfileParams struct {
	AccessToken     token.AccessToken `json:"access_token"`
	ProfileEndpoint Endpoint          `json:"profile_endpoint"`
}

// Validate checks the fields the decoder accepts but the resolver cannot use.
func (p *ProfileParams) Validate() error {
	if p.AccessToken.Empty() {
		return errors.New("access_token is required")
	}
	if p.ProfileEndpoint.URL == nil {
		return errors.New("profile_endpoint is required")
	}
	return nil
}

// ProfileResult is the getProfile result.
type ProfileResult struct {
	SenderName  string `json:"sender_name"`
	SenderEmail string `json:"sender_email"`
}

// AsMap renders the result as the string-keyed mapping returned to callers.
func (r ProfileResult) AsMap() map[string]string {
	return map[string]string{
		"sender_name":  r.SenderName,
		"sender_email": r.SenderEmail,
	}
}
