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

// Package apperr defines the error taxonomy shared by the profile resolver,
// the mail sender and the remote-method dispatcher. Every failure that
// crosses the dispatcher boundary is an *Error carrying one Kind.
package apperr

import (
	"errors"
	"fmt"
)

// Kind names a failure domain. The string value is what remote callers see.
type Kind string

const (
	// KindTransport covers network, TLS and DNS failures reaching an HTTP or SMTP endpoint.
	KindTransport Kind = "TransportError"
	// KindHeader covers malformed credential or header construction.
	KindHeader Kind = "HeaderError"
	// KindSchema means a response body matched none of the known provider schemas.
	KindSchema Kind = "SchemaError"
	// KindMailSend covers SMTP authentication and transmission failures.
	KindMailSend Kind = "MailSendError"
	// KindInvalidParameter means the caller-supplied parameter was missing or malformed.
	KindInvalidParameter Kind = "InvalidParameter"
	// KindUnsupportedMethod means the method name is not served by the object.
	KindUnsupportedMethod Kind = "UnsupportedMethod"
	// KindInternal is used for failures that were not classified by the code that raised them.
	KindInternal Kind = "InternalError"
)

// Sentinels for errors.Is matching by kind.
var (
	ErrTransport         = &Error{Kind: KindTransport}
	ErrHeader            = &Error{Kind: KindHeader}
	ErrSchema            = &Error{Kind: KindSchema}
	ErrMailSend          = &Error{Kind: KindMailSend}
	ErrInvalidParameter  = &Error{Kind: KindInvalidParameter}
	ErrUnsupportedMethod = &Error{Kind: KindUnsupportedMethod}
	ErrInternal          = &Error{Kind: KindInternal}
)

// Error is a terminal failure of one call.
type Error struct {
	Kind   Kind
	Detail string
	Err    error
}

// Error returns the detail text, which is what the original failure said.
func (e *Error) Error() string {
	if e.Detail == "" {
		return string(e.Kind)
	}
	return e.Detail
}

// Unwrap exposes the underlying cause, if any.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is an *Error of the same kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// New builds an error of the given kind with a plain detail message.
func New(kind Kind, detail string) *Error {
	return &Error{Kind: kind, Detail: detail}
}

// Newf builds an error of the given kind with a formatted detail message.
func Newf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Detail: fmt.Sprintf(format, args...)}
}

// Wrap classifies err under kind. The detail is err's message.
func Wrap(kind Kind, err error) *Error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Detail: err.Error(), Err: err}
}

// Transport wraps a network-level failure.
func Transport(err error) *Error { return Wrap(KindTransport, err) }

// Header wraps a header construction failure.
func Header(err error) *Error { return Wrap(KindHeader, err) }

// Schema wraps a payload decoding failure.
func Schema(err error) *Error { return Wrap(KindSchema, err) }

// MailSend wraps an SMTP authentication or transmission failure.
func MailSend(err error) *Error { return Wrap(KindMailSend, err) }

// InvalidParameter reports a missing or malformed call parameter.
func InvalidParameter(detail string) *Error { return New(KindInvalidParameter, detail) }

// UnsupportedMethod reports a method name the object does not serve.
func UnsupportedMethod(method string) *Error {
	return Newf(KindUnsupportedMethod, "unsupported method %q", method)
}

// From returns err as an *Error. Errors that are already classified keep
// their kind; anything else is reported as KindInternal.
func From(err error) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return Wrap(KindInternal, err)
}

// KindOf returns the kind of err, or the empty string for a nil error.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	return From(err).Kind
}
