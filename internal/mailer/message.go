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

package mailer

import (
	"bytes"
	"fmt"
	"io"
	"time"

	"github.com/emersion/go-message/mail"

	"github.com/bcem/emailer/internal/models"
)

var utf8Params = map[string]string{"charset": "utf-8"}

// buildMessage renders req as an RFC 5322 message.
//
// Body layout: text and html become multipart/alternative (text first),
// a single body becomes a single inline part, and no body at all becomes
// an empty text/plain part.
func buildMessage(req *models.EmailRequest, now time.Time) ([]byte, error) {
	var h mail.Header
	h.SetDate(now)
	h.SetSubject(req.Subject)
	h.SetAddressList("From", []*mail.Address{{Name: req.Sender.Name, Address: req.Sender.Email}})

	to := make([]*mail.Address, 0, len(req.Recipients))
	for _, r := range req.Recipients {
		to = append(to, &mail.Address{Name: r.Name, Address: r.Email})
	}
	h.SetAddressList("To", to)

	if err := h.GenerateMessageID(); err != nil {
		return nil, fmt.Errorf("generate message id: %w", err)
	}

	var buf bytes.Buffer
	var err error
	switch {
	case req.TextBody != nil && req.HTMLBody != nil:
		err = writeAlternative(&buf, h, *req.TextBody, *req.HTMLBody)
	case req.HTMLBody != nil:
		err = writeSingle(&buf, h, "text/html", *req.HTMLBody)
	case req.TextBody != nil:
		err = writeSingle(&buf, h, "text/plain", *req.TextBody)
	default:
		err = writeSingle(&buf, h, "text/plain", "")
	}
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func writeSingle(w io.Writer, h mail.Header, contentType, body string) error {
	h.SetContentType(contentType, utf8Params)
	bw, err := mail.CreateSingleInlineWriter(w, h)
	if err != nil {
		return fmt.Errorf("create %s body: %w", contentType, err)
	}
	if _, err := io.WriteString(bw, body); err != nil {
		bw.Close()
		return fmt.Errorf("write %s body: %w", contentType, err)
	}
	if err := bw.Close(); err != nil {
		return fmt.Errorf("close %s body: %w", contentType, err)
	}
	return nil
}

func writeAlternative(w io.Writer, h mail.Header, text, html string) error {
	iw, err := mail.CreateInlineWriter(w, h)
	if err != nil {
		return fmt.Errorf("create alternative body: %w", err)
	}
	if err := writePart(iw, "text/plain", text); err != nil {
		iw.Close()
		return err
	}
	if err := writePart(iw, "text/html", html); err != nil {
		iw.Close()
		return err
	}
	if err := iw.Close(); err != nil {
		return fmt.Errorf("close alternative body: %w", err)
	}
	return nil
}

func writePart(iw *mail.InlineWriter, contentType, body string) error {
	var ph mail.InlineHeader
	ph.SetContentType(contentType, utf8Params)
	pw, err := iw.CreatePart(ph)
	if err != nil {
		return fmt.Errorf("create %s part: %w", contentType, err)
	}
	if _, err := io.WriteString(pw, body); err != nil {
		pw.Close()
		return fmt.Errorf("write %s part: %w", contentType, err)
	}
	if err := pw.Close(); err != nil {
		return fmt.Errorf("close %s part: %w", contentType, err)
	}
	return nil
}
