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
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"log/slog"
	"net"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/emersion/go-sasl"
	"github.com/emersion/go-smtp"
)

const quitTimeout = 5 * time.Second

// Client is one open SMTP session.
type Client interface {
	Auth(a sasl.Client) error
	Send(from string, to []string, msg io.Reader) error
	Close() error
}

// Dialer opens SMTP sessions. Implementations must be safe for concurrent use.
type Dialer interface {
	Dial(ctx context.Context, host string, port uint16) (Client, error)
}

// DialerOption configures the SMTP dialer.
type DialerOption func(*SMTPDialer)

// WithDialTimeout bounds the TCP connect.
func WithDialTimeout(d time.Duration) DialerOption {
	return func(s *SMTPDialer) {
		if d > 0 {
			s.netDialer.Timeout = d
		}
	}
}

// WithHelloName customises the EHLO identity presented to the server.
func WithHelloName(name string) DialerOption {
	return func(s *SMTPDialer) {
		if strings.TrimSpace(name) != "" {
			s.helloName = strings.TrimSpace(name)
		}
	}
}

// WithTLSConfig overrides the TLS configuration used for STARTTLS.
func WithTLSConfig(cfg *tls.Config) DialerOption {
	return func(s *SMTPDialer) {
		if cfg != nil {
			s.tlsConfig = cfg
		}
	}
}

// SMTPDialer connects over plain TCP (no implicit TLS) and upgrades with
// STARTTLS whenever the server offers it.
type SMTPDialer struct {
	netDialer *net.Dialer
	helloName string
	tlsConfig *tls.Config
}

// NewSMTPDialer creates the production Dialer.
func NewSMTPDialer(opts ...DialerOption) *SMTPDialer {
	d := &SMTPDialer{
		netDialer: &net.Dialer{Timeout: 30 * time.Second},
		helloName: "localhost",
		tlsConfig: &tls.Config{MinVersion: tls.VersionTLS12},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(d)
		}
	}
	return d
}

// Dial connects to host:port. Cancelling ctx at any point before Close
// tears the connection down.
//
// go-smtp can only upgrade a session as it opens, so a server that
// advertises STARTTLS on the first EHLO is dialled a second time with
// smtp.NewClientStartTLS.
func (d *SMTPDialer) Dial(ctx context.Context, host string, port uint16) (Client, error) {
	addr := net.JoinHostPort(host, strconv.Itoa(int(port)))

	sc, err := d.open(ctx, addr, nil)
	if err != nil {
		return nil, err
	}
	if err := sc.c.Hello(d.helloName); err != nil {
		sc.Close()
		return nil, fmt.Errorf("smtp hello: %w", err)
	}
	if ok, _ := sc.c.Extension("STARTTLS"); !ok {
		return sc, nil
	}
	sc.Close()

	cfg := d.tlsConfig.Clone()
	if cfg.ServerName == "" {
		cfg.ServerName = host
	}
	tc, err := d.open(ctx, addr, cfg)
	if err != nil {
		return nil, err
	}
	if err := tc.c.Hello(d.helloName); err != nil {
		tc.Close()
		return nil, fmt.Errorf("smtp hello: %w", err)
	}
	slog.DebugContext(ctx, "smtp session upgraded with STARTTLS", "addr", addr)
	return tc, nil
}

// open dials addr and starts a session, upgraded with STARTTLS when
// tlsConfig is set.
func (d *SMTPDialer) open(ctx context.Context, addr string, tlsConfig *tls.Config) (*smtpClient, error) {
	conn, err := d.netDialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("smtp dial %s: %w", addr, err)
	}

	sc := &smtpClient{conn: conn, done: make(chan struct{})}
	go func() {
		select {
		case <-ctx.Done():
			_ = conn.Close()
		case <-sc.done:
		}
	}()

	if tlsConfig == nil {
		sc.c = smtp.NewClient(conn)
		return sc, nil
	}

	c, err := smtp.NewClientStartTLS(conn, tlsConfig)
	if err != nil {
		sc.stopWatch()
		_ = conn.Close()
		return nil, fmt.Errorf("smtp starttls: %w", err)
	}
	sc.c = c
	return sc, nil
}

type smtpClient struct {
	c    *smtp.Client
	conn net.Conn
	done chan struct{}
	once sync.Once

	closeOnce sync.Once
	closeErr  error
}

func (s *smtpClient) Auth(a sasl.Client) error {
	return s.c.Auth(a)
}

func (s *smtpClient) Send(from string, to []string, msg io.Reader) error {
	return s.c.SendMail(from, to, msg)
}

func (s *smtpClient) stopWatch() {
	s.once.Do(func() { close(s.done) })
}

// Close says QUIT politely, then drops the connection regardless.
func (s *smtpClient) Close() error {
	s.stopWatch()
	s.closeOnce.Do(func() {
		_ = s.conn.SetDeadline(time.Now().Add(quitTimeout))
		if qerr := s.c.Quit(); qerr != nil {
			s.closeErr = s.c.Close()
		}
	})
	return s.closeErr
}
