/*
Copyright 2023 Alexander Bartolomey (github@alexanderbartolomey.de)

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package ipfix

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/netip"
	"sync"
	"time"
)

// streamConn is the part of a connection stream transports write to. Both net.Conn and *os.File
// implement it.
type streamConn interface {
	io.WriteCloser
	SetWriteDeadline(time.Time) error
}

type dialFunc func(ctx context.Context) (streamConn, error)

// streamTransport implements the connection handling shared by TCP and SCTP. The first connection
// is attempted once, re-connections after a broken connection use the backoff. Every established
// connection starts a new generation.
type streamTransport struct {
	mu sync.Mutex

	name string
	kind TransportKind
	dial dialFunc

	conn       streamConn
	generation uint64
	closed     bool

	backoff        BackoffOptions
	writeTimeout   time.Duration
	maxMessageSize int
}

var _ Transport = &streamTransport{}
var _ Generational = &streamTransport{}

// NewTCPTransport creates a transport to the collector at addr. It does not connect yet.
func NewTCPTransport(addr netip.AddrPort, opts Options) Transport {
	dialer := net.Dialer{
		Timeout: opts.DialTimeout,
	}
	return &streamTransport{
		name: addr.String(),
		kind: TCP,
		dial: func(ctx context.Context) (streamConn, error) {
			return dialer.DialContext(ctx, "tcp", addr.String())
		},
		backoff:        opts.Backoff,
		writeTimeout:   opts.WriteTimeout,
		maxMessageSize: opts.MaxMessageSize,
	}
}

func (t *streamTransport) Generation() uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.generation
}

func (t *streamTransport) MaxMessageSize() int {
	return t.maxMessageSize
}

func (t *streamTransport) Connect(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.connect(ctx)
}

func (t *streamTransport) connect(ctx context.Context) error {
	if t.closed {
		return fmt.Errorf("%w, %s transport to %s is closed", ErrSendFailed, t.kind, t.name)
	}
	if t.conn != nil {
		return nil
	}
	if t.generation > 0 {
		return t.reconnect(ctx)
	}
	conn, err := t.dial(ctx)
	if err != nil {
		return fmt.Errorf("%w to %s, %w", ErrConnectionRefused, t.name, err)
	}
	t.established(ctx, conn)
	return nil
}

func (t *streamTransport) reconnect(ctx context.Context) error {
	err := retry(ctx, t.backoff, func(ctx context.Context) error {
		conn, err := t.dial(ctx)
		if err != nil {
			FromContext(ctx).V(1).Info("reconnect attempt failed", "transport", t.kind, "collector", t.name, "error", err.Error())
			return err
		}
		t.established(ctx, conn)
		return nil
	})
	if err != nil {
		return err
	}
	ReconnectsTotal.WithLabelValues(t.kind.String()).Inc()
	return nil
}

func (t *streamTransport) established(ctx context.Context, conn streamConn) {
	t.conn = conn
	t.generation++
	FromContext(ctx).V(1).Info("connected to collector", "transport", t.kind, "collector", t.name, "generation", t.generation)
}

func (t *streamTransport) Send(ctx context.Context, msg []byte) error {
	if len(msg) > t.maxMessageSize {
		return messageTooLarge(len(msg), t.maxMessageSize)
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if t.conn == nil {
		previous := t.generation
		if err := t.connect(ctx); err != nil {
			return err
		}
		if previous > 0 {
			return fmt.Errorf("%w to %s", ErrConnectionReset, t.name)
		}
	}

	if err := t.conn.SetWriteDeadline(t.deadline(ctx)); err != nil {
		return fmt.Errorf("%w, failed to set write deadline, %w", ErrSendFailed, err)
	}
	_, err := t.conn.Write(msg)
	if err == nil {
		return nil
	}

	FromContext(ctx).Error(err, "failed to write message, reconnecting", "transport", t.kind, "collector", t.name)
	_ = t.conn.Close()
	t.conn = nil

	if rerr := t.reconnect(ctx); rerr != nil {
		return fmt.Errorf("%w, write failed with %w", rerr, err)
	}
	return fmt.Errorf("%w to %s, write failed with %w", ErrConnectionReset, t.name, err)
}

// deadline returns the earlier of the write timeout and the context's deadline, or the zero time
// if neither is set
func (t *streamTransport) deadline(ctx context.Context) time.Time {
	var d time.Time
	if t.writeTimeout > 0 {
		d = time.Now().Add(t.writeTimeout)
	}
	if cd, ok := ctx.Deadline(); ok && (d.IsZero() || cd.Before(d)) {
		d = cd
	}
	return d
}

func (t *streamTransport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.closed = true
	if t.conn == nil {
		return nil
	}
	err := t.conn.Close()
	t.conn = nil
	return err
}
