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
	"bytes"
	"context"
	"errors"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// listenTCP accepts connections on a loopback port and forwards every message read from them
func listenTCP(t *testing.T) (*net.TCPAddr, <-chan []byte) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { ln.Close() })

	received := make(chan []byte, 64)
	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			go func(conn net.Conn) {
				defer conn.Close()
				for {
					msg, err := ReadMessage(conn)
					if err != nil {
						return
					}
					received <- msg
				}
			}(conn)
		}
	}()
	return ln.Addr().(*net.TCPAddr), received
}

func receive(t *testing.T, ch <-chan []byte) []byte {
	t.Helper()
	select {
	case msg := <-ch:
		return msg
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for message")
		return nil
	}
}

func TestTCPCollector(t *testing.T) {
	ctx := context.Background()
	addr, received := listenTCP(t)

	s := newTestSession()
	defer s.Close(ctx)
	c, err := s.AddCollector(ctx, "127.0.0.1", uint16(addr.Port), TCP)
	require.NoError(t, err)
	assert.Equal(t, TCP, c.Kind())
	assert.Equal(t, uint64(1), c.Generation())

	tmpl := flowTemplate(t, s)
	for i := 0; i < 3; i++ {
		require.NoError(t, s.Export(ctx, tmpl, flowRecord(uint32(i))...))
		require.NoError(t, s.Flush(ctx))
	}

	d := NewDecoder()
	for i := 0; i < 3; i++ {
		m, err := d.Decode(receive(t, received))
		require.NoError(t, err)
		assert.Equal(t, uint32(i), m.SequenceNumber)
		require.Len(t, m.DataSets(), 1)
		assert.Equal(t, flowRecord(uint32(i)), m.DataSets()[0].Records[0])
	}
}

func TestTCPCollectorRefused(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := ln.Addr().(*net.TCPAddr).Port
	ln.Close()

	s := newTestSession()
	c, err := s.AddCollector(context.Background(), "127.0.0.1", uint16(port), TCP)
	assert.ErrorIs(t, err, ErrConnectionRefused)
	require.NotNil(t, c)
	assert.Len(t, s.Collectors(), 1)
}

func TestAddCollectorResolution(t *testing.T) {
	s := newTestSession()
	_, err := s.AddCollector(context.Background(), "collector.invalid", DefaultPort, TCP)
	assert.ErrorIs(t, err, ErrAddressResolution)
	assert.Empty(t, s.Collectors())
}

// fakeConn is a stream connection whose writes can be broken
type fakeConn struct {
	mu     sync.Mutex
	buf    bytes.Buffer
	broken bool
	closed bool
}

func (c *fakeConn) Write(b []byte) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.broken || c.closed {
		return 0, errors.New("broken pipe")
	}
	return c.buf.Write(b)
}

func (c *fakeConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

func (c *fakeConn) SetWriteDeadline(time.Time) error {
	return nil
}

func (c *fakeConn) written() []byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	return bytes.Clone(c.buf.Bytes())
}

// fakeDialer hands out conns in order and fails once they are used up
type fakeDialer struct {
	mu    sync.Mutex
	conns []*fakeConn
	dials int
}

func (d *fakeDialer) dial(context.Context) (streamConn, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.dials++
	if len(d.conns) == 0 {
		return nil, errors.New("connection refused")
	}
	c := d.conns[0]
	d.conns = d.conns[1:]
	return c, nil
}

func newFakeStream(d *fakeDialer) *streamTransport {
	return &streamTransport{
		name: "fake",
		kind: TCP,
		dial: d.dial,
		backoff: BackoffOptions{
			Initial:    time.Millisecond,
			Max:        5 * time.Millisecond,
			Multiplier: 2,
			MaxRetries: 2,
		},
		writeTimeout:   time.Second,
		maxMessageSize: 128,
	}
}

func TestStreamTransport(t *testing.T) {
	ctx := context.Background()
	msg := appendHeader(nil, 16, 0, 0, 1)

	t.Run("first connect is not retried", func(t *testing.T) {
		d := &fakeDialer{}
		tr := newFakeStream(d)
		err := tr.Connect(ctx)
		assert.ErrorIs(t, err, ErrConnectionRefused)
		assert.Equal(t, 1, d.dials)
		assert.Zero(t, tr.Generation())
	})

	t.Run("reset after reconnect", func(t *testing.T) {
		first, second := &fakeConn{}, &fakeConn{}
		d := &fakeDialer{conns: []*fakeConn{first, second}}
		tr := newFakeStream(d)
		require.NoError(t, tr.Connect(ctx))
		assert.Equal(t, uint64(1), tr.Generation())

		require.NoError(t, tr.Send(ctx, msg))
		assert.Equal(t, msg, first.written())

		first.mu.Lock()
		first.broken = true
		first.mu.Unlock()

		err := tr.Send(ctx, msg)
		assert.ErrorIs(t, err, ErrConnectionReset)
		assert.Equal(t, uint64(2), tr.Generation())
		assert.True(t, first.closed)
		// the message is left for the caller to send again after the templates
		assert.Empty(t, second.written())

		require.NoError(t, tr.Send(ctx, msg))
		assert.Equal(t, msg, second.written())
		require.NoError(t, tr.Close())
		assert.True(t, second.closed)
		assert.Error(t, tr.Send(ctx, msg))
	})

	t.Run("unreachable", func(t *testing.T) {
		conn := &fakeConn{}
		d := &fakeDialer{conns: []*fakeConn{conn}}
		tr := newFakeStream(d)
		require.NoError(t, tr.Connect(ctx))
		conn.mu.Lock()
		conn.broken = true
		conn.mu.Unlock()

		err := tr.Send(ctx, msg)
		assert.ErrorIs(t, err, ErrCollectorUnreachable)
		// first dial plus the initial attempt and two retries of the reconnect
		assert.Equal(t, 4, d.dials)
	})

	t.Run("message too large", func(t *testing.T) {
		tr := newFakeStream(&fakeDialer{})
		err := tr.Send(ctx, make([]byte, 129))
		assert.ErrorIs(t, err, ErrMessageTooLarge)
	})

	t.Run("session closing aborts backoff", func(t *testing.T) {
		conn := &fakeConn{}
		d := &fakeDialer{conns: []*fakeConn{conn}}
		tr := newFakeStream(d)
		tr.backoff = BackoffOptions{Initial: time.Hour, Max: time.Hour, Multiplier: 2, MaxRetries: 3}
		require.NoError(t, tr.Connect(ctx))
		conn.mu.Lock()
		conn.broken = true
		conn.mu.Unlock()

		ctx, cancel := context.WithCancelCause(ctx)
		go func() {
			time.Sleep(10 * time.Millisecond)
			cancel(ErrSessionClosing)
		}()
		err := tr.Send(ctx, msg)
		assert.ErrorIs(t, err, ErrSessionClosing)
	})
}

func TestStreamTransportDeadline(t *testing.T) {
	tr := &streamTransport{writeTimeout: time.Minute}
	assert.WithinDuration(t, time.Now().Add(time.Minute), tr.deadline(context.Background()), time.Second)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	d, _ := ctx.Deadline()
	assert.Equal(t, d, tr.deadline(ctx))

	tr.writeTimeout = 0
	assert.True(t, tr.deadline(context.Background()).IsZero())
}
