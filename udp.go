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
	"net"
	"net/netip"
	"sync"
)

// UDPTransport sends each message as a single datagram over a connected socket. Sends are never
// retried. Messages larger than the configured bound are rejected, and on Linux the socket refuses
// to fragment datagrams exceeding the path MTU.
type UDPTransport struct {
	mu sync.Mutex

	addr           netip.AddrPort
	conn           net.Conn
	dialer         net.Dialer
	maxMessageSize int
}

var _ Transport = &UDPTransport{}

func NewUDPTransport(addr netip.AddrPort, opts Options) *UDPTransport {
	return &UDPTransport{
		addr: addr,
		dialer: net.Dialer{
			Timeout: opts.DialTimeout,
			Control: dontFragment,
		},
		maxMessageSize: opts.MaxUDPMessageSize,
	}
}

func (t *UDPTransport) MaxMessageSize() int {
	return t.maxMessageSize
}

// Connect binds the socket to the collector's address. No packets are exchanged.
func (t *UDPTransport) Connect(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.connect(ctx)
}

func (t *UDPTransport) connect(ctx context.Context) error {
	if t.conn != nil {
		return nil
	}
	conn, err := t.dialer.DialContext(ctx, "udp", t.addr.String())
	if err != nil {
		return fmt.Errorf("%w to %s, %w", ErrConnectionRefused, t.addr, err)
	}
	t.conn = conn
	FromContext(ctx).V(1).Info("bound udp socket to collector", "collector", t.addr, "local", conn.LocalAddr().String())
	return nil
}

func (t *UDPTransport) Send(ctx context.Context, msg []byte) error {
	if len(msg) > t.maxMessageSize {
		return messageTooLarge(len(msg), t.maxMessageSize)
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if err := t.connect(ctx); err != nil {
		return err
	}
	if _, err := t.conn.Write(msg); err != nil {
		// e.g. ECONNREFUSED from a previous datagram's ICMP port unreachable, or EMSGSIZE
		return fmt.Errorf("%w to %s, %w", ErrSendFailed, t.addr, err)
	}
	return nil
}

func (t *UDPTransport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.conn == nil {
		return nil
	}
	err := t.conn.Close()
	t.conn = nil
	return err
}
