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
	"strconv"
	"strings"
)

// Transport delivers complete IPFIX messages to a single collector.
//
// Send blocks until the message was handed to the operating system or failed. Implementations
// that reconnect report a re-established connection with ErrConnectionReset instead of writing the
// message to the new connection, as the collector on the other end does not know any templates yet.
type Transport interface {
	// Connect establishes the connection to the collector, if not connected yet
	Connect(ctx context.Context) error

	// Send transmits msg as a single message
	Send(ctx context.Context, msg []byte) error

	Close() error

	// MaxMessageSize is the largest message Send accepts
	MaxMessageSize() int
}

// Generational is implemented by transports that count the connections they established. A
// change of the generation tells the session to send all templates again.
type Generational interface {
	Generation() uint64
}

type TransportKind int

const (
	TCP TransportKind = iota
	UDP
	SCTP
	// File denotes transports writing to files or other local sinks
	File
)

func (k TransportKind) String() string {
	switch k {
	case TCP:
		return "tcp"
	case UDP:
		return "udp"
	case SCTP:
		return "sctp"
	case File:
		return "file"
	default:
		return fmt.Sprintf("unknown(%d)", int(k))
	}
}

// Reliable returns true for transports that guarantee delivery of a message once sent. Messages
// that failed on reliable transports are kept for retrying.
func (k TransportKind) Reliable() bool {
	return k == TCP || k == SCTP
}

func (k TransportKind) MarshalText() ([]byte, error) {
	if k < TCP || k > File {
		return nil, fmt.Errorf("unknown transport kind %d", int(k))
	}
	return []byte(k.String()), nil
}

func (k *TransportKind) UnmarshalText(in []byte) error {
	v, err := ParseTransportKind(string(in))
	if err != nil {
		return err
	}
	*k = v
	return nil
}

func ParseTransportKind(s string) (TransportKind, error) {
	switch strings.ToLower(s) {
	case "tcp":
		return TCP, nil
	case "udp":
		return UDP, nil
	case "sctp":
		return SCTP, nil
	case "file":
		return File, nil
	default:
		return 0, fmt.Errorf("unknown transport kind %q", s)
	}
}

// resolve looks up the first address of host
func resolve(ctx context.Context, host string, port uint16) (netip.AddrPort, error) {
	if addr, err := netip.ParseAddr(host); err == nil {
		return netip.AddrPortFrom(addr.Unmap(), port), nil
	}
	addrs, err := net.DefaultResolver.LookupNetIP(ctx, "ip", host)
	if err != nil {
		return netip.AddrPort{}, fmt.Errorf("%w for %s, %w", ErrAddressResolution, host, err)
	}
	if len(addrs) == 0 {
		return netip.AddrPort{}, fmt.Errorf("%w for %s, no addresses", ErrAddressResolution, host)
	}
	return netip.AddrPortFrom(addrs[0].Unmap(), port), nil
}

// newTransport creates the transport of the given kind for a resolved collector address
func newTransport(kind TransportKind, addr netip.AddrPort, opts Options) (Transport, error) {
	switch kind {
	case TCP:
		return NewTCPTransport(addr, opts), nil
	case UDP:
		return NewUDPTransport(addr, opts), nil
	case SCTP:
		return NewSCTPTransport(addr, opts)
	default:
		return nil, fmt.Errorf("%w, cannot dial %s collectors", ErrTransportUnsupported, kind)
	}
}

func hostPort(host string, port uint16) string {
	return net.JoinHostPort(host, strconv.Itoa(int(port)))
}
