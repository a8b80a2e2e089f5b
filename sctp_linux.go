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

//go:build linux

package ipfix

import (
	"context"
	"errors"
	"fmt"
	"net/netip"
	"os"
	"time"

	"golang.org/x/sys/unix"
)

// NewSCTPTransport creates a transport using a one-to-one style SCTP association. Each message is
// written with a single call, preserving message boundaries. Reconnects behave like TCP.
func NewSCTPTransport(addr netip.AddrPort, opts Options) (Transport, error) {
	return &streamTransport{
		name: addr.String(),
		kind: SCTP,
		dial: func(ctx context.Context) (streamConn, error) {
			return dialSCTP(ctx, addr, opts.DialTimeout)
		},
		backoff:        opts.Backoff,
		writeTimeout:   opts.WriteTimeout,
		maxMessageSize: opts.MaxMessageSize,
	}, nil
}

func dialSCTP(ctx context.Context, addr netip.AddrPort, timeout time.Duration) (streamConn, error) {
	family := unix.AF_INET
	var sa unix.Sockaddr
	if addr.Addr().Is4() {
		sa = &unix.SockaddrInet4{Port: int(addr.Port()), Addr: addr.Addr().As4()}
	} else {
		family = unix.AF_INET6
		sa = &unix.SockaddrInet6{Port: int(addr.Port()), Addr: addr.Addr().As16()}
	}

	fd, err := unix.Socket(family, unix.SOCK_STREAM|unix.SOCK_CLOEXEC, unix.IPPROTO_SCTP)
	if err != nil {
		if errors.Is(err, unix.EPROTONOSUPPORT) {
			return nil, fmt.Errorf("%w, kernel lacks sctp support", ErrTransportUnsupported)
		}
		return nil, os.NewSyscallError("socket", err)
	}

	// connect(2) blocks at most for SO_SNDTIMEO
	if d, ok := ctx.Deadline(); ok && (timeout == 0 || time.Until(d) < timeout) {
		timeout = time.Until(d)
	}
	if timeout > 0 {
		tv := unix.NsecToTimeval(timeout.Nanoseconds())
		if err := unix.SetsockoptTimeval(fd, unix.SOL_SOCKET, unix.SO_SNDTIMEO, &tv); err != nil {
			unix.Close(fd)
			return nil, os.NewSyscallError("setsockopt", err)
		}
	}

	for {
		err = unix.Connect(fd, sa)
		if err != unix.EINTR {
			break
		}
	}
	if err != nil {
		unix.Close(fd)
		return nil, os.NewSyscallError("connect", err)
	}

	// non-blocking descriptors are registered with the runtime poller and support deadlines
	if err := unix.SetNonblock(fd, true); err != nil {
		unix.Close(fd)
		return nil, os.NewSyscallError("setnonblock", err)
	}
	return os.NewFile(uintptr(fd), "sctp:"+addr.String()), nil
}
