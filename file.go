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
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/zoomoid/go-ipfix-exporter/iana/version"
)

// WriterTransport appends messages to an io.Writer, e.g. a file in the IPFIX File Format of
// RFC 5655, which is a plain concatenation of messages.
type WriterTransport struct {
	mu sync.Mutex
	w  io.Writer
}

var _ Transport = &WriterTransport{}

func NewWriterTransport(w io.Writer) *WriterTransport {
	return &WriterTransport{
		w: w,
	}
}

// NewFileTransport opens or creates the file at path for appending messages
func NewFileTransport(path string) (*WriterTransport, error) {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0o644)
	if err != nil {
		return nil, err
	}
	return NewWriterTransport(f), nil
}

func (t *WriterTransport) Connect(context.Context) error {
	return nil
}

func (t *WriterTransport) Send(_ context.Context, msg []byte) error {
	if len(msg) > MaxMessageSize {
		return messageTooLarge(len(msg), MaxMessageSize)
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.w == nil {
		return fmt.Errorf("%w, writer is closed", ErrSendFailed)
	}
	if _, err := t.w.Write(msg); err != nil {
		return fmt.Errorf("%w, %w", ErrSendFailed, err)
	}
	return nil
}

func (t *WriterTransport) MaxMessageSize() int {
	return MaxMessageSize
}

// Close closes the underlying writer if it is an io.Closer
func (t *WriterTransport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	w := t.w
	t.w = nil
	if c, ok := w.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// ReadMessage reads a single message from a stream of concatenated messages, as found in IPFIX
// files or on TCP connections. It returns io.EOF only if the stream ended before the message started.
func ReadMessage(r io.Reader) ([]byte, error) {
	header := make([]byte, 4)
	if _, err := io.ReadFull(r, header); err != nil {
		if errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, fmt.Errorf("%w, message header truncated", ErrMalformedMessage)
		}
		return nil, err
	}

	v := version.ProtocolVersion(binary.BigEndian.Uint16(header[0:2]))
	if !v.Valid() {
		return nil, fmt.Errorf("%w %d", ErrUnknownVersion, v)
	}
	length := int(binary.BigEndian.Uint16(header[2:4]))
	if length < ipfixMessageHeaderLength {
		return nil, fmt.Errorf("%w, message length %d", ErrMalformedMessage, length)
	}

	msg := make([]byte, length)
	copy(msg, header)
	if _, err := io.ReadFull(r, msg[4:]); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, fmt.Errorf("%w, message body truncated", ErrMalformedMessage)
		}
		return nil, err
	}
	return msg, nil
}

// ReadFull consumes r and returns all messages in it
func ReadFull(r io.Reader) ([][]byte, error) {
	var msgs [][]byte
	for {
		msg, err := ReadMessage(r)
		if err != nil {
			if errors.Is(err, io.EOF) {
				return msgs, nil
			}
			return nil, err
		}
		msgs = append(msgs, msg)
	}
}
