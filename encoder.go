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
	"encoding/binary"
	"fmt"
	"math"
	"net"
	"net/netip"
)

const (
	// shortLengthLimit is the largest value length encoded with the 1-byte length prefix
	shortLengthLimit = 254
	// longLengthMarker introduces the 3-byte length prefix of variable-length values
	longLengthMarker byte = 0xFF
	// maxVariableLength is the largest value length expressible in the 3-byte prefix
	maxVariableLength = 0xFFFF
)

// EncodeRecord serializes a Data Record of template t from the given field values.
//
// Values are opaque byte strings in the order of t.Fields(). They must already be in network byte
// order: the encoder copies them verbatim and never converts integers. Use the *Value helpers to
// produce correctly ordered values. Fixed-length fields require values of exactly the declared
// length, values of variable-length fields are prefixed with their length (1 byte for up to 254
// bytes, 0xFF followed by a 2-byte length for up to 65535 bytes). Records are packed without
// padding.
//
// The returned slice does not alias any of the values, such that callers may reuse their buffers
// immediately after the call.
func EncodeRecord(t *Template, values ...[]byte) ([]byte, error) {
	n, err := recordLength(t, values)
	if err != nil {
		return nil, err
	}
	return appendRecord(make([]byte, 0, n), t, values), nil
}

// AppendRecord is the appending form of EncodeRecord. On error, dst is returned unchanged.
func AppendRecord(dst []byte, t *Template, values ...[]byte) ([]byte, error) {
	if _, err := recordLength(t, values); err != nil {
		return dst, err
	}
	return appendRecord(dst, t, values), nil
}

// recordLength validates the values against the template and returns the encoded record length
func recordLength(t *Template, values [][]byte) (int, error) {
	if t == nil {
		return 0, fmt.Errorf("%w, template is nil", ErrTemplateNotFound)
	}
	if len(values) != t.FieldCount() {
		return 0, fmt.Errorf("%w, template %d has %d fields, found %d values", ErrArityMismatch, t.id, t.FieldCount(), len(values))
	}
	n := 0
	for i, f := range t.Fields() {
		v := values[i]
		if f.IsVariableLength() {
			if len(v) > maxVariableLength {
				return 0, fieldLengthMismatch(f.EnterpriseId, f.Id, fmt.Sprintf("at most %d", maxVariableLength), len(v))
			}
			n += variableLengthPrefix(len(v)) + len(v)
			continue
		}
		if len(v) != int(f.Length) {
			return 0, fieldLengthMismatch(f.EnterpriseId, f.Id, fmt.Sprintf("%d", f.Length), len(v))
		}
		n += len(v)
	}
	return n, nil
}

func variableLengthPrefix(l int) int {
	if l <= shortLengthLimit {
		return 1
	}
	return 3
}

func appendRecord(b []byte, t *Template, values [][]byte) []byte {
	for i, f := range t.Fields() {
		v := values[i]
		if f.IsVariableLength() {
			if len(v) <= shortLengthLimit {
				b = append(b, byte(len(v)))
			} else {
				b = append(b, longLengthMarker)
				b = binary.BigEndian.AppendUint16(b, uint16(len(v)))
			}
		}
		b = append(b, v...)
	}
	return b
}

func Uint8Value(v uint8) []byte {
	return []byte{v}
}

func Uint16Value(v uint16) []byte {
	return binary.BigEndian.AppendUint16(nil, v)
}

func Uint32Value(v uint32) []byte {
	return binary.BigEndian.AppendUint32(nil, v)
}

func Uint64Value(v uint64) []byte {
	return binary.BigEndian.AppendUint64(nil, v)
}

// ReducedValue encodes v in n bytes (RFC 7011 Section 6.2), dropping the most significant bytes.
// It panics if n is not within 1 to 8.
func ReducedValue(v uint64, n int) []byte {
	if n < 1 || n > 8 {
		panic(fmt.Sprintf("reduced-size encoding to %d bytes", n))
	}
	b := binary.BigEndian.AppendUint64(nil, v)
	return b[8-n:]
}

func Float64Value(v float64) []byte {
	return binary.BigEndian.AppendUint64(nil, math.Float64bits(v))
}

func BoolValue(v bool) []byte {
	// RFC 7011 Section 6.1.5
	if v {
		return []byte{1}
	}
	return []byte{2}
}

// IPv4Value returns the 4-byte network representation of an IPv4 address. IPv4-mapped IPv6 addresses
// are unmapped, other addresses yield nil, which fails validation against a 4-byte field.
func IPv4Value(a netip.Addr) []byte {
	a = a.Unmap()
	if !a.Is4() {
		return nil
	}
	b := a.As4()
	return b[:]
}

func IPv6Value(a netip.Addr) []byte {
	b := a.As16()
	return b[:]
}

func MacAddressValue(a net.HardwareAddr) []byte {
	return append([]byte(nil), a...)
}

func StringValue(s string) []byte {
	return []byte(s)
}
