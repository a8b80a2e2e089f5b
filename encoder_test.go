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
	"net"
	"net/netip"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeRecord(t *testing.T) {
	tmpl := &Template{
		id: 256,
		fields: []FieldSpec{
			{Id: FieldSourceIPv4Address, Length: 4},
			{Id: FieldSourceTransportPort, Length: 2},
			{Id: FieldProtocolIdentifier, Length: 1},
			{EnterpriseId: AntreaPEN, Id: FieldSourcePodName, Length: VariableLength},
		},
	}

	b, err := EncodeRecord(tmpl,
		IPv4Value(netip.MustParseAddr("10.0.0.1")),
		Uint16Value(443),
		Uint8Value(6),
		StringValue("web"),
	)
	require.NoError(t, err)
	assert.Equal(t, []byte{
		10, 0, 0, 1,
		0x01, 0xbb,
		6,
		3, 'w', 'e', 'b',
	}, b)

	values, n, err := DecodeRecord(tmpl, b)
	require.NoError(t, err)
	assert.Equal(t, len(b), n)
	assert.Equal(t, []byte("web"), values[3])
}

func TestEncodeRecordVariableLength(t *testing.T) {
	tmpl := &Template{
		id:     256,
		fields: []FieldSpec{{Id: 82, Length: VariableLength}},
	}

	cases := []struct {
		length int
		prefix []byte
	}{
		{0, []byte{0}},
		{1, []byte{1}},
		{254, []byte{254}},
		{255, []byte{0xff, 0x00, 0xff}},
		{256, []byte{0xff, 0x01, 0x00}},
		{0xffff, []byte{0xff, 0xff, 0xff}},
	}
	for _, tc := range cases {
		v := bytes.Repeat([]byte{'a'}, tc.length)
		b, err := EncodeRecord(tmpl, v)
		require.NoError(t, err, "length %d", tc.length)
		assert.Equal(t, tc.prefix, b[:len(tc.prefix)], "length %d", tc.length)
		assert.Len(t, b, len(tc.prefix)+tc.length)

		decoded, n, err := DecodeRecord(tmpl, b)
		require.NoError(t, err)
		assert.Equal(t, len(b), n)
		assert.Equal(t, v, decoded[0])
	}

	_, err := EncodeRecord(tmpl, make([]byte, 0x10000))
	assert.ErrorIs(t, err, ErrFieldLengthMismatch)
}

func TestEncodeRecordErrors(t *testing.T) {
	tmpl := &Template{
		id: 300,
		fields: []FieldSpec{
			{Id: FieldOctetDeltaCount, Length: 8},
			{Id: FieldSourceIPv4Address, Length: 4},
		},
	}

	t.Run("arity", func(t *testing.T) {
		_, err := EncodeRecord(tmpl, Uint64Value(1))
		assert.ErrorIs(t, err, ErrArityMismatch)
		_, err = EncodeRecord(tmpl, Uint64Value(1), Uint32Value(1), Uint32Value(1))
		assert.ErrorIs(t, err, ErrArityMismatch)
	})

	t.Run("fixed length", func(t *testing.T) {
		_, err := EncodeRecord(tmpl, Uint32Value(1), Uint32Value(1))
		assert.ErrorIs(t, err, ErrFieldLengthMismatch)
		assert.ErrorIs(t, err, ErrSchema)
	})

	t.Run("not an ipv4 address", func(t *testing.T) {
		_, err := EncodeRecord(tmpl, Uint64Value(1), IPv4Value(netip.MustParseAddr("2001:db8::1")))
		assert.ErrorIs(t, err, ErrFieldLengthMismatch)
	})

	t.Run("dst unchanged", func(t *testing.T) {
		dst := []byte{1, 2, 3}
		out, err := AppendRecord(dst, tmpl, Uint64Value(1))
		assert.Error(t, err)
		assert.Equal(t, []byte{1, 2, 3}, out)

		out, err = AppendRecord(dst, tmpl, Uint64Value(1), IPv4Value(netip.MustParseAddr("::ffff:192.0.2.1")))
		require.NoError(t, err)
		assert.Equal(t, []byte{1, 2, 3, 0, 0, 0, 0, 0, 0, 0, 1, 192, 0, 2, 1}, out)
	})
}

func TestEncodeRecordCopies(t *testing.T) {
	tmpl := &Template{
		id:     256,
		fields: []FieldSpec{{Id: 56, Length: 6}},
	}
	v := MacAddressValue(net.HardwareAddr{0, 1, 2, 3, 4, 5})
	b, err := EncodeRecord(tmpl, v)
	require.NoError(t, err)
	v[0] = 0xff
	assert.Equal(t, byte(0), b[0])
}

func TestValueHelpers(t *testing.T) {
	assert.Equal(t, []byte{0x00, 0x01, 0x02}, ReducedValue(0x0102, 3))
	assert.Equal(t, []byte{0x02}, ReducedValue(0x0102, 1))
	assert.Panics(t, func() { ReducedValue(1, 9) })
	assert.Equal(t, []byte{1}, BoolValue(true))
	assert.Equal(t, []byte{2}, BoolValue(false))
	assert.Equal(t, []byte{0x3f, 0xf0, 0, 0, 0, 0, 0, 0}, Float64Value(1))
	assert.Len(t, IPv6Value(netip.MustParseAddr("2001:db8::1")), 16)
}
