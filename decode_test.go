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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeMalformed(t *testing.T) {
	valid := appendHeader(nil, 16, 0, 0, 1)

	t.Run("short header", func(t *testing.T) {
		_, err := DecodeMessage(valid[:10])
		assert.ErrorIs(t, err, ErrMalformedMessage)
	})

	t.Run("version", func(t *testing.T) {
		b := append([]byte(nil), valid...)
		binary.BigEndian.PutUint16(b[0:2], 9)
		_, err := DecodeMessage(b)
		assert.ErrorIs(t, err, ErrUnknownVersion)
	})

	t.Run("length beyond buffer", func(t *testing.T) {
		b := append([]byte(nil), valid...)
		binary.BigEndian.PutUint16(b[2:4], 32)
		_, err := DecodeMessage(b)
		assert.ErrorIs(t, err, ErrMalformedMessage)
	})

	t.Run("set length", func(t *testing.T) {
		b := appendHeader(nil, 20, 0, 0, 1)
		b = append(b, 0x01, 0x00, 0x00, 0x02)
		_, err := DecodeMessage(b)
		assert.ErrorIs(t, err, ErrMalformedMessage)
	})

	t.Run("reserved set id", func(t *testing.T) {
		b := appendHeader(nil, 20, 0, 0, 1)
		b = append(b, 0x00, 0x05, 0x00, 0x04)
		_, err := DecodeMessage(b)
		assert.ErrorIs(t, err, ErrMalformedMessage)
	})

	t.Run("empty", func(t *testing.T) {
		m, err := DecodeMessage(valid)
		require.NoError(t, err)
		assert.Empty(t, m.Sets)
	})
}

func TestDecoderWithdrawAll(t *testing.T) {
	a := &Template{id: 256, fields: []FieldSpec{{Id: FieldOctetDeltaCount, Length: 8}}}
	b := &Template{id: 257, fields: []FieldSpec{{Id: FieldPacketDeltaCount, Length: 8}}}
	o := &Template{id: 258, options: true, scopeFields: []FieldSpec{{Id: FieldExportingProcessId, Length: 4}}, fields: []FieldSpec{{Id: FieldExportedMessageTotalCount, Length: 8}}}

	body := appendTemplateSets(nil, []*Template{a, b, o})
	msg := appendHeader(nil, uint16(16+len(body)), 0, 0, 1)
	msg = append(msg, body...)

	d := NewDecoder()
	m, err := d.Decode(msg)
	require.NoError(t, err)
	require.Len(t, m.TemplateSets(), 2)
	decoded, ok := d.Template(1, 258)
	require.True(t, ok)
	assert.Equal(t, o.Fields(), decoded.Fields())
	assert.Len(t, decoded.ScopeFields(), 1)

	// a withdrawal with the set id as template id withdraws all templates of that kind
	all := &Template{id: TemplateSetId}
	withdrawal := appendWithdrawalSets(nil, []*Template{all})
	msg = appendHeader(nil, uint16(16+len(withdrawal)), 0, 1, 1)
	msg = append(msg, withdrawal...)
	_, err = d.Decode(msg)
	require.NoError(t, err)

	_, ok = d.Template(1, 256)
	assert.False(t, ok)
	_, ok = d.Template(1, 257)
	assert.False(t, ok)
	_, ok = d.Template(1, 258)
	assert.True(t, ok)
}
