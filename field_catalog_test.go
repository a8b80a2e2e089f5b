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
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultFieldCatalog(t *testing.T) {
	c := DefaultFieldCatalog()

	cases := []struct {
		name         string
		enterpriseId uint32
		id           uint16
		want         FieldType
	}{
		{"octetDeltaCount", 0, FieldOctetDeltaCount, FieldType{Kind: Unsigned64, Length: 8}},
		{"sourceIPv4Address", 0, FieldSourceIPv4Address, FieldType{Kind: IPv4Address, Length: 4}},
		{"sourceIPv6Address", 0, FieldSourceIPv6Address, FieldType{Kind: IPv6Address, Length: 16}},
		{"protocolIdentifier", 0, FieldProtocolIdentifier, FieldType{Kind: Unsigned8, Length: 1}},
		{"flowStartMilliseconds", 0, FieldFlowStartMilliseconds, FieldType{Kind: DateTimeMilliseconds, Length: 8}},
		{"interfaceName", 0, 82, FieldType{Kind: String, Length: VariableLength}},
		{"sourcePodName", AntreaPEN, FieldSourcePodName, FieldType{Kind: String, Length: VariableLength}},
		{"destinationServicePort", AntreaPEN, 108, FieldType{Kind: Unsigned16, Length: 2}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ft, err := c.Lookup(tc.enterpriseId, tc.id)
			require.NoError(t, err)
			assert.Equal(t, tc.want, ft)
		})
	}

	t.Run("unknown field", func(t *testing.T) {
		_, err := c.Lookup(0, 32000)
		assert.ErrorIs(t, err, ErrUnknownField)
		assert.ErrorIs(t, err, ErrSchema)

		// Antrea's ids are not IANA ids
		_, err = c.Lookup(0, 0x7ff0)
		assert.ErrorIs(t, err, ErrUnknownField)
		_, err = c.Lookup(AntreaPEN, FieldOctetDeltaCount)
		assert.ErrorIs(t, err, ErrUnknownField)
	})

	t.Run("get copies", func(t *testing.T) {
		ie, err := c.Get(NewFieldKey(AntreaPEN, FieldSourcePodNamespace))
		require.NoError(t, err)
		assert.Equal(t, "sourcePodNamespace", ie.Name)
		ie.Name = "changed"

		again, err := c.Get(NewFieldKey(AntreaPEN, FieldSourcePodNamespace))
		require.NoError(t, err)
		assert.Equal(t, "sourcePodNamespace", again.Name)
	})

	t.Run("by name", func(t *testing.T) {
		ie, err := c.ByName(0, "destinationTransportPort")
		require.NoError(t, err)
		assert.Equal(t, FieldDestinationTransportPort, ie.Id)

		_, err = c.ByName(AntreaPEN, "destinationTransportPort")
		assert.ErrorIs(t, err, ErrUnknownField)
	})

	t.Run("elements are ordered", func(t *testing.T) {
		ies := c.Elements()
		require.Equal(t, c.Len(), len(ies))
		for i := 1; i < len(ies); i++ {
			prev, cur := ies[i-1], ies[i]
			assert.True(t, prev.EnterpriseId < cur.EnterpriseId || (prev.EnterpriseId == cur.EnterpriseId && prev.Id < cur.Id))
		}
	})
}

func TestReverseInformationElements(t *testing.T) {
	c := DefaultFieldCatalog()

	ft, err := c.Lookup(ReversePEN, FieldOctetDeltaCount)
	require.NoError(t, err)
	assert.Equal(t, FieldType{Kind: Unsigned64, Length: 8}, ft)

	ie, err := c.Get(NewFieldKey(ReversePEN, FieldSourceTransportPort))
	require.NoError(t, err)
	assert.Equal(t, "reverseSourceTransportPort", ie.Name)
	assert.Equal(t, ReversePEN, ie.EnterpriseId)

	// the forward element is unchanged
	fwd, err := c.Get(NewFieldKey(0, FieldSourceTransportPort))
	require.NoError(t, err)
	assert.Equal(t, "sourceTransportPort", fwd.Name)

	for _, id := range []uint16{FieldIngressInterface, FieldEgressInterface, FieldExportingProcessId, 210} {
		assert.False(t, Reversible(id), "field %d", id)
		_, err := c.Lookup(ReversePEN, id)
		assert.ErrorIs(t, err, ErrUnknownField, "field %d", id)
	}
}

func TestFieldTypeAccepts(t *testing.T) {
	u32 := FieldType{Kind: Unsigned32, Length: 4}
	f64 := FieldType{Kind: Float64, Length: 8}
	ipv4 := FieldType{Kind: IPv4Address, Length: 4}
	str := FieldType{Kind: String, Length: VariableLength}

	cases := []struct {
		name     string
		ft       FieldType
		declared uint16
		want     bool
	}{
		{"exact", u32, 4, true},
		{"reduced size", u32, 2, true},
		{"reduced to one byte", u32, 1, true},
		{"oversized", u32, 8, false},
		{"zero", u32, 0, false},
		{"variable for fixed", u32, VariableLength, false},
		{"float64 as float32", f64, 4, true},
		{"float64 odd size", f64, 2, false},
		{"address not reducible", ipv4, 2, false},
		{"string variable", str, VariableLength, true},
		{"string fixed", str, 32, true},
		{"string zero", str, 0, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, tc.ft.Accepts(tc.declared))
		})
	}
}

func TestFieldKeyText(t *testing.T) {
	k := NewFieldKey(AntreaPEN, 101)
	text, err := k.MarshalText()
	if err != nil {
		t.Fatal(err)
	}
	if string(text) != "56506:101" {
		t.Fatalf("expected 56506:101, found %s", text)
	}

	var parsed FieldKey
	if err := parsed.UnmarshalText(text); err != nil {
		t.Fatal(err)
	}
	if parsed != k {
		t.Fatalf("expected %v, found %v", k, parsed)
	}

	for _, in := range []string{"", "1", "a:1", "1:70000", "1:2:3"} {
		if err := parsed.UnmarshalText([]byte(in)); err == nil {
			t.Errorf("expected error for %q", in)
		}
	}
}

func TestLookupDataKind(t *testing.T) {
	k, err := LookupDataKind("dateTimeMilliseconds")
	require.NoError(t, err)
	assert.Equal(t, DateTimeMilliseconds, k)
	assert.Equal(t, uint16(8), k.DefaultLength())

	_, err = LookupDataKind("unsigned128")
	assert.Error(t, err)

	_, err = DataKind(200).MarshalText()
	assert.True(t, err != nil && !errors.Is(err, ErrSchema))
}
