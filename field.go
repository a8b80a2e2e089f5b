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
)

// FieldSpec is a Field Specifier of a template, i.e., the information element's enterprise number
// and id, and the length announced for it. Length is either a fixed number of bytes or
// VariableLength.
type FieldSpec struct {
	EnterpriseId uint32 `json:"pen,omitempty" yaml:"pen,omitempty"`
	Id           uint16 `json:"id" yaml:"id"`
	Length       uint16 `json:"length" yaml:"length"`
}

func (f FieldSpec) String() string {
	if f.IsVariableLength() {
		return fmt.Sprintf("%d/%d[variable]", f.EnterpriseId, f.Id)
	}
	return fmt.Sprintf("%d/%d[%d]", f.EnterpriseId, f.Id, f.Length)
}

func (f FieldSpec) Key() FieldKey {
	return NewFieldKey(f.EnterpriseId, f.Id)
}

func (f FieldSpec) IsVariableLength() bool {
	return f.Length == VariableLength
}

func (f FieldSpec) IsEnterprise() bool {
	return f.EnterpriseId != 0
}

// encodedLength is the number of bytes the field specifier takes in a template record
func (f FieldSpec) encodedLength() int {
	if f.IsEnterprise() {
		return 8
	}
	return 4
}

// appendTo appends the wire format of the field specifier as per RFC 7011 Section 3.2
func (f FieldSpec) appendTo(b []byte) []byte {
	if f.IsEnterprise() {
		b = binary.BigEndian.AppendUint16(b, penMask|f.Id)
	} else {
		b = binary.BigEndian.AppendUint16(b, f.Id)
	}
	b = binary.BigEndian.AppendUint16(b, f.Length)
	if f.IsEnterprise() {
		b = binary.BigEndian.AppendUint32(b, f.EnterpriseId)
	}
	return b
}

// decodeFieldSpec reads a single field specifier from b and returns it together with the number
// of bytes consumed
func decodeFieldSpec(b []byte) (FieldSpec, int, error) {
	if len(b) < 4 {
		return FieldSpec{}, 0, fmt.Errorf("%w, field specifier truncated", ErrMalformedMessage)
	}
	rawId := binary.BigEndian.Uint16(b[0:2])
	f := FieldSpec{
		Id:     rawId &^ penMask,
		Length: binary.BigEndian.Uint16(b[2:4]),
	}
	if rawId&penMask == 0 {
		return f, 4, nil
	}
	if len(b) < 8 {
		return FieldSpec{}, 0, fmt.Errorf("%w, enterprise number of field %d truncated", ErrMalformedMessage, f.Id)
	}
	f.EnterpriseId = binary.BigEndian.Uint32(b[4:8])
	return f, 8, nil
}
