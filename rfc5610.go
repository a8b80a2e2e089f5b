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
	"fmt"
)

const (
	fieldInformationElementId          uint16 = 303
	fieldInformationElementDataType    uint16 = 339
	fieldInformationElementDescription uint16 = 340
	fieldInformationElementName        uint16 = 341
	fieldPrivateEnterpriseNumber       uint16 = 346
)

// ExportTypeInformation announces enterprise-specific information elements to the collectors as
// per RFC 5610, such that collectors without a matching catalog can still decode the fields.
//
// The options template used for this is created on the first call and reused afterwards, i.e.,
//
//  1. privateEnterpriseNumber (0/346) [scope]
//  2. informationElementId (0/303) [scope]
//  3. informationElementDataType (0/339)
//  4. informationElementName (0/341)
//  5. informationElementDescription (0/340)
//
// Every information element becomes one data record of that template. The records are buffered
// like any other record and sent with the next flush.
func (s *Session) ExportTypeInformation(ctx context.Context, ies ...InformationElement) (*Template, error) {
	t, err := s.typeInformationTemplate()
	if err != nil {
		return nil, err
	}
	for _, ie := range ies {
		if err := s.Export(ctx, t, typeInformationRecord(ie)...); err != nil {
			return t, fmt.Errorf("failed to export type information of %s: %w", ie, err)
		}
	}
	return t, nil
}

func (s *Session) typeInformationTemplate() (*Template, error) {
	if err := s.lock(); err != nil {
		return nil, err
	}
	defer s.mu.Unlock()

	if t := s.typeInformation; t != nil {
		if registered, ok := s.registry.templates[t.id]; ok && registered == t {
			return t, nil
		}
	}

	h, err := s.registry.NewOptionsTemplate()
	if err != nil {
		return nil, err
	}
	scope := []FieldSpec{
		{Id: fieldPrivateEnterpriseNumber, Length: 4},
		{Id: fieldInformationElementId, Length: 2},
	}
	fields := []FieldSpec{
		{Id: fieldInformationElementDataType, Length: 1},
		{Id: fieldInformationElementName, Length: VariableLength},
		{Id: fieldInformationElementDescription, Length: VariableLength},
	}
	for _, f := range scope {
		if err := s.registry.AddScopeField(h, 0, f.Id, f.Length); err != nil {
			s.registry.Discard(h)
			return nil, err
		}
	}
	for _, f := range fields {
		if err := s.registry.AddField(h, 0, f.Id, f.Length); err != nil {
			s.registry.Discard(h)
			return nil, err
		}
	}
	t, err := s.registry.Seal(h)
	if err != nil {
		return nil, err
	}
	s.typeInformation = t
	return t, nil
}

func typeInformationRecord(ie InformationElement) [][]byte {
	var description string
	if ie.Description != nil {
		description = *ie.Description
	}
	return [][]byte{
		Uint32Value(ie.EnterpriseId),
		Uint16Value(ie.Id),
		Uint8Value(uint8(ie.Type)),
		StringValue(ie.Name),
		StringValue(description),
	}
}

// InformationElementFromRecord converts a decoded data record of a type information options
// template back into the information element it announces. Records of other templates return an
// error.
func InformationElementFromRecord(t *Template, values [][]byte) (*InformationElement, error) {
	ie := &InformationElement{}
	seen := 0
	for i, f := range t.Fields() {
		if f.EnterpriseId != 0 || i >= len(values) {
			continue
		}
		v := values[i]
		switch f.Id {
		case fieldPrivateEnterpriseNumber:
			ie.EnterpriseId = uint32(readUnsigned(v))
		case fieldInformationElementId:
			ie.Id = uint16(readUnsigned(v))
			seen++
		case fieldInformationElementDataType:
			kind := DataKind(readUnsigned(v))
			if _, ok := dataKindNames[kind]; !ok {
				return nil, fmt.Errorf("information element %d announces unassigned data type %d", ie.Id, kind)
			}
			ie.Type = kind
		case fieldInformationElementName:
			ie.Name = string(v)
			seen++
		case fieldInformationElementDescription:
			if len(v) > 0 {
				d := string(v)
				ie.Description = &d
			}
		}
	}
	if seen < 2 {
		return nil, fmt.Errorf("template %d does not define information elements", t.Id())
	}
	return ie, nil
}

// readUnsigned reads a (possibly reduced-size) big endian unsigned integer
func readUnsigned(b []byte) uint64 {
	var buf [8]byte
	if len(b) > 8 {
		b = b[len(b)-8:]
	}
	copy(buf[8-len(b):], b)
	return binary.BigEndian.Uint64(buf[:])
}
