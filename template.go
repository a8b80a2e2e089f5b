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

const (
	KindTemplate        string = "template"
	KindOptionsTemplate string = "options_template"
)

// Template is a sealed Template Record or Options Template Record. Its field sequence is immutable
// for the lifetime of its Template ID. Data records for the template carry the values of the scope
// fields first, followed by the values of the regular fields.
type Template struct {
	id          uint16
	options     bool
	scopeFields []FieldSpec
	fields      []FieldSpec
}

func (t *Template) Id() uint16 {
	return t.id
}

// IsOptions returns true for Options Templates, announced in Set ID 3
func (t *Template) IsOptions() bool {
	return t.options
}

func (t *Template) Kind() string {
	if t.options {
		return KindOptionsTemplate
	}
	return KindTemplate
}

// Fields returns a copy of the template's field specifiers in record order, i.e., scope fields first
func (t *Template) Fields() []FieldSpec {
	fs := make([]FieldSpec, 0, len(t.scopeFields)+len(t.fields))
	fs = append(fs, t.scopeFields...)
	return append(fs, t.fields...)
}

// ScopeFields returns a copy of the scope fields of an options template
func (t *Template) ScopeFields() []FieldSpec {
	return append([]FieldSpec(nil), t.scopeFields...)
}

// FieldCount is the number of values a data record of this template carries
func (t *Template) FieldCount() int {
	return len(t.scopeFields) + len(t.fields)
}

// IsWithdrawal returns true for templates decoded from a Template Withdrawal record
func (t *Template) IsWithdrawal() bool {
	return t.FieldCount() == 0
}

func (t *Template) String() string {
	if t.options {
		return fmt.Sprintf("<id=%d,scope=%v>%v", t.id, t.scopeFields, t.fields)
	}
	return fmt.Sprintf("<id=%d>%v", t.id, t.fields)
}

// minRecordLength is the smallest possible data record of the template, i.e., all variable-length
// fields empty. It is used to tell set padding apart from records when decoding.
func (t *Template) minRecordLength() int {
	n := 0
	for _, f := range t.scopeFields {
		n += f.minValueLength()
	}
	for _, f := range t.fields {
		n += f.minValueLength()
	}
	return n
}

func (f FieldSpec) minValueLength() int {
	if f.IsVariableLength() {
		return 1
	}
	return int(f.Length)
}

// recordLength returns the length of the template record in its wire format
func (t *Template) recordLength() int {
	n := 4
	if t.options {
		n += 2
	}
	for _, f := range t.scopeFields {
		n += f.encodedLength()
	}
	for _, f := range t.fields {
		n += f.encodedLength()
	}
	return n
}

// appendRecord appends the Template Record (RFC 7011 Section 3.4.1) or Options Template Record
// (Section 3.4.2) of t to b
func (t *Template) appendRecord(b []byte) []byte {
	b = binary.BigEndian.AppendUint16(b, t.id)
	b = binary.BigEndian.AppendUint16(b, uint16(t.FieldCount()))
	if t.options {
		b = binary.BigEndian.AppendUint16(b, uint16(len(t.scopeFields)))
	}
	for _, f := range t.scopeFields {
		b = f.appendTo(b)
	}
	for _, f := range t.fields {
		b = f.appendTo(b)
	}
	return b
}

// withdrawalLength is the length of a Template Withdrawal record, for both kinds of templates
const withdrawalLength = 4

// appendWithdrawal appends the withdrawal record of t to b as per RFC 7011 Section 8.1, i.e., the
// template's ID followed by a field count of 0
func (t *Template) appendWithdrawal(b []byte) []byte {
	b = binary.BigEndian.AppendUint16(b, t.id)
	return binary.BigEndian.AppendUint16(b, 0)
}

// setId returns the ID of sets carrying this template's records
func (t *Template) setId() uint16 {
	if t.options {
		return OptionsTemplateSetId
	}
	return TemplateSetId
}

// decodeTemplateRecord reads a single (options) template record from b, which starts at the record.
// Field count 0 denotes a withdrawal. It returns the template and the number of bytes consumed.
func decodeTemplateRecord(b []byte, options bool) (*Template, int, error) {
	if len(b) < 4 {
		return nil, 0, fmt.Errorf("%w, template record header truncated", ErrMalformedMessage)
	}
	t := &Template{
		id:      binary.BigEndian.Uint16(b[0:2]),
		options: options,
	}
	fieldCount := int(binary.BigEndian.Uint16(b[2:4]))
	n := 4
	if fieldCount == 0 {
		return t, n, nil
	}
	if t.id < MinTemplateId {
		return nil, 0, fmt.Errorf("%w, template id %d is reserved", ErrMalformedMessage, t.id)
	}

	scopeFieldCount := 0
	if options {
		if len(b) < 6 {
			return nil, 0, fmt.Errorf("%w, options template record header truncated", ErrMalformedMessage)
		}
		scopeFieldCount = int(binary.BigEndian.Uint16(b[4:6]))
		n += 2
		if scopeFieldCount == 0 || scopeFieldCount > fieldCount {
			return nil, 0, fmt.Errorf("%w, options template %d has invalid scope field count %d", ErrMalformedMessage, t.id, scopeFieldCount)
		}
	}

	for i := 0; i < fieldCount; i++ {
		f, m, err := decodeFieldSpec(b[n:])
		if err != nil {
			return nil, 0, err
		}
		n += m
		if i < scopeFieldCount {
			t.scopeFields = append(t.scopeFields, f)
		} else {
			t.fields = append(t.fields, f)
		}
	}
	return t, n, nil
}

// TemplateHandle is a template under construction. Fields are added through the registry, which
// validates them against the field catalog. Once sealed, the handle rejects further fields.
type TemplateHandle struct {
	id          uint16
	options     bool
	sealed      bool
	scopeFields []FieldSpec
	fields      []FieldSpec
}

// Id returns the Template ID reserved for the handle
func (h *TemplateHandle) Id() uint16 {
	return h.id
}

func (h *TemplateHandle) Sealed() bool {
	return h.sealed
}
