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
	"fmt"
)

// InformationElement is the catalog entry of a field, identified by its enterprise number and id.
// Only the abstract data type is required for exporting; the remaining properties are carried
// along for documentation and table round trips.
type InformationElement struct {
	Id           uint16 `json:"id,omitempty" yaml:"id,omitempty"`
	Name         string `json:"name,omitempty" yaml:"name,omitempty"`
	EnterpriseId uint32 `json:"pen,omitempty" yaml:"pen,omitempty"`

	Type DataKind `json:"type" yaml:"type"`

	// Length overrides the data kind's default length, e.g. for octetArray elements such as
	// ipHeaderPacketSection that are always fixed-length on the wire. Zero means "derive from Type".
	Length uint16 `json:"length,omitempty" yaml:"length,omitempty"`

	Description *string `json:"description,omitempty" yaml:"description,omitempty"`
	Units       *string `json:"units,omitempty" yaml:"units,omitempty"`
	Reference   *string `json:"reference,omitempty" yaml:"reference,omitempty"`
}

func (i InformationElement) String() string {
	return fmt.Sprintf("%s(%d/%d)<%s>", i.Name, i.EnterpriseId, i.Id, i.Type)
}

// Key returns the catalog key of the information element
func (i *InformationElement) Key() FieldKey {
	return NewFieldKey(i.EnterpriseId, i.Id)
}

// FieldType returns the length policy and value kind of the information element
func (i *InformationElement) FieldType() FieldType {
	l := i.Length
	if l == 0 {
		l = i.Type.DefaultLength()
	}
	return FieldType{
		Kind:   i.Type,
		Length: l,
	}
}

// FieldType is the result of a catalog lookup. A Length of VariableLength denotes the variable
// length policy, every other value a fixed length of that many bytes.
type FieldType struct {
	Kind   DataKind
	Length uint16
}

func (t FieldType) IsVariableLength() bool {
	return t.Length == VariableLength
}

// Accepts reports whether a template may declare the field with the given length.
//
// Fixed-length kinds accept exactly their length; integer kinds additionally accept reduced-size
// encodings (RFC 7011 Section 6.2), as does float64 with 4 bytes. Variable-length kinds accept both
// VariableLength and any fixed length, as RFC 7011 permits fixed-length encoding of octetArray and
// string values.
func (t FieldType) Accepts(declared uint16) bool {
	if declared == 0 {
		return false
	}
	if t.IsVariableLength() {
		return true
	}
	if declared == t.Length {
		return true
	}
	if t.Kind.reducible() {
		return declared < t.Length
	}
	if t.Kind == Float64 {
		return declared == 4
	}
	return false
}

func (t FieldType) String() string {
	if t.IsVariableLength() {
		return fmt.Sprintf("%s[variable]", t.Kind)
	}
	return fmt.Sprintf("%s[%d]", t.Kind, t.Length)
}
