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

type SetHeader struct {
	// 2 for Template Sets, 3 for Options Template Sets, and
	// 256-65535 for Data Sets, i.e., the Template ID
	Id uint16 `json:"id,omitempty" yaml:"id,omitempty"`

	Length uint16 `json:"length,omitempty" yaml:"length,omitempty"`
}

// Set is a decoded set. Template sets carry templates, including withdrawals. Data sets carry the
// raw records, and additionally the decoded records if the decoder knew the set's template.
type Set struct {
	SetHeader `json:",inline" yaml:",inline"`

	Templates []*Template `json:"-" yaml:"-"`

	Records [][][]byte `json:"records,omitempty" yaml:"records,omitempty"`
	Data    []byte     `json:"-" yaml:"-"`
}

func (s *Set) IsTemplateSet() bool {
	return s.Id == TemplateSetId || s.Id == OptionsTemplateSetId
}

func (s *Set) IsDataSet() bool {
	return s.Id >= MinTemplateId
}

func (s *Set) String() string {
	switch {
	case s.IsTemplateSet():
		return fmt.Sprintf("<set=%d,len=%d>%v", s.Id, s.Length, s.Templates)
	default:
		return fmt.Sprintf("<set=%d,len=%d,records=%d>", s.Id, s.Length, len(s.Records))
	}
}

// beginSet appends a set header with a placeholder length and returns the offset of the set in b
func beginSet(b []byte, id uint16) ([]byte, int) {
	offset := len(b)
	b = binary.BigEndian.AppendUint16(b, id)
	b = binary.BigEndian.AppendUint16(b, 0)
	return b, offset
}

// endSet patches the length of the set started at offset
func endSet(b []byte, offset int) []byte {
	binary.BigEndian.PutUint16(b[offset+2:offset+4], uint16(len(b)-offset))
	return b
}

// templateSetsLength returns the number of bytes the templates take when grouped into at most one
// Template Set and one Options Template Set
func templateSetsLength(ts []*Template) int {
	var n int
	var regular, options bool
	for _, t := range ts {
		n += t.recordLength()
		if t.options {
			options = true
		} else {
			regular = true
		}
	}
	if regular {
		n += setHeaderLength
	}
	if options {
		n += setHeaderLength
	}
	return n
}

// appendTemplateSets appends a Template Set and an Options Template Set with the records of ts,
// omitting empty sets
func appendTemplateSets(b []byte, ts []*Template) []byte {
	for _, options := range []bool{false, true} {
		offset := -1
		for _, t := range ts {
			if t.options != options {
				continue
			}
			if offset < 0 {
				b, offset = beginSet(b, t.setId())
			}
			b = t.appendRecord(b)
		}
		if offset >= 0 {
			b = endSet(b, offset)
		}
	}
	return b
}

// appendWithdrawalSets appends the withdrawal records of ts, grouped by set ID
func appendWithdrawalSets(b []byte, ts []*Template) []byte {
	for _, options := range []bool{false, true} {
		offset := -1
		for _, t := range ts {
			if t.options != options {
				continue
			}
			if offset < 0 {
				b, offset = beginSet(b, t.setId())
			}
			b = t.appendWithdrawal(b)
		}
		if offset >= 0 {
			b = endSet(b, offset)
		}
	}
	return b
}
