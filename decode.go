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
	"sync"
)

// DecodeRecord is the inverse of EncodeRecord. It reads one data record of template t from the
// start of b and returns the field values together with the number of bytes consumed. Values
// alias b.
func DecodeRecord(t *Template, b []byte) ([][]byte, int, error) {
	fields := t.Fields()
	values := make([][]byte, 0, len(fields))
	n := 0
	for _, f := range fields {
		l := int(f.Length)
		if f.IsVariableLength() {
			if n >= len(b) {
				return nil, 0, fmt.Errorf("%w, length of field %s truncated", ErrMalformedMessage, f)
			}
			l = int(b[n])
			n++
			if l == int(longLengthMarker) {
				if n+2 > len(b) {
					return nil, 0, fmt.Errorf("%w, long length of field %s truncated", ErrMalformedMessage, f)
				}
				l = int(binary.BigEndian.Uint16(b[n : n+2]))
				n += 2
			}
		}
		if n+l > len(b) {
			return nil, 0, fmt.Errorf("%w, value of field %s truncated", ErrMalformedMessage, f)
		}
		values = append(values, b[n:n+l:n+l])
		n += l
	}
	return values, n, nil
}

type TemplateKey struct {
	ObservationDomainId uint32
	TemplateId          uint16
}

func (k TemplateKey) String() string {
	return fmt.Sprintf("%d-%d", k.ObservationDomainId, k.TemplateId)
}

// Decoder decodes IPFIX messages of a single transport session. It learns templates from template
// sets and applies withdrawals, such that data sets of subsequent messages are decoded into records.
// A Decoder is safe for concurrent use.
type Decoder struct {
	mu        sync.Mutex
	templates map[TemplateKey]*Template
}

func NewDecoder() *Decoder {
	return &Decoder{
		templates: make(map[TemplateKey]*Template),
	}
}

// DecodeMessage decodes a single message with a fresh decoder, i.e., only data sets of templates
// announced in the same message are decoded into records
func DecodeMessage(b []byte) (*Message, error) {
	return NewDecoder().Decode(b)
}

// Template returns a template learned by the decoder
func (d *Decoder) Template(observationDomainId uint32, templateId uint16) (*Template, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	t, ok := d.templates[TemplateKey{observationDomainId, templateId}]
	return t, ok
}

// Decode decodes the message at the start of b. Bytes beyond the length announced in the header
// are ignored.
func (d *Decoder) Decode(b []byte) (*Message, error) {
	m, err := decodeHeader(b)
	if err != nil {
		return nil, err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	payload := b[ipfixMessageHeaderLength:m.Length]
	for len(payload) > 0 {
		if len(payload) < setHeaderLength {
			return nil, fmt.Errorf("%w, set header truncated", ErrMalformedMessage)
		}
		h := SetHeader{
			Id:     binary.BigEndian.Uint16(payload[0:2]),
			Length: binary.BigEndian.Uint16(payload[2:4]),
		}
		if int(h.Length) < setHeaderLength || int(h.Length) > len(payload) {
			return nil, fmt.Errorf("%w, set %d has invalid length %d", ErrMalformedMessage, h.Id, h.Length)
		}
		s := Set{
			SetHeader: h,
			Data:      payload[setHeaderLength:h.Length],
		}
		switch {
		case s.IsTemplateSet():
			err = d.decodeTemplateSet(m.ObservationDomainId, &s)
		case s.IsDataSet():
			err = d.decodeDataSet(m.ObservationDomainId, &s)
		default:
			err = fmt.Errorf("%w, set id %d is reserved", ErrMalformedMessage, h.Id)
		}
		if err != nil {
			return nil, err
		}
		m.Sets = append(m.Sets, s)
		payload = payload[h.Length:]
	}
	return m, nil
}

func (d *Decoder) decodeTemplateSet(observationDomainId uint32, s *Set) error {
	options := s.Id == OptionsTemplateSetId
	b := s.Data
	// anything shorter than a withdrawal record is padding
	for len(b) >= withdrawalLength {
		t, n, err := decodeTemplateRecord(b, options)
		if err != nil {
			return err
		}
		b = b[n:]
		s.Templates = append(s.Templates, t)

		if !t.IsWithdrawal() {
			d.templates[TemplateKey{observationDomainId, t.id}] = t
			continue
		}
		if t.id == s.Id {
			// withdrawal of all (options) templates of the observation domain
			for k, known := range d.templates {
				if k.ObservationDomainId == observationDomainId && known.options == options {
					delete(d.templates, k)
				}
			}
			continue
		}
		delete(d.templates, TemplateKey{observationDomainId, t.id})
	}
	return nil
}

func (d *Decoder) decodeDataSet(observationDomainId uint32, s *Set) error {
	t, ok := d.templates[TemplateKey{observationDomainId, s.Id}]
	if !ok {
		// records can only be decoded once the template is known
		return nil
	}
	b := s.Data
	minLength := t.minRecordLength()
	for len(b) > 0 && len(b) >= minLength {
		values, n, err := DecodeRecord(t, b)
		if err != nil {
			return err
		}
		if n == 0 {
			break
		}
		s.Records = append(s.Records, values)
		b = b[n:]
	}
	return nil
}
