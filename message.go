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
	"strings"

	"github.com/zoomoid/go-ipfix-exporter/iana/version"
)

// Message is a decoded IPFIX message
type Message struct {
	Version             version.ProtocolVersion `json:"-" yaml:"-"`
	Length              uint16                  `json:"length,omitempty" yaml:"length,omitempty"`
	ExportTime          uint32                  `json:"export_time,omitempty" yaml:"exportTime,omitempty"`
	SequenceNumber      uint32                  `json:"sequence_number,omitempty" yaml:"sequenceNumber,omitempty"`
	ObservationDomainId uint32                  `json:"observation_domain_id,omitempty" yaml:"observationDomainId,omitempty"`
	Sets                []Set                   `json:"sets,omitempty" yaml:"sets,omitempty"`
}

func (m *Message) String() string {
	sets := make([]string, 0, len(m.Sets))
	for _, s := range m.Sets {
		sets = append(sets, s.String())
	}
	return fmt.Sprintf("<v=%s,len=%d,seq=%d,odid=%d>[%s]", m.Version, m.Length, m.SequenceNumber, m.ObservationDomainId, strings.Join(sets, " "))
}

// TemplateSets returns the template and options template sets of the message
func (m *Message) TemplateSets() []Set {
	var sets []Set
	for _, s := range m.Sets {
		if s.IsTemplateSet() {
			sets = append(sets, s)
		}
	}
	return sets
}

// DataSets returns the data sets of the message
func (m *Message) DataSets() []Set {
	var sets []Set
	for _, s := range m.Sets {
		if s.IsDataSet() {
			sets = append(sets, s)
		}
	}
	return sets
}

// appendHeader appends the 16 byte message header of RFC 7011 Section 3.1
func appendHeader(b []byte, length uint16, exportTime uint32, sequenceNumber uint32, observationDomainId uint32) []byte {
	b = binary.BigEndian.AppendUint16(b, uint16(version.IPFIX))
	b = binary.BigEndian.AppendUint16(b, length)
	b = binary.BigEndian.AppendUint32(b, exportTime)
	b = binary.BigEndian.AppendUint32(b, sequenceNumber)
	return binary.BigEndian.AppendUint32(b, observationDomainId)
}

func decodeHeader(b []byte) (*Message, error) {
	if len(b) < ipfixMessageHeaderLength {
		return nil, fmt.Errorf("%w, %d bytes are too short for a message header", ErrMalformedMessage, len(b))
	}
	m := &Message{
		Version:             version.ProtocolVersion(binary.BigEndian.Uint16(b[0:2])),
		Length:              binary.BigEndian.Uint16(b[2:4]),
		ExportTime:          binary.BigEndian.Uint32(b[4:8]),
		SequenceNumber:      binary.BigEndian.Uint32(b[8:12]),
		ObservationDomainId: binary.BigEndian.Uint32(b[12:16]),
	}
	if !m.Version.Valid() {
		return nil, fmt.Errorf("%w %d", ErrUnknownVersion, m.Version)
	}
	if int(m.Length) < ipfixMessageHeaderLength || int(m.Length) > len(b) {
		return nil, fmt.Errorf("%w, message length %d does not match %d bytes", ErrMalformedMessage, m.Length, len(b))
	}
	return m, nil
}
