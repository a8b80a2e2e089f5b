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

type BufferState int

const (
	// Idle is the state of an empty buffer
	Idle BufferState = iota
	// Accumulating is the state of a buffer holding at least one record
	Accumulating
)

func (s BufferState) String() string {
	switch s {
	case Idle:
		return "idle"
	case Accumulating:
		return "accumulating"
	default:
		return fmt.Sprintf("unknown(%d)", int(s))
	}
}

type dataSet struct {
	id      uint16
	records int
	b       []byte
}

// messageBuffer accumulates the data sets of the next message, one set per Template ID in order of
// the first record
type messageBuffer struct {
	sets  []*dataSet
	index map[uint16]*dataSet

	// length is the number of bytes of all sets including their headers
	length  int
	records int
}

func newMessageBuffer() *messageBuffer {
	return &messageBuffer{
		index: make(map[uint16]*dataSet),
	}
}

func (m *messageBuffer) State() BufferState {
	if m.records == 0 {
		return Idle
	}
	return Accumulating
}

// cost returns the number of bytes adding a record of length n for template id takes
func (m *messageBuffer) cost(id uint16, n int) int {
	if _, ok := m.index[id]; ok {
		return n
	}
	return setHeaderLength + n
}

func (m *messageBuffer) contains(id uint16) bool {
	_, ok := m.index[id]
	return ok
}

// add encodes the record into the set of its template. Values must have been validated with
// recordLength before.
func (m *messageBuffer) add(t *Template, values [][]byte) {
	ds, ok := m.index[t.id]
	if !ok {
		ds = &dataSet{id: t.id}
		m.sets = append(m.sets, ds)
		m.index[t.id] = ds
		m.length += setHeaderLength
	}
	before := len(ds.b)
	ds.b = appendRecord(ds.b, t, values)
	m.length += len(ds.b) - before
	ds.records++
	m.records++
}

// appendSets appends all data sets to b
func (m *messageBuffer) appendSets(b []byte) []byte {
	for _, ds := range m.sets {
		var offset int
		b, offset = beginSet(b, ds.id)
		b = append(b, ds.b...)
		b = endSet(b, offset)
	}
	return b
}

func (m *messageBuffer) reset() {
	m.sets = nil
	clear(m.index)
	m.length = 0
	m.records = 0
}

// outgoing is a single assembled message
type outgoing struct {
	msg       []byte
	templates []*Template
	records   int
}

// assemble builds the messages delivering the templates and the data message next to a single
// collector. Templates go into the data message as long as it stays within limit, the others into
// template-only messages preceding it, which share the data message's sequence number. Without a
// data message, templates are stamped with the given sequence number and export time.
func assemble(observationDomainId uint32, limit int, templates []*Template, next *pendingMessage, sequenceNumber uint32, exportTime uint32) ([]outgoing, error) {
	var body []byte
	records := 0
	if next != nil {
		body = next.body
		records = next.records
		sequenceNumber = next.sequenceNumber
		exportTime = next.exportTime
	}
	if ipfixMessageHeaderLength+len(body) > limit {
		return nil, messageTooLarge(ipfixMessageHeaderLength+len(body), limit)
	}

	budget := limit - ipfixMessageHeaderLength - len(body)
	var inline []*Template
	var groups [][]*Template
	for _, t := range templates {
		if templateSetsLength(append(inline[:len(inline):len(inline)], t)) <= budget {
			inline = append(inline, t)
			continue
		}
		if l := ipfixMessageHeaderLength + templateSetsLength([]*Template{t}); l > limit {
			return nil, fmt.Errorf("template %d does not fit a message, %w", t.id, messageTooLarge(l, limit))
		}
		if n := len(groups); n > 0 && ipfixMessageHeaderLength+templateSetsLength(append(groups[n-1][:len(groups[n-1]):len(groups[n-1])], t)) <= limit {
			groups[n-1] = append(groups[n-1], t)
			continue
		}
		groups = append(groups, []*Template{t})
	}

	out := make([]outgoing, 0, len(groups)+1)
	for _, g := range groups {
		l := ipfixMessageHeaderLength + templateSetsLength(g)
		msg := appendHeader(make([]byte, 0, l), uint16(l), exportTime, sequenceNumber, observationDomainId)
		out = append(out, outgoing{
			msg:       appendTemplateSets(msg, g),
			templates: g,
		})
	}
	if next == nil && len(inline) == 0 {
		return out, nil
	}
	l := ipfixMessageHeaderLength + templateSetsLength(inline) + len(body)
	msg := appendHeader(make([]byte, 0, l), uint16(l), exportTime, sequenceNumber, observationDomainId)
	msg = appendTemplateSets(msg, inline)
	out = append(out, outgoing{
		msg:       append(msg, body...),
		templates: inline,
		records:   records,
	})
	return out, nil
}
