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
	"fmt"
	"strings"
)

var (
	// ErrSchema is the class of all errors caused by templates or records not matching each other
	// or the field catalog. These are always caller bugs, are never retried, and never change
	// session state.
	ErrSchema = errors.New("schema error")
	// ErrTransport is the class of all errors caused while resolving, connecting to or sending to
	// a collector.
	ErrTransport = errors.New("transport error")
	// ErrSession is the class of errors caused by using a session out of its lifecycle order.
	ErrSession = errors.New("session error")
)

var (
	// ErrUnknownField indicates a (enterprise number, field id) pair missing from the field catalog
	ErrUnknownField error = &classError{class: ErrSchema, msg: "unknown field"}
	// ErrFieldLengthMismatch is returned when a declared or supplied length does not satisfy
	// the length policy of a field
	ErrFieldLengthMismatch error = &classError{class: ErrSchema, msg: "field length mismatch"}
	// ErrEmptyTemplate is returned when sealing a template without any fields
	ErrEmptyTemplate error = &classError{class: ErrSchema, msg: "empty template"}
	// ErrTemplateSealed is returned when modifying a template that was already sealed
	ErrTemplateSealed error = &classError{class: ErrSchema, msg: "template sealed"}
	// ErrArityMismatch is returned when the number of values differs from the number of template fields
	ErrArityMismatch error = &classError{class: ErrSchema, msg: "arity mismatch"}
	// ErrTemplateNotFound is returned for template IDs not (or no longer) registered in a session
	ErrTemplateNotFound error = &classError{class: ErrSchema, msg: "template not found"}
	// ErrTemplateIdsExhausted is returned when no Template ID in [256, 65535] is available
	ErrTemplateIdsExhausted error = &classError{class: ErrSchema, msg: "template ids exhausted"}

	// ErrAddressResolution indicates that a collector's host could not be resolved
	ErrAddressResolution error = &classError{class: ErrTransport, msg: "address resolution failed"}
	// ErrConnectionRefused indicates that the initial connection to a collector failed. The collector
	// stays registered and is retried on the next send.
	ErrConnectionRefused error = &classError{class: ErrTransport, msg: "connection refused"}
	// ErrCollectorUnreachable is returned when reconnecting exhausted the backoff budget
	ErrCollectorUnreachable error = &classError{class: ErrTransport, msg: "collector unreachable"}
	// ErrMessageTooLarge is returned for messages exceeding a transport's maximum message size
	ErrMessageTooLarge error = &classError{class: ErrTransport, msg: "message too large"}
	// ErrPendingOverflow reports messages evicted from a collector's retry queue
	ErrPendingOverflow error = &classError{class: ErrTransport, msg: "pending message queue overflow"}
	// ErrTransportUnsupported is returned for transport kinds not available on the platform
	ErrTransportUnsupported error = &classError{class: ErrTransport, msg: "transport unsupported"}
	// ErrConnectionReset is returned by stream transports whose connection broke during a send and
	// was re-established. The message was not written to the new connection, which first needs
	// the templates again.
	ErrConnectionReset error = &classError{class: ErrTransport, msg: "connection reset"}
	// ErrSendFailed wraps errors of writing a message to a transport
	ErrSendFailed error = &classError{class: ErrTransport, msg: "send failed"}

	// ErrSessionClosing is returned for operations on a session that is closing or closed
	ErrSessionClosing error = &classError{class: ErrSession, msg: "session closing"}
	// ErrDoubleClose is returned when closing a session twice
	ErrDoubleClose error = &classError{class: ErrSession, msg: "session already closed"}

	// ErrUnknownVersion indicates an illegal version number for IPFIX in the header of the message.
	ErrUnknownVersion error = errors.New("unknown version")
	// ErrMalformedMessage is used by the decoder for truncated or inconsistent messages
	ErrMalformedMessage error = errors.New("malformed message")
)

// classError is a sentinel error that additionally matches its error class in errors.Is,
// such that errors.Is(ErrUnknownField, ErrSchema) holds.
type classError struct {
	class error
	msg   string
}

func (e *classError) Error() string {
	return e.msg
}

func (e *classError) Is(target error) bool {
	return target == e.class
}

func unknownField(enterpriseId uint32, fieldId uint16) error {
	return fmt.Errorf("%w %d/%d", ErrUnknownField, enterpriseId, fieldId)
}

func fieldLengthMismatch(enterpriseId uint32, fieldId uint16, expected string, found int) error {
	return fmt.Errorf("%w for %d/%d, expected %s, found %d", ErrFieldLengthMismatch, enterpriseId, fieldId, expected, found)
}

func templateNotFound(templateId uint16) error {
	return fmt.Errorf("%w for id %d", ErrTemplateNotFound, templateId)
}

func messageTooLarge(length, limit int) error {
	return fmt.Errorf("%w, %d bytes exceed limit of %d bytes", ErrMessageTooLarge, length, limit)
}

// CollectorError associates a transport error with the collector it occurred for.
type CollectorError struct {
	Collector *Collector
	Err       error
}

func (e CollectorError) Error() string {
	return fmt.Sprintf("collector %s: %v", e.Collector, e.Err)
}

func (e CollectorError) Unwrap() error {
	return e.Err
}

// FlushError is returned by Flush (and by Export when an implicit flush fails) if delivery to at
// least one collector failed. Delivery to the remaining collectors was still attempted.
type FlushError struct {
	SequenceNumber uint32
	Errors         []CollectorError
}

func (e *FlushError) Error() string {
	s := make([]string, 0, len(e.Errors))
	for _, ce := range e.Errors {
		s = append(s, ce.Error())
	}
	return fmt.Sprintf("flush of message %d failed for %d collector(s): %s", e.SequenceNumber, len(e.Errors), strings.Join(s, "; "))
}

// Unwrap allows errors.Is(err, ErrCollectorUnreachable) and friends on the aggregate error
func (e *FlushError) Unwrap() []error {
	errs := make([]error, 0, len(e.Errors))
	for _, ce := range e.Errors {
		errs = append(errs, ce)
	}
	return errs
}

// Failed returns the collectors delivery failed for
func (e *FlushError) Failed() []*Collector {
	cs := make([]*Collector, 0, len(e.Errors))
	for _, ce := range e.Errors {
		cs = append(cs, ce.Collector)
	}
	return cs
}
