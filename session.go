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
	"errors"
	"fmt"
	"slices"
	"sync"
	"sync/atomic"
	"time"
)

const (
	flushReasonExplicit = "explicit"
	flushReasonFull     = "full"
	flushReasonBound    = "bound"
	flushReasonDelete   = "delete"
	flushReasonClose    = "close"
)

// Session is an exporting process for a single observation domain. It owns the templates, the
// collectors and the buffer of the next message.
//
// All methods are safe for concurrent use and serialized by a single mutex. Export and Flush
// deliver messages synchronously and block until every collector's transport accepted or
// rejected them, including reconnect backoff.
type Session struct {
	mu sync.Mutex

	observationDomainId uint32
	opts                Options
	clock               func() time.Time

	registry   *TemplateRegistry
	collectors []*Collector
	buffer     *messageBuffer

	sequenceNumber uint32

	// typeInformation is the options template of ExportTypeInformation
	typeInformation *Template

	// ctx is cancelled on Close to abort in-flight backoff
	ctx     context.Context
	cancel  context.CancelFunc
	closing atomic.Bool
}

// NewSession creates an exporting session with the given observation domain ID (source ID).
// Options are merged onto DefaultOptions.
func NewSession(observationDomainId uint32, opts ...Options) *Session {
	o := DefaultOptions()
	o.Merge(opts...)
	if o.Catalog == nil {
		o.Catalog = DefaultFieldCatalog()
	}
	clock := o.Clock
	if clock == nil {
		clock = time.Now
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Session{
		observationDomainId: observationDomainId,
		opts:                o,
		clock:               clock,
		registry:            NewTemplateRegistry(o.Catalog, o.Registry),
		buffer:              newMessageBuffer(),
		ctx:                 ctx,
		cancel:              cancel,
	}
}

func (s *Session) ObservationDomainId() uint32 {
	return s.observationDomainId
}

// SequenceNumber returns the sequence number of the next message
func (s *Session) SequenceNumber() uint32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sequenceNumber
}

func (s *Session) State() BufferState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.buffer.State()
}

func (s *Session) Collectors() []*Collector {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.collectors)
}

// lock acquires the session mutex unless the session is closing
func (s *Session) lock() error {
	s.mu.Lock()
	if s.closing.Load() {
		s.mu.Unlock()
		return ErrSessionClosing
	}
	return nil
}

// withSession derives a context for transport operations. It carries the session's logger and is
// cancelled with ErrSessionClosing once the session starts closing.
func (s *Session) withSession(ctx context.Context) (context.Context, context.CancelFunc) {
	ctx = IntoContext(ctx, FromContext(ctx, "observationDomainId", s.observationDomainId))
	ctx, cancel := context.WithCancelCause(ctx)
	stop := context.AfterFunc(s.ctx, func() {
		cancel(ErrSessionClosing)
	})
	return ctx, func() {
		stop()
		cancel(nil)
	}
}

// AddCollector resolves host and registers a collector using a transport of the given kind. TCP
// and SCTP collectors are connected right away. If that fails, the collector is registered anyway
// and returned together with an ErrConnectionRefused error, and connecting is retried on the next
// flush.
func (s *Session) AddCollector(ctx context.Context, host string, port uint16, kind TransportKind) (*Collector, error) {
	addr, err := resolve(ctx, host, port)
	if err != nil {
		return nil, err
	}
	t, err := newTransport(kind, addr, s.opts)
	if err != nil {
		return nil, err
	}
	return s.AddTransport(ctx, hostPort(host, port), kind, t)
}

// AddTransport registers a collector using a caller-provided transport. The kind determines
// whether failed messages are retried and whether templates are refreshed periodically.
func (s *Session) AddTransport(ctx context.Context, name string, kind TransportKind, t Transport) (*Collector, error) {
	if err := s.lock(); err != nil {
		return nil, err
	}
	defer s.mu.Unlock()

	ctx, cancel := s.withSession(ctx)
	defer cancel()
	logger := FromContext(ctx)

	// buffered records must fit every collector's bound, including the new one
	if s.buffer.State() == Accumulating && ipfixMessageHeaderLength+s.buffer.length > min(s.maxMessageSize(), t.MaxMessageSize()) {
		if err := s.flush(ctx, flushReasonBound); err != nil {
			return nil, err
		}
	}

	c := newCollector(name, kind, t, s.opts.MaxPendingMessages)
	s.collectors = append(s.collectors, c)
	CollectorsActive.Inc()

	if err := c.connect(ctx); err != nil {
		logger.Error(err, "failed to connect to collector, retrying on next flush", "collector", c)
		return c, err
	}
	logger.V(1).Info("added collector", "collector", c, "maxMessageSize", t.MaxMessageSize())
	return c, nil
}

// RemoveCollector closes the collector's transport and removes it from the session. Messages
// queued for retrying are discarded.
func (s *Session) RemoveCollector(c *Collector) error {
	if err := s.lock(); err != nil {
		return err
	}
	defer s.mu.Unlock()

	i := slices.Index(s.collectors, c)
	if i < 0 {
		return fmt.Errorf("collector %s is not registered", c)
	}
	s.collectors = slices.Delete(s.collectors, i, i+1)
	s.registry.Forget(c)
	CollectorsActive.Dec()

	if n := len(c.dequeue()); n > 0 {
		Log.Info("discarding undelivered messages of removed collector", "collector", c, "messages", n)
		DroppedMessagesTotal.WithLabelValues(c.kind.String()).Add(float64(n))
	}
	return c.transport.Close()
}

// maxMessageSize is the smallest bound of all collectors, such that every message fits all of them
func (s *Session) maxMessageSize() int {
	limit := s.opts.MaxMessageSize
	for _, c := range s.collectors {
		limit = min(limit, c.transport.MaxMessageSize())
	}
	return limit
}

// NewTemplate reserves a Template ID for a new template
func (s *Session) NewTemplate() (*TemplateHandle, error) {
	if err := s.lock(); err != nil {
		return nil, err
	}
	defer s.mu.Unlock()
	return s.registry.NewTemplate()
}

// NewOptionsTemplate reserves a Template ID for a new options template
func (s *Session) NewOptionsTemplate() (*TemplateHandle, error) {
	if err := s.lock(); err != nil {
		return nil, err
	}
	defer s.mu.Unlock()
	return s.registry.NewOptionsTemplate()
}

// AddField appends a field to a template that is not sealed yet. Use VariableLength as length for
// variable-length encoding.
func (s *Session) AddField(h *TemplateHandle, enterpriseId uint32, fieldId uint16, length uint16) error {
	if err := s.lock(); err != nil {
		return err
	}
	defer s.mu.Unlock()
	return s.registry.AddField(h, enterpriseId, fieldId, length)
}

func (s *Session) AddScopeField(h *TemplateHandle, enterpriseId uint32, fieldId uint16, length uint16) error {
	if err := s.lock(); err != nil {
		return err
	}
	defer s.mu.Unlock()
	return s.registry.AddScopeField(h, enterpriseId, fieldId, length)
}

// Seal finalizes the template. It is sent to every collector with the next flush.
func (s *Session) Seal(h *TemplateHandle) (*Template, error) {
	if err := s.lock(); err != nil {
		return nil, err
	}
	defer s.mu.Unlock()
	t, err := s.registry.Seal(h)
	if err != nil {
		return nil, err
	}
	Log.V(1).Info("sealed template", "observationDomainId", s.observationDomainId, "template", t)
	return t, nil
}

// Templates returns the registered templates ordered by ID
func (s *Session) Templates() []*Template {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.registry.Templates()
}

// DeleteTemplate removes a template. Buffered records of the template are flushed first. Reliable
// collectors that received the template are sent a Template Withdrawal.
//
// A withdrawal that fails is reported but not queued for retrying. A failed send tears down the
// connection of stream transports, and the collector drops all templates of that transport
// session anyway. A withdrawal of a template the new connection never carried is a protocol error
// for collectors, see RFC 7011 Section 8.
func (s *Session) DeleteTemplate(ctx context.Context, id uint16) error {
	if err := s.lock(); err != nil {
		return err
	}
	defer s.mu.Unlock()

	t, err := s.registry.Get(id)
	if err != nil {
		return err
	}

	ctx, cancel := s.withSession(ctx)
	defer cancel()

	if s.buffer.contains(id) {
		if err := s.flush(ctx, flushReasonDelete); err != nil {
			return err
		}
	}

	var recipients []*Collector
	for _, c := range s.collectors {
		if c.kind.Reliable() && s.registry.Advertised(c, id) {
			recipients = append(recipients, c)
		}
	}
	if _, err := s.registry.Delete(id); err != nil {
		return err
	}
	if len(recipients) == 0 {
		return nil
	}

	sequenceNumber := s.sequenceNumber
	s.sequenceNumber++
	l := ipfixMessageHeaderLength + setHeaderLength + withdrawalLength
	msg := appendHeader(make([]byte, 0, l), uint16(l), uint32(s.clock().Unix()), sequenceNumber, s.observationDomainId)
	msg = appendWithdrawalSets(msg, []*Template{t})

	var errs []CollectorError
	for _, c := range recipients {
		if err := c.transport.Send(ctx, msg); err != nil {
			SendErrorsTotal.WithLabelValues(c.kind.String()).Inc()
			errs = append(errs, CollectorError{Collector: c, Err: err})
			continue
		}
		s.sent(c, msg, 0)
	}
	if len(errs) > 0 {
		return &FlushError{SequenceNumber: sequenceNumber, Errors: errs}
	}
	return nil
}

// Export encodes a data record of template t and adds it to the buffer. If the record does not fit
// the current message anymore, the buffer is flushed first. If that flush fails, the record is not
// added and the flush error is returned. Schema errors leave the buffer unchanged.
//
// Values must be in network byte order, see EncodeRecord. They are copied, such that callers may
// reuse them right after Export returns.
func (s *Session) Export(ctx context.Context, t *Template, values ...[]byte) error {
	if err := s.lock(); err != nil {
		return err
	}
	defer s.mu.Unlock()

	if t == nil {
		return fmt.Errorf("%w, template is nil", ErrTemplateNotFound)
	}
	if registered, ok := s.registry.templates[t.id]; !ok || registered != t {
		return templateNotFound(t.id)
	}
	n, err := recordLength(t, values)
	if err != nil {
		return err
	}

	limit := s.maxMessageSize()
	if l := ipfixMessageHeaderLength + setHeaderLength + n; l > limit {
		return fmt.Errorf("record of template %d does not fit a message, %w", t.id, messageTooLarge(l, limit))
	}
	if ipfixMessageHeaderLength+s.buffer.length+s.buffer.cost(t.id, n) > limit {
		ctx, cancel := s.withSession(ctx)
		defer cancel()
		if err := s.flush(ctx, flushReasonFull); err != nil {
			return err
		}
	}

	s.buffer.add(t, values)
	RecordsTotal.Inc()
	return nil
}

// Flush assembles the buffered records into a message and sends it to every collector, preceded
// by the templates each collector still needs. Messages previously failed on reliable transports
// are sent first. A flush without records and templates to send does nothing.
//
// The message consumes one sequence number regardless of the delivery outcome. Templates that do
// not fit the message are sent in template-only messages right before it, which carry the same
// sequence number, such that every flush advances the sequence number by exactly one. Delivery failures
// are reported as *FlushError listing the failed collectors. Delivery to the other collectors is
// attempted in any case.
func (s *Session) Flush(ctx context.Context) error {
	if err := s.lock(); err != nil {
		return err
	}
	defer s.mu.Unlock()

	ctx, cancel := s.withSession(ctx)
	defer cancel()
	return s.flush(ctx, flushReasonExplicit)
}

func (s *Session) flush(ctx context.Context, reason string) error {
	logger := FromContext(ctx)
	now := s.clock()

	var data *pendingMessage
	if s.buffer.State() == Accumulating {
		data = &pendingMessage{
			records: s.buffer.records,
			body:    s.buffer.appendSets(make([]byte, 0, s.buffer.length)),
		}
	}
	s.buffer.reset()

	connectErrs := make(map[*Collector]error)
	templatesDue, retriesDue := false, false
	for _, c := range s.collectors {
		if err := c.connect(ctx); err != nil {
			connectErrs[c] = err
		}
		if len(s.registry.Due(c, now)) > 0 {
			templatesDue = true
		}
		if c.Pending() > 0 {
			retriesDue = true
		}
	}
	if data == nil && !templatesDue && !retriesDue {
		return nil
	}
	if len(s.collectors) == 0 && data != nil {
		logger.Info("no collectors registered, discarding records", "records", data.records)
	}

	sequenceNumber := s.sequenceNumber
	exportTime := uint32(now.Unix())
	if data != nil || templatesDue {
		s.sequenceNumber++
	}
	if data != nil {
		data.sequenceNumber = sequenceNumber
		data.exportTime = exportTime
	}
	FlushesTotal.WithLabelValues(reason).Inc()

	var errs []CollectorError
	for _, c := range s.collectors {
		queue := c.dequeue()
		if data != nil {
			queue = append(queue, *data)
		}
		var err error
		if cerr, ok := connectErrs[c]; ok {
			err = s.failed(c, queue, cerr)
		} else {
			err = s.deliver(ctx, c, queue, sequenceNumber, exportTime, now)
		}
		if err != nil {
			logger.Error(err, "failed to deliver message", "collector", c, "sequenceNumber", sequenceNumber)
			errs = append(errs, CollectorError{Collector: c, Err: err})
		}
	}

	logger.V(3).Info("flushed message", "reason", reason, "sequenceNumber", sequenceNumber, "collectors", len(s.collectors), "failed", len(errs))
	if len(errs) > 0 {
		return &FlushError{SequenceNumber: sequenceNumber, Errors: errs}
	}
	return nil
}

// deliver sends the queued data messages to the collector, preceded by the templates it needs. A
// connection reset restarts the current message once, so that the templates reach the new
// connection first.
func (s *Session) deliver(ctx context.Context, c *Collector, queue []pendingMessage, sequenceNumber uint32, exportTime uint32, now time.Time) error {
	limit := c.transport.MaxMessageSize()
	resets := 0
	advertise := true

	for i := 0; i < len(queue) || advertise; {
		var next *pendingMessage
		if i < len(queue) {
			next = &queue[i]
		}
		var templates []*Template
		if advertise {
			templates = s.registry.Due(c, now)
			advertise = false
		}
		if next == nil && len(templates) == 0 {
			return nil
		}

		out, err := assemble(s.observationDomainId, limit, templates, next, sequenceNumber, exportTime)
		if err != nil {
			return s.failed(c, queue[i:], err)
		}

		reset := false
		for _, o := range out {
			err := c.transport.Send(ctx, o.msg)
			if errors.Is(err, ErrConnectionReset) && resets == 0 {
				resets++
				reset = true
				FromContext(ctx).V(1).Info("connection was reset, sending templates again", "collector", c)
				break
			}
			if err != nil {
				SendErrorsTotal.WithLabelValues(c.kind.String()).Inc()
				return s.failed(c, queue[i:], err)
			}
			s.sent(c, o.msg, o.records)
			for _, t := range o.templates {
				s.registry.MarkAdvertised(c, t.id, now)
			}
			TemplatesSentTotal.Add(float64(len(o.templates)))
		}
		if reset {
			advertise = true
			continue
		}
		if next == nil {
			return nil
		}
		i++
	}
	return nil
}

func (s *Session) sent(c *Collector, msg []byte, records int) {
	MessagesTotal.WithLabelValues(c.kind.String()).Inc()
	BytesTotal.WithLabelValues(c.kind.String()).Add(float64(len(msg)))
	Log.V(3).Info("sent message", "collector", c, "length", len(msg), "records", records)
}

// failed keeps the messages for retrying if the collector's transport is reliable and returns err,
// joined with ErrPendingOverflow if messages had to be evicted. Messages to unreliable transports
// are dropped.
func (s *Session) failed(c *Collector, msgs []pendingMessage, err error) error {
	if len(msgs) == 0 {
		return err
	}
	if !c.kind.Reliable() {
		DroppedMessagesTotal.WithLabelValues(c.kind.String()).Add(float64(len(msgs)))
		return err
	}
	if evicted := c.enqueue(msgs...); evicted > 0 {
		DroppedMessagesTotal.WithLabelValues(c.kind.String()).Add(float64(evicted))
		return errors.Join(err, fmt.Errorf("%w, evicted %d messages", ErrPendingOverflow, evicted))
	}
	return err
}

// Close stops the session. In-flight reconnect backoff is aborted with ErrSessionClosing. Close then
// flushes the buffer a last time, closes all transports and clears all templates. Messages that
// could not be delivered are reported. Closing twice fails with ErrDoubleClose.
func (s *Session) Close(ctx context.Context) error {
	if !s.closing.CompareAndSwap(false, true) {
		return ErrDoubleClose
	}
	s.cancel()

	s.mu.Lock()
	defer s.mu.Unlock()

	var errs []error
	if err := s.flush(IntoContext(ctx, FromContext(ctx, "observationDomainId", s.observationDomainId)), flushReasonClose); err != nil {
		errs = append(errs, err)
	}
	for _, c := range s.collectors {
		if n := len(c.dequeue()); n > 0 {
			DroppedMessagesTotal.WithLabelValues(c.kind.String()).Add(float64(n))
			errs = append(errs, CollectorError{Collector: c, Err: fmt.Errorf("%w, %d messages undelivered", ErrSessionClosing, n)})
		}
		if err := c.transport.Close(); err != nil {
			errs = append(errs, CollectorError{Collector: c, Err: err})
		}
		CollectorsActive.Dec()
	}
	s.collectors = nil
	s.registry.Reset()
	s.buffer.reset()

	Log.V(1).Info("closed session", "observationDomainId", s.observationDomainId, "sequenceNumber", s.sequenceNumber)
	return errors.Join(errs...)
}
