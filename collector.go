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
	"fmt"
	"sync"
	"sync/atomic"
)

// Collector is a registered receiver of the messages of a session
type Collector struct {
	name      string
	kind      TransportKind
	transport Transport

	// generation counts connections of transports that do not count them themselves
	generation atomic.Uint64

	// pending holds data messages that failed to be delivered over a reliable transport, oldest first
	mu         sync.Mutex
	pending    []pendingMessage
	maxPending int
}

// pendingMessage is a message without its header and templates, which are assembled on every
// delivery attempt
type pendingMessage struct {
	sequenceNumber uint32
	exportTime     uint32
	records        int
	body           []byte
}

func newCollector(name string, kind TransportKind, t Transport, maxPending int) *Collector {
	return &Collector{
		name:       name,
		kind:       kind,
		transport:  t,
		maxPending: maxPending,
	}
}

func (c *Collector) String() string {
	return fmt.Sprintf("%s://%s", c.kind, c.name)
}

func (c *Collector) Name() string {
	return c.name
}

func (c *Collector) Kind() TransportKind {
	return c.kind
}

func (c *Collector) Transport() Transport {
	return c.transport
}

// Generation identifies the collector's current connection. Templates are sent again whenever it
// changes.
func (c *Collector) Generation() uint64 {
	if g, ok := c.transport.(Generational); ok {
		return g.Generation()
	}
	return c.generation.Load()
}

// Pending returns the number of messages queued for retrying
func (c *Collector) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.pending)
}

// connect connects the transport. Transports that do not count their connections start a new
// generation on the first successful connect.
func (c *Collector) connect(ctx context.Context) error {
	if err := c.transport.Connect(ctx); err != nil {
		return err
	}
	if _, ok := c.transport.(Generational); !ok {
		c.generation.CompareAndSwap(0, 1)
	}
	return nil
}

// enqueue appends messages to the retry queue, evicting the oldest ones beyond the bound. It
// returns the number of evicted messages.
func (c *Collector) enqueue(msgs ...pendingMessage) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pending = append(c.pending, msgs...)
	evicted := 0
	if over := len(c.pending) - c.maxPending; over > 0 {
		evicted = over
		c.pending = append([]pendingMessage(nil), c.pending[over:]...)
	}
	PendingMessages.WithLabelValues(c.String()).Set(float64(len(c.pending)))
	return evicted
}

func (c *Collector) dequeue() []pendingMessage {
	c.mu.Lock()
	defer c.mu.Unlock()
	p := c.pending
	c.pending = nil
	PendingMessages.WithLabelValues(c.String()).Set(0)
	return p
}
