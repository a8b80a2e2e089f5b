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
	"slices"
	"time"
)

// RegistryOptions configures template ID allocation and re-advertisement
type RegistryOptions struct {
	// WrapTemplateIds lets ID allocation continue at 256 once 65535 was handed out, skipping IDs of
	// templates that are still registered or under construction. Without it, allocation fails with
	// ErrTemplateIdsExhausted.
	WrapTemplateIds bool `json:"wrapTemplateIds,omitempty" yaml:"wrapTemplateIds,omitempty"`

	// TemplateRefreshInterval is the period after which templates are sent again to collectors over
	// unreliable transports. Zero disables periodic re-advertisement.
	TemplateRefreshInterval time.Duration `json:"templateRefreshInterval,omitempty" yaml:"templateRefreshInterval,omitempty"`
}

type advertisement struct {
	generation uint64
	at         time.Time
}

// TemplateRegistry owns the templates of an exporting session. It allocates Template IDs, validates
// fields against the field catalog, and tracks which collector received which template on which
// connection.
//
// TemplateRegistry is not safe for concurrent use. Sessions serialize access to it.
type TemplateRegistry struct {
	catalog FieldCatalog
	opts    RegistryOptions

	// next is the ID handed out next before wrapping. It is wider than a Template ID to tell
	// exhaustion apart from 65535.
	next uint32
	// cursor is the position of the wrapping search
	cursor uint32

	pending    map[uint16]*TemplateHandle
	templates  map[uint16]*Template
	advertised map[*Collector]map[uint16]advertisement
}

func NewTemplateRegistry(catalog FieldCatalog, opts RegistryOptions) *TemplateRegistry {
	return &TemplateRegistry{
		catalog:    catalog,
		opts:       opts,
		next:       uint32(MinTemplateId),
		cursor:     uint32(MinTemplateId),
		pending:    make(map[uint16]*TemplateHandle),
		templates:  make(map[uint16]*Template),
		advertised: make(map[*Collector]map[uint16]advertisement),
	}
}

// NewTemplate reserves the next unused Template ID for a new template
func (r *TemplateRegistry) NewTemplate() (*TemplateHandle, error) {
	return r.newHandle(false)
}

// NewOptionsTemplate reserves the next unused Template ID for a new options template. Options
// templates need at least one scope field.
func (r *TemplateRegistry) NewOptionsTemplate() (*TemplateHandle, error) {
	return r.newHandle(true)
}

func (r *TemplateRegistry) newHandle(options bool) (*TemplateHandle, error) {
	id, err := r.allocateId()
	if err != nil {
		return nil, err
	}
	h := &TemplateHandle{
		id:      id,
		options: options,
	}
	r.pending[id] = h
	return h, nil
}

func (r *TemplateRegistry) inUse(id uint16) bool {
	if _, ok := r.templates[id]; ok {
		return true
	}
	_, ok := r.pending[id]
	return ok
}

func (r *TemplateRegistry) allocateId() (uint16, error) {
	if r.next <= uint32(MaxTemplateId) {
		id := uint16(r.next)
		r.next++
		return id, nil
	}
	if !r.opts.WrapTemplateIds {
		return 0, ErrTemplateIdsExhausted
	}
	span := uint32(MaxTemplateId) - uint32(MinTemplateId) + 1
	for i := uint32(0); i < span; i++ {
		id := uint16(uint32(MinTemplateId) + (r.cursor-uint32(MinTemplateId)+i)%span)
		if !r.inUse(id) {
			r.cursor = uint32(id) + 1
			if r.cursor > uint32(MaxTemplateId) {
				r.cursor = uint32(MinTemplateId)
			}
			return id, nil
		}
	}
	return 0, ErrTemplateIdsExhausted
}

// AddField appends a field to the template under construction. The declared length must be
// accepted by the field's catalog entry, see FieldType.Accepts.
func (r *TemplateRegistry) AddField(h *TemplateHandle, enterpriseId uint32, fieldId uint16, length uint16) error {
	f, err := r.validate(h, enterpriseId, fieldId, length)
	if err != nil {
		return err
	}
	h.fields = append(h.fields, f)
	return nil
}

// AddScopeField appends a scope field to an options template under construction
func (r *TemplateRegistry) AddScopeField(h *TemplateHandle, enterpriseId uint32, fieldId uint16, length uint16) error {
	if !h.options {
		return fmt.Errorf("template %d is not an options template", h.id)
	}
	f, err := r.validate(h, enterpriseId, fieldId, length)
	if err != nil {
		return err
	}
	h.scopeFields = append(h.scopeFields, f)
	return nil
}

func (r *TemplateRegistry) validate(h *TemplateHandle, enterpriseId uint32, fieldId uint16, length uint16) (FieldSpec, error) {
	if h.sealed {
		return FieldSpec{}, fmt.Errorf("%w, cannot add field %d/%d to template %d", ErrTemplateSealed, enterpriseId, fieldId, h.id)
	}
	if !r.owns(h) {
		return FieldSpec{}, templateNotFound(h.id)
	}
	if fieldId&penMask != 0 {
		// the enterprise bit is set by the encoder, ids are 15 bit
		return FieldSpec{}, unknownField(enterpriseId, fieldId)
	}
	ft, err := r.catalog.Lookup(enterpriseId, fieldId)
	if err != nil {
		return FieldSpec{}, err
	}
	if !ft.Accepts(length) {
		return FieldSpec{}, fieldLengthMismatch(enterpriseId, fieldId, ft.String(), int(length))
	}
	return FieldSpec{
		EnterpriseId: enterpriseId,
		Id:           fieldId,
		Length:       length,
	}, nil
}

// owns reports whether h is pending in this registry. Handles that were discarded or that belong
// to another registry with a colliding ID are not.
func (r *TemplateRegistry) owns(h *TemplateHandle) bool {
	p, ok := r.pending[h.id]
	return ok && p == h
}

// Seal finalizes the template and registers it under its ID
func (r *TemplateRegistry) Seal(h *TemplateHandle) (*Template, error) {
	if h.sealed {
		return nil, fmt.Errorf("%w, template %d was already sealed", ErrTemplateSealed, h.id)
	}
	if len(h.fields)+len(h.scopeFields) == 0 {
		return nil, fmt.Errorf("%w, template %d has no fields", ErrEmptyTemplate, h.id)
	}
	if h.options && len(h.scopeFields) == 0 {
		return nil, fmt.Errorf("%w, options template %d has no scope fields", ErrEmptyTemplate, h.id)
	}
	if !r.owns(h) {
		return nil, templateNotFound(h.id)
	}
	h.sealed = true
	t := &Template{
		id:          h.id,
		options:     h.options,
		scopeFields: slices.Clone(h.scopeFields),
		fields:      slices.Clone(h.fields),
	}
	delete(r.pending, h.id)
	r.templates[h.id] = t
	return t, nil
}

// Discard releases the ID reserved by a template handle that was not sealed
func (r *TemplateRegistry) Discard(h *TemplateHandle) {
	if h.sealed || !r.owns(h) {
		return
	}
	delete(r.pending, h.id)
	h.sealed = true
}

// Get returns the registered template with the given ID
func (r *TemplateRegistry) Get(id uint16) (*Template, error) {
	t, ok := r.templates[id]
	if !ok {
		return nil, templateNotFound(id)
	}
	return t, nil
}

// Templates returns all registered templates ordered by ID
func (r *TemplateRegistry) Templates() []*Template {
	ts := make([]*Template, 0, len(r.templates))
	for _, t := range r.templates {
		ts = append(ts, t)
	}
	slices.SortFunc(ts, func(a, b *Template) int {
		return int(a.id) - int(b.id)
	})
	return ts
}

// Delete removes the template from the registry. Records encoded before remain valid. Its ID becomes
// available to allocation once IDs wrap.
func (r *TemplateRegistry) Delete(id uint16) (*Template, error) {
	t, ok := r.templates[id]
	if !ok {
		return nil, templateNotFound(id)
	}
	delete(r.templates, id)
	for _, adv := range r.advertised {
		delete(adv, id)
	}
	return t, nil
}

// NeedsReadvertisement returns true if the collector never received the template on its current
// connection, or if the collector uses UDP and the refresh interval has elapsed since the template
// was last sent.
func (r *TemplateRegistry) NeedsReadvertisement(c *Collector, id uint16, now time.Time) bool {
	adv, ok := r.advertised[c][id]
	if !ok {
		return true
	}
	if adv.generation != c.Generation() {
		return true
	}
	if c.Kind() == UDP && r.opts.TemplateRefreshInterval > 0 {
		return now.Sub(adv.at) >= r.opts.TemplateRefreshInterval
	}
	return false
}

// Advertised reports whether the collector received the template on its current connection
func (r *TemplateRegistry) Advertised(c *Collector, id uint16) bool {
	adv, ok := r.advertised[c][id]
	return ok && adv.generation == c.Generation()
}

// Due returns the templates the collector needs to be sent, ordered by ID
func (r *TemplateRegistry) Due(c *Collector, now time.Time) []*Template {
	var due []*Template
	for _, t := range r.Templates() {
		if r.NeedsReadvertisement(c, t.id, now) {
			due = append(due, t)
		}
	}
	return due
}

// MarkAdvertised records that the collector received the template at now
func (r *TemplateRegistry) MarkAdvertised(c *Collector, id uint16, now time.Time) {
	adv, ok := r.advertised[c]
	if !ok {
		adv = make(map[uint16]advertisement)
		r.advertised[c] = adv
	}
	adv[id] = advertisement{
		generation: c.Generation(),
		at:         now,
	}
}

// Forget drops all advertisement state of a collector
func (r *TemplateRegistry) Forget(c *Collector) {
	delete(r.advertised, c)
}

// Reset removes all templates, pending handles and advertisement state
func (r *TemplateRegistry) Reset() {
	for _, h := range r.pending {
		h.sealed = true
	}
	clear(r.pending)
	clear(r.templates)
	clear(r.advertised)
}
