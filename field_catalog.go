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
	"sort"
	"strconv"
	"strings"
)

// FieldCatalog resolves field specifiers to their length policy and value kind. Implementations
// must be safe for concurrent reads.
type FieldCatalog interface {
	// Lookup returns the field type of the information element identified by the enterprise
	// number and the field id. If the pair is not known to the catalog, an error wrapping
	// ErrUnknownField is returned.
	Lookup(enterpriseId uint32, fieldId uint16) (FieldType, error)

	// Get returns the full information element, or an error wrapping ErrUnknownField
	Get(key FieldKey) (*InformationElement, error)
}

type FieldKey struct {
	EnterpriseId uint32
	Id           uint16
}

func NewFieldKey(enterpriseId uint32, fieldId uint16) FieldKey {
	return FieldKey{
		EnterpriseId: enterpriseId,
		Id:           fieldId,
	}
}

const (
	FieldKeySeparator string = ":"
)

func (k FieldKey) String() string {
	return fmt.Sprintf("%d%s%d", k.EnterpriseId, FieldKeySeparator, k.Id)
}

func (k FieldKey) MarshalText() (text []byte, err error) {
	text = []byte(k.String())
	return
}

func (k *FieldKey) UnmarshalText(text []byte) (err error) {
	key := strings.Split(string(text), FieldKeySeparator)
	if len(key) != 2 {
		return errors.New("field key format is invalid")
	}

	pen, err := strconv.ParseUint(key[0], 10, 32)
	if err != nil {
		return fmt.Errorf("enterprise number is invalid, %w", err)
	}
	id, err := strconv.ParseUint(key[1], 10, 16)
	if err != nil {
		return fmt.Errorf("field id is invalid, %w", err)
	}

	k.EnterpriseId = uint32(pen)
	k.Id = uint16(id)
	return nil
}

// StaticFieldCatalog is an immutable, in-memory field catalog. It is populated once on
// construction and only read afterwards, so it needs no locking.
type StaticFieldCatalog struct {
	elements map[FieldKey]*InformationElement
}

var _ FieldCatalog = &StaticFieldCatalog{}

// NewFieldCatalog creates a catalog from the given tables. Later tables override earlier
// entries with the same key, which lets callers patch single elements of the IANA table.
//
//	catalog := ipfix.NewFieldCatalog(ipfix.IANA(), ipfix.Antrea())
func NewFieldCatalog(tables ...[]InformationElement) *StaticFieldCatalog {
	c := &StaticFieldCatalog{
		elements: make(map[FieldKey]*InformationElement),
	}
	for _, table := range tables {
		for _, ie := range table {
			ie := ie
			c.elements[ie.Key()] = &ie
		}
	}
	return c
}

// DefaultFieldCatalog returns a catalog of the built-in IANA and Antrea tables
func DefaultFieldCatalog() *StaticFieldCatalog {
	return NewFieldCatalog(IANA(), Antrea())
}

// Lookup implements FieldCatalog. Fields of the reverse enterprise number (RFC 5103) resolve to
// the IANA element of the same id, unless that element is not reversible.
func (c *StaticFieldCatalog) Lookup(enterpriseId uint32, fieldId uint16) (FieldType, error) {
	ie, err := c.lookup(NewFieldKey(enterpriseId, fieldId))
	if err != nil {
		return FieldType{}, err
	}
	return ie.FieldType(), nil
}

func (c *StaticFieldCatalog) Get(key FieldKey) (*InformationElement, error) {
	ie, err := c.lookup(key)
	if err != nil {
		return nil, err
	}
	ce := *ie
	if key.EnterpriseId == ReversePEN && ie.EnterpriseId != ReversePEN {
		ce.EnterpriseId = ReversePEN
		ce.Name = reversedName(ie.Name)
	}
	return &ce, nil
}

func (c *StaticFieldCatalog) lookup(key FieldKey) (*InformationElement, error) {
	if ie, ok := c.elements[key]; ok {
		return ie, nil
	}
	if key.EnterpriseId == ReversePEN && Reversible(key.Id) {
		if ie, ok := c.elements[NewFieldKey(0, key.Id)]; ok {
			return ie, nil
		}
	}
	return nil, unknownField(key.EnterpriseId, key.Id)
}

// Len returns the number of information elements in the catalog
func (c *StaticFieldCatalog) Len() int {
	return len(c.elements)
}

// Elements returns a copy of all information elements, ordered by enterprise number and id
func (c *StaticFieldCatalog) Elements() []InformationElement {
	ies := make([]InformationElement, 0, len(c.elements))
	for _, ie := range c.elements {
		ies = append(ies, *ie)
	}
	sort.Slice(ies, func(i, j int) bool {
		if ies[i].EnterpriseId != ies[j].EnterpriseId {
			return ies[i].EnterpriseId < ies[j].EnterpriseId
		}
		return ies[i].Id < ies[j].Id
	})
	return ies
}

// ByName returns the first information element with the given name in the given enterprise
func (c *StaticFieldCatalog) ByName(enterpriseId uint32, name string) (*InformationElement, error) {
	for k, ie := range c.elements {
		if k.EnterpriseId == enterpriseId && ie.Name == name {
			ce := *ie
			return &ce, nil
		}
	}
	return nil, fmt.Errorf("%w %q in enterprise %d", ErrUnknownField, name, enterpriseId)
}
