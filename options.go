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
	"io"
	"time"

	"gopkg.in/yaml.v3"
)

// Options configures an exporting session
type Options struct {
	// MaxMessageSize bounds messages to TCP and SCTP collectors
	MaxMessageSize int `json:"maxMessageSize,omitempty" yaml:"maxMessageSize,omitempty"`
	// MaxUDPMessageSize bounds datagrams to UDP collectors. The default of 1420 bytes fits common
	// path MTUs including tunnel overhead.
	MaxUDPMessageSize int `json:"maxUDPMessageSize,omitempty" yaml:"maxUDPMessageSize,omitempty"`

	DialTimeout  time.Duration `json:"dialTimeout,omitempty" yaml:"dialTimeout,omitempty"`
	WriteTimeout time.Duration `json:"writeTimeout,omitempty" yaml:"writeTimeout,omitempty"`

	Backoff BackoffOptions `json:"backoff,omitempty" yaml:"backoff,omitempty"`

	// MaxPendingMessages bounds the per-collector queue of messages that failed on reliable transports
	MaxPendingMessages int `json:"maxPendingMessages,omitempty" yaml:"maxPendingMessages,omitempty"`

	Registry RegistryOptions `json:"registry,omitempty" yaml:"registry,omitempty"`

	// Catalog is the field catalog templates are validated against. Defaults to the built-in
	// IANA and Antrea tables.
	Catalog FieldCatalog `json:"-" yaml:"-"`

	// Clock returns the export time of messages. Defaults to time.Now.
	Clock func() time.Time `json:"-" yaml:"-"`
}

const DefaultMaxUDPMessageSize = 1420

func DefaultOptions() Options {
	return Options{
		MaxMessageSize:     MaxMessageSize,
		MaxUDPMessageSize:  DefaultMaxUDPMessageSize,
		DialTimeout:        5 * time.Second,
		WriteTimeout:       10 * time.Second,
		MaxPendingMessages: 16,
		Backoff: BackoffOptions{
			Initial:    100 * time.Millisecond,
			Max:        5 * time.Second,
			Multiplier: 2,
			MaxRetries: 5,
		},
		Registry: RegistryOptions{
			TemplateRefreshInterval: 30 * time.Minute,
		},
	}
}

// Merge overrides o with every non-zero field of opts, later options taking precedence
func (o *Options) Merge(opts ...Options) {
	for _, opt := range opts {
		if opt.MaxMessageSize > 0 {
			o.MaxMessageSize = min(opt.MaxMessageSize, MaxMessageSize)
		}
		if opt.MaxUDPMessageSize > 0 {
			o.MaxUDPMessageSize = min(opt.MaxUDPMessageSize, MaxMessageSize)
		}
		if opt.DialTimeout > 0 {
			o.DialTimeout = opt.DialTimeout
		}
		if opt.WriteTimeout > 0 {
			o.WriteTimeout = opt.WriteTimeout
		}
		if opt.MaxPendingMessages > 0 {
			o.MaxPendingMessages = opt.MaxPendingMessages
		}
		if opt.Backoff.Initial > 0 {
			o.Backoff.Initial = opt.Backoff.Initial
		}
		if opt.Backoff.Max > 0 {
			o.Backoff.Max = opt.Backoff.Max
		}
		if opt.Backoff.Multiplier >= 1 {
			o.Backoff.Multiplier = opt.Backoff.Multiplier
		}
		if opt.Backoff.MaxRetries > 0 {
			o.Backoff.MaxRetries = opt.Backoff.MaxRetries
		}
		if opt.Registry.TemplateRefreshInterval > 0 {
			o.Registry.TemplateRefreshInterval = opt.Registry.TemplateRefreshInterval
		}
		o.Registry.WrapTemplateIds = o.Registry.WrapTemplateIds || opt.Registry.WrapTemplateIds
		if opt.Catalog != nil {
			o.Catalog = opt.Catalog
		}
		if opt.Clock != nil {
			o.Clock = opt.Clock
		}
	}
}

// ReadOptionsYAML reads options from a YAML document on top of DefaultOptions
func ReadOptionsYAML(r io.Reader) (Options, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	o := DefaultOptions()
	if err := dec.Decode(&o); err != nil && err != io.EOF {
		return Options{}, err
	}
	return o, nil
}
