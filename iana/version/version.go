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

// Package version contains the version numbers carried in the header of flow export messages
package version

import (
	"errors"
	"fmt"
)

type ProtocolVersion uint16

var (
	ErrUnknownProtocolVersion = errors.New("unknown protocol version")
)

const (
	Unknown ProtocolVersion = 0

	// NetFlowV9 shares the message layout of IPFIX but is not exported by this module
	NetFlowV9 ProtocolVersion = 9

	IPFIX ProtocolVersion = 10
)

// Valid returns true for the version numbers this module encodes and decodes, which is only IPFIX
func (p ProtocolVersion) Valid() bool {
	return p == IPFIX
}

func (p ProtocolVersion) String() string {
	switch p {
	case IPFIX:
		return "IPFIX"
	case NetFlowV9:
		return "NetFlowV9"
	default:
		return fmt.Sprintf("Unknown(%d)", uint16(p))
	}
}

func (p ProtocolVersion) MarshalText() ([]byte, error) {
	if !p.Valid() {
		return nil, fmt.Errorf("%w %d", ErrUnknownProtocolVersion, uint16(p))
	}
	return []byte(p.String()), nil
}

func (p *ProtocolVersion) UnmarshalText(in []byte) error {
	switch string(in) {
	case "IPFIX", "ipfix", "10":
		*p = IPFIX
	default:
		return fmt.Errorf("%w %q", ErrUnknownProtocolVersion, string(in))
	}
	return nil
}
