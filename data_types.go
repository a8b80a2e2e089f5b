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

// DataKind is the abstract data type of an information element as per RFC 7011 Section 6.1 and
// RFC 6313. The numeric values are the IANA-assigned identifiers.
type DataKind uint8

const (
	OctetArray DataKind = iota
	Unsigned8
	Unsigned16
	Unsigned32
	Unsigned64
	Signed8
	Signed16
	Signed32
	Signed64
	Float32
	Float64
	Boolean
	MacAddress
	String
	DateTimeSeconds
	DateTimeMilliseconds
	DateTimeMicroseconds
	DateTimeNanoseconds
	IPv4Address
	IPv6Address
	BasicList
	SubTemplateList
	SubTemplateMultiList
)

var dataKindNames = map[DataKind]string{
	OctetArray:           "octetArray",
	Unsigned8:            "unsigned8",
	Unsigned16:           "unsigned16",
	Unsigned32:           "unsigned32",
	Unsigned64:           "unsigned64",
	Signed8:              "signed8",
	Signed16:             "signed16",
	Signed32:             "signed32",
	Signed64:             "signed64",
	Float32:              "float32",
	Float64:              "float64",
	Boolean:              "boolean",
	MacAddress:           "macAddress",
	String:               "string",
	DateTimeSeconds:      "dateTimeSeconds",
	DateTimeMilliseconds: "dateTimeMilliseconds",
	DateTimeMicroseconds: "dateTimeMicroseconds",
	DateTimeNanoseconds:  "dateTimeNanoseconds",
	IPv4Address:          "ipv4Address",
	IPv6Address:          "ipv6Address",
	BasicList:            "basicList",
	SubTemplateList:      "subTemplateList",
	SubTemplateMultiList: "subTemplateMultiList",
}

var dataKindsByName = func() map[string]DataKind {
	m := make(map[string]DataKind, len(dataKindNames))
	for k, v := range dataKindNames {
		m[v] = k
	}
	return m
}()

// LookupDataKind returns the data kind for its IANA name, e.g. "unsigned32"
func LookupDataKind(name string) (DataKind, error) {
	k, ok := dataKindsByName[name]
	if !ok {
		return 0, fmt.Errorf("data type not defined: %s", name)
	}
	return k, nil
}

func (k DataKind) String() string {
	s, ok := dataKindNames[k]
	if !ok {
		return fmt.Sprintf("unassigned(%d)", uint8(k))
	}
	return s
}

func (k DataKind) MarshalText() ([]byte, error) {
	s, ok := dataKindNames[k]
	if !ok {
		return nil, fmt.Errorf("data type %d is not assigned", uint8(k))
	}
	return []byte(s), nil
}

func (k *DataKind) UnmarshalText(in []byte) error {
	v, err := LookupDataKind(string(in))
	if err != nil {
		return err
	}
	*k = v
	return nil
}

// DefaultLength returns the encoded length of the data kind as defined by RFC 7011, or
// VariableLength for kinds without an intrinsic length.
func (k DataKind) DefaultLength() uint16 {
	switch k {
	case Unsigned8, Signed8, Boolean:
		return 1
	case Unsigned16, Signed16:
		return 2
	case Unsigned32, Signed32, Float32, DateTimeSeconds, IPv4Address:
		return 4
	case Unsigned64, Signed64, Float64, DateTimeMilliseconds, DateTimeMicroseconds, DateTimeNanoseconds:
		return 8
	case MacAddress:
		return 6
	case IPv6Address:
		return 16
	default:
		// octetArray, string, and the RFC 6313 list types
		return VariableLength
	}
}

// reducible returns true for kinds that allow reduced-size encoding as per RFC 7011 Section 6.2
func (k DataKind) reducible() bool {
	switch k {
	case Unsigned8, Unsigned16, Unsigned32, Unsigned64, Signed8, Signed16, Signed32, Signed64:
		return true
	default:
		return false
	}
}
