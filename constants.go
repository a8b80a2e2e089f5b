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

const (
	// TemplateSetId is the Set ID of sets carrying Template Records
	TemplateSetId uint16 = 2
	// OptionsTemplateSetId is the Set ID of sets carrying Options Template Records
	OptionsTemplateSetId uint16 = 3

	// MinTemplateId is the lowest ID usable for templates and thus Data Sets. IDs 4 to 255
	// are reserved.
	MinTemplateId uint16 = 256
	// MaxTemplateId is the highest ID usable for templates.
	MaxTemplateId uint16 = 0xFFFF

	// VariableLength is the field length announced in templates for variable-length fields
	VariableLength uint16 = 0xFFFF

	// penMask is the enterprise bit of a field specifier's Information Element identifier
	penMask uint16 = 0x8000

	// ipfixMessageHeaderLength is the number of bytes in an IPFIX message header
	ipfixMessageHeaderLength = 16
	// setHeaderLength is the number of bytes of set ID and set length
	setHeaderLength = 4

	// MaxMessageSize is bounded by the 16 bit message length field in the header
	MaxMessageSize = 0xFFFF

	// DefaultPort is the IANA-assigned port for IPFIX over TCP, UDP and SCTP
	DefaultPort uint16 = 4739
)
