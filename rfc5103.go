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
	"unicode"
	"unicode/utf8"
)

// ReversePEN is the enterprise number of reverse information elements in biflow records as per
// RFC 5103. A field with this enterprise number carries the reverse direction's value of the IANA
// element with the same id.
const ReversePEN uint32 = 29305

// nonReversibleFields are the IANA elements without a reverse counterpart, RFC 5103 Section 6.1
var nonReversibleFields = map[uint16]struct{}{
	// identifiers, RFC 5102 Section 5.1
	10:  {}, // ingressInterface
	14:  {}, // egressInterface
	137: {}, // commonPropertiesId
	138: {}, // observationPointId
	141: {}, // lineCardId
	142: {}, // portId
	143: {}, // meteringProcessId
	144: {}, // exportingProcessId
	145: {}, // templateId
	148: {}, // flowId
	149: {}, // observationDomainId
	// process configuration, RFC 5102 Section 5.2
	130: {}, // exporterIPv4Address
	131: {}, // exporterIPv6Address
	217: {}, // exporterTransportPort
	211: {}, // collectorIPv4Address
	212: {}, // collectorIPv6Address
	213: {}, // exportInterface
	214: {}, // exportProtocolVersion
	215: {}, // exportTransportProtocol
	216: {}, // collectorTransportPort
	173: {}, // flowKeyIndicator
	// process statistics, RFC 5102 Section 5.3
	40:  {}, // exportedOctetTotalCount
	41:  {}, // exportedMessageTotalCount
	42:  {}, // exportedFlowRecordTotalCount
	163: {}, // observedFlowTotalCount
	164: {}, // ignoredPacketTotalCount
	165: {}, // ignoredOctetTotalCount
	166: {}, // notSentFlowTotalCount
	167: {}, // notSentPacketTotalCount
	168: {}, // notSentOctetTotalCount
	// padding, RFC 5102 Section 5.12.1
	210: {}, // paddingOctets
	// RFC 5103 Section 6.3
	239: {}, // biflowDirection
}

// Reversible returns false for IANA elements that must not be exported with ReversePEN
func Reversible(fieldId uint16) bool {
	_, nonReversible := nonReversibleFields[fieldId]
	return !nonReversible
}

func reversedName(name string) string {
	r, n := utf8.DecodeRuneInString(name)
	if r == utf8.RuneError {
		return "reverse"
	}
	return "reverse" + string(unicode.ToUpper(r)) + name[n:]
}
