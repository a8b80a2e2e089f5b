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
	"bytes"
	"embed"
	"fmt"
)

// Identifiers of commonly exported IANA information elements
const (
	FieldOctetDeltaCount              uint16 = 1
	FieldPacketDeltaCount             uint16 = 2
	FieldProtocolIdentifier           uint16 = 4
	FieldTcpControlBits               uint16 = 6
	FieldSourceTransportPort          uint16 = 7
	FieldSourceIPv4Address            uint16 = 8
	FieldIngressInterface             uint16 = 10
	FieldDestinationTransportPort     uint16 = 11
	FieldDestinationIPv4Address       uint16 = 12
	FieldEgressInterface              uint16 = 14
	FieldSourceIPv6Address            uint16 = 27
	FieldDestinationIPv6Address       uint16 = 28
	FieldFlowStartSeconds             uint16 = 150
	FieldFlowEndSeconds               uint16 = 151
	FieldFlowStartMilliseconds        uint16 = 152
	FieldFlowEndMilliseconds          uint16 = 153
	FieldExportingProcessId           uint16 = 144
	FieldExportedMessageTotalCount    uint16 = 41
	FieldExportedFlowRecordTotalCount uint16 = 42
)

// AntreaPEN is the private enterprise number of the Antrea project
const AntreaPEN uint32 = 56506

// Identifiers of Antrea's enterprise-specific information elements
const (
	FieldSourcePodNamespace      uint16 = 100
	FieldSourcePodName           uint16 = 101
	FieldDestinationPodNamespace uint16 = 102
	FieldDestinationPodName      uint16 = 103
)

var ianaIEs = []InformationElement{
	{Id: 1, Name: "octetDeltaCount", Type: Unsigned64},
	{Id: 2, Name: "packetDeltaCount", Type: Unsigned64},
	{Id: 4, Name: "protocolIdentifier", Type: Unsigned8},
	{Id: 5, Name: "ipClassOfService", Type: Unsigned8},
	{Id: 6, Name: "tcpControlBits", Type: Unsigned16},
	{Id: 7, Name: "sourceTransportPort", Type: Unsigned16},
	{Id: 8, Name: "sourceIPv4Address", Type: IPv4Address},
	{Id: 9, Name: "sourceIPv4PrefixLength", Type: Unsigned8},
	{Id: 10, Name: "ingressInterface", Type: Unsigned32},
	{Id: 11, Name: "destinationTransportPort", Type: Unsigned16},
	{Id: 12, Name: "destinationIPv4Address", Type: IPv4Address},
	{Id: 13, Name: "destinationIPv4PrefixLength", Type: Unsigned8},
	{Id: 14, Name: "egressInterface", Type: Unsigned32},
	{Id: 15, Name: "ipNextHopIPv4Address", Type: IPv4Address},
	{Id: 16, Name: "bgpSourceAsNumber", Type: Unsigned32},
	{Id: 17, Name: "bgpDestinationAsNumber", Type: Unsigned32},
	{Id: 27, Name: "sourceIPv6Address", Type: IPv6Address},
	{Id: 28, Name: "destinationIPv6Address", Type: IPv6Address},
	{Id: 29, Name: "sourceIPv6PrefixLength", Type: Unsigned8},
	{Id: 30, Name: "destinationIPv6PrefixLength", Type: Unsigned8},
	{Id: 31, Name: "flowLabelIPv6", Type: Unsigned32},
	{Id: 32, Name: "icmpTypeCodeIPv4", Type: Unsigned16},
	{Id: 34, Name: "samplingInterval", Type: Unsigned32},
	{Id: 36, Name: "flowActiveTimeout", Type: Unsigned16},
	{Id: 37, Name: "flowIdleTimeout", Type: Unsigned16},
	{Id: 41, Name: "exportedMessageTotalCount", Type: Unsigned64},
	{Id: 42, Name: "exportedFlowRecordTotalCount", Type: Unsigned64},
	{Id: 56, Name: "sourceMacAddress", Type: MacAddress},
	{Id: 58, Name: "vlanId", Type: Unsigned16},
	{Id: 60, Name: "ipVersion", Type: Unsigned8},
	{Id: 61, Name: "flowDirection", Type: Unsigned8},
	{Id: 62, Name: "ipNextHopIPv6Address", Type: IPv6Address},
	{Id: 80, Name: "destinationMacAddress", Type: MacAddress},
	{Id: 82, Name: "interfaceName", Type: String},
	{Id: 83, Name: "interfaceDescription", Type: String},
	{Id: 85, Name: "octetTotalCount", Type: Unsigned64},
	{Id: 86, Name: "packetTotalCount", Type: Unsigned64},
	{Id: 130, Name: "exporterIPv4Address", Type: IPv4Address},
	{Id: 131, Name: "exporterIPv6Address", Type: IPv6Address},
	{Id: 136, Name: "flowEndReason", Type: Unsigned8},
	{Id: 144, Name: "exportingProcessId", Type: Unsigned32},
	{Id: 148, Name: "flowId", Type: Unsigned64},
	{Id: 150, Name: "flowStartSeconds", Type: DateTimeSeconds},
	{Id: 151, Name: "flowEndSeconds", Type: DateTimeSeconds},
	{Id: 152, Name: "flowStartMilliseconds", Type: DateTimeMilliseconds},
	{Id: 153, Name: "flowEndMilliseconds", Type: DateTimeMilliseconds},
	{Id: 154, Name: "flowStartMicroseconds", Type: DateTimeMicroseconds},
	{Id: 155, Name: "flowEndMicroseconds", Type: DateTimeMicroseconds},
	{Id: 156, Name: "flowStartNanoseconds", Type: DateTimeNanoseconds},
	{Id: 157, Name: "flowEndNanoseconds", Type: DateTimeNanoseconds},
	{Id: 160, Name: "systemInitTimeMilliseconds", Type: DateTimeMilliseconds},
	{Id: 176, Name: "icmpTypeIPv4", Type: Unsigned8},
	{Id: 177, Name: "icmpCodeIPv4", Type: Unsigned8},
	{Id: 210, Name: "paddingOctets", Type: OctetArray},
	{Id: 214, Name: "exportProtocolVersion", Type: Unsigned8},
	{Id: 215, Name: "exportTransportProtocol", Type: Unsigned8},
	{Id: 291, Name: "basicList", Type: BasicList},
	{Id: 292, Name: "subTemplateList", Type: SubTemplateList},
	{Id: 293, Name: "subTemplateMultiList", Type: SubTemplateMultiList},
	{Id: 303, Name: "informationElementId", Type: Unsigned16},
	{Id: 339, Name: "informationElementDataType", Type: Unsigned8},
	{Id: 340, Name: "informationElementDescription", Type: String},
	{Id: 341, Name: "informationElementName", Type: String},
	{Id: 346, Name: "privateEnterpriseNumber", Type: Unsigned32},
}

// IANA returns a copy of the built-in table of IANA-assigned information elements. The table
// covers the usual flow keys, counters, and timestamps; load the full registry with ReadCSV
// if more are needed.
func IANA() []InformationElement {
	t := make([]InformationElement, len(ianaIEs))
	copy(t, ianaIEs)
	return t
}

var (
	//go:embed catalogs/antrea.yaml
	catalogs embed.FS

	antreaIEs = func() []InformationElement {
		b, err := catalogs.ReadFile("catalogs/antrea.yaml")
		if err != nil {
			panic(fmt.Errorf("failed to read embedded antrea catalog, %w", err))
		}
		return MustReadYAML(bytes.NewReader(b))
	}()
)

// Antrea returns a copy of the table of Antrea's enterprise-specific information elements
func Antrea() []InformationElement {
	t := make([]InformationElement, len(antreaIEs))
	copy(t, antreaIEs)
	return t
}
