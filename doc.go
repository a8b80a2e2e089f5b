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

/*
Package ipfix implements the exporting side of IPFIX as per RFC 7011. A Session is an exporting
process for one observation domain: it manages templates, encodes data records, packs them into
messages and delivers those to any number of collectors over TCP, UDP, SCTP, or into files in the
IPFIX File Format of RFC 5655. Additionally, the package supports

- RFC 5103: Bidirectional Flow Export, i.e., reverse information elements in the field catalog

- RFC 5610: Exporting Type Information for enterprise-specific information elements

Templates are validated against a FieldCatalog. The default catalog carries the common IANA
information elements and the enterprise-specific elements of Antrea. Further tables are read with
ReadYAML, ReadCSV for the IANA registry export, or ReadXML for IANA-style XML registries.

# Exporting

	s := ipfix.NewSession(12345)
	defer s.Close(context.Background())

	if _, err := s.AddCollector(ctx, "collector.example.org", ipfix.DefaultPort, ipfix.TCP); err != nil {
		// the collector stays registered and is connected again on the next flush
		log.Println(err)
	}

	h, _ := s.NewTemplate()
	_ = s.AddField(h, 0, ipfix.FieldSourceIPv4Address, 4)
	_ = s.AddField(h, 0, ipfix.FieldOctetDeltaCount, 8)
	_ = s.AddField(h, ipfix.AntreaPEN, ipfix.FieldSourcePodName, ipfix.VariableLength)
	t, err := s.Seal(h)
	if err != nil {
		return err
	}

	err = s.Export(ctx, t,
		ipfix.IPv4Value(netip.MustParseAddr("10.0.0.1")),
		ipfix.Uint64Value(1500),
		ipfix.StringValue("frontend-6d4cf56db6-kx2vj"),
	)
	if err != nil {
		return err
	}
	// templates are sent ahead of the first data set to every collector
	return s.Flush(ctx)

Records are buffered until Flush is called or the next record does not fit the current message
anymore. A message always fits every collector's maximum message size, which defaults to 65535
bytes for streams and 1420 bytes for UDP.

# Decoding

A Decoder learns templates and decodes data sets, which is mostly useful for tests and tooling
reading back exported files:

	msgs, err := ipfix.ReadFull(f)
	...
	d := ipfix.NewDecoder()
	for _, b := range msgs {
		msg, err := d.Decode(b)
		...
	}

# Logging and Metrics

The package logs via logr. Use SetLogger to route the package's logs to any logr implementation.
Prometheus metrics are registered with

	prometheus.MustRegister(ipfix.Collectors()...)
*/
package ipfix
