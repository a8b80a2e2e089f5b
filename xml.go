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
	"encoding/xml"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// MustReadXML is ReadXML that panics on error, for catalogs embedded at build time
func MustReadXML(r io.Reader) []InformationElement {
	ies, err := ReadXML(r)
	if err != nil {
		panic(err)
	}
	return ies
}

// ReadXML reads information elements from an IANA-style XML registry, such as the IANA IPFIX
// registry or CERT's registry of yaf elements. Records with id ranges, unassigned data types or
// abstract data types not known to this package are skipped.
func ReadXML(r io.Reader) ([]InformationElement, error) {
	type xmlRecord struct {
		Name         string   `xml:"name"`
		EnterpriseId uint32   `xml:"enterpriseId"`
		Id           string   `xml:"elementId"`
		DataType     string   `xml:"dataType"`
		Description  []string `xml:"description>paragraph"`
		Units        *string  `xml:"units"`
		Reference    []string `xml:"references>xref"`
	}
	type xmlRegistry struct {
		Records []xmlRecord `xml:"registry>record"`
	}

	re := xmlRegistry{}
	if err := xml.NewDecoder(r).Decode(&re); err != nil {
		return nil, fmt.Errorf("failed to decode XML registry: %w", err)
	}

	ies := make([]InformationElement, 0, len(re.Records))
	for _, rec := range re.Records {
		id, err := strconv.ParseUint(strings.TrimSpace(rec.Id), 10, 15)
		if err != nil {
			// ranges of reserved or unassigned ids
			continue
		}
		kind, err := LookupDataKind(strings.TrimSpace(rec.DataType))
		if err != nil {
			continue
		}
		ie := InformationElement{
			Id:           uint16(id),
			Name:         strings.TrimSpace(rec.Name),
			EnterpriseId: rec.EnterpriseId,
			Type:         kind,
			Units:        rec.Units,
		}
		if len(rec.Description) > 0 {
			for i, d := range rec.Description {
				rec.Description[i] = strings.Join(strings.Fields(d), " ")
			}
			d := strings.Join(rec.Description, "\n")
			ie.Description = &d
		}
		ies = append(ies, ie)
	}
	return ies, nil
}
