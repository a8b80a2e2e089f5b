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
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
)

func MustReadCSV(r io.Reader) []InformationElement {
	m, err := ReadCSV(r)
	if err != nil {
		panic(err)
	}
	return m
}

// ReadCSV reads the IANA registry export ipfix-information-elements.csv. Reserved and unassigned
// ranges as well as rows without a data type are skipped.
func ReadCSV(r io.Reader) ([]InformationElement, error) {
	csvReader := csv.NewReader(r)
	csvReader.FieldsPerRecord = -1

	// header
	if _, err := csvReader.Read(); err != nil {
		return nil, err
	}

	fields := make([]InformationElement, 0)

	for line := 2; ; line++ {
		record, err := csvReader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		if len(record) < 3 {
			return nil, fmt.Errorf("line %d: expected at least 3 columns, found %d", line, len(record))
		}

		id, err := strconv.ParseUint(record[0], 10, 16)
		if err != nil {
			// ranges such as "433-32767"
			continue
		}
		if record[2] == "" {
			continue
		}
		kind, err := LookupDataKind(record[2])
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}

		field := InformationElement{
			Id:   uint16(id),
			Name: record[1],
			Type: kind,
		}
		if len(record) > 5 && record[5] != "" {
			description := record[5]
			field.Description = &description
		}
		if len(record) > 6 && record[6] != "" {
			units := record[6]
			field.Units = &units
		}
		if len(record) > 9 && record[9] != "" {
			ref := record[9]
			field.Reference = &ref
		}

		fields = append(fields, field)
	}

	return fields, nil
}
