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
	"io"
	"time"

	"gopkg.in/yaml.v3"
)

// FieldExport is the document format of information element tables in YAML
type FieldExport struct {
	Name            string    `yaml:"name,omitempty"`
	ExportTimestamp time.Time `yaml:"exportTimestamp,omitempty"`

	Fields []InformationElement `yaml:"fields"`
}

func MustReadYAML(r io.Reader) []InformationElement {
	m, err := ReadYAML(r)
	if err != nil {
		panic(err)
	}
	return m
}

// ReadYAML reads a table of information elements, e.g. for registering enterprise-specific fields
// with NewFieldCatalog. Unknown document keys are rejected.
func ReadYAML(r io.Reader) ([]InformationElement, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	read := FieldExport{}
	err := dec.Decode(&read)
	if err != nil {
		return nil, err
	}

	seen := make(map[FieldKey]struct{}, len(read.Fields))
	for _, el := range read.Fields {
		k := el.Key()
		if _, ok := seen[k]; ok {
			return nil, fmt.Errorf("duplicate information element %s in table %q", k, read.Name)
		}
		seen[k] = struct{}{}
	}

	return read.Fields, nil
}

func WriteYAML(w io.Writer, name string, fields []InformationElement) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	defer enc.Close()

	return enc.Encode(FieldExport{
		ExportTimestamp: time.Now(),
		Name:            name,
		Fields:          fields,
	})
}
