/*
Copyright 2025.

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

package pmr

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"
	"sigs.k8s.io/yaml"
)

const schemaResource = "pmr.schema.json"

//go:embed schema/pmr.schema.json
var schemaJSON []byte

type schemas struct {
	document *jsonschema.Schema
	profile  *jsonschema.Schema
}

var compiledSchemas = sync.OnceValues(func() (*schemas, error) {
	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(schemaJSON))
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal PMR schema: %w", err)
	}

	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(schemaResource, doc); err != nil {
		return nil, fmt.Errorf("failed to add PMR schema: %w", err)
	}
	document, err := compiler.Compile(schemaResource)
	if err != nil {
		return nil, fmt.Errorf("failed to compile PMR schema: %w", err)
	}
	profile, err := compiler.Compile(schemaResource + "#/$defs/profile")
	if err != nil {
		return nil, fmt.Errorf("failed to compile Profile schema: %w", err)
	}
	return &schemas{document: document, profile: profile}, nil
})

// Parse validates a PMR YAML (or JSON) document and builds the PMR from it.
func Parse(data []byte) (*PMR, error) {
	raw, err := yaml.YAMLToJSON(data)
	if err != nil {
		return nil, &ValidationError{Err: fmt.Errorf("failed to parse YAML: %w", err)}
	}

	s, err := compiledSchemas()
	if err != nil {
		return nil, err
	}
	if err := validate(s.document, raw); err != nil {
		return nil, &ValidationError{Err: err}
	}

	var doc struct {
		Profiles []*Profile `json:"profiles"`
	}
	if err := decodeStrict(raw, &doc); err != nil {
		return nil, &ValidationError{Err: err}
	}
	for _, p := range doc.Profiles {
		if err := p.Validate(); err != nil {
			return nil, err
		}
	}
	return New(doc.Profiles...), nil
}

// ProfileFromMap validates a single Profile given as a generic map, as found
// in one entry of the PMR profiles list.
func ProfileFromMap(m map[string]any) (*Profile, error) {
	name, _ := m["name"].(string)

	raw, err := json.Marshal(m)
	if err != nil {
		return nil, &ValidationError{Profile: name, Err: err}
	}

	s, err := compiledSchemas()
	if err != nil {
		return nil, err
	}
	if err := validate(s.profile, raw); err != nil {
		return nil, &ValidationError{Profile: name, Err: err}
	}

	p := &Profile{}
	if err := decodeStrict(raw, p); err != nil {
		return nil, &ValidationError{Profile: name, Err: err}
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}

func validate(schema *jsonschema.Schema, raw []byte) error {
	inst, err := jsonschema.UnmarshalJSON(bytes.NewReader(raw))
	if err != nil {
		return err
	}
	return schema.Validate(inst)
}

func decodeStrict(raw []byte, into any) error {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	return dec.Decode(into)
}
