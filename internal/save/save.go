// Package save implements the directory-based save/restore persistence
// format: one JSON file per provider, named
// "<provider-name>-save-control.json", containing a JSON array of
// {name, domain_type, domain_idx, setting} records. The record shape is
// enforced with a JSON Schema on both write and read, so a hand-edited
// save file fails loudly instead of applying garbage settings.
package save

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

// Record is one persisted control setting.
type Record struct {
	Name       string  `json:"name"`
	DomainType int     `json:"domain_type"`
	DomainIdx  int     `json:"domain_idx"`
	Setting    float64 `json:"setting"`
}

const schemaJSON = `{
	"$schema": "https://json-schema.org/draft/2020-12/schema",
	"type": "array",
	"items": {
		"type": "object",
		"required": ["name", "domain_type", "domain_idx", "setting"],
		"properties": {
			"name": {"type": "string", "minLength": 1},
			"domain_type": {"type": "integer", "minimum": 0},
			"domain_idx": {"type": "integer", "minimum": 0},
			"setting": {"type": "number"}
		},
		"additionalProperties": false
	}
}`

func compileSchema() (*jsonschema.Schema, error) {
	c := jsonschema.NewCompiler()
	const resourceURL = "mem://platformio-go/save-control.schema.json"
	doc, err := jsonschema.UnmarshalJSON(strings.NewReader(schemaJSON))
	if err != nil {
		return nil, fmt.Errorf("save: unmarshal embedded schema: %w", err)
	}
	if err := c.AddResource(resourceURL, doc); err != nil {
		return nil, fmt.Errorf("save: add schema resource: %w", err)
	}
	schema, err := c.Compile(resourceURL)
	if err != nil {
		return nil, fmt.Errorf("save: compile schema: %w", err)
	}
	return schema, nil
}

// FileName returns the save-file name for providerName.
func FileName(providerName string) string {
	return providerName + "-save-control.json"
}

// Write validates records against the save-control schema and writes them
// as JSON to <dir>/<providerName>-save-control.json, overwriting any
// existing file.
func Write(dir, providerName string, records []Record) error {
	if records == nil {
		records = []Record{}
	}
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("save: marshal %s: %w", providerName, err)
	}
	if err := validate(data); err != nil {
		return fmt.Errorf("save: %s violates save-control schema: %w", providerName, err)
	}
	path := filepath.Join(dir, FileName(providerName))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("save: write %s: %w", path, err)
	}
	return nil
}

// Read loads and schema-validates the save file for providerName under
// dir. It returns os.ErrNotExist (wrapped) if no such file exists, so
// callers can treat providers with nothing to restore as a non-error.
func Read(dir, providerName string) ([]Record, error) {
	path := filepath.Join(dir, FileName(providerName))
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if err := validate(data); err != nil {
		return nil, fmt.Errorf("save: %s violates save-control schema: %w", path, err)
	}
	var records []Record
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("save: parse %s: %w", path, err)
	}
	return records, nil
}

func validate(data []byte) error {
	schema, err := compileSchema()
	if err != nil {
		return err
	}
	var v interface{}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&v); err != nil {
		return fmt.Errorf("decode json: %w", err)
	}
	return schema.Validate(v)
}
