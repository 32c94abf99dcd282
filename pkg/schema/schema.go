// Package schema declares structured-output schemas and validates provider
// output against them with JSON Schema.
package schema

import (
	"encoding/json"
	"fmt"
	"regexp"
	"sync"

	"github.com/xeipuuv/gojsonschema"

	"github.com/dan-solli/llmflows/pkg/llm"
)

// FieldType is the declared type of a schema field
type FieldType string

const (
	Text         FieldType = "text"
	TextSequence FieldType = "sequence<text>"
)

// Field is one named, typed member of a Descriptor
type Field struct {
	Name        string
	Type        FieldType
	Description string
}

// Descriptor is a named, ordered set of fields. It renders to a strict JSON
// Schema where every field is required and no other field is allowed.
type Descriptor struct {
	name        string
	description string
	fields      []Field

	compileOnce sync.Once
	compiled    *gojsonschema.Schema
	compileErr  error
}

// Provider schema names must match this pattern
var namePattern = regexp.MustCompile(`^[a-zA-Z0-9_-]{1,64}$`)

// New creates a descriptor. Field names must be unique and types known.
func New(name, description string, fields ...Field) (*Descriptor, error) {
	if !namePattern.MatchString(name) {
		return nil, fmt.Errorf("invalid schema name %q", name)
	}
	if len(fields) == 0 {
		return nil, fmt.Errorf("schema %q must declare at least one field", name)
	}

	seen := make(map[string]bool, len(fields))
	for _, f := range fields {
		if f.Name == "" {
			return nil, fmt.Errorf("schema %q has a field with empty name", name)
		}
		if seen[f.Name] {
			return nil, fmt.Errorf("schema %q declares field %q twice", name, f.Name)
		}
		seen[f.Name] = true

		switch f.Type {
		case Text, TextSequence:
		default:
			return nil, fmt.Errorf("schema %q field %q has unsupported type %q", name, f.Name, f.Type)
		}
	}

	return &Descriptor{
		name:        name,
		description: description,
		fields:      append([]Field(nil), fields...),
	}, nil
}

// MustNew is like New but panics on an invalid declaration. Intended for
// package-level schema variables.
func MustNew(name, description string, fields ...Field) *Descriptor {
	d, err := New(name, description, fields...)
	if err != nil {
		panic(err)
	}
	return d
}

// SchemaName returns the descriptor's name
func (d *Descriptor) SchemaName() string {
	return d.name
}

// SchemaDescription returns the descriptor's optional description
func (d *Descriptor) SchemaDescription() string {
	return d.description
}

// Fields returns a copy of the declared fields in order.
func (d *Descriptor) Fields() []Field {
	return append([]Field(nil), d.fields...)
}

// JSONSchema renders the descriptor as a JSON Schema document.
func (d *Descriptor) JSONSchema() map[string]any {
	properties := make(map[string]any, len(d.fields))
	required := make([]string, 0, len(d.fields))

	for _, f := range d.fields {
		var prop map[string]any
		switch f.Type {
		case Text:
			prop = map[string]any{"type": "string"}
		case TextSequence:
			prop = map[string]any{
				"type":  "array",
				"items": map[string]any{"type": "string"},
			}
		}
		if f.Description != "" {
			prop["description"] = f.Description
		}
		properties[f.Name] = prop
		required = append(required, f.Name)
	}

	return map[string]any{
		"type":                 "object",
		"properties":           properties,
		"required":             required,
		"additionalProperties": false,
	}
}

func (d *Descriptor) compile() (*gojsonschema.Schema, error) {
	d.compileOnce.Do(func() {
		loader := gojsonschema.NewGoLoader(d.JSONSchema())
		d.compiled, d.compileErr = gojsonschema.NewSchema(loader)
	})
	return d.compiled, d.compileErr
}

// Validate checks raw JSON against the descriptor. Any mismatch, including
// malformed JSON, is reported as *llm.SchemaValidationError.
func (d *Descriptor) Validate(data []byte) error {
	compiled, err := d.compile()
	if err != nil {
		return fmt.Errorf("compiling schema %q: %w", d.name, err)
	}

	result, err := compiled.Validate(gojsonschema.NewBytesLoader(data))
	if err != nil {
		return &llm.SchemaValidationError{Schema: d.name, Err: err}
	}

	if result.Valid() {
		return nil
	}

	violations := make([]string, 0, len(result.Errors()))
	for _, e := range result.Errors() {
		violations = append(violations, e.String())
	}
	return &llm.SchemaValidationError{Schema: d.name, Violations: violations}
}

// Decode validates data and unmarshals it into target, which must be a
// pointer to the record type the descriptor describes.
func (d *Descriptor) Decode(data []byte, target any) error {
	if err := d.Validate(data); err != nil {
		return err
	}
	if err := json.Unmarshal(data, target); err != nil {
		return &llm.SchemaValidationError{Schema: d.name, Err: err}
	}
	return nil
}
