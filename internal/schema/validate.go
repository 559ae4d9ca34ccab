// Package schema validates serialized buildRequest payloads against the
// fixed wire-format schema and reports every offending field path.
package schema

import (
	"bytes"
	_ "embed"
	"fmt"
	"sort"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

//go:embed schema.json
var schemaJSON []byte

const schemaURL = "build-request.schema.json"

// ViolationError lists every schema violation found in one payload.
type ViolationError struct {
	Paths []string
}

func (e *ViolationError) Error() string {
	return fmt.Sprintf("schema validation failed at: %s", strings.Join(e.Paths, ", "))
}

// Validator checks payloads against a compiled JSON schema.
type Validator struct {
	schema *jsonschema.Schema
}

// New compiles the embedded buildRequest schema.
func New() (*Validator, error) {
	return fromBytes(schemaJSON)
}

// FromFile compiles a caller-supplied schema document instead of the
// embedded one.
func FromFile(path string) (*Validator, error) {
	compiler := jsonschema.NewCompiler()
	sch, err := compiler.Compile(path)
	if err != nil {
		return nil, fmt.Errorf("compile schema %s: %w", path, err)
	}
	return &Validator{schema: sch}, nil
}

func fromBytes(raw []byte) (*Validator, error) {
	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("parse schema document: %w", err)
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(schemaURL, doc); err != nil {
		return nil, fmt.Errorf("register schema: %w", err)
	}
	sch, err := compiler.Compile(schemaURL)
	if err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}
	return &Validator{schema: sch}, nil
}

// Validate checks one serialized payload. On violation it returns a
// ViolationError naming every offending instance path; it never repairs.
func (v *Validator) Validate(payload []byte) error {
	inst, err := jsonschema.UnmarshalJSON(bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("parse payload: %w", err)
	}

	err = v.schema.Validate(inst)
	if err == nil {
		return nil
	}

	var verr *jsonschema.ValidationError
	if ve, ok := err.(*jsonschema.ValidationError); ok {
		verr = ve
	} else {
		return fmt.Errorf("validate payload: %w", err)
	}

	paths := map[string]bool{}
	var collect func(e *jsonschema.ValidationError)
	collect = func(e *jsonschema.ValidationError) {
		if len(e.Causes) == 0 {
			paths[instancePath(e.InstanceLocation)] = true
			return
		}
		for _, cause := range e.Causes {
			collect(cause)
		}
	}
	collect(verr)

	out := make([]string, 0, len(paths))
	for p := range paths {
		out = append(out, p)
	}
	sort.Strings(out)
	return &ViolationError{Paths: out}
}

func instancePath(tokens []string) string {
	if len(tokens) == 0 {
		return "$"
	}
	return "$." + strings.Join(tokens, ".")
}
