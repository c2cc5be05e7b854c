// Package schemas checks CRM responses and the agent's status payload against
// the JSON Schemas embedded in the top-level schemas package.
package schemas

import (
	"fmt"
	"strings"
	"sync"

	rootschemas "github.com/jonathan/gtm-agent/schemas"
	"github.com/xeipuuv/gojsonschema"
)

// Violation is one failed constraint, located by its JSON path.
type Violation struct {
	Path   string
	Reason string
}

// MismatchError reports a document that parsed but does not fit its schema.
type MismatchError struct {
	Schema     string
	Violations []Violation
}

func (e *MismatchError) Error() string {
	parts := make([]string, len(e.Violations))
	for i, v := range e.Violations {
		parts[i] = v.Path + ": " + v.Reason
	}
	return fmt.Sprintf("%s: %s", e.Schema, strings.Join(parts, "; "))
}

// SchemaError covers failures that are not the document's shape: a schema
// that is not embedded or does not compile, or a body that is not JSON.
type SchemaError struct {
	Schema string
	Stage  string
	Err    error
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("schema %s: %s: %v", e.Schema, e.Stage, e.Err)
}

func (e *SchemaError) Unwrap() error { return e.Err }

var compiled sync.Map // name -> func() (*gojsonschema.Schema, error)

func schemaFor(name string) (*gojsonschema.Schema, error) {
	once, _ := compiled.LoadOrStore(name, sync.OnceValues(func() (*gojsonschema.Schema, error) {
		return compile(name)
	}))
	return once.(func() (*gojsonschema.Schema, error))()
}

func compile(name string) (*gojsonschema.Schema, error) {
	data, err := rootschemas.FS.ReadFile(name)
	if err != nil {
		return nil, &SchemaError{Schema: name, Stage: "not embedded", Err: err}
	}
	s, err := gojsonschema.NewSchema(gojsonschema.NewBytesLoader(data))
	if err != nil {
		return nil, &SchemaError{Schema: name, Stage: "compile", Err: err}
	}
	return s, nil
}

// ValidateEmbedded checks document against the embedded schema called name
// (one of the rootschemas constants). Compiled schemas are reused.
func ValidateEmbedded(name string, document []byte) error {
	schema, err := schemaFor(name)
	if err != nil {
		return err
	}

	result, err := schema.Validate(gojsonschema.NewBytesLoader(document))
	if err != nil {
		return &SchemaError{Schema: name, Stage: "decode document", Err: err}
	}
	if result.Valid() {
		return nil
	}

	mismatch := &MismatchError{Schema: name}
	for _, re := range result.Errors() {
		path := re.Field()
		if path == "" || path == "(root)" {
			path = "$"
		}
		mismatch.Violations = append(mismatch.Violations, Violation{Path: path, Reason: re.Description()})
	}
	return mismatch
}
