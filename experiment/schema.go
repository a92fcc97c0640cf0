package experiment

import _ "embed"
import "encoding/json"
import "fmt"
import "sort"
import "strings"
import "sync"

import "github.com/kaptinlin/jsonschema"

//go:embed descriptor.schema.json
var descriptorSchema []byte

var compiledSchema = sync.OnceValues(func() (*jsonschema.Schema, error) {
	compiler := jsonschema.NewCompiler()
	schema, err := compiler.Compile(descriptorSchema)
	if err != nil {
		return nil, fmt.Errorf("compile descriptor schema: %w", err)
	}
	return schema, nil
})

// validateTree checks the parsed descriptor against the embedded schema.
func validateTree(tree map[string]any) error {
	schema, err := compiledSchema()
	if err != nil {
		return err
	}
	raw, err := json.Marshal(tree)
	if err != nil {
		return fmt.Errorf("encode descriptor: %w", err)
	}
	result := schema.ValidateJSON(raw)
	if result.IsValid() {
		return nil
	}
	detailed := result.GetDetailedErrors()
	messages := make([]string, 0, len(detailed))
	for path, message := range detailed {
		messages = append(messages, fmt.Sprintf("%s: %s", path, message))
	}
	sort.Strings(messages)
	return fmt.Errorf("descriptor schema validation failed: %s", strings.Join(messages, "; "))
}
