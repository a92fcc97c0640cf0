package experiment

import "math"
import "regexp"
import "strconv"
import "strings"

import "github.com/goccy/go-yaml"
import "github.com/goccy/go-yaml/ast"
import "github.com/goccy/go-yaml/parser"
import "github.com/goccy/go-yaml/token"

// exponentFloat matches plain scalars such as 1e-4 that YAML 1.2 reads as
// floats but the YAML 1.1 resolver leaves as strings.
var exponentFloat = regexp.MustCompile(`^[-+]?(\.[0-9]+|[0-9]+(\.[0-9]*)?)[eE][-+]?[0-9]+$`)

// decodeTree parses descriptor YAML into a generic tree. Unquoted numbers in
// exponent form decode as float64; quoted ones stay strings.
func decodeTree(raw []byte) (map[string]any, error) {
	file, err := parser.ParseBytes(raw, 0)
	if err != nil {
		return nil, err
	}
	var tree map[string]any
	for _, doc := range file.Docs {
		if doc.Body == nil {
			continue
		}
		ast.Walk(exponentFloats{}, doc.Body)
		if err := yaml.NodeToValue(doc.Body, &tree); err != nil {
			return nil, err
		}
		break
	}
	return tree, nil
}

type exponentFloats struct{}

func (v exponentFloats) Visit(node ast.Node) ast.Visitor {
	switch n := node.(type) {
	case *ast.MappingValueNode:
		n.Value = asFloat(n.Value)
	case *ast.SequenceNode:
		for i, value := range n.Values {
			n.Values[i] = asFloat(value)
		}
	}
	return v
}

func asFloat(node ast.Node) ast.Node {
	s, ok := node.(*ast.StringNode)
	if !ok || s.Token == nil || s.Token.Type != token.StringType || !exponentFloat.MatchString(s.Value) {
		return node
	}
	f, err := strconv.ParseFloat(s.Value, 64)
	if err != nil {
		return node
	}
	n := ast.Float(s.Token)
	n.Value = f
	return n
}

// formatFloat renders f so that any YAML resolver reads it back as a float:
// the mantissa always carries a dot, 1e-07 is written as 1.0e-07.
func formatFloat(f float64) ([]byte, error) {
	switch {
	case math.IsInf(f, 1):
		return []byte(".inf"), nil
	case math.IsInf(f, -1):
		return []byte("-.inf"), nil
	case math.IsNaN(f):
		return []byte(".nan"), nil
	}
	s := strconv.FormatFloat(f, 'g', -1, 64)
	if strings.Contains(s, ".") {
		return []byte(s), nil
	}
	if i := strings.IndexByte(s, 'e'); i >= 0 {
		return []byte(s[:i] + ".0" + s[i:]), nil
	}
	return []byte(s + ".0"), nil
}
