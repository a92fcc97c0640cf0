package experiment

import "bytes"
import "context"
import "crypto/sha256"
import "encoding/hex"
import "encoding/json"
import "fmt"
import "os"

import "github.com/goccy/go-yaml"
import "github.com/gowebpki/jcs"

import "github.com/neurlang/srtrain/ctxlog"
import srerrors "github.com/neurlang/srtrain/errors"

// Load reads the descriptor at path, checks required fields, validates it
// against the descriptor schema, resolves placeholders and path fields and
// makes sure the checkpoint directory exists.
func Load(ctx context.Context, path string) (*Descriptor, error) {
	info, err := os.Stat(path)
	if err != nil || !info.Mode().IsRegular() {
		return nil, srerrors.New(srerrors.CategoryPath, srerrors.CodeInvalidPath,
			fmt.Sprintf("invalid experiment path: %s", path))
	}
	// #nosec G304 -- the descriptor path is the process argument.
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, srerrors.Wrap(fmt.Errorf("read experiment: %w", err), srerrors.CategoryPath, srerrors.CodeInvalidPath)
	}
	d, err := Parse(raw)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(d.Checkpoint.Path, 0o755); err != nil {
		return nil, srerrors.Wrap(fmt.Errorf("create checkpoint directory: %w", err), srerrors.CategoryPath, srerrors.CodeInvalidPath)
	}

	digest, err := d.Digest()
	if err != nil {
		return nil, err
	}
	ctxlog.FromContext(ctx).Info("Experiment loaded",
		"path", path,
		"experiment", d.Name,
		"global_step", d.GlobalStep,
		"summary", d.Summary.Path,
		"checkpoint", d.Checkpoint.Path,
		"digest", digest,
	)
	return d, nil
}

// Parse turns descriptor YAML into a resolved Descriptor without touching
// the filesystem beyond path normalization.
func Parse(raw []byte) (*Descriptor, error) {
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil, srerrors.New(srerrors.CategoryConfig, srerrors.CodeMissingField, "an experiment needs a name")
	}
	tree, err := decodeTree(raw)
	if err != nil {
		return nil, srerrors.Wrap(fmt.Errorf("parse experiment: %w", err), srerrors.CategoryConfig, srerrors.CodeSchemaViolation)
	}
	if err := checkRequired(tree); err != nil {
		return nil, err
	}
	if _, ok := tree["global_step"]; !ok {
		tree["global_step"] = 0
	}
	if err := validateTree(tree); err != nil {
		return nil, srerrors.Wrap(err, srerrors.CategoryConfig, srerrors.CodeSchemaViolation)
	}
	name := tree["name"].(string)
	if err := ResolveStrings(tree, name); err != nil {
		return nil, srerrors.Wrap(fmt.Errorf("resolve experiment: %w", err), srerrors.CategoryConfig, srerrors.CodeSchemaViolation)
	}

	encoded, err := json.Marshal(tree)
	if err != nil {
		return nil, fmt.Errorf("encode experiment: %w", err)
	}
	var d Descriptor
	if err := json.Unmarshal(encoded, &d); err != nil {
		return nil, srerrors.Wrap(fmt.Errorf("decode experiment: %w", err), srerrors.CategoryConfig, srerrors.CodeSchemaViolation)
	}
	return &d, nil
}

func checkRequired(tree map[string]any) error {
	if name, ok := tree["name"].(string); !ok || name == "" {
		return srerrors.New(srerrors.CategoryConfig, srerrors.CodeMissingField, "an experiment needs a name")
	}
	if !hasString(tree, "summary", "path") {
		return srerrors.New(srerrors.CategoryConfig, srerrors.CodeMissingField, "an experiment needs summary.path")
	}
	if !hasString(tree, "checkpoint", "path") {
		return srerrors.New(srerrors.CategoryConfig, srerrors.CodeMissingField, "an experiment needs checkpoint.path")
	}
	return nil
}

func hasString(tree map[string]any, section, key string) bool {
	m, ok := tree[section].(map[string]any)
	if !ok {
		return false
	}
	s, ok := m[key].(string)
	return ok && s != ""
}

// Marshal renders d as descriptor YAML.
func (d *Descriptor) Marshal() ([]byte, error) {
	raw, err := yaml.MarshalWithOptions(d, yaml.CustomMarshaler[float64](formatFloat))
	if err != nil {
		return nil, fmt.Errorf("encode experiment: %w", err)
	}
	return raw, nil
}

// Digest is the sha256 of the RFC 8785 canonical JSON form of d.
func (d *Descriptor) Digest() (string, error) {
	raw, err := json.Marshal(d)
	if err != nil {
		return "", fmt.Errorf("digest experiment: %w", err)
	}
	canonical, err := jcs.Transform(raw)
	if err != nil {
		return "", fmt.Errorf("digest experiment: %w", err)
	}
	sum := sha256.Sum256(canonical)
	return hex.EncodeToString(sum[:]), nil
}
