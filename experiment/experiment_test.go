package experiment

import "context"
import "os"
import "path/filepath"
import "strings"
import "testing"

import "github.com/google/go-cmp/cmp"
import "github.com/stretchr/testify/assert"
import "github.com/stretchr/testify/require"

import srerrors "github.com/neurlang/srtrain/errors"

const freshDescriptor = `
name: x4
checkpoint:
  path: "{dir}/{experiment_name}/ckpt"
  cycle: 2
summary:
  path: "{dir}/{experiment_name}/summary"
datasets:
  train:
    subsets: [a, b]
    batch_size: 4
    sample_rate: 0.5
    augment: true
models:
  name: upscale
  parameters:
    scale: 2
  principals:
    upscaler:
optimizers:
  main:
    optimizer: adam
    learning_rate: 0.001
    extension_model: upscaler_mse
    dataset:
      name: train
      input_indices: [0, 1]
    cycle: 1
validators:
  - name: val
    principal_model: upscaler
    dataset:
      name: train
      input_indices: [0]
      hd_image_index: 1
    cycle: 2
`

func writeDescriptor(t *testing.T, body string) (string, string) {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "experiment.yaml")
	body = strings.ReplaceAll(body, "{dir}", dir)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return dir, path
}

func TestLoad_FreshDescriptor(t *testing.T) {
	dir, path := writeDescriptor(t, freshDescriptor)
	d, err := Load(context.Background(), path)
	require.NoError(t, err)

	lr := 0.001
	want := &Descriptor{
		Name:       "x4",
		GlobalStep: 0,
		Checkpoint: Checkpoint{Path: filepath.Join(dir, "x4", "ckpt"), Cycle: 2},
		Summary:    Summary{Path: filepath.Join(dir, "x4", "summary")},
		Datasets: map[string]Dataset{
			"train": {Subsets: []string{"a", "b"}, BatchSize: 4, SampleRate: 0.5, Augment: true},
		},
		Models: Models{
			Name:       "upscale",
			Parameters: map[string]any{"scale": 2.0},
			Principals: map[string]Principal{"upscaler": {}},
		},
		Optimizers: map[string]Optimizer{
			"main": {
				Optimizer:      "adam",
				LearningRate:   &lr,
				ExtensionModel: "upscaler_mse",
				Dataset:        Binding{Name: "train", InputIndices: []int{0, 1}},
				Cycle:          1,
			},
		},
		Validators: []Validator{{
			Name:           "val",
			PrincipalModel: "upscaler",
			Dataset:        ValidatorBinding{Name: "train", InputIndices: []int{0}, HDImageIndex: 1},
			Cycle:          2,
		}},
	}
	if diff := cmp.Diff(want, d); diff != "" {
		t.Fatalf("descriptor mismatch (-want +got):\n%s", diff)
	}

	info, err := os.Stat(d.Checkpoint.Path)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestLoad_RejectsBadPaths(t *testing.T) {
	_, err := Load(context.Background(), filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.Equal(t, srerrors.CategoryPath, srerrors.CategoryOf(err))
	assert.Equal(t, srerrors.CodeInvalidPath, srerrors.CodeOf(err))

	_, err = Load(context.Background(), t.TempDir())
	require.Error(t, err)
	assert.Equal(t, srerrors.CategoryPath, srerrors.CategoryOf(err))
}

func TestParse_MissingRequiredFields(t *testing.T) {
	cases := map[string]string{
		"name":            "summary: {path: s}\ncheckpoint: {path: c, cycle: 1}\n",
		"summary.path":    "name: n\ncheckpoint: {path: c, cycle: 1}\n",
		"checkpoint.path": "name: n\nsummary: {path: s}\ncheckpoint: {cycle: 1}\n",
		"empty":           "",
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Parse([]byte(body))
			require.Error(t, err)
			assert.Equal(t, srerrors.CategoryConfig, srerrors.CategoryOf(err))
			assert.Equal(t, srerrors.CodeMissingField, srerrors.CodeOf(err))
		})
	}
}

func TestParse_SchemaViolations(t *testing.T) {
	base := "name: n\nsummary: {path: /s}\nmodels: {name: m, principals: {}}\n"
	cases := map[string]string{
		"zero checkpoint cycle": base + "checkpoint: {path: /c, cycle: 0}\n",
		"missing models":        "name: n\nsummary: {path: /s}\ncheckpoint: {path: /c, cycle: 1}\n",
		"negative batch": base + "checkpoint: {path: /c, cycle: 1}\n" +
			"datasets: {a: {batch_size: -1}}\n",
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Parse([]byte(body))
			require.Error(t, err)
			assert.Equal(t, srerrors.CategoryConfig, srerrors.CategoryOf(err))
			assert.Equal(t, srerrors.CodeSchemaViolation, srerrors.CodeOf(err))
		})
	}
}

func TestParse_KeepsStoredGlobalStep(t *testing.T) {
	d, err := Parse([]byte("name: n\nglobal_step: 40\nsummary: {path: /s}\ncheckpoint: {path: /c, cycle: 1}\nmodels: {name: m, principals: {}}\n"))
	require.NoError(t, err)
	assert.EqualValues(t, 40, d.GlobalStep)
}

func TestResolveStrings_Placeholder(t *testing.T) {
	data := map[string]any{
		"title":             "{experiment_name}-{experiment_name}",
		"{experiment_name}": "key stays",
		"count":             3,
		"flag":              true,
		"nested": map[string]any{
			"list": []any{"a/{experiment_name}", 1.5, []any{"{experiment_name}"}},
		},
	}
	require.NoError(t, ResolveStrings(data, "X"))

	want := map[string]any{
		"title":             "X-X",
		"{experiment_name}": "key stays",
		"count":             3,
		"flag":              true,
		"nested": map[string]any{
			"list": []any{"a/X", 1.5, []any{"X"}},
		},
	}
	if diff := cmp.Diff(want, data); diff != "" {
		t.Fatalf("resolved mismatch (-want +got):\n%s", diff)
	}
}

func TestResolveStrings_PathNormalization(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)
	wd, err := os.Getwd()
	require.NoError(t, err)

	data := map[string]any{
		"path":         "/abs/{experiment_name}",
		"weights_path": "~/models/{experiment_name}",
		"log_path":     "rel/{experiment_name}",
		"root_path":    "~",
		"other":        "rel/{experiment_name}",
		"int_path":     7,
		"principals":   []any{"rel"},
	}
	require.NoError(t, ResolveStrings(data, "X"))

	assert.Equal(t, "/abs/X", data["path"])
	assert.Equal(t, filepath.Join(home, "models", "X"), data["weights_path"])
	assert.Equal(t, filepath.Join(wd, "rel", "X"), data["log_path"])
	assert.Equal(t, home, data["root_path"])
	assert.Equal(t, "rel/X", data["other"])
	assert.Equal(t, 7, data["int_path"])
	assert.Equal(t, []any{"rel"}, data["principals"])
}

func TestDescriptorMarshalRoundTripAndDigest(t *testing.T) {
	_, path := writeDescriptor(t, freshDescriptor)
	d, err := Load(context.Background(), path)
	require.NoError(t, err)

	raw, err := d.Marshal()
	require.NoError(t, err)
	again, err := Parse(raw)
	require.NoError(t, err)
	if diff := cmp.Diff(d, again); diff != "" {
		t.Fatalf("round trip mismatch (-want +got):\n%s", diff)
	}

	d1, err := d.Digest()
	require.NoError(t, err)
	d2, err := again.Digest()
	require.NoError(t, err)
	assert.Equal(t, d1, d2)
	assert.Len(t, d1, 64)

	clone, err := d.Clone()
	require.NoError(t, err)
	clone.GlobalStep = 9
	d3, err := clone.Digest()
	require.NoError(t, err)
	assert.NotEqual(t, d1, d3)
	assert.EqualValues(t, 0, d.GlobalStep)
}

func TestDescriptorMarshal_ExponentFloatsSurvive(t *testing.T) {
	_, path := writeDescriptor(t, freshDescriptor)
	d, err := Load(context.Background(), path)
	require.NoError(t, err)

	main := d.Optimizers["main"]
	main.Config = map[string]any{
		"name":          "Adam",
		"learning_rate": 0.001,
		"beta_1":        0.9,
		"epsilon":       1e-7,
		"amsgrad":       false,
		"tiny":          -2.5e-12,
	}
	d.Optimizers["main"] = main

	raw, err := d.Marshal()
	require.NoError(t, err)
	assert.Contains(t, string(raw), "1.0e-07")

	again, err := Parse(raw)
	require.NoError(t, err)
	if diff := cmp.Diff(main.Config, again.Optimizers["main"].Config); diff != "" {
		t.Fatalf("optimizer config mismatch (-want +got):\n%s", diff)
	}
}

func TestParse_ExponentNotation(t *testing.T) {
	body := `
name: "1e3"
summary: {path: /s}
checkpoint: {path: /c, cycle: 1}
datasets:
  train: {batch_size: 1, sample_rate: 5e-1}
models: {name: m, principals: {p: {}}}
optimizers:
  main:
    optimizer: adam
    learning_rate: 1e-4
    extension_model: p
    dataset: {name: train, input_indices: [0]}
    cycle: 1
    config: {epsilon: 1E-7, label: '2e5', steps: [1e2, 3]}
`
	d, err := Parse([]byte(body))
	require.NoError(t, err)

	assert.Equal(t, "1e3", d.Name)
	assert.Equal(t, 0.5, d.Datasets["train"].SampleRate)
	require.NotNil(t, d.Optimizers["main"].LearningRate)
	assert.Equal(t, 1e-4, *d.Optimizers["main"].LearningRate)
	cfg := d.Optimizers["main"].Config
	assert.Equal(t, 1e-7, cfg["epsilon"])
	assert.Equal(t, "2e5", cfg["label"])
	assert.Equal(t, []any{100.0, 3.0}, cfg["steps"])
}

func TestParse_SchemaViolationNamesField(t *testing.T) {
	body := "name: n\nsummary: {path: /s}\ncheckpoint: {path: /c, cycle: 1}\n" +
		"models: {name: m, principals: {}}\ndatasets: {a: {batch_size: 0}}\n"
	_, err := Parse([]byte(body))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "batch_size")
	assert.NotContains(t, err.Error(), "{property}")
}
