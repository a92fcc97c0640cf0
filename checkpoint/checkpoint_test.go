package checkpoint

import "context"
import "fmt"
import "os"
import "path/filepath"
import "testing"

import "github.com/stretchr/testify/assert"
import "github.com/stretchr/testify/require"

import srerrors "github.com/neurlang/srtrain/errors"
import "github.com/neurlang/srtrain/experiment"
import "github.com/neurlang/srtrain/model"
import "github.com/neurlang/srtrain/net/upscale"
import "github.com/neurlang/srtrain/optimizer"
import "github.com/neurlang/srtrain/tensor"

func touch(t *testing.T, dir, name string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o600))
}

func TestNames(t *testing.T) {
	assert.Equal(t, "0000000000000042_checkpoint.yaml", DescriptorName(42))
	assert.Equal(t, "0000000000000042_upscaler.json.lzw", WeightsName(42, "upscaler"))
	assert.Less(t, DescriptorName(9), DescriptorName(10))
}

func TestLatest_PicksHighestStep(t *testing.T) {
	dir := t.TempDir()
	touch(t, dir, DescriptorName(5))
	touch(t, dir, DescriptorName(10))
	touch(t, dir, "notes.txt")
	touch(t, dir, WeightsName(20, "upscaler"))
	touch(t, dir, "0000000000000099_checkpoint.yaml.tmp")

	got, err := Latest(dir)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "0000000000000010_checkpoint.yaml"), got)
}

func TestLatest_NotFound(t *testing.T) {
	dir := t.TempDir()
	touch(t, dir, "unrelated.yaml")
	_, err := Latest(dir)
	require.Error(t, err)
	assert.True(t, srerrors.IsNotFound(err))
	assert.Contains(t, err.Error(), dir)
}

func TestLatest_FilePathUnchanged(t *testing.T) {
	dir := t.TempDir()
	touch(t, dir, DescriptorName(10))
	touch(t, dir, "fresh.yaml")
	path := filepath.Join(dir, "fresh.yaml")
	got, err := Latest(path)
	require.NoError(t, err)
	assert.Equal(t, path, got)
}

func descriptor(dir string) *experiment.Descriptor {
	lr := 0.01
	return &experiment.Descriptor{
		Name:       "test",
		GlobalStep: 3,
		Checkpoint: experiment.Checkpoint{Path: dir, Cycle: 2},
		Summary:    experiment.Summary{Path: filepath.Join(dir, "summary")},
		Models: experiment.Models{
			Name:       upscale.Name,
			Principals: map[string]experiment.Principal{upscale.PrincipalName: {}},
		},
		Optimizers: map[string]experiment.Optimizer{
			"main": {
				Optimizer: "sgd", LearningRate: &lr, ExtensionModel: upscale.ExtensionName,
				Dataset: experiment.Binding{Name: "train", InputIndices: []int{0, 1}}, Cycle: 1},
		},
	}
}

func TestSave_WritesWeightsThenDescriptor(t *testing.T) {
	dir := t.TempDir()
	d := descriptor(dir)
	up := upscale.New(2, 3)
	up.Parameters()[0].Value.Data[0] = 1.5
	opt, err := optimizer.Build("sgd", d.Optimizers["main"].LearningRate, nil)
	require.NoError(t, err)

	gen, err := Save(context.Background(), d, 12,
		map[string]model.Principal{upscale.PrincipalName: up},
		map[string]optimizer.Optimizer{"main": opt})
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(dir, DescriptorName(12)), gen.Path)
	assert.EqualValues(t, 3, d.GlobalStep, "input descriptor must not change")
	assert.Empty(t, d.Models.Principals[upscale.PrincipalName].Path)

	latest, err := Latest(dir)
	require.NoError(t, err)
	assert.Equal(t, gen.Path, latest)

	loaded, err := experiment.Load(context.Background(), latest)
	require.NoError(t, err)
	assert.EqualValues(t, 12, loaded.GlobalStep)
	weights := loaded.Models.Principals[upscale.PrincipalName].Path
	assert.Equal(t, filepath.Join(dir, WeightsName(12, upscale.PrincipalName)), weights)
	assert.Equal(t, "SGD", loaded.Optimizers["main"].Config["name"])
	assert.Equal(t, 0.01, loaded.Optimizers["main"].Config["learning_rate"])

	restored := upscale.New(2, 3)
	require.NoError(t, restored.LoadWeights(weights))
	assert.Equal(t, 1.5, restored.Parameters()[0].Value.Data[0])

	digest, err := loaded.Digest()
	require.NoError(t, err)
	assert.Equal(t, gen.Digest, digest)
}

type failingPrincipal struct{}

func (failingPrincipal) Parameters() []*model.Parameter { return nil }
func (failingPrincipal) Predict([]tensor.Tensor) (tensor.Tensor, error) {
	return tensor.Tensor{}, nil
}
func (failingPrincipal) SaveWeights(string) error { return fmt.Errorf("disk full") }
func (failingPrincipal) LoadWeights(string) error { return nil }

func TestSave_FailedWeightsLeaveNoGeneration(t *testing.T) {
	dir := t.TempDir()
	d := descriptor(dir)
	_, err := Save(context.Background(), d, 4,
		map[string]model.Principal{"a": upscale.New(2, 3), "b": failingPrincipal{}}, nil)
	require.Error(t, err)

	_, err = Latest(dir)
	require.Error(t, err)
	assert.True(t, srerrors.IsNotFound(err))
}

func TestSave_UnknownOptimizer(t *testing.T) {
	dir := t.TempDir()
	opt, err := optimizer.Build("adam", nil, nil)
	require.NoError(t, err)
	_, err = Save(context.Background(), descriptor(dir), 1, nil, map[string]optimizer.Optimizer{"other": opt})
	require.Error(t, err)
}
