package datasets

import "testing"

import "github.com/stretchr/testify/assert"
import "github.com/stretchr/testify/require"

import "github.com/neurlang/srtrain/tensor"

func TestBatchPermute(t *testing.T) {
	sd := tensor.New(1, 2, 2, 1)
	hd := tensor.New(1, 4, 4, 1)
	out, err := Batch{sd, hd}.Permute([]int{1, 0})
	require.NoError(t, err)
	assert.Equal(t, []int{1, 4, 4, 1}, out[0].Shape)
	assert.Equal(t, []int{1, 2, 2, 1}, out[1].Shape)

	_, err = Batch{sd, hd}.Permute([]int{2})
	require.Error(t, err)
}

func TestSynthetic_BatchShapesAndRange(t *testing.T) {
	ds, err := DefaultSynthetic.Build(Config{Subsets: []string{"train"}, BatchSize: 3, SampleRate: 1})
	require.NoError(t, err)
	b, err := ds.Iterator().Next()
	require.NoError(t, err)
	require.Len(t, b, 2)
	assert.Equal(t, []int{3, 8, 8, 3}, b[0].Shape)
	assert.Equal(t, []int{3, 16, 16, 3}, b[1].Shape)
	for _, v := range b[1].Data {
		assert.True(t, v >= -1 && v <= 1)
	}
}

func TestSynthetic_Deterministic(t *testing.T) {
	cfg := Config{Subsets: []string{"a"}, BatchSize: 2, SampleRate: 0.5, Augment: true}
	d1, err := DefaultSynthetic.Build(cfg)
	require.NoError(t, err)
	d2, err := DefaultSynthetic.Build(cfg)
	require.NoError(t, err)
	b1, _ := d1.Iterator().Next()
	b2, _ := d2.Iterator().Next()
	assert.Equal(t, b1[1].Data, b2[1].Data)
}

func TestSynthetic_ShardsAreDisjointAndCoverTheStream(t *testing.T) {
	cfg := Config{Subsets: []string{"a"}, BatchSize: 1, SampleRate: 1}
	whole, err := DefaultSynthetic.Build(cfg)
	require.NoError(t, err)

	it := whole.Iterator()
	var stream [][]float64
	for i := 0; i < 4; i++ {
		b, err := it.Next()
		require.NoError(t, err)
		stream = append(stream, b[1].Data)
	}

	d, err := Distribute(whole, 2)
	require.NoError(t, err)
	assert.Equal(t, 2, d.Replicas())
	first, err := d.Next()
	require.NoError(t, err)
	second, err := d.Next()
	require.NoError(t, err)

	assert.Equal(t, stream[0], first[0][1].Data)
	assert.Equal(t, stream[1], first[1][1].Data)
	assert.Equal(t, stream[2], second[0][1].Data)
	assert.Equal(t, stream[3], second[1][1].Data)
}

func TestSynthetic_ShardOfShardComposes(t *testing.T) {
	whole, err := DefaultSynthetic.Build(Config{BatchSize: 1, SampleRate: 1})
	require.NoError(t, err)
	half, err := whole.Shard(2, 1)
	require.NoError(t, err)
	quarter, err := half.Shard(2, 1)
	require.NoError(t, err)
	direct, err := whole.Shard(4, 3)
	require.NoError(t, err)

	a, _ := quarter.Iterator().Next()
	b, _ := direct.Iterator().Next()
	assert.Equal(t, b[1].Data, a[1].Data)

	_, err = whole.Shard(2, 2)
	require.Error(t, err)
}

func TestSynthetic_RejectsBadConfig(t *testing.T) {
	_, err := DefaultSynthetic.Build(Config{BatchSize: 0})
	require.Error(t, err)
	_, err = DefaultSynthetic.Build(Config{BatchSize: 1, SampleRate: 2})
	require.Error(t, err)
	_, err = Synthetic{HDSize: 5, Scale: 2, Channels: 1}.Build(Config{BatchSize: 1})
	require.Error(t, err)
}
