package datasets

import "fmt"
import "hash/fnv"
import "math"
import "math/rand"

import "github.com/neurlang/srtrain/tensor"

// Synthetic generates smooth random HD images and their box-downscaled SD
// counterparts. Batches are (sd_images, hd_images) with pixels in [-1, 1].
type Synthetic struct {
	HDSize   int // HD edge length, must be a multiple of Scale
	Scale    int
	Channels int
}

// DefaultSynthetic is a 16x16 RGB, 2x upscaling task.
var DefaultSynthetic = Synthetic{HDSize: 16, Scale: 2, Channels: 3}

// Build implements Provider.
func (s Synthetic) Build(cfg Config) (Dataset, error) {
	if s.Scale < 1 || s.HDSize < s.Scale || s.HDSize%s.Scale != 0 || s.Channels < 1 {
		return nil, fmt.Errorf("invalid synthetic geometry %dx%d/%d", s.HDSize, s.Channels, s.Scale)
	}
	if cfg.BatchSize < 1 {
		return nil, fmt.Errorf("batch size must be positive, got %d", cfg.BatchSize)
	}
	if cfg.SampleRate < 0 || cfg.SampleRate > 1 {
		return nil, fmt.Errorf("sample rate must be within [0, 1], got %v", cfg.SampleRate)
	}
	h := fnv.New64a()
	for _, subset := range cfg.Subsets {
		h.Write([]byte(subset))
		h.Write([]byte{0})
	}
	return &synthetic{geometry: s, cfg: cfg, seed: int64(h.Sum64() >> 1), count: 1}, nil
}

type synthetic struct {
	geometry Synthetic
	cfg      Config
	seed     int64
	count    int
	index    int
}

// Shard keeps every count-th sample starting at index. Sharding a shard
// composes, so shards of shards stay disjoint.
func (d *synthetic) Shard(count, index int) (Dataset, error) {
	if count < 1 || index < 0 || index >= count {
		return nil, fmt.Errorf("invalid shard %d of %d", index, count)
	}
	out := *d
	out.index = d.index + d.count*index
	out.count = d.count * count
	return &out, nil
}

func (d *synthetic) Iterator() Iterator {
	return &syntheticIterator{d: d, position: int64(d.index)}
}

type syntheticIterator struct {
	d        *synthetic
	position int64
}

func (it *syntheticIterator) Next() (Batch, error) {
	g := it.d.geometry
	n := it.d.cfg.BatchSize
	lo := g.HDSize / g.Scale
	sd := tensor.New(n, lo, lo, g.Channels)
	hd := tensor.New(n, g.HDSize, g.HDSize, g.Channels)
	for i := 0; i < n; {
		k := it.position
		it.position += int64(it.d.count)
		rng := rand.New(rand.NewSource(it.d.seed ^ (k+1)*0x5851f42d4c957f2d))
		rate := it.d.cfg.SampleRate
		if rate > 0 && rng.Float64() >= rate {
			continue
		}
		it.fill(rng, hd.Index(i), sd.Index(i))
		i++
	}
	return Batch{sd, hd}, nil
}

func (it *syntheticIterator) fill(rng *rand.Rand, hd, sd tensor.Tensor) {
	g := it.d.geometry
	flip := it.d.cfg.Augment && rng.Intn(2) == 1
	for c := 0; c < g.Channels; c++ {
		fx := rng.Float64() * 0.8
		fy := rng.Float64() * 0.8
		phase := rng.Float64() * 2 * math.Pi
		for y := 0; y < g.HDSize; y++ {
			for x := 0; x < g.HDSize; x++ {
				sx := x
				if flip {
					sx = g.HDSize - 1 - x
				}
				hd.Data[(y*g.HDSize+x)*g.Channels+c] = math.Sin(fx*float64(sx) + fy*float64(y) + phase)
			}
		}
	}
	lo := g.HDSize / g.Scale
	area := float64(g.Scale * g.Scale)
	for y := 0; y < lo; y++ {
		for x := 0; x < lo; x++ {
			for c := 0; c < g.Channels; c++ {
				var s float64
				for dy := 0; dy < g.Scale; dy++ {
					for dx := 0; dx < g.Scale; dx++ {
						s += hd.Data[((y*g.Scale+dy)*g.HDSize+x*g.Scale+dx)*g.Channels+c]
					}
				}
				sd.Data[(y*lo+x)*g.Channels+c] = s / area
			}
		}
	}
}
