// Package summary is the metrics sink: an append-only JSONL event log,
// PNG image artifacts, and Prometheus gauges mirroring the latest values.
package summary

import "encoding/json"
import "fmt"
import "math"
import "path/filepath"
import "regexp"
import "sync"
import "time"

import "github.com/prometheus/client_golang/prometheus"
import "github.com/prometheus/client_golang/prometheus/promauto"

import "github.com/neurlang/srtrain/fsx"
import "github.com/neurlang/srtrain/tensor"

const (
	EventsFile = "events.jsonl"
	ImagesDir  = "images"
)

// Event is one line of the event log. Non-finite scalars have a nil Value
// and carry their spelling in Special.
type Event struct {
	Time    time.Time `json:"time"`
	RunID   string    `json:"run_id"`
	Step    int64     `json:"step"`
	Kind    string    `json:"kind"`
	Tag     string    `json:"tag"`
	Value   *float64  `json:"value,omitempty"`
	Special string    `json:"special,omitempty"`
	Path    string    `json:"path,omitempty"`
	Digest  string    `json:"digest,omitempty"`
}

type Writer struct {
	dir   string
	runID string

	mu       sync.Mutex
	registry *prometheus.Registry
	scalars  *prometheus.GaugeVec
	events   *prometheus.CounterVec
	step     prometheus.Gauge
}

// Open creates dir if needed and returns a writer appending to
// dir/events.jsonl.
func Open(dir, runID string) (*Writer, error) {
	if dir == "" {
		return nil, fmt.Errorf("summary: empty directory")
	}
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)
	w := &Writer{
		dir:      dir,
		runID:    runID,
		registry: registry,
		scalars: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "srtrain_scalar",
			Help: "Latest value of each summary scalar, labelled by tag.",
		}, []string{"tag"}),
		events: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "srtrain_summary_events_total",
			Help: "Summary events written, by kind.",
		}, []string{"kind"}),
		step: factory.NewGauge(prometheus.GaugeOpts{
			Name: "srtrain_global_step",
			Help: "Global step of the most recent summary event.",
		}),
	}
	if err := ensureDir(filepath.Join(dir, ImagesDir)); err != nil {
		return nil, err
	}
	return w, nil
}

func (w *Writer) Dir() string { return w.dir }

// Registry exposes the writer's gauges for a scrape endpoint.
func (w *Writer) Registry() *prometheus.Registry { return w.registry }

// Scalar records a named value at step.
func (w *Writer) Scalar(tag string, value float64, step int64) error {
	ev := Event{Kind: "scalar", Tag: tag, Step: step}
	switch {
	case math.IsNaN(value):
		ev.Special = "NaN"
	case math.IsInf(value, 1):
		ev.Special = "+Inf"
	case math.IsInf(value, -1):
		ev.Special = "-Inf"
	default:
		ev.Value = &value
	}
	if err := w.append(ev); err != nil {
		return err
	}
	w.scalars.WithLabelValues(tag).Set(value)
	return nil
}

// Image writes img, an [H, W, C] tensor with values in [0, 1], as a PNG
// under images/ and records it.
func (w *Writer) Image(tag string, img tensor.Tensor, step int64) error {
	name := fmt.Sprintf("%016d_%s.png", step, sanitize(tag))
	path := filepath.Join(w.dir, ImagesDir, name)
	if err := writePNG(path, img); err != nil {
		return fmt.Errorf("summary image %s: %w", tag, err)
	}
	return w.append(Event{Kind: "image", Tag: tag, Step: step, Path: filepath.Join(ImagesDir, name)})
}

// Checkpoint records that a checkpoint generation was written.
func (w *Writer) Checkpoint(path, digest string, step int64) error {
	return w.append(Event{Kind: "checkpoint", Tag: "checkpoint", Step: step, Path: path, Digest: digest})
}

func (w *Writer) append(ev Event) error {
	ev.Time = time.Now().UTC()
	ev.RunID = w.runID
	line, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("summary: encode event: %w", err)
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := fsx.AppendLineLocked(filepath.Join(w.dir, EventsFile), line, 0o644); err != nil {
		return fmt.Errorf("summary: %w", err)
	}
	w.events.WithLabelValues(ev.Kind).Inc()
	w.step.Set(float64(ev.Step))
	return nil
}

var unsafeChars = regexp.MustCompile(`[^A-Za-z0-9_.-]+`)

func sanitize(tag string) string {
	return unsafeChars.ReplaceAllString(tag, "_")
}
