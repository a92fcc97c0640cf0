package summary

import "bufio"
import "context"
import "encoding/json"
import "image/png"
import "io"
import "math"
import "net/http"
import "os"
import "path/filepath"
import "strings"
import "testing"

import "github.com/prometheus/client_golang/prometheus/testutil"
import "github.com/stretchr/testify/assert"
import "github.com/stretchr/testify/require"

import "github.com/neurlang/srtrain/tensor"

func readEvents(t *testing.T, dir string) []Event {
	t.Helper()
	f, err := os.Open(filepath.Join(dir, EventsFile))
	require.NoError(t, err)
	defer f.Close()
	var out []Event
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var ev Event
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &ev))
		out = append(out, ev)
	}
	require.NoError(t, scanner.Err())
	return out
}

func TestScalarEventsAndGauges(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "summary")
	w, err := Open(dir, "run-1")
	require.NoError(t, err)
	assert.Equal(t, dir, w.Dir())

	require.NoError(t, w.Scalar("loss[main]", 0.25, 3))
	require.NoError(t, w.Scalar("psnr[val]", math.Inf(1), 4))

	events := readEvents(t, dir)
	require.Len(t, events, 2)
	assert.Equal(t, "loss[main]", events[0].Tag)
	assert.Equal(t, int64(3), events[0].Step)
	assert.Equal(t, "run-1", events[0].RunID)
	require.NotNil(t, events[0].Value)
	assert.Equal(t, 0.25, *events[0].Value)
	assert.Nil(t, events[1].Value)
	assert.Equal(t, "+Inf", events[1].Special)

	assert.Equal(t, 0.25, testutil.ToFloat64(w.scalars.WithLabelValues("loss[main]")))
	assert.Equal(t, 4.0, testutil.ToFloat64(w.step))
	assert.Equal(t, 2.0, testutil.ToFloat64(w.events.WithLabelValues("scalar")))
}

func TestImageWritesPNG(t *testing.T) {
	dir := t.TempDir()
	w, err := Open(dir, "run")
	require.NoError(t, err)

	img := tensor.New(4, 6, 3)
	for i := range img.Data {
		img.Data[i] = 1
	}
	require.NoError(t, w.Image("hd-sr[val]", img, 2))

	events := readEvents(t, dir)
	require.Len(t, events, 1)
	assert.Equal(t, "image", events[0].Kind)
	assert.Equal(t, filepath.Join(ImagesDir, "0000000000000002_hd-sr_val_.png"), events[0].Path)

	f, err := os.Open(filepath.Join(dir, events[0].Path))
	require.NoError(t, err)
	defer f.Close()
	decoded, err := png.Decode(f)
	require.NoError(t, err)
	assert.Equal(t, 6, decoded.Bounds().Dx())
	assert.Equal(t, 4, decoded.Bounds().Dy())
	r, _, _, _ := decoded.At(0, 0).RGBA()
	assert.Equal(t, uint32(0xffff), r)
}

func TestImageRejectsBadShapes(t *testing.T) {
	w, err := Open(t.TempDir(), "run")
	require.NoError(t, err)
	require.Error(t, w.Image("x", tensor.New(2, 2), 0))
	require.Error(t, w.Image("x", tensor.New(2, 2, 2), 0))
}

func TestServeExposesMetrics(t *testing.T) {
	w, err := Open(t.TempDir(), "run")
	require.NoError(t, err)
	require.NoError(t, w.Scalar("loss[main]", 1.5, 1))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	addr, err := Serve(ctx, "127.0.0.1:0", w.Registry())
	require.NoError(t, err)

	resp, err := http.Get("http://" + addr.String() + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(body), `srtrain_scalar{tag="loss[main]"} 1.5`), string(body))
}
