package app

import (
	"context"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Faultbox/geomesh/internal/config"
	"github.com/Faultbox/geomesh/internal/elevation"
	"github.com/Faultbox/geomesh/internal/surface"
)

func elevationServer(t *testing.T) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		var req struct {
			Locations []struct {
				Latitude  float64 `json:"latitude"`
				Longitude float64 `json:"longitude"`
			} `json:"locations"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		results := make([]elevation.Sample, len(req.Locations))
		for i, l := range req.Locations {
			results[i] = elevation.Sample{Latitude: l.Latitude, Longitude: l.Longitude, Elevation: float64(i % 7 * 40)}
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"results": results})
	}))
	t.Cleanup(srv.Close)
	return srv, &calls
}

func remoteConfig(t *testing.T, endpoint string) *config.Config {
	dir := t.TempDir()
	cfg := config.Default()
	cfg.Grid.Resolution = 6
	cfg.Lookup.Endpoint = endpoint
	cfg.Lookup.CacheDir = filepath.Join(dir, "cache")
	cfg.Output.OBJPath = filepath.Join(dir, "terrain.obj")
	cfg.Output.FootprintPath = filepath.Join(dir, "footprint.geojson")
	return cfg
}

func TestRunRemote(t *testing.T) {
	srv, calls := elevationServer(t)
	cfg := remoteConfig(t, srv.URL)

	a, err := New(cfg)
	require.NoError(t, err)
	require.NoError(t, a.Run(context.Background()))

	assert.Equal(t, surface.Ready, a.Controller().State())
	assert.Equal(t, int32(1), calls.Load())

	obj, err := os.ReadFile(cfg.Output.OBJPath)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(obj), "o Map Mesh\n"))

	fp, err := os.ReadFile(cfg.Output.FootprintPath)
	require.NoError(t, err)
	assert.Contains(t, string(fp), "FeatureCollection")

	_, err = os.Stat(filepath.Join(cfg.Lookup.CacheDir, elevation.CacheFileName))
	require.NoError(t, err, "cache written")

	// A second run is served from the cache.
	b, err := New(cfg)
	require.NoError(t, err)
	require.NoError(t, b.Run(context.Background()))
	assert.Equal(t, int32(1), calls.Load())

	require.NoError(t, b.Controller().OnQualityChanged(0.1))
	assert.Less(t, b.Controller().Mesh().TriangleCount(), b.Controller().BaseMesh().TriangleCount())
}

func TestRunRemoteWithoutCache(t *testing.T) {
	srv, calls := elevationServer(t)
	cfg := remoteConfig(t, srv.URL)
	cfg.Lookup.CacheEnabled = false
	cfg.Output.FootprintPath = ""

	for range 2 {
		a, err := New(cfg)
		require.NoError(t, err)
		require.NoError(t, a.Run(context.Background()))
	}
	assert.Equal(t, int32(2), calls.Load())
	_, err := os.Stat(filepath.Join(cfg.Lookup.CacheDir, elevation.CacheFileName))
	assert.True(t, os.IsNotExist(err))
}

func TestRunRemoteFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusServiceUnavailable)
	}))
	t.Cleanup(srv.Close)

	cfg := remoteConfig(t, srv.URL)
	a, err := New(cfg)
	require.NoError(t, err)

	err = a.Run(context.Background())
	require.ErrorIs(t, err, elevation.ErrNetwork)
	assert.Equal(t, surface.Failed, a.Controller().State())
	_, statErr := os.Stat(cfg.Output.OBJPath)
	assert.True(t, os.IsNotExist(statErr), "nothing published")
}

func writePNG(t *testing.T, path string, w, h int) {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := range w {
		for y := range h {
			img.Set(x, y, color.RGBA{R: uint8(x * 20), A: 255})
		}
	}
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, png.Encode(f, img))
	require.NoError(t, f.Close())
}

func TestRunImage(t *testing.T) {
	dir := t.TempDir()
	heightmap := filepath.Join(dir, "height.png")
	writePNG(t, heightmap, 8, 8)

	cfg := config.Default()
	cfg.Source.Kind = config.SourceImage
	cfg.Source.ImagePath = heightmap
	cfg.Simplify.Enabled = false
	cfg.Output.OBJPath = filepath.Join(dir, "terrain.obj")
	cfg.Output.FootprintPath = filepath.Join(dir, "footprint.kml")

	a, err := New(cfg)
	require.NoError(t, err)
	require.NoError(t, a.Run(context.Background()))

	base := a.Controller().BaseMesh()
	assert.Len(t, base.Vertices, 64)
	assert.Equal(t, float32(7), base.Bounds.Max[0])

	// Image grids have no geographic footprint.
	_, err = os.Stat(cfg.Output.FootprintPath)
	assert.True(t, os.IsNotExist(err))
}

func TestNewNonSquareImage(t *testing.T) {
	dir := t.TempDir()
	heightmap := filepath.Join(dir, "height.png")
	writePNG(t, heightmap, 10, 12)

	cfg := config.Default()
	cfg.Source.Kind = config.SourceImage
	cfg.Source.ImagePath = heightmap

	_, err := New(cfg)
	require.ErrorIs(t, err, elevation.ErrNonSquareImage)
}

func TestNewInvalidConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Grid.Resolution = 1
	_, err := New(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid config")
}
