package surface

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/Faultbox/geomesh/internal/elevation"
	"github.com/Faultbox/geomesh/internal/geo"
	"github.com/Faultbox/geomesh/internal/simplify"
	"github.com/Faultbox/geomesh/internal/terrain"
)

type staticSource struct {
	grid *elevation.Grid
	err  error
}

func (s staticSource) Acquire(context.Context) (*elevation.Grid, error) {
	return s.grid, s.err
}

// gateSource blocks in Acquire until release is closed.
type gateSource struct {
	grid    *elevation.Grid
	entered chan struct{}
	release chan struct{}
}

func (s *gateSource) Acquire(ctx context.Context) (*elevation.Grid, error) {
	close(s.entered)
	select {
	case <-s.release:
		return s.grid, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

type recorder struct {
	mu     sync.Mutex
	meshes []*terrain.Mesh
	fail   func(n int) error // n is the 1-based publish attempt
	calls  int
}

func (r *recorder) Publish(mesh *terrain.Mesh) error {
	r.mu.Lock()
	r.calls++
	n := r.calls
	fail := r.fail
	r.mu.Unlock()

	if fail != nil {
		if err := fail(n); err != nil {
			return err
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.meshes = append(r.meshes, mesh)
	return nil
}

func (r *recorder) published() []*terrain.Mesh {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*terrain.Mesh(nil), r.meshes...)
}

func testGrid(res int) *elevation.Grid {
	g := &elevation.Grid{
		Resolution:  res,
		Elevations:  make([]float64, res*res),
		Extent:      geo.Extent{Width: 3, Height: 3},
		HeightScale: elevation.RemoteHeightScale,
	}
	for i := range res {
		for j := range res {
			g.Elevations[i*res+j] = 150 * math.Sin(float64(i)*0.8) * math.Cos(float64(j)*0.6)
		}
	}
	return g
}

func triangles(t *testing.T, grid *elevation.Grid, q float64) int {
	t.Helper()
	base, err := terrain.Build(grid, grid.Resolution, grid.Extent, grid.HeightScale)
	require.NoError(t, err)
	s := simplify.New()
	s.Initialize(base)
	require.NoError(t, s.Simplify(q))
	out, err := s.Extract()
	require.NoError(t, err)
	return out.TriangleCount()
}

func TestActivateWithoutSimplify(t *testing.T) {
	rec := &recorder{}
	c := NewController(Config{Source: staticSource{grid: testGrid(4)}, Surface: rec, Quality: 0.3})

	assert.Equal(t, Uninitialized, c.State())
	require.NoError(t, c.OnActivate(context.Background()))
	assert.Equal(t, Ready, c.State())

	meshes := rec.published()
	require.Len(t, meshes, 1)
	assert.Len(t, meshes[0].Vertices, 16)
	assert.Len(t, meshes[0].Indices, 54)
	assert.Same(t, c.BaseMesh(), c.Mesh())
	assert.NoError(t, c.Err())

	// Quality is recorded but nothing is re-published.
	require.NoError(t, c.OnQualityChanged(0.1))
	assert.Equal(t, 0.1, c.Quality())
	assert.Len(t, rec.published(), 1)
	assert.Equal(t, Ready, c.State())
}

func TestActivateTwice(t *testing.T) {
	c := NewController(Config{Source: staticSource{grid: testGrid(3)}, Surface: &recorder{}})
	require.NoError(t, c.OnActivate(context.Background()))
	require.ErrorIs(t, c.OnActivate(context.Background()), ErrAlreadyActivated)
}

func TestActivateSimplifiesAtInitialQuality(t *testing.T) {
	grid := testGrid(10)
	rec := &recorder{}
	c := NewController(Config{Source: staticSource{grid: grid}, Surface: rec, Simplify: true, Quality: 0.5})

	require.NoError(t, c.OnActivate(context.Background()))

	meshes := rec.published()
	require.Len(t, meshes, 1)
	assert.Equal(t, triangles(t, grid, 0.5), meshes[0].TriangleCount())
	assert.Equal(t, 162, c.BaseMesh().TriangleCount())
	assert.Less(t, c.Mesh().TriangleCount(), c.BaseMesh().TriangleCount())
}

func TestQualityChangeResimplifiesFromBase(t *testing.T) {
	grid := testGrid(10)
	rec := &recorder{}
	c := NewController(Config{Source: staticSource{grid: grid}, Surface: rec, Simplify: true, Quality: 1})
	require.NoError(t, c.OnActivate(context.Background()))

	require.NoError(t, c.OnQualityChanged(0.5))
	require.NoError(t, c.OnQualityChanged(0.8))
	assert.Equal(t, Ready, c.State())

	meshes := rec.published()
	require.Len(t, meshes, 3)
	assert.Equal(t, triangles(t, grid, 0.8), meshes[2].TriangleCount())
	assert.Equal(t, 162, c.BaseMesh().TriangleCount())

	// Same quality again is a no-op.
	require.NoError(t, c.OnQualityChanged(0.8))
	assert.Len(t, rec.published(), 3)

	// Out of range values clamp.
	require.NoError(t, c.OnQualityChanged(7))
	assert.Equal(t, 1.0, c.Quality())
	assert.Equal(t, 162, c.Mesh().TriangleCount())

	require.Error(t, c.OnQualityChanged(math.NaN()))
}

func TestQualityChangeBeforeActivation(t *testing.T) {
	c := NewController(Config{Source: staticSource{grid: testGrid(3)}, Surface: &recorder{}, Simplify: true})
	require.ErrorIs(t, c.OnQualityChanged(0.5), ErrNotReady)
}

func TestQualityChangeWhileLoadingIsRemembered(t *testing.T) {
	grid := testGrid(10)
	src := &gateSource{grid: grid, entered: make(chan struct{}), release: make(chan struct{})}
	rec := &recorder{}
	c := NewController(Config{Source: src, Surface: rec, Simplify: true, Quality: 1})

	done := make(chan error, 1)
	go func() { done <- c.OnActivate(context.Background()) }()

	<-src.entered
	assert.Equal(t, Loading, c.State())
	require.NoError(t, c.OnQualityChanged(0.7))
	require.NoError(t, c.OnQualityChanged(0.3))
	close(src.release)
	require.NoError(t, <-done)

	assert.Equal(t, Ready, c.State())
	assert.Equal(t, 0.3, c.Quality())
	meshes := rec.published()
	require.NotEmpty(t, meshes)
	assert.Equal(t, triangles(t, grid, 0.3), meshes[len(meshes)-1].TriangleCount())
}

func TestQualityChangeWhileResimplifyingIsLatestWins(t *testing.T) {
	grid := testGrid(10)
	entered := make(chan struct{})
	release := make(chan struct{})
	rec := &recorder{fail: func(n int) error {
		if n == 2 {
			close(entered)
			<-release
		}
		return nil
	}}
	c := NewController(Config{Source: staticSource{grid: grid}, Surface: rec, Simplify: true, Quality: 1})
	require.NoError(t, c.OnActivate(context.Background()))

	done := make(chan error, 1)
	go func() { done <- c.OnQualityChanged(0.9) }()

	<-entered
	assert.Equal(t, Resimplifying, c.State())
	require.NoError(t, c.OnQualityChanged(0.2))
	require.NoError(t, c.OnQualityChanged(0.6))
	close(release)
	require.NoError(t, <-done)

	assert.Equal(t, Ready, c.State())
	meshes := rec.published()
	require.Len(t, meshes, 3)
	assert.Equal(t, triangles(t, grid, 0.6), meshes[2].TriangleCount())
	assert.Same(t, meshes[2], c.Mesh())
}

func TestAcquireFailure(t *testing.T) {
	rec := &recorder{}
	netErr := &elevation.NetworkError{Op: "post", Err: errors.New("connection refused")}
	c := NewController(Config{Source: staticSource{err: netErr}, Surface: rec})

	err := c.OnActivate(context.Background())
	require.ErrorIs(t, err, elevation.ErrNetwork)
	assert.Equal(t, Failed, c.State())
	assert.ErrorIs(t, c.Err(), elevation.ErrNetwork)
	assert.Empty(t, rec.published())
	assert.Nil(t, c.Mesh())

	require.ErrorIs(t, c.OnQualityChanged(0.5), ErrNotReady)
	require.ErrorIs(t, c.OnActivate(context.Background()), ErrAlreadyActivated)
}

func TestDimensionMismatchFails(t *testing.T) {
	// A stale cache can hand back fewer samples than the grid asks for.
	grid := testGrid(2)
	grid.Resolution = 4
	rec := &recorder{}
	c := NewController(Config{Source: staticSource{grid: grid}, Surface: rec, Simplify: true})

	err := c.OnActivate(context.Background())
	require.ErrorIs(t, err, terrain.ErrDimensionMismatch)
	assert.Equal(t, Failed, c.State())
	assert.Empty(t, rec.published())
	assert.Nil(t, c.BaseMesh())
}

func TestPublishFailureWhileLoading(t *testing.T) {
	boom := errors.New("surface gone")
	rec := &recorder{fail: func(int) error { return boom }}
	c := NewController(Config{Source: staticSource{grid: testGrid(3)}, Surface: rec})

	require.ErrorIs(t, c.OnActivate(context.Background()), boom)
	assert.Equal(t, Failed, c.State())
}

func TestPublishFailureWhileResimplifying(t *testing.T) {
	boom := errors.New("surface busy")
	rec := &recorder{fail: func(n int) error {
		if n == 2 {
			return boom
		}
		return nil
	}}
	c := NewController(Config{Source: staticSource{grid: testGrid(8)}, Surface: rec, Simplify: true, Quality: 1})
	require.NoError(t, c.OnActivate(context.Background()))
	previous := c.Mesh()

	require.ErrorIs(t, c.OnQualityChanged(0.4), boom)
	assert.Equal(t, Ready, c.State())
	assert.Same(t, previous, c.Mesh())
	assert.Equal(t, 1.0, c.Quality())

	// The same request can be retried.
	require.NoError(t, c.OnQualityChanged(0.4))
	assert.NotSame(t, previous, c.Mesh())
}

func TestTransitionsAreLogged(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	c := NewController(Config{
		Source:   staticSource{grid: testGrid(6)},
		Surface:  &recorder{},
		Simplify: true,
		Quality:  1,
		Logger:   zap.New(core),
	})
	require.NoError(t, c.OnActivate(context.Background()))
	require.NoError(t, c.OnQualityChanged(0.5))

	var got []string
	for _, e := range logs.FilterMessage("state transition").All() {
		ctx := e.ContextMap()
		got = append(got, ctx["from"].(string)+">"+ctx["to"].(string))
	}
	assert.Equal(t, []string{
		"uninitialized>loading",
		"loading>ready",
		"ready>resimplifying",
		"resimplifying>ready",
	}, got)
}

func TestFailureIsLogged(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	c := NewController(Config{Source: staticSource{err: elevation.ErrEmptyRequest}, Surface: &recorder{}, Logger: zap.New(core)})

	require.Error(t, c.OnActivate(context.Background()))
	entries := logs.FilterMessage("surface failed").All()
	require.Len(t, entries, 1)
	assert.Equal(t, zapcore.ErrorLevel, entries[0].Level)
}

func TestSurfaceFunc(t *testing.T) {
	var got *terrain.Mesh
	c := NewController(Config{
		Source:  staticSource{grid: testGrid(3)},
		Surface: SurfaceFunc(func(m *terrain.Mesh) error { got = m; return nil }),
	})
	require.NoError(t, c.OnActivate(context.Background()))
	assert.Same(t, c.Mesh(), got)
}
