package surface

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"

	"go.uber.org/zap"

	"github.com/Faultbox/geomesh/internal/elevation"
	"github.com/Faultbox/geomesh/internal/logger"
	"github.com/Faultbox/geomesh/internal/simplify"
	"github.com/Faultbox/geomesh/internal/terrain"
)

var (
	// ErrAlreadyActivated is returned by OnActivate after the first call.
	ErrAlreadyActivated = errors.New("surface already activated")
	// ErrNotReady is returned by OnQualityChanged before activation or after a failure.
	ErrNotReady = errors.New("surface not ready")
)

// Surface receives every mesh the controller produces.
type Surface interface {
	Publish(mesh *terrain.Mesh) error
}

// SurfaceFunc adapts a function to Surface.
type SurfaceFunc func(mesh *terrain.Mesh) error

// Publish calls f(mesh).
func (f SurfaceFunc) Publish(mesh *terrain.Mesh) error {
	return f(mesh)
}

// Config configures a Controller.
type Config struct {
	Source   elevation.Source
	Surface  Surface
	Simplify bool    // run the simplifier on activation and quality changes
	Quality  float64 // initial quality in [0, 1]
	Logger   *zap.Logger
}

// Controller owns the base mesh and the displayed mesh of one terrain surface.
// Its methods are safe for concurrent use; the lock is never held while
// acquiring, simplifying or publishing.
type Controller struct {
	source     elevation.Source
	surface    Surface
	simplifier *simplify.Simplifier
	simplify   bool
	log        *zap.Logger

	mu      sync.Mutex
	state   State
	quality float64 // latest requested
	shown   float64 // quality of the published mesh
	base    *terrain.Mesh
	mesh    *terrain.Mesh
	err     error
}

// NewController creates an uninitialized controller.
func NewController(cfg Config) *Controller {
	log := cfg.Logger
	if log == nil {
		log = logger.Named("surface")
	}
	q := clampQuality(cfg.Quality)
	return &Controller{
		source:     cfg.Source,
		surface:    cfg.Surface,
		simplifier: simplify.New(),
		simplify:   cfg.Simplify,
		log:        log,
		quality:    q,
		shown:      1,
	}
}

// State returns the current lifecycle state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Quality returns the most recently requested quality.
func (c *Controller) Quality() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.quality
}

// Mesh returns the displayed mesh, nil before the first publish.
func (c *Controller) Mesh() *terrain.Mesh {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.mesh
}

// BaseMesh returns the full-resolution mesh, nil before activation completes.
func (c *Controller) BaseMesh() *terrain.Mesh {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.base
}

// Err returns the error that moved the controller to Failed.
func (c *Controller) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}

// OnActivate acquires the elevation grid, builds and publishes the mesh.
// It blocks until the controller is Ready or Failed.
func (c *Controller) OnActivate(ctx context.Context) error {
	c.mu.Lock()
	if c.state != Uninitialized {
		c.mu.Unlock()
		return ErrAlreadyActivated
	}
	c.transition(Loading)
	c.mu.Unlock()

	grid, err := c.source.Acquire(ctx)
	if err != nil {
		return c.fail(fmt.Errorf("acquiring elevation grid: %w", err))
	}

	base, err := terrain.Build(grid, grid.Resolution, grid.Extent, grid.HeightScale)
	if err != nil {
		return c.fail(fmt.Errorf("building mesh: %w", err))
	}
	c.log.Info("built base mesh",
		zap.Int("resolution", grid.Resolution),
		zap.Int("vertices", len(base.Vertices)),
		zap.Int("triangles", base.TriangleCount()))

	mesh, shown := base, 1.0
	if c.simplify {
		c.simplifier.Initialize(base)
		c.mu.Lock()
		q := c.quality
		c.mu.Unlock()

		mesh, err = c.simplified(q)
		if err != nil {
			return c.fail(err)
		}
		shown = q
	}

	if err := c.surface.Publish(mesh); err != nil {
		return c.fail(fmt.Errorf("publishing mesh: %w", err))
	}

	c.mu.Lock()
	c.base = base
	c.mesh = mesh
	c.shown = shown
	c.transition(Ready)
	pending := c.simplify && c.quality != c.shown
	if pending {
		c.transition(Resimplifying)
	}
	q := c.quality
	c.mu.Unlock()

	if pending {
		return c.resimplify(q)
	}
	return nil
}

// OnQualityChanged re-simplifies the base mesh at quality q.
// While loading or re-simplifying only the latest request is kept.
func (c *Controller) OnQualityChanged(q float64) error {
	if math.IsNaN(q) {
		return fmt.Errorf("invalid quality %v", q)
	}
	q = clampQuality(q)

	c.mu.Lock()
	switch c.state {
	case Uninitialized, Failed:
		c.mu.Unlock()
		return ErrNotReady
	case Loading, Resimplifying:
		c.quality = q
		c.mu.Unlock()
		return nil
	}

	c.quality = q
	if !c.simplify || q == c.shown {
		c.mu.Unlock()
		return nil
	}
	c.transition(Resimplifying)
	c.mu.Unlock()

	return c.resimplify(q)
}

// resimplify runs in the Resimplifying state until the published mesh
// matches the latest requested quality, then returns to Ready.
func (c *Controller) resimplify(q float64) error {
	for {
		mesh, err := c.simplified(q)
		if err == nil {
			if perr := c.surface.Publish(mesh); perr != nil {
				err = fmt.Errorf("publishing mesh: %w", perr)
			}
		}

		c.mu.Lock()
		if err != nil {
			c.quality = c.shown
			c.transition(Ready)
			c.mu.Unlock()
			c.log.Warn("re-simplification failed, keeping previous mesh",
				zap.Float64("quality", q), zap.Error(err))
			return err
		}
		c.mesh = mesh
		c.shown = q
		if c.quality != q {
			q = c.quality
			c.mu.Unlock()
			continue
		}
		c.transition(Ready)
		c.mu.Unlock()
		return nil
	}
}

func (c *Controller) simplified(q float64) (*terrain.Mesh, error) {
	if err := c.simplifier.Simplify(q); err != nil {
		return nil, fmt.Errorf("simplifying mesh: %w", err)
	}
	mesh, err := c.simplifier.Extract()
	if err != nil {
		return nil, fmt.Errorf("extracting mesh: %w", err)
	}
	return mesh, nil
}

func (c *Controller) fail(err error) error {
	c.mu.Lock()
	c.err = err
	c.transition(Failed)
	c.mu.Unlock()
	c.log.Error("surface failed", zap.Error(err))
	return err
}

// transition must be called with mu held.
func (c *Controller) transition(next State) {
	if !c.state.CanTransition(next) {
		panic(fmt.Sprintf("surface: invalid transition %s -> %s", c.state, next))
	}
	c.log.Debug("state transition", zap.Stringer("from", c.state), zap.Stringer("to", next))
	c.state = next
}

func clampQuality(q float64) float64 {
	if math.IsNaN(q) {
		return 1
	}
	return min(max(q, 0), 1)
}
