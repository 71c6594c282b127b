// Package app wires configuration, elevation sources, the surface controller and exporters.
package app

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/Faultbox/geomesh/internal/config"
	"github.com/Faultbox/geomesh/internal/elevation"
	"github.com/Faultbox/geomesh/internal/export"
	"github.com/Faultbox/geomesh/internal/geo"
	"github.com/Faultbox/geomesh/internal/logger"
	"github.com/Faultbox/geomesh/internal/surface"
)

// App is one configured geomesh run.
type App struct {
	cfg        *config.Config
	source     *capturingSource
	surface    *export.OBJSurface
	controller *surface.Controller
	log        *zap.Logger
}

// New validates cfg and builds the pipeline it describes.
func New(cfg *config.Config) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	log := logger.Named("app")
	src, err := newSource(cfg, log)
	if err != nil {
		return nil, err
	}

	a := &App{
		cfg:     cfg,
		source:  &capturingSource{Source: src},
		surface: export.NewOBJSurface(cfg.Output.OBJPath),
		log:     log,
	}
	a.controller = surface.NewController(surface.Config{
		Source:   a.source,
		Surface:  a.surface,
		Simplify: cfg.Simplify.Enabled,
		Quality:  cfg.Simplify.Quality,
	})
	return a, nil
}

func newSource(cfg *config.Config, log *zap.Logger) (elevation.Source, error) {
	switch cfg.Source.Kind {
	case config.SourceImage:
		scale := cfg.Source.HeightScale
		if scale == 0 {
			scale = 1
		}
		src, err := elevation.LoadImageSource(cfg.Source.ImagePath, scale)
		if err != nil {
			return nil, fmt.Errorf("loading heightmap: %w", err)
		}
		log.Info("using heightmap",
			zap.String("path", cfg.Source.ImagePath),
			zap.Int("resolution", src.Resolution()))
		return src, nil

	default:
		model, err := geo.ParseDistanceModel(cfg.Region.DistanceModel)
		if err != nil {
			return nil, err
		}
		clientCfg := elevation.ClientConfig{
			Endpoint:     cfg.Lookup.Endpoint,
			Timeout:      cfg.Lookup.Timeout,
			MaxLocations: cfg.Lookup.MaxLocations,
		}
		if cfg.Lookup.CacheEnabled {
			clientCfg.Cache = elevation.NewFileCache(cfg.CacheDir())
		}
		box := cfg.Box()
		log.Info("using elevation service",
			zap.String("endpoint", cfg.Lookup.Endpoint),
			zap.Stringer("start", box.Start),
			zap.Stringer("end", box.End),
			zap.Int("resolution", cfg.Grid.Resolution),
			zap.Bool("cache", cfg.Lookup.CacheEnabled))
		return elevation.NewRemoteSource(elevation.NewLookupClient(clientCfg), box, cfg.Grid.Resolution, model), nil
	}
}

// Controller exposes the surface controller, for quality changes after Run.
func (a *App) Controller() *surface.Controller {
	return a.controller
}

// Run activates the surface, writing the OBJ file and, for remote sources, the footprint.
func (a *App) Run(ctx context.Context) error {
	if err := a.controller.OnActivate(ctx); err != nil {
		return err
	}

	if a.cfg.Output.FootprintPath == "" {
		return nil
	}
	grid := a.source.Last()
	if a.cfg.Source.Kind != config.SourceRemote || grid == nil {
		a.log.Warn("footprint needs a geographic source, skipping",
			zap.String("path", a.cfg.Output.FootprintPath))
		return nil
	}

	fp := export.Footprint{
		Name:    "geomesh",
		Box:     a.cfg.Box(),
		Extent:  grid.Extent,
		Samples: grid.Samples,
	}
	if err := export.WriteFootprint(a.cfg.Output.FootprintPath, fp); err != nil {
		return fmt.Errorf("writing footprint: %w", err)
	}
	a.log.Info("wrote footprint", zap.String("path", a.cfg.Output.FootprintPath))
	return nil
}

// capturingSource remembers the last grid it produced.
type capturingSource struct {
	elevation.Source

	mu   sync.Mutex
	last *elevation.Grid
}

func (s *capturingSource) Acquire(ctx context.Context) (*elevation.Grid, error) {
	grid, err := s.Source.Acquire(ctx)
	if err == nil {
		s.mu.Lock()
		s.last = grid
		s.mu.Unlock()
	}
	return grid, err
}

func (s *capturingSource) Last() *elevation.Grid {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last
}
