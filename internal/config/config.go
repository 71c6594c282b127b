// Package config handles geomesh configuration loading and management.
package config

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/Faultbox/geomesh/internal/elevation"
	"github.com/Faultbox/geomesh/internal/geo"
)

// Source kinds.
const (
	SourceRemote = "remote"
	SourceImage  = "image"
)

// Config holds all geomesh settings.
type Config struct {
	Region   RegionConfig   `yaml:"region"`
	Grid     GridConfig     `yaml:"grid"`
	Source   SourceConfig   `yaml:"source"`
	Lookup   LookupConfig   `yaml:"lookup"`
	Simplify SimplifyConfig `yaml:"simplify"`
	Output   OutputConfig   `yaml:"output"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// RegionConfig holds the sampled box corners in degrees.
type RegionConfig struct {
	StartLat      float64 `yaml:"start_lat"`
	StartLon      float64 `yaml:"start_lon"`
	EndLat        float64 `yaml:"end_lat"`
	EndLon        float64 `yaml:"end_lon"`
	DistanceModel string  `yaml:"distance_model"` // haversine or wgs84
}

// GridConfig holds sampling settings.
type GridConfig struct {
	Resolution int `yaml:"resolution"`
}

// SourceConfig selects where elevations come from.
type SourceConfig struct {
	Kind        string  `yaml:"kind"`         // remote or image
	ImagePath   string  `yaml:"image_path"`   // heightmap for kind image
	HeightScale float32 `yaml:"height_scale"` // image sources only; 0 means 1
}

// LookupConfig holds elevation service settings.
type LookupConfig struct {
	Endpoint     string        `yaml:"endpoint"`
	Timeout      time.Duration `yaml:"timeout"`
	MaxLocations int           `yaml:"max_locations"`
	CacheEnabled bool          `yaml:"cache_enabled"`
	CacheDir     string        `yaml:"cache_dir"` // empty means DataDir()
}

// SimplifyConfig holds mesh simplification settings.
type SimplifyConfig struct {
	Enabled bool    `yaml:"enabled"`
	Quality float64 `yaml:"quality"`
}

// OutputConfig holds output file paths.
type OutputConfig struct {
	OBJPath       string `yaml:"obj_path"`
	FootprintPath string `yaml:"footprint_path"` // .kml, .json or .geojson; empty disables
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level   string `yaml:"level"`
	LogFile string `yaml:"log_file"`
}

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Region: RegionConfig{
			StartLat:      46.0,
			StartLon:      7.0,
			EndLat:        46.1,
			EndLon:        7.1,
			DistanceModel: string(geo.Haversine),
		},
		Grid: GridConfig{
			Resolution: 32,
		},
		Source: SourceConfig{
			Kind:        SourceRemote,
			HeightScale: 1,
		},
		Lookup: LookupConfig{
			Endpoint:     elevation.DefaultEndpoint,
			Timeout:      elevation.DefaultTimeout,
			MaxLocations: elevation.DefaultMaxLocations,
			CacheEnabled: true,
		},
		Simplify: SimplifyConfig{
			Enabled: true,
			Quality: 0.5,
		},
		Output: OutputConfig{
			OBJPath: "terrain.obj",
		},
		Logging: LoggingConfig{
			Level:   "info",
			LogFile: "",
		},
	}
}

// Validate reports every invalid setting at once.
func (c *Config) Validate() error {
	var errs []error

	if c.Grid.Resolution < 2 {
		errs = append(errs, fmt.Errorf("grid.resolution must be at least 2, got %d", c.Grid.Resolution))
	}
	if q := c.Simplify.Quality; math.IsNaN(q) || q < 0 || q > 1 {
		errs = append(errs, fmt.Errorf("simplify.quality must be in [0, 1], got %v", q))
	}
	if _, err := geo.ParseDistanceModel(c.Region.DistanceModel); err != nil {
		errs = append(errs, fmt.Errorf("region.distance_model: %w", err))
	}

	switch c.Source.Kind {
	case SourceRemote:
		if c.Lookup.Endpoint == "" {
			errs = append(errs, errors.New("lookup.endpoint is required for remote sources"))
		}
		if c.Lookup.MaxLocations > 0 && c.Grid.Resolution*c.Grid.Resolution > c.Lookup.MaxLocations {
			errs = append(errs, fmt.Errorf("grid.resolution %d needs %d locations, lookup.max_locations is %d",
				c.Grid.Resolution, c.Grid.Resolution*c.Grid.Resolution, c.Lookup.MaxLocations))
		}
		if err := validLatLon(c.Region.StartLat, c.Region.StartLon); err != nil {
			errs = append(errs, fmt.Errorf("region start: %w", err))
		}
		if err := validLatLon(c.Region.EndLat, c.Region.EndLon); err != nil {
			errs = append(errs, fmt.Errorf("region end: %w", err))
		}
	case SourceImage:
		if c.Source.ImagePath == "" {
			errs = append(errs, errors.New("source.image_path is required for image sources"))
		}
		if c.Source.HeightScale < 0 {
			errs = append(errs, fmt.Errorf("source.height_scale must not be negative, got %v", c.Source.HeightScale))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown source.kind %q", c.Source.Kind))
	}

	return errors.Join(errs...)
}

func validLatLon(lat, lon float64) error {
	if math.IsNaN(lat) || lat < -90 || lat > 90 {
		return fmt.Errorf("latitude %v out of range", lat)
	}
	if math.IsNaN(lon) || lon < -180 || lon > 180 {
		return fmt.Errorf("longitude %v out of range", lon)
	}
	return nil
}

// Box returns the configured region.
func (c *Config) Box() geo.Box {
	return geo.NewBox(c.Region.StartLat, c.Region.StartLon, c.Region.EndLat, c.Region.EndLon)
}
