package config

import "flag"

var (
	flagConfig     = flag.String("config", "", "Path to config file")
	flagDebug      = flag.Bool("debug", false, "Enable debug logging")
	flagResolution = flag.Int("resolution", 0, "Grid resolution (samples per side)")
	flagQuality    = flag.Float64("quality", -1, "Simplification quality in [0, 1]")
	flagNoSimplify = flag.Bool("no-simplify", false, "Publish the full-resolution mesh")
	flagImage      = flag.String("image", "", "Read elevations from a square heightmap image")
	flagOut        = flag.String("out", "", "OBJ output path")
	flagFootprint  = flag.String("footprint", "", "Footprint output path (.kml, .json, .geojson)")
	flagNoCache    = flag.Bool("no-cache", false, "Do not read or write the elevation cache")
)

// ParseFlags parses command-line flags. Call this early in main().
func ParseFlags() {
	flag.Parse()
}

// ConfigPath returns the explicit config path if provided via --config flag.
func ConfigPath() string {
	return *flagConfig
}

// applyFlags applies CLI flag overrides to the config.
func applyFlags(cfg *Config) {
	if *flagDebug {
		cfg.Logging.Level = "debug"
	}
	if *flagResolution > 0 {
		cfg.Grid.Resolution = *flagResolution
	}
	if *flagQuality >= 0 {
		cfg.Simplify.Quality = *flagQuality
	}
	if *flagNoSimplify {
		cfg.Simplify.Enabled = false
	}
	if *flagImage != "" {
		cfg.Source.Kind = SourceImage
		cfg.Source.ImagePath = *flagImage
	}
	if *flagOut != "" {
		cfg.Output.OBJPath = *flagOut
	}
	if *flagFootprint != "" {
		cfg.Output.FootprintPath = *flagFootprint
	}
	if *flagNoCache {
		cfg.Lookup.CacheEnabled = false
	}
}
