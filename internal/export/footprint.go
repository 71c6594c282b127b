package export

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	kml "github.com/twpayne/go-kml"

	"github.com/Faultbox/geomesh/internal/elevation"
	"github.com/Faultbox/geomesh/internal/geo"
)

// Footprint describes the sampled area of a surface.
type Footprint struct {
	Name    string
	Box     geo.Box
	Extent  geo.Extent
	Samples []elevation.Sample // optional, written as points
}

func (f Footprint) name() string {
	if f.Name == "" {
		return "geomesh footprint"
	}
	return f.Name
}

// WriteKML writes the footprint as a KML document: one polygon placemark
// for the box and one point placemark per sample.
func WriteKML(w io.Writer, f Footprint) error {
	corners := f.Box.Corners()
	ring := make([]kml.Coordinate, len(corners))
	for i, p := range corners {
		ring[i] = kml.Coordinate{Lon: p.Longitude, Lat: p.Latitude}
	}

	children := []kml.Element{
		kml.Name(f.name()),
		kml.Placemark(
			kml.Name("box"),
			kml.Description(fmt.Sprintf("%.3f km x %.3f km", f.Extent.Width, f.Extent.Height)),
			kml.Polygon(
				kml.OuterBoundaryIs(
					kml.LinearRing(kml.Coordinates(ring...)),
				),
			),
		),
	}
	for i, s := range f.Samples {
		children = append(children, kml.Placemark(
			kml.Name(fmt.Sprintf("sample %d", i)),
			kml.Point(
				kml.Coordinates(kml.Coordinate{Lon: s.Longitude, Lat: s.Latitude, Alt: s.Elevation}),
			),
		))
	}

	return kml.KML(kml.Document(children...)).WriteIndent(w, "", "  ")
}

// FeatureCollection builds the GeoJSON form of the footprint.
func (f Footprint) FeatureCollection() *geojson.FeatureCollection {
	corners := f.Box.Corners()
	ring := make(orb.Ring, len(corners))
	for i, p := range corners {
		ring[i] = orb.Point{p.Longitude, p.Latitude}
	}

	fc := geojson.NewFeatureCollection()
	box := geojson.NewFeature(orb.Polygon{ring})
	box.Properties["name"] = f.name()
	box.Properties["width_km"] = f.Extent.Width
	box.Properties["height_km"] = f.Extent.Height
	fc.Append(box)

	for _, s := range f.Samples {
		pt := geojson.NewFeature(orb.Point{s.Longitude, s.Latitude})
		pt.Properties["elevation"] = s.Elevation
		fc.Append(pt)
	}
	return fc
}

// WriteGeoJSON writes the footprint as an indented GeoJSON FeatureCollection.
func WriteGeoJSON(w io.Writer, f Footprint) error {
	data, err := json.MarshalIndent(f.FeatureCollection(), "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling geojson: %w", err)
	}
	_, err = w.Write(append(data, '\n'))
	return err
}

// WriteFootprint writes f to path, choosing KML for .kml and GeoJSON for .json or .geojson.
func WriteFootprint(path string, f Footprint) error {
	var write func(io.Writer, Footprint) error
	switch strings.ToLower(filepath.Ext(path)) {
	case ".kml":
		write = WriteKML
	case ".json", ".geojson":
		write = WriteGeoJSON
	default:
		return fmt.Errorf("unsupported footprint format %q", filepath.Ext(path))
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	if err := write(file, f); err != nil {
		file.Close()
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return file.Close()
}
