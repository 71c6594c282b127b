package geo

// Box is the area between two corner points. Start and End need not be ordered.
type Box struct {
	Start Point
	End   Point
}

// NewBox creates a box from its corner coordinates.
func NewBox(startLat, startLon, endLat, endLon float64) Box {
	return Box{
		Start: Point{Latitude: startLat, Longitude: startLon},
		End:   Point{Latitude: endLat, Longitude: endLon},
	}
}

// Extent returns the physical size of the box using the given model.
func (b Box) Extent(model DistanceModel) Extent {
	if model == WGS84 {
		return ComputeExtentEllipsoid(b.Start.Latitude, b.Start.Longitude, b.End.Latitude, b.End.Longitude)
	}
	return ComputeExtent(b.Start.Latitude, b.Start.Longitude, b.End.Latitude, b.End.Longitude)
}

// SampleGrid returns resolution² points in row-major order: i walks latitude, j walks longitude.
// Steps are span/resolution, so the last row and column stop one step short of End.
func (b Box) SampleGrid(resolution int) []Point {
	if resolution <= 0 {
		return nil
	}

	dLat := b.End.Latitude - b.Start.Latitude
	dLon := b.End.Longitude - b.Start.Longitude
	r := float64(resolution)

	points := make([]Point, 0, resolution*resolution)
	for i := range resolution {
		lat := b.Start.Latitude + dLat*float64(i)/r
		for j := range resolution {
			lon := b.Start.Longitude + dLon*float64(j)/r
			points = append(points, Point{Latitude: lat, Longitude: lon})
		}
	}
	return points
}

// Corners returns the four corners counter-clockwise from Start, closing back on Start.
func (b Box) Corners() []Point {
	return []Point{
		b.Start,
		{Latitude: b.Start.Latitude, Longitude: b.End.Longitude},
		b.End,
		{Latitude: b.End.Latitude, Longitude: b.Start.Longitude},
		b.Start,
	}
}
