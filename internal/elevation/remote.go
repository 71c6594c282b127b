package elevation

import (
	"context"
	"fmt"

	"github.com/Faultbox/geomesh/internal/geo"
)

// RemoteHeightScale maps metres onto a kilometre-scaled grid.
const RemoteHeightScale = float32(1.0 / 1000)

// RemoteSource samples a geographic box through a LookupClient.
type RemoteSource struct {
	Client     *LookupClient
	Box        geo.Box
	Resolution int
	Model      geo.DistanceModel
}

// NewRemoteSource creates a source for resolution×resolution samples of box.
func NewRemoteSource(client *LookupClient, box geo.Box, resolution int, model geo.DistanceModel) *RemoteSource {
	return &RemoteSource{
		Client:     client,
		Box:        box,
		Resolution: resolution,
		Model:      model,
	}
}

// Acquire queues the grid locations, performs the lookup and arranges the results.
// A cached response is used unchecked, so the grid may not hold Resolution² samples.
func (s *RemoteSource) Acquire(ctx context.Context) (*Grid, error) {
	s.Client.Reset()
	s.Client.AddPoints(s.Box.SampleGrid(s.Resolution))

	samples, err := s.Client.Lookup(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquiring %dx%d grid for %v-%v: %w",
			s.Resolution, s.Resolution, s.Box.Start, s.Box.End, err)
	}

	elevations := make([]float64, len(samples))
	for i, sample := range samples {
		elevations[i] = sample.Elevation
	}

	return &Grid{
		Resolution:  s.Resolution,
		Elevations:  elevations,
		Samples:     samples,
		Extent:      s.Box.Extent(s.Model),
		HeightScale: RemoteHeightScale,
	}, nil
}
