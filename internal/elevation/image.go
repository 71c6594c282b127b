package elevation

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"strings"

	// Decoders for image.Decode.
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"

	"github.com/Faultbox/geomesh/internal/geo"
)

// ImageSource reads elevations from the red channel of a square raster.
// Pixel (i, j) is column i, row j of the image.
type ImageSource struct {
	img         image.Image
	side        int
	heightScale float32
}

// NewImageSource wraps img. It fails with ErrNonSquareImage unless width equals height.
func NewImageSource(img image.Image, heightScale float32) (*ImageSource, error) {
	size := img.Bounds().Size()
	if size.X != size.Y {
		return nil, fmt.Errorf("%w: %dx%d", ErrNonSquareImage, size.X, size.Y)
	}
	return &ImageSource{img: img, side: size.X, heightScale: heightScale}, nil
}

// LoadImageSource decodes a heightmap file. TGA is detected by extension;
// PNG, JPEG, GIF, BMP and TIFF by content.
func LoadImageSource(path string, heightScale float32) (*ImageSource, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading heightmap: %w", err)
	}

	var img image.Image
	if strings.EqualFold(filepath.Ext(path), ".tga") {
		img, err = DecodeTGA(data)
	} else {
		img, _, err = image.Decode(bytes.NewReader(data))
	}
	if err != nil {
		return nil, fmt.Errorf("decoding heightmap %s: %w", path, err)
	}

	return NewImageSource(img, heightScale)
}

// Resolution returns the image side length.
func (s *ImageSource) Resolution() int {
	return s.side
}

// Sample returns the red intensity at pixel (i, j) on a 0-255 scale.
// 16-bit images keep their extra precision as a fraction.
func (s *ImageSource) Sample(i, j int) float64 {
	b := s.img.Bounds()
	r, _, _, _ := s.img.At(b.Min.X+i, b.Min.Y+j).RGBA()
	return float64(r) / 257
}

// Acquire reads every pixel into a grid with unit spacing between samples.
func (s *ImageSource) Acquire(ctx context.Context) (*Grid, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	elevations := make([]float64, s.side*s.side)
	for i := range s.side {
		for j := range s.side {
			elevations[i*s.side+j] = s.Sample(i, j)
		}
	}

	span := float32(max(s.side-1, 0))
	return &Grid{
		Resolution:  s.side,
		Elevations:  elevations,
		Extent:      geo.Extent{Width: span, Height: span},
		HeightScale: s.heightScale,
	}, nil
}
