package elevation

import (
	"fmt"
	"image"
	"image/color"
)

// TGA image types accepted as heightmaps.
const (
	tgaTrueColor    = 2
	tgaGray         = 3
	tgaTrueColorRLE = 10
	tgaGrayRLE      = 11
)

// DecodeTGA decodes an uncompressed or RLE TGA heightmap.
// True-color (24/32 bpp) files decode to *image.RGBA, grayscale (8 bpp) to *image.Gray,
// so the red channel of either carries the height.
func DecodeTGA(data []byte) (image.Image, error) {
	if len(data) < 18 {
		return nil, fmt.Errorf("TGA data too short")
	}

	idLength := int(data[0])
	colorMapType := data[1]
	imageType := data[2]
	width := int(data[12]) | int(data[13])<<8
	height := int(data[14]) | int(data[15])<<8
	bpp := int(data[16])
	topToBottom := data[17]&0x20 != 0

	if colorMapType != 0 {
		return nil, fmt.Errorf("color-mapped TGA not supported")
	}

	var img tgaCanvas
	switch imageType {
	case tgaTrueColor, tgaTrueColorRLE:
		if bpp != 24 && bpp != 32 {
			return nil, fmt.Errorf("unsupported true-color TGA bit depth %d", bpp)
		}
		img = rgbaCanvas{image.NewRGBA(image.Rect(0, 0, width, height))}
	case tgaGray, tgaGrayRLE:
		if bpp != 8 {
			return nil, fmt.Errorf("unsupported grayscale TGA bit depth %d", bpp)
		}
		img = grayCanvas{image.NewGray(image.Rect(0, 0, width, height))}
	default:
		return nil, fmt.Errorf("unsupported TGA type %d", imageType)
	}

	offset := 18 + idLength
	if offset > len(data) {
		return nil, fmt.Errorf("TGA data truncated")
	}

	d := tgaDecoder{
		pix:         data[offset:],
		canvas:      img,
		width:       width,
		height:      height,
		bytesPerPx:  bpp / 8,
		topToBottom: topToBottom,
	}

	var err error
	if imageType == tgaTrueColorRLE || imageType == tgaGrayRLE {
		err = d.decodeRLE()
	} else {
		err = d.decodeRaw()
	}
	if err != nil {
		return nil, err
	}
	return img.Image(), nil
}

// tgaCanvas hides whether pixels land in an RGBA or a Gray image.
type tgaCanvas interface {
	set(x, y int, px []byte)
	Image() image.Image
}

type rgbaCanvas struct{ img *image.RGBA }

func (c rgbaCanvas) set(x, y int, px []byte) {
	a := uint8(255)
	if len(px) == 4 {
		a = px[3]
	}
	// Stored as BGR(A).
	c.img.SetRGBA(x, y, color.RGBA{R: px[2], G: px[1], B: px[0], A: a})
}

func (c rgbaCanvas) Image() image.Image { return c.img }

type grayCanvas struct{ img *image.Gray }

func (c grayCanvas) set(x, y int, px []byte) {
	c.img.SetGray(x, y, color.Gray{Y: px[0]})
}

func (c grayCanvas) Image() image.Image { return c.img }

type tgaDecoder struct {
	pix         []byte
	canvas      tgaCanvas
	width       int
	height      int
	bytesPerPx  int
	topToBottom bool
}

// put writes the n-th pixel in file order, flipping rows for bottom-up files.
func (d *tgaDecoder) put(n int, px []byte) {
	x := n % d.width
	y := n / d.width
	if !d.topToBottom {
		y = d.height - 1 - y
	}
	d.canvas.set(x, y, px)
}

func (d *tgaDecoder) decodeRaw() error {
	count := d.width * d.height
	if len(d.pix) < count*d.bytesPerPx {
		return fmt.Errorf("TGA pixel data truncated")
	}
	for n := range count {
		i := n * d.bytesPerPx
		d.put(n, d.pix[i:i+d.bytesPerPx])
	}
	return nil
}

func (d *tgaDecoder) decodeRLE() error {
	total := d.width * d.height
	n := 0
	i := 0
	for n < total {
		if i >= len(d.pix) {
			return fmt.Errorf("TGA RLE data truncated at pixel %d of %d", n, total)
		}
		packet := d.pix[i]
		i++
		run := int(packet&0x7F) + 1

		if packet&0x80 != 0 {
			// Run-length packet: one pixel repeated.
			if i+d.bytesPerPx > len(d.pix) {
				return fmt.Errorf("TGA RLE data truncated at pixel %d of %d", n, total)
			}
			px := d.pix[i : i+d.bytesPerPx]
			i += d.bytesPerPx
			for k := 0; k < run && n < total; k++ {
				d.put(n, px)
				n++
			}
			continue
		}

		// Raw packet: run literal pixels.
		for k := 0; k < run && n < total; k++ {
			if i+d.bytesPerPx > len(d.pix) {
				return fmt.Errorf("TGA RLE data truncated at pixel %d of %d", n, total)
			}
			d.put(n, d.pix[i:i+d.bytesPerPx])
			i += d.bytesPerPx
			n++
		}
	}
	return nil
}
