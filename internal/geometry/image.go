package geometry

import (
	"fmt"
	"image"
	"io"
	"strconv"
	"strings"

	// Registered decoders for geometry images.
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"

	"github.com/san-kum/spatialsim/internal/dynamo"
	"github.com/san-kum/spatialsim/internal/field"
)

// Color is a packed 0xRRGGBB value.
type Color uint32

// RGB packs 8-bit channels.
func RGB(r, g, b uint8) Color {
	return Color(r)<<16 | Color(g)<<8 | Color(b)
}

func (c Color) String() string {
	return fmt.Sprintf("#%06x", uint32(c))
}

// ParseColor reads "#rrggbb" or "rrggbb".
func ParseColor(s string) (Color, error) {
	hex := strings.TrimPrefix(strings.TrimSpace(s), "#")
	if len(hex) != 6 {
		return 0, dynamo.InvalidArgument("invalid colour %q", s)
	}
	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return 0, dynamo.InvalidArgument("invalid colour %q", s)
	}
	return Color(v), nil
}

// ColorImage is a voxel grid of colours, indexed like [field.Volume].
type ColorImage struct {
	Volume field.Volume
	Pixels []Color
}

// NewColorImage returns an image filled with colour 0 (black).
func NewColorImage(vol field.Volume) *ColorImage {
	return &ColorImage{Volume: vol, Pixels: make([]Color, vol.Size())}
}

// Mask returns the voxels of img with colour c.
func (img *ColorImage) Mask(c Color) *field.Mask {
	m := field.NewMask(img.Volume)
	for i, p := range img.Pixels {
		if p == c {
			m.Bits[i] = true
		}
	}
	return m
}

// FromImage converts a decoded 2D image into a single-slice ColorImage.
func FromImage(src image.Image) *ColorImage {
	b := src.Bounds()
	img := NewColorImage(field.Volume{Width: b.Dx(), Height: b.Dy(), Depth: 1})
	for y := 0; y < b.Dy(); y++ {
		for x := 0; x < b.Dx(); x++ {
			r, g, bl, _ := src.At(b.Min.X+x, b.Min.Y+y).RGBA()
			img.Pixels[img.Volume.Index(x, y, 0)] = RGB(uint8(r>>8), uint8(g>>8), uint8(bl>>8))
		}
	}
	return img
}

// DecodeImage decodes a png, tiff or bmp image.
func DecodeImage(r io.Reader) (*ColorImage, error) {
	src, _, err := image.Decode(r)
	if err != nil {
		return nil, dynamo.InvalidArgument("cannot decode geometry image: %v", err)
	}
	img := FromImage(src)
	if img.Volume.Empty() {
		return nil, dynamo.InvalidArgument("geometry image is empty")
	}
	return img, nil
}

// DecodeStack decodes one image per z slice. All slices must share the
// same width and height.
func DecodeStack(readers ...io.Reader) (*ColorImage, error) {
	if len(readers) == 0 {
		return nil, dynamo.InvalidArgument("no geometry images supplied")
	}
	slices := make([]*ColorImage, 0, len(readers))
	for z, r := range readers {
		img, err := DecodeImage(r)
		if err != nil {
			return nil, fmt.Errorf("slice %d: %w", z, err)
		}
		if z > 0 && (img.Volume.Width != slices[0].Volume.Width || img.Volume.Height != slices[0].Volume.Height) {
			return nil, dynamo.InvalidArgument("slice %d is %dx%d, expected %dx%d", z,
				img.Volume.Width, img.Volume.Height, slices[0].Volume.Width, slices[0].Volume.Height)
		}
		slices = append(slices, img)
	}
	vol := slices[0].Volume
	vol.Depth = len(slices)
	out := NewColorImage(vol)
	plane := vol.Width * vol.Height
	for z, s := range slices {
		copy(out.Pixels[z*plane:(z+1)*plane], s.Pixels)
	}
	return out, nil
}
