package model

import (
	"github.com/san-kum/spatialsim/internal/dynamo"
	"github.com/san-kum/spatialsim/internal/geometry"
)

// ImportGeometry replaces every compartment mask with the voxels of its
// colour in img and re-derives the membranes. Image fields matching the
// new grid are kept and clamped to the new masks when resolved; those of
// another size revert to their uniform value.
func (m *Model) ImportGeometry(img *geometry.ColorImage) error {
	if img == nil || img.Volume.Empty() {
		return dynamo.InvalidArgument("geometry image is empty")
	}
	if len(img.Pixels) != img.Volume.Size() {
		return dynamo.InvalidArgument("geometry image has %d pixels, expected %d",
			len(img.Pixels), img.Volume.Size())
	}

	if m.geom.Volume != img.Volume {
		for _, c := range m.compartments.items {
			for _, sp := range c.species.items {
				sp.dropImages(img.Volume)
			}
		}
	}
	m.geom.Volume = img.Volume
	m.image = img
	for _, c := range m.compartments.items {
		c.mask = img.Mask(c.color)
	}
	m.deriveMembranes()
	m.touch(true)
	return nil
}
