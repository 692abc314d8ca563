package field

import "math"

// Field is a scalar voxel field.
type Field struct {
	Volume Volume
	Values []float64
}

// New returns a zero field.
func New(vol Volume) *Field {
	return &Field{Volume: vol, Values: make([]float64, vol.Size())}
}

// Uniform returns a field equal to v inside mask and zero elsewhere.
func Uniform(mask *Mask, v float64) *Field {
	f := New(mask.Volume)
	for i, b := range mask.Bits {
		if b {
			f.Values[i] = v
		}
	}
	return f
}

// At returns the value of voxel (x, y, z).
func (f *Field) At(x, y, z int) float64 {
	return f.Values[f.Volume.Index(x, y, z)]
}

// Clone returns a deep copy.
func (f *Field) Clone() *Field {
	if f == nil {
		return nil
	}
	vals := make([]float64, len(f.Values))
	copy(vals, f.Values)
	return &Field{Volume: f.Volume, Values: vals}
}

// Clamp zeroes every voxel outside mask in place and returns f.
func (f *Field) Clamp(mask *Mask) *Field {
	for i := range f.Values {
		if !mask.Has(i) {
			f.Values[i] = 0
		}
	}
	return f
}

// Stats summarises a field over the voxels of a mask.
type Stats struct {
	Avg float64 `json:"avg"`
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// Stats computes average, minimum and maximum over mask. An empty mask
// yields zero stats.
func (f *Field) Stats(mask *Mask) Stats {
	var (
		sum float64
		n   int
		lo  = math.Inf(1)
		hi  = math.Inf(-1)
	)
	for i, v := range f.Values {
		if !mask.Has(i) {
			continue
		}
		sum += v
		n++
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	if n == 0 {
		return Stats{}
	}
	return Stats{Avg: sum / float64(n), Min: lo, Max: hi}
}
