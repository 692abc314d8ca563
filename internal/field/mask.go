package field

// Mask is a boolean voxel field marking membership of one compartment.
type Mask struct {
	Volume Volume
	Bits   []bool
}

// NewMask returns an all-false mask.
func NewMask(vol Volume) *Mask {
	return &Mask{Volume: vol, Bits: make([]bool, vol.Size())}
}

// Set marks voxel i.
func (m *Mask) Set(i int, v bool) {
	m.Bits[i] = v
}

// Has reports whether voxel i is in the mask.
func (m *Mask) Has(i int) bool {
	return m != nil && i >= 0 && i < len(m.Bits) && m.Bits[i]
}

// Count returns the number of voxels in the mask.
func (m *Mask) Count() int {
	if m == nil {
		return 0
	}
	n := 0
	for _, b := range m.Bits {
		if b {
			n++
		}
	}
	return n
}

// Indices returns the flat indices of the masked voxels in ascending order.
func (m *Mask) Indices() []int {
	if m == nil {
		return nil
	}
	idx := make([]int, 0, m.Count())
	for i, b := range m.Bits {
		if b {
			idx = append(idx, i)
		}
	}
	return idx
}

// Equal reports whether both masks cover the same voxels of the same grid.
func (m *Mask) Equal(o *Mask) bool {
	if m == nil || o == nil {
		return m == o
	}
	if m.Volume != o.Volume {
		return false
	}
	for i := range m.Bits {
		if m.Bits[i] != o.Bits[i] {
			return false
		}
	}
	return true
}

// Clone returns a deep copy.
func (m *Mask) Clone() *Mask {
	if m == nil {
		return nil
	}
	bits := make([]bool, len(m.Bits))
	copy(bits, m.Bits)
	return &Mask{Volume: m.Volume, Bits: bits}
}
