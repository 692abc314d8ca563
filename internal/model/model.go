package model

import (
	"github.com/san-kum/spatialsim/internal/dynamo"
	"github.com/san-kum/spatialsim/internal/field"
	"github.com/san-kum/spatialsim/internal/geometry"
)

// Model owns compartments, membranes, parameters and the geometry.
type Model struct {
	name string

	geom  geometry.Geometry
	image *geometry.ColorImage

	compartments Collection[*Compartment]
	membranes    Collection[*Membrane]
	parameters   Collection[*Parameter]

	ids map[string]bool

	// revision changes on any mutation that can alter a resolved field:
	// parameters, geometry, voxel size, origin and compartment colours.
	revision uint64
	// geometryRevision changes only when masks or voxel placement change.
	geometryRevision uint64
}

// New returns an empty model without geometry.
func New(name string) *Model {
	return &Model{
		name:         name,
		geom:         geometry.New(field.Volume{}),
		compartments: newCollection[*Compartment]("compartment"),
		membranes:    newCollection[*Membrane]("membrane"),
		parameters:   newCollection[*Parameter]("parameter"),
		ids:          make(map[string]bool),
	}
}

func (m *Model) Name() string        { return m.name }
func (m *Model) SetName(name string) { m.name = name }

// Compartments returns the compartments in creation order.
func (m *Model) Compartments() *Collection[*Compartment] { return &m.compartments }

// Membranes returns the membranes derived from the current geometry.
func (m *Model) Membranes() *Collection[*Membrane] { return &m.membranes }

// Parameters returns the global parameters.
func (m *Model) Parameters() *Collection[*Parameter] { return &m.parameters }

// Geometry returns the voxel grid placement.
func (m *Model) Geometry() geometry.Geometry { return m.geom }

// HasGeometry reports whether a geometry image has been imported.
func (m *Model) HasGeometry() bool { return m.image != nil }

// GeometryImage returns the imported colour image, or nil.
func (m *Model) GeometryImage() *geometry.ColorImage { return m.image }

// Revision changes on every mutation that affects a simulation.
func (m *Model) Revision() uint64 { return m.revision }

// GeometryRevision identifies the state of masks and voxel placement.
func (m *Model) GeometryRevision() uint64 { return m.geometryRevision }

func (m *Model) touch(geometryChanged bool) {
	m.revision++
	if geometryChanged {
		m.geometryRevision++
	}
}

// SetVoxelSize sets the physical size of one voxel.
func (m *Model) SetVoxelSize(dx, dy, dz float64) error {
	if !(dx > 0 && dy > 0 && dz > 0) {
		return dynamo.InvalidArgument("voxel size must be positive, got (%g, %g, %g)", dx, dy, dz)
	}
	m.geom.VoxelSize = [3]float64{dx, dy, dz}
	m.touch(true)
	return nil
}

// SetOrigin sets the physical position of voxel (0, H-1, 0).
func (m *Model) SetOrigin(x, y, z float64) {
	m.geom.Origin = [3]float64{x, y, z}
	m.touch(true)
}

// AllSpecies returns every species, compartment by compartment.
func (m *Model) AllSpecies() []*Species {
	var out []*Species
	for _, c := range m.compartments.items {
		out = append(out, c.species.items...)
	}
	return out
}

// SpeciesByID finds a species in any compartment.
func (m *Model) SpeciesByID(id string) (*Species, bool) {
	for _, c := range m.compartments.items {
		if s, ok := c.species.ByID(id); ok {
			return s, true
		}
	}
	return nil, false
}

// AllReactions returns compartment reactions followed by membrane reactions.
func (m *Model) AllReactions() []*Reaction {
	var out []*Reaction
	for _, c := range m.compartments.items {
		out = append(out, c.reactions.items...)
	}
	for _, mem := range m.membranes.items {
		out = append(out, mem.reactions.items...)
	}
	return out
}

// AddCompartment creates a compartment mapped to colour in the geometry
// image.
func (m *Model) AddCompartment(name string, color geometry.Color) (*Compartment, error) {
	name = validName(name)
	if err := m.compartments.checkNewName(name); err != nil {
		return nil, err
	}
	if other := m.compartmentByColor(color); other != nil {
		return nil, dynamo.InvalidArgument("colour %s is already used by compartment '%s'", color, other.name)
	}
	c := &Compartment{
		model:     m,
		id:        m.newID(name),
		name:      name,
		color:     color,
		species:   newCollection[*Species]("species"),
		reactions: newCollection[*Reaction]("reaction"),
	}
	m.compartments.add(c)
	if m.image != nil {
		c.mask = m.image.Mask(color)
		m.deriveMembranes()
		m.touch(true)
	}
	return c, nil
}

// RemoveCompartment deletes a compartment together with its species,
// reactions and every membrane that references it.
func (m *Model) RemoveCompartment(name string) error {
	c, err := m.compartments.Get(name)
	if err != nil {
		return err
	}
	for _, mem := range m.membranes.Items() {
		if mem.a == c || mem.b == c {
			m.dropMembrane(mem)
		}
	}
	for _, s := range c.species.items {
		m.releaseID(s.id)
	}
	for _, r := range c.reactions.items {
		r.release()
	}
	m.compartments.remove(c.id)
	m.releaseID(c.id)
	c.model = nil
	m.touch(true)
	return nil
}

func (m *Model) compartmentByColor(color geometry.Color) *Compartment {
	for _, c := range m.compartments.items {
		if c.color == color {
			return c
		}
	}
	return nil
}
