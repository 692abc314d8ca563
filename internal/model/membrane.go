package model

import (
	"fmt"

	"github.com/san-kum/spatialsim/internal/geometry"
)

// Membrane is the boundary between two adjacent compartments. Membranes
// are derived from the geometry and cannot be created directly.
type Membrane struct {
	model *Model
	id    string
	name  string
	a, b  *Compartment
	faces []geometry.FacePair

	reactions Collection[*Reaction]
}

func (m *Membrane) ID() string   { return m.id }
func (m *Membrane) Name() string { return m.name }

// Compartments returns the two sides, in compartment order.
func (m *Membrane) Compartments() (*Compartment, *Compartment) { return m.a, m.b }

// Faces returns the voxel faces shared by the two compartments. A lies in
// the first compartment.
func (m *Membrane) Faces() []geometry.FacePair { return m.faces }

// Reactions returns the transport reactions across the membrane.
func (m *Membrane) Reactions() *Collection[*Reaction] { return &m.reactions }

// SetName renames the membrane.
func (m *Membrane) SetName(name string) error {
	name = validName(name)
	if name == m.name {
		return nil
	}
	if err := m.model.membranes.checkNewName(name); err != nil {
		return err
	}
	m.model.membranes.rename(m.name, name)
	m.name = name
	return nil
}

// AddReaction creates a transport reaction. Its kinetic law may use the
// species of both compartments.
func (m *Membrane) AddReaction(name, expression string) (*Reaction, error) {
	return newReaction(m.model, &m.reactions, reactionSite{membrane: m}, name, expression)
}

// RemoveReaction deletes a transport reaction.
func (m *Membrane) RemoveReaction(name string) error {
	r, err := m.reactions.Get(name)
	if err != nil {
		return err
	}
	m.reactions.remove(r.id)
	r.release()
	m.model.touch(false)
	return nil
}

// deriveMembranes rebuilds the membrane set from compartment adjacency.
// Membranes whose compartments stay adjacent keep their identity and
// reactions.
func (m *Model) deriveMembranes() {
	keep := make(map[*Membrane]bool)
	comps := m.compartments.items
	for i, a := range comps {
		for _, b := range comps[i+1:] {
			if a.mask == nil || b.mask == nil {
				continue
			}
			faces := geometry.Faces(a.mask, b.mask)
			if len(faces) == 0 {
				continue
			}
			mem := m.membraneBetween(a, b)
			if mem == nil {
				mem = m.newMembrane(a, b)
			}
			mem.faces = faces
			keep[mem] = true
		}
	}
	for _, mem := range m.membranes.Items() {
		if !keep[mem] {
			m.dropMembrane(mem)
		}
	}
}

func (m *Model) membraneBetween(a, b *Compartment) *Membrane {
	for _, mem := range m.membranes.items {
		if (mem.a == a && mem.b == b) || (mem.a == b && mem.b == a) {
			return mem
		}
	}
	return nil
}

func (m *Model) newMembrane(a, b *Compartment) *Membrane {
	id := m.newID(a.id + "_" + b.id + "_membrane")
	name := id
	for n := 2; m.membranes.checkNewName(name) != nil; n++ {
		name = fmt.Sprintf("%s_%d", id, n)
	}
	mem := &Membrane{
		model:     m,
		id:        id,
		name:      name,
		a:         a,
		b:         b,
		reactions: newCollection[*Reaction]("reaction"),
	}
	m.membranes.add(mem)
	return mem
}

func (m *Model) dropMembrane(mem *Membrane) {
	for _, r := range mem.reactions.items {
		r.release()
	}
	m.membranes.remove(mem.id)
	m.releaseID(mem.id)
}
