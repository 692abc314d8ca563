package model

import (
	"github.com/san-kum/spatialsim/internal/dynamo"
	"github.com/san-kum/spatialsim/internal/field"
	"github.com/san-kum/spatialsim/internal/geometry"
)

// Compartment is a disjoint region of the voxel grid.
type Compartment struct {
	model *Model
	id    string
	name  string
	color geometry.Color
	mask  *field.Mask

	species   Collection[*Species]
	reactions Collection[*Reaction]
}

func (c *Compartment) ID() string            { return c.id }
func (c *Compartment) Name() string          { return c.name }
func (c *Compartment) Color() geometry.Color { return c.color }
func (c *Compartment) Model() *Model         { return c.model }

// Species returns the species hosted by the compartment.
func (c *Compartment) Species() *Collection[*Species] { return &c.species }

// Reactions returns the reactions local to this compartment.
func (c *Compartment) Reactions() *Collection[*Reaction] { return &c.reactions }

// Mask returns the voxels of the compartment, or nil before geometry is
// imported.
func (c *Compartment) Mask() *field.Mask { return c.mask }

// SetName renames the compartment.
func (c *Compartment) SetName(name string) error {
	name = validName(name)
	if name == c.name {
		return nil
	}
	if err := c.model.compartments.checkNewName(name); err != nil {
		return err
	}
	c.model.compartments.rename(c.name, name)
	c.name = name
	return nil
}

// SetColor remaps the compartment to another colour of the geometry image.
func (c *Compartment) SetColor(color geometry.Color) error {
	if color == c.color {
		return nil
	}
	if other := c.model.compartmentByColor(color); other != nil {
		return dynamo.InvalidArgument("colour %s is already used by compartment '%s'", color, other.name)
	}
	c.color = color
	if img := c.model.image; img != nil {
		c.mask = img.Mask(color)
		c.model.deriveMembranes()
		c.model.touch(true)
	}
	return nil
}

// AddSpecies creates a species with uniform zero concentration and zero
// diffusion.
func (c *Compartment) AddSpecies(name string) (*Species, error) {
	name = validName(name)
	if err := c.species.checkNewName(name); err != nil {
		return nil, err
	}
	s := &Species{
		comp:    c,
		id:      c.model.newID(name),
		name:    name,
		spatial: true,
	}
	c.species.add(s)
	c.model.touch(false)
	return s, nil
}

// RemoveSpecies deletes a species that no reaction refers to.
func (c *Compartment) RemoveSpecies(name string) error {
	s, err := c.species.Get(name)
	if err != nil {
		return err
	}
	for _, r := range c.model.AllReactions() {
		if r.references(s.id) {
			return dynamo.InvalidArgument("species '%s' is used by reaction '%s'", name, r.name)
		}
	}
	c.species.remove(s.id)
	c.model.releaseID(s.id)
	s.comp = nil
	c.model.touch(false)
	return nil
}

// AddReaction creates a reaction local to the compartment.
func (c *Compartment) AddReaction(name, expression string) (*Reaction, error) {
	return newReaction(c.model, &c.reactions, reactionSite{comp: c}, name, expression)
}

// RemoveReaction deletes a reaction.
func (c *Compartment) RemoveReaction(name string) error {
	r, err := c.reactions.Get(name)
	if err != nil {
		return err
	}
	c.reactions.remove(r.id)
	r.release()
	c.model.touch(false)
	return nil
}
