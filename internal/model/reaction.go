package model

import (
	"math"
	"slices"
	"sort"

	"github.com/san-kum/spatialsim/internal/dynamo"
	"github.com/san-kum/spatialsim/internal/mathexpr"
)

// reactionSite is either a compartment or a membrane.
type reactionSite struct {
	comp     *Compartment
	membrane *Membrane
}

func (s reactionSite) species() []*Species {
	if s.comp != nil {
		return s.comp.species.items
	}
	return append(slices.Clone(s.membrane.a.species.items), s.membrane.b.species.items...)
}

// Reaction is a kinetic law with stoichiometry. In a compartment the rate
// is a concentration per unit time; on a membrane it is an amount per unit
// area per unit time.
type Reaction struct {
	model      *Model
	collection *Collection[*Reaction]
	site       reactionSite

	id         string
	name       string
	expression string
	stoich     map[string]float64

	parameters Collection[*ReactionParameter]
}

// ReactionParameter is a numeric constant local to one reaction.
type ReactionParameter struct {
	reaction *Reaction
	id       string
	name     string
	value    float64
}

func newReaction(m *Model, coll *Collection[*Reaction], site reactionSite, name, expression string) (*Reaction, error) {
	name = validName(name)
	if err := coll.checkNewName(name); err != nil {
		return nil, err
	}
	r := &Reaction{
		model:      m,
		collection: coll,
		site:       site,
		name:       name,
		stoich:     make(map[string]float64),
		parameters: newCollection[*ReactionParameter]("reaction parameter"),
	}
	if err := r.checkExpression(expression); err != nil {
		return nil, err
	}
	r.expression = expression
	r.id = m.newID(name)
	coll.add(r)
	m.touch(false)
	return r, nil
}

func (r *Reaction) ID() string         { return r.id }
func (r *Reaction) Name() string       { return r.name }
func (r *Reaction) Expression() string { return r.expression }

// Compartment returns the owning compartment, or nil for a membrane
// reaction.
func (r *Reaction) Compartment() *Compartment { return r.site.comp }

// Membrane returns the owning membrane, or nil for a compartment reaction.
func (r *Reaction) Membrane() *Membrane { return r.site.membrane }

// Parameters returns the local parameters of the reaction.
func (r *Reaction) Parameters() *Collection[*ReactionParameter] { return &r.parameters }

// SetName renames the reaction.
func (r *Reaction) SetName(name string) error {
	name = validName(name)
	if name == r.name {
		return nil
	}
	if err := r.collection.checkNewName(name); err != nil {
		return err
	}
	r.collection.rename(r.name, name)
	r.name = name
	return nil
}

// SetExpression replaces the kinetic law.
func (r *Reaction) SetExpression(expression string) error {
	if err := r.checkExpression(expression); err != nil {
		return err
	}
	r.expression = expression
	r.model.touch(false)
	return nil
}

// Variables returns the identifiers a kinetic law at this site may use.
func (r *Reaction) Variables() []string {
	vars := []string{VarX, VarY, VarZ, VarT}
	for _, s := range r.site.species() {
		vars = append(vars, s.id)
	}
	vars = append(vars, r.model.parameters.IDs()...)
	return append(vars, r.parameters.IDs()...)
}

func (r *Reaction) checkExpression(expression string) error {
	_, err := mathexpr.Compile(expression, r.Variables()...)
	return err
}

// Compile returns the compiled kinetic law.
func (r *Reaction) Compile() (*mathexpr.Expr, error) {
	return mathexpr.Compile(r.expression, r.Variables()...)
}

// Stoichiometry returns species ID to coefficient; reactants are negative.
func (r *Reaction) Stoichiometry() map[string]float64 {
	out := make(map[string]float64, len(r.stoich))
	for id, v := range r.stoich {
		out[id] = v
	}
	return out
}

// StoichiometryIDs returns the species IDs with a non-zero coefficient, in
// sorted order.
func (r *Reaction) StoichiometryIDs() []string {
	ids := make([]string, 0, len(r.stoich))
	for id := range r.stoich {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// SetStoichiometry sets the coefficient of s. Zero removes the species from
// the reaction.
func (r *Reaction) SetStoichiometry(s *Species, coeff float64) error {
	if math.IsNaN(coeff) || math.IsInf(coeff, 0) {
		return dynamo.InvalidArgument("stoichiometry must be finite, got %g", coeff)
	}
	if !slices.Contains(r.site.species(), s) {
		return dynamo.InvalidArgument("species '%s' is not available to reaction '%s'", s.Name(), r.name)
	}
	if coeff == 0 {
		delete(r.stoich, s.id)
	} else {
		r.stoich[s.id] = coeff
	}
	r.model.touch(false)
	return nil
}

// AddParameter creates a local parameter.
func (r *Reaction) AddParameter(name string, value float64) (*ReactionParameter, error) {
	name = validName(name)
	if err := r.parameters.checkNewName(name); err != nil {
		return nil, err
	}
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return nil, dynamo.InvalidArgument("parameter value must be finite, got %g", value)
	}
	p := &ReactionParameter{reaction: r, id: r.model.newID(name), name: name, value: value}
	r.parameters.add(p)
	r.model.touch(false)
	return p, nil
}

// RemoveParameter deletes a local parameter the kinetic law does not use.
func (r *Reaction) RemoveParameter(name string) error {
	p, err := r.parameters.Get(name)
	if err != nil {
		return err
	}
	if r.references(p.id) {
		return dynamo.InvalidArgument("reaction parameter '%s' is used by reaction '%s'", name, r.name)
	}
	r.parameters.remove(p.id)
	r.model.releaseID(p.id)
	r.model.touch(false)
	return nil
}

// ParameterValues returns local parameter values by ID.
func (r *Reaction) ParameterValues() map[string]float64 {
	out := make(map[string]float64, r.parameters.Len())
	for _, p := range r.parameters.items {
		out[p.id] = p.value
	}
	return out
}

func (r *Reaction) references(id string) bool {
	if _, ok := r.stoich[id]; ok {
		return true
	}
	vars, err := mathexpr.Identifiers(r.expression)
	if err != nil {
		return false
	}
	return slices.Contains(vars, id)
}

func (r *Reaction) release() {
	for _, p := range r.parameters.items {
		r.model.releaseID(p.id)
	}
	r.model.releaseID(r.id)
}

func (p *ReactionParameter) ID() string     { return p.id }
func (p *ReactionParameter) Name() string   { return p.name }
func (p *ReactionParameter) Value() float64 { return p.value }

// SetName renames the parameter within its reaction.
func (p *ReactionParameter) SetName(name string) error {
	name = validName(name)
	if name == p.name {
		return nil
	}
	if err := p.reaction.parameters.checkNewName(name); err != nil {
		return err
	}
	p.reaction.parameters.rename(p.name, name)
	p.name = name
	return nil
}

// SetValue sets the parameter value.
func (p *ReactionParameter) SetValue(v float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return dynamo.InvalidArgument("parameter value must be finite, got %g", v)
	}
	p.value = v
	p.reaction.model.touch(false)
	return nil
}
