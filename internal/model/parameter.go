package model

import (
	"slices"
	"strconv"
	"strings"

	"github.com/san-kum/spatialsim/internal/dynamo"
	"github.com/san-kum/spatialsim/internal/mathexpr"
)

// Parameter is a global named value. The value is kept as written and may
// be a number or an expression over other parameters.
type Parameter struct {
	model *Model
	id    string
	name  string
	value string
}

func (p *Parameter) ID() string    { return p.id }
func (p *Parameter) Name() string  { return p.name }
func (p *Parameter) Value() string { return p.value }

// SetName renames the parameter.
func (p *Parameter) SetName(name string) error {
	name = validName(name)
	if name == p.name {
		return nil
	}
	if err := p.model.parameters.checkNewName(name); err != nil {
		return err
	}
	p.model.parameters.rename(p.name, name)
	p.name = name
	return nil
}

// SetValue assigns a numeric or symbolic value. Symbolic values may refer
// to other parameters but not form a cycle.
func (p *Parameter) SetValue(value string) error {
	value = strings.TrimSpace(value)
	if err := p.model.checkParameterValue(p.id, value); err != nil {
		return err
	}
	old := p.value
	p.value = value
	if _, err := p.model.ParameterValues(); err != nil {
		p.value = old
		return err
	}
	p.model.touch(false)
	return nil
}

// Evaluate returns the numeric value of the parameter.
func (p *Parameter) Evaluate() (float64, error) {
	vals, err := p.model.ParameterValues()
	if err != nil {
		return 0, err
	}
	return vals[p.id], nil
}

// AddParameter creates a global parameter.
func (m *Model) AddParameter(name, value string) (*Parameter, error) {
	name = validName(name)
	value = strings.TrimSpace(value)
	if err := m.parameters.checkNewName(name); err != nil {
		return nil, err
	}
	if err := m.checkParameterValue("", value); err != nil {
		return nil, err
	}
	p := &Parameter{model: m, id: m.newID(name), name: name, value: value}
	m.parameters.add(p)
	if _, err := m.ParameterValues(); err != nil {
		m.parameters.remove(p.id)
		m.releaseID(p.id)
		return nil, err
	}
	m.touch(false)
	return p, nil
}

// RemoveParameter deletes a parameter nothing refers to.
func (m *Model) RemoveParameter(name string) error {
	p, err := m.parameters.Get(name)
	if err != nil {
		return err
	}
	if user := m.parameterUser(p.id); user != "" {
		return dynamo.InvalidArgument("parameter '%s' is used by %s", name, user)
	}
	m.parameters.remove(p.id)
	m.releaseID(p.id)
	m.touch(false)
	return nil
}

func (m *Model) checkParameterValue(self, value string) error {
	if value == "" {
		return dynamo.InvalidArgument("parameter value cannot be empty")
	}
	if _, err := strconv.ParseFloat(value, 64); err == nil {
		return nil
	}
	vars, err := mathexpr.Identifiers(value)
	if err != nil {
		return err
	}
	for _, v := range vars {
		if v == self {
			return dynamo.InvalidArgument("parameter value %q refers to itself", value)
		}
		if _, ok := m.parameters.ByID(v); !ok {
			return dynamo.InvalidArgument("unknown symbol %q in parameter value %q", v, value)
		}
	}
	return nil
}

// parameterUser describes the first entity referring to parameter id, or
// returns "".
func (m *Model) parameterUser(id string) string {
	for _, p := range m.parameters.items {
		if vars, err := mathexpr.Identifiers(p.value); err == nil && slices.Contains(vars, id) {
			return "parameter '" + p.name + "'"
		}
	}
	for _, r := range m.AllReactions() {
		if r.references(id) {
			return "reaction '" + r.name + "'"
		}
	}
	for _, s := range m.AllSpecies() {
		for _, expr := range []string{s.concentration.Expression, s.diffusion.Expression} {
			if expr == "" {
				continue
			}
			if vars, err := mathexpr.Identifiers(expr); err == nil && slices.Contains(vars, id) {
				return "species '" + s.name + "'"
			}
		}
	}
	return ""
}

// ParameterValues evaluates every parameter by ID.
func (m *Model) ParameterValues() (map[string]float64, error) {
	const (
		unvisited = iota
		visiting
		done
	)
	state := make(map[string]int, m.parameters.Len())
	vals := make(map[string]float64, m.parameters.Len())

	var visit func(p *Parameter) error
	visit = func(p *Parameter) error {
		switch state[p.id] {
		case done:
			return nil
		case visiting:
			return dynamo.InvalidArgument("parameter '%s' is defined in terms of itself", p.name)
		}
		state[p.id] = visiting
		if v, err := strconv.ParseFloat(p.value, 64); err == nil {
			vals[p.id] = v
			state[p.id] = done
			return nil
		}
		deps, err := mathexpr.Identifiers(p.value)
		if err != nil {
			return err
		}
		env := make(map[string]float64, len(deps))
		for _, d := range deps {
			q, ok := m.parameters.ByID(d)
			if !ok {
				return dynamo.InvalidArgument("unknown symbol %q in parameter '%s'", d, p.name)
			}
			if err := visit(q); err != nil {
				return err
			}
			env[d] = vals[d]
		}
		v, err := mathexpr.Eval(p.value, env)
		if err != nil {
			return err
		}
		vals[p.id] = v
		state[p.id] = done
		return nil
	}

	for _, p := range m.parameters.items {
		if err := visit(p); err != nil {
			return nil, err
		}
	}
	return vals, nil
}
