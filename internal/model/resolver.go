package model

import (
	"github.com/san-kum/spatialsim/internal/dynamo"
	"github.com/san-kum/spatialsim/internal/field"
	"github.com/san-kum/spatialsim/internal/mathexpr"
)

// Resolve converts a specification into a field over the compartment:
// the uniform value, the analytic expression evaluated at every voxel
// centre, or the image. Voxels outside the compartment are zero.
func (m *Model) Resolve(spec Spec, comp *Compartment) (*field.Field, error) {
	if comp.mask == nil {
		return nil, dynamo.InvalidArgument("compartment '%s' has no geometry", comp.name)
	}
	switch spec.Kind {
	case Uniform:
		return field.Uniform(comp.mask, spec.Value), nil
	case Analytic:
		return m.resolveAnalytic(spec.Expression, comp)
	case Image:
		if spec.Image == nil || spec.Image.Volume != m.geom.Volume {
			return nil, dynamo.InvalidArgument("image field does not match the %s grid", m.geom.Volume)
		}
		return spec.Image.Clone().Clamp(comp.mask), nil
	default:
		return nil, dynamo.InvalidArgument("unknown field kind %d", spec.Kind)
	}
}

func (m *Model) resolveAnalytic(expression string, comp *Compartment) (*field.Field, error) {
	params, err := m.ParameterValues()
	if err != nil {
		return nil, err
	}
	vars := append(m.parameters.IDs(), VarX, VarY, VarZ)
	e, err := mathexpr.Compile(expression, vars...)
	if err != nil {
		return nil, err
	}

	ev := mathexpr.NewEvaluator()
	ev.SetAll(params)
	f := field.New(m.geom.Volume)
	for _, i := range comp.mask.Indices() {
		x, y, z := m.geom.Position(i)
		ev.Set(VarX, x)
		ev.Set(VarY, y)
		ev.Set(VarZ, z)
		v, err := ev.Eval(e)
		if err != nil {
			return nil, err
		}
		f.Values[i] = v
	}
	return f, nil
}

func (m *Model) resolveCached(c *cached, spec *Spec, comp *Compartment) (*field.Field, error) {
	if f := c.get(m.revision); f != nil {
		return f.Clone(), nil
	}
	f, err := m.Resolve(*spec, comp)
	if err != nil {
		return nil, err
	}
	c.put(f, m.revision)
	return f.Clone(), nil
}
