package model

import (
	"math"

	"github.com/san-kum/spatialsim/internal/dynamo"
	"github.com/san-kum/spatialsim/internal/field"
	"github.com/san-kum/spatialsim/internal/mathexpr"
)

// Species is a chemical species living in one compartment.
type Species struct {
	comp *Compartment
	id   string
	name string

	concentration Spec
	diffusion     Spec

	constant bool
	spatial  bool

	concCache cached
	diffCache cached
}

func (s *Species) ID() string                { return s.id }
func (s *Species) Name() string              { return s.name }
func (s *Species) Compartment() *Compartment { return s.comp }

// Constant species keep their initial field and are not integrated.
func (s *Species) Constant() bool { return s.constant }

// Spatial species diffuse. A non-spatial species stays uniform in its
// compartment.
func (s *Species) Spatial() bool { return s.spatial }

func (s *Species) SetConstant(v bool) {
	s.constant = v
	s.comp.model.touch(false)
}

func (s *Species) SetSpatial(v bool) {
	s.spatial = v
	s.comp.model.touch(false)
}

// SetName renames the species within its compartment.
func (s *Species) SetName(name string) error {
	name = validName(name)
	if name == s.name {
		return nil
	}
	if err := s.comp.species.checkNewName(name); err != nil {
		return err
	}
	s.comp.species.rename(s.name, name)
	s.name = name
	return nil
}

// ConcentrationSpec returns the concentration specification.
func (s *Species) ConcentrationSpec() Spec { return s.concentration }

// DiffusionSpec returns the diffusion specification.
func (s *Species) DiffusionSpec() Spec { return s.diffusion }

// UniformConcentration returns the last uniform concentration assigned.
func (s *Species) UniformConcentration() float64 { return s.concentration.Value }

// SetUniformConcentration makes the concentration uniform, clearing any
// analytic expression or image.
func (s *Species) SetUniformConcentration(v float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return dynamo.InvalidArgument("concentration must be finite, got %g", v)
	}
	s.concentration.setUniform(v)
	s.concCache.reset()
	s.comp.model.touch(false)
	return nil
}

// AnalyticConcentration returns the analytic expression, or "" if the
// concentration is not analytic.
func (s *Species) AnalyticConcentration() string { return s.concentration.Expression }

// SetAnalyticConcentration makes the concentration a function of x, y, z
// and the global parameters.
func (s *Species) SetAnalyticConcentration(expression string) error {
	if err := s.checkAnalytic(expression); err != nil {
		return err
	}
	s.concentration.setAnalytic(expression)
	s.concCache.reset()
	s.comp.model.touch(false)
	return nil
}

// ConcentrationImage returns the resolved concentration as an array.
func (s *Species) ConcentrationImage() (field.Array, error) {
	f, err := s.Concentration()
	if err != nil {
		return field.Array{}, err
	}
	return f.ToArray(), nil
}

// SetConcentrationImage sets an explicit per-voxel concentration. Values
// outside the compartment are ignored.
func (s *Species) SetConcentrationImage(arr field.Array) error {
	f, err := s.imageField("concentration", arr)
	if err != nil {
		return err
	}
	s.concentration.setImage(f)
	s.concCache.reset()
	s.comp.model.touch(false)
	return nil
}

// DiffusionConstant returns the last uniform diffusion constant assigned.
func (s *Species) DiffusionConstant() float64 { return s.diffusion.Value }

// SetDiffusionConstant makes the diffusion coefficient uniform.
func (s *Species) SetDiffusionConstant(d float64) error {
	if !(d >= 0) || math.IsInf(d, 0) {
		return dynamo.InvalidArgument("diffusion constant must be finite and non-negative, got %g", d)
	}
	s.diffusion.setUniform(d)
	s.diffCache.reset()
	s.comp.model.touch(false)
	return nil
}

// AnalyticDiffusion returns the analytic diffusion expression, or "".
func (s *Species) AnalyticDiffusion() string { return s.diffusion.Expression }

// SetAnalyticDiffusion makes the diffusion coefficient a function of
// position.
func (s *Species) SetAnalyticDiffusion(expression string) error {
	if err := s.checkAnalytic(expression); err != nil {
		return err
	}
	s.diffusion.setAnalytic(expression)
	s.diffCache.reset()
	s.comp.model.touch(false)
	return nil
}

// DiffusionImage returns the resolved diffusion coefficient as an array.
func (s *Species) DiffusionImage() (field.Array, error) {
	f, err := s.Diffusion()
	if err != nil {
		return field.Array{}, err
	}
	return f.ToArray(), nil
}

// SetDiffusionImage sets an explicit per-voxel diffusion coefficient.
func (s *Species) SetDiffusionImage(arr field.Array) error {
	f, err := s.imageField("diffusion", arr)
	if err != nil {
		return err
	}
	for _, v := range f.Values {
		if !(v >= 0) || math.IsInf(v, 0) {
			return dynamo.InvalidArgument("diffusion image contains invalid value %g", v)
		}
	}
	s.diffusion.setImage(f)
	s.diffCache.reset()
	s.comp.model.touch(false)
	return nil
}

// Concentration resolves the concentration field, masked to the
// compartment. The returned field is a copy.
func (s *Species) Concentration() (*field.Field, error) {
	return s.comp.model.resolveCached(&s.concCache, &s.concentration, s.comp)
}

// Diffusion resolves the diffusion coefficient field.
func (s *Species) Diffusion() (*field.Field, error) {
	return s.comp.model.resolveCached(&s.diffCache, &s.diffusion, s.comp)
}

// dropImages reverts image fields that do not fit vol to uniform.
func (s *Species) dropImages(vol field.Volume) {
	if s.concentration.Kind == Image && s.concentration.Image.Volume != vol {
		s.concentration.setUniform(s.concentration.Value)
		s.concCache.reset()
	}
	if s.diffusion.Kind == Image && s.diffusion.Image.Volume != vol {
		s.diffusion.setUniform(s.diffusion.Value)
		s.diffCache.reset()
	}
}

func (s *Species) checkAnalytic(expression string) error {
	vars := append(s.comp.model.parameters.IDs(), VarX, VarY, VarZ)
	_, err := mathexpr.Compile(expression, vars...)
	return err
}

func (s *Species) imageField(name string, arr field.Array) (*field.Field, error) {
	m := s.comp.model
	if m.image == nil {
		return nil, dynamo.InvalidArgument("cannot set %s image before geometry is imported", name)
	}
	return arr.ToField(name, m.geom.Volume)
}
