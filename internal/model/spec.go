package model

import (
	"github.com/san-kum/spatialsim/internal/field"
)

// Kind selects the active representation of a field specification.
type Kind int

const (
	Uniform Kind = iota
	Analytic
	Image
)

func (k Kind) String() string {
	switch k {
	case Uniform:
		return "uniform"
	case Analytic:
		return "analytic"
	case Image:
		return "image"
	default:
		return "unknown"
	}
}

// Spec describes how a concentration or diffusion field is derived. Kind
// is authoritative: Expression is set only for Analytic and Image only for
// Image. The uniform scalar survives a switch to another kind so it can
// still be read.
type Spec struct {
	Kind       Kind
	Value      float64
	Expression string
	Image      *field.Field
}

func (s *Spec) setUniform(v float64) {
	*s = Spec{Kind: Uniform, Value: v}
}

func (s *Spec) setAnalytic(expr string) {
	*s = Spec{Kind: Analytic, Value: s.Value, Expression: expr}
}

func (s *Spec) setImage(f *field.Field) {
	*s = Spec{Kind: Image, Value: s.Value, Image: f}
}

// cached is a resolved field tagged with the model revision it was
// computed at.
type cached struct {
	field    *field.Field
	revision uint64
}

func (c *cached) get(revision uint64) *field.Field {
	if c.field == nil || c.revision != revision {
		return nil
	}
	return c.field
}

func (c *cached) put(f *field.Field, revision uint64) {
	c.field, c.revision = f, revision
}

func (c *cached) reset() {
	c.field = nil
}
