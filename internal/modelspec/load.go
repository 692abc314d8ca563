package modelspec

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"unicode/utf8"

	"gopkg.in/yaml.v3"

	"github.com/san-kum/spatialsim/internal/dynamo"
	"github.com/san-kum/spatialsim/internal/field"
	"github.com/san-kum/spatialsim/internal/geometry"
	"github.com/san-kum/spatialsim/internal/model"
)

// Load reads a model file. Image paths are resolved against its directory.
func Load(path string) (*model.Model, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data, filepath.Dir(path))
}

// Parse builds a model from YAML.
func Parse(data []byte, dir string) (*model.Model, error) {
	var f File
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		return nil, fmt.Errorf("%w: parsing model: %v", dynamo.ErrInvalidArgument, err)
	}
	return f.Build(dir)
}

// Build creates the model described by f.
func (f *File) Build(dir string) (*model.Model, error) {
	name := f.Name
	if name == "" {
		name = "model"
	}
	m := model.New(name)

	for _, p := range f.Parameters {
		if _, err := m.AddParameter(p.Name, p.Value); err != nil {
			return nil, fmt.Errorf("parameter %q: %w", p.Name, err)
		}
	}
	for _, c := range f.Compartments {
		color, err := geometry.ParseColor(c.Color)
		if err != nil {
			return nil, fmt.Errorf("compartment %q: %w", c.Name, err)
		}
		if _, err := m.AddCompartment(c.Name, color); err != nil {
			return nil, err
		}
	}

	img, err := f.Geometry.image(dir)
	if err != nil {
		return nil, err
	}
	if err := m.ImportGeometry(img); err != nil {
		return nil, err
	}
	if err := f.Geometry.place(m); err != nil {
		return nil, err
	}

	for _, c := range f.Compartments {
		comp, err := m.Compartments().Get(c.Name)
		if err != nil {
			return nil, err
		}
		for _, s := range c.Species {
			if err := addSpecies(comp, s); err != nil {
				return nil, fmt.Errorf("species %q: %w", s.Name, err)
			}
		}
		for _, r := range c.Reactions {
			rc, err := comp.AddReaction(r.Name, "0")
			if err == nil {
				err = configure(rc, r, comp)
			}
			if err != nil {
				return nil, fmt.Errorf("reaction %q: %w", r.Name, err)
			}
		}
	}

	for _, mb := range f.Membranes {
		mem, a, b, err := membraneBetween(m, mb.Between)
		if err != nil {
			return nil, err
		}
		if mb.Name != "" {
			if err := mem.SetName(mb.Name); err != nil {
				return nil, err
			}
		}
		for _, r := range mb.Reactions {
			rc, err := mem.AddReaction(r.Name, "0")
			if err == nil {
				err = configure(rc, r, a, b)
			}
			if err != nil {
				return nil, fmt.Errorf("membrane reaction %q: %w", r.Name, err)
			}
		}
	}
	return m, nil
}

func addSpecies(c *model.Compartment, s Species) error {
	sp, err := c.AddSpecies(s.Name)
	if err != nil {
		return err
	}
	switch {
	case s.Concentration != nil && s.Analytic != "":
		return dynamo.InvalidArgument("both a concentration and an analytic expression given")
	case s.Concentration != nil:
		err = sp.SetUniformConcentration(*s.Concentration)
	case s.Analytic != "":
		err = sp.SetAnalyticConcentration(s.Analytic)
	}
	if err != nil {
		return err
	}
	switch {
	case s.Diffusion != nil && s.AnalyticDiffusion != "":
		return dynamo.InvalidArgument("both a diffusion constant and an analytic diffusion given")
	case s.Diffusion != nil:
		err = sp.SetDiffusionConstant(*s.Diffusion)
	case s.AnalyticDiffusion != "":
		err = sp.SetAnalyticDiffusion(s.AnalyticDiffusion)
	}
	if err != nil {
		return err
	}
	sp.SetConstant(s.Constant)
	sp.SetSpatial(!s.NonSpatial)
	return nil
}

// configure adds parameters before the rate law that may use them, then
// the stoichiometry. Species names are looked up in comps in order.
func configure(r *model.Reaction, spec Reaction, comps ...*model.Compartment) error {
	for _, name := range sortedKeys(spec.Parameters) {
		if _, err := r.AddParameter(name, spec.Parameters[name]); err != nil {
			return err
		}
	}
	if err := r.SetExpression(spec.Rate); err != nil {
		return err
	}
	for _, name := range sortedKeys(spec.Stoichiometry) {
		sp := findSpecies(name, comps)
		if sp == nil {
			return dynamo.InvalidArgument("unknown species %q", name)
		}
		if err := r.SetStoichiometry(sp, spec.Stoichiometry[name]); err != nil {
			return err
		}
	}
	return nil
}

func findSpecies(name string, comps []*model.Compartment) *model.Species {
	for _, c := range comps {
		if sp, err := c.Species().Get(name); err == nil {
			return sp
		}
	}
	return nil
}

func membraneBetween(m *model.Model, names [2]string) (*model.Membrane, *model.Compartment, *model.Compartment, error) {
	for _, mem := range m.Membranes().Items() {
		a, b := mem.Compartments()
		if (a.Name() == names[0] && b.Name() == names[1]) || (a.Name() == names[1] && b.Name() == names[0]) {
			return mem, a, b, nil
		}
	}
	return nil, nil, nil, dynamo.InvalidArgument("compartments %q and %q do not share a membrane", names[0], names[1])
}

func sortedKeys(m map[string]float64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

func (g Geometry) image(dir string) (*geometry.ColorImage, error) {
	switch {
	case g.Image != "":
		file, err := os.Open(filepath.Join(dir, g.Image))
		if err != nil {
			return nil, err
		}
		defer file.Close()
		return geometry.DecodeImage(file)
	case len(g.Slices) > 0:
		readers := make([]io.Reader, 0, len(g.Slices))
		for _, name := range g.Slices {
			data, err := os.ReadFile(filepath.Join(dir, name))
			if err != nil {
				return nil, err
			}
			readers = append(readers, bytes.NewReader(data))
		}
		return geometry.DecodeStack(readers...)
	case len(g.Rows) > 0:
		return g.grid()
	}
	return nil, dynamo.InvalidArgument("geometry needs an image, slices or rows")
}

func (g Geometry) grid() (*geometry.ColorImage, error) {
	legend := make(map[rune]geometry.Color, len(g.Legend))
	for key, value := range g.Legend {
		r, size := utf8.DecodeRuneInString(key)
		if size != len(key) {
			return nil, dynamo.InvalidArgument("legend key %q must be a single character", key)
		}
		c, err := geometry.ParseColor(value)
		if err != nil {
			return nil, err
		}
		legend[r] = c
	}
	width := utf8.RuneCountInString(g.Rows[0])
	img := geometry.NewColorImage(field.Volume{Width: width, Height: len(g.Rows), Depth: 1})
	for y, row := range g.Rows {
		if utf8.RuneCountInString(row) != width {
			return nil, dynamo.InvalidArgument("row %d has %d cells, want %d", y, utf8.RuneCountInString(row), width)
		}
		x := 0
		for _, r := range row {
			c, ok := legend[r]
			if !ok {
				return nil, dynamo.InvalidArgument("row %d: %q is not in the legend", y, r)
			}
			img.Pixels[img.Volume.Index(x, y, 0)] = c
			x++
		}
	}
	return img, nil
}

func (g Geometry) place(m *model.Model) error {
	if len(g.VoxelSize) > 0 {
		size, err := triple("voxel_size", g.VoxelSize, 1)
		if err != nil {
			return err
		}
		if err := m.SetVoxelSize(size[0], size[1], size[2]); err != nil {
			return err
		}
	}
	if len(g.Origin) > 0 {
		o, err := triple("origin", g.Origin, 0)
		if err != nil {
			return err
		}
		m.SetOrigin(o[0], o[1], o[2])
	}
	return nil
}

// triple pads a 2 or 3 element list with fill.
func triple(name string, v []float64, fill float64) ([3]float64, error) {
	if len(v) < 2 || len(v) > 3 {
		return [3]float64{}, dynamo.InvalidArgument("%s needs 2 or 3 values, got %d", name, len(v))
	}
	out := [3]float64{fill, fill, fill}
	copy(out[:], v)
	return out, nil
}
