package simulate

import (
	. "github.com/onsi/gomega"

	"github.com/san-kum/spatialsim/internal/field"
	"github.com/san-kum/spatialsim/internal/geometry"
	"github.com/san-kum/spatialsim/internal/model"
)

var (
	red   = geometry.RGB(255, 0, 0)
	green = geometry.RGB(0, 255, 0)
	blue  = geometry.RGB(0, 0, 255)
)

// cellModel builds a w x h grid split into outside, cell and nucleus
// bands with five species, one local reaction and transport across both
// membranes.
func cellModel(w, h int) *model.Model {
	m := model.New("cell")
	colors := []geometry.Color{red, green, blue}
	for i, name := range []string{"outside", "cell", "nucleus"} {
		_, err := m.AddCompartment(name, colors[i])
		Expect(err).NotTo(HaveOccurred())
	}
	img := geometry.NewColorImage(field.Volume{Width: w, Height: h, Depth: 1})
	for i := range img.Pixels {
		x, _, _ := img.Volume.Coords(i)
		img.Pixels[i] = colors[x*len(colors)/w]
	}
	Expect(m.ImportGeometry(img)).To(Succeed())

	species := map[string]*model.Species{}
	for _, s := range []struct {
		comp, name string
		conc, diff float64
	}{
		{"outside", "A", 1, 1},
		{"outside", "B", 0, 0.5},
		{"cell", "C", 0, 1},
		{"cell", "D", 0.5, 0.2},
		{"nucleus", "E", 0, 0.1},
	} {
		c, err := m.Compartments().Get(s.comp)
		Expect(err).NotTo(HaveOccurred())
		sp, err := c.AddSpecies(s.name)
		Expect(err).NotTo(HaveOccurred())
		Expect(sp.SetUniformConcentration(s.conc)).To(Succeed())
		Expect(sp.SetDiffusionConstant(s.diff)).To(Succeed())
		species[s.name] = sp
	}

	outside, _ := m.Compartments().Get("outside")
	r, err := outside.AddReaction("convert", "0.2 * A")
	Expect(err).NotTo(HaveOccurred())
	Expect(r.SetStoichiometry(species["A"], -1)).To(Succeed())
	Expect(r.SetStoichiometry(species["B"], 1)).To(Succeed())

	outer, err := m.Membranes().Get("outside_cell_membrane")
	Expect(err).NotTo(HaveOccurred())
	t1, err := outer.AddReaction("import", "0.5 * A")
	Expect(err).NotTo(HaveOccurred())
	Expect(t1.SetStoichiometry(species["A"], -1)).To(Succeed())
	Expect(t1.SetStoichiometry(species["C"], 1)).To(Succeed())

	inner, err := m.Membranes().Get("cell_nucleus_membrane")
	Expect(err).NotTo(HaveOccurred())
	t2, err := inner.AddReaction("enter", "0.3 * C")
	Expect(err).NotTo(HaveOccurred())
	Expect(t2.SetStoichiometry(species["C"], -1)).To(Succeed())
	Expect(t2.SetStoichiometry(species["E"], 1)).To(Succeed())
	return m
}

// decayModel is a single band in which A decays at rate k = 1.
func decayModel() *model.Model {
	m := model.New("decay")
	c, err := m.AddCompartment("c", red)
	Expect(err).NotTo(HaveOccurred())
	img := geometry.NewColorImage(field.Volume{Width: 8, Height: 8, Depth: 1})
	for i := range img.Pixels {
		img.Pixels[i] = red
	}
	Expect(m.ImportGeometry(img)).To(Succeed())
	a, err := c.AddSpecies("A")
	Expect(err).NotTo(HaveOccurred())
	Expect(a.SetAnalyticConcentration("1 + 0.1 * x")).To(Succeed())
	Expect(a.SetDiffusionConstant(0.1)).To(Succeed())
	r, err := c.AddReaction("decay", "A")
	Expect(err).NotTo(HaveOccurred())
	Expect(r.SetStoichiometry(a, -1)).To(Succeed())
	return m
}

// staticModel holds one species with a non-uniform field and no dynamics.
func staticModel() *model.Model {
	m := model.New("static")
	c, err := m.AddCompartment("c", red)
	Expect(err).NotTo(HaveOccurred())
	img := geometry.NewColorImage(field.Volume{Width: 8, Height: 8, Depth: 1})
	for i := range img.Pixels {
		img.Pixels[i] = red
	}
	Expect(m.ImportGeometry(img)).To(Succeed())
	a, err := c.AddSpecies("A")
	Expect(err).NotTo(HaveOccurred())
	Expect(a.SetAnalyticConcentration("x * x")).To(Succeed())
	Expect(a.SetDiffusionConstant(0)).To(Succeed())
	return m
}

func times(results []*Result) []float64 {
	out := make([]float64, len(results))
	for i, r := range results {
		out[i] = r.Time
	}
	return out
}

func opts(durations, intervals string) Options {
	o := DefaultOptions()
	Expect(o.SetTimes(durations, intervals)).To(Succeed())
	return o
}
