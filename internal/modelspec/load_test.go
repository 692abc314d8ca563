package modelspec

import (
	"errors"
	"path/filepath"
	"testing"

	. "github.com/onsi/gomega"

	"github.com/san-kum/spatialsim/internal/dynamo"
)

func TestLoadCellModel(t *testing.T) {
	g := NewWithT(t)
	m, err := Load(filepath.Join("testdata", "cell.yaml"))
	g.Expect(err).NotTo(HaveOccurred())

	g.Expect(m.Name()).To(Equal("cell"))
	g.Expect(m.Compartments().Names()).To(Equal([]string{"outside", "cell", "nucleus"}))
	g.Expect(m.Geometry().Volume.Width).To(Equal(8))
	g.Expect(m.Geometry().VoxelSize).To(Equal([3]float64{0.5, 0.5, 1}))
	g.Expect(m.Membranes().Names()).To(ConsistOf("plasma", "cell_nucleus_membrane"))

	params, err := m.ParameterValues()
	g.Expect(err).NotTo(HaveOccurred())
	g.Expect(params["k_nuc"]).To(Equal(0.25))

	cell, _ := m.Compartments().Get("cell")
	enzyme, err := cell.Species().Get("enzyme")
	g.Expect(err).NotTo(HaveOccurred())
	g.Expect(enzyme.Constant()).To(BeTrue())
	b, _ := cell.Species().Get("B")
	g.Expect(b.AnalyticConcentration()).To(Equal("0.1 * x"))
	g.Expect(b.DiffusionConstant()).To(Equal(0.4))

	degrade, err := cell.Reactions().Get("degrade")
	g.Expect(err).NotTo(HaveOccurred())
	g.Expect(degrade.Parameters().Names()).To(Equal([]string{"kd"}))
	g.Expect(degrade.Stoichiometry()).To(Equal(map[string]float64{"B": -1}))

	plasma, _ := m.Membranes().Get("plasma")
	uptake, err := plasma.Reactions().Get("uptake")
	g.Expect(err).NotTo(HaveOccurred())
	g.Expect(uptake.StoichiometryIDs()).To(Equal([]string{"A", "B"}))

	nucleus, _ := m.Compartments().Get("nucleus")
	c, _ := nucleus.Species().Get("C")
	g.Expect(c.Spatial()).To(BeFalse())
	g.Expect(nucleus.Mask().Count()).To(Equal(4))
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"unknown field", "name: x\ncolour: red\n"},
		{"no geometry", "compartments:\n  - name: a\n    color: '#ff0000'\n"},
		{"bad colour", "geometry:\n  rows: [a]\n  legend: {a: '#ff0000'}\ncompartments:\n  - name: a\n    color: red\n"},
		{"ragged rows", "geometry:\n  rows: [aa, a]\n  legend: {a: '#ff0000'}\ncompartments:\n  - name: a\n    color: '#ff0000'\n"},
		{"unknown legend key", "geometry:\n  rows: [ab]\n  legend: {a: '#ff0000'}\ncompartments:\n  - name: a\n    color: '#ff0000'\n"},
		{"two concentrations", "geometry:\n  rows: [a]\n  legend: {a: '#ff0000'}\ncompartments:\n  - name: a\n    color: '#ff0000'\n    species:\n      - name: s\n        concentration: 1\n        analytic: x\n"},
		{"unknown stoichiometry species", "geometry:\n  rows: [a]\n  legend: {a: '#ff0000'}\ncompartments:\n  - name: a\n    color: '#ff0000'\n    reactions:\n      - name: r\n        rate: '1'\n        stoichiometry: {s: 1}\n"},
		{"no membrane", "geometry:\n  rows: [a]\n  legend: {a: '#ff0000'}\ncompartments:\n  - name: a\n    color: '#ff0000'\nmembranes:\n  - between: [a, b]\n    reactions: []\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml), ".")
			if !errors.Is(err, dynamo.ErrInvalidArgument) {
				t.Errorf("expected invalid argument, got %v", err)
			}
		})
	}
}
