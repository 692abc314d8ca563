// Package modelspec reads spatial models from YAML. The geometry is
// either an image file next to the model file or an inline grid of
// characters with a colour legend.
package modelspec

// File is the YAML layout of a model.
type File struct {
	Name         string        `yaml:"name"`
	Geometry     Geometry      `yaml:"geometry"`
	Parameters   []Parameter   `yaml:"parameters,omitempty"`
	Compartments []Compartment `yaml:"compartments"`
	Membranes    []Membrane    `yaml:"membranes,omitempty"`
}

type Geometry struct {
	// Image is a png, tiff or bmp file, relative to the model file.
	Image string `yaml:"image,omitempty"`
	// Slices are stacked along z to form a 3D geometry.
	Slices []string `yaml:"slices,omitempty"`

	// Rows is an inline 2D geometry, one string per image row, each
	// character a key of Legend.
	Rows   []string          `yaml:"rows,omitempty"`
	Legend map[string]string `yaml:"legend,omitempty"`

	VoxelSize []float64 `yaml:"voxel_size,omitempty"`
	Origin    []float64 `yaml:"origin,omitempty"`
}

type Parameter struct {
	Name  string `yaml:"name"`
	Value string `yaml:"value"`
}

type Compartment struct {
	Name      string     `yaml:"name"`
	Color     string     `yaml:"color"`
	Species   []Species  `yaml:"species,omitempty"`
	Reactions []Reaction `yaml:"reactions,omitempty"`
}

// Species sets at most one of Concentration and Analytic, and at most one
// of Diffusion and AnalyticDiffusion.
type Species struct {
	Name              string   `yaml:"name"`
	Concentration     *float64 `yaml:"concentration,omitempty"`
	Analytic          string   `yaml:"analytic,omitempty"`
	Diffusion         *float64 `yaml:"diffusion,omitempty"`
	AnalyticDiffusion string   `yaml:"analytic_diffusion,omitempty"`
	Constant          bool     `yaml:"constant,omitempty"`
	// NonSpatial species stay uniform in their compartment.
	NonSpatial bool `yaml:"non_spatial,omitempty"`
}

// Reaction rates refer to species and parameters by ID: the name made
// into an identifier, with a _2, _3 suffix when a name repeats.
type Reaction struct {
	Name          string             `yaml:"name"`
	Rate          string             `yaml:"rate"`
	Stoichiometry map[string]float64 `yaml:"stoichiometry"`
	Parameters    map[string]float64 `yaml:"parameters,omitempty"`
}

// Membrane attaches reactions to the membrane between two compartments,
// named in either order.
type Membrane struct {
	Between   [2]string  `yaml:"between"`
	Name      string     `yaml:"name,omitempty"`
	Reactions []Reaction `yaml:"reactions"`
}
