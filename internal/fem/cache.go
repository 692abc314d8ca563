package fem

import (
	"sync"

	"github.com/san-kum/spatialsim/internal/model"
)

// MeshCache keeps the meshes of a model until its geometry changes.
type MeshCache struct {
	mu       sync.Mutex
	model    *model.Model
	revision uint64
	meshes   map[string]*Mesh
	builds   int
}

// Meshes returns one mesh per compartment ID, building them if the model
// or its geometry changed since the last call.
func (c *MeshCache) Meshes(m *model.Model) (map[string]*Mesh, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.meshes != nil && c.model == m && c.revision == m.GeometryRevision() && c.complete(m) {
		return c.meshes, nil
	}
	meshes := make(map[string]*Mesh)
	for _, comp := range m.Compartments().Items() {
		if comp.Mask() == nil {
			continue
		}
		mesh, err := BuildMesh(m.Geometry(), comp.Mask())
		if err != nil {
			return nil, err
		}
		meshes[comp.ID()] = mesh
	}
	c.model, c.revision, c.meshes = m, m.GeometryRevision(), meshes
	c.builds++
	return meshes, nil
}

func (c *MeshCache) complete(m *model.Model) bool {
	for _, id := range m.Compartments().IDs() {
		if _, ok := c.meshes[id]; !ok {
			return false
		}
	}
	return true
}

// Builds returns how many times the meshes were rebuilt.
func (c *MeshCache) Builds() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.builds
}
