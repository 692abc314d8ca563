package model

import (
	"fmt"
	"strings"

	"github.com/san-kum/spatialsim/internal/mathexpr"
)

// Spatial and time variables available to expressions.
const (
	VarX = "x"
	VarY = "y"
	VarZ = "z"
	VarT = "t"
)

func reservedID(id string) bool {
	switch id {
	case VarX, VarY, VarZ, VarT:
		return true
	}
	return mathexpr.Reserved(id)
}

func sanitizeID(name string) string {
	var b strings.Builder
	for _, r := range strings.TrimSpace(name) {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	id := b.String()
	if id == "" {
		id = "id"
	}
	if id[0] >= '0' && id[0] <= '9' {
		id = "_" + id
	}
	if reservedID(id) {
		id += "_"
	}
	return id
}

func (m *Model) newID(name string) string {
	base := sanitizeID(name)
	id := base
	for n := 2; m.ids[id]; n++ {
		id = fmt.Sprintf("%s_%d", base, n)
	}
	m.ids[id] = true
	return id
}

func (m *Model) releaseID(id string) {
	delete(m.ids, id)
}

func validName(name string) string {
	return strings.TrimSpace(name)
}
