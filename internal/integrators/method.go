package integrators

import (
	"strings"

	"github.com/san-kum/spatialsim/internal/dynamo"
)

// Method selects an explicit Runge-Kutta scheme.
type Method int

const (
	// RK101 is forward Euler with a fixed step.
	RK101 Method = iota
	// RK212 is Heun's method with an embedded Euler error estimate.
	RK212
	// RK323 is the three stage Shu-Osher method with an embedded Heun
	// estimate.
	RK323
	// RK435 is a five stage, fourth order low-storage method with an
	// embedded third order estimate.
	RK435
)

var methodNames = map[Method]string{
	RK101: "rk101",
	RK212: "rk212",
	RK323: "rk323",
	RK435: "rk435",
}

func (m Method) String() string {
	if name, ok := methodNames[m]; ok {
		return name
	}
	return "unknown"
}

// Order returns the order of accuracy of the scheme.
func (m Method) Order() int {
	switch m {
	case RK212:
		return 2
	case RK323:
		return 3
	case RK435:
		return 4
	default:
		return 1
	}
}

// Adaptive reports whether the scheme carries an embedded error estimate.
func (m Method) Adaptive() bool {
	return m != RK101
}

// ParseMethod accepts the names returned by String, case-insensitively.
func ParseMethod(name string) (Method, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	for m, n := range methodNames {
		if n == name {
			return m, nil
		}
	}
	return 0, dynamo.InvalidArgument("unknown integrator %q", name)
}

// ListMethods returns every method name.
func ListMethods() []string {
	return []string{"rk101", "rk212", "rk323", "rk435"}
}
