package field

import (
	"fmt"

	"github.com/san-kum/spatialsim/internal/dynamo"
)

// Array is a dense N-dimensional array supplied by a caller, for example
// a concentration image. Shape is ordered depth, height, width and Values
// is row-major in that order.
type Array struct {
	Shape  []int
	Values []float64
}

// NewArray wraps a depth x height x width array.
func NewArray(depth, height, width int, values []float64) Array {
	return Array{Shape: []int{depth, height, width}, Values: values}
}

// ShapeError reports an Array whose rank or extent does not match the grid.
type ShapeError struct {
	// Name is the quantity being assigned, e.g. "concentration".
	Name string
	// Axis is "depth", "height" or "width"; empty for a rank mismatch.
	Axis string
	Got  int
	Want int
}

func (e *ShapeError) Error() string {
	if e.Axis == "" {
		return fmt.Sprintf("Invalid %s image array: is %d-dimensional, should be %d-dimensional",
			e.Name, e.Got, e.Want)
	}
	return fmt.Sprintf("Invalid %s image array: %s is %d, should be %d", e.Name, e.Axis, e.Got, e.Want)
}

func (e *ShapeError) Unwrap() error {
	return dynamo.ErrInvalidArgument
}

var axisNames = [3]string{"depth", "height", "width"}

// ToField validates a against vol and converts it. The first violating axis
// is reported in depth, height, width order.
func (a Array) ToField(name string, vol Volume) (*Field, error) {
	if len(a.Shape) != 3 {
		return nil, &ShapeError{Name: name, Got: len(a.Shape), Want: 3}
	}
	want := [3]int{vol.Depth, vol.Height, vol.Width}
	for k, n := range a.Shape {
		if n != want[k] {
			return nil, &ShapeError{Name: name, Axis: axisNames[k], Got: n, Want: want[k]}
		}
	}
	if len(a.Values) != vol.Size() {
		return nil, dynamo.InvalidArgument("%s image array has %d values, expected %d",
			name, len(a.Values), vol.Size())
	}
	f := New(vol)
	copy(f.Values, a.Values)
	return f, nil
}

// ToArray exports f as a depth x height x width array.
func (f *Field) ToArray() Array {
	vals := make([]float64, len(f.Values))
	copy(vals, f.Values)
	return NewArray(f.Volume.Depth, f.Volume.Height, f.Volume.Width, vals)
}
