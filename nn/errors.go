package nn

import "fmt"

// ShapeError reports a dimension mismatch between a layer and its input.
// Shape contracts are fixed when the network is built, so a ShapeError at
// forward time means the caller fed data of the wrong size.
type ShapeError struct {
	Layer string
	Phase string // "build", "forward", "backward"
	Want  string
	Got   string
}

func (e *ShapeError) Error() string {
	return fmt.Sprintf("nn: %s %s: shape mismatch: want %s, got %s",
		e.Layer, e.Phase, e.Want, e.Got)
}

func shapeErrorf(layer, phase string, want, got interface{}) error {
	return &ShapeError{
		Layer: layer,
		Phase: phase,
		Want:  fmt.Sprintf("%v", want),
		Got:   fmt.Sprintf("%v", got),
	}
}

// errorf creates a formatted error with the library prefix
func errorf(format string, args ...interface{}) error {
	return fmt.Errorf("nn: "+format, args...)
}
