package ndwcs

import "errors"

var (
	// ErrSchema flags malformed or unexpected axis metadata
	ErrSchema = errors.New("schema error")
	// ErrAxisCount flags a model/axis cardinality mismatch
	ErrAxisCount = errors.New("axis count mismatch")
	// ErrDimensionMismatch flags a slice expression longer than the pixel
	// dimensionality it is applied to
	ErrDimensionMismatch = errors.New("dimension mismatch")
	// ErrCountMismatch flags a location count that does not match a target shape
	ErrCountMismatch = errors.New("count mismatch")
	// ErrIndex flags an out of bounds index or range
	ErrIndex = errors.New("index out of bounds")
)
