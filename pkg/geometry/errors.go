package geometry

import (
	"errors"
	"fmt"
)

// ErrArithmeticOverflow is matched by every OverflowError
var ErrArithmeticOverflow = errors.New("geometry: arithmetic overflow")

// OverflowError reports a ratio operation whose reduced result does not
// fit into int64 terms. Num and Denom hold the exact decimal values.
type OverflowError struct {
	Op    string
	Num   string
	Denom string
}

func (e *OverflowError) Error() string {
	return fmt.Sprintf("geometry: %s overflows int64: %s/%s", e.Op, e.Num, e.Denom)
}

// Is makes errors.Is(err, ErrArithmeticOverflow) hold
func (e *OverflowError) Is(target error) bool {
	return target == ErrArithmeticOverflow
}
