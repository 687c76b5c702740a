package modifier

import (
	"errors"
	"fmt"

	"github.com/menta2k/image-geometry/pkg/geometry"
)

// ErrSizeLimit is returned for requests larger than the configured limits
var ErrSizeLimit = errors.New("requested size exceeds limit")

// Validator checks requests against size limits. A zero limit on an axis
// disables the check for that axis.
type Validator struct {
	Limits geometry.Dimensions
}

// NewValidator creates a validator for the given limits
func NewValidator(limits geometry.Dimensions) *Validator {
	return &Validator{Limits: limits}
}

// CheckRequestSize validates the requested width and height
func (v *Validator) CheckRequestSize(m Modifier) error {
	if v.Limits.Width > 0 && m.Width > v.Limits.Width {
		return fmt.Errorf("%w: width %d is higher than %d", ErrSizeLimit, m.Width, v.Limits.Width)
	}
	if v.Limits.Height > 0 && m.Height > v.Limits.Height {
		return fmt.Errorf("%w: height %d is higher than %d", ErrSizeLimit, m.Height, v.Limits.Height)
	}
	return nil
}

// CheckResolved validates a normalized modifier. With stretch allowed the
// resolved size can be larger than any request, and density multiplies
// the pixels the renderer has to produce.
func (v *Validator) CheckResolved(m Modifier) error {
	density := m.Density
	if density.IsZero() {
		density = geometry.NewDimensions(1, 1)
	}
	return v.CheckRequestSize(New(m.Width*density.Width, m.Height*density.Height, m.Stretch, m.KeepAspect))
}
