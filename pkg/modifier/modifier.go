// Package modifier resolves an image request (target size, stretch and
// keep-aspect flags, pixel density, output format) against the size of the
// original image.
package modifier

import (
	"fmt"

	"github.com/menta2k/image-geometry/pkg/geometry"
)

// Modifier is an image request. Zero width, height or density means the
// value is computed by Normalize.
type Modifier struct {
	Width      int                 `json:"width"`
	Height     int                 `json:"height"`
	Format     Format              `json:"format,omitempty"`
	Stretch    bool                `json:"stretch"`
	KeepAspect bool                `json:"keep_aspect"`
	Density    geometry.Dimensions `json:"density"`
}

// New creates a modifier that only describes a shape
func New(width, height int, stretch, keepAspect bool) Modifier {
	return Modifier{
		Width:      width,
		Height:     height,
		Stretch:    stretch,
		KeepAspect: keepAspect,
	}
}

// WithFormat returns a copy with the output format set
func (m Modifier) WithFormat(format Format) Modifier {
	m.Format = format
	return m
}

// WithDensity returns a copy with an explicit density
func (m Modifier) WithDensity(density geometry.Dimensions) Modifier {
	m.Density = density
	return m
}

// Dimensions returns the requested width and height
func (m Modifier) Dimensions() geometry.Dimensions {
	return geometry.NewDimensions(m.Width, m.Height)
}

// Normalize resolves the request against the original image size. The
// result has its shape filled in and fitted and a density of at least 1
// on both axes unless one was given explicitly.
func (m Modifier) Normalize(original geometry.Dimensions) Modifier {
	requested, resolved := m.adjustWidthAndHeight(original)

	out := m
	out.Width = resolved.Width
	out.Height = resolved.Height
	if m.Density.IsZero() {
		out.Density = calculateDensity(original, requested)
	}
	return out
}

// adjustWidthAndHeight returns the filled request, before it is fitted into
// the original, and the final shape
func (m Modifier) adjustWidthAndHeight(boundaries geometry.Dimensions) (geometry.Dimensions, geometry.Dimensions) {
	d := m.Dimensions()
	if boundaries.IsDegenerate() {
		return d, d
	}

	d = d.Normalize(boundaries)
	if m.KeepAspect {
		d = d.NormalizeToRatio(boundaries.AspectRatio())
	}
	if m.Stretch {
		return d, d
	}
	return d, d.ScaleToFitIn(boundaries)
}

// calculateDensity returns the smallest per-axis multiplier so that the
// original covers the requested size
func calculateDensity(original, requested geometry.Dimensions) geometry.Dimensions {
	return geometry.NewDimensions(
		axisDensity(original.Width, requested.Width),
		axisDensity(original.Height, requested.Height),
	)
}

func axisDensity(original, requested int) int {
	if original <= 0 || original >= requested {
		return 1
	}
	return (requested + original - 1) / original
}

// IsOnlyDimensions reports whether the modifier carries nothing besides
// its shape, i.e. no format and no explicit density
func (m Modifier) IsOnlyDimensions() bool {
	return m.Equal(New(m.Width, m.Height, m.Stretch, m.KeepAspect))
}

// SameShape compares width, height, stretch and keep-aspect only
func (m Modifier) SameShape(o Modifier) bool {
	return m.Width == o.Width &&
		m.Height == o.Height &&
		m.Stretch == o.Stretch &&
		m.KeepAspect == o.KeepAspect
}

// Equal compares every field, density and format included
func (m Modifier) Equal(o Modifier) bool {
	return m.SameShape(o) && m.Format == o.Format && m.Density.Equal(o.Density)
}

func (m Modifier) String() string {
	s := m.Dimensions().String()
	if !m.Density.IsZero() {
		s += fmt.Sprintf("@%s", m.Density)
	}
	if m.Stretch {
		s += ",stretch"
	}
	if m.KeepAspect {
		s += ",keep-aspect"
	}
	if m.Format != "" {
		s += "." + string(m.Format)
	}
	return s
}
