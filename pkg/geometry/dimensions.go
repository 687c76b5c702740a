package geometry

import (
	"fmt"
	"strconv"
	"strings"
)

// Dimensions is a width/height pair in pixels. Zero on an axis means
// "unspecified" when the value describes a request.
type Dimensions struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Empty is the fully unspecified size
var Empty = Dimensions{}

// NewDimensions creates a new width/height pair
func NewDimensions(width, height int) Dimensions {
	return Dimensions{Width: width, Height: height}
}

// ParseDimensions parses "800x450" (an "x" or "," separator is accepted,
// a missing side reads as 0, e.g. "800x")
func ParseDimensions(s string) (Dimensions, error) {
	s = strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), ",", "x")
	sides := strings.Split(s, "x")
	if len(sides) != 2 || (sides[0] == "" && sides[1] == "") {
		return Empty, fmt.Errorf("invalid dimensions %q: expected WIDTHxHEIGHT", s)
	}

	var vals [2]int
	for i, side := range sides {
		if side == "" {
			continue
		}
		v, err := strconv.Atoi(side)
		if err != nil {
			return Empty, fmt.Errorf("invalid dimensions %q: %w", s, err)
		}
		if v < 0 {
			return Empty, fmt.Errorf("invalid dimensions %q: negative size", s)
		}
		vals[i] = v
	}
	return Dimensions{Width: vals[0], Height: vals[1]}, nil
}

// IsZero reports whether both sides are unspecified
func (d Dimensions) IsZero() bool {
	return d.Width == 0 && d.Height == 0
}

// IsDegenerate reports whether either side is zero or negative
func (d Dimensions) IsDegenerate() bool {
	return d.Width <= 0 || d.Height <= 0
}

// AspectRatio returns the reduced width:height ratio
func (d Dimensions) AspectRatio() Ratio {
	return NewRatio(int64(d.Width), int64(d.Height))
}

// Equal reports value equality
func (d Dimensions) Equal(o Dimensions) bool {
	return d.Width == o.Width && d.Height == o.Height
}

func (d Dimensions) String() string {
	return fmt.Sprintf("%dx%d", d.Width, d.Height)
}

// FitsIn reports whether both sides are within the boundaries
func (d Dimensions) FitsIn(boundaries Dimensions) bool {
	return d.Width <= boundaries.Width && d.Height <= boundaries.Height
}

// Normalize fills unspecified sides from the boundaries. Both unspecified
// adopts the boundaries; one unspecified is derived from the boundaries'
// aspect ratio. Explicit values are never changed.
func (d Dimensions) Normalize(boundaries Dimensions) Dimensions {
	switch {
	case d.Width == 0 && d.Height == 0:
		return boundaries
	case d.Width == 0:
		return Dimensions{
			Width:  boundaries.AspectRatio().WidthForHeight(d.Height),
			Height: d.Height,
		}
	case d.Height == 0:
		return Dimensions{
			Width:  d.Width,
			Height: boundaries.AspectRatio().HeightForWidth(d.Width),
		}
	}
	return d
}

// NormalizeToRatio reshapes d onto ratio. A wider-than-tall ratio keeps the
// width and recomputes the height, anything else keeps the height.
func (d Dimensions) NormalizeToRatio(ratio Ratio) Dimensions {
	if ratio.IsUndefined() || d.AspectRatio().Equal(ratio) {
		return d
	}
	if ratio.IsLargerOnWidth() {
		return Dimensions{Width: d.Width, Height: ratio.HeightForWidth(d.Width)}
	}
	return Dimensions{Width: ratio.WidthForHeight(d.Height), Height: d.Height}
}

// ScaleToFitIn normalizes d against the boundaries and downscales it,
// keeping its aspect ratio, until it fits. The result always fits.
func (d Dimensions) ScaleToFitIn(boundaries Dimensions) Dimensions {
	n := d.Normalize(boundaries)
	if n.FitsIn(boundaries) {
		return n
	}

	ratio := n.AspectRatio()
	var scaled Dimensions
	if ratio.IsLargerOnWidth() {
		scaled = fromWidth(ratio, boundaries.Width)
	} else {
		scaled = fromHeight(ratio, boundaries.Height)
	}
	if scaled.FitsIn(boundaries) {
		return scaled
	}

	// Rounding pushed the derived side over its boundary, scale from that side instead
	if scaled.Height > boundaries.Height {
		scaled = fromHeight(ratio, boundaries.Height)
	} else {
		scaled = fromWidth(ratio, boundaries.Width)
	}
	return scaled
}

func fromWidth(ratio Ratio, width int) Dimensions {
	return Dimensions{Width: width, Height: ratio.HeightForWidth(width)}
}

func fromHeight(ratio Ratio, height int) Dimensions {
	return Dimensions{Width: ratio.WidthForHeight(height), Height: height}
}
