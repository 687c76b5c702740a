package geometry

import (
	"fmt"
	"image"
	"strconv"
	"strings"
)

// Crop is a rectangle in pixels. SourceWidth/SourceHeight record the base
// size the rectangle was drawn against; 0 means unknown.
type Crop struct {
	X            int `json:"x"`
	Y            int `json:"y"`
	Width        int `json:"width"`
	Height       int `json:"height"`
	SourceWidth  int `json:"source_width,omitempty"`
	SourceHeight int `json:"source_height,omitempty"`
}

// ParseCrop parses "x,y,w,h" with an optional "@WxH" source size
func ParseCrop(s string) (Crop, error) {
	rect, source, hasSource := strings.Cut(strings.TrimSpace(s), "@")

	fields := strings.Split(rect, ",")
	if len(fields) != 4 {
		return Crop{}, fmt.Errorf("invalid crop %q: expected x,y,w,h[@WxH]", s)
	}
	var vals [4]int
	for i, f := range fields {
		v, err := strconv.Atoi(strings.TrimSpace(f))
		if err != nil {
			return Crop{}, fmt.Errorf("invalid crop %q: %w", s, err)
		}
		vals[i] = v
	}

	c := Crop{X: vals[0], Y: vals[1], Width: vals[2], Height: vals[3]}
	if hasSource {
		d, err := ParseDimensions(source)
		if err != nil {
			return Crop{}, fmt.Errorf("invalid crop source: %w", err)
		}
		c.SourceWidth, c.SourceHeight = d.Width, d.Height
	}
	return c, nil
}

// IsEmpty reports whether the rectangle has no area
func (c Crop) IsEmpty() bool {
	return c.Width <= 0 || c.Height <= 0
}

// Source returns the recorded base size
func (c Crop) Source() Dimensions {
	return Dimensions{Width: c.SourceWidth, Height: c.SourceHeight}
}

// Size returns the rectangle's width and height
func (c Crop) Size() Dimensions {
	return Dimensions{Width: c.Width, Height: c.Height}
}

// Rect converts the crop to an image.Rectangle
func (c Crop) Rect() image.Rectangle {
	return image.Rect(c.X, c.Y, c.X+c.Width, c.Y+c.Height)
}

// Equal reports value equality, source size included
func (c Crop) Equal(o Crop) bool {
	return c == o
}

func (c Crop) String() string {
	return fmt.Sprintf("%dx%d+%d+%d@%s", c.Width, c.Height, c.X, c.Y, c.Source())
}

// Normalize remaps the crop onto dimensions. Corners are snapped into the
// source size (recorded, completed from the dimensions' aspect ratio, or
// the dimensions themselves when none is recorded) and rescaled per axis
// when the source differs from the dimensions. The result carries
// dimensions as its source, so normalizing it again is a no-op.
func (c Crop) Normalize(dimensions Dimensions) Crop {
	source := c.Source()
	if source.IsZero() {
		source = dimensions
	} else {
		source = source.Normalize(dimensions)
	}

	x1 := snap(c.X, 0, source.Width)
	y1 := snap(c.Y, 0, source.Height)
	x2 := snap(c.X+c.Width, x1, source.Width)
	y2 := snap(c.Y+c.Height, y1, source.Height)

	if !source.Equal(dimensions) {
		x1 = rescale(x1, dimensions.Width, source.Width)
		x2 = rescale(x2, dimensions.Width, source.Width)
		y1 = rescale(y1, dimensions.Height, source.Height)
		y2 = rescale(y2, dimensions.Height, source.Height)
	}

	return Crop{
		X:            x1,
		Y:            y1,
		Width:        x2 - x1,
		Height:       y2 - y1,
		SourceWidth:  dimensions.Width,
		SourceHeight: dimensions.Height,
	}
}

// snap clamps v into [lo, hi]; lo wins when the range is empty
func snap(v, lo, hi int) int {
	if v > hi {
		v = hi
	}
	if v < lo {
		v = lo
	}
	return v
}

// rescale maps v from a from-sized axis onto a to-sized one, truncating
func rescale(v, to, from int) int {
	if from <= 0 {
		return 0
	}
	return int(int64(v) * int64(to) / int64(from))
}
