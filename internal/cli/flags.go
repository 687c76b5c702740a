package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"net/url"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/menta2k/image-geometry/pkg/cropper"
	"github.com/menta2k/image-geometry/pkg/geometry"
	"github.com/menta2k/image-geometry/pkg/modifier"
)

// modifierFlags collects a request from flags. Flags that were set win
// over the same key in --query.
type modifierFlags struct {
	query      string
	width      int
	height     int
	size       string
	density    string
	format     string
	stretch    bool
	keepAspect bool
}

func addModifierFlags(cmd *cobra.Command) *modifierFlags {
	f := &modifierFlags{}
	cmd.Flags().StringVar(&f.query, "query", "", `request as a query string, e.g. "w=800&keepAspect"`)
	cmd.Flags().IntVarP(&f.width, "width", "W", 0, "requested width, 0 computes it")
	cmd.Flags().IntVarP(&f.height, "height", "H", 0, "requested height, 0 computes it")
	cmd.Flags().StringVar(&f.size, "size", "", "requested size as WIDTHxHEIGHT")
	cmd.Flags().StringVar(&f.density, "density", "", "pixel density, N or NxM")
	cmd.Flags().StringVar(&f.format, "format", "", "output format: jpg, png, gif or webp")
	cmd.Flags().BoolVar(&f.stretch, "stretch", false, "allow the output to exceed the original")
	cmd.Flags().BoolVar(&f.keepAspect, "keep-aspect", false, "reshape the request onto the original aspect ratio")
	return f
}

func (f *modifierFlags) params(cmd *cobra.Command) (modifier.Params, error) {
	q := url.Values{}
	if f.query != "" {
		parsed, err := url.ParseQuery(strings.TrimPrefix(f.query, "?"))
		if err != nil {
			return modifier.Params{}, fmt.Errorf("invalid --query: %w", err)
		}
		q = parsed
	}

	changed := cmd.Flags().Changed
	if changed("width") {
		q.Set("w", strconv.Itoa(f.width))
	}
	if changed("height") {
		q.Set("h", strconv.Itoa(f.height))
	}
	if changed("size") {
		q.Set("size", f.size)
	}
	if changed("density") {
		q.Set("density", f.density)
	}
	if changed("format") {
		q.Set("format", f.format)
	}
	if changed("stretch") {
		q.Set("stretch", strconv.FormatBool(f.stretch))
	}
	if changed("keep-aspect") {
		q.Set("keepAspect", strconv.FormatBool(f.keepAspect))
	}

	return modifier.ParseQuery(q)
}

// parseCropFlag returns nil for an empty value
func parseCropFlag(s string) (*geometry.Crop, error) {
	if s == "" {
		return nil, nil
	}
	c, err := geometry.ParseCrop(s)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// parseRatioFlag returns nil for an empty value
func parseRatioFlag(s string) (*cropper.AspectRatio, error) {
	if s == "" {
		return nil, nil
	}
	ar, err := cropper.ParseAspectRatio(s)
	if err != nil {
		return nil, err
	}
	return &ar, nil
}

// parseFocus reads a normalized "x,y" point
func parseFocus(s string) (cropper.Point, error) {
	xs, ys, ok := strings.Cut(s, ",")
	if !ok {
		return cropper.Point{}, fmt.Errorf("invalid focus %q: expected x,y", s)
	}
	x, err := strconv.ParseFloat(strings.TrimSpace(xs), 64)
	if err != nil {
		return cropper.Point{}, fmt.Errorf("invalid focus %q: %w", s, err)
	}
	y, err := strconv.ParseFloat(strings.TrimSpace(ys), 64)
	if err != nil {
		return cropper.Point{}, fmt.Errorf("invalid focus %q: %w", s, err)
	}
	if x < 0 || x > 1 || y < 0 || y > 1 {
		return cropper.Point{}, fmt.Errorf("invalid focus %q: coordinates must be in [0,1]", s)
	}
	return cropper.Point{X: x, Y: y}, nil
}

// parseSizes reads a comma separated list of fully specified sizes
func parseSizes(list []string) ([]geometry.Dimensions, error) {
	sizes := make([]geometry.Dimensions, 0, len(list))
	for _, s := range list {
		d, err := geometry.ParseDimensions(s)
		if err != nil {
			return nil, err
		}
		if d.IsDegenerate() {
			return nil, fmt.Errorf("size %q needs both width and height", s)
		}
		sizes = append(sizes, d)
	}
	return sizes, nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
