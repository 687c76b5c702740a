package cropper

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/menta2k/image-geometry/pkg/geometry"
)

// SmartCropper computes aspect-ratio crops around a point of interest
type SmartCropper struct {
	config CropConfig
}

// CropConfig holds configuration for smart cropping
type CropConfig struct {
	// Zoom shrinks the largest possible crop, 1 keeps it (0.01..1)
	Zoom             float64
	QualityThreshold float64
}

// AspectRatio is a named ratio preset
type AspectRatio struct {
	geometry.Ratio
	Name string
}

// Common aspect ratios
var (
	Square     = AspectRatio{geometry.NewRatio(1, 1), "square"}
	Portrait   = AspectRatio{geometry.NewRatio(3, 4), "portrait"}
	Landscape  = AspectRatio{geometry.NewRatio(4, 3), "landscape"}
	Widescreen = AspectRatio{geometry.NewRatio(16, 9), "widescreen"}
	Instagram  = AspectRatio{geometry.NewRatio(4, 5), "instagram"}
	Story      = AspectRatio{geometry.NewRatio(9, 16), "story"}
)

// CommonAspectRatios returns a list of commonly used aspect ratios
func CommonAspectRatios() []AspectRatio {
	return []AspectRatio{Square, Portrait, Landscape, Widescreen, Instagram, Story}
}

// ParseAspectRatio accepts a preset name or "W:H"
func ParseAspectRatio(s string) (AspectRatio, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for _, ar := range CommonAspectRatios() {
		if ar.Name == s {
			return ar, nil
		}
	}

	w, h, ok := strings.Cut(s, ":")
	if !ok {
		return AspectRatio{}, fmt.Errorf("unknown aspect ratio %q", s)
	}
	p, err := strconv.ParseInt(w, 10, 64)
	if err != nil {
		return AspectRatio{}, fmt.Errorf("invalid aspect ratio %q: %w", s, err)
	}
	q, err := strconv.ParseInt(h, 10, 64)
	if err != nil {
		return AspectRatio{}, fmt.Errorf("invalid aspect ratio %q: %w", s, err)
	}
	r := geometry.NewRatio(p, q)
	if r.IsUndefined() || p < 0 || q < 0 {
		return AspectRatio{}, fmt.Errorf("invalid aspect ratio %q", s)
	}
	return AspectRatio{Ratio: r, Name: strings.ReplaceAll(r.String(), ":", "x")}, nil
}

// New creates a new SmartCropper with default configuration
func New() *SmartCropper {
	return &SmartCropper{
		config: CropConfig{
			Zoom:             1.0,
			QualityThreshold: 0.7,
		},
	}
}

// NewWithConfig creates a new SmartCropper with custom configuration
func NewWithConfig(config CropConfig) *SmartCropper {
	return &SmartCropper{config: config}
}

// Point is a position normalized to [0,1] on both axes
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Center is the middle of the image
var Center = Point{0.5, 0.5}

// CropResult contains the result of a cropping operation
type CropResult struct {
	Name    string        `json:"name"`
	Ratio   string        `json:"ratio"`
	Crop    geometry.Crop `json:"crop"`
	Quality float64       `json:"quality"`
}

// CropToAspectRatio computes the crop for one ratio around the focus point
func (c *SmartCropper) CropToAspectRatio(dims geometry.Dimensions, aspectRatio AspectRatio, focus Point) (CropResult, error) {
	crop, err := CropForRatio(dims, aspectRatio.Ratio, focus, c.config.Zoom)
	if err != nil {
		return CropResult{}, fmt.Errorf("failed to crop to %s: %w", aspectRatio.Name, err)
	}

	return CropResult{
		Name:    aspectRatio.Name,
		Ratio:   aspectRatio.Ratio.String(),
		Crop:    crop,
		Quality: calculateCropQuality(dims, crop, focus),
	}, nil
}

// CropToMultipleRatios crops to several aspect ratios
func (c *SmartCropper) CropToMultipleRatios(dims geometry.Dimensions, ratios []AspectRatio, focus Point) ([]CropResult, error) {
	var results []CropResult

	for _, ratio := range ratios {
		result, err := c.CropToAspectRatio(dims, ratio, focus)
		if err != nil {
			return nil, err
		}
		results = append(results, result)
	}

	return results, nil
}

// GetOptimalCrops returns the common-ratio crops whose quality meets the threshold
func (c *SmartCropper) GetOptimalCrops(dims geometry.Dimensions, focus Point) (map[string]CropResult, error) {
	results := make(map[string]CropResult)

	for _, ratio := range CommonAspectRatios() {
		result, err := c.CropToAspectRatio(dims, ratio, focus)
		if err != nil {
			return nil, err
		}
		if result.Quality >= c.config.QualityThreshold {
			results[ratio.Name] = result
		}
	}

	return results, nil
}

// CropForRatio returns the largest crop of the given ratio inside dims,
// shrunk by zoom and placed as close to centred on focus as the image
// allows. The crop records dims as its source.
func CropForRatio(dims geometry.Dimensions, ratio geometry.Ratio, focus Point, zoom float64) (geometry.Crop, error) {
	if dims.IsDegenerate() {
		return geometry.Crop{}, fmt.Errorf("invalid image dimensions %s", dims)
	}
	if ratio.IsUndefined() {
		return geometry.Crop{}, fmt.Errorf("undefined aspect ratio")
	}

	rel, err := ratio.Div(dims.AspectRatio())
	if err != nil {
		return geometry.Crop{}, err
	}

	// A ratio wider than the image spans the full width, anything else the full height
	var size geometry.Dimensions
	if rel.IsLargerOnWidth() {
		size = geometry.NewDimensions(dims.Width, ratio.HeightForWidth(dims.Width))
	} else {
		size = geometry.NewDimensions(ratio.WidthForHeight(dims.Height), dims.Height)
	}

	if zoom <= 0 {
		zoom = 1
	}
	if z := clamp(zoom, 0.01, 1.0); z < 1 {
		size = zoomed(size, ratio, z)
	}
	size = size.ScaleToFitIn(dims)
	size = geometry.NewDimensions(max(size.Width, 1), max(size.Height, 1))

	cx := clamp(focus.X, 0, 1) * float64(dims.Width)
	cy := clamp(focus.Y, 0, 1) * float64(dims.Height)
	x := int(math.Round(clamp(cx-float64(size.Width)/2, 0, float64(dims.Width-size.Width))))
	y := int(math.Round(clamp(cy-float64(size.Height)/2, 0, float64(dims.Height-size.Height))))

	return geometry.Crop{
		X:            x,
		Y:            y,
		Width:        size.Width,
		Height:       size.Height,
		SourceWidth:  dims.Width,
		SourceHeight: dims.Height,
	}, nil
}

func zoomed(size geometry.Dimensions, ratio geometry.Ratio, zoom float64) geometry.Dimensions {
	if ratio.IsLargerOnWidth() {
		w := max(int(math.Round(float64(size.Width)*zoom)), 1)
		return geometry.NewDimensions(w, ratio.HeightForWidth(w))
	}
	h := max(int(math.Round(float64(size.Height)*zoom)), 1)
	return geometry.NewDimensions(ratio.WidthForHeight(h), h)
}

// calculateCropQuality scores how much of the image a crop keeps and how
// well it is centred on the focus point
func calculateCropQuality(dims geometry.Dimensions, crop geometry.Crop, focus Point) float64 {
	// 1. How much of the original image is preserved
	originalArea := float64(dims.Width) * float64(dims.Height)
	cropArea := float64(crop.Width) * float64(crop.Height)
	preservationRatio := cropArea / originalArea

	// 2. Distance between the crop centre and the focus point
	fx := clamp(focus.X, 0, 1) * float64(dims.Width)
	fy := clamp(focus.Y, 0, 1) * float64(dims.Height)
	ccx := float64(crop.X) + float64(crop.Width)/2
	ccy := float64(crop.Y) + float64(crop.Height)/2

	maxDistance := math.Hypot(float64(dims.Width), float64(dims.Height))
	centeringScore := 1.0 - math.Hypot(fx-ccx, fy-ccy)/maxDistance

	// 3. Whether the focus point is inside the crop at all
	var focusScore float64
	if fx >= float64(crop.X) && fx <= float64(crop.X+crop.Width) &&
		fy >= float64(crop.Y) && fy <= float64(crop.Y+crop.Height) {
		focusScore = 1.0
	}

	quality := 0.4*preservationRatio + 0.3*centeringScore + 0.3*focusScore

	return clamp(quality, 0, 1)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
