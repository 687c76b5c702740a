package vision

import (
	"image"
	"math"

	"github.com/disintegration/imaging"

	"github.com/menta2k/image-geometry/pkg/cropper"
	"github.com/menta2k/image-geometry/pkg/geometry"
)

// FocusDetector estimates the point of interest of an image from a
// saliency map, without a vision model
type FocusDetector struct {
	config DetectionConfig
}

// DetectionConfig holds configuration for focus detection
type DetectionConfig struct {
	// SampleSize bounds the thumbnail the saliency map is computed on
	SampleSize     int
	EdgeThreshold  float64
	ContrastWeight float64
	ColorWeight    float64
}

// New creates a new FocusDetector with default configuration
func New() *FocusDetector {
	return &FocusDetector{
		config: DetectionConfig{
			SampleSize:     96,
			EdgeThreshold:  0.01,
			ContrastWeight: 0.8,
			ColorWeight:    0.2,
		},
	}
}

// NewWithConfig creates a new FocusDetector with custom configuration
func NewWithConfig(config DetectionConfig) *FocusDetector {
	return &FocusDetector{config: config}
}

// Focus returns the saliency-weighted centre of the image. Flat images
// yield the image centre.
func (d *FocusDetector) Focus(img image.Image) cropper.Point {
	b := img.Bounds()
	dims := geometry.NewDimensions(b.Dx(), b.Dy())
	if dims.IsDegenerate() {
		return cropper.Center
	}

	sample := geometry.NewDimensions(d.config.SampleSize, d.config.SampleSize)
	if !sample.IsDegenerate() && !dims.FitsIn(sample) {
		size := dims.ScaleToFitIn(sample)
		img = imaging.Resize(img, max(size.Width, 1), max(size.Height, 1), imaging.Box)
	}

	saliencyMap := d.calculateSaliencyMap(img)

	var sum, sx, sy float64
	for y, row := range saliencyMap {
		for x, s := range row {
			if s <= d.config.EdgeThreshold {
				continue
			}
			sum += s
			sx += s * (float64(x) + 0.5)
			sy += s * (float64(y) + 0.5)
		}
	}
	if sum == 0 {
		return cropper.Center
	}

	h := len(saliencyMap)
	w := len(saliencyMap[0])
	return cropper.Point{X: sx / sum / float64(w), Y: sy / sum / float64(h)}
}

func (d *FocusDetector) calculateSaliencyMap(img image.Image) [][]float64 {
	bounds := img.Bounds()
	width, height := bounds.Dx(), bounds.Dy()

	saliencyMap := make([][]float64, height)
	for i := range saliencyMap {
		saliencyMap[i] = make([]float64, width)
	}

	neighbors := [][2]int{{-1, -1}, {-1, 0}, {-1, 1}, {0, -1}, {0, 1}, {1, -1}, {1, 0}, {1, 1}}

	for y := 1; y < height-1; y++ {
		for x := 1; x < width-1; x++ {
			r1, g1, b1, _ := img.At(x+bounds.Min.X, y+bounds.Min.Y).RGBA()

			// Edge strength against the 8 neighbours
			var edgeStrength float64
			for _, offset := range neighbors {
				r2, g2, b2, _ := img.At(x+offset[0]+bounds.Min.X, y+offset[1]+bounds.Min.Y).RGBA()
				dr := float64(r1) - float64(r2)
				dg := float64(g1) - float64(g2)
				db := float64(b1) - float64(b2)
				edgeStrength += math.Sqrt(dr*dr + dg*dg + db*db)
			}
			edgeStrength /= 8.0 * 65535.0

			brightness := (float64(r1) + float64(g1) + float64(b1)) / (3.0 * 65535.0)

			// brightness only counts where there is structure
			if edgeStrength > 0 {
				saliencyMap[y][x] = d.config.ContrastWeight*edgeStrength + d.config.ColorWeight*brightness*edgeStrength
			}
		}
	}

	return saliencyMap
}
