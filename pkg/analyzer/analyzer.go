package analyzer

import (
	"fmt"
	"image"
	"strings"

	"github.com/menta2k/image-geometry/pkg/geometry"
)

// ImageAnalyzer inspects decoded images
type ImageAnalyzer struct {
	config Config
}

// Config holds configuration for the image analyzer
type Config struct {
	SupportedFormats []string
	MinImageSize     int
}

// New creates a new ImageAnalyzer with default configuration
func New() *ImageAnalyzer {
	return &ImageAnalyzer{
		config: Config{
			SupportedFormats: []string{"jpg", "jpeg", "png", "gif", "webp"},
			MinImageSize:     1,
		},
	}
}

// NewWithConfig creates a new ImageAnalyzer with custom configuration
func NewWithConfig(config Config) *ImageAnalyzer {
	return &ImageAnalyzer{config: config}
}

// ImageInfo contains basic image metadata
type ImageInfo struct {
	Dimensions  geometry.Dimensions `json:"dimensions"`
	AspectRatio string              `json:"aspect_ratio"`
	Orientation string              `json:"orientation"`
	Area        int                 `json:"area"`
}

// GetImageInfo returns basic information about an image
func (a *ImageAnalyzer) GetImageInfo(img image.Image) ImageInfo {
	bounds := img.Bounds()
	dims := geometry.NewDimensions(bounds.Dx(), bounds.Dy())
	ratio := dims.AspectRatio()

	orientation := "square"
	switch {
	case ratio.IsUndefined():
		orientation = "none"
	case ratio.IsLargerOnWidth():
		orientation = "landscape"
	case ratio.IsLargerOnHeight():
		orientation = "portrait"
	}

	return ImageInfo{
		Dimensions:  dims,
		AspectRatio: ratio.String(),
		Orientation: orientation,
		Area:        dims.Width * dims.Height,
	}
}

// IsFormatSupported reports whether a decoder format name is accepted
func (a *ImageAnalyzer) IsFormatSupported(format string) bool {
	for _, supported := range a.config.SupportedFormats {
		if strings.EqualFold(format, supported) {
			return true
		}
	}
	return false
}

// ValidateImage checks if an image meets minimum requirements
func (a *ImageAnalyzer) ValidateImage(img image.Image) error {
	bounds := img.Bounds()
	if bounds.Dx() < a.config.MinImageSize || bounds.Dy() < a.config.MinImageSize {
		return fmt.Errorf("image too small: %dx%d (minimum: %d)",
			bounds.Dx(), bounds.Dy(), a.config.MinImageSize)
	}
	return nil
}
