package detection

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/menta2k/image-geometry/pkg/client"
	"github.com/menta2k/image-geometry/pkg/cropper"
	"github.com/menta2k/image-geometry/pkg/geometry"
	"github.com/menta2k/image-geometry/pkg/types"
)

// SimpleTestPrompt for testing if the model can see images
const SimpleTestPrompt = `What do you see in this image? Describe it briefly.`

// DefaultPrompt asks the model for the primary subject as a normalized box
const DefaultPrompt = `You are an image subject locator.

Return JSON only:
{
  "primary": {
    "label": "string",
    "confidence": 0.0,
    "box": {"x": 0.0, "y": 0.0, "w": 0.0, "h": 0.0},
    "cx": 0.0,
    "cy": 0.0
  },
  "description": "short neutral sentence (≤ 20 words)",
  "tags": ["tag1", "tag2", "tag3", "tag4", "tag5"]
}

HARD RULES
- All coordinates are normalized to [0,1] (NOT pixels).
- The box should tightly include the visually dominant subject (prefer people/vehicles/animals; else the most central salient object).
- cx, cy is the centre of the subject's most important part (a face, a front).
- Description must be brief and factual. Do not guess real identities.
- Tags: lowercase, concise, no punctuation or duplicates.
- If no subject is found, return:
  {
    "primary":{"label":"none","confidence":0.0,"box":{"x":0.25,"y":0.25,"w":0.50,"h":0.50},"cx":0.5,"cy":0.5},
    "description":"centered generic scene",
    "tags":["generic","center","subject","photo","scene"]
  }
- JSON only. No markdown, no code fences, no comments, no trailing commas.`

// MinConfidence below which a detection is treated as "no subject"
const MinConfidence = 0.2

var fallbackIndicators = []string{"unclear", "empty", "parse", "error", "fallback", "non-json", "generic"}

// Detector locates the primary subject of an image with a vision model
type Detector struct {
	client client.VisionClient
	model  string
}

// NewDetector creates a new detector with a vision client
func NewDetector(client client.VisionClient, model string) *Detector {
	return &Detector{client: client, model: model}
}

// DetectSubject analyzes a base64 encoded image and returns the primary subject
func (d *Detector) DetectSubject(ctx context.Context, imageB64 string) (*types.AnalysisResult, error) {
	result, err := d.client.AnalyzeImage(ctx, d.model, DefaultPrompt, imageB64)
	if err != nil {
		return nil, fmt.Errorf("subject detection failed: %w", err)
	}

	result.Primary.Box = clampBox(result.Primary.Box)
	result.Primary.Cx = clamp(result.Primary.Cx, 0, 1)
	result.Primary.Cy = clamp(result.Primary.Cy, 0, 1)
	result.Tags = normalizeTags(result.Tags)

	if isFallback(result) {
		result.Primary.Label = "none"
		result.Primary.Confidence = 0
	}
	return result, nil
}

// TestVision checks that the model actually receives the image
func (d *Detector) TestVision(ctx context.Context, imageB64 string) (string, error) {
	return d.client.SimpleQuery(ctx, d.model, SimpleTestPrompt, imageB64)
}

// HasSubject reports whether the result describes a usable subject
func HasSubject(result *types.AnalysisResult) bool {
	return result != nil &&
		result.Primary.Label != "none" &&
		result.Primary.Confidence >= MinConfidence &&
		result.Primary.Box.W > 0 && result.Primary.Box.H > 0
}

// Focus returns the point of the subject box nearest to the image centre,
// or the centre when there is no subject
func Focus(result *types.AnalysisResult) cropper.Point {
	if !HasSubject(result) {
		return cropper.Center
	}
	b := result.Primary.Box
	return cropper.Point{
		X: clamp(0.5, b.X, b.X+b.W),
		Y: clamp(0.5, b.Y, b.Y+b.H),
	}
}

// SubjectCrop converts the subject box into a pixel crop of an image of
// the given size. The box is rounded outwards so the subject stays inside.
func SubjectCrop(result *types.AnalysisResult, dims geometry.Dimensions) (geometry.Crop, bool) {
	if !HasSubject(result) || dims.IsDegenerate() {
		return geometry.Crop{}, false
	}

	b := result.Primary.Box
	fw, fh := float64(dims.Width), float64(dims.Height)
	x0 := int(math.Floor(b.X * fw))
	y0 := int(math.Floor(b.Y * fh))
	x1 := int(math.Ceil((b.X + b.W) * fw))
	y1 := int(math.Ceil((b.Y + b.H) * fh))

	crop := geometry.Crop{
		X:            x0,
		Y:            y0,
		Width:        x1 - x0,
		Height:       y1 - y0,
		SourceWidth:  dims.Width,
		SourceHeight: dims.Height,
	}.Normalize(dims)

	return crop, !crop.IsEmpty()
}

func isFallback(result *types.AnalysisResult) bool {
	label := strings.ToLower(result.Primary.Label)
	if label == "none" {
		return true
	}
	description := strings.ToLower(result.Description)
	for _, indicator := range fallbackIndicators {
		if strings.Contains(label, indicator) || strings.Contains(description, indicator) {
			return true
		}
	}
	return false
}

// clampBox keeps the box inside the unit square
func clampBox(b types.Box) types.Box {
	x := clamp(b.X, 0, 1)
	y := clamp(b.Y, 0, 1)
	return types.Box{
		X: x,
		Y: y,
		W: clamp(b.W, 0, 1-x),
		H: clamp(b.H, 0, 1-y),
	}
}

// normalizeTags ensures tags are cleaned and limited to 5 entries
func normalizeTags(tags []string) []string {
	seen := map[string]struct{}{}
	out := make([]string, 0, 5)
	for _, t := range tags {
		t = strings.ToLower(strings.TrimSpace(t))
		if t == "" {
			continue
		}
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
		if len(out) == 5 {
			break
		}
	}
	return out
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
