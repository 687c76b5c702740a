// Package imagegeometry resolves image requests into exact output geometry
// and renders them.
//
// The core lives in pkg/geometry (exact aspect ratios, dimensions and crops)
// and pkg/modifier (a request of width, height, stretch and keep-aspect
// flags, density and format, resolved against an original size). This
// package composes the core with decoding, rendering, focus detection and
// an optional vision model into an Engine.
//
// Basic usage:
//
//	engine := imagegeometry.New(imagegeometry.WithLimits(geometry.NewDimensions(4096, 4096)))
//
//	w, h := 800, 0
//	m, err := engine.Resolve(geometry.NewDimensions(1600, 900), modifier.Params{Width: &w, Height: &h})
//	if err != nil {
//		log.Fatal(err)
//	}
//	fmt.Println(m) // 800x450@1x1
//
//	res, err := engine.ProcessImageFile(ctx, "photo.jpg", imagegeometry.ProcessOptions{
//		Params:    modifier.Params{Width: &w, Format: "webp"},
//		Ratio:     &cropper.Square,
//		OutputDir: "out",
//	})
//
// The package consists of these components:
//
//  1. Geometry (pkg/geometry): rational aspect ratios, dimensions, crops
//  2. Modifier (pkg/modifier): request normalization, query parsing, limits
//  3. Cropper (pkg/cropper): aspect-ratio crops around a focus point
//  4. Vision (pkg/vision, pkg/detection, pkg/ollama): focus and subject detection
//  5. Processing (pkg/processing): decoding, rendering and encoding
package imagegeometry

import (
	"context"
	"fmt"
	"image"
	"io"
	"log/slog"

	"github.com/menta2k/image-geometry/internal/utils"
	"github.com/menta2k/image-geometry/pkg/analyzer"
	"github.com/menta2k/image-geometry/pkg/cropper"
	"github.com/menta2k/image-geometry/pkg/detection"
	"github.com/menta2k/image-geometry/pkg/geometry"
	"github.com/menta2k/image-geometry/pkg/modifier"
	"github.com/menta2k/image-geometry/pkg/processing"
	"github.com/menta2k/image-geometry/pkg/types"
	"github.com/menta2k/image-geometry/pkg/vision"
)

// Version of the image geometry library
const Version = "1.0.0"

// Engine resolves, plans and renders image requests
type Engine struct {
	analyzer  *analyzer.ImageAnalyzer
	processor *processing.Processor
	cropper   *cropper.SmartCropper
	focus     *vision.FocusDetector
	validator *modifier.Validator
	detector  *detection.Detector
	send      SendOptions
	logger    *slog.Logger
}

// SendOptions controls the payload sent to the vision model
type SendOptions struct {
	MaxSize int
	Format  modifier.Format
	Quality int
}

// Option configures an Engine
type Option func(*Engine)

// WithLogger sets the logger for the engine and its processor
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) { e.logger = logger }
}

// WithLimits rejects requests larger than limits (0 disables an axis)
func WithLimits(limits geometry.Dimensions) Option {
	return func(e *Engine) { e.validator = modifier.NewValidator(limits) }
}

// WithAnalyzerConfig replaces the image validation config
func WithAnalyzerConfig(cfg analyzer.Config) Option {
	return func(e *Engine) { e.analyzer = analyzer.NewWithConfig(cfg) }
}

// WithCropConfig replaces the aspect crop config
func WithCropConfig(cfg cropper.CropConfig) Option {
	return func(e *Engine) { e.cropper = cropper.NewWithConfig(cfg) }
}

// WithFocusConfig replaces the saliency focus config
func WithFocusConfig(cfg vision.DetectionConfig) Option {
	return func(e *Engine) { e.focus = vision.NewWithConfig(cfg) }
}

// WithDetector uses a vision model to find the focus point. The saliency
// focus remains the fallback when the model fails or sees no subject.
func WithDetector(d *detection.Detector, send SendOptions) Option {
	return func(e *Engine) {
		e.detector = d
		e.send = send
	}
}

// New creates an Engine with default components
func New(opts ...Option) *Engine {
	e := &Engine{
		analyzer:  analyzer.New(),
		cropper:   cropper.New(),
		focus:     vision.New(),
		validator: modifier.NewValidator(geometry.Empty),
		logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
		send:      SendOptions{MaxSize: 768, Format: modifier.FormatJPEG, Quality: 85},
	}
	for _, opt := range opts {
		opt(e)
	}
	e.processor = processing.NewProcessor(processing.WithLogger(e.logger))
	return e
}

// Processor returns the processor used for decoding and rendering
func (e *Engine) Processor() *processing.Processor {
	return e.processor
}

// Resolve validates params and normalizes them against the original size
func (e *Engine) Resolve(original geometry.Dimensions, params modifier.Params) (modifier.Modifier, error) {
	m, err := params.Modifier()
	if err != nil {
		return modifier.Modifier{}, err
	}
	if err := e.validator.CheckRequestSize(m); err != nil {
		return modifier.Modifier{}, err
	}

	resolved := m.Normalize(original)
	if err := e.validator.CheckResolved(resolved); err != nil {
		return modifier.Modifier{}, err
	}
	return resolved, nil
}

// GetImageInfo returns basic information about an image
func (e *Engine) GetImageInfo(img image.Image) analyzer.ImageInfo {
	return e.analyzer.GetImageInfo(img)
}

// Focus returns the point of interest of img. With a detector configured
// the model is asked first; its result is returned when it found a subject.
func (e *Engine) Focus(ctx context.Context, img image.Image) (cropper.Point, *types.AnalysisResult) {
	if e.detector == nil {
		return e.focus.Focus(img), nil
	}

	result, err := e.DetectSubject(ctx, img)
	if err != nil {
		e.logger.Warn("vision model failed, using saliency focus", "error", err)
		return e.focus.Focus(img), nil
	}
	focus := e.FocusFrom(img, result)
	if !detection.HasSubject(result) {
		return focus, nil
	}
	return focus, result
}

// FocusFrom returns the focus of a detection result, or the saliency
// focus of img when the result has no subject
func (e *Engine) FocusFrom(img image.Image, result *types.AnalysisResult) cropper.Point {
	if detection.HasSubject(result) {
		return detection.Focus(result)
	}
	if result != nil {
		e.logger.Debug("no subject detected, using saliency focus", "label", result.Primary.Label)
	}
	return e.focus.Focus(img)
}

// DetectSubject asks the configured vision model for the primary subject
func (e *Engine) DetectSubject(ctx context.Context, img image.Image) (*types.AnalysisResult, error) {
	if e.detector == nil {
		return nil, fmt.Errorf("no vision model configured")
	}

	payload, err := e.processor.PrepareImageForModel(img, e.send.Format, e.send.MaxSize, e.send.Quality)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare image: %w", err)
	}
	return e.detector.DetectSubject(ctx, payload)
}

// CropToAspectRatio computes the crop of one ratio around the focus of img
func (e *Engine) CropToAspectRatio(ctx context.Context, img image.Image, ratio cropper.AspectRatio) (cropper.CropResult, error) {
	focus, _ := e.Focus(ctx, img)
	return e.cropper.CropToAspectRatio(dimensionsOf(img), ratio, focus)
}

// SuggestCrops returns the common-ratio crops of img that meet the quality threshold
func (e *Engine) SuggestCrops(ctx context.Context, img image.Image) (map[string]cropper.CropResult, error) {
	focus, _ := e.Focus(ctx, img)
	return e.cropper.GetOptimalCrops(dimensionsOf(img), focus)
}

// PlanImage resolves params against img, or against crop when given
func (e *Engine) PlanImage(img image.Image, params modifier.Params, crop *geometry.Crop) (processing.Plan, error) {
	if err := e.analyzer.ValidateImage(img); err != nil {
		return processing.Plan{}, fmt.Errorf("image validation failed: %w", err)
	}
	return e.PlanDimensions(dimensionsOf(img), params, crop)
}

// PlanDimensions resolves params against an image of the given size
// without decoding it
func (e *Engine) PlanDimensions(source geometry.Dimensions, params modifier.Params, crop *geometry.Crop) (processing.Plan, error) {
	m, err := params.Modifier()
	if err != nil {
		return processing.Plan{}, err
	}
	if err := e.validator.CheckRequestSize(m); err != nil {
		return processing.Plan{}, err
	}

	plan := e.processor.Plan(source, m, crop)
	if err := e.validator.CheckResolved(plan.Modifier); err != nil {
		return processing.Plan{}, err
	}
	return plan, nil
}

// RenderImage renders a plan
func (e *Engine) RenderImage(img image.Image, plan processing.Plan) (image.Image, error) {
	return e.processor.Render(img, plan)
}

// ProcessOptions describes one ProcessImageFile run. Crop wins over Ratio.
type ProcessOptions struct {
	Params    modifier.Params
	Crop      *geometry.Crop
	Ratio     *cropper.AspectRatio
	OutputDir string
	Prefix    string
	// Suffix defaults to "_<width>x<height>" of the output
	Suffix string
	Encode types.EncodeOptions
}

// ProcessResult describes a written image
type ProcessResult struct {
	Input  string          `json:"input"`
	Output string          `json:"output"`
	Format modifier.Format `json:"format"`
	Plan   processing.Plan `json:"plan"`
}

// ProcessImageFile loads an image from a path or URL, crops and resizes
// it and writes the result into opts.OutputDir
func (e *Engine) ProcessImageFile(ctx context.Context, input string, opts ProcessOptions) (ProcessResult, error) {
	img, sourceFormat, err := e.processor.LoadImageSmart(ctx, input)
	if err != nil {
		return ProcessResult{}, fmt.Errorf("failed to load image: %w", err)
	}
	if !e.analyzer.IsFormatSupported(string(sourceFormat)) {
		return ProcessResult{}, fmt.Errorf("unsupported input format %q", sourceFormat)
	}

	crop := opts.Crop
	if crop == nil && opts.Ratio != nil {
		result, err := e.CropToAspectRatio(ctx, img, *opts.Ratio)
		if err != nil {
			return ProcessResult{}, fmt.Errorf("cropping failed: %w", err)
		}
		crop = &result.Crop
	}

	plan, err := e.PlanImage(img, opts.Params, crop)
	if err != nil {
		return ProcessResult{}, err
	}

	rendered, err := e.RenderImage(img, plan)
	if err != nil {
		return ProcessResult{}, fmt.Errorf("render failed: %w", err)
	}

	format := plan.Modifier.Format.Or(sourceFormat)
	suffix := opts.Suffix
	if suffix == "" {
		suffix = "_" + plan.Output().String()
	}

	if opts.OutputDir != "" {
		if err := utils.EnsureDir(opts.OutputDir); err != nil {
			return ProcessResult{}, fmt.Errorf("failed to create output directory: %w", err)
		}
	}
	output := utils.GenerateOutputFilename(input, opts.OutputDir, opts.Prefix, suffix, format.Extension())

	if err := e.processor.SaveImage(rendered, output, format, opts.Encode); err != nil {
		return ProcessResult{}, fmt.Errorf("failed to save image: %w", err)
	}

	e.logger.Info("image written",
		"input", input,
		"output", output,
		"crop", plan.Crop.String(),
		"size", plan.Output().String(),
	)

	return ProcessResult{
		Input:  input,
		Output: output,
		Format: format,
		Plan:   plan,
	}, nil
}

// GetVersion returns the library version
func GetVersion() string {
	return Version
}

func dimensionsOf(img image.Image) geometry.Dimensions {
	b := img.Bounds()
	return geometry.NewDimensions(b.Dx(), b.Dy())
}
