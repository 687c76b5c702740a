package imagegeometry

import (
	"context"
	"errors"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/menta2k/image-geometry/pkg/analyzer"
	"github.com/menta2k/image-geometry/pkg/cropper"
	"github.com/menta2k/image-geometry/pkg/detection"
	"github.com/menta2k/image-geometry/pkg/geometry"
	"github.com/menta2k/image-geometry/pkg/modifier"
	"github.com/menta2k/image-geometry/pkg/types"
)

// createTestImage creates an image with a bright subject in the center
func createTestImage(width, height int) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, width, height))

	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			if x > width/3 && x < 2*width/3 && y > height/3 && y < 2*height/3 {
				img.Set(x, y, color.RGBA{255, 255, 255, 255})
			} else {
				img.Set(x, y, color.RGBA{64, 64, 64, 255})
			}
		}
	}

	return img
}

type fakeVision struct {
	result *types.AnalysisResult
	err    error
	calls  int
}

func (f *fakeVision) SimpleQuery(ctx context.Context, model, prompt, imgB64 string) (string, error) {
	return "a picture", f.err
}

func (f *fakeVision) AnalyzeImage(ctx context.Context, model, prompt, imgB64 string) (*types.AnalysisResult, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	r := *f.result
	return &r, nil
}

func intPtr(v int) *int {
	return &v
}

func TestNew(t *testing.T) {
	engine := New()
	if engine == nil {
		t.Fatal("New() returned nil")
	}
	if engine.analyzer == nil || engine.processor == nil || engine.cropper == nil || engine.focus == nil {
		t.Error("engine component is nil")
	}
	if engine.detector != nil {
		t.Error("detector should be optional")
	}
}

func TestResolve(t *testing.T) {
	engine := New()

	m, err := engine.Resolve(geometry.NewDimensions(1600, 900), modifier.Params{Width: intPtr(800)})
	require.NoError(t, err)
	assert.Equal(t, geometry.NewDimensions(800, 450), m.Dimensions())
	assert.Equal(t, geometry.NewDimensions(1, 1), m.Density)
}

func TestResolveLimits(t *testing.T) {
	engine := New(WithLimits(geometry.NewDimensions(1000, 1000)))

	_, err := engine.Resolve(geometry.NewDimensions(4000, 3000), modifier.Params{Width: intPtr(2000)})
	assert.ErrorIs(t, err, modifier.ErrSizeLimit)

	density := geometry.NewDimensions(3, 3)
	_, err = engine.Resolve(geometry.NewDimensions(500, 500), modifier.Params{
		Width:   intPtr(500),
		Height:  intPtr(500),
		Density: &density,
	})
	assert.ErrorIs(t, err, modifier.ErrSizeLimit)

	_, err = engine.Resolve(geometry.NewDimensions(500, 500), modifier.Params{Width: intPtr(-1)})
	assert.ErrorIs(t, err, modifier.ErrInvalidParameter)
}

func TestCropToAspectRatio(t *testing.T) {
	engine := New()
	img := createTestImage(400, 300)

	result, err := engine.CropToAspectRatio(context.Background(), img, cropper.Square)
	require.NoError(t, err)

	assert.Equal(t, 300, result.Crop.Width)
	assert.Equal(t, 300, result.Crop.Height)
	assert.GreaterOrEqual(t, result.Crop.X, 0)
	assert.LessOrEqual(t, result.Crop.X, 100)
	assert.Equal(t, geometry.NewDimensions(400, 300), result.Crop.Source())
}

func TestSuggestCrops(t *testing.T) {
	engine := New()

	crops, err := engine.SuggestCrops(context.Background(), createTestImage(400, 300))
	require.NoError(t, err)
	assert.NotEmpty(t, crops)
	for name, c := range crops {
		assert.Equal(t, c.Crop, c.Crop.Normalize(geometry.NewDimensions(400, 300)), name)
	}
}

func TestFocusUsesDetector(t *testing.T) {
	fake := &fakeVision{result: &types.AnalysisResult{
		Primary: types.Primary{
			Label:      "dog",
			Confidence: 0.9,
			Box:        types.Box{X: 0.7, Y: 0.4, W: 0.2, H: 0.2},
			Cx:         0.8,
			Cy:         0.5,
		},
		Description: "a dog on grass",
		Tags:        []string{"dog"},
	}}
	engine := New(WithDetector(detection.NewDetector(fake, "test-model"), SendOptions{MaxSize: 64, Format: modifier.FormatJPEG, Quality: 80}))

	focus, result := engine.Focus(context.Background(), createTestImage(400, 300))
	require.NotNil(t, result)
	assert.Equal(t, "dog", result.Primary.Label)
	assert.InDelta(t, 0.7, focus.X, 1e-9)
	assert.InDelta(t, 0.5, focus.Y, 1e-9)
	assert.Equal(t, 1, fake.calls)
}

func TestFocusFallsBackToSaliency(t *testing.T) {
	fake := &fakeVision{err: errors.New("model offline")}
	engine := New(WithDetector(detection.NewDetector(fake, "test-model"), SendOptions{MaxSize: 64}))

	focus, result := engine.Focus(context.Background(), createTestImage(400, 300))
	assert.Nil(t, result)
	assert.InDelta(t, 0.5, focus.X, 0.1)
	assert.InDelta(t, 0.5, focus.Y, 0.1)
}

func TestDetectSubjectWithoutDetector(t *testing.T) {
	_, err := New().DetectSubject(context.Background(), createTestImage(10, 10))
	assert.Error(t, err)
}

func TestPlanImage(t *testing.T) {
	engine := New()
	img := createTestImage(400, 300)

	plan, err := engine.PlanImage(img, modifier.Params{Width: intPtr(200)}, nil)
	require.NoError(t, err)
	assert.Equal(t, geometry.NewDimensions(200, 150), plan.Output())

	crop := geometry.Crop{Width: 200, Height: 300, SourceWidth: 400, SourceHeight: 300}
	plan, err = engine.PlanImage(img, modifier.Params{Width: intPtr(100)}, &crop)
	require.NoError(t, err)
	assert.Equal(t, geometry.NewDimensions(100, 150), plan.Output())

	rendered, err := engine.RenderImage(img, plan)
	require.NoError(t, err)
	assert.Equal(t, image.Pt(100, 150), rendered.Bounds().Size())
}

func TestPlanImageValidatesImage(t *testing.T) {
	engine := New(WithAnalyzerConfig(analyzer.Config{MinImageSize: 100, SupportedFormats: []string{"png"}}))

	_, err := engine.PlanImage(createTestImage(50, 50), modifier.Params{}, nil)
	assert.Error(t, err)
}

func TestProcessImageFile(t *testing.T) {
	engine := New()
	dir := t.TempDir()
	input := filepath.Join(dir, "photo.png")
	require.NoError(t, engine.Processor().SaveImage(createTestImage(400, 300), input, modifier.FormatPNG, types.EncodeOptions{}))

	outDir := filepath.Join(dir, "out")
	res, err := engine.ProcessImageFile(context.Background(), input, ProcessOptions{
		Params:    modifier.Params{Width: intPtr(200), Format: "webp"},
		Ratio:     &cropper.Square,
		OutputDir: outDir,
		Encode:    types.EncodeOptions{Quality: 80},
	})
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(outDir, "photo_200x200.webp"), res.Output)
	assert.Equal(t, modifier.FormatWebP, res.Format)
	assert.Equal(t, 300, res.Plan.Crop.Width)

	img, format, err := engine.Processor().LoadImage(res.Output)
	require.NoError(t, err)
	assert.Equal(t, modifier.FormatWebP, format)
	assert.Equal(t, image.Pt(200, 200), img.Bounds().Size())
}

func TestProcessImageFileKeepsSourceFormat(t *testing.T) {
	engine := New()
	dir := t.TempDir()
	input := filepath.Join(dir, "photo.png")
	require.NoError(t, engine.Processor().SaveImage(createTestImage(40, 30), input, modifier.FormatPNG, types.EncodeOptions{}))

	res, err := engine.ProcessImageFile(context.Background(), input, ProcessOptions{OutputDir: dir, Suffix: "_copy"})
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(dir, "photo_copy.png"), res.Output)
	_, err = os.Stat(res.Output)
	assert.NoError(t, err)
}

func TestProcessImageFileMissingInput(t *testing.T) {
	_, err := New().ProcessImageFile(context.Background(), filepath.Join(t.TempDir(), "nope.jpg"), ProcessOptions{})
	assert.Error(t, err)
}

func TestGetVersion(t *testing.T) {
	if GetVersion() != Version {
		t.Errorf("GetVersion() returned %s, expected %s", GetVersion(), Version)
	}
}

func BenchmarkResolve(b *testing.B) {
	engine := New()
	params := modifier.Params{Width: intPtr(800), KeepAspect: true}
	original := geometry.NewDimensions(1920, 1080)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = engine.Resolve(original, params)
	}
}

func BenchmarkCropToAspectRatio(b *testing.B) {
	engine := New()
	img := createTestImage(1920, 1080)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = engine.CropToAspectRatio(context.Background(), img, cropper.Square)
	}
}
