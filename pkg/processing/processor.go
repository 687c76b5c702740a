package processing

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/chai2010/webp"
	"github.com/disintegration/imaging"
	_ "golang.org/x/image/webp"

	"github.com/menta2k/image-geometry/pkg/geometry"
	"github.com/menta2k/image-geometry/pkg/modifier"
	"github.com/menta2k/image-geometry/pkg/types"
)

// ErrEmptyOutput is returned when a plan resolves to zero pixels
var ErrEmptyOutput = errors.New("resolved output has no pixels")

// Processor decodes, renders and encodes images
type Processor struct {
	httpClient *http.Client
	logger     *slog.Logger
}

// Option configures a Processor
type Option func(*Processor)

// WithLogger sets the logger used for plan and render decisions
func WithLogger(logger *slog.Logger) Option {
	return func(p *Processor) {
		p.logger = logger
	}
}

// WithHTTPClient sets the client used to download images
func WithHTTPClient(client *http.Client) Option {
	return func(p *Processor) {
		p.httpClient = client
	}
}

// NewProcessor creates a new image processor
func NewProcessor(opts ...Option) *Processor {
	p := &Processor{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// LoadImageFromURL downloads and decodes an image
func (p *Processor) LoadImageFromURL(ctx context.Context, imageURL string) (image.Image, modifier.Format, error) {
	parsedURL, err := url.Parse(imageURL)
	if err != nil {
		return nil, "", fmt.Errorf("invalid URL: %w", err)
	}
	if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
		return nil, "", fmt.Errorf("unsupported URL scheme: %s (only http and https are supported)", parsedURL.Scheme)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, imageURL, nil)
	if err != nil {
		return nil, "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", "image-geometry/1.0")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("failed to download image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("failed to download image: HTTP %s", resp.Status)
	}
	if contentType := resp.Header.Get("Content-Type"); !strings.HasPrefix(contentType, "image/") {
		return nil, "", fmt.Errorf("URL does not point to an image (Content-Type: %s)", contentType)
	}

	return p.DecodeImage(resp.Body)
}

// LoadImage decodes an image file
func (p *Processor) LoadImage(path string) (image.Image, modifier.Format, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, "", err
	}
	defer f.Close()

	img, format, err := p.DecodeImage(f)
	if err != nil {
		return nil, "", fmt.Errorf("%s: %w", path, err)
	}
	return img, format, nil
}

// LoadImageSmart loads an image from either a file path or URL
func (p *Processor) LoadImageSmart(ctx context.Context, source string) (image.Image, modifier.Format, error) {
	if strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://") {
		return p.LoadImageFromURL(ctx, source)
	}
	return p.LoadImage(source)
}

// DecodeImage decodes jpeg, png, gif and webp data, applying EXIF orientation
func (p *Processor) DecodeImage(r io.Reader) (image.Image, modifier.Format, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, "", fmt.Errorf("failed to read image data: %w", err)
	}

	_, name, err := image.DecodeConfig(bytes.NewReader(data))
	if err == nil {
		img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
		if err == nil {
			format, _ := modifier.ParseFormat(name)
			return img, format, nil
		}
	}

	// extended webp variants the x/image decoder rejects
	if img, err := webp.Decode(bytes.NewReader(data)); err == nil {
		return img, modifier.FormatWebP, nil
	}

	return nil, "", fmt.Errorf("image: unknown or unsupported format")
}

// Plan is a fully resolved render: the region of the source to use and
// the modifier resolved against that region
type Plan struct {
	Source   geometry.Dimensions `json:"source"`
	Crop     geometry.Crop       `json:"crop"`
	Modifier modifier.Modifier   `json:"modifier"`
}

// Output returns the pixel size of the rendered image
func (p Plan) Output() geometry.Dimensions {
	return p.Modifier.Dimensions()
}

// Plan resolves a modifier and an optional crop against an image size.
// An empty crop selects the whole image.
func (p *Processor) Plan(source geometry.Dimensions, m modifier.Modifier, crop *geometry.Crop) Plan {
	region := geometry.Crop{
		Width:        source.Width,
		Height:       source.Height,
		SourceWidth:  source.Width,
		SourceHeight: source.Height,
	}
	if crop != nil && !crop.IsEmpty() {
		if c := crop.Normalize(source); !c.IsEmpty() {
			region = c
		}
	}

	plan := Plan{
		Source:   source,
		Crop:     region,
		Modifier: m.Normalize(region.Size()),
	}

	p.logger.Debug("planned render",
		"source", source.String(),
		"crop", region.String(),
		"request", m.String(),
		"resolved", plan.Modifier.String(),
	)
	return plan
}

// Render crops and resamples img according to the plan
func (p *Processor) Render(img image.Image, plan Plan) (image.Image, error) {
	out := plan.Output()
	if out.IsDegenerate() {
		return nil, fmt.Errorf("%w: %s", ErrEmptyOutput, out)
	}

	bounds := img.Bounds()
	rect := plan.Crop.Rect().Add(bounds.Min).Intersect(bounds)
	if rect.Empty() {
		return nil, fmt.Errorf("empty crop rectangle %s", plan.Crop)
	}

	var region image.Image = img
	if rect != bounds {
		region = imaging.Crop(img, rect)
	}
	if rect.Dx() == out.Width && rect.Dy() == out.Height {
		p.logger.Debug("render without resampling", "size", out.String())
		return region, nil
	}

	p.logger.Debug("resampling", "from", fmt.Sprintf("%dx%d", rect.Dx(), rect.Dy()), "to", out.String())
	return imaging.Resize(region, out.Width, out.Height, imaging.Lanczos), nil
}

// Encode writes img in the given format
func (p *Processor) Encode(w io.Writer, img image.Image, format modifier.Format, opts types.EncodeOptions) error {
	quality := opts.Quality
	if quality <= 0 || quality > 100 {
		quality = 90
	}

	switch format {
	case modifier.FormatJPEG:
		return imaging.Encode(w, img, imaging.JPEG, imaging.JPEGQuality(quality))
	case modifier.FormatPNG:
		return imaging.Encode(w, img, imaging.PNG, imaging.PNGCompressionLevel(png.BestCompression))
	case modifier.FormatGIF:
		return imaging.Encode(w, img, imaging.GIF)
	case modifier.FormatWebP:
		return webp.Encode(w, img, &webp.Options{Lossless: opts.Lossless, Quality: float32(quality)})
	}
	return fmt.Errorf("%w: %q", modifier.ErrUnknownFormat, format)
}

// SaveImage writes img to path in the given format
func (p *Processor) SaveImage(img image.Image, path string, format modifier.Format, opts types.EncodeOptions) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}

	if err := p.Encode(f, img, format, opts); err != nil {
		f.Close()
		return fmt.Errorf("failed to encode %s: %w", path, err)
	}
	return f.Close()
}

// PrepareImageForModel encodes a copy of img for a vision model, bounding
// its long side by maxDim (0 keeps the original size)
func (p *Processor) PrepareImageForModel(img image.Image, format modifier.Format, maxDim int, quality int) (string, error) {
	if maxDim > 0 {
		b := img.Bounds()
		dims := geometry.NewDimensions(b.Dx(), b.Dy())
		bound := geometry.NewDimensions(maxDim, maxDim)
		if !dims.FitsIn(bound) {
			size := dims.ScaleToFitIn(bound)
			img = imaging.Resize(img, max(size.Width, 1), max(size.Height, 1), imaging.Lanczos)
		}
	}

	if format != modifier.FormatPNG {
		format = modifier.FormatJPEG
	}

	var buf bytes.Buffer
	if err := p.Encode(&buf, img, format, types.EncodeOptions{Quality: quality}); err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}
