package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	imagegeometry "github.com/menta2k/image-geometry"
	"github.com/menta2k/image-geometry/internal/output"
	"github.com/menta2k/image-geometry/internal/utils"
	"github.com/menta2k/image-geometry/pkg/cropper"
	"github.com/menta2k/image-geometry/pkg/detection"
	"github.com/menta2k/image-geometry/pkg/geometry"
	"github.com/menta2k/image-geometry/pkg/modifier"
	"github.com/menta2k/image-geometry/pkg/ollama"
	"github.com/menta2k/image-geometry/pkg/types"
)

var defaultTargetSizes = []string{"1200x675", "1200x800", "400x250", "600x400", "1200x630"}

type detectedCrop struct {
	Size   geometry.Dimensions `json:"size"`
	Crop   geometry.Crop       `json:"crop"`
	Output string              `json:"output"`
	Debug  string              `json:"debug,omitempty"`
}

type detectResult struct {
	Input   string                `json:"input"`
	Subject *types.AnalysisResult `json:"subject"`
	Region  *geometry.Crop        `json:"region,omitempty"`
	Focus   cropper.Point         `json:"focus"`
	Crops   []detectedCrop        `json:"crops"`
}

func newDetectCmd(a *app) *cobra.Command {
	var sizesFlag []string
	var probe, debug, upscale, jsonOutput bool

	cmd := &cobra.Command{
		Use:   "detect <image|url>",
		Short: "Locate the subject with a vision model and crop around it",
		Long: `Ask an Ollama vision model for the primary subject of an image, then
write one crop per target size centred as close to the subject as the
image allows. Without a subject the saliency focus is used.

The raw model answer is saved as model_output.json next to the crops.

Examples:
  image-geometry detect photo.jpg
  image-geometry detect photo.jpg --sizes 1080x1080,1080x1920 --debug
  image-geometry detect https://example.com/photo.jpg --model llava --url http://gpu:11434
  image-geometry detect photo.jpg --probe`,
		Args: cobra.ExactArgs(1),
	}
	cmd.Flags().String("url", "http://localhost:11434", "Ollama server URL")
	cmd.Flags().String("model", "openbmb/minicpm-v4.5", "vision model name")
	cmd.Flags().Int("send-size", 768, "max long side sent to the model (px), 0 keeps the original")
	cmd.Flags().Duration("timeout", 0, "model request timeout (default from config)")
	cmd.Flags().Float64("zoom", 1, "shrink factor for crops (0.01..1)")
	cmd.Flags().String("out", "./output", "output directory")
	cmd.Flags().Int("quality", 85, "JPEG/WebP output quality (1-100)")
	cmd.Flags().Bool("lossless", false, "WebP lossless mode")
	cmd.Flags().StringSliceVar(&sizesFlag, "sizes", defaultTargetSizes, "target sizes as WIDTHxHEIGHT")
	cmd.Flags().BoolVar(&upscale, "upscale", false, "stretch crops smaller than the target size up to it")
	cmd.Flags().BoolVar(&debug, "debug", false, "write debug overlays")
	cmd.Flags().BoolVar(&probe, "probe", false, "only check that the model can see the image")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "output as JSON")

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		input := args[0]

		sizes, err := parseSizes(sizesFlag)
		if err != nil {
			return err
		}
		sendFormat, err := modifier.ParseFormat(a.cfg.Vision.SendFormat)
		if err != nil {
			return fmt.Errorf("vision.send_format: %w", err)
		}

		vc, err := ollama.NewClient(a.cfg.Vision.URL, nil)
		if err != nil {
			return fmt.Errorf("failed to create Ollama client: %w", err)
		}
		if a.cfg.Vision.Timeout > 0 {
			vc.SetTimeout(a.cfg.Vision.Timeout)
		}
		detector := detection.NewDetector(vc, a.cfg.Vision.Model)

		engine := a.newEngine(imagegeometry.WithDetector(detector, imagegeometry.SendOptions{
			MaxSize: a.cfg.Vision.SendSize,
			Format:  sendFormat,
			Quality: a.cfg.Vision.SendQuality,
		}))
		processor := engine.Processor()

		img, sourceFormat, err := processor.LoadImageSmart(ctx, input)
		if err != nil {
			return err
		}

		if probe {
			payload, err := processor.PrepareImageForModel(img, sendFormat, a.cfg.Vision.SendSize, a.cfg.Vision.SendQuality)
			if err != nil {
				return err
			}
			answer, err := detector.TestVision(ctx, payload)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), strings.TrimSpace(answer))
			return nil
		}

		result, err := engine.DetectSubject(ctx, img)
		if err != nil {
			return err
		}

		b := img.Bounds()
		dims := geometry.NewDimensions(b.Dx(), b.Dy())
		res := detectResult{
			Input:   input,
			Subject: result,
			Focus:   engine.FocusFrom(img, result),
		}
		if region, ok := detection.SubjectCrop(result, dims); ok {
			res.Region = &region
		} else {
			a.printer.Warning("no subject detected, cropping around the saliency focus")
		}

		outDir := a.cfg.Output.Dir
		if err := utils.EnsureDir(outDir); err != nil {
			return err
		}
		format := a.cfg.OutputFormat().Or(sourceFormat)
		encode := types.EncodeOptions{Quality: a.cfg.Output.Quality, Lossless: a.cfg.Output.Lossless}

		for i, size := range sizes {
			crop, err := cropper.CropForRatio(dims, size.AspectRatio(), res.Focus, a.cfg.Cropper.Zoom)
			if err != nil {
				return err
			}

			w, h := size.Width, size.Height
			plan, err := engine.PlanImage(img, modifier.Params{Width: &w, Height: &h, Stretch: upscale}, &crop)
			if err != nil {
				return fmt.Errorf("crop %s: %w", size, err)
			}
			rendered, err := engine.RenderImage(img, plan)
			if err != nil {
				return fmt.Errorf("crop %s: %w", size, err)
			}

			dc := detectedCrop{
				Size:   size,
				Crop:   plan.Crop,
				Output: filepath.Join(outDir, fmt.Sprintf("%03d_%s.%s", i+1, size, format.Extension())),
			}
			if err := processor.SaveImage(rendered, dc.Output, format, encode); err != nil {
				return err
			}
			a.logger.Info("wrote crop", "path", dc.Output, "crop", plan.Crop.String(), "size", plan.Output().String())

			if debug {
				overlay := processor.CreateDebugOverlay(img, plan.Crop, res.Region, res.Focus)
				dc.Debug = filepath.Join(outDir, fmt.Sprintf("%03d_debug_%s.png", i+1, size))
				if err := processor.SaveImage(overlay, dc.Debug, modifier.FormatPNG, types.EncodeOptions{}); err != nil {
					a.printer.Warning("debug overlay %s: %v", dc.Debug, err)
					dc.Debug = ""
				}
			}
			res.Crops = append(res.Crops, dc)
		}

		if err := saveModelOutput(outDir, result); err != nil {
			a.printer.Warning("saving model output: %v", err)
		}

		if jsonOutput {
			return writeJSON(cmd.OutOrStdout(), res)
		}
		return renderDetectTables(cmd, a, res)
	}
	return cmd
}

func saveModelOutput(dir string, result *types.AnalysisResult) error {
	var buf strings.Builder
	if err := writeJSON(&buf, result); err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dir, "model_output.json"), []byte(buf.String()), 0o644)
}

func renderDetectTables(cmd *cobra.Command, a *app, res detectResult) error {
	p := res.Subject.Primary

	a.printer.Header("Subject")
	table := output.NewTable(cmd.OutOrStdout(), []string{"field", "value"})
	table.AddRow("label", a.printer.Bold(p.Label))
	table.AddRow("confidence", strconv.FormatFloat(p.Confidence, 'f', 2, 64))
	table.AddRow("box", fmt.Sprintf("%.3fx%.3f@%.3f,%.3f", p.Box.W, p.Box.H, p.Box.X, p.Box.Y))
	if res.Region != nil {
		table.AddRow("region", res.Region.String())
	}
	table.AddRow("focus", fmt.Sprintf("%.3f,%.3f", res.Focus.X, res.Focus.Y))
	table.AddRow("description", res.Subject.Description)
	table.AddRow("tags", strings.Join(res.Subject.Tags, ", "))
	if err := table.Render(); err != nil {
		return err
	}

	a.printer.Header("Crops")
	crops := output.NewTable(cmd.OutOrStdout(), []string{"size", "crop", "output"})
	for _, c := range res.Crops {
		crops.AddRow(c.Size.String(), c.Crop.String(), c.Output)
	}
	return crops.Render()
}
