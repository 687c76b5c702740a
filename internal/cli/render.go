package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	imagegeometry "github.com/menta2k/image-geometry"
	"github.com/menta2k/image-geometry/internal/output"
	"github.com/menta2k/image-geometry/internal/utils"
	"github.com/menta2k/image-geometry/pkg/types"
)

func newRenderCmd(a *app) *cobra.Command {
	var cropFlag, ratioFlag string
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "render <image|dir|url>...",
		Short: "Crop, resize and encode images",
		Long: `Load images from files, directories or URLs, resolve the request
against each image (or its crop), render and encode the result.

Outputs are named <prefix><name><suffix>.<format>; the suffix defaults to
the output size, e.g. photo_800x450.webp.

Examples:
  image-geometry render photo.jpg --width 800
  image-geometry render photo.jpg --size 400x400 --ratio square --format webp
  image-geometry render photo.jpg --crop 100,50,800,600@1600x900 --out thumbs
  image-geometry render ./photos --query "w=320&density=2" --json`,
		Args: cobra.MinimumNArgs(1),
	}
	mf := addModifierFlags(cmd)
	cmd.Flags().StringVar(&cropFlag, "crop", "", "crop x,y,w,h[@WxH] applied before resizing")
	cmd.Flags().StringVar(&ratioFlag, "ratio", "", "crop to an aspect ratio around the focus point (preset name or W:H)")
	cmd.Flags().Float64("zoom", 1, "shrink factor for --ratio crops (0.01..1)")
	cmd.Flags().String("out", "./output", "output directory")
	cmd.Flags().Int("quality", 85, "JPEG/WebP output quality (1-100)")
	cmd.Flags().Bool("lossless", false, "WebP lossless mode")
	cmd.Flags().String("prefix", "", "output file name prefix")
	cmd.Flags().String("suffix", "", "output file name suffix (default: _WIDTHxHEIGHT)")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "output as JSON")
	cmd.MarkFlagsMutuallyExclusive("crop", "ratio")

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		params, err := mf.params(cmd)
		if err != nil {
			return err
		}
		if params.Format == "" {
			params.Format = a.cfg.Output.Format
		}
		crop, err := parseCropFlag(cropFlag)
		if err != nil {
			return err
		}
		ratio, err := parseRatioFlag(ratioFlag)
		if err != nil {
			return err
		}

		inputs, err := expandInputs(args)
		if err != nil {
			return err
		}

		engine := a.newEngine()
		opts := imagegeometry.ProcessOptions{
			Params:    params,
			Crop:      crop,
			Ratio:     ratio,
			OutputDir: a.cfg.Output.Dir,
			Prefix:    a.cfg.Output.Prefix,
			Suffix:    a.cfg.Output.Suffix,
			Encode: types.EncodeOptions{
				Quality:  a.cfg.Output.Quality,
				Lossless: a.cfg.Output.Lossless,
			},
		}

		var results []imagegeometry.ProcessResult
		for _, input := range inputs {
			res, err := engine.ProcessImageFile(cmd.Context(), input, opts)
			if err != nil {
				a.printer.Warning("%s: %v", input, err)
				continue
			}
			results = append(results, res)
		}

		if jsonOutput {
			if err := writeJSON(cmd.OutOrStdout(), results); err != nil {
				return err
			}
		} else if len(results) > 0 {
			if err := renderResultsTable(cmd, results); err != nil {
				return err
			}
			a.printer.Success("wrote %d of %d images to %s", len(results), len(inputs), a.cfg.Output.Dir)
		}

		if failed := len(inputs) - len(results); failed > 0 {
			return fmt.Errorf("%d of %d images failed", failed, len(inputs))
		}
		return nil
	}
	return cmd
}

// expandInputs replaces directories by the images they contain
func expandInputs(args []string) ([]string, error) {
	var inputs []string
	for _, arg := range args {
		if !utils.DirExists(arg) {
			inputs = append(inputs, arg)
			continue
		}
		files, err := utils.ListImageFiles(arg)
		if err != nil {
			return nil, fmt.Errorf("listing %s: %w", arg, err)
		}
		inputs = append(inputs, files...)
	}
	if len(inputs) == 0 {
		return nil, fmt.Errorf("no images found")
	}
	return inputs, nil
}

func renderResultsTable(cmd *cobra.Command, results []imagegeometry.ProcessResult) error {
	table := output.NewTable(cmd.OutOrStdout(), []string{"input", "output", "crop", "size", "density", "bytes"})
	for _, r := range results {
		size := "?"
		if info, err := os.Stat(r.Output); err == nil {
			size = utils.FormatFileSize(info.Size())
		}
		table.AddRow(
			r.Input,
			r.Output,
			r.Plan.Crop.String(),
			r.Plan.Output().String(),
			r.Plan.Modifier.Density.String(),
			size,
		)
	}
	return table.Render()
}
