package cli

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/menta2k/image-geometry/internal/output"
	"github.com/menta2k/image-geometry/pkg/cropper"
	"github.com/menta2k/image-geometry/pkg/geometry"
)

func newCropCmd(a *app) *cobra.Command {
	var cropFlag, to, original, ratio, focusFlag string
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "crop",
		Short: "Remap a crop onto another size, or compute aspect crops",
		Long: `Remap a stored crop onto another image size, or compute the largest
crop of an aspect ratio around a focus point.

A crop is written x,y,w,h with an optional @WxH naming the size it was
drawn on. Without a source size the crop is taken to be drawn on the
target size itself.

Examples:
  image-geometry crop --crop 100,50,800,600@1600x900 --to 800x450
  image-geometry crop --original 1600x900 --ratio square --focus 0.3,0.5
  image-geometry crop --original 1600x900 --ratio all --zoom 0.9`,
		Args: cobra.NoArgs,
	}
	cmd.Flags().StringVar(&cropFlag, "crop", "", "crop to remap, x,y,w,h[@WxH]")
	cmd.Flags().StringVar(&to, "to", "", "target size as WIDTHxHEIGHT")
	cmd.Flags().StringVar(&original, "original", "", "image size for --ratio")
	cmd.Flags().StringVar(&ratio, "ratio", "", "preset name, W:H, or all")
	cmd.Flags().StringVar(&focusFlag, "focus", "0.5,0.5", "normalized focus point x,y")
	cmd.Flags().Float64("zoom", 1, "shrink factor for aspect crops (0.01..1)")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "output as JSON")
	cmd.MarkFlagsMutuallyExclusive("crop", "ratio")

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		switch {
		case cropFlag != "":
			return runRemapCrop(cmd, cropFlag, to, jsonOutput)
		case ratio != "":
			return runAspectCrops(cmd, a, original, ratio, focusFlag, jsonOutput)
		}
		return errors.New("either --crop or --ratio is required")
	}
	return cmd
}

func runRemapCrop(cmd *cobra.Command, cropFlag, to string, jsonOutput bool) error {
	if to == "" {
		return errors.New("--to is required with --crop")
	}
	crop, err := geometry.ParseCrop(cropFlag)
	if err != nil {
		return err
	}
	target, err := geometry.ParseDimensions(to)
	if err != nil {
		return err
	}
	if target.IsDegenerate() {
		return fmt.Errorf("target size %s needs both width and height", target)
	}

	normalized := crop.Normalize(target)
	if jsonOutput {
		return writeJSON(cmd.OutOrStdout(), normalized)
	}

	table := output.NewTable(cmd.OutOrStdout(), []string{"crop", "x", "y", "width", "height", "source"})
	table.AddRow("input", strconv.Itoa(crop.X), strconv.Itoa(crop.Y), strconv.Itoa(crop.Width), strconv.Itoa(crop.Height), crop.Source().String())
	table.AddRow("normalized", strconv.Itoa(normalized.X), strconv.Itoa(normalized.Y), strconv.Itoa(normalized.Width), strconv.Itoa(normalized.Height), normalized.Source().String())
	return table.Render()
}

func runAspectCrops(cmd *cobra.Command, a *app, original, ratio, focusFlag string, jsonOutput bool) error {
	if original == "" {
		return errors.New("--original is required with --ratio")
	}
	dims, err := geometry.ParseDimensions(original)
	if err != nil {
		return err
	}
	focus, err := parseFocus(focusFlag)
	if err != nil {
		return err
	}

	ratios := cropper.CommonAspectRatios()
	if ratio != "all" {
		ar, err := cropper.ParseAspectRatio(ratio)
		if err != nil {
			return err
		}
		ratios = []cropper.AspectRatio{ar}
	}

	results, err := cropper.NewWithConfig(a.cropConfig()).CropToMultipleRatios(dims, ratios, focus)
	if err != nil {
		return err
	}
	if jsonOutput {
		return writeJSON(cmd.OutOrStdout(), results)
	}

	table := output.NewTable(cmd.OutOrStdout(), []string{"name", "ratio", "x", "y", "width", "height", "quality"})
	for _, r := range results {
		table.AddRow(r.Name, r.Ratio, strconv.Itoa(r.Crop.X), strconv.Itoa(r.Crop.Y), strconv.Itoa(r.Crop.Width), strconv.Itoa(r.Crop.Height), fmt.Sprintf("%.2f", r.Quality))
	}
	return table.Render()
}
