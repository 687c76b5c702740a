package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/menta2k/image-geometry/internal/output"
	"github.com/menta2k/image-geometry/pkg/geometry"
	"github.com/menta2k/image-geometry/pkg/modifier"
)

type resolveResult struct {
	Original geometry.Dimensions `json:"original"`
	Crop     *geometry.Crop      `json:"crop,omitempty"`
	Request  modifier.Modifier   `json:"request"`
	Resolved modifier.Modifier   `json:"resolved"`
	Pixels   geometry.Dimensions `json:"pixels"`
}

func newResolveCmd(a *app) *cobra.Command {
	var original, cropFlag string
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "resolve",
		Short: "Resolve a request against an original size",
		Long: `Resolve a request against an original size without touching any image.

Unset sides are derived from the original's aspect ratio, the result is
scaled to fit the original unless --stretch is given, and the density is
the smallest multiplier that lets the original cover the request.

Examples:
  image-geometry resolve --original 1600x900 --width 800
  image-geometry resolve --original 100x100 --size 400x400
  image-geometry resolve --original 1600x900 --query "w=800&h=800&keepAspect"
  image-geometry resolve --original 1600x900 --size 200x200 --crop 0,0,900,900 --json`,
		Args: cobra.NoArgs,
	}
	mf := addModifierFlags(cmd)
	cmd.Flags().StringVar(&original, "original", "", "original size as WIDTHxHEIGHT (required)")
	cmd.Flags().StringVar(&cropFlag, "crop", "", "crop x,y,w,h[@WxH] applied to the original first")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "output as JSON")
	_ = cmd.MarkFlagRequired("original")

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		orig, err := geometry.ParseDimensions(original)
		if err != nil {
			return err
		}
		params, err := mf.params(cmd)
		if err != nil {
			return err
		}
		crop, err := parseCropFlag(cropFlag)
		if err != nil {
			return err
		}

		request, err := params.Modifier()
		if err != nil {
			return err
		}
		plan, err := a.newEngine().PlanDimensions(orig, params, crop)
		if err != nil {
			return err
		}

		density := plan.Modifier.Density
		res := resolveResult{
			Original: orig,
			Request:  request,
			Resolved: plan.Modifier,
			Pixels:   geometry.NewDimensions(plan.Modifier.Width*density.Width, plan.Modifier.Height*density.Height),
		}
		if crop != nil {
			res.Crop = &plan.Crop
		}

		if jsonOutput {
			return writeJSON(cmd.OutOrStdout(), res)
		}
		return renderResolveTable(cmd, res)
	}
	return cmd
}

func renderResolveTable(cmd *cobra.Command, res resolveResult) error {
	format := string(res.Resolved.Format)
	if format == "" {
		format = "original"
	}

	table := output.NewTable(cmd.OutOrStdout(), []string{"field", "value"})
	table.AddRow("original", fmt.Sprintf("%s (%s)", res.Original, res.Original.AspectRatio()))
	if res.Crop != nil {
		table.AddRow("crop", res.Crop.String())
	}
	table.AddRow("request", res.Request.String())
	table.AddRow("resolved", res.Resolved.Dimensions().String())
	table.AddRow("ratio", res.Resolved.Dimensions().AspectRatio().String())
	table.AddRow("density", res.Resolved.Density.String())
	table.AddRow("pixels", res.Pixels.String())
	table.AddRow("stretch", strconv.FormatBool(res.Resolved.Stretch))
	table.AddRow("keep aspect", strconv.FormatBool(res.Resolved.KeepAspect))
	table.AddRow("format", format)
	return table.Render()
}
