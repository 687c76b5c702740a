// Package cli contains the image-geometry commands
package cli

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	imagegeometry "github.com/menta2k/image-geometry"
	"github.com/menta2k/image-geometry/internal/config"
	"github.com/menta2k/image-geometry/internal/output"
	"github.com/menta2k/image-geometry/pkg/analyzer"
	"github.com/menta2k/image-geometry/pkg/cropper"
)

var (
	version   = "dev"
	commit    = "unknown"
	buildTime = "unknown"
)

// SetVersion sets the version string for the CLI
func SetVersion(v string) {
	version = v
}

// SetBuildInfo sets the commit hash and build time
func SetBuildInfo(c, bt string) {
	commit = c
	buildTime = bt
}

// app is the state shared by all commands of one invocation
type app struct {
	cfgFile string
	verbose bool
	cfg     *config.Config
	logger  *slog.Logger
	printer *output.Printer
}

// Execute runs the CLI
func Execute() error {
	return NewRootCmd().Execute()
}

// NewRootCmd builds the command tree
func NewRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:   "image-geometry",
		Short: "Resolve, crop and render image geometry",
		Long: `image-geometry resolves image requests (width, height, stretch,
keep-aspect, density, format) against an original size, remaps crops
between image sizes and renders the result.

Example usage:
  image-geometry resolve --original 1600x900 --width 800
  image-geometry crop --crop 0,0,800,900@1600x900 --to 400x225
  image-geometry render photo.jpg --size 400x400 --ratio square --format webp
  image-geometry detect photo.jpg --debug`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.init(cmd)
		},
	}

	root.PersistentFlags().StringVar(&a.cfgFile, "config", "", "config file (default is .image-geometry.yaml)")
	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "debug logging")
	root.PersistentFlags().String("log-level", "info", "log level: debug, info, warn or error")
	root.PersistentFlags().String("log-format", "text", "log format: text or json")
	root.PersistentFlags().Int("max-width", 0, "largest width a request may ask for, 0 disables")
	root.PersistentFlags().Int("max-height", 0, "largest height a request may ask for, 0 disables")

	root.AddCommand(
		newResolveCmd(a),
		newCropCmd(a),
		newRenderCmd(a),
		newDetectCmd(a),
		newVersionCmd(),
	)
	return root
}

func (a *app) init(cmd *cobra.Command) error {
	cfg, err := config.Load(a.cfgFile, cmd.Flags())
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	a.cfg = cfg
	a.logger = cfg.Logging.NewLogger(cmd.ErrOrStderr(), a.verbose)
	a.printer = output.NewPrinter(cmd.OutOrStdout(), cmd.ErrOrStderr(), output.ResolveColors(cfg.Output.Colors))

	a.logger.Debug("configuration loaded",
		"limits", cfg.SizeLimits().String(),
		"output_format", cfg.Output.Format,
		"vision_model", cfg.Vision.Model,
	)
	return nil
}

func (a *app) newEngine(opts ...imagegeometry.Option) *imagegeometry.Engine {
	base := []imagegeometry.Option{
		imagegeometry.WithLogger(a.logger),
		imagegeometry.WithLimits(a.cfg.SizeLimits()),
		imagegeometry.WithAnalyzerConfig(analyzer.Config{
			SupportedFormats: a.cfg.Analyzer.SupportedFormats,
			MinImageSize:     a.cfg.Analyzer.MinImageSize,
		}),
		imagegeometry.WithCropConfig(a.cropConfig()),
	}
	return imagegeometry.New(append(base, opts...)...)
}

func (a *app) cropConfig() cropper.CropConfig {
	return cropper.CropConfig{
		Zoom:             a.cfg.Cropper.Zoom,
		QualityThreshold: a.cfg.Cropper.QualityThreshold,
	}
}
