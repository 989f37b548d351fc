// Package cmd implements the qrlens command-line interface.
package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/MeKo-Tech/qrlens/internal/barcode"
	"github.com/MeKo-Tech/qrlens/internal/config"
	"github.com/MeKo-Tech/qrlens/internal/scan"
	"github.com/MeKo-Tech/qrlens/internal/version"
)

const (
	outputFormatJSON = "json"
	outputFormatText = "text"
)

// app carries the per-invocation configuration state shared by subcommands.
type app struct {
	v       *viper.Viper
	loader  *config.Loader
	cfg     *config.Config
	cfgFile string
	// binds maps a command to its flag -> config key bindings. Several
	// commands share keys, so only the executing command's flags are bound.
	binds map[*cobra.Command]map[string]string
}

// NewRootCommand builds the complete command tree. Every call returns an
// independent tree with its own configuration instance.
func NewRootCommand() *cobra.Command {
	a := &app{v: viper.New(), binds: map[*cobra.Command]map[string]string{}}
	a.loader = config.NewLoaderWithViper(a.v)

	root := &cobra.Command{
		Use:   "qrlens",
		Short: "Scan, classify and generate QR codes",
		Long: `qrlens reads QR codes from images and PDFs using a sequence of
preprocessing strategies (direct, contrast, inverted, upscaled, binarized),
classifies their payloads and renders new codes.

Examples:
  qrlens image photo.jpg
  qrlens pdf invoice.pdf --pages 1-2 --format json
  qrlens batch scans/ --recursive --workers 8
  qrlens generate "https://example.com" -o code.png
  qrlens serve --port 8080`,
		Version:      version.String(),
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.initConfig(cmd)
		},
	}
	root.SetVersionTemplate("{{.Version}}\n")

	root.PersistentFlags().StringVar(&a.cfgFile, "config", "",
		"config file (default is search in ., $HOME, $HOME/.config/qrlens, /etc/qrlens)")
	root.PersistentFlags().BoolP("verbose", "v", false, "verbose output (equivalent to --log-level=debug)")
	root.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error)")
	a.bind(root, "verbose", "verbose")
	a.bind(root, "log_level", "log-level")

	root.AddCommand(
		newImageCommand(a),
		newPDFCommand(a),
		newBatchCommand(a),
		newBenchCommand(a),
		newGenerateCommand(a),
		newClassifyCommand(a),
		newServeCommand(a),
		newConfigCommand(a),
		newVersionCommand(),
	)
	return root
}

// Execute runs the CLI and exits non-zero on failure.
func Execute() {
	if err := NewRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

// bind records that flag of cmd overrides configuration key.
func (a *app) bind(cmd *cobra.Command, key, flag string) {
	if a.binds[cmd] == nil {
		a.binds[cmd] = map[string]string{}
	}
	a.binds[cmd][flag] = key
}

// bindFlags attaches the recorded bindings of cmd and its ancestors to viper.
func (a *app) bindFlags(cmd *cobra.Command) error {
	for c := cmd; c != nil; c = c.Parent() {
		for flag, key := range a.binds[c] {
			f := cmd.Flags().Lookup(flag)
			if f == nil {
				return fmt.Errorf("unknown flag %q for key %s", flag, key)
			}
			if err := a.v.BindPFlag(key, f); err != nil {
				return fmt.Errorf("bind flag %s: %w", flag, err)
			}
		}
	}
	return nil
}

// initConfig binds the flags of cmd, loads configuration and installs the
// JSON logger on the command's error stream.
func (a *app) initConfig(cmd *cobra.Command) error {
	if err := a.bindFlags(cmd); err != nil {
		return err
	}
	cfg, err := a.loader.LoadWithFile(a.cfgFile)
	if err != nil {
		return fmt.Errorf("error loading configuration: %w", err)
	}
	a.cfg = cfg

	level := slog.LevelInfo
	if cfg.Verbose {
		level = slog.LevelDebug
	} else {
		switch cfg.LogLevel {
		case "debug":
			level = slog.LevelDebug
		case "warn":
			level = slog.LevelWarn
		case "error":
			level = slog.LevelError
		}
	}
	slog.SetDefault(slog.New(slog.NewJSONHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level})))
	return nil
}

// pipeline builds the scan pipeline from the resolved configuration.
func (a *app) pipeline() *scan.Pipeline {
	return scan.New(a.cfg.ScanPipelineConfig(), barcode.NewBackend())
}

// addScanFlags registers the flags shared by every scanning command.
func (a *app) addScanFlags(cmd *cobra.Command) {
	cmd.Flags().StringSlice("strategies", nil,
		"strategies to try, in default order (Normal, Contrast, Invert, Scale2x, Binarize)")
	cmd.Flags().StringSlice("formats", nil, "barcode formats to search for (default: qr)")
	cmd.Flags().Bool("try-harder", true, "spend more time searching for a code")
	a.bind(cmd, "scan.strategies", "strategies")
	a.bind(cmd, "scan.formats", "formats")
	a.bind(cmd, "scan.try_harder", "try-harder")
}

// addOutputFlags registers --format and --output.
func (a *app) addOutputFlags(cmd *cobra.Command) {
	cmd.Flags().StringP("format", "f", outputFormatText, "output format: text, json, csv")
	cmd.Flags().StringP("output", "o", "", "output file (default: stdout)")
	a.bind(cmd, "output.format", "format")
	a.bind(cmd, "output.file", "output")
}
