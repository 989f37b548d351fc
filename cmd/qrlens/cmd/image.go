package cmd

import (
	"errors"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/MeKo-Tech/qrlens/internal/batch"
)

// ErrNoCodeFound is returned when none of the scanned inputs held a code.
var ErrNoCodeFound = errors.New("no QR code found")

func newImageCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "image [image files...]",
		Short: "Scan QR codes in image files",
		Long: `Scan one or more image files for a QR code.

Each image runs through the configured strategies in order and stops at the
first successful decode. Supported formats: JPEG, PNG, BMP, GIF, TIFF, WebP.`,
		Example: `  qrlens image code.png
  qrlens image *.jpg --format json
  qrlens image photo.jpg --strategies Normal,Invert`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runImage(cmd, a, args)
		},
	}
	a.addOutputFlags(cmd)
	a.addScanFlags(cmd)
	return cmd
}

func runImage(cmd *cobra.Command, a *app, paths []string) error {
	pl := a.pipeline()
	constraints := a.cfg.ImageConstraints()

	start := time.Now()
	res := &batch.Result{WorkerCount: 1}
	found := 0
	for _, path := range paths {
		r, err := batch.ScanFile(cmd.Context(), pl, constraints, path)
		if err != nil {
			slog.Error("image scan failed", "file", path, "error", err)
		}
		if r.Found {
			found++
			slog.Debug("decoded image", "file", path, "strategy", r.Strategy, "attempts", r.Attempts)
		}
		res.Results = append(res.Results, r)
	}
	res.Duration = time.Since(start)

	if err := res.SaveResults(cmd.OutOrStdout(), a.cfg.Output.Format, a.cfg.Output.File, false); err != nil {
		return err
	}
	if found == 0 {
		return ErrNoCodeFound
	}
	return nil
}
