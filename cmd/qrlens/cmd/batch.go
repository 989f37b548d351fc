package cmd

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/MeKo-Tech/qrlens/internal/batch"
)

func newBatchCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "batch [paths...]",
		Short: "Scan many images for QR codes in parallel",
		Long: `Scan files and directories of images with a pool of workers.

Directories are expanded to the supported image files they contain, and
--include/--exclude glob patterns filter the discovered files. Results
are reported in input order.`,
		Example: `  qrlens batch scans/
  qrlens batch photos/ --recursive --workers 8 --format csv -o codes.csv
  qrlens batch . --include "*.png" --exclude "thumb_*"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBatch(cmd, a, args)
		},
	}

	cmd.Flags().IntP("workers", "w", 4, "number of parallel workers")
	cmd.Flags().BoolP("recursive", "r", false, "process directories recursively")
	cmd.Flags().StringSlice("include", nil, "include file patterns (glob)")
	cmd.Flags().StringSlice("exclude", nil, "exclude file patterns (glob)")
	cmd.Flags().Bool("continue-on-error", true, "keep going when a file cannot be loaded")
	a.bind(cmd, "batch.workers", "workers")
	a.bind(cmd, "batch.recursive", "recursive")
	a.bind(cmd, "batch.include", "include")
	a.bind(cmd, "batch.exclude", "exclude")
	a.bind(cmd, "batch.continue_on_error", "continue-on-error")

	cmd.Flags().Bool("progress", true, "show progress bar")
	cmd.Flags().BoolP("quiet", "q", false, "suppress progress and status messages")
	cmd.Flags().Bool("stats", false, "print processing statistics")
	cmd.Flags().Duration("progress-interval", 100*time.Millisecond, "progress update interval")

	a.addOutputFlags(cmd)
	a.addScanFlags(cmd)
	return cmd
}

func runBatch(cmd *cobra.Command, a *app, paths []string) error {
	bc := a.cfg.BatchProcessingConfig()
	bc.ShowProgress, _ = cmd.Flags().GetBool("progress")
	bc.Quiet, _ = cmd.Flags().GetBool("quiet")
	bc.ShowStats, _ = cmd.Flags().GetBool("stats")
	bc.ProgressInterval, _ = cmd.Flags().GetDuration("progress-interval")

	slog.Debug("starting batch", "paths", len(paths), "workers", bc.Workers, "recursive", bc.Recursive)
	res, err := batch.ProcessBatch(cmd.Context(), a.pipeline(), paths, bc)
	if err != nil {
		if errors.Is(err, batch.ErrNoImages) {
			return fmt.Errorf("no supported images under %v: %w", paths, err)
		}
		return err
	}

	if err := res.SaveResults(cmd.OutOrStdout(), bc.Format, bc.OutputFile, bc.Quiet); err != nil {
		return err
	}
	if bc.ShowStats {
		res.PrintStats(cmd.OutOrStdout())
	}

	if s := res.Stats(); s.Failed > 0 && !bc.ContinueOnError {
		return fmt.Errorf("%d of %d images failed", s.Failed, s.Total)
	}
	return nil
}
