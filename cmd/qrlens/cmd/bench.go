package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/MeKo-Tech/qrlens/internal/barcode"
	"github.com/MeKo-Tech/qrlens/internal/batch"
	"github.com/MeKo-Tech/qrlens/internal/benchmark"
	"github.com/MeKo-Tech/qrlens/internal/utils"
)

func newBenchCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "bench [paths...]",
		Short: "Compare decode strategies on a set of images",
		Long: `Run every strategy on its own, then the full fallback pipeline, over
the given images and report how many codes each decoded and how long it took
per image. Directories are expanded like in the batch command.`,
		Example: `  qrlens bench testdata/
  qrlens bench photos/ --recursive --iterations 10 -o bench.txt`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBench(cmd, a, args)
		},
	}
	cmd.Flags().IntP("iterations", "n", 3, "passes over the image set per strategy")
	cmd.Flags().BoolP("recursive", "r", false, "process directories recursively")
	cmd.Flags().StringP("output", "o", "", "write the report to a file")
	a.bind(cmd, "batch.recursive", "recursive")
	a.addScanFlags(cmd)
	return cmd
}

func runBench(cmd *cobra.Command, a *app, paths []string) error {
	iterations, _ := cmd.Flags().GetInt("iterations")
	output, _ := cmd.Flags().GetString("output")

	files, err := batch.DiscoverImages(paths, a.cfg.Batch.Recursive, a.cfg.Batch.Include, a.cfg.Batch.Exclude)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		return batch.ErrNoImages
	}

	b := benchmark.NewStrategyBenchmark(barcode.NewBackend(), a.cfg.ScanPipelineConfig())
	constraints := a.cfg.ImageConstraints()
	for _, f := range utils.BatchLoadImages(files) {
		if f.Err != nil {
			return f.Err
		}
		img, err := utils.PrepareImage(f.Img, constraints)
		if err != nil {
			return fmt.Errorf("%s: %w", f.Path, err)
		}
		b.AddImage(f.Path, img)
	}

	if _, err := b.Run(cmd.Context(), iterations); err != nil {
		return err
	}

	if output == "" {
		b.WriteReport(cmd.OutOrStdout())
		return nil
	}
	f, err := os.Create(output)
	if err != nil {
		return fmt.Errorf("failed to create report: %w", err)
	}
	b.WriteReport(f)
	if err := f.Close(); err != nil {
		return err
	}
	_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Report written to %s\n", output)
	return nil
}
