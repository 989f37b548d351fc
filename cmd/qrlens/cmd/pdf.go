package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/MeKo-Tech/qrlens/internal/pdf"
)

func newPDFCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pdf <pdf file>",
		Short: "Scan QR codes in the images embedded in a PDF",
		Long: `Extract the images of a PDF document page by page and scan each
one for a QR code.

Page ranges use the form "1-3,5". Encrypted documents need --password
(user password) or --owner-password.`,
		Example: `  qrlens pdf invoice.pdf
  qrlens pdf report.pdf --pages 1-3,5 --format json
  qrlens pdf secret.pdf --password hunter2`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPDF(cmd, a, args[0])
		},
	}
	cmd.Flags().StringP("format", "f", outputFormatText, "output format: text, json")
	cmd.Flags().StringP("output", "o", "", "output file (default: stdout)")
	cmd.Flags().String("pages", "", "page range to scan, e.g. 1-3,5 (default: all)")
	cmd.Flags().String("password", "", "user password for encrypted PDFs")
	cmd.Flags().String("owner-password", "", "owner password for encrypted PDFs")
	cmd.Flags().Int("workers", 0, "concurrent image scans (0 = number of CPUs)")
	a.bind(cmd, "output.format", "format")
	a.bind(cmd, "output.file", "output")
	a.addScanFlags(cmd)
	return cmd
}

func runPDF(cmd *cobra.Command, a *app, file string) error {
	pages, _ := cmd.Flags().GetString("pages")
	user, _ := cmd.Flags().GetString("password")
	owner, _ := cmd.Flags().GetString("owner-password")
	workers, _ := cmd.Flags().GetInt("workers")

	var creds *pdf.Credentials
	if user != "" || owner != "" {
		creds = &pdf.Credentials{UserPassword: user, OwnerPassword: owner}
	}

	proc := pdf.NewProcessor(a.pipeline(), &pdf.ProcessorConfig{
		MaxWorkers:  workers,
		Constraints: a.cfg.ImageConstraints(),
	})
	doc, err := proc.ProcessFile(cmd.Context(), file, pages, creds)
	if err != nil {
		if errors.Is(err, pdf.ErrPasswordRequired) {
			return fmt.Errorf("%s is encrypted, supply --password or --owner-password: %w", file, err)
		}
		return fmt.Errorf("failed to process PDF %s: %w", file, err)
	}

	out := cmd.OutOrStdout()
	if a.cfg.Output.File != "" {
		f, err := os.Create(a.cfg.Output.File)
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer func() { _ = f.Close() }()
		out = f
	}

	switch a.cfg.Output.Format {
	case outputFormatJSON:
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(doc); err != nil {
			return fmt.Errorf("failed to encode result: %w", err)
		}
	case outputFormatText, "":
		writePDFText(out, doc)
	default:
		return fmt.Errorf("unsupported format %q for pdf (want text or json)", a.cfg.Output.Format)
	}

	if len(doc.Codes()) == 0 {
		return ErrNoCodeFound
	}
	return nil
}

func writePDFText(w io.Writer, doc *pdf.DocumentResult) {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s (%d pages)\n", doc.Filename, doc.TotalPages)
	for _, page := range doc.Pages {
		for _, img := range page.Images {
			switch {
			case img.Error != "":
				fmt.Fprintf(&b, "page %d image %d: error: %s\n", page.PageNumber, img.ImageIndex, img.Error)
			case img.Found:
				fmt.Fprintf(&b, "page %d image %d: %s\n", page.PageNumber, img.ImageIndex, img.Text)
			default:
				fmt.Fprintf(&b, "page %d image %d: (no QR code found)\n", page.PageNumber, img.ImageIndex)
			}
		}
	}
	_, _ = io.WriteString(w, b.String())
}
