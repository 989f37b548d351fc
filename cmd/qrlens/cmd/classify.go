package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/MeKo-Tech/qrlens/internal/payload"
)

func newClassifyCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "classify <text>",
		Short: "Detect the kind of a decoded QR payload",
		Long: `Classify payload text as url, wifi, vcard or plain text and print the
parsed fields. Use "-" to read the payload from stdin.`,
		Example: `  qrlens classify "WIFI:S:HomeNet;T:WPA;P:secret;;"
  echo "https://example.com" | qrlens classify - --format json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runClassify(cmd, a, args[0])
		},
	}
	cmd.Flags().StringP("format", "f", outputFormatText, "output format: text, json")
	a.bind(cmd, "output.format", "format")
	return cmd
}

func runClassify(cmd *cobra.Command, a *app, text string) error {
	if text == "-" {
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return fmt.Errorf("failed to read stdin: %w", err)
		}
		text = strings.TrimRight(string(data), "\r\n")
	}

	p := payload.Classify(text)
	out := cmd.OutOrStdout()
	switch a.cfg.Output.Format {
	case outputFormatJSON:
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(p)
	case outputFormatText, "":
		writePayloadText(out, p)
		return nil
	default:
		return fmt.Errorf("unsupported format %q for classify (want text or json)", a.cfg.Output.Format)
	}
}

func writePayloadText(w io.Writer, p payload.Payload) {
	_, _ = fmt.Fprintf(w, "kind: %s\n", p.Kind)
	switch {
	case p.WiFi != nil:
		_, _ = fmt.Fprintf(w, "ssid: %s\nsecurity: %s\npassword: %s\nhidden: %t\n",
			p.WiFi.SSID, p.WiFi.Security, p.WiFi.Password, p.WiFi.Hidden)
	case p.Contact != nil:
		_, _ = fmt.Fprintf(w, "name: %s\ntel: %s\nemail: %s\n", p.Contact.Name, p.Contact.Tel, p.Contact.Email)
	case p.URL != "":
		_, _ = fmt.Fprintf(w, "url: %s\n", p.URL)
	default:
		_, _ = fmt.Fprintf(w, "text: %s\n", p.Text)
	}
}
