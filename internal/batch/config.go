package batch

import (
	"fmt"
	"slices"
	"time"

	"github.com/MeKo-Tech/qrlens/internal/utils"
)

// Output formats understood by FormatResults.
const (
	FormatText = "text"
	FormatJSON = "json"
	FormatCSV  = "csv"
)

// Config holds all configuration for batch processing.
type Config struct {
	Format     string
	OutputFile string

	// Parallel processing settings
	Workers         int
	ContinueOnError bool

	// File discovery settings
	Recursive       bool
	IncludePatterns []string
	ExcludePatterns []string

	// Constraints bounds every image before decoding. The zero value
	// selects utils.DefaultImageConstraints.
	Constraints utils.ImageConstraints

	// Progress settings
	ShowProgress     bool
	Quiet            bool
	ShowStats        bool
	ProgressInterval time.Duration
}

// DefaultConfig returns the batch defaults.
func DefaultConfig() *Config {
	return &Config{
		Format:           FormatText,
		Workers:          4,
		ContinueOnError:  true,
		ShowProgress:     true,
		ProgressInterval: 100 * time.Millisecond,
	}
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	if !slices.Contains([]string{FormatText, FormatJSON, FormatCSV}, c.Format) {
		return fmt.Errorf("invalid output format %q (want text, json or csv)", c.Format)
	}
	if c.Workers < 0 {
		return fmt.Errorf("workers must be >= 0, got %d", c.Workers)
	}
	for _, p := range append(slices.Clone(c.IncludePatterns), c.ExcludePatterns...) {
		if _, err := matchPattern(p, "x"); err != nil {
			return fmt.Errorf("invalid pattern %q: %w", p, err)
		}
	}
	return nil
}

func (c *Config) constraints() utils.ImageConstraints {
	if c.Constraints == (utils.ImageConstraints{}) {
		return utils.DefaultImageConstraints()
	}
	return c.Constraints
}
