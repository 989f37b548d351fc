// Package support holds the godog step definitions for the CLI feature suite.
package support

import (
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
)

// TestContext holds the state of one scenario.
type TestContext struct {
	// Command execution state
	LastCommand string
	LastOutput  string
	LastStderr  string
	LastError   error

	// Test environment
	WorkDir     string
	originalDir string
	savedEnv    map[string]*string
	savedLogger *slog.Logger

	// Server state
	Server             *httptest.Server
	LastHTTPStatusCode int
	LastHTTPResponse   string
	LastHTTPHeaders    http.Header
}

// NewTestContext creates a scenario context rooted in a fresh temporary
// directory. The process working directory moves there until Cleanup.
func NewTestContext() (*TestContext, error) {
	originalDir, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("failed to get working directory: %w", err)
	}

	workDir, err := os.MkdirTemp("", "qrlens-test-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp directory: %w", err)
	}
	// Resolve symlinks so paths printed by the CLI match the ones we build.
	if resolved, err := filepath.EvalSymlinks(workDir); err == nil {
		workDir = resolved
	}

	testCtx := &TestContext{
		WorkDir:     workDir,
		originalDir: originalDir,
		savedEnv:    map[string]*string{},
		savedLogger: slog.Default(),
	}
	if err := os.Chdir(workDir); err != nil {
		return nil, fmt.Errorf("failed to enter temp directory: %w", err)
	}

	// Keep real user configuration out of the scenario.
	for _, name := range []string{"HOME", "XDG_CONFIG_HOME"} {
		if err := testCtx.SetEnv(name, workDir); err != nil {
			return nil, err
		}
	}
	return testCtx, nil
}

// SetEnv sets an environment variable for the rest of the scenario.
func (testCtx *TestContext) SetEnv(name, value string) error {
	if _, saved := testCtx.savedEnv[name]; !saved {
		if old, ok := os.LookupEnv(name); ok {
			testCtx.savedEnv[name] = &old
		} else {
			testCtx.savedEnv[name] = nil
		}
	}
	return os.Setenv(name, value)
}

// Path resolves name inside the scenario directory.
func (testCtx *TestContext) Path(name string) string {
	if filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(testCtx.WorkDir, name)
}

// Cleanup stops the server, restores the environment and removes the
// scenario directory.
func (testCtx *TestContext) Cleanup() error {
	var errs []error

	if testCtx.Server != nil {
		testCtx.Server.Close()
		testCtx.Server = nil
	}

	for name, old := range testCtx.savedEnv {
		var err error
		if old == nil {
			err = os.Unsetenv(name)
		} else {
			err = os.Setenv(name, *old)
		}
		if err != nil {
			errs = append(errs, err)
		}
	}
	slog.SetDefault(testCtx.savedLogger)

	if err := os.Chdir(testCtx.originalDir); err != nil {
		errs = append(errs, fmt.Errorf("failed to restore working directory: %w", err))
	}
	if err := os.RemoveAll(testCtx.WorkDir); err != nil {
		errs = append(errs, fmt.Errorf("failed to remove %s: %w", testCtx.WorkDir, err))
	}

	if len(errs) > 0 {
		return fmt.Errorf("cleanup errors: %v", errs)
	}
	return nil
}
