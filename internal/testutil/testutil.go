// Package testutil holds fixtures and helpers shared by package tests.
package testutil

import (
	"os"
	"testing"
)

// CreateTempDir creates a temporary directory for testing.
func CreateTempDir(t *testing.T) string {
	t.Helper()

	return t.TempDir()
}

// EnsureDir creates dir and its parents if they do not exist.
func EnsureDir(dir string) error {
	return os.MkdirAll(dir, 0o750)
}

// FileExists checks if a file exists.
func FileExists(path string) bool {
	_, err := os.Stat(path)
	return !os.IsNotExist(err)
}
