package testutils

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/aretw0/formguard"
	"github.com/aretw0/formguard/internal/logging"
	"github.com/stretchr/testify/require"
)

// WriteFile creates name with content in a fresh temporary directory and
// returns its absolute path. It fails the test immediately on error.
func WriteFile(t *testing.T, name, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755), "Failed to create fixture dir")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644), "Failed to write fixture")

	abs, err := filepath.Abs(path)
	require.NoError(t, err, "Failed to get absolute path for fixture")
	return abs
}

// NewEngine builds an Engine over the default catalog with a silent logger.
// Later options override the logger.
func NewEngine(t *testing.T, opts ...formguard.Option) *formguard.Engine {
	t.Helper()

	opts = append([]formguard.Option{formguard.WithLogger(logging.NewNop())}, opts...)
	eng, err := formguard.New(opts...)
	require.NoError(t, err, "Failed to init engine")
	return eng
}
