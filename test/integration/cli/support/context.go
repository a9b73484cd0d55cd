package support

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// TestContext holds the state for integration tests.
type TestContext struct {
	// Command execution state
	LastCommand   string
	LastOutput    string
	LastStderr    string
	LastError     error
	LastExitCode  int
	LastStartTime time.Time
	LastDuration  time.Duration

	// Test environment
	WorkingDir string
	TempDir    string
	EnvVars    []string

	// Server management
	HTTPTestServer *HTTPTestServerWrapper

	// HTTP response state
	LastHTTPStatusCode int
	LastHTTPHeaders    map[string]string
}

// NewTestContext creates a new test context.
func NewTestContext() (*TestContext, error) {
	workingDir, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("failed to get working directory: %w", err)
	}

	// Commands run from the project root so relative defaults resolve there.
	currentDir := workingDir
	for {
		if _, err := os.Stat(filepath.Join(currentDir, "go.mod")); err == nil {
			workingDir = currentDir
			break
		}
		parentDir := filepath.Dir(currentDir)
		if parentDir == currentDir {
			break
		}
		currentDir = parentDir
	}

	tempDir, err := os.MkdirTemp("", "platefinder-test-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp directory: %w", err)
	}

	return &TestContext{
		WorkingDir:      workingDir,
		TempDir:         tempDir,
		EnvVars:         []string{},
		LastHTTPHeaders: map[string]string{},
	}, nil
}

// Cleanup stops the test server and removes the scenario's temp directory.
func (testCtx *TestContext) Cleanup() error {
	var errs []error

	if err := testCtx.stopTestHTTPServer(); err != nil {
		errs = append(errs, fmt.Errorf("failed to stop server: %w", err))
	}
	if err := os.RemoveAll(testCtx.TempDir); err != nil && !os.IsNotExist(err) {
		errs = append(errs, fmt.Errorf("failed to remove temp directory %s: %w", testCtx.TempDir, err))
	}

	if len(errs) > 0 {
		return fmt.Errorf("cleanup errors: %v", errs)
	}
	return nil
}

// AddEnvVar adds an environment variable for command execution.
func (testCtx *TestContext) AddEnvVar(name, value string) {
	testCtx.EnvVars = append(testCtx.EnvVars, fmt.Sprintf("%s=%s", name, value))
}

// TempPath returns name inside the scenario's temp directory.
func (testCtx *TestContext) TempPath(name string) string {
	return filepath.Join(testCtx.TempDir, name)
}
