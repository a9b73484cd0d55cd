package support

import (
	"fmt"
	"net/http/httptest"

	"github.com/MeKo-Tech/platefinder/internal/lookup"
	"github.com/MeKo-Tech/platefinder/internal/ocr"
	"github.com/MeKo-Tech/platefinder/internal/pipeline"
	"github.com/MeKo-Tech/platefinder/internal/server"
)

// HTTPTestServerWrapper wraps httptest.Server for integration tests.
type HTTPTestServerWrapper struct {
	Server     *httptest.Server
	TestServer *server.Server
}

// serverPlate is the text the static recognizer reads from every region.
const serverPlate = "abc-123"

// createTestHTTPServer serves the real handlers. Recognition is replaced
// by a static reader so no OCR engine is needed.
func (testCtx *TestContext) createTestHTTPServer(cfg server.Config) error {
	pl, err := pipeline.NewBuilder().
		WithRecognizer(ocr.Static{Text: serverPlate}).
		WithLookup(lookup.NewMemoryStore(lookup.Database{
			"ABC123": {Make: "Toyota", Model: "Corolla", Year: 2018, Owner: "Jane Doe"},
		})).
		WithParallelWorkers(2).
		Build()
	if err != nil {
		return fmt.Errorf("failed to build plate pipeline: %w", err)
	}

	plateServer := server.NewServer(cfg, pl)
	testCtx.HTTPTestServer = &HTTPTestServerWrapper{
		Server:     httptest.NewServer(plateServer.Handler()),
		TestServer: plateServer,
	}
	return nil
}

// defaultServerConfig mirrors the CLI defaults.
func defaultServerConfig() server.Config {
	return server.Config{
		CORSOrigin:     "*",
		MaxUploadMB:    10,
		TimeoutSec:     30,
		OverlayEnabled: true,
		OverlayColor:   "#00FF00",
		MaxBatchItems:  server.DefaultMaxBatchItems,
		Version:        "integration",
	}
}

// stopTestHTTPServer stops the httptest server.
func (testCtx *TestContext) stopTestHTTPServer() error {
	if testCtx.HTTPTestServer == nil {
		return nil
	}
	testCtx.HTTPTestServer.Server.Close()
	err := testCtx.HTTPTestServer.TestServer.Close()
	testCtx.HTTPTestServer = nil
	return err
}

// GetServerURL returns the base URL of the running test server.
func (testCtx *TestContext) GetServerURL() string {
	if testCtx.HTTPTestServer == nil {
		return ""
	}
	return testCtx.HTTPTestServer.Server.URL
}
