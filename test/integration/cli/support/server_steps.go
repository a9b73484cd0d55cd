package support

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/cucumber/godog"
)

// thePlateServerIsRunning starts the test server with default settings.
func (testCtx *TestContext) thePlateServerIsRunning() error {
	if testCtx.HTTPTestServer != nil {
		return nil
	}
	return testCtx.createTestHTTPServer(defaultServerConfig())
}

// thePlateServerIsRunningWithOverlaysDisabled starts a server that refuses
// annotated image responses.
func (testCtx *TestContext) thePlateServerIsRunningWithOverlaysDisabled() error {
	cfg := defaultServerConfig()
	cfg.OverlayEnabled = false
	return testCtx.createTestHTTPServer(cfg)
}

// thePlateServerIsRunningWithALimitOfRequestsPerMinute starts a rate limited server.
func (testCtx *TestContext) thePlateServerIsRunningWithALimitOfRequestsPerMinute(limit int) error {
	cfg := defaultServerConfig()
	cfg.RateLimit.Enabled = true
	cfg.RateLimit.RequestsPerMinute = limit
	return testCtx.createTestHTTPServer(cfg)
}

// iPOSTTheImageTo uploads a fixture image as the "image" form field.
func (testCtx *TestContext) iPOSTTheImageTo(name, endpoint string) error {
	return testCtx.uploadImage(name, endpoint, "")
}

// iPOSTTheImageToWithFormat uploads a fixture image requesting a format.
func (testCtx *TestContext) iPOSTTheImageToWithFormat(name, endpoint, format string) error {
	return testCtx.uploadImage(name, endpoint, format)
}

func (testCtx *TestContext) uploadImage(name, endpoint, format string) error {
	data, err := os.ReadFile(testCtx.TempPath(name))
	if err != nil {
		return fmt.Errorf("failed to read fixture %s: %w", name, err)
	}

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("image", filepath.Base(name))
	if err != nil {
		return err
	}
	if _, err := part.Write(data); err != nil {
		return err
	}
	if format != "" {
		if err := writer.WriteField("format", format); err != nil {
			return err
		}
	}
	if err := writer.Close(); err != nil {
		return err
	}

	return testCtx.doRequest(http.MethodPost, endpoint, &body, writer.FormDataContentType())
}

// iGETEndpoint makes a GET request to endpoint.
func (testCtx *TestContext) iGETEndpoint(endpoint string) error {
	return testCtx.doRequest(http.MethodGet, endpoint, nil, "")
}

// iGETEndpointTimes repeats a GET request and keeps the last response.
func (testCtx *TestContext) iGETEndpointTimes(endpoint string, n int) error {
	for range n {
		if err := testCtx.iGETEndpoint(endpoint); err != nil {
			return err
		}
	}
	return nil
}

// doRequest sends one request and stores the response like a command run.
func (testCtx *TestContext) doRequest(method, endpoint string, body io.Reader, contentType string) error {
	if testCtx.HTTPTestServer == nil {
		return errors.New("the plate server is not running")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, method, testCtx.GetServerURL()+endpoint, body)
	if err != nil {
		return err
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := testCtx.HTTPTestServer.Server.Client().Do(req)
	if err != nil {
		return fmt.Errorf("request %s %s failed: %w", method, endpoint, err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	testCtx.LastOutput = string(respBody)
	testCtx.LastStderr = ""
	testCtx.LastHTTPStatusCode = resp.StatusCode
	testCtx.LastHTTPHeaders = map[string]string{}
	for k := range resp.Header {
		testCtx.LastHTTPHeaders[k] = resp.Header.Get(k)
	}
	testCtx.LastExitCode = 0
	testCtx.LastError = nil
	if resp.StatusCode >= 400 {
		testCtx.LastExitCode = 1
		testCtx.LastError = fmt.Errorf("HTTP %d", resp.StatusCode)
	}
	return nil
}

// theResponseStatusShouldBe verifies HTTP response status.
func (testCtx *TestContext) theResponseStatusShouldBe(expectedStatus int) error {
	if testCtx.LastHTTPStatusCode != expectedStatus {
		return fmt.Errorf("expected status %d, got %d\nBody: %s",
			expectedStatus, testCtx.LastHTTPStatusCode, testCtx.LastOutput)
	}
	return nil
}

// theResponseHeaderShouldContain verifies a response header value.
func (testCtx *TestContext) theResponseHeaderShouldContain(name, expected string) error {
	got := testCtx.LastHTTPHeaders[http.CanonicalHeaderKey(name)]
	if !strings.Contains(got, expected) {
		return fmt.Errorf("header %s is %q, expected it to contain %q", name, got, expected)
	}
	return nil
}

// RegisterServerSteps registers the HTTP server step definitions.
func (testCtx *TestContext) RegisterServerSteps(sc *godog.ScenarioContext) {
	sc.Step(`^the plate server is running$`, testCtx.thePlateServerIsRunning)
	sc.Step(`^the plate server is running with overlays disabled$`,
		testCtx.thePlateServerIsRunningWithOverlaysDisabled)
	sc.Step(`^the plate server is running with a limit of (\d+) requests per minute$`,
		testCtx.thePlateServerIsRunningWithALimitOfRequestsPerMinute)
	sc.Step(`^I POST the image "([^"]*)" to "([^"]*)"$`, testCtx.iPOSTTheImageTo)
	sc.Step(`^I POST the image "([^"]*)" to "([^"]*)" with format "([^"]*)"$`, testCtx.iPOSTTheImageToWithFormat)
	sc.Step(`^I GET "([^"]*)"$`, testCtx.iGETEndpoint)
	sc.Step(`^I GET "([^"]*)" (\d+) times$`, testCtx.iGETEndpointTimes)
	sc.Step(`^the response status should be (\d+)$`, testCtx.theResponseStatusShouldBe)
	sc.Step(`^the response header "([^"]*)" should contain "([^"]*)"$`, testCtx.theResponseHeaderShouldContain)
}
