package support

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"

	"github.com/cucumber/godog"

	"github.com/MeKo-Tech/qrlens/internal/barcode"
	"github.com/MeKo-Tech/qrlens/internal/server"
)

func (testCtx *TestContext) startServer(cfg server.Config) error {
	if testCtx.Server != nil {
		testCtx.Server.Close()
	}
	testCtx.Server = httptest.NewServer(server.NewServer(cfg, barcode.NewBackend()).Handler())
	return nil
}

func (testCtx *TestContext) theServerIsRunning() error {
	return testCtx.startServer(server.Config{})
}

func (testCtx *TestContext) theServerIsRunningWithRateLimit(perMinute int) error {
	return testCtx.startServer(server.Config{
		RateLimit: server.RateLimitConfig{Enabled: true, RequestsPerMinute: perMinute},
	})
}

func (testCtx *TestContext) do(req *http.Request) error {
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	testCtx.LastHTTPStatusCode = resp.StatusCode
	testCtx.LastHTTPResponse = string(body)
	testCtx.LastHTTPHeaders = resp.Header
	return nil
}

func (testCtx *TestContext) request(method, path string, body io.Reader, contentType string) error {
	if testCtx.Server == nil {
		return fmt.Errorf("server is not running")
	}
	req, err := http.NewRequestWithContext(context.Background(), method, testCtx.Server.URL+path, body)
	if err != nil {
		return err
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	return testCtx.do(req)
}

func (testCtx *TestContext) iSendRequest(method, path string) error {
	return testCtx.request(method, path, nil, "")
}

func (testCtx *TestContext) iUploadAs(name, field, path string) error {
	data, err := os.ReadFile(testCtx.Path(name))
	if err != nil {
		return err
	}
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile(field, filepath.Base(name))
	if err != nil {
		return err
	}
	if _, err := part.Write(data); err != nil {
		return err
	}
	if err := w.Close(); err != nil {
		return err
	}
	return testCtx.request(http.MethodPost, path, &buf, w.FormDataContentType())
}

func (testCtx *TestContext) iPostJSON(path string, body *godog.DocString) error {
	return testCtx.request(http.MethodPost, path, strings.NewReader(body.Content), "application/json")
}

func (testCtx *TestContext) theResponseStatusShouldBe(code int) error {
	if testCtx.LastHTTPStatusCode != code {
		return fmt.Errorf("status %d, want %d: %s", testCtx.LastHTTPStatusCode, code, testCtx.LastHTTPResponse)
	}
	return nil
}

func (testCtx *TestContext) theResponseShouldContain(want string) error {
	if !strings.Contains(testCtx.LastHTTPResponse, want) {
		return fmt.Errorf("response does not contain %q: %s", want, testCtx.LastHTTPResponse)
	}
	return nil
}

func (testCtx *TestContext) theResponseJSONFieldShouldBe(path, want string) error {
	return jsonFieldEquals(testCtx.LastHTTPResponse, path, want)
}

func (testCtx *TestContext) theResponseHeaderShouldBe(name, want string) error {
	if got := testCtx.LastHTTPHeaders.Get(name); got != want {
		return fmt.Errorf("header %s = %q, want %q", name, got, want)
	}
	return nil
}

// RegisterServerSteps registers HTTP server steps.
func (testCtx *TestContext) RegisterServerSteps(sc *godog.ScenarioContext) {
	sc.Step(`^the qrlens server is running$`, testCtx.theServerIsRunning)
	sc.Step(`^the qrlens server is running with a limit of (\d+) requests? per minute$`, testCtx.theServerIsRunningWithRateLimit)
	sc.Step(`^I send a (GET|DELETE|OPTIONS) request to "([^"]*)"$`, testCtx.iSendRequest)
	sc.Step(`^I upload "([^"]*)" as "([^"]*)" to "([^"]*)"$`, testCtx.iUploadAs)
	sc.Step(`^I POST JSON to "([^"]*)":$`, testCtx.iPostJSON)
	sc.Step(`^the response status should be (\d+)$`, testCtx.theResponseStatusShouldBe)
	sc.Step(`^the response should contain "([^"]*)"$`, testCtx.theResponseShouldContain)
	sc.Step(`^the response JSON field "([^"]*)" should be "([^"]*)"$`, testCtx.theResponseJSONFieldShouldBe)
	sc.Step(`^the response header "([^"]*)" should be "([^"]*)"$`, testCtx.theResponseHeaderShouldBe)
}
