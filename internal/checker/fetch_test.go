package checker

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	sharedErrors "github.com/khanhnv2901/cfcheck/internal/shared/errors"
)

func newStaticServer(t *testing.T, status int, contentType, body string) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", contentType)
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(server.Close)
	return server
}

func TestRelayFetcher_Fetch(t *testing.T) {
	var gotTarget, gotUA string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotTarget = r.URL.Query().Get("target")
		gotUA = r.Header.Get("User-Agent")
		writeTestJSON(w, map[string]interface{}{
			"contents": "<html></html>",
			"headers":  map[string]interface{}{"cf-ray": "abc-AMS"},
			"status":   map[string]interface{}{"url": "https://example.com/", "http_code": 200},
		})
	}))
	defer server.Close()

	fetcher := &RelayFetcher{BaseURL: server.URL, Param: "target", UserAgent: "cfcheck-test"}
	env, err := fetcher.Fetch(context.Background(), "https://example.com")
	if err != nil {
		t.Fatalf("Fetch returned error: %v", err)
	}

	if gotTarget != "https://example.com" {
		t.Errorf("Expected relay param 'https://example.com', got '%s'", gotTarget)
	}
	if gotUA != "cfcheck-test" {
		t.Errorf("Expected User-Agent 'cfcheck-test', got '%s'", gotUA)
	}
	if env.Contents != "<html></html>" {
		t.Errorf("unexpected contents: %s", env.Contents)
	}
	if env.Headers["cf-ray"] != "abc-AMS" {
		t.Errorf("unexpected headers: %v", env.Headers)
	}
	if env.Status == nil || env.Status.HTTPCode != 200 {
		t.Errorf("unexpected status block: %+v", env.Status)
	}
}

func TestRelayFetcher_Errors(t *testing.T) {
	testCases := []struct {
		name   string
		status int
		body   string
		kind   error
	}{
		{"non-2xx", http.StatusBadGateway, "", sharedErrors.ErrProbeNetwork},
		{"malformed envelope", http.StatusOK, "<html>", sharedErrors.ErrParse},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			server := newStaticServer(t, tc.status, "application/json", tc.body)
			fetcher := &RelayFetcher{BaseURL: server.URL}

			_, err := fetcher.Fetch(context.Background(), "https://example.com")
			if !errors.Is(err, tc.kind) {
				t.Errorf("Expected %v, got %v", tc.kind, err)
			}
		})
	}
}

func TestRelayFetcher_Unreachable(t *testing.T) {
	server := newStaticServer(t, http.StatusOK, "application/json", "{}")
	baseURL := server.URL
	server.Close()

	fetcher := &RelayFetcher{BaseURL: baseURL}
	_, err := fetcher.Fetch(context.Background(), "https://example.com")

	var probeErr *sharedErrors.ProbeError
	if !errors.As(err, &probeErr) {
		t.Fatalf("Expected ProbeError, got %T", err)
	}
	if probeErr.Probe != "relay" {
		t.Errorf("Expected probe 'relay', got '%s'", probeErr.Probe)
	}
}

func TestDirectFetcher_Fetch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Add("Set-Cookie", "session=1")
		w.Header().Add("Set-Cookie", "__cf_bm=abc; Path=/")
		w.Header().Set("Server", "cloudflare")
		w.Header().Set("Content-Type", "text/html")
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`<form id="cf-challenge-form"></form>`))
	}))
	defer server.Close()

	fetcher := &DirectFetcher{}
	env, err := fetcher.Fetch(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("Fetch returned error: %v", err)
	}

	if env.Headers["Set-Cookie"] != "session=1; __cf_bm=abc; Path=/" {
		t.Errorf("unexpected cookie folding: %v", env.Headers["Set-Cookie"])
	}
	if env.Status == nil || env.Status.HTTPCode != http.StatusForbidden {
		t.Errorf("Expected status 403 to be kept, got %+v", env.Status)
	}

	res := newTestResult(t)
	(&Aggregator{}).ScorePage(res, env)
	for _, want := range []string{
		"Server header indicates Cloudflare: cloudflare",
		"Cloudflare cookie detected: true",
		"Cloudflare security challenge detected: true",
	} {
		if !containsString(res.Evidence, want) {
			t.Errorf("Expected evidence '%s', got %v", want, res.Evidence)
		}
	}
}

func TestRelayFetcher_OversizedEnvelope(t *testing.T) {
	body := `{"contents":"` + strings.Repeat("x", 200) + `"}`
	server := newStaticServer(t, http.StatusOK, "application/json", body)

	fetcher := &RelayFetcher{BaseURL: server.URL, MaxBytes: 64}
	_, err := fetcher.Fetch(context.Background(), "https://example.com")
	if !errors.Is(err, sharedErrors.ErrParse) {
		t.Fatalf("Expected parse error, got %v", err)
	}
	if !errors.Is(err, sharedErrors.ErrTooLarge) {
		t.Errorf("Expected ErrTooLarge, got %v", err)
	}

	fetcher.MaxBytes = int64(len(body))
	if _, err := fetcher.Fetch(context.Background(), "https://example.com"); err != nil {
		t.Errorf("Expected a body of exactly MaxBytes to decode, got %v", err)
	}
}

func TestDirectFetcher_TruncatesLargeBody(t *testing.T) {
	server := newStaticServer(t, http.StatusOK, "text/html", strings.Repeat("a", 100))

	fetcher := &DirectFetcher{MaxBytes: 10}
	env, err := fetcher.Fetch(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("Fetch returned error: %v", err)
	}
	if !env.Truncated || len(env.Contents) != 10 {
		t.Errorf("Expected 10 truncated bytes, got %d (truncated=%v)", len(env.Contents), env.Truncated)
	}
	if env.Headers["Content-Type"] != "text/html" {
		t.Errorf("Expected headers to survive truncation, got %v", env.Headers)
	}
}
