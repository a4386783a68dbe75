package cmd

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/khanhnv2901/cfcheck/internal/checker"
	"github.com/khanhnv2901/cfcheck/internal/report"
)

type stubFetcher struct{ calls int }

func (s *stubFetcher) Fetch(context.Context, string) (*checker.Envelope, error) {
	s.calls++
	return &checker.Envelope{Headers: map[string]interface{}{"cf-ray": "abc"}}, nil
}

func (s *stubFetcher) Name() string { return "stub" }

type stubResolver struct{}

func (stubResolver) LookupNS(_ context.Context, host string) ([]string, string, error) {
	return []string{"ns1.cloudflare.com"}, host, nil
}

type stubCerts struct{}

func (stubCerts) Lookup(context.Context, string) ([]checker.CertRecord, error) {
	return nil, nil
}

func newStubChecker(fetcher *stubFetcher) *checker.CloudflareChecker {
	return &checker.CloudflareChecker{
		Fetcher:      fetcher,
		Resolver:     stubResolver{},
		Certificates: stubCerts{},
		Aggregator:   &checker.Aggregator{},
	}
}

func TestRunInteractive(t *testing.T) {
	disableColor(t)

	fetcher := &stubFetcher{}
	in := strings.NewReader("example.com\n\nq\nnever.example\n")
	var out bytes.Buffer

	if err := runInteractive(context.Background(), in, &out, report.FormatText, newStubChecker(fetcher)); err != nil {
		t.Fatalf("runInteractive returned error: %v", err)
	}

	text := out.String()
	if !strings.Contains(text, "Checking website...") {
		t.Fatalf("expected loading line, got:\n%s", text)
	}
	if !strings.Contains(text, "CF-Ray header found: abc") {
		t.Fatalf("expected result for example.com, got:\n%s", text)
	}
	if !strings.Contains(text, emptyInputMessage) {
		t.Fatalf("expected empty input message, got:\n%s", text)
	}
	if fetcher.calls != 1 {
		t.Fatalf("expected exactly one check before quitting, got %d", fetcher.calls)
	}
}

func TestRunInteractiveStopsAtEOF(t *testing.T) {
	fetcher := &stubFetcher{}
	var out bytes.Buffer

	err := runInteractive(context.Background(), strings.NewReader("example.com"), &out, report.FormatJSON, newStubChecker(fetcher))
	if err != nil {
		t.Fatalf("runInteractive returned error: %v", err)
	}
	if fetcher.calls != 1 {
		t.Fatalf("expected the final unterminated line to be checked, got %d calls", fetcher.calls)
	}
	if strings.Contains(out.String(), "Checking website...") {
		t.Fatal("loading line is only printed for text output")
	}
}
