package checker

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	consts "github.com/khanhnv2901/cfcheck/internal/shared/constants"
	sharedErrors "github.com/khanhnv2901/cfcheck/internal/shared/errors"
)

// Envelope is the JSON document returned by the relay: the raw page body plus
// whatever headers the relay chose to expose.
type Envelope struct {
	Contents string                 `json:"contents"`
	Headers  map[string]interface{} `json:"headers,omitempty"`
	Status   *EnvelopeStatus        `json:"status,omitempty"`

	// Truncated is set by DirectFetcher when Contents was cut at its size limit.
	Truncated bool `json:"-"`
}

// EnvelopeStatus mirrors the relay's status block.
type EnvelopeStatus struct {
	URL          string                 `json:"url,omitempty"`
	ContentType  string                 `json:"content_type,omitempty"`
	HTTPCode     int                    `json:"http_code,omitempty"`
	ResponseTime int                    `json:"response_time,omitempty"`
	Headers      map[string]interface{} `json:"headers,omitempty"`
}

// Fetcher retrieves a URL and returns it wrapped in an Envelope. The page and
// certificate probes share one Fetcher.
type Fetcher interface {
	Fetch(ctx context.Context, target string) (*Envelope, error)
	Name() string
}

// NewHTTPClient returns the client used by every probe. Timeouts are applied
// per probe through the request context.
func NewHTTPClient() *http.Client {
	return &http.Client{
		Transport: &http.Transport{
			Proxy:           http.ProxyFromEnvironment,
			TLSClientConfig: &tls.Config{MinVersion: tls.VersionTLS12},
		},
	}
}

// RelayFetcher asks a CORS relay (allorigins-compatible) for the target.
// MaxBytes bounds the envelope (0 = MaxBodyBytes); a larger envelope is a
// parse error since a cut JSON document cannot be decoded.
type RelayFetcher struct {
	Client    *http.Client
	BaseURL   string
	Param     string
	UserAgent string
	MaxBytes  int64
}

// Fetch performs GET <BaseURL>?<Param>=<target> and decodes the envelope.
func (f *RelayFetcher) Fetch(ctx context.Context, target string) (*Envelope, error) {
	relayURL, err := url.Parse(f.BaseURL)
	if err != nil {
		return nil, sharedErrors.NewNetworkError(f.Name(), fmt.Errorf("parse relay URL: %w", err))
	}
	param := f.Param
	if param == "" {
		param = consts.DefaultRelayParam
	}
	q := relayURL.Query()
	q.Set(param, target)
	relayURL.RawQuery = q.Encode()

	limit := bodyLimit(f.MaxBytes)
	resp, body, truncated, err := doGet(ctx, f.Client, relayURL.String(), "application/json", f.UserAgent, limit)
	if err != nil {
		return nil, sharedErrors.NewNetworkError(f.Name(), err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, sharedErrors.NewNetworkError(f.Name(), fmt.Errorf("unexpected status %d", resp.StatusCode))
	}
	if truncated {
		return nil, sharedErrors.NewParseError(f.Name(), fmt.Errorf("%w: envelope larger than %d bytes", sharedErrors.ErrTooLarge, limit))
	}

	var env Envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, sharedErrors.NewParseError(f.Name(), fmt.Errorf("decode envelope: %w", err))
	}

	return &env, nil
}

// Name returns the name of this fetcher
func (f *RelayFetcher) Name() string {
	return "relay"
}

// DirectFetcher requests the target itself and builds the envelope from the
// real response. Any status code is accepted: challenge pages are evidence.
// A body over MaxBytes (0 = MaxBodyBytes) is cut and the envelope is marked
// Truncated; the headers stay complete.
type DirectFetcher struct {
	Client    *http.Client
	UserAgent string
	MaxBytes  int64
}

// Fetch performs a plain GET against target.
func (f *DirectFetcher) Fetch(ctx context.Context, target string) (*Envelope, error) {
	resp, body, truncated, err := doGet(ctx, f.Client, target, "", f.UserAgent, bodyLimit(f.MaxBytes))
	if err != nil {
		return nil, sharedErrors.NewNetworkError(f.Name(), err)
	}

	headers := make(map[string]interface{}, len(resp.Header))
	for key, values := range resp.Header {
		sep := ", "
		if strings.EqualFold(key, "Set-Cookie") {
			sep = "; "
		}
		headers[key] = strings.Join(values, sep)
	}

	finalURL := target
	if resp.Request != nil && resp.Request.URL != nil {
		finalURL = resp.Request.URL.String()
	}

	return &Envelope{
		Contents: string(body),
		Headers:  headers,
		Status: &EnvelopeStatus{
			URL:         finalURL,
			ContentType: resp.Header.Get("Content-Type"),
			HTTPCode:    resp.StatusCode,
		},
		Truncated: truncated,
	}, nil
}

// Name returns the name of this fetcher
func (f *DirectFetcher) Name() string {
	return "direct"
}

func bodyLimit(n int64) int64 {
	if n <= 0 {
		return consts.MaxBodyBytes
	}
	return n
}

// doGet issues a GET and reads at most limit bytes of the body. truncated
// reports whether the body had more.
func doGet(ctx context.Context, client *http.Client, target, accept, userAgent string, limit int64) (resp *http.Response, body []byte, truncated bool, err error) {
	if client == nil {
		client = NewHTTPClient()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, nil, false, fmt.Errorf("create request: %w", err)
	}
	if accept != "" {
		req.Header.Set("Accept", accept)
	}
	if userAgent == "" {
		userAgent = consts.DefaultUserAgent
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err = client.Do(req)
	if err != nil {
		return nil, nil, false, err
	}
	defer resp.Body.Close()

	body, err = io.ReadAll(io.LimitReader(resp.Body, limit+1))
	if err != nil {
		return nil, nil, false, fmt.Errorf("read body: %w", err)
	}
	if int64(len(body)) > limit {
		return resp, body[:limit], true, nil
	}

	return resp, body, false, nil
}
