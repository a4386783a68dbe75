package checker

import (
	"fmt"
	"net/url"
	"strings"

	sharedErrors "github.com/khanhnv2901/cfcheck/internal/shared/errors"
)

// TargetInfo contains parsed target information
type TargetInfo struct {
	Original string // Original target string, untrimmed
	Scheme   string // http or https
	Host     string // Hostname (without scheme, path, port)
	Port     string // Port if specified
	Path     string // Path if specified
	FullURL  string // Normalized URL used for the page probe
}

// ParseTarget trims the raw input and normalizes it into a URL. Inputs without
// an http:// or https:// prefix get https:// prepended verbatim, so
// "example.com/a" becomes "https://example.com/a".
//
// Accepted forms:
//   - example.com
//   - http://example.com
//   - https://example.com:443/path
//   - example.com:8080
func ParseTarget(target string) (*TargetInfo, error) {
	trimmed := strings.TrimSpace(target)
	if trimmed == "" {
		return nil, sharedErrors.ErrEmptyTarget
	}

	full := trimmed
	if !strings.HasPrefix(full, "http://") && !strings.HasPrefix(full, "https://") {
		full = "https://" + full
	}

	info := &TargetInfo{
		Original: target,
		FullURL:  full,
	}

	parsed, err := url.Parse(full)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", sharedErrors.ErrInvalidTarget, err)
	}

	info.Scheme = parsed.Scheme
	info.Host = strings.ToLower(parsed.Hostname())
	info.Port = parsed.Port()
	info.Path = parsed.Path

	if info.Host == "" {
		return nil, fmt.Errorf("%w: no host in %q", sharedErrors.ErrInvalidTarget, trimmed)
	}

	return info, nil
}

// NormalizeHTTPTarget returns the full URL for a target, or "" if it is invalid.
func NormalizeHTTPTarget(target string) string {
	info, err := ParseTarget(target)
	if err != nil {
		return ""
	}
	return info.FullURL
}

// ExtractHost extracts just the hostname from a target.
// This is what the nameserver and certificate probes query.
func ExtractHost(target string) string {
	info, err := ParseTarget(target)
	if err != nil {
		return ""
	}
	return info.Host
}
