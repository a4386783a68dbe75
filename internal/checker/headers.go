package checker

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"
)

// Synthetic header keys injected by cookie and content inspection.
const (
	KeyCloudflareCookie   = "cloudflare-cookie"
	KeyCloudflareScripts  = "cloudflare-scripts"
	KeyCloudflareCaptcha  = "cloudflare-captcha"
	KeyCloudflareHoneypot = "cloudflare-honeypot"

	syntheticTrue = "true"
)

var cloudflareCookieNames = []string{"__cf_bm", "__cflb"}

// NormalizedHeaders maps lower-cased header names (and synthetic flags) to values.
type NormalizedHeaders map[string]string

// Get returns the value stored for key, "" when absent.
func (h NormalizedHeaders) Get(key string) string {
	if h == nil {
		return ""
	}
	return h[strings.ToLower(key)]
}

// Keys returns the header names in sorted order.
func (h NormalizedHeaders) Keys() []string {
	keys := make([]string, 0, len(h))
	for k := range h {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// NormalizeHeaders builds the header map for a page probe envelope. Headers at
// the top level of the envelope win over status.headers; the two are never
// merged. Cookie and HTML inspection add synthetic flags. Failures are logged
// and whatever was built so far is returned.
func NormalizeHeaders(env *Envelope, logger *zap.Logger) (headers NormalizedHeaders) {
	if logger == nil {
		logger = zap.NewNop()
	}
	headers = NormalizedHeaders{}
	if env == nil {
		return headers
	}

	defer func() {
		if r := recover(); r != nil {
			logger.Warn("header normalization aborted", zap.Any("panic", r))
		}
	}()

	source := env.Headers
	if source == nil && env.Status != nil {
		source = env.Status.Headers
	}
	// Keys differing only in case collapse into one; sorting makes the
	// last one in byte order win on every run.
	keys := make([]string, 0, len(source))
	for key := range source {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		headers[strings.ToLower(key)] = stringifyHeaderValue(source[key])
	}

	cookies := strings.ToLower(headers["set-cookie"])
	for _, name := range cloudflareCookieNames {
		if strings.Contains(cookies, name) {
			headers[KeyCloudflareCookie] = syntheticTrue
			break
		}
	}

	if env.Contents != "" {
		if err := inspectContent(env.Contents, headers); err != nil {
			logger.Warn("failed to parse page content", zap.Error(err))
		}
	}

	return headers
}

// inspectContent parses the page as a DOM (scripts are never executed and no
// sub-resources are loaded) and sets the content-derived flags.
func inspectContent(contents string, headers NormalizedHeaders) error {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(contents))
	if err != nil {
		return fmt.Errorf("parse html: %w", err)
	}

	if doc.Find(`script[src*="cloudflare"]`).Length() > 0 {
		headers[KeyCloudflareScripts] = syntheticTrue
	}
	if doc.Find("#cf-challenge-form").Length() > 0 {
		headers[KeyCloudflareCaptcha] = syntheticTrue
	}
	if doc.Find(`[id^="cf-"]`).Length() > 0 {
		headers[KeyCloudflareHoneypot] = syntheticTrue
	}

	return nil
}

func stringifyHeaderValue(value interface{}) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case bool:
		return strconv.FormatBool(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case []string:
		return strings.Join(v, ", ")
	case []interface{}:
		parts := make([]string, 0, len(v))
		for _, item := range v {
			if s := stringifyHeaderValue(item); s != "" {
				parts = append(parts, s)
			}
		}
		return strings.Join(parts, ", ")
	default:
		return fmt.Sprint(v)
	}
}
