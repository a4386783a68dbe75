package checker

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	consts "github.com/khanhnv2901/cfcheck/internal/shared/constants"
	sharedErrors "github.com/khanhnv2901/cfcheck/internal/shared/errors"
)

// CertRecord is one entry of a crt.sh JSON search result.
type CertRecord struct {
	ID             int64  `json:"id"`
	IssuerCAID     int64  `json:"issuer_ca_id"`
	IssuerName     string `json:"issuer_name"`
	CommonName     string `json:"common_name"`
	NameValue      string `json:"name_value"`
	EntryTimestamp string `json:"entry_timestamp"`
	NotBefore      string `json:"not_before"`
	NotAfter       string `json:"not_after"`
	SerialNumber   string `json:"serial_number"`
}

// CertSearch queries a certificate-transparency log search through a Fetcher.
// Limit stops decoding after that many records (0 = all).
type CertSearch struct {
	Fetcher Fetcher
	URL     string
	Limit   int
}

// SearchURL builds <URL>?q=<host>&output=json.
func (c *CertSearch) SearchURL(host string) (string, error) {
	base := c.URL
	if base == "" {
		base = consts.DefaultCrtShURL
	}
	u, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("parse certificate search URL: %w", err)
	}
	q := u.Query()
	q.Set("q", host)
	q.Set("output", "json")
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// Lookup returns the certificate records for host in the order the log
// search returned them.
func (c *CertSearch) Lookup(ctx context.Context, host string) ([]CertRecord, error) {
	searchURL, err := c.SearchURL(host)
	if err != nil {
		return nil, sharedErrors.NewParseError(c.Name(), err)
	}

	env, err := c.Fetcher.Fetch(ctx, searchURL)
	if err != nil {
		return nil, err
	}

	contents := strings.TrimSpace(env.Contents)
	if contents == "" {
		return nil, nil
	}

	records, err := c.decode(contents)
	if err != nil {
		if env.Truncated {
			err = fmt.Errorf("%w: %v", sharedErrors.ErrTooLarge, err)
		}
		return nil, sharedErrors.NewParseError(c.Name(), fmt.Errorf("decode certificates: %w", err))
	}
	return records, nil
}

// decode reads the record array one element at a time so a search with a
// Limit never touches the tail of a huge log.
func (c *CertSearch) decode(contents string) ([]CertRecord, error) {
	dec := json.NewDecoder(strings.NewReader(contents))
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '[' {
		return nil, fmt.Errorf("expected array, got %v", tok)
	}

	var records []CertRecord
	for dec.More() {
		var record CertRecord
		if err := dec.Decode(&record); err != nil {
			return nil, err
		}
		records = append(records, record)
		if c.Limit > 0 && len(records) >= c.Limit {
			return records, nil
		}
	}
	if _, err := dec.Token(); err != nil {
		return nil, err
	}
	return records, nil
}

// Name returns the name of this probe transport
func (c *CertSearch) Name() string {
	return "crt.sh"
}
