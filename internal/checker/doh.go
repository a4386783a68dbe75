package checker

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"

	"github.com/miekg/dns"
	"golang.org/x/net/publicsuffix"

	consts "github.com/khanhnv2901/cfcheck/internal/shared/constants"
	sharedErrors "github.com/khanhnv2901/cfcheck/internal/shared/errors"
)

// DoH answer formats.
const (
	DoHFormatJSON = "json"
	DoHFormatWire = "wire"
)

// DoHResolver looks up NS records through a DNS-over-HTTPS endpoint.
type DoHResolver struct {
	Client    *http.Client
	URL       string
	Format    string // json (default) or wire
	UserAgent string

	// ApexFallback re-queries the registrable domain once when the host
	// itself has no NS records (www.example.com -> example.com).
	ApexFallback bool
}

// dohJSONResponse is the application/dns-json answer shape.
type dohJSONResponse struct {
	Status int         `json:"Status"`
	Answer []dohAnswer `json:"Answer"`
}

type dohAnswer struct {
	Name string `json:"name"`
	Type uint16 `json:"type"`
	TTL  int    `json:"TTL"`
	Data string `json:"data"`
}

// LookupNS returns the lower-cased nameservers of host and the name that
// produced them.
func (d *DoHResolver) LookupNS(ctx context.Context, host string) ([]string, string, error) {
	names, err := d.query(ctx, host)
	if err != nil {
		return nil, host, err
	}
	if len(names) > 0 || !d.ApexFallback || net.ParseIP(host) != nil {
		return names, host, nil
	}

	apex, err := publicsuffix.EffectiveTLDPlusOne(host)
	if err != nil || apex == host {
		return names, host, nil
	}

	names, err = d.query(ctx, apex)
	if err != nil {
		return nil, apex, err
	}
	return names, apex, nil
}

func (d *DoHResolver) query(ctx context.Context, name string) ([]string, error) {
	if _, ok := dns.IsDomainName(name); !ok {
		return nil, sharedErrors.NewParseError(d.Name(), fmt.Errorf("invalid domain name %q", name))
	}

	switch strings.ToLower(d.Format) {
	case "", DoHFormatJSON:
		return d.queryJSON(ctx, name)
	case DoHFormatWire:
		return d.queryWire(ctx, name)
	default:
		return nil, sharedErrors.NewParseError(d.Name(), fmt.Errorf("unsupported DoH format %q", d.Format))
	}
}

func (d *DoHResolver) queryJSON(ctx context.Context, name string) ([]string, error) {
	endpoint, err := d.endpoint(url.Values{
		"name": {name},
		"type": {"NS"},
	})
	if err != nil {
		return nil, err
	}

	resp, body, truncated, err := doGet(ctx, d.Client, endpoint, consts.MIMEDNSJSON, d.UserAgent, consts.MaxBodyBytes)
	if err != nil {
		return nil, sharedErrors.NewNetworkError(d.Name(), err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, sharedErrors.NewNetworkError(d.Name(), fmt.Errorf("unexpected status %d", resp.StatusCode))
	}
	if truncated {
		return nil, sharedErrors.NewParseError(d.Name(), sharedErrors.ErrTooLarge)
	}

	var answer dohJSONResponse
	if err := json.Unmarshal(body, &answer); err != nil {
		return nil, sharedErrors.NewParseError(d.Name(), fmt.Errorf("decode answer: %w", err))
	}

	names := make([]string, 0, len(answer.Answer))
	for _, rr := range answer.Answer {
		if rr.Type != dns.TypeNS || rr.Data == "" {
			continue
		}
		names = append(names, normalizeNameserver(rr.Data))
	}
	return names, nil
}

func (d *DoHResolver) queryWire(ctx context.Context, name string) ([]string, error) {
	msg := new(dns.Msg)
	msg.SetQuestion(dns.Fqdn(name), dns.TypeNS)
	msg.Id = 0 // RFC 8484 4.1: use ID 0 for cache friendliness

	packed, err := msg.Pack()
	if err != nil {
		return nil, sharedErrors.NewParseError(d.Name(), fmt.Errorf("pack query: %w", err))
	}

	endpoint, err := d.endpoint(url.Values{
		"dns": {base64.RawURLEncoding.EncodeToString(packed)},
	})
	if err != nil {
		return nil, err
	}

	resp, body, truncated, err := doGet(ctx, d.Client, endpoint, consts.MIMEDNSMessage, d.UserAgent, consts.MaxBodyBytes)
	if err != nil {
		return nil, sharedErrors.NewNetworkError(d.Name(), err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, sharedErrors.NewNetworkError(d.Name(), fmt.Errorf("unexpected status %d", resp.StatusCode))
	}
	if truncated {
		return nil, sharedErrors.NewParseError(d.Name(), sharedErrors.ErrTooLarge)
	}

	reply := new(dns.Msg)
	if err := reply.Unpack(body); err != nil {
		return nil, sharedErrors.NewParseError(d.Name(), fmt.Errorf("unpack answer: %w", err))
	}

	names := make([]string, 0, len(reply.Answer))
	for _, rr := range reply.Answer {
		if ns, ok := rr.(*dns.NS); ok && ns.Ns != "" {
			names = append(names, normalizeNameserver(ns.Ns))
		}
	}
	return names, nil
}

func (d *DoHResolver) endpoint(params url.Values) (string, error) {
	base := d.URL
	if base == "" {
		base = consts.DefaultDoHURL
	}
	u, err := url.Parse(base)
	if err != nil {
		return "", sharedErrors.NewNetworkError(d.Name(), fmt.Errorf("parse resolver URL: %w", err))
	}
	q := u.Query()
	for key, values := range params {
		for _, v := range values {
			q.Set(key, v)
		}
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// Name returns the name of this resolver
func (d *DoHResolver) Name() string {
	return "doh"
}

func normalizeNameserver(ns string) string {
	return strings.TrimSuffix(strings.ToLower(strings.TrimSpace(ns)), ".")
}
