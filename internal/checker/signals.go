package checker

import (
	"fmt"
	"strings"
)

// Category groups indicators by what a match proves.
type Category string

const (
	CategoryCloudflare Category = "cloudflare"
	CategoryCDNProxy   Category = "cdnProxy"
	CategoryNameserver Category = "nameserver"
)

// Matcher tests a header (or nameserver) value.
type Matcher func(value string) bool

// Contains matches values containing substr, ignoring case.
func Contains(substr string) Matcher {
	needle := strings.ToLower(substr)
	return func(value string) bool {
		return strings.Contains(strings.ToLower(value), needle)
	}
}

// Indicator binds a header key to an optional value predicate and the
// evidence it produces. A nil Match accepts any non-empty value.
type Indicator struct {
	Key      string
	Match    Matcher
	Label    string
	Provider string
	Category Category
}

// Matches reports whether value satisfies the indicator.
func (i Indicator) Matches(value string) bool {
	if value == "" {
		return false
	}
	return i.Match == nil || i.Match(value)
}

// Evidence formats the evidence line for a matched value.
func (i Indicator) Evidence(value string) string {
	switch i.Category {
	case CategoryCDNProxy:
		return fmt.Sprintf("%s detected via header %q: %s", i.Provider, i.Key, value)
	case CategoryNameserver:
		return fmt.Sprintf("%s nameserver detected: %s", i.Provider, value)
	default:
		return fmt.Sprintf("%s: %s", i.Label, value)
	}
}

// CloudflareIndicators are evaluated first against every page probe.
var CloudflareIndicators = []Indicator{
	{Key: "cf-ray", Label: "CF-Ray header found", Provider: "Cloudflare", Category: CategoryCloudflare},
	{Key: "cf-cache-status", Label: "CF-Cache-Status header found", Provider: "Cloudflare", Category: CategoryCloudflare},
	{Key: "server", Match: Contains("cloudflare"), Label: "Server header indicates Cloudflare", Provider: "Cloudflare", Category: CategoryCloudflare},
	{Key: KeyCloudflareCookie, Label: "Cloudflare cookie detected", Provider: "Cloudflare", Category: CategoryCloudflare},
	{Key: KeyCloudflareScripts, Label: "Cloudflare scripts detected", Provider: "Cloudflare", Category: CategoryCloudflare},
	{Key: KeyCloudflareCaptcha, Label: "Cloudflare security challenge detected", Provider: "Cloudflare", Category: CategoryCloudflare},
	{Key: KeyCloudflareHoneypot, Label: "Cloudflare security honeypot detected", Provider: "Cloudflare", Category: CategoryCloudflare},
	{Key: "cf-ssl", Label: "Cloudflare SSL detected", Provider: "Cloudflare", Category: CategoryCloudflare},
}

// CDNIndicators name other CDNs and reverse proxies. Every match overwrites
// the previously detected provider.
var CDNIndicators = []Indicator{
	// Akamai
	cdn("server", Contains("akamaighost"), "Akamai"),
	cdn("x-akamai-transformed", nil, "Akamai"),
	cdn("x-cache", Contains("akamai"), "Akamai"),

	// Fastly
	cdn("x-served-by", Contains("cache-"), "Fastly"),
	cdn("x-cdn", Contains("fastly"), "Fastly"),
	cdn("via", Contains("varnish"), "Fastly"),

	// Sucuri
	cdn("server", Contains("sucuri"), "Sucuri"),
	cdn("x-sucuri-id", nil, "Sucuri"),
	cdn("x-sucuri-cache", nil, "Sucuri"),

	// Imperva
	cdn("x-iinfo", nil, "Incapsula"),
	cdn("x-cdn", Contains("incapsula"), "Incapsula"),

	// AWS
	cdn("x-amz-cf-id", nil, "Amazon CloudFront"),
	cdn("x-amz-cf-pop", nil, "Amazon CloudFront"),
	cdn("via", Contains("cloudfront"), "Amazon CloudFront"),
	cdn("x-cache", Contains("cloudfront"), "Amazon CloudFront"),

	cdn("server", Contains("netdna"), "StackPath"),
	cdn("x-cdn", Contains("stackpath"), "StackPath"),
	cdn("server", Contains("bunnycdn"), "BunnyCDN"),
	cdn("server", Contains("keycdn"), "KeyCDN"),
	cdn("server", Contains("cdn77"), "CDN77"),
	cdn("x-cdn", Contains("cdn77"), "CDN77"),
}

// NameserverIndicators are tried in order against each nameserver; the first
// match wins for that nameserver.
var NameserverIndicators = []Indicator{
	{Key: "cloudflare", Match: Contains("cloudflare"), Provider: "Cloudflare", Category: CategoryCloudflare, Label: "Cloudflare nameserver detected"},
	nameserver("akamai", "Akamai"),
	nameserver("fastly", "Fastly"),
	nameserver("incapdns", "Incapsula"),
	nameserver("sucuridns", "Sucuri"),
	nameserver("cdns.net", "CDNetworks"),
}

func cdn(key string, match Matcher, provider string) Indicator {
	return Indicator{Key: key, Match: match, Provider: provider, Category: CategoryCDNProxy}
}

func nameserver(substr, provider string) Indicator {
	return Indicator{Key: substr, Match: Contains(substr), Provider: provider, Category: CategoryNameserver}
}

// CustomIndicator builds a CDN indicator from configuration. An empty contains
// matches any value.
func CustomIndicator(header, contains, provider string) Indicator {
	var match Matcher
	if contains != "" {
		match = Contains(contains)
	}
	return cdn(strings.ToLower(header), match, provider)
}

// Match is a single indicator hit.
type Match struct {
	Indicator Indicator
	Value     string
}

// Evaluate runs a catalog against normalized headers and returns every hit in
// catalog order.
func Evaluate(catalog []Indicator, headers NormalizedHeaders) []Match {
	var matches []Match
	for _, indicator := range catalog {
		value := headers.Get(indicator.Key)
		if indicator.Matches(value) {
			matches = append(matches, Match{Indicator: indicator, Value: value})
		}
	}
	return matches
}

// MatchNameserver returns the first nameserver indicator matching ns.
func MatchNameserver(catalog []Indicator, ns string) (Indicator, bool) {
	for _, indicator := range catalog {
		if indicator.Matches(ns) {
			return indicator, true
		}
	}
	return Indicator{}, false
}
