package constants

import (
	"io/fs"
	"time"
)

const (
	// DefaultDirPerm is the default permission used when creating directories.
	DefaultDirPerm fs.FileMode = 0o755
	// DefaultFilePerm is the default permission used when creating files.
	DefaultFilePerm fs.FileMode = 0o644
)

const (
	// DefaultRelayURL is the CORS relay used for the page and certificate probes.
	DefaultRelayURL = "https://api.allorigins.win/get"
	// DefaultRelayParam is the query parameter carrying the relayed URL.
	DefaultRelayParam = "url"
	// DefaultDoHURL is the DNS-over-HTTPS resolver queried for NS records.
	DefaultDoHURL = "https://cloudflare-dns.com/dns-query"
	// DefaultCrtShURL is the certificate-transparency search endpoint.
	DefaultCrtShURL = "https://crt.sh/"
	// DefaultUserAgent identifies outbound probe requests.
	DefaultUserAgent = "cfcheck/1.0 (+https://github.com/khanhnv2901/cfcheck)"
)

const (
	// ProbeTimeout bounds each individual network probe.
	ProbeTimeout = 10 * time.Second
	// MaxBodyBytes caps how much of a page or DoH response body is read.
	MaxBodyBytes = 5 << 20
	// MaxCertBodyBytes caps the certificate search response. Popular domains
	// have certificate logs far larger than a page.
	MaxCertBodyBytes = 64 << 20
)

const (
	// MIMEDNSJSON is the content type for JSON-formatted DoH answers.
	MIMEDNSJSON = "application/dns-json"
	// MIMEDNSMessage is the RFC 8484 wire-format content type.
	MIMEDNSMessage = "application/dns-message"
)
