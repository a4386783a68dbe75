package checker

import (
	"fmt"
	"strings"

	"go.uber.org/zap"
)

const contentFallbackEvidence = "Cloudflare mentioned in page content"

// Aggregator scores probe responses into a Result. CDN defaults to
// CDNIndicators when nil.
type Aggregator struct {
	CDN    []Indicator
	Logger *zap.Logger
}

func (a *Aggregator) logger() *zap.Logger {
	if a == nil || a.Logger == nil {
		return zap.NewNop()
	}
	return a.Logger
}

func (a *Aggregator) cdnCatalog() []Indicator {
	if a == nil || a.CDN == nil {
		return CDNIndicators
	}
	return a.CDN
}

// ScorePage evaluates the page probe: Cloudflare catalog, CDN catalog, then the
// raw content fallback. A failure inside evaluation is appended to the
// evidence and never propagates.
func (a *Aggregator) ScorePage(res *Result, env *Envelope) {
	// An envelope with neither body nor top-level headers carries no signal.
	if env == nil || (env.Contents == "" && env.Headers == nil) {
		return
	}

	defer func() {
		if r := recover(); r != nil {
			res.AddEvidence(fmt.Sprintf("Error processing response: %v", r))
		}
	}()

	headers := NormalizeHeaders(env, a.logger())

	for _, m := range Evaluate(CloudflareIndicators, headers) {
		res.MarkCloudflare(m.Indicator.Evidence(m.Value))
	}

	for _, m := range Evaluate(a.cdnCatalog(), headers) {
		res.SetCDN(m.Indicator.Provider, m.Indicator.Evidence(m.Value))
	}

	if strings.Contains(strings.ToLower(env.Contents), "cloudflare") {
		res.MarkCloudflare(contentFallbackEvidence)
	}
}

// ScoreNameservers stores the nameservers and scores each one against
// NameserverIndicators, first match per nameserver.
func (a *Aggregator) ScoreNameservers(res *Result, nameservers []string) {
	res.SetNameservers(nameservers)

	for _, ns := range res.Nameservers {
		indicator, ok := MatchNameserver(NameserverIndicators, ns)
		if !ok {
			continue
		}
		evidence := indicator.Evidence(ns)
		if indicator.Category == CategoryCloudflare {
			res.MarkCloudflare(evidence)
			res.AddNSEvidence(evidence)
			continue
		}
		res.SetNameserverCDN(indicator.Provider, evidence)
	}
}

// ScoreCertificate inspects only the first (most recent) certificate record.
// Certificates never change the CDN/proxy verdict.
func (a *Aggregator) ScoreCertificate(res *Result, certs []CertRecord) {
	if len(certs) == 0 {
		return
	}

	issuer := certs[0].IssuerName
	lower := strings.ToLower(issuer)
	switch {
	case strings.Contains(lower, "cloudflare"):
		res.SetSSL(fmt.Sprintf("Cloudflare SSL Certificate detected (Issuer: %s)", issuer))
	case strings.Contains(lower, "universal ssl"):
		res.SetSSL("Cloudflare Universal SSL detected")
	}
}
