package checker

import (
	"time"

	"github.com/hashicorp/go-multierror"
)

// Result accumulates the evidence gathered for one target. It is created at the
// start of a check, threaded through every probe stage and handed to the
// presenter. A Result is owned by a single check and must not be shared.
type Result struct {
	URL          string        `json:"url" yaml:"url"`
	Host         string        `json:"host" yaml:"host"`
	CheckedAt    time.Time     `json:"checked_at" yaml:"checked_at"`
	Duration     time.Duration `json:"duration_ns" yaml:"duration_ns"`
	IsCloudflare bool          `json:"is_cloudflare" yaml:"is_cloudflare"`
	Evidence     []string      `json:"evidence" yaml:"evidence"`
	CDNOrProxy   string        `json:"cdn_or_proxy,omitempty" yaml:"cdn_or_proxy,omitempty"`
	CDNEvidence  []string      `json:"cdn_evidence" yaml:"cdn_evidence"`
	Nameservers  []string      `json:"nameservers" yaml:"nameservers"`
	NSEvidence   []string      `json:"ns_evidence" yaml:"ns_evidence"`
	SSLEvidence  string        `json:"ssl_evidence,omitempty" yaml:"ssl_evidence,omitempty"`
	ProbeErrors  []string      `json:"probe_errors,omitempty" yaml:"probe_errors,omitempty"`

	nameserversSet bool
	errs           *multierror.Error
}

// NewResult returns an empty accumulator for the normalized target.
func NewResult(info *TargetInfo) *Result {
	return &Result{
		URL:         info.FullURL,
		Host:        info.Host,
		CheckedAt:   time.Now().UTC(),
		Evidence:    []string{},
		CDNEvidence: []string{},
		Nameservers: []string{},
		NSEvidence:  []string{},
	}
}

// MarkCloudflare flags the target as Cloudflare-fronted and records why.
// The flag is never cleared once set.
func (r *Result) MarkCloudflare(evidence string) {
	r.IsCloudflare = true
	r.Evidence = append(r.Evidence, evidence)
}

// AddEvidence appends to the general evidence list without changing the verdict.
func (r *Result) AddEvidence(evidence string) {
	r.Evidence = append(r.Evidence, evidence)
}

// SetCDN overwrites the detected CDN/proxy; the last match wins.
func (r *Result) SetCDN(provider, evidence string) {
	r.CDNOrProxy = provider
	r.CDNEvidence = append(r.CDNEvidence, evidence)
}

// SetNameserverCDN is SetCDN for a nameserver match: the provider is
// overwritten the same way, the evidence goes to the nameserver list.
func (r *Result) SetNameserverCDN(provider, evidence string) {
	r.CDNOrProxy = provider
	r.NSEvidence = append(r.NSEvidence, evidence)
}

// SetNameservers stores the lookup answer. Only the first call has an effect.
func (r *Result) SetNameservers(nameservers []string) {
	if r.nameserversSet {
		return
	}
	r.nameserversSet = true
	r.Nameservers = append([]string{}, nameservers...)
}

// AddNSEvidence appends a nameserver finding.
func (r *Result) AddNSEvidence(evidence string) {
	r.NSEvidence = append(r.NSEvidence, evidence)
}

// SetSSL records certificate-based Cloudflare evidence.
func (r *Result) SetSSL(evidence string) {
	r.SSLEvidence = evidence
	r.MarkCloudflare(evidence)
}

// RecordProbeError keeps a swallowed probe failure for diagnostics.
func (r *Result) RecordProbeError(err error) {
	if err == nil {
		return
	}
	r.errs = multierror.Append(r.errs, err)
	r.ProbeErrors = append(r.ProbeErrors, err.Error())
}

// Err returns every probe failure of the check, or nil if all probes succeeded.
func (r *Result) Err() error {
	return r.errs.ErrorOrNil()
}
