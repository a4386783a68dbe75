// Package report turns a finished check into a display model and renders it
// as terminal text, JSON, YAML or an HTML fragment.
package report

import (
	"strings"

	"github.com/khanhnv2901/cfcheck/internal/checker"
)

// Section titles in display order.
const (
	TitleURL         = "URL Checked"
	TitleCloudflare  = "Cloudflare Status"
	TitleCDN         = "CDN/Proxy Status"
	TitleNameservers = "Nameservers"
	TitleSSL         = "SSL Status"
)

const (
	valueNotDetected   = "not detected"
	valueNoNameservers = "none found"
)

// State marks a section whose value is a positive or negative finding.
type State string

const (
	StateNone        State = ""
	StateDetected    State = "detected"
	StateNotDetected State = "not-detected"
)

// Section is one labeled block of the view.
type Section struct {
	Title string   `json:"title" yaml:"title"`
	Value string   `json:"value" yaml:"value"`
	State State    `json:"state,omitempty" yaml:"state,omitempty"`
	Items []string `json:"items,omitempty" yaml:"items,omitempty"`
}

// View is the re-displayable form of a Result. Values are raw text; each
// renderer applies its own escaping.
type View struct {
	Sections    []Section `json:"sections" yaml:"sections"`
	ProbeErrors []string  `json:"probe_errors,omitempty" yaml:"probe_errors,omitempty"`
}

// BuildView maps a Result to its five sections in fixed order. It does not
// modify res.
func BuildView(res *checker.Result) View {
	if res == nil {
		return View{}
	}

	cloudflare := Section{Title: TitleCloudflare, Value: "Cloudflare Not Detected", State: StateNotDetected}
	if res.IsCloudflare {
		cloudflare.Value = "Cloudflare Detected"
		cloudflare.State = StateDetected
	}
	cloudflare.Items = copyItems(res.Evidence)

	cdn := Section{Title: TitleCDN, Value: valueNotDetected, State: StateNotDetected}
	if res.CDNOrProxy != "" {
		cdn.Value = res.CDNOrProxy
		cdn.State = StateDetected
	}
	cdn.Items = copyItems(res.CDNEvidence)

	nameservers := Section{Title: TitleNameservers, Value: valueNoNameservers}
	if len(res.Nameservers) > 0 {
		nameservers.Value = strings.Join(res.Nameservers, ", ")
	}
	nameservers.Items = copyItems(res.NSEvidence)

	ssl := Section{Title: TitleSSL, Value: valueNotDetected, State: StateNotDetected}
	if evidence := SSLStatus(res); evidence != "" {
		ssl.Value = evidence
		ssl.State = StateDetected
	}

	return View{
		Sections: []Section{
			{Title: TitleURL, Value: res.URL},
			cloudflare,
			cdn,
			nameservers,
			ssl,
		},
		ProbeErrors: copyItems(res.ProbeErrors),
	}
}

// SSLStatus returns the certificate verdict, falling back to the first
// evidence entry that mentions a Cloudflare certificate.
func SSLStatus(res *checker.Result) string {
	if res.SSLEvidence != "" {
		return res.SSLEvidence
	}
	for _, evidence := range res.Evidence {
		if strings.Contains(evidence, "Cloudflare SSL Certificate") || strings.Contains(evidence, "Universal SSL") {
			return evidence
		}
	}
	return ""
}

func copyItems(items []string) []string {
	if len(items) == 0 {
		return nil
	}
	return append([]string(nil), items...)
}
