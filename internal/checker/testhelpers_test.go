package checker

import (
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/miekg/dns"
)

// upstream is a fake relay + DoH resolver + crt.sh backend.
type upstream struct {
	page        *Envelope
	pageStatus  int
	nameservers map[string][]string
	certs       string
	certStatus  int
	dohStatus   int

	relayCalls atomic.Int32
	dohCalls   atomic.Int32
	certCalls  atomic.Int32

	server *httptest.Server
}

func newUpstream(t *testing.T) *upstream {
	t.Helper()
	u := &upstream{
		page:        &Envelope{Contents: "<html><body>hello</body></html>"},
		pageStatus:  http.StatusOK,
		nameservers: map[string][]string{},
		certs:       "[]",
		certStatus:  http.StatusOK,
		dohStatus:   http.StatusOK,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/get", u.handleRelay)
	mux.HandleFunc("/dns-query", u.handleDoH)
	u.server = httptest.NewServer(mux)
	t.Cleanup(u.server.Close)
	return u
}

func (u *upstream) handleRelay(w http.ResponseWriter, r *http.Request) {
	target := r.URL.Query().Get("url")
	if strings.Contains(target, "output=json") {
		u.certCalls.Add(1)
		if u.certStatus != http.StatusOK {
			w.WriteHeader(u.certStatus)
			return
		}
		writeTestJSON(w, Envelope{Contents: u.certs})
		return
	}

	u.relayCalls.Add(1)
	if u.pageStatus != http.StatusOK {
		w.WriteHeader(u.pageStatus)
		return
	}
	writeTestJSON(w, u.page)
}

func (u *upstream) handleDoH(w http.ResponseWriter, r *http.Request) {
	u.dohCalls.Add(1)
	if u.dohStatus != http.StatusOK {
		w.WriteHeader(u.dohStatus)
		return
	}

	if encoded := r.URL.Query().Get("dns"); encoded != "" {
		u.writeWireAnswer(w, encoded)
		return
	}

	name := r.URL.Query().Get("name")
	answer := dohJSONResponse{Status: 0}
	for _, ns := range u.nameservers[name] {
		answer.Answer = append(answer.Answer, dohAnswer{Name: name + ".", Type: dns.TypeNS, TTL: 300, Data: ns})
	}
	// records of other types must be ignored
	answer.Answer = append(answer.Answer, dohAnswer{Name: name + ".", Type: dns.TypeSOA, Data: "ns.soa.example. hostmaster."})
	w.Header().Set("Content-Type", "application/dns-json")
	writeTestJSON(w, answer)
}

func (u *upstream) writeWireAnswer(w http.ResponseWriter, encoded string) {
	raw, err := base64.RawURLEncoding.DecodeString(encoded)
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	query := new(dns.Msg)
	if err := query.Unpack(raw); err != nil || len(query.Question) != 1 {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	reply := new(dns.Msg)
	reply.SetReply(query)
	qname := query.Question[0].Name
	for _, ns := range u.nameservers[strings.TrimSuffix(qname, ".")] {
		reply.Answer = append(reply.Answer, &dns.NS{
			Hdr: dns.RR_Header{Name: qname, Rrtype: dns.TypeNS, Class: dns.ClassINET, Ttl: 300},
			Ns:  dns.Fqdn(ns),
		})
	}
	packed, err := reply.Pack()
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/dns-message")
	_, _ = w.Write(packed)
}

func (u *upstream) checker() *CloudflareChecker {
	return NewCloudflareChecker(Options{
		RelayURL: u.server.URL + "/get",
		DoHURL:   u.server.URL + "/dns-query",
		CrtShURL: "https://crt.example/",
	})
}

func writeTestJSON(w http.ResponseWriter, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(payload)
}

func containsString(items []string, want string) bool {
	for _, item := range items {
		if item == want {
			return true
		}
	}
	return false
}

func containsSubstring(items []string, sub string) bool {
	for _, item := range items {
		if strings.Contains(item, sub) {
			return true
		}
	}
	return false
}
