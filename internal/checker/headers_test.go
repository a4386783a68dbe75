package checker

import (
	"testing"

	"go.uber.org/zap/zaptest"
)

func TestNormalizeHeaders_LowerCasesKeys(t *testing.T) {
	env := &Envelope{Headers: map[string]interface{}{
		"CF-RAY": "1234-AMS",
		"Server": "cloudflare",
		"X-Num":  float64(42),
		"Vary":   []interface{}{"Accept", "Origin"},
	}}

	headers := NormalizeHeaders(env, zaptest.NewLogger(t))

	if headers["cf-ray"] != "1234-AMS" {
		t.Errorf("Expected cf-ray '1234-AMS', got '%s'", headers["cf-ray"])
	}
	if headers.Get("SERVER") != "cloudflare" {
		t.Errorf("Expected server 'cloudflare', got '%s'", headers.Get("SERVER"))
	}
	if headers["x-num"] != "42" {
		t.Errorf("Expected x-num '42', got '%s'", headers["x-num"])
	}
	if headers["vary"] != "Accept, Origin" {
		t.Errorf("Expected joined vary header, got '%s'", headers["vary"])
	}
}

func TestNormalizeHeaders_TopLevelHeadersWin(t *testing.T) {
	env := &Envelope{
		Headers: map[string]interface{}{"server": "nginx"},
		Status: &EnvelopeStatus{Headers: map[string]interface{}{
			"server": "cloudflare",
			"cf-ray": "abc",
		}},
	}

	headers := NormalizeHeaders(env, nil)

	if headers["server"] != "nginx" {
		t.Errorf("Expected top-level server header, got '%s'", headers["server"])
	}
	if _, ok := headers["cf-ray"]; ok {
		t.Error("status.headers must not be merged when top-level headers exist")
	}
}

func TestNormalizeHeaders_StatusHeadersFallback(t *testing.T) {
	env := &Envelope{Status: &EnvelopeStatus{Headers: map[string]interface{}{"CF-Cache-Status": "HIT"}}}

	headers := NormalizeHeaders(env, nil)

	if headers["cf-cache-status"] != "HIT" {
		t.Errorf("Expected fallback to status.headers, got %v", headers)
	}
}

func TestNormalizeHeaders_CloudflareCookie(t *testing.T) {
	testCases := []struct {
		name   string
		cookie string
		want   bool
	}{
		{name: "bot management cookie", cookie: "__cf_bm=abc; path=/; HttpOnly", want: true},
		{name: "load balancer cookie upper case", cookie: "__CFLB=xyz; Secure", want: true},
		{name: "unrelated cookie", cookie: "session=1; path=/", want: false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			env := &Envelope{Headers: map[string]interface{}{"Set-Cookie": tc.cookie}}
			headers := NormalizeHeaders(env, nil)
			got := headers[KeyCloudflareCookie] == "true"
			if got != tc.want {
				t.Errorf("Expected cloudflare-cookie=%v, got %v", tc.want, got)
			}
		})
	}
}

func TestNormalizeHeaders_ContentFlags(t *testing.T) {
	html := `<html><head>
		<script src="https://ajax.cloudflare.com/cdn-cgi/scripts/rocket-loader.min.js"></script>
		</head><body>
		<form id="cf-challenge-form" action="/"></form>
		</body></html>`

	headers := NormalizeHeaders(&Envelope{Contents: html}, zaptest.NewLogger(t))

	for _, key := range []string{KeyCloudflareScripts, KeyCloudflareCaptcha, KeyCloudflareHoneypot} {
		if headers[key] != "true" {
			t.Errorf("Expected %s=true, got '%s'", key, headers[key])
		}
	}
}

func TestNormalizeHeaders_HoneypotOnlyByPrefix(t *testing.T) {
	html := `<div id="cf-wrapper"></div><script src="/static/app.js"></script><div id="not-cf-x"></div>`

	headers := NormalizeHeaders(&Envelope{Contents: html}, nil)

	if headers[KeyCloudflareHoneypot] != "true" {
		t.Error("Expected honeypot flag for id starting with cf-")
	}
	if _, ok := headers[KeyCloudflareScripts]; ok {
		t.Error("Did not expect scripts flag without a cloudflare script src")
	}
	if _, ok := headers[KeyCloudflareCaptcha]; ok {
		t.Error("Did not expect captcha flag without cf-challenge-form")
	}
}

func TestNormalizeHeaders_NoScriptExecution(t *testing.T) {
	// inline script text mentioning cloudflare is not a script src
	html := `<script>document.write('<script src="cloudflare.js"></scr'+'ipt>')</script>`

	headers := NormalizeHeaders(&Envelope{Contents: html}, nil)

	if _, ok := headers[KeyCloudflareScripts]; ok {
		t.Error("inline script bodies must not be executed or treated as elements")
	}
}

func TestNormalizeHeaders_NilEnvelope(t *testing.T) {
	headers := NormalizeHeaders(nil, nil)
	if headers == nil || len(headers) != 0 {
		t.Errorf("Expected empty map, got %v", headers)
	}
}

func TestNormalizeHeaders_CaseDuplicatesAreDeterministic(t *testing.T) {
	env := &Envelope{Headers: map[string]interface{}{
		"Server": "nginx",
		"server": "cloudflare",
		"SERVER": "apache",
	}}

	// map iteration order varies between runs; the outcome must not
	for i := 0; i < 50; i++ {
		headers := NormalizeHeaders(env, zaptest.NewLogger(t))
		if got := headers.Get("server"); got != "cloudflare" {
			t.Fatalf("run %d: expected 'cloudflare', got '%s'", i, got)
		}
	}
}
