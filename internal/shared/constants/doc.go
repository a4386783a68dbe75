// Package constants centralizes defaults shared across the CLI and the API server.
//
// Upstream endpoints (relay, DNS-over-HTTPS resolver, certificate-transparency
// search), probe timeouts and body limits live here so cmd/ and internal/ agree
// on them without import cycles. Every endpoint can be overridden via config.
package constants
