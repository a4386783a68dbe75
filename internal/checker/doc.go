// Package checker implements the cfcheck evidence aggregation engine.
//
// Architecture overview:
//
//   - CloudflareChecker implements the Checker interface (Check + Name). One
//     Check runs three probes in a fixed order: the page fetch (through a
//     relay or directly), the nameserver lookup (DNS-over-HTTPS) and the
//     certificate-transparency search. A failed probe only degrades the
//     evidence; the chain always reaches the presentation stage.
//   - NormalizeHeaders turns a page envelope into a lower-cased header map and
//     adds synthetic flags derived from cookies and the HTML document.
//   - The signal catalogs (CloudflareIndicators, CDNIndicators,
//     NameserverIndicators) are plain data evaluated by one evaluator, so new
//     indicators need no new code.
//   - Aggregator applies the catalogs to a Result, the accumulator threaded
//     through the chain.
//   - Runner coordinates batches of targets with a worker pool and a rate
//     limiter, invoking an AuditFunc per finished target.
//
// Verdict rules:
//
//	IsCloudflare   monotonic; set by any Cloudflare indicator, nameserver or certificate
//	CDNOrProxy     last match wins, page headers first, then nameservers
//	SSLEvidence    certificate issuer verdict only
package checker
