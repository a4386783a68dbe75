package checker

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	consts "github.com/khanhnv2901/cfcheck/internal/shared/constants"
)

// Stage is a step of the probe chain. Stages run strictly in declaration
// order; each fetch stage starts only after the previous scoring finished.
type Stage int

const (
	StageStart Stage = iota
	StagePageFetch
	StagePageScoring
	StageNameserverFetch
	StageNSScoring
	StageCertFetch
	StageCertScoring
	StagePresent
	StageDone
)

var stageNames = map[Stage]string{
	StageStart:           "START",
	StagePageFetch:       "PAGE_FETCH",
	StagePageScoring:     "PAGE_SCORING",
	StageNameserverFetch: "NAMESERVER_FETCH",
	StageNSScoring:       "NS_SCORING",
	StageCertFetch:       "CERT_FETCH",
	StageCertScoring:     "CERT_SCORING",
	StagePresent:         "PRESENT",
	StageDone:            "DONE",
}

func (s Stage) String() string {
	if name, ok := stageNames[s]; ok {
		return name
	}
	return fmt.Sprintf("Stage(%d)", int(s))
}

// NameserverResolver resolves the NS records of a host.
type NameserverResolver interface {
	LookupNS(ctx context.Context, host string) ([]string, string, error)
}

// CertificateSource lists certificate-transparency records for a host.
type CertificateSource interface {
	Lookup(ctx context.Context, host string) ([]CertRecord, error)
}

// CloudflareChecker runs the page, nameserver and certificate probes in
// sequence and aggregates their evidence.
type CloudflareChecker struct {
	Fetcher      Fetcher
	Resolver     NameserverResolver
	Certificates CertificateSource
	Aggregator   *Aggregator
	ProbeTimeout time.Duration
	Logger       *zap.Logger

	// OnStage, when set, is called as the chain enters each stage.
	OnStage func(target string, stage Stage)
}

// Options configure NewCloudflareChecker.
type Options struct {
	RelayURL     string
	RelayParam   string
	Direct       bool
	DoHURL       string
	DoHFormat    string
	ApexFallback bool
	CrtShURL     string
	UserAgent    string
	ProbeTimeout time.Duration
	CustomCDN    []Indicator
	Logger       *zap.Logger
}

// NewCloudflareChecker wires the HTTP transports for the three probes.
func NewCloudflareChecker(opts Options) *CloudflareChecker {
	client := NewHTTPClient()

	newFetcher := func(maxBytes int64) Fetcher {
		if opts.Direct {
			return &DirectFetcher{Client: client, UserAgent: opts.UserAgent, MaxBytes: maxBytes}
		}
		relayURL := opts.RelayURL
		if relayURL == "" {
			relayURL = consts.DefaultRelayURL
		}
		return &RelayFetcher{
			Client:    client,
			BaseURL:   relayURL,
			Param:     opts.RelayParam,
			UserAgent: opts.UserAgent,
			MaxBytes:  maxBytes,
		}
	}
	fetcher := newFetcher(consts.MaxBodyBytes)

	var cdnCatalog []Indicator
	if len(opts.CustomCDN) > 0 {
		cdnCatalog = append(append([]Indicator{}, CDNIndicators...), opts.CustomCDN...)
	}

	return &CloudflareChecker{
		Fetcher: fetcher,
		Resolver: &DoHResolver{
			Client:       client,
			URL:          opts.DoHURL,
			Format:       opts.DoHFormat,
			UserAgent:    opts.UserAgent,
			ApexFallback: opts.ApexFallback,
		},
		// Only the first record is scored.
		Certificates: &CertSearch{Fetcher: newFetcher(consts.MaxCertBodyBytes), URL: opts.CrtShURL, Limit: 1},
		Aggregator:   &Aggregator{CDN: cdnCatalog, Logger: opts.Logger},
		ProbeTimeout: opts.ProbeTimeout,
		Logger:       opts.Logger,
	}
}

// Check performs the full probe chain for target. The only error returned is
// a validation failure, in which case no network call is made.
func (c *CloudflareChecker) Check(ctx context.Context, target string) (*Result, error) {
	logger := c.logger()

	c.enter(target, StageStart)
	info, err := ParseTarget(target)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	res := NewResult(info)
	logger = logger.With(zap.String("target", res.URL))

	c.enter(target, StagePageFetch)
	env, err := c.probePage(ctx, res.URL)
	c.enter(target, StagePageScoring)
	if err != nil {
		logger.Warn("page probe failed", zap.Error(err))
		res.AddEvidence("Error checking the website: " + err.Error())
		res.RecordProbeError(err)
	} else {
		c.Aggregator.ScorePage(res, env)
	}

	c.enter(target, StageNameserverFetch)
	nameservers, queried, err := c.probeNameservers(ctx, res.Host)
	c.enter(target, StageNSScoring)
	if err != nil {
		logger.Warn("nameserver probe failed", zap.Error(err))
		res.AddNSEvidence("Nameserver lookup failed: " + err.Error())
		res.RecordProbeError(err)
	} else {
		if queried != res.Host {
			logger.Debug("nameservers resolved from registrable domain", zap.String("domain", queried))
		}
		c.Aggregator.ScoreNameservers(res, nameservers)
	}

	c.enter(target, StageCertFetch)
	certs, err := c.probeCertificates(ctx, res.Host)
	c.enter(target, StageCertScoring)
	if err != nil {
		logger.Warn("certificate probe failed", zap.Error(err))
		res.RecordProbeError(err)
	} else {
		c.Aggregator.ScoreCertificate(res, certs)
	}

	res.Duration = time.Since(start)
	c.enter(target, StagePresent)
	logger.Info("check complete",
		zap.Bool("cloudflare", res.IsCloudflare),
		zap.String("cdn", res.CDNOrProxy),
		zap.Int("evidence", len(res.Evidence)),
		zap.Int("probe_errors", len(res.ProbeErrors)),
	)
	c.enter(target, StageDone)

	return res, nil
}

// Name returns the name of this checker
func (c *CloudflareChecker) Name() string {
	return "check cloudflare"
}

func (c *CloudflareChecker) probePage(ctx context.Context, target string) (*Envelope, error) {
	probeCtx, cancel := c.probeContext(ctx)
	defer cancel()
	return c.Fetcher.Fetch(probeCtx, target)
}

func (c *CloudflareChecker) probeNameservers(ctx context.Context, host string) ([]string, string, error) {
	probeCtx, cancel := c.probeContext(ctx)
	defer cancel()
	return c.Resolver.LookupNS(probeCtx, host)
}

func (c *CloudflareChecker) probeCertificates(ctx context.Context, host string) ([]CertRecord, error) {
	probeCtx, cancel := c.probeContext(ctx)
	defer cancel()
	return c.Certificates.Lookup(probeCtx, host)
}

func (c *CloudflareChecker) probeContext(ctx context.Context) (context.Context, context.CancelFunc) {
	timeout := c.ProbeTimeout
	if timeout <= 0 {
		timeout = consts.ProbeTimeout
	}
	return context.WithTimeout(ctx, timeout)
}

func (c *CloudflareChecker) enter(target string, stage Stage) {
	if c.OnStage != nil {
		c.OnStage(target, stage)
	}
}

func (c *CloudflareChecker) logger() *zap.Logger {
	if c.Logger == nil {
		return zap.NewNop()
	}
	return c.Logger
}
