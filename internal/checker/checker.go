package checker

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Checker is the interface that all check implementations must satisfy
type Checker interface {
	// Check runs every probe for a single target. Only validation failures
	// are returned as errors; probe failures are folded into the Result.
	Check(ctx context.Context, target string) (*Result, error)

	// Name returns the name of this checker (e.g., "check cloudflare")
	Name() string
}

// Outcome pairs a target with its result or validation error.
type Outcome struct {
	Target   string  `json:"target"`
	Result   *Result `json:"result,omitempty"`
	Err      error   `json:"-"`
	Duration float64 `json:"duration_seconds"`
}

// AuditFunc is a callback invoked once per finished target
type AuditFunc func(outcome Outcome) error

// Runner orchestrates the execution of checks with concurrency and rate limiting
type Runner struct {
	Concurrency int           // Maximum number of concurrent checks
	RateLimit   int           // Checks started per second (0 = unlimited)
	Timeout     time.Duration // Upper bound for a whole check (0 = none)
}

// RunChecks executes checks against multiple targets using a worker pool.
// Outcomes are returned in the order of targets.
func (r *Runner) RunChecks(ctx context.Context, targets []string, checker Checker, auditFn AuditFunc) []Outcome {
	concurrency := r.Concurrency
	if concurrency <= 0 {
		concurrency = 1
	}

	// Rate limiter
	limiter := rate.NewLimiter(rate.Inf, 1)
	if r.RateLimit > 0 {
		limiter = rate.NewLimiter(rate.Limit(r.RateLimit), r.RateLimit)
	}

	// Worker pool
	sem := make(chan struct{}, concurrency)
	var wg sync.WaitGroup
	var auditMu sync.Mutex
	outcomes := make([]Outcome, len(targets))

	for i, target := range targets {
		wg.Add(1)
		go func(idx int, t string) {
			defer wg.Done()

			// Acquire semaphore
			sem <- struct{}{}
			defer func() { <-sem }()

			// Wait for rate limiter
			_ = limiter.Wait(ctx)

			start := time.Now()

			checkCtx := ctx
			if r.Timeout > 0 {
				var cancel context.CancelFunc
				checkCtx, cancel = context.WithTimeout(ctx, r.Timeout)
				defer cancel()
			}

			result, err := checker.Check(checkCtx, t)

			outcome := Outcome{
				Target:   t,
				Result:   result,
				Err:      err,
				Duration: time.Since(start).Seconds(),
			}
			outcomes[idx] = outcome

			// Call audit function if provided
			if auditFn != nil {
				auditMu.Lock()
				_ = auditFn(outcome)
				auditMu.Unlock()
			}
		}(i, target)
	}

	wg.Wait()
	return outcomes
}
