package stress

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/restfile/restfile/packages/core/parser"
	"github.com/restfile/restfile/packages/core/runner"
)

// Runner drives repeated execution of document requests under load.
type Runner struct {
	config   *Config
	core     *runner.Runner
	metrics  *Metrics
	reporter *Reporter

	limiter *rate.Limiter
	sem     chan struct{} // semaphore for max concurrency

	document   *parser.Document
	requests   []*parser.Request
	path       string
	nameFilter string
	version    string
}

// RunnerOption configures the runner
type RunnerOption func(*Runner)

// WithCoreRunner sets the request executor
func WithCoreRunner(core *runner.Runner) RunnerOption {
	return func(r *Runner) {
		r.core = core
	}
}

// WithReporter sets the reporter
func WithReporter(reporter *Reporter) RunnerOption {
	return func(r *Runner) {
		r.reporter = reporter
	}
}

// WithNameFilter restricts the run to the request with the given @name
func WithNameFilter(name string) RunnerOption {
	return func(r *Runner) {
		r.nameFilter = name
	}
}

// WithVersion sets the version shown in the report header
func WithVersion(version string) RunnerOption {
	return func(r *Runner) {
		r.version = version
	}
}

// NewRunner creates a new stress runner
func NewRunner(config *Config, opts ...RunnerOption) *Runner {
	r := &Runner{
		config:  config,
		metrics: NewMetrics(),
	}

	for _, opt := range opts {
		opt(r)
	}

	// Create defaults if not provided
	if r.core == nil {
		r.core = runner.NewRunner(nil)
	}

	if r.reporter == nil {
		r.reporter = NewReporter()
	}

	if config.Mode == RateMode && config.Rate > 0 {
		r.limiter = rate.NewLimiter(rate.Limit(config.Rate), 1)
	}

	maxVUs := config.MaxVUs
	if maxVUs < 1 {
		maxVUs = 100
	}
	r.sem = make(chan struct{}, maxVUs)

	return r
}

// LoadFile parses path and selects the requests to drive. With a name
// filter only the matching request runs; otherwise every request in the
// document is a candidate, picked uniformly at random per iteration.
func (r *Runner) LoadFile(path string) error {
	doc, err := parser.ParseFile(path)
	if err != nil {
		return fmt.Errorf("parsing file: %w", err)
	}

	r.document = doc
	r.path = path
	r.requests = nil

	if r.nameFilter != "" {
		for _, req := range doc.Requests {
			if strings.EqualFold(req.Name, r.nameFilter) {
				r.requests = append(r.requests, req)
			}
		}
		if len(r.requests) == 0 {
			return fmt.Errorf("no request named %q in %s", r.nameFilter, path)
		}
		return nil
	}

	r.requests = doc.Requests
	if len(r.requests) == 0 {
		return fmt.Errorf("no requests found in %s", path)
	}

	return nil
}

// Run executes the stress run
func (r *Runner) Run(ctx context.Context) (*Result, error) {
	if err := r.config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if len(r.requests) == 0 {
		return nil, fmt.Errorf("no requests loaded")
	}

	r.reporter.Header(r.version, r.path, r.config)

	r.metrics.Start()

	ctx, cancel := context.WithTimeout(ctx, r.config.Duration)
	defer cancel()

	// Start progress reporter
	progressDone := make(chan struct{})
	go r.progressLoop(ctx, progressDone)

	if r.config.Mode == VUMode {
		r.runVUMode(ctx)
	} else {
		r.runRateMode(ctx)
	}

	r.metrics.Stop()
	close(progressDone)
	r.reporter.ClearProgress()

	summary := r.metrics.GetSummary()
	var thresholdResults []ThresholdResult
	if r.config.Thresholds.HasThresholds() {
		thresholdResults = r.metrics.EvaluateThresholds(r.config.Thresholds)
	}

	r.reporter.Summary(summary, thresholdResults)

	passed := true
	for _, tr := range thresholdResults {
		if !tr.Passed {
			passed = false
			break
		}
	}

	return &Result{
		Summary:    summary,
		Thresholds: thresholdResults,
		Passed:     passed,
	}, nil
}

// runRateMode dispatches requests at the target rate
func (r *Runner) runRateMode(ctx context.Context) {
	var wg sync.WaitGroup
	startTime := time.Now()

	var rampTicker *time.Ticker
	if r.config.RampUp > 0 {
		rampTicker = time.NewTicker(100 * time.Millisecond)
		defer rampTicker.Stop()
	}

	for {
		select {
		case <-ctx.Done():
			wg.Wait()
			return
		default:
		}

		// Update rate for ramp-up
		if rampTicker != nil {
			select {
			case <-rampTicker.C:
				if newRate := r.currentRate(time.Since(startTime)); newRate > 0 {
					r.limiter.SetLimit(rate.Limit(newRate))
				}
			default:
			}
		}

		if err := r.limiter.Wait(ctx); err != nil {
			wg.Wait()
			return
		}

		req := r.selectRequest()

		select {
		case r.sem <- struct{}{}:
		case <-ctx.Done():
			wg.Wait()
			return
		}

		wg.Add(1)
		go func(req *parser.Request) {
			defer wg.Done()
			defer func() { <-r.sem }()

			r.metrics.IncrementActiveVUs()
			defer r.metrics.DecrementActiveVUs()

			r.executeOnce(ctx, req)
		}(req)
	}
}

// runVUMode loops a fixed pool of virtual users until the deadline
func (r *Runner) runVUMode(ctx context.Context) {
	var wg sync.WaitGroup

	for i := 0; i < r.config.VUs; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()

			r.metrics.IncrementActiveVUs()
			defer r.metrics.DecrementActiveVUs()

			for {
				select {
				case <-ctx.Done():
					return
				default:
				}

				req := r.selectRequest()

				select {
				case r.sem <- struct{}{}:
				case <-ctx.Done():
					return
				}
				r.executeOnce(ctx, req)
				<-r.sem

				if r.config.ThinkTime > 0 {
					select {
					case <-ctx.Done():
						return
					case <-time.After(r.config.ThinkTime):
					}
				}
			}
		}()
	}

	wg.Wait()
}

// currentRate returns the ramped target rate for the elapsed time
func (r *Runner) currentRate(elapsed time.Duration) float64 {
	if r.config.RampUp <= 0 || elapsed >= r.config.RampUp {
		return r.config.Rate
	}

	// Linear ramp-up
	progress := float64(elapsed) / float64(r.config.RampUp)
	return r.config.Rate * progress
}

func (r *Runner) selectRequest() *parser.Request {
	if len(r.requests) == 1 {
		return r.requests[0]
	}
	return r.requests[rand.Intn(len(r.requests))]
}

// executeOnce runs one request through the core runner and records the
// outcome. Results cut short by the run deadline are shutdown artifacts,
// not measurements, and are skipped.
func (r *Runner) executeOnce(ctx context.Context, req *parser.Request) {
	res := r.core.Execute(ctx, req, r.document.Variables)

	if ctx.Err() != nil &&
		(res.FailureKind == runner.FailureCancelled || res.FailureKind == runner.FailureTimeout) {
		return
	}

	statusCode := 0
	if res.Response != nil {
		statusCode = res.Response.StatusCode
	}

	failureKind := ""
	if !res.Success {
		failureKind = res.FailureKind.String()
	}

	r.metrics.Record(res.Duration, statusCode, failureKind)
}

// progressLoop updates the progress display
func (r *Runner) progressLoop(ctx context.Context, done chan struct{}) {
	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			stats := r.metrics.GetCurrentStats()
			r.reporter.Progress(stats, r.config.Duration)
		}
	}
}

// Result holds the final result of a stress run
type Result struct {
	Summary    *Summary
	Thresholds []ThresholdResult
	Passed     bool
}

// HasThresholdFailures returns true if any thresholds failed
func (r *Result) HasThresholdFailures() bool {
	for _, tr := range r.Thresholds {
		if !tr.Passed {
			return true
		}
	}
	return false
}
