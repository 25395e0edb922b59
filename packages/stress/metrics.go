package stress

import (
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/HdrHistogram/hdrhistogram-go"
)

// Metrics collects and aggregates stress run metrics
type Metrics struct {
	mu sync.RWMutex

	// Counters
	totalRequests   atomic.Int64
	successRequests atomic.Int64
	errorRequests   atomic.Int64

	// Latency histogram (in microseconds for precision)
	histogram *hdrhistogram.Histogram

	// Outcome distributions
	statusCounts  map[int]int64
	failureCounts map[string]int64

	// Run timing
	startTime time.Time
	endTime   time.Time

	// Active VUs
	activeVUs atomic.Int32
}

// NewMetrics creates a new Metrics collector
func NewMetrics() *Metrics {
	return &Metrics{
		// Histogram: 1us to 60s range, 3 significant digits
		histogram:     hdrhistogram.New(1, 60_000_000, 3),
		statusCounts:  make(map[int]int64),
		failureCounts: make(map[string]int64),
	}
}

// Start marks the beginning of the run
func (m *Metrics) Start() {
	m.startTime = time.Now()
}

// Stop marks the end of the run
func (m *Metrics) Stop() {
	m.endTime = time.Now()
}

// Record records one executed request. statusCode is zero when the exchange
// never completed; failureKind is empty for completed exchanges. A request
// counts as an error when the exchange failed or the status is 400 or above.
func (m *Metrics) Record(duration time.Duration, statusCode int, failureKind string) {
	m.totalRequests.Add(1)

	if failureKind != "" || statusCode >= 400 {
		m.errorRequests.Add(1)
	} else {
		m.successRequests.Add(1)
	}

	// Record latency in microseconds
	latencyUs := duration.Microseconds()
	if latencyUs < 1 {
		latencyUs = 1
	}
	if latencyUs > 60_000_000 {
		latencyUs = 60_000_000
	}

	m.mu.Lock()
	_ = m.histogram.RecordValue(latencyUs)
	if statusCode > 0 {
		m.statusCounts[statusCode]++
	}
	if failureKind != "" {
		m.failureCounts[failureKind]++
	}
	m.mu.Unlock()
}

// SetActiveVUs sets the current number of active virtual users
func (m *Metrics) SetActiveVUs(n int32) {
	m.activeVUs.Store(n)
}

// IncrementActiveVUs increments active VU count
func (m *Metrics) IncrementActiveVUs() {
	m.activeVUs.Add(1)
}

// DecrementActiveVUs decrements active VU count
func (m *Metrics) DecrementActiveVUs() {
	m.activeVUs.Add(-1)
}

// Summary is the final aggregate of a stress run
type Summary struct {
	Duration      time.Duration
	TotalRequests int64
	SuccessCount  int64
	ErrorCount    int64

	// Calculated rates
	RPS         float64
	SuccessRate float64
	ErrorRate   float64

	// Latency percentiles
	P50    time.Duration
	P90    time.Duration
	P99    time.Duration
	Min    time.Duration
	Max    time.Duration
	Mean   time.Duration
	StdDev time.Duration

	// Outcome distributions
	StatusCounts  map[int]int64
	FailureCounts map[string]int64
}

// GetSummary returns the metrics summary
func (m *Metrics) GetSummary() *Summary {
	m.mu.RLock()
	defer m.mu.RUnlock()

	duration := m.endTime.Sub(m.startTime)
	if m.endTime.IsZero() {
		duration = time.Since(m.startTime)
	}

	total := m.totalRequests.Load()
	success := m.successRequests.Load()
	errors := m.errorRequests.Load()

	rps := float64(0)
	if duration.Seconds() > 0 {
		rps = float64(total) / duration.Seconds()
	}

	successRate := float64(0)
	errorRate := float64(0)
	if total > 0 {
		successRate = float64(success) / float64(total)
		errorRate = float64(errors) / float64(total)
	}

	summary := &Summary{
		Duration:      duration,
		TotalRequests: total,
		SuccessCount:  success,
		ErrorCount:    errors,
		RPS:           rps,
		SuccessRate:   successRate,
		ErrorRate:     errorRate,
		P50:           time.Duration(m.histogram.ValueAtQuantile(50)) * time.Microsecond,
		P90:           time.Duration(m.histogram.ValueAtQuantile(90)) * time.Microsecond,
		P99:           time.Duration(m.histogram.ValueAtQuantile(99)) * time.Microsecond,
		Min:           time.Duration(m.histogram.Min()) * time.Microsecond,
		Max:           time.Duration(m.histogram.Max()) * time.Microsecond,
		Mean:          time.Duration(m.histogram.Mean()) * time.Microsecond,
		StdDev:        time.Duration(m.histogram.StdDev()) * time.Microsecond,
		StatusCounts:  make(map[int]int64, len(m.statusCounts)),
		FailureCounts: make(map[string]int64, len(m.failureCounts)),
	}

	for code, n := range m.statusCounts {
		summary.StatusCounts[code] = n
	}
	for kind, n := range m.failureCounts {
		summary.FailureCounts[kind] = n
	}

	return summary
}

// CurrentStats returns current statistics for real-time display
type CurrentStats struct {
	Elapsed   time.Duration
	Total     int64
	Success   int64
	Errors    int64
	RPS       float64
	P50       time.Duration
	P90       time.Duration
	P99       time.Duration
	Max       time.Duration
	ActiveVUs int32
	ErrorRate float64
}

// GetCurrentStats returns current statistics
func (m *Metrics) GetCurrentStats() CurrentStats {
	m.mu.RLock()
	defer m.mu.RUnlock()

	elapsed := time.Since(m.startTime)
	total := m.totalRequests.Load()
	success := m.successRequests.Load()
	errors := m.errorRequests.Load()

	rps := float64(0)
	if elapsed.Seconds() > 0 {
		rps = float64(total) / elapsed.Seconds()
	}

	errorRate := float64(0)
	if total > 0 {
		errorRate = float64(errors) / float64(total)
	}

	return CurrentStats{
		Elapsed:   elapsed,
		Total:     total,
		Success:   success,
		Errors:    errors,
		RPS:       rps,
		P50:       time.Duration(m.histogram.ValueAtQuantile(50)) * time.Microsecond,
		P90:       time.Duration(m.histogram.ValueAtQuantile(90)) * time.Microsecond,
		P99:       time.Duration(m.histogram.ValueAtQuantile(99)) * time.Microsecond,
		Max:       time.Duration(m.histogram.Max()) * time.Microsecond,
		ActiveVUs: m.activeVUs.Load(),
		ErrorRate: errorRate,
	}
}

// EvaluateThresholds evaluates the thresholds against the summary
func (m *Metrics) EvaluateThresholds(t Thresholds) []ThresholdResult {
	summary := m.GetSummary()
	var results []ThresholdResult

	if t.P50 > 0 {
		results = append(results, ThresholdResult{
			Name:     "p50",
			Passed:   summary.P50 <= t.P50,
			Expected: "< " + t.P50.String(),
			Actual:   summary.P50.String(),
		})
	}

	if t.P90 > 0 {
		results = append(results, ThresholdResult{
			Name:     "p90",
			Passed:   summary.P90 <= t.P90,
			Expected: "< " + t.P90.String(),
			Actual:   summary.P90.String(),
		})
	}

	if t.P99 > 0 {
		results = append(results, ThresholdResult{
			Name:     "p99",
			Passed:   summary.P99 <= t.P99,
			Expected: "< " + t.P99.String(),
			Actual:   summary.P99.String(),
		})
	}

	if t.MaxLatency > 0 {
		results = append(results, ThresholdResult{
			Name:     "max latency",
			Passed:   summary.Max <= t.MaxLatency,
			Expected: "< " + t.MaxLatency.String(),
			Actual:   summary.Max.String(),
		})
	}

	if t.ErrorRate > 0 {
		results = append(results, ThresholdResult{
			Name:     "error rate",
			Passed:   summary.ErrorRate <= t.ErrorRate,
			Expected: formatPercent(t.ErrorRate),
			Actual:   formatPercent(summary.ErrorRate),
		})
	}

	if t.MinRPS > 0 {
		results = append(results, ThresholdResult{
			Name:     "min RPS",
			Passed:   summary.RPS >= t.MinRPS,
			Expected: "> " + formatFloat(t.MinRPS),
			Actual:   formatFloat(summary.RPS),
		})
	}

	return results
}

func formatPercent(f float64) string {
	return formatFloat(f*100) + "%"
}

func formatFloat(f float64) string {
	if f == float64(int(f)) {
		return strconv.Itoa(int(f))
	}
	return strconv.FormatFloat(f, 'f', 2, 64)
}
