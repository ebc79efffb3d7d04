package health

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"
)

// Monitor runs checkers and tracks whether the process is shutting down.
type Monitor struct {
	mu       sync.RWMutex
	checkers []Checker
	timeout  time.Duration
	slow     time.Duration

	started      time.Time
	version      string
	shuttingDown atomic.Bool
}

// Report is the body of a probe response.
type Report struct {
	Status    Status             `json:"status"`
	Version   string             `json:"version,omitempty"`
	Uptime    string             `json:"uptime"`
	Checks    map[string]*Result `json:"checks,omitempty"`
	Timestamp time.Time          `json:"timestamp"`
}

// NewMonitor creates a Monitor with a 5 second per-check timeout and a
// one second slow threshold.
func NewMonitor(version string) *Monitor {
	return &Monitor{
		timeout: 5 * time.Second,
		slow:    time.Second,
		started: time.Now(),
		version: version,
	}
}

// WithTimeout sets the per-check timeout.
func (m *Monitor) WithTimeout(timeout time.Duration) *Monitor {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.timeout = timeout
	return m
}

// WithSlowThreshold sets the latency above which a passing check is
// degraded. Zero disables it.
func (m *Monitor) WithSlowThreshold(d time.Duration) *Monitor {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.slow = d
	return m
}

// Add registers a checker.
func (m *Monitor) Add(c Checker) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.checkers = append(m.checkers, c)
}

// MarkShutdown makes readiness fail from now on.
func (m *Monitor) MarkShutdown() {
	m.shuttingDown.Store(true)
}

// ShuttingDown reports whether MarkShutdown was called.
func (m *Monitor) ShuttingDown() bool {
	return m.shuttingDown.Load()
}

// Check runs every checker in parallel, each under the monitor's timeout.
// A passing check slower than the slow threshold is reported as degraded.
func (m *Monitor) Check(ctx context.Context) map[string]*Result {
	m.mu.RLock()
	checkers := append([]Checker(nil), m.checkers...)
	timeout, slow := m.timeout, m.slow
	m.mu.RUnlock()

	var (
		mu      sync.Mutex
		g       errgroup.Group
		results = make(map[string]*Result, len(checkers))
	)
	for _, c := range checkers {
		g.Go(func() error {
			checkCtx, cancel := context.WithTimeout(ctx, timeout)
			defer cancel()

			start := time.Now()
			res := c.Check(checkCtx)
			if res == nil {
				res = Unhealthy("checker returned no result")
			}
			if res.Latency == 0 {
				res.Latency = time.Since(start)
			}
			if res.Status == StatusHealthy && slow > 0 && res.Latency > slow {
				res.Status = StatusDegraded
				res.Message = "slow: " + res.Latency.Round(time.Millisecond).String()
			}

			mu.Lock()
			results[c.Name()] = res
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()
	return results
}

// Overall folds results into one status: any unhealthy wins, then degraded.
func Overall(results map[string]*Result) Status {
	status := StatusHealthy
	for _, r := range results {
		switch r.Status {
		case StatusUnhealthy:
			return StatusUnhealthy
		case StatusDegraded:
			status = StatusDegraded
		}
	}
	return status
}

// Liveness reports the process as alive without running checks. It is
// degraded while shutting down.
func (m *Monitor) Liveness(context.Context) *Report {
	status := StatusHealthy
	if m.ShuttingDown() {
		status = StatusDegraded
	}
	return m.report(status, nil)
}

// Readiness runs every checker. It is unhealthy while shutting down.
func (m *Monitor) Readiness(ctx context.Context) *Report {
	if m.ShuttingDown() {
		return m.report(StatusUnhealthy, nil)
	}
	checks := m.Check(ctx)
	return m.report(Overall(checks), checks)
}

func (m *Monitor) report(status Status, checks map[string]*Result) *Report {
	return &Report{
		Status:    status,
		Version:   m.version,
		Uptime:    time.Since(m.started).Round(time.Second).String(),
		Checks:    checks,
		Timestamp: time.Now(),
	}
}
