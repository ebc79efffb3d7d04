// Package health reports whether the demo API can serve requests.
//
// A Monitor runs registered checkers in parallel and answers the liveness
// and readiness probes exposed by the server:
//
//	monitor := health.NewMonitor(version.Version)
//	monitor.Add(health.CheckerFunc("users", repo.Ping))
//	report := monitor.Readiness(ctx)
package health

import (
	"context"
	"time"
)

// Checker verifies one dependency.
type Checker interface {
	// Name is unique per Monitor, lowercase with hyphens.
	Name() string

	// Check must honor the context deadline.
	Check(ctx context.Context) *Result
}

// Status represents the health check status.
type Status string

const (
	StatusHealthy   Status = "healthy"
	StatusDegraded  Status = "degraded"
	StatusUnhealthy Status = "unhealthy"
)

func (s Status) String() string {
	return string(s)
}

// Result is the outcome of one check.
type Result struct {
	Status  Status        `json:"status"`
	Message string        `json:"message,omitempty"`
	Latency time.Duration `json:"latency_ns"`
}

// Healthy creates a healthy result with the given message.
func Healthy(message string) *Result {
	return &Result{Status: StatusHealthy, Message: message}
}

// Unhealthy creates an unhealthy result with the given message.
func Unhealthy(message string) *Result {
	return &Result{Status: StatusUnhealthy, Message: message}
}

type funcChecker struct {
	name string
	fn   func(context.Context) error
}

// CheckerFunc adapts a ping-style function. A nil error is healthy.
func CheckerFunc(name string, fn func(context.Context) error) Checker {
	return funcChecker{name: name, fn: fn}
}

func (c funcChecker) Name() string { return c.name }

func (c funcChecker) Check(ctx context.Context) *Result {
	if err := c.fn(ctx); err != nil {
		return Unhealthy(err.Error())
	}
	return Healthy("ok")
}
