// Package health aggregates dependency checks for the /health endpoint.
package health

import (
	"context"
	"fmt"
	"sync"
	"time"
)

type Status string

const (
	StatusHealthy   Status = "healthy"
	StatusUnhealthy Status = "unhealthy"

	// StatusDegraded means the service still answers but a dependency is impaired
	StatusDegraded Status = "degraded"
)

// CheckResult represents the result of a health check
type CheckResult struct {
	Status    Status                 `json:"status"`
	Component string                 `json:"component"`
	Message   string                 `json:"message,omitempty"`
	Error     string                 `json:"error,omitempty"`
	Duration  time.Duration          `json:"duration"`
	Timestamp time.Time              `json:"timestamp"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
}

type Checker interface {
	Check(ctx context.Context) CheckResult
	Name() string
}

// HealthChecker runs every registered checker in parallel under one timeout
type HealthChecker struct {
	mu       sync.RWMutex
	checkers []Checker
	timeout  time.Duration
}

func NewHealthChecker(timeout time.Duration) *HealthChecker {
	if timeout == 0 {
		timeout = 5 * time.Second
	}
	return &HealthChecker{timeout: timeout}
}

func (h *HealthChecker) Register(checker Checker) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.checkers = append(h.checkers, checker)
}

// Check runs all checks; any unhealthy result makes the whole service unhealthy
func (h *HealthChecker) Check(ctx context.Context) (Status, map[string]CheckResult) {
	ctx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()

	h.mu.RLock()
	checkers := append([]Checker(nil), h.checkers...)
	h.mu.RUnlock()

	results := make(map[string]CheckResult, len(checkers))
	var mu sync.Mutex
	var wg sync.WaitGroup
	for _, checker := range checkers {
		wg.Add(1)
		go func(c Checker) {
			defer wg.Done()
			result := runWithDeadline(ctx, c)
			mu.Lock()
			results[c.Name()] = result
			mu.Unlock()
		}(checker)
	}
	wg.Wait()

	overall := StatusHealthy
	for _, r := range results {
		switch r.Status {
		case StatusUnhealthy:
			return StatusUnhealthy, results
		case StatusDegraded:
			overall = StatusDegraded
		}
	}
	return overall, results
}

func runWithDeadline(ctx context.Context, c Checker) CheckResult {
	done := make(chan CheckResult, 1)
	go func() { done <- c.Check(ctx) }()

	select {
	case r := <-done:
		return r
	case <-ctx.Done():
		return NewUnhealthyResult(c.Name(), fmt.Errorf("health check timed out: %w", ctx.Err()))
	}
}

// HealthResponse represents the JSON response for health checks
type HealthResponse struct {
	Status    Status                 `json:"status"`
	Timestamp time.Time              `json:"timestamp"`
	Uptime    string                 `json:"uptime"`
	Version   string                 `json:"version"`
	Checks    map[string]CheckResult `json:"checks"`
}

func NewCheckResult(component string, status Status, message string, err error) CheckResult {
	result := CheckResult{
		Component: component,
		Status:    status,
		Message:   message,
		Timestamp: time.Now(),
	}
	if err != nil {
		result.Error = err.Error()
		result.Status = StatusUnhealthy
	}
	return result
}

func NewHealthyResult(component, message string) CheckResult {
	return NewCheckResult(component, StatusHealthy, message, nil)
}

func NewUnhealthyResult(component string, err error) CheckResult {
	return NewCheckResult(component, StatusUnhealthy, "", err)
}

func NewDegradedResult(component, message string) CheckResult {
	return NewCheckResult(component, StatusDegraded, message, nil)
}

func (r CheckResult) WithMetadata(key string, value interface{}) CheckResult {
	if r.Metadata == nil {
		r.Metadata = make(map[string]interface{})
	}
	r.Metadata[key] = value
	return r
}

func (r CheckResult) WithDuration(d time.Duration) CheckResult {
	r.Duration = d
	return r
}
