package health

import (
	"context"
	"time"

	"github.com/sony/gobreaker"
)

// Pinger is anything that can verify it reaches its backend, such as the graph client
type Pinger interface {
	VerifyConnectivity(ctx context.Context) error
}

// GraphChecker reports the trust graph projection target. Projection is best effort,
// so an unreachable graph degrades the service instead of failing it.
type GraphChecker struct {
	pinger Pinger
}

func NewGraphChecker(p Pinger) *GraphChecker {
	return &GraphChecker{pinger: p}
}

func (c *GraphChecker) Name() string { return "graph" }

func (c *GraphChecker) Check(ctx context.Context) CheckResult {
	start := time.Now()
	if err := c.pinger.VerifyConnectivity(ctx); err != nil {
		return NewDegradedResult(c.Name(), "graph projection unavailable").
			WithDuration(time.Since(start)).
			WithMetadata("error", err.Error())
	}
	return NewHealthyResult(c.Name(), "graph reachable").WithDuration(time.Since(start))
}

// BreakerState is satisfied by the resilient payment adapter
type BreakerState interface {
	State() gobreaker.State
}

// BreakerChecker maps a circuit breaker onto a health status
type BreakerChecker struct {
	name    string
	breaker BreakerState
}

func NewBreakerChecker(name string, b BreakerState) *BreakerChecker {
	return &BreakerChecker{name: name, breaker: b}
}

func (c *BreakerChecker) Name() string { return c.name }

func (c *BreakerChecker) Check(context.Context) CheckResult {
	state := c.breaker.State()
	var result CheckResult
	switch state {
	case gobreaker.StateClosed:
		result = NewHealthyResult(c.name, "circuit closed")
	case gobreaker.StateHalfOpen:
		result = NewDegradedResult(c.name, "circuit half-open")
	default:
		result = NewDegradedResult(c.name, "circuit open, calls are being rejected")
	}
	return result.WithMetadata("state", state.String())
}
