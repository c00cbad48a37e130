package graph

import (
	"context"
	"sync"
)

// MemoryClient records queries instead of running them. Used in tests and when no
// graph database is configured.
type MemoryClient struct {
	mu          sync.Mutex
	writes      []Query
	reads       []Query
	readResults []Result
	failures    int
	err         error
}

// Query is one recorded statement
type Query struct {
	Cypher string
	Params map[string]any
}

func NewMemoryClient() *MemoryClient {
	return &MemoryClient{}
}

// FailNext makes the next n calls return err
func (m *MemoryClient) FailNext(n int, err error) *MemoryClient {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failures = n
	m.err = err
	return m
}

// PushReadResult queues a result for the next ExecuteRead
func (m *MemoryClient) PushReadResult(res Result) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.readResults = append(m.readResults, res)
}

func (m *MemoryClient) ExecuteWrite(_ context.Context, cypher string, params map[string]any) (Result, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failLocked(); err != nil {
		return Result{}, err
	}
	m.writes = append(m.writes, Query{Cypher: cypher, Params: cloneParams(params)})
	return Result{}, nil
}

func (m *MemoryClient) ExecuteRead(_ context.Context, cypher string, params map[string]any) (Result, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failLocked(); err != nil {
		return Result{}, err
	}
	m.reads = append(m.reads, Query{Cypher: cypher, Params: cloneParams(params)})
	if len(m.readResults) == 0 {
		return Result{}, nil
	}
	res := m.readResults[0]
	m.readResults = m.readResults[1:]
	return res, nil
}

func (m *MemoryClient) failLocked() error {
	if m.failures == 0 {
		return nil
	}
	m.failures--
	return m.err
}

func (m *MemoryClient) VerifyConnectivity(context.Context) error { return nil }

func (m *MemoryClient) Close(context.Context) error { return nil }

// Writes returns a snapshot of recorded write statements
func (m *MemoryClient) Writes() []Query {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Query(nil), m.writes...)
}

// Reads returns a snapshot of recorded read statements
func (m *MemoryClient) Reads() []Query {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Query(nil), m.reads...)
}

func cloneParams(src map[string]any) map[string]any {
	if src == nil {
		return nil
	}
	dst := make(map[string]any, len(src))
	for k, v := range src {
		dst[k] = v
	}
	return dst
}
