// Package graph projects the trust graph into a Bolt-speaking graph database.
// The in-process trust service stays the source of truth; the projection is
// best effort and used for traversal queries.
package graph

import (
	"context"
	"errors"
)

// Client is the minimal contract the projector needs from a graph database
type Client interface {
	ExecuteWrite(ctx context.Context, cypher string, params map[string]any) (Result, error)
	ExecuteRead(ctx context.Context, cypher string, params map[string]any) (Result, error)
	VerifyConnectivity(ctx context.Context) error
	Close(ctx context.Context) error
}

type Result struct {
	Records []Record
}

// Record maps returned column names to values
type Record map[string]any

type Options struct {
	URI            string
	Database       string
	Username       string
	Password       string
	MaxConnections int
}

var ErrMissingURI = errors.New("graph URI is required")
