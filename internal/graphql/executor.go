package graphql

import (
	"context"
	"encoding/json"
)

// Executor runs one GraphQL request/response cycle and returns the data
// object. Failures are *Error values.
type Executor interface {
	Execute(ctx context.Context, query string, variables map[string]any) (json.RawMessage, error)
}

// ExecutorFunc adapts a function to the Executor interface
type ExecutorFunc func(ctx context.Context, query string, variables map[string]any) (json.RawMessage, error)

func (f ExecutorFunc) Execute(ctx context.Context, query string, variables map[string]any) (json.RawMessage, error) {
	return f(ctx, query, variables)
}
