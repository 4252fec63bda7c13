// Package net provides utilities for working with request contexts
package net

import (
	"context"

	chimw "github.com/go-chi/chi/v5/middleware"
)

// ctxKey is an unexported key type for context values
type ctxKey string

const keyRepo ctxKey = "repo"

// WithRequest annotates context with common request scoped ids
func WithRequest(ctx context.Context, reqID, repo string) context.Context {
	if reqID != "" {
		// set chi RequestID so chimw.GetReqID can retrieve it
		ctx = context.WithValue(ctx, chimw.RequestIDKey, reqID)
	}
	if repo != "" {
		ctx = context.WithValue(ctx, keyRepo, repo)
	}
	return ctx
}

// RequestID returns the request id on the context if present
func RequestID(ctx context.Context) string {
	return chimw.GetReqID(ctx)
}

// Repo returns the owner/name repo slug on the context if present
func Repo(ctx context.Context) string {
	if v, ok := ctx.Value(keyRepo).(string); ok {
		return v
	}
	return ""
}
