// Package mocks provides centralized mock implementations for testing.
//
// This package contains mock implementations of the provider-facing interfaces
// (generation.Generator, generation.Embedder, generation.ImageGenerator and
// batch.Provider), so dispatch tests across packages share one set of doubles
// instead of defining inline fakes.
//
// Usage:
//
//	gen := &mocks.MockGenerator{
//	    CompleteFn: func(ctx context.Context, req generation.ChatRequest) (string, error) {
//	        return "generated text", nil
//	    },
//	}
//
// Every mock records its calls under a mutex so it can be shared by concurrent
// workers, and falls back to its default return values when no Fn is set.
package mocks
