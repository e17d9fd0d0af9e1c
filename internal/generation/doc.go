// Package generation defines the boundary between the dispatch engine and
// external AI/LLM services. It provides the Generator, Embedder and
// ImageGenerator interfaces implemented by the provider adapters under
// internal/platform, the chat request/response wire schema shared by the
// synchronous and batch paths, and the sentinel errors adapters translate
// provider failures into.
package generation
