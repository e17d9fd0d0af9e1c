// Package gemini provides implementations of the generation interfaces that
// use Google's Gemini API through the google.golang.org/genai client.
//
// This package is an infrastructure adapter: it translates between the
// dispatch engine's provider-neutral requests and the Gemini API without
// exposing the details of the external service to the rest of the
// application.
//
// Key components:
//
// 1. Client.Complete:
//   - Implements generation.Generator as an alternative synchronous provider
//   - Maps chat messages onto Gemini contents and system instructions
//
// 2. Client.Embed:
//   - Implements generation.Embedder for the embedding job
//
// 3. Client.GenerateImage:
//   - Implements generation.ImageGenerator for the image job
//
// 4. Error Handling:
//   - Implements retry logic with exponential backoff and jitter for transient errors
//   - Categorizes API errors into the generation package's sentinel errors
//   - Reports safety blocks as generation.ErrContentBlocked without retrying
//
// Gemini has no batch file interface compatible with the dispatch engine's
// manifest format, so this package only serves the synchronous paths.
package gemini
