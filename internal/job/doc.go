// Package job defines the kinds of generation work the pipeline runs: recipe
// text, translations, images and embeddings. A job decides which fields an
// item needs, how the provider request for each field is built and how the
// finished item is rendered as an artifact. The batch path and the synchronous
// fallback build requests through the same job, so their outputs are
// indistinguishable.
package job
