// Package fallback completes, one request at a time, the items the batch path
// left unresolved. Requests are built by the same job as batch requests and
// paced at a fixed interval.
package fallback
