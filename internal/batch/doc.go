// Package batch implements the asynchronous dispatch strategy: pending work
// items are packaged into one provider batch job, the job is polled to a
// terminal state or a deadline, and the downloaded result lines are correlated
// back to the (item, field) pairs that produced them.
//
// The package never decides how a failure is recovered. Every item it cannot
// resolve is returned to the caller, which routes it to the synchronous
// fallback path.
package batch
