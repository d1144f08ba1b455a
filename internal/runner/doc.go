// Package runner drives the tagging pipeline over a product set.
//
// A bounded worker pool takes one product at a time through rule extraction,
// the model cascade, validation, and the recovery pass, then persists the
// audit row. Workers never share an inference connection; each owns its own
// client while a single rate limiter throttles the pool globally. Run-level
// counters live exclusively in an aggregator goroutine fed by completion
// events, which also maintains a sliding-window throughput estimate for rate
// and ETA reporting. Interrupting a run leaves its status as running so a
// later invocation with the same run id resumes where it stopped.
package runner
