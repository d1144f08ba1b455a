// Package report writes run output partitions and summary breakdowns.
//
// Every persisted result lands in exactly one CSV partition keyed by its
// final disposition: clean (publishable as-is), review (valid but flagged),
// or untagged (empty final tag set). Rows carry the rule-versus-model tag
// breakdown needed by downstream export tooling and future training data.
package report
