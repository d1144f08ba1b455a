// Package cascade runs the model fallback chain for one product.
//
// The chain calls the primary model first and accepts its answer immediately
// when the self-reported confidence clears the configured threshold. Below
// threshold, the secondary model is tried under the same rule. The tertiary
// model is the floor of the chain: its answer is always accepted (the
// always-produce policy) but flagged for manual review when still under
// threshold. Only when every call fails outright does the cascade return an
// empty result with model "none".
package cascade
