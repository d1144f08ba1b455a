// Package recovery re-tags a product after validation failure.
//
// It makes one additional model call with a prompt that quotes the failure
// reasons verbatim and restates the category's mandatory-dimension rules,
// using the tertiary model at an elevated sampling temperature. The result
// is re-validated; a passing set replaces the final tags but the product is
// always flagged for manual review. A failing or unreachable recovery keeps
// the original tags and failure reasons.
package recovery
