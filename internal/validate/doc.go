// Package validate checks a merged tag set against the vocabulary schema.
//
// Failures are data, not errors: each problem becomes a human-readable
// reason string that downstream passes quote verbatim. Beyond schema checks
// (category applicability, numeric range membership, unknown tags) the
// package enforces two standalone rules: CBD products must carry strength,
// form, and spectrum tags, and nicotine strength tags above 20mg always fail
// even when a broken schema would allow them.
package validate
