// Package schema loads the controlled tag vocabulary and serves immutable
// snapshots of it to the pipeline.
//
// A schema maps dimension names to either an enumerated tag set or a numeric
// range with a unit, plus the product categories the dimension applies to.
// The Cache re-reads the backing file on a TTL so operators can hot-edit the
// vocabulary mid-run; refresh is copy-and-swap, so concurrent readers never
// observe a partially updated schema.
package schema
