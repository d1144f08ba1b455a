// Package auditstore persists run and tagging-result records in SQLite.
//
// Every result insert is a single atomic write guarded by a UNIQUE
// (run_id, handle) constraint, which is what makes interrupted runs safe to
// resume: the processed-handle set read at startup is exact, and a racing
// duplicate insert fails loudly instead of double-counting. Concurrent
// writers are expected; the store runs in WAL mode with busy retries.
package auditstore
