// Package store holds the shared database schema for the concrete store
// implementations in its subpackages.
package store

import _ "embed"

// Schema creates all ledger tables. Statements are idempotent so it can be
// applied on every startup or test run.
//
//go:embed schema.sql
var Schema string
