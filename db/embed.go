// Package db embeds the storefront schema.
package db

import _ "embed"

// Schema creates every storefront table and index. Statements are idempotent
// and run on each start.
//
//go:embed migrations/001_schema.sql
var Schema string
