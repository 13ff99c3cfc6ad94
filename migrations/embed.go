// Package migrations embeds the reference warehouse schema and seed data used
// by integration tests and local development.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
