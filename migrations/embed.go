// Package migrations embeds the SQL migration files into the binary.
//
// cmd/indigo passes FS to database.DB.Migrate at startup, so the schema
// travels with the executable.
package migrations

import "embed"

// FS holds every *.sql file in this directory at its root.
//
//go:embed *.sql
var FS embed.FS
