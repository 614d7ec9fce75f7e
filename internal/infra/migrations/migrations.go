// Package migrations embeds the schema migrations applied by goose.
package migrations

import "embed"

// Postgres holds the document store schema.
//
//go:embed postgres/*.sql
var Postgres embed.FS

// SQLite holds the local session slot schema.
//
//go:embed sqlite/*.sql
var SQLite embed.FS
