// Package migrations embeds the schema migrations for each supported
// database, so the binary carries its own schema.
package migrations

import "embed"

// SqliteMigrations holds sqlite/NNN_name.sql files applied in name order.
//
//go:embed sqlite/*.sql
var SqliteMigrations embed.FS

// PostgresMigrations mirrors SqliteMigrations for PostgreSQL.
//
//go:embed postgres/*.sql
var PostgresMigrations embed.FS
