package db

import "embed"

// MigrationFS embeds the SQL migrations for users, sessions and audit_logs.
// Used by the migrate runner behind cmd/migrate.
//
//go:embed migrations/*.sql
var MigrationFS embed.FS
