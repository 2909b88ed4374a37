package migrations

import "embed"

// FS contains embedded SQLite migrations for the moderation store.
//
//go:embed *.sql
var FS embed.FS
