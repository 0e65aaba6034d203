package migrations

import "embed"

// FS holds the identity database schema migrations.
//
//go:embed *.sql
var FS embed.FS
