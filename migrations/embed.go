// Package migrations embeds the sqlite schema migrations
package migrations

import "embed"

// FS holds the numbered .sql migration files
//
//go:embed *.sql
var FS embed.FS
