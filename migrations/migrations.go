// Package migrations embeds the address service schema.
package migrations

import "embed"

// FS holds the *.up.sql and *.down.sql files, applied by
// database.RunMigrations in lexical order.
//
//go:embed *.sql
var FS embed.FS
