// Package migrations embeds the PostgreSQL schema applied at boot when DB_AUTO_MIGRATE is set.
package migrations

import "embed"

//go:embed *.sql
var Files embed.FS
