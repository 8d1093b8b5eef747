// Package migrations embeds the versioned Postgres schema of the catalog.
package migrations

import "embed"

// FS holds every NNNNNN_name.up.sql / .down.sql pair
//
//go:embed *.sql
var FS embed.FS
