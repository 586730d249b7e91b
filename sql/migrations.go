// Package migrations embeds the goose migrations of the browser storage schema.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
