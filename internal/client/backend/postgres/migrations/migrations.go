// Package migrations embeds the schema of the self-hosted progress database.
package migrations

import "embed"

//go:embed *.sql
var Migrations embed.FS
