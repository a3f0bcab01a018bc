// Package migrations embeds the service's numbered SQL migrations.
package migrations

import "embed"

//go:embed *.sql
var Files embed.FS
