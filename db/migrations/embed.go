// Package migrations embeds the SQL migration files in this directory so a
// deployed binary can apply its own schema without shipping the files
// alongside it separately.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
