// Package migrations embeds the goose schema migrations, one directory per
// SQL dialect (postgres, mysql, sqlite).
package migrations

import "embed"

//go:embed postgres/*.sql mysql/*.sql sqlite/*.sql
var Migrations embed.FS
