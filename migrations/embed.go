// Package migrations embeds the ledger's SQL migration files into the binary.
//
// Importing it for side effects registers the files with the database
// package, so Migrate works without the SQL present on disk.
package migrations

import (
	"embed"

	"github.com/microbit-carlos/codalcfg/internal/infrastructure/database"
)

//go:embed *.sql
var migrationsFS embed.FS

func init() {
	database.MigrationsFS = migrationsFS
	database.MigrationsDir = "."
}
