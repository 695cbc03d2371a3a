package migrate

import "embed"

// Migrations holds the SQL files compiled into the binaries.
//
//go:embed migrations/*.sql
var Migrations embed.FS

// embeddedDir is the directory inside Migrations that goose reads from.
const embeddedDir = "migrations"
