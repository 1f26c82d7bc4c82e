package storage

import "embed"

// Migrations holds the schema, applied at startup through db.Migrate.
//
//go:embed migrations/*.sql
var Migrations embed.FS

const MigrationsDir = "migrations"
