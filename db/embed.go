// Package db provides embedded database migration files.
package db

import "embed"

// Migrations holds the DDL migrations. They are applied in lexical file name
// order and must be idempotent.
//
//go:embed migrations/*.sql
var Migrations embed.FS
