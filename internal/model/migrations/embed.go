// Package migrations holds the goose migrations for objects AutoMigrate cannot
// express, such as the Postgres counter functions.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
