// Package migrations holds the goose SQL migrations, one directory per dialect.
package migrations

import "embed"

// FS contains the postgres/ and sqlite/ migration trees.
//
//go:embed postgres/*.sql sqlite/*.sql
var FS embed.FS
