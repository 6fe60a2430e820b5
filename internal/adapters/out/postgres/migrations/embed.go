// Package migrations holds the SQL schema of the service, applied with goose.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
