// Package migrations embebe las migraciones SQL de Postgres (formato golang-migrate).
package migrations

import "embed"

// FS contiene los archivos NNNNNN_name.{up,down}.sql.
//
//go:embed *.sql
var FS embed.FS

// Dir es el directorio dentro de FS donde viven las migraciones.
const Dir = "."
