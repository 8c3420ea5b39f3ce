package boostly

import "embed"

//go:embed migrations/*.sql
var MigrationsFS embed.FS

// DefaultCatalog is used when no catalog file is configured.
//
//go:embed catalog.yaml
var DefaultCatalog []byte
