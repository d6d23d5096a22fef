package db

import (
	"context"
	"fmt"
	"regexp"
)

var schemaPattern = regexp.MustCompile(`^[a-z_][a-z0-9_]{0,62}$`)

// ValidSchemaName reports whether name can be interpolated into DDL as an
// unquoted PostgreSQL identifier.
func ValidSchemaName(name string) bool {
	return schemaPattern.MatchString(name)
}

func searchPath(schema string) string {
	if schema == "public" {
		return "public"
	}
	return schema + ", public"
}

// CreateSchema creates the named schema if it does not exist yet.
func CreateSchema(ctx context.Context, q Querier, name string) error {
	if !ValidSchemaName(name) {
		return fmt.Errorf("invalid schema name %q", name)
	}
	if _, err := q.Exec(ctx, fmt.Sprintf("CREATE SCHEMA IF NOT EXISTS %s", name)); err != nil {
		return fmt.Errorf("create schema %s: %w", name, err)
	}
	return nil
}
