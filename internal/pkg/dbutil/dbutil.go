package dbutil

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

var identRegex = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]{0,62}$`)

// Finalize rebinds gendry's '?' placeholders to postgres '$n'.
func Finalize(query string, args []interface{}) (string, []interface{}) {
	return sqlx.Rebind(sqlx.DOLLAR, query), args
}

// QuoteIdent validates and quotes a schema or table name supplied by config.
func QuoteIdent(name string) (string, error) {
	if !identRegex.MatchString(name) {
		return "", fmt.Errorf("invalid identifier: %q", name)
	}
	return pq.QuoteIdentifier(name), nil
}

// QualifiedName returns "schema"."table", or just "table" when schema is empty.
func QualifiedName(schema, table string) (string, error) {
	quotedTable, err := QuoteIdent(table)
	if err != nil {
		return "", err
	}
	schema = strings.TrimSpace(schema)
	if schema == "" {
		return quotedTable, nil
	}
	quotedSchema, err := QuoteIdent(schema)
	if err != nil {
		return "", err
	}
	return quotedSchema + "." + quotedTable, nil
}

func IsConflict(err error) bool {
	if pgErr, ok := err.(*pq.Error); ok {
		return pgErr.Code == "23505"
	}
	return false
}
