// Package testutil opens a throwaway Postgres schema for integration tests.
package testutil

import (
	"context"
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap/zaptest"

	"github.com/and161185/beatbattle/internal/config"
	"github.com/and161185/beatbattle/internal/migrate"
	"github.com/and161185/beatbattle/internal/repository/postgres"
)

var schemaNamePattern = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// OpenTestDB creates a fresh schema in TEST_POSTGRES_DSN, migrates it and
// returns a DB bound to it. The schema is dropped when the test ends.
// The test is skipped when TEST_POSTGRES_DSN is unset.
func OpenTestDB(t *testing.T) *postgres.DB {
	t.Helper()
	cfg, err := config.LoadTest()
	if err != nil {
		t.Skipf("skip test db: %v", err)
	}
	dsn := cfg.TestPostgresDSN
	ctx := context.Background()
	schema := fmt.Sprintf("test_%d", time.Now().UnixNano())

	base, err := pgxpool.New(ctx, dsn)
	if err != nil {
		t.Fatalf("open base db: %v", err)
	}
	create, err := schemaDDL("CREATE SCHEMA %s", schema)
	if err != nil {
		base.Close()
		t.Fatalf("invalid schema name: %v", err)
	}
	if _, err := base.Exec(ctx, create); err != nil {
		base.Close()
		t.Fatalf("create schema: %v", err)
	}
	base.Close()

	scoped := withSearchPath(dsn, schema)
	if err := migrate.Up(ctx, scoped, zaptest.NewLogger(t)); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	db, err := postgres.New(ctx, scoped)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}

	t.Cleanup(func() {
		db.Close()
		base, err := pgxpool.New(context.Background(), dsn)
		if err != nil {
			return
		}
		defer base.Close()
		if drop, err := schemaDDL("DROP SCHEMA %s CASCADE", schema); err == nil {
			_, _ = base.Exec(context.Background(), drop)
		}
	})
	return db
}

func withSearchPath(dsn, schema string) string {
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	return dsn + sep + "search_path=" + url.QueryEscape(schema)
}

func schemaDDL(format, schema string) (string, error) {
	if !schemaNamePattern.MatchString(schema) {
		return "", fmt.Errorf("schema %q does not match required pattern", schema)
	}
	return fmt.Sprintf(format, pgx.Identifier{schema}.Sanitize()), nil
}
