package postgresql_test

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/cmlabs-hris/hris-payroll-go/internal/pkg/database"
)

// TestDatabaseSetup owns the connection used by the integration tests.
type TestDatabaseSetup struct {
	DB *database.DB
}

// NewTestDatabase connects to TEST_DATABASE_URL and applies the payroll
// schema from scratch. Tests are skipped when the variable is unset.
func NewTestDatabase(t *testing.T) *TestDatabaseSetup {
	t.Helper()

	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	ctx := context.Background()
	db, err := database.NewPostgreSQLDB(ctx, dsn, database.PoolOptions{MaxConns: 10})
	if err != nil {
		t.Fatalf("failed to connect to test database: %v", err)
	}

	setup := &TestDatabaseSetup{DB: db}
	if err := setup.applyMigrations(ctx); err != nil {
		db.Close()
		t.Fatalf("failed to apply migrations: %v", err)
	}
	t.Cleanup(setup.Close)

	return setup
}

func (t *TestDatabaseSetup) applyMigrations(ctx context.Context) error {
	dir := filepath.Join("..", "..", "..", "..", "migrations")
	for _, name := range []string{"000001_payroll.down.sql", "000001_payroll.up.sql"} {
		sql, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", name, err)
		}
		if _, err := t.DB.Exec(ctx, string(sql)); err != nil {
			return fmt.Errorf("failed to run %s: %w", name, err)
		}
	}
	return nil
}

// TruncateAllTables removes all rows touched by the tests.
func (t *TestDatabaseSetup) TruncateAllTables(ctx context.Context) error {
	tx, err := t.DB.BeginTx(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	tables := []string{
		"payroll_payment_events",
		"payroll_records",
		"leave_requests",
		"attendances",
		"employees",
	}

	for _, table := range tables {
		_, err := tx.Exec(ctx, fmt.Sprintf("TRUNCATE TABLE %s CASCADE", table))
		if err != nil {
			return fmt.Errorf("failed to truncate table %s: %w", table, err)
		}
	}

	return tx.Commit(ctx)
}

// Close closes the database pool.
func (t *TestDatabaseSetup) Close() {
	t.DB.Close()
}
