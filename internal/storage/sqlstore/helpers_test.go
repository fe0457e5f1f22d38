package sqlstore

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func openSQLiteStoreForTest(t *testing.T, migrate bool) *Store {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	dsn := "file:" + filepath.Join(t.TempDir(), "journal.db") + "?_busy_timeout=5000"
	store, err := Open(ctx, "sqlite", dsn)
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	if migrate {
		if err := store.MigrateUp(ctx, 0); err != nil {
			t.Fatalf("migrate up: %v", err)
		}
	}
	return store
}

// openExternalStoreForIntegrationTest подключается к Postgres/MySQL из окружения или пропускает тест.
func openExternalStoreForIntegrationTest(t *testing.T, driver, envVar string) *Store {
	t.Helper()

	dsn := strings.TrimSpace(os.Getenv(envVar))
	if dsn == "" {
		t.Skipf("%s is not set, skipping %s integration test", envVar, driver)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	store, err := Open(ctx, driver, dsn)
	if err != nil {
		t.Skipf("%s is not available for integration tests: %v", driver, err)
	}
	t.Cleanup(func() { _ = store.Close() })

	if err := store.MigrateUp(ctx, 0); err != nil {
		t.Fatalf("migrate up: %v", err)
	}
	for _, table := range []string{"submission_journal", "outbox_messages"} {
		if _, err := store.DB().ExecContext(ctx, fmt.Sprintf("DELETE FROM %s", table)); err != nil {
			t.Fatalf("truncate %s: %v", table, err)
		}
	}
	return store
}
