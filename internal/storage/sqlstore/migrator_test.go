package sqlstore

import (
	"context"
	"strings"
	"testing"
	"testing/fstest"
	"time"
)

func TestLoadMigrationsFromFS_Success(t *testing.T) {
	t.Parallel()

	fsys := fstest.MapFS{
		"sql/migrations/sqlite/0002_more.up.sql":   {Data: []byte("CREATE TABLE test_b (id INT);")},
		"sql/migrations/sqlite/0002_more.down.sql": {Data: []byte("DROP TABLE IF EXISTS test_b;")},
		"sql/migrations/sqlite/0001_init.up.sql":   {Data: []byte("CREATE TABLE test_a (id INT);")},
		"sql/migrations/sqlite/0001_init.down.sql": {Data: []byte("DROP TABLE IF EXISTS test_a;")},
		"sql/migrations/mysql/0001_other.up.sql":   {Data: []byte("CREATE TABLE other (id INT);")},
	}

	migrations, err := loadMigrationsFromFS(fsys, DialectSQLite)
	if err != nil {
		t.Fatalf("loadMigrationsFromFS failed: %v", err)
	}
	if len(migrations) != 2 {
		t.Fatalf("expected 2 migrations, got %d", len(migrations))
	}
	if migrations[0].Version != 1 || migrations[0].Name != "init" {
		t.Fatalf("unexpected first migration: %+v", migrations[0])
	}
	if migrations[1].Version != 2 || migrations[1].Name != "more" {
		t.Fatalf("unexpected second migration: %+v", migrations[1])
	}
}

func TestLoadMigrationsFromFS_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		fsys    fstest.MapFS
		wantErr string
	}{
		{
			name: "missing down",
			fsys: fstest.MapFS{
				"sql/migrations/sqlite/0001_init.up.sql": {Data: []byte("CREATE TABLE a (id INT);")},
			},
			wantErr: "both up and down",
		},
		{
			name: "invalid name",
			fsys: fstest.MapFS{
				"sql/migrations/sqlite/not_a_migration.sql": {Data: []byte("SELECT 1;")},
			},
			wantErr: "invalid migration file name",
		},
		{
			name: "empty body",
			fsys: fstest.MapFS{
				"sql/migrations/sqlite/0001_init.up.sql":   {Data: []byte("  \n")},
				"sql/migrations/sqlite/0001_init.down.sql": {Data: []byte("DROP TABLE a;")},
			},
			wantErr: "empty",
		},
		{
			name:    "no files for dialect",
			fsys:    fstest.MapFS{"sql/migrations/mysql/0001_init.up.sql": {Data: []byte("SELECT 1;")}},
			wantErr: "no migration files",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := loadMigrationsFromFS(tt.fsys, DialectSQLite)
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestEmbeddedMigrationsForEveryDialect(t *testing.T) {
	for _, dialect := range []Dialect{DialectSQLite, DialectPostgres, DialectMySQL} {
		migrations, err := loadMigrationsFromFS(migrationsFS, dialect)
		if err != nil {
			t.Fatalf("%s: %v", dialect, err)
		}
		if len(migrations) != 2 {
			t.Fatalf("%s: expected 2 migrations, got %d", dialect, len(migrations))
		}
	}
}

func TestSplitStatements(t *testing.T) {
	body := "CREATE TABLE a (\n  id INT\n);\nCREATE INDEX idx ON a (id);\n"
	stmts := splitStatements(body)
	if len(stmts) != 2 {
		t.Fatalf("expected 2 statements, got %d: %q", len(stmts), stmts)
	}
	if !strings.HasPrefix(stmts[1], "CREATE INDEX") || strings.HasSuffix(stmts[1], ";") {
		t.Fatalf("unexpected statement %q", stmts[1])
	}
	if got := splitStatements("SELECT 1"); len(got) != 1 || got[0] != "SELECT 1" {
		t.Fatalf("unterminated statement must be kept, got %q", got)
	}
}

func TestParseDialect(t *testing.T) {
	cases := map[string]Dialect{
		"sqlite3":    DialectSQLite,
		"SQLite":     DialectSQLite,
		"postgresql": DialectPostgres,
		"pgx":        DialectPostgres,
		"mariadb":    DialectMySQL,
	}
	for in, want := range cases {
		got, err := ParseDialect(in)
		if err != nil || got != want {
			t.Errorf("ParseDialect(%q) = %q, %v; want %q", in, got, err, want)
		}
	}
	if _, err := ParseDialect("oracle"); err == nil {
		t.Fatal("expected error for unknown dialect")
	}
}

func TestMigrator_SQLiteLifecycle(t *testing.T) {
	store := openSQLiteStoreForTest(t, false)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	assertStatus := func(wantVersion int64, wantCount int) {
		t.Helper()
		version, count, err := store.MigrationStatus(ctx)
		if err != nil {
			t.Fatalf("migration status: %v", err)
		}
		if version != wantVersion || count != wantCount {
			t.Fatalf("unexpected status: version=%d count=%d", version, count)
		}
	}

	assertStatus(0, 0)
	if err := store.MigrateUp(ctx, 1); err != nil {
		t.Fatalf("migrate up 1: %v", err)
	}
	assertStatus(1, 1)
	if err := store.MigrateUp(ctx, 0); err != nil {
		t.Fatalf("migrate up all: %v", err)
	}
	assertStatus(2, 2)
	if err := store.MigrateUp(ctx, 0); err != nil {
		t.Fatalf("idempotent migrate up: %v", err)
	}
	assertStatus(2, 2)
	if err := store.MigrateDown(ctx, 0); err != nil {
		t.Fatalf("migrate down: %v", err)
	}
	assertStatus(1, 1)
	if err := store.MigrateDown(ctx, 10); err != nil {
		t.Fatalf("migrate down all: %v", err)
	}
	assertStatus(0, 0)
}
