package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/vladislavdragonenkov/farmstand/internal/app"
	"github.com/vladislavdragonenkov/farmstand/internal/storage/sqlstore"
)

const (
	defaultTimeout = 30 * time.Second
)

func main() {
	defaults := app.DefaultConfig()
	var (
		direction string
		steps     int
		driver    string
		dsn       string
	)

	flag.StringVar(&direction, "direction", "up", "migration direction: up|down|status")
	flag.IntVar(&steps, "steps", 0, "number of migrations to apply/rollback (0=all for up, 1 for down)")
	flag.StringVar(&driver, "driver", "", "journal driver: sqlite|postgres|mysql (fallback: "+app.EnvStorageDriver+")")
	flag.StringVar(&dsn, "dsn", "", "journal DSN (fallback: "+app.EnvStorageDSN+")")
	flag.Parse()

	driver = firstNonEmpty(driver, os.Getenv(app.EnvStorageDriver), defaults.StorageDriver)
	dsn = firstNonEmpty(dsn, os.Getenv(app.EnvStorageDSN))
	if dsn == "" && driver == app.StorageDriverSQLite {
		dsn = defaults.StorageDSN
	}
	if dsn == "" {
		fail("%s (or -dsn) is required for %s", app.EnvStorageDSN, driver)
	}

	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	store, err := sqlstore.Open(ctx, driver, dsn)
	if err != nil {
		fail("open %s journal: %v", driver, err)
	}
	defer store.Close()

	switch strings.ToLower(strings.TrimSpace(direction)) {
	case "up":
		if err := store.MigrateUp(ctx, steps); err != nil {
			fail("migrate up failed: %v", err)
		}
		report(ctx, store, "migrate up ok")
	case "down":
		if steps <= 0 {
			steps = 1
		}
		if err := store.MigrateDown(ctx, steps); err != nil {
			fail("migrate down failed: %v", err)
		}
		report(ctx, store, "migrate down ok")
	case "status":
		report(ctx, store, "migration status")
	default:
		fail("unsupported direction: %s (use up|down|status)", direction)
	}
}

func report(ctx context.Context, store *sqlstore.Store, prefix string) {
	version, count, err := store.MigrationStatus(ctx)
	if err != nil {
		fail("migration status failed: %v", err)
	}
	fmt.Printf("%s: dialect=%s version=%d applied=%d\n", prefix, store.Dialect(), version, count)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}

func fail(format string, args ...any) {
	_, _ = fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
