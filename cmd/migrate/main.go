package main

import (
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/example/authapi/internal/config"
	"github.com/example/authapi/internal/store"
)

func main() {
	var (
		command = flag.String("command", "up", "Migration command: up, down, version, force")
		steps   = flag.Int("steps", 0, "Number of migration steps (for up/down)")
		version = flag.Uint("version", 0, "Target version (for force command)")
		dir     = flag.String("dir", "", "Migrations directory (defaults to MIGRATIONS_DIR)")
	)
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	fail := func(msg string, err error) {
		logger.Error(msg, "error", err)
		os.Exit(1)
	}

	cfg, err := config.New()
	if err != nil {
		fail("config error", err)
	}

	if cfg.DBAdapter != "postgres" {
		fail("migrations only work with PostgreSQL", fmt.Errorf("current adapter: %s", cfg.DBAdapter))
	}

	dsn, err := cfg.BuildPostgresDSN()
	if err != nil {
		fail("PostgreSQL config error", err)
	}

	migrationsDir := cfg.MigrationsDir
	if *dir != "" {
		migrationsDir = *dir
	}

	m, err := store.NewMigrator(migrationsDir, dsn)
	if err != nil {
		fail("migrator", err)
	}
	defer m.Close()

	switch *command {
	case "up":
		res, err := m.Up(*steps)
		if err != nil {
			fail("migration up failed", err)
		}
		fmt.Printf("✓ Migrations applied successfully (version %d -> %d)\n", res.From, res.To)
	case "down":
		res, err := m.Down(*steps)
		if err != nil {
			fail("migration down failed", err)
		}
		fmt.Printf("✓ Migrations rolled back successfully (version %d -> %d)\n", res.From, res.To)
	case "version":
		v, dirty, err := m.Version()
		if err != nil {
			fail("failed to get version", err)
		}
		if dirty {
			fmt.Printf("⚠ Database is in a dirty state (version %d)\n", v)
			os.Exit(1)
		}
		fmt.Printf("Current migration version: %d\n", v)
	case "force":
		if *version == 0 {
			fail("version required for force command", errors.New("use -version flag"))
		}
		if err := m.Force(int(*version)); err != nil {
			fail("force migration failed", err)
		}
		fmt.Printf("✓ Forced database to version %d\n", *version)
	default:
		fail("unknown command", fmt.Errorf("%s (supported: up, down, version, force)", *command))
	}
}
