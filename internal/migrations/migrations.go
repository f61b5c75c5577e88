package migrations

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed *.sql
var MigrationFiles embed.FS

const sourceName = "iofs"

// ErrLedgerOutdated is returned when auto-migration is disabled and the database is
// behind the run ledger schema embedded in the binary.
var ErrLedgerOutdated = errors.New("run ledger schema is outdated")

// LedgerVersion returns the newest run ledger schema version embedded in the binary.
func LedgerVersion() (uint, error) {
	src, err := iofs.New(MigrationFiles, ".")
	if err != nil {
		return 0, fmt.Errorf("failed to create migration source: %w", err)
	}
	defer src.Close()
	return latestVersion(src)
}

func latestVersion(src source.Driver) (uint, error) {
	version, err := src.First()
	if err != nil {
		return 0, fmt.Errorf("no run ledger migrations found: %w", err)
	}
	for {
		next, err := src.Next(version)
		if errors.Is(err, fs.ErrNotExist) {
			return version, nil
		}
		if err != nil {
			return 0, fmt.Errorf("failed to walk run ledger migrations: %w", err)
		}
		version = next
	}
}

// RunMigrations brings the run ledger schema to LedgerVersion. With autoMigrate
// disabled nothing is applied, and a database behind the embedded schema fails with
// ErrLedgerOutdated so that the run adapter never prepares statements against it.
func RunMigrations(db *sql.DB, autoMigrate bool) error {
	want, err := LedgerVersion()
	if err != nil {
		return err
	}

	sourceDriver, err := iofs.New(MigrationFiles, ".")
	if err != nil {
		return fmt.Errorf("failed to create migration source: %w", err)
	}
	dbDriver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("failed to create database driver: %w", err)
	}
	m, err := migrate.NewWithInstance(sourceName, sourceDriver, "postgres", dbDriver)
	if err != nil {
		return fmt.Errorf("failed to create migrate instance: %w", err)
	}

	current, err := ledgerVersion(m)
	if err != nil {
		return err
	}

	if !autoMigrate {
		if current < want {
			return fmt.Errorf("%w: database at version %d, binary expects %d (enable database.auto_migrate)", ErrLedgerOutdated, current, want)
		}
		slog.Info("[Migrations] Auto-migration disabled, run ledger is current", "ledger_version", current)
		return nil
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to migrate run ledger from version %d: %w", current, err)
	}

	if current == want {
		slog.Info("[Migrations] Run ledger schema is up to date", "ledger_version", current)
		return nil
	}
	slog.Info("[Migrations] Run ledger migrated", "from_version", current, "to_version", want)
	return nil
}

// ledgerVersion reads the applied version, recovering a dirty state left by an
// interrupted migration. Ledger migrations use IF [NOT] EXISTS and can be re-applied.
func ledgerVersion(m *migrate.Migrate) (uint, error) {
	version, dirty, err := m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to get current migration version: %w", err)
	}
	if !dirty {
		return version, nil
	}

	slog.Warn("[Migrations] Run ledger schema is dirty, forcing version", "ledger_version", version)
	if err := m.Force(int(version)); err != nil {
		return 0, fmt.Errorf("failed to recover dirty migration state at version %d: %w", version, err)
	}
	return version, nil
}
