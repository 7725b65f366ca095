package sqlengine

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"

	"github.com/doug-martin/goqu/v9"

	"github.com/AntonStoeckl/library-loans-go/loans/sqlengine/internal/adapters"
)

//go:embed migrations/postgres/*.sql migrations/sqlite/*.sql
var migrationFiles embed.FS

const (
	tableSchemaMigrations = "schema_migrations"
	colFilename           = "filename"
	colAppliedAt          = "applied_at"

	actionEnsureMigrations = "ensure migrations table"
	actionListMigrations   = "list applied migrations"
	actionApplyMigration   = "apply migration"
	actionRecordMigration  = "record migration"

	logMsgMigrationApplied = "migration applied"
	logMsgMigrationSkipped = "migration already applied"
	logAttrFile            = "file"
)

// ErrMigrationFailed is joined with the cause of any failed schema migration.
var ErrMigrationFailed = errors.New("schema migration failed")

// rawStatement passes fixed DDL text through the statement helpers.
type rawStatement string

func (r rawStatement) ToSQL() (string, []any, error) {
	return string(r), nil, nil
}

// Migrate applies the embedded schema migrations for the engine's dialect that were not applied yet.
// Applied files are tracked in the schema_migrations table, each file runs in its own transaction.
func (e *Engine) Migrate(ctx context.Context) error {
	dir := e.migrationsDir()

	ensure := rawStatement(fmt.Sprintf(
		"CREATE TABLE IF NOT EXISTS %s (%s TEXT PRIMARY KEY, %s TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP)",
		tableSchemaMigrations, colFilename, colAppliedAt,
	))

	if _, err := e.execStatement(ctx, e.db, actionEnsureMigrations, ensure); err != nil {
		return errors.Join(ErrMigrationFailed, err)
	}

	applied, err := e.appliedMigrations(ctx)
	if err != nil {
		return errors.Join(ErrMigrationFailed, err)
	}

	files, err := listMigrationFiles(dir)
	if err != nil {
		return errors.Join(ErrMigrationFailed, err)
	}

	for _, filename := range files {
		if applied[filename] {
			e.logDebug(ctx, logMsgMigrationSkipped, logAttrFile, filename)
			continue
		}

		if err := e.applyMigration(ctx, dir, filename); err != nil {
			return errors.Join(ErrMigrationFailed, fmt.Errorf("apply migration %s: %w", filename, err))
		}

		e.logInfo(ctx, logMsgMigrationApplied, logAttrFile, filename)
	}

	return nil
}

func (e *Engine) migrationsDir() string {
	if e.dialect == DialectSQLite {
		return "migrations/sqlite"
	}

	return "migrations/postgres"
}

func (e *Engine) appliedMigrations(ctx context.Context) (map[string]bool, error) {
	stmt := e.selectFrom(tableSchemaMigrations).
		Select(colFilename).
		Order(goqu.C(colFilename).Asc())

	applied := make(map[string]bool)

	err := e.queryRows(ctx, e.db, actionListMigrations, stmt, func(rows adapters.DBRows) error {
		var filename string
		if err := rows.Scan(&filename); err != nil {
			return err
		}

		applied[filename] = true

		return nil
	})

	return applied, err
}

func listMigrationFiles(dir string) ([]string, error) {
	entries, err := fs.ReadDir(migrationFiles, dir)
	if err != nil {
		return nil, err
	}

	var files []string
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".sql") {
			continue
		}

		files = append(files, entry.Name())
	}

	sort.Strings(files)

	return files, nil
}

// splitStatements splits a migration file on semicolons. Migration files contain no
// semicolons inside literals or bodies.
func splitStatements(content string) []string {
	var statements []string

	for _, part := range strings.Split(content, ";") {
		if stmt := strings.TrimSpace(part); stmt != "" {
			statements = append(statements, stmt)
		}
	}

	return statements
}

func (e *Engine) applyMigration(ctx context.Context, dir, filename string) error {
	content, err := fs.ReadFile(migrationFiles, path.Join(dir, filename))
	if err != nil {
		return fmt.Errorf("read file: %w", err)
	}

	return e.inTransaction(ctx, func(tx adapters.DBTx) error {
		for _, stmt := range splitStatements(string(content)) {
			if _, err := e.execStatement(ctx, tx, actionApplyMigration, rawStatement(stmt)); err != nil {
				return err
			}
		}

		record := e.insertInto(tableSchemaMigrations).
			Cols(colFilename).
			Vals(goqu.Vals{filename})

		_, err := e.execStatement(ctx, tx, actionRecordMigration, record)

		return err
	})
}
