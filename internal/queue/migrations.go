package queue

import (
	"context"
	"embed"
	"sort"
	"strings"
)

//go:embed migrations/*.sql
var schemaFS embed.FS

// schemaStep is one versioned DDL script. The file name without the .sql
// suffix doubles as the recorded version, so scripts apply in name order.
type schemaStep struct {
	version string
	script  string
}

func loadSchemaSteps() ([]schemaStep, error) {
	entries, err := schemaFS.ReadDir("migrations")
	if err != nil {
		return nil, Wrap(ErrStorage, "load schema", "read migrations dir", err)
	}

	steps := make([]schemaStep, 0, len(entries))
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".sql") {
			continue
		}
		script, err := schemaFS.ReadFile("migrations/" + name)
		if err != nil {
			return nil, Wrap(ErrStorage, "load schema", name, err)
		}
		steps = append(steps, schemaStep{
			version: strings.TrimSuffix(name, ".sql"),
			script:  string(script),
		})
	}
	sort.Slice(steps, func(i, j int) bool { return steps[i].version < steps[j].version })
	return steps, nil
}

// applyMigrations brings the entries/blobs schema up to date. Every pending
// step runs inside one transaction, so a failed upgrade leaves the previous
// schema fully intact.
func (s *Store) applyMigrations(ctx context.Context) error {
	steps, err := loadSchemaSteps()
	if err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Wrap(ErrStorage, "migrate schema", "begin transaction", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if _, err := tx.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS schema_migrations (version TEXT PRIMARY KEY)`); err != nil {
		return Wrap(ErrStorage, "migrate schema", "ensure version table", err)
	}

	applied := make(map[string]struct{})
	rows, err := tx.QueryContext(ctx, `SELECT version FROM schema_migrations`)
	if err != nil {
		return Wrap(ErrStorage, "migrate schema", "read applied versions", err)
	}
	for rows.Next() {
		var version string
		if err := rows.Scan(&version); err != nil {
			rows.Close()
			return Wrap(ErrStorage, "migrate schema", "scan applied version", err)
		}
		applied[version] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return Wrap(ErrStorage, "migrate schema", "read applied versions", err)
	}
	rows.Close()

	for _, step := range steps {
		if _, done := applied[step.version]; done {
			continue
		}
		if _, err := tx.ExecContext(ctx, step.script); err != nil {
			return Wrap(ErrStorage, "migrate schema", step.version, err)
		}
		if _, err := tx.ExecContext(ctx, `INSERT INTO schema_migrations (version) VALUES (?)`, step.version); err != nil {
			return Wrap(ErrStorage, "migrate schema", "record "+step.version, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return Wrap(ErrStorage, "migrate schema", "commit", err)
	}
	return nil
}
