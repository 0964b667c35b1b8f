package storage

import (
	"database/sql"
	"errors"
	"fmt"
)

// migration moves the schema from version-1 to version.
type migration struct {
	version int
	name    string
	stmts   []string
}

// migrations are applied in order; append only.
var migrations = []migration{
	{
		version: 1,
		name:    "modules and declarations",
		stmts: []string{
			`CREATE TABLE IF NOT EXISTS modules (
				module_id TEXT PRIMARY KEY,
				name TEXT NOT NULL,
				root_path TEXT NOT NULL,
				manifest_type TEXT,
				detected_at TEXT NOT NULL,
				state_id TEXT NOT NULL
			)`,
			`CREATE INDEX IF NOT EXISTS idx_modules_name ON modules(name)`,
			`CREATE INDEX IF NOT EXISTS idx_modules_root_path ON modules(root_path)`,
			// id preserves extraction order.
			`CREATE TABLE IF NOT EXISTS declarations (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				module_id TEXT NOT NULL,
				language TEXT NOT NULL,
				file_path TEXT NOT NULL,
				line INTEGER NOT NULL,
				end_line INTEGER NOT NULL,
				class_name TEXT NOT NULL,
				method_name TEXT NOT NULL,
				class_annotations_json TEXT NOT NULL,
				method_annotations_json TEXT NOT NULL,
				source_ref TEXT NOT NULL,
				FOREIGN KEY (module_id) REFERENCES modules(module_id) ON DELETE CASCADE
			)`,
			`CREATE INDEX IF NOT EXISTS idx_declarations_module ON declarations(module_id)`,
			`CREATE INDEX IF NOT EXISTS idx_declarations_file ON declarations(file_path)`,
		},
	},
}

// SchemaVersion is the version this build writes.
func SchemaVersion() int {
	return migrations[len(migrations)-1].version
}

// migrate applies every migration newer than the stored version.
// Databases from an interrupted first run have no version row and start
// from zero; CREATE ... IF NOT EXISTS keeps that safe.
func (db *DB) migrate() error {
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS schema_version (version INTEGER NOT NULL)`); err != nil {
		return fmt.Errorf("creating schema_version: %w", err)
	}
	current, err := db.storedVersion()
	if err != nil {
		return err
	}
	if current > SchemaVersion() {
		return fmt.Errorf("database schema version %d is newer than supported version %d; rebuild with 'routemap index --force' or upgrade routemap",
			current, SchemaVersion())
	}

	for _, m := range migrations {
		if m.version <= current {
			continue
		}
		db.logger.Info("Applying schema migration", "version", m.version, "name", m.name, "path", db.path)
		err := db.WithTx(func(tx *sql.Tx) error {
			for _, stmt := range m.stmts {
				if _, err := tx.Exec(stmt); err != nil {
					return fmt.Errorf("migration %d (%s): %w", m.version, m.name, err)
				}
			}
			if _, err := tx.Exec("DELETE FROM schema_version"); err != nil {
				return err
			}
			_, err := tx.Exec("INSERT INTO schema_version (version) VALUES (?)", m.version)
			return err
		})
		if err != nil {
			return err
		}
	}
	return nil
}

func (db *DB) storedVersion() (int, error) {
	var v int
	err := db.QueryRow("SELECT version FROM schema_version LIMIT 1").Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("reading schema version: %w", err)
	}
	return v, nil
}
