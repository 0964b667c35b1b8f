package storage

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"routemap/internal/endpoint"
)

// Module represents a module record
type Module struct {
	ModuleID     string
	Name         string
	RootPath     string
	ManifestType *string
	DetectedAt   time.Time
	StateID      string
}

// ModuleRepository provides CRUD operations for the modules table
type ModuleRepository struct {
	db *DB
}

// NewModuleRepository creates a new module repository
func NewModuleRepository(db *DB) *ModuleRepository {
	return &ModuleRepository{db: db}
}

// Create inserts a new module
func (r *ModuleRepository) Create(module *Module) error {
	if err := insertModule(r.db.conn, module); err != nil {
		return fmt.Errorf("failed to create module: %w", err)
	}
	return nil
}

// GetByID retrieves a module by its ID
func (r *ModuleRepository) GetByID(moduleID string) (*Module, error) {
	var module Module
	var detectedAt string

	err := r.db.QueryRow(`
		SELECT module_id, name, root_path, manifest_type, detected_at, state_id
		FROM modules
		WHERE module_id = ?
	`, moduleID).Scan(
		&module.ModuleID,
		&module.Name,
		&module.RootPath,
		&module.ManifestType,
		&detectedAt,
		&module.StateID,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get module: %w", err)
	}

	module.DetectedAt, err = time.Parse(time.RFC3339, detectedAt)
	if err != nil {
		return nil, fmt.Errorf("invalid detected_at format: %w", err)
	}

	return &module, nil
}

// ListAll returns all modules
func (r *ModuleRepository) ListAll() ([]*Module, error) {
	rows, err := r.db.Query(`
		SELECT module_id, name, root_path, manifest_type, detected_at, state_id
		FROM modules
		ORDER BY root_path
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list modules: %w", err)
	}
	defer rows.Close()

	return r.scanModules(rows)
}

// Delete removes a module and, through the foreign key, its declarations
func (r *ModuleRepository) Delete(moduleID string) error {
	_, err := r.db.Exec("DELETE FROM modules WHERE module_id = ?", moduleID)
	if err != nil {
		return fmt.Errorf("failed to delete module: %w", err)
	}
	return nil
}

func (r *ModuleRepository) scanModules(rows *sql.Rows) ([]*Module, error) {
	var modules []*Module

	for rows.Next() {
		var module Module
		var detectedAt string

		err := rows.Scan(
			&module.ModuleID,
			&module.Name,
			&module.RootPath,
			&module.ManifestType,
			&detectedAt,
			&module.StateID,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan module: %w", err)
		}

		module.DetectedAt, err = time.Parse(time.RFC3339, detectedAt)
		if err != nil {
			return nil, fmt.Errorf("invalid detected_at format: %w", err)
		}

		modules = append(modules, &module)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating modules: %w", err)
	}

	return modules, nil
}

type execer interface {
	Exec(query string, args ...interface{}) (sql.Result, error)
}

func insertModule(e execer, module *Module) error {
	_, err := e.Exec(`
		INSERT INTO modules (module_id, name, root_path, manifest_type, detected_at, state_id)
		VALUES (?, ?, ?, ?, ?, ?)
	`,
		module.ModuleID,
		module.Name,
		module.RootPath,
		module.ManifestType,
		module.DetectedAt.UTC().Format(time.RFC3339),
		module.StateID,
	)
	return err
}

// DeclarationRepository stores extracted declarations
type DeclarationRepository struct {
	db *DB
}

// NewDeclarationRepository creates a new declaration repository
func NewDeclarationRepository(db *DB) *DeclarationRepository {
	return &DeclarationRepository{db: db}
}

// ReplaceAll swaps the whole index content in one transaction, so readers
// see either the previous or the new set, never a mix.
func (r *DeclarationRepository) ReplaceAll(modules []*Module, decls []endpoint.Declaration) error {
	return r.db.WithTx(func(tx *sql.Tx) error {
		if _, err := tx.Exec("DELETE FROM declarations"); err != nil {
			return fmt.Errorf("failed to clear declarations: %w", err)
		}
		if _, err := tx.Exec("DELETE FROM modules"); err != nil {
			return fmt.Errorf("failed to clear modules: %w", err)
		}

		for _, m := range modules {
			if err := insertModule(tx, m); err != nil {
				return fmt.Errorf("failed to insert module %s: %w", m.Name, err)
			}
		}

		stmt, err := tx.Prepare(`
			INSERT INTO declarations (
				module_id, language, file_path, line, end_line,
				class_name, method_name,
				class_annotations_json, method_annotations_json, source_ref
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`)
		if err != nil {
			return fmt.Errorf("failed to prepare insert: %w", err)
		}
		defer stmt.Close()

		for _, d := range decls {
			classJSON, err := marshalAnnotations(d.ClassAnnotations)
			if err != nil {
				return err
			}
			methodJSON, err := marshalAnnotations(d.MethodAnnotations)
			if err != nil {
				return err
			}
			if _, err := stmt.Exec(
				d.ModuleID, string(d.Language), d.File, d.Line, d.EndLine,
				d.Class, d.Method, classJSON, methodJSON, string(d.SourceRef),
			); err != nil {
				return fmt.Errorf("failed to insert declaration %s:%d: %w", d.File, d.Line, err)
			}
		}
		return nil
	})
}

// List returns declarations in extraction order. moduleIDs restricts the
// result when non-empty.
func (r *DeclarationRepository) List(moduleIDs []string) ([]endpoint.Declaration, error) {
	query := `
		SELECT d.module_id, m.name, m.root_path, d.language, d.file_path, d.line, d.end_line,
			d.class_name, d.method_name, d.class_annotations_json, d.method_annotations_json, d.source_ref
		FROM declarations d
		JOIN modules m ON m.module_id = d.module_id`
	args := make([]interface{}, 0, len(moduleIDs))
	if len(moduleIDs) > 0 {
		query += " WHERE d.module_id IN (" + strings.TrimSuffix(strings.Repeat("?,", len(moduleIDs)), ",") + ")"
		for _, id := range moduleIDs {
			args = append(args, id)
		}
	}
	query += " ORDER BY d.id"

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list declarations: %w", err)
	}
	defer rows.Close()

	var decls []endpoint.Declaration
	for rows.Next() {
		var (
			d                     endpoint.Declaration
			lang, ref             string
			classJSON, methodJSON string
		)
		if err := rows.Scan(
			&d.ModuleID, &d.ModuleName, &d.ModuleRoot, &lang, &d.File, &d.Line, &d.EndLine,
			&d.Class, &d.Method, &classJSON, &methodJSON, &ref,
		); err != nil {
			return nil, fmt.Errorf("failed to scan declaration: %w", err)
		}
		d.Language = endpoint.Language(lang)
		d.SourceRef = endpoint.SourceRef(ref)
		if err := json.Unmarshal([]byte(classJSON), &d.ClassAnnotations); err != nil {
			return nil, fmt.Errorf("invalid class annotations for %s:%d: %w", d.File, d.Line, err)
		}
		if err := json.Unmarshal([]byte(methodJSON), &d.MethodAnnotations); err != nil {
			return nil, fmt.Errorf("invalid method annotations for %s:%d: %w", d.File, d.Line, err)
		}
		decls = append(decls, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating declarations: %w", err)
	}
	return decls, nil
}

// Count returns the number of stored declarations
func (r *DeclarationRepository) Count() (int, error) {
	var n int
	if err := r.db.QueryRow("SELECT COUNT(*) FROM declarations").Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count declarations: %w", err)
	}
	return n, nil
}

func marshalAnnotations(anns []endpoint.Annotation) (string, error) {
	if anns == nil {
		anns = []endpoint.Annotation{}
	}
	data, err := json.Marshal(anns)
	if err != nil {
		return "", fmt.Errorf("failed to encode annotations: %w", err)
	}
	return string(data), nil
}
