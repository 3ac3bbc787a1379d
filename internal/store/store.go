// Package store handles SQLite persistence of reference models.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/verte-zerg/encryptor/internal/freq"
	"github.com/verte-zerg/encryptor/internal/model"

	_ "modernc.org/sqlite" // SQLite driver.
)

// ErrModelNotFound is returned when a named model does not exist.
var ErrModelNotFound = errors.New("model not found")

// ModelStore loads and saves a single reference table.
type ModelStore interface {
	Load(ctx context.Context) (freq.Table, error)
	Save(ctx context.Context, table freq.Table) error
}

// Store wraps SQLite access for named models.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// Open opens or creates the SQLite database and applies migrations.
func Open(path string) (*Store, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	store := &Store{db: db, now: time.Now}
	if err := store.migrate(); err != nil {
		if cerr := db.Close(); cerr != nil {
			// Best-effort close on migration failure.
			_ = cerr
		}
		return nil, err
	}
	return store, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS models (
			id INTEGER PRIMARY KEY,
			name TEXT NOT NULL UNIQUE,
			source TEXT NOT NULL,
			letters INTEGER NOT NULL,
			trained_at TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS model_letters (
			model_id INTEGER NOT NULL,
			letter TEXT NOT NULL,
			count INTEGER NOT NULL,
			PRIMARY KEY (model_id, letter)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_models_trained_at ON models(trained_at);`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// SaveModel stores table under name, replacing any model with the same name.
func (s *Store) SaveModel(ctx context.Context, name, source string, table freq.Table) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			if rerr := tx.Rollback(); rerr != nil {
				// Best-effort rollback.
				_ = rerr
			}
		}
	}()

	if _, err = tx.ExecContext(ctx,
		`DELETE FROM model_letters WHERE model_id IN (SELECT id FROM models WHERE name = ?)`, name); err != nil {
		return err
	}
	if _, err = tx.ExecContext(ctx, `DELETE FROM models WHERE name = ?`, name); err != nil {
		return err
	}

	res, err := tx.ExecContext(ctx,
		`INSERT INTO models (name, source, letters, trained_at) VALUES (?, ?, ?, ?)`,
		name,
		source,
		table.Total(),
		s.now().Format(time.RFC3339Nano),
	)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO model_letters (model_id, letter, count) VALUES (?, ?, ?)`)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := stmt.Close(); cerr != nil {
			// Best-effort statement close.
			_ = cerr
		}
	}()
	for letter, count := range table.Map() {
		if _, err = stmt.ExecContext(ctx, id, letter, count); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// LoadModel returns the table stored under name.
func (s *Store) LoadModel(ctx context.Context, name string) (freq.Table, error) {
	var id int64
	err := s.db.QueryRowContext(ctx, `SELECT id FROM models WHERE name = ?`, name).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return freq.Table{}, fmt.Errorf("%w: %q", ErrModelNotFound, name)
	}
	if err != nil {
		return freq.Table{}, err
	}

	rows, err := s.db.QueryContext(ctx, `SELECT letter, count FROM model_letters WHERE model_id = ?`, id)
	if err != nil {
		return freq.Table{}, err
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			// Best-effort rows close.
			_ = cerr
		}
	}()

	counts := map[string]int{}
	for rows.Next() {
		var letter string
		var count int
		if err := rows.Scan(&letter, &count); err != nil {
			return freq.Table{}, err
		}
		counts[letter] = count
	}
	if err := rows.Err(); err != nil {
		return freq.Table{}, err
	}
	return freq.FromMap(counts)
}

// DeleteModel removes a named model. Deleting a missing model is an error.
func (s *Store) DeleteModel(ctx context.Context, name string) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			if rerr := tx.Rollback(); rerr != nil {
				// Best-effort rollback.
				_ = rerr
			}
		}
	}()
	if _, err = tx.ExecContext(ctx,
		`DELETE FROM model_letters WHERE model_id IN (SELECT id FROM models WHERE name = ?)`, name); err != nil {
		return err
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM models WHERE name = ?`, name)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		err = fmt.Errorf("%w: %q", ErrModelNotFound, name)
		return err
	}
	return tx.Commit()
}

// ListModels returns stored models ordered by name.
func (s *Store) ListModels(ctx context.Context) ([]model.ModelInfo, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT name, source, letters, trained_at FROM models ORDER BY name ASC`)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			// Best-effort rows close.
			_ = cerr
		}
	}()

	var models []model.ModelInfo
	for rows.Next() {
		var info model.ModelInfo
		var trainedAt string
		if err := rows.Scan(&info.Name, &info.Source, &info.Letters, &trainedAt); err != nil {
			return nil, err
		}
		parsed, err := time.Parse(time.RFC3339Nano, trainedAt)
		if err != nil {
			return nil, err
		}
		info.TrainedAt = parsed
		models = append(models, info)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return models, nil
}

// Named binds a model name to the store so it can serve as a ModelStore.
func (s *Store) Named(name, source string) ModelStore {
	return namedModel{store: s, name: name, source: source}
}

type namedModel struct {
	store  *Store
	name   string
	source string
}

func (m namedModel) Load(ctx context.Context) (freq.Table, error) {
	return m.store.LoadModel(ctx, m.name)
}

func (m namedModel) Save(ctx context.Context, table freq.Table) error {
	return m.store.SaveModel(ctx, m.name, m.source, table)
}
