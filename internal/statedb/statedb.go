package statedb

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	_ "modernc.org/sqlite"
)

// SchemaVersion tracks the current database schema version.
// Bump this when adding migrations.
const SchemaVersion = 2

// StateDB wraps a SQLite database holding the salesman directory.
// Safe for concurrent use; other processes may read/write via WAL mode + busy timeout.
type StateDB struct {
	db *sql.DB
}

// SalesmanRow is one directory entry as stored on disk.
type SalesmanRow struct {
	ID    string
	Name  string
	Areas []string
	Order int
}

// Open creates or opens a SQLite database at dbPath with WAL mode and busy timeout.
func Open(dbPath string) (*StateDB, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o700); err != nil {
		return nil, fmt.Errorf("statedb: mkdir: %w", err)
	}

	// busy_timeout in the DSN applies to every pooled connection.
	db, err := sql.Open("sqlite", dbPath+"?_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("statedb: open: %w", err)
	}

	// WAL mode: allows concurrent readers while writing
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("statedb: wal mode: %w", err)
	}

	return &StateDB{db: db}, nil
}

// Close checkpoints WAL and closes the database.
func (s *StateDB) Close() error {
	_, _ = s.db.Exec("PRAGMA wal_checkpoint(TRUNCATE)")
	return s.db.Close()
}

// Migrate creates tables if they don't exist.
func (s *StateDB) Migrate() error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("statedb: begin migrate: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec(`
		CREATE TABLE IF NOT EXISTS metadata (
			key   TEXT PRIMARY KEY,
			value TEXT NOT NULL
		)
	`); err != nil {
		return fmt.Errorf("statedb: create metadata: %w", err)
	}

	var version int
	err = tx.QueryRow("SELECT CAST(value AS INTEGER) FROM metadata WHERE key = 'schema_version'").Scan(&version)
	if err != nil && err != sql.ErrNoRows {
		return fmt.Errorf("statedb: read schema version: %w", err)
	}

	// v1 keyed salesmen by content id, which collapsed identical records.
	if version == 1 {
		if _, err := tx.Exec("ALTER TABLE salesmen RENAME TO salesmen_v1"); err != nil {
			return fmt.Errorf("statedb: rename v1 salesmen: %w", err)
		}
	}

	// sort_order is the key: identical records share an id but keep their
	// own rows and positions.
	if _, err := tx.Exec(`
		CREATE TABLE IF NOT EXISTS salesmen (
			sort_order INTEGER PRIMARY KEY,
			id         TEXT NOT NULL,
			name       TEXT NOT NULL,
			areas      TEXT NOT NULL DEFAULT '[]'
		)
	`); err != nil {
		return fmt.Errorf("statedb: create salesmen: %w", err)
	}
	if _, err := tx.Exec("CREATE INDEX IF NOT EXISTS idx_salesmen_id ON salesmen(id)"); err != nil {
		return fmt.Errorf("statedb: create id index: %w", err)
	}

	if version == 1 {
		if _, err := tx.Exec(`
			INSERT INTO salesmen (sort_order, id, name, areas)
			SELECT ROW_NUMBER() OVER (ORDER BY sort_order) - 1, id, name, areas FROM salesmen_v1
		`); err != nil {
			return fmt.Errorf("statedb: copy v1 salesmen: %w", err)
		}
		if _, err := tx.Exec("DROP TABLE salesmen_v1"); err != nil {
			return fmt.Errorf("statedb: drop v1 salesmen: %w", err)
		}
	}

	if _, err := tx.Exec(
		"INSERT OR REPLACE INTO metadata (key, value) VALUES ('schema_version', ?)",
		strconv.Itoa(SchemaVersion),
	); err != nil {
		return fmt.Errorf("statedb: set schema version: %w", err)
	}

	return tx.Commit()
}

// Count returns the number of stored salesmen.
func (s *StateDB) Count() (int, error) {
	var count int
	if err := s.db.QueryRow("SELECT COUNT(*) FROM salesmen").Scan(&count); err != nil {
		return 0, fmt.Errorf("statedb: count: %w", err)
	}
	return count, nil
}

// SaveSalesmen replaces the whole directory in one transaction and bumps
// last_modified so pollers pick up the change. Order follows the slice.
func (s *StateDB) SaveSalesmen(rows []SalesmanRow) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("statedb: begin save: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec("DELETE FROM salesmen"); err != nil {
		return fmt.Errorf("statedb: clear salesmen: %w", err)
	}

	stmt, err := tx.Prepare(
		"INSERT INTO salesmen (sort_order, id, name, areas) VALUES (?, ?, ?, ?)",
	)
	if err != nil {
		return fmt.Errorf("statedb: prepare insert: %w", err)
	}
	defer stmt.Close()

	for i, r := range rows {
		areas := r.Areas
		if areas == nil {
			areas = []string{}
		}
		encoded, err := json.Marshal(areas)
		if err != nil {
			return fmt.Errorf("statedb: encode areas: %w", err)
		}
		if _, err := stmt.Exec(i, r.ID, r.Name, string(encoded)); err != nil {
			return fmt.Errorf("statedb: insert %q: %w", r.Name, err)
		}
	}

	if _, err := tx.Exec(
		"INSERT OR REPLACE INTO metadata (key, value) VALUES ('last_modified', ?)",
		strconv.FormatInt(time.Now().UnixNano(), 10),
	); err != nil {
		return fmt.Errorf("statedb: touch: %w", err)
	}

	return tx.Commit()
}

// LoadSalesmen returns the directory ordered by sort_order.
func (s *StateDB) LoadSalesmen() ([]SalesmanRow, error) {
	rows, err := s.db.Query("SELECT id, name, areas, sort_order FROM salesmen ORDER BY sort_order")
	if err != nil {
		return nil, fmt.Errorf("statedb: query salesmen: %w", err)
	}
	defer rows.Close()

	result := []SalesmanRow{}
	for rows.Next() {
		var r SalesmanRow
		var areas string
		if err := rows.Scan(&r.ID, &r.Name, &areas, &r.Order); err != nil {
			return nil, fmt.Errorf("statedb: scan salesman: %w", err)
		}
		if err := json.Unmarshal([]byte(areas), &r.Areas); err != nil {
			return nil, fmt.Errorf("statedb: decode areas for %q: %w", r.Name, err)
		}
		result = append(result, r)
	}
	return result, rows.Err()
}

// --- Metadata ---

// SetMeta sets a key-value pair in the metadata table.
func (s *StateDB) SetMeta(key, value string) error {
	_, err := s.db.Exec(
		"INSERT OR REPLACE INTO metadata (key, value) VALUES (?, ?)",
		key, value,
	)
	return err
}

// GetMeta gets a value from the metadata table. Returns "" if not found.
func (s *StateDB) GetMeta(key string) (string, error) {
	var value string
	err := s.db.QueryRow("SELECT value FROM metadata WHERE key = ?", key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	return value, err
}

// --- Change Detection ---

// Touch updates a metadata timestamp that other processes can poll to detect changes.
func (s *StateDB) Touch() error {
	return s.SetMeta("last_modified", strconv.FormatInt(time.Now().UnixNano(), 10))
}

// LastModified returns the last_modified timestamp from metadata, 0 if never set.
func (s *StateDB) LastModified() (int64, error) {
	val, err := s.GetMeta("last_modified")
	if err != nil || val == "" {
		return 0, err
	}
	return strconv.ParseInt(val, 10, 64)
}
