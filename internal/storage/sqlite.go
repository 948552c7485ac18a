package storage

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// timeLayout is fixed width so stored timestamps sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

// parseTime accepts stored timestamps and the "YYYY-MM-DD HH:MM:SS" form
// written by older schemas.
func parseTime(s string) (time.Time, error) {
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02 15:04:05"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid timestamp %q", s)
}

// DB wraps the metadata database connection.
type DB struct {
	conn    *sql.DB
	dialect dialect
}

// Open connects to the metadata database and applies pending migrations.
// For sqlite the dsn is a file path; its directory is created.
func Open(driver, dsn string) (*DB, error) {
	d, err := newDialect(driver)
	if err != nil {
		return nil, err
	}

	if driver == DriverSQLite {
		if err := os.MkdirAll(filepath.Dir(dsn), 0755); err != nil {
			return nil, fmt.Errorf("create db directory: %w", err)
		}
		dsn = sqliteDSN(dsn)
	}

	conn, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", driver, err)
	}
	if driver == DriverSQLite {
		// one writer at a time, or SQLITE_BUSY
		conn.SetMaxOpenConns(1)
	} else {
		conn.SetMaxOpenConns(5)
		conn.SetMaxIdleConns(2)
		conn.SetConnMaxLifetime(10 * time.Minute)
	}

	db := &DB{conn: conn, dialect: d}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return db, nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

// Conn returns the underlying database connection.
func (db *DB) Conn() *sql.DB {
	return db.conn
}

// Driver returns the driver name the database was opened with.
func (db *DB) Driver() string {
	return db.dialect.driver
}

func (db *DB) exec(query string, args ...any) (sql.Result, error) {
	return db.conn.Exec(db.dialect.rebind(query), args...)
}

func (db *DB) query(query string, args ...any) (*sql.Rows, error) {
	return db.conn.Query(db.dialect.rebind(query), args...)
}

func (db *DB) queryRow(query string, args ...any) *sql.Row {
	return db.conn.QueryRow(db.dialect.rebind(query), args...)
}

type migration struct {
	version string
	stmts   []string
}

// legacyDropVersion removes the canvas_states table. It is applied by
// DropLegacyCanvasStates once its rows have been exported.
const legacyDropVersion = "002"

func (db *DB) migrations() []migration {
	text := db.dialect.textType()
	return []migration{
		{version: "001", stmts: []string{
			`CREATE TABLE IF NOT EXISTS canvases (
				id VARCHAR(191) PRIMARY KEY,
				name VARCHAR(255) NOT NULL,
				sort_order INTEGER NOT NULL DEFAULT 0,
				created_at VARCHAR(40) NOT NULL,
				updated_at VARCHAR(40) NOT NULL
			)`,
			`CREATE TABLE IF NOT EXISTS chat_sessions (
				id VARCHAR(191) PRIMARY KEY,
				canvas_id VARCHAR(191) NOT NULL,
				model VARCHAR(255) NOT NULL,
				name VARCHAR(255) NOT NULL,
				created_at VARCHAR(40) NOT NULL,
				updated_at VARCHAR(40) NOT NULL
			)`,
			`CREATE TABLE IF NOT EXISTS chat_messages (
				id VARCHAR(191) PRIMARY KEY,
				session_id VARCHAR(191) NOT NULL,
				role VARCHAR(40) NOT NULL,
				content ` + text + ` NOT NULL,
				created_at VARCHAR(40) NOT NULL
			)`,
			`CREATE INDEX idx_chat_sessions_canvas ON chat_sessions(canvas_id)`,
			`CREATE INDEX idx_chat_messages_session ON chat_messages(session_id)`,
		}},
		{version: "003", stmts: []string{
			`CREATE TABLE IF NOT EXISTS documents (
				path VARCHAR(512) PRIMARY KEY,
				body ` + text + ` NOT NULL,
				updated_at VARCHAR(40) NOT NULL
			)`,
		}},
		{version: "004", stmts: []string{
			`CREATE TABLE IF NOT EXISTS app_settings (
				setting_key VARCHAR(191) PRIMARY KEY,
				setting_value ` + text + ` NOT NULL
			)`,
		}},
	}
}

func (db *DB) migrate() error {
	if _, err := db.exec(`CREATE TABLE IF NOT EXISTS schema_version (
		version VARCHAR(40) PRIMARY KEY,
		applied_at VARCHAR(40) NOT NULL
	)`); err != nil {
		return fmt.Errorf("create schema_version: %w", err)
	}

	for _, m := range db.migrations() {
		applied, err := db.applied(m.version)
		if err != nil {
			return err
		}
		if applied {
			continue
		}
		if err := db.apply(m); err != nil {
			return err
		}
	}
	return nil
}

func (db *DB) applied(version string) (bool, error) {
	var n int
	if err := db.queryRow(`SELECT COUNT(*) FROM schema_version WHERE version = ?`, version).Scan(&n); err != nil {
		return false, fmt.Errorf("check migration %s: %w", version, err)
	}
	return n > 0, nil
}

func (db *DB) apply(m migration) error {
	for _, stmt := range m.stmts {
		if _, err := db.exec(stmt); err != nil {
			return fmt.Errorf("migration %s failed: %s: %w", m.version, firstLine(stmt), err)
		}
	}
	if _, err := db.exec(`INSERT INTO schema_version (version, applied_at) VALUES (?, ?)`,
		m.version, formatTime(time.Now())); err != nil {
		return fmt.Errorf("record migration %s: %w", m.version, err)
	}
	return nil
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}

// LegacyCanvasState is one row of the canvas_states table that older
// versions kept in the database instead of on disk.
type LegacyCanvasState struct {
	CanvasID          string
	Name              string
	CanvasJSON        string
	Zoom              float64
	ViewportTransform string
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// LegacyCanvasStates returns the rows of canvas_states joined with their
// canvas metadata, or nothing if the table is gone.
func (db *DB) LegacyCanvasStates() ([]LegacyCanvasState, error) {
	done, err := db.applied(legacyDropVersion)
	if err != nil || done {
		return nil, err
	}
	var n int
	if err := db.queryRow(db.dialect.tableExistsQuery(), "canvas_states").Scan(&n); err != nil {
		return nil, fmt.Errorf("check canvas_states: %w", err)
	}
	if n == 0 {
		return nil, nil
	}

	rows, err := db.query(`SELECT cs.canvas_id, c.name, cs.canvas_json, cs.zoom, cs.viewport_transform, c.created_at, c.updated_at
		FROM canvas_states cs
		JOIN canvases c ON c.id = cs.canvas_id`)
	if err != nil {
		return nil, fmt.Errorf("read canvas_states: %w", err)
	}
	defer rows.Close()

	var states []LegacyCanvasState
	for rows.Next() {
		var st LegacyCanvasState
		var created, updated string
		if err := rows.Scan(&st.CanvasID, &st.Name, &st.CanvasJSON, &st.Zoom, &st.ViewportTransform, &created, &updated); err != nil {
			return nil, err
		}
		st.CreatedAt, _ = parseTime(created)
		st.UpdatedAt, _ = parseTime(updated)
		states = append(states, st)
	}
	return states, rows.Err()
}

// DropLegacyCanvasStates drops canvas_states and records the migration.
func (db *DB) DropLegacyCanvasStates() error {
	done, err := db.applied(legacyDropVersion)
	if err != nil || done {
		return err
	}
	return db.apply(migration{
		version: legacyDropVersion,
		stmts:   []string{`DROP TABLE IF EXISTS canvas_states`},
	})
}
