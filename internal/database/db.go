// Package database opens the SQLite databases and applies their schemas.
package database

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver
)

//go:embed schemas/*.sql
var schemaFS embed.FS

// DatabaseProfile selects the PRAGMA set and pool size of a connection
type DatabaseProfile string

const (
	// ProfileStandard is durable enough for user data (portfolio.db)
	ProfileStandard DatabaseProfile = "standard"
	// ProfileCache trades durability for speed; the data can be refetched (client_data.db)
	ProfileCache DatabaseProfile = "cache"
)

// Database names. A database named X is migrated from schemas/X_schema.sql.
const (
	NamePortfolio  = "portfolio"
	NameClientData = "client_data"
)

type profileSettings struct {
	pragmas []string
	maxOpen int
	maxIdle int
}

var profiles = map[DatabaseProfile]profileSettings{
	ProfileStandard: {
		pragmas: []string{"synchronous(NORMAL)", "auto_vacuum(INCREMENTAL)"},
		maxOpen: 25,
		maxIdle: 5,
	},
	ProfileCache: {
		pragmas: []string{"synchronous(OFF)", "auto_vacuum(FULL)"},
		maxOpen: 10,
		maxIdle: 2,
	},
}

// shared by every profile
var basePragmas = []string{
	"journal_mode(WAL)",
	"temp_store(MEMORY)",
	"foreign_keys(1)",
	"busy_timeout(5000)",
	"wal_autocheckpoint(1000)",
}

// DB is an open SQLite database
type DB struct {
	conn *sql.DB
	path string
	name string
}

// Config holds database configuration
type Config struct {
	Path    string
	Profile DatabaseProfile
	Name    string
}

// New opens the database at cfg.Path, creating its directory, and pings it
func New(cfg Config) (*DB, error) {
	settings, ok := profiles[cfg.Profile]
	if cfg.Profile == "" {
		settings, ok = profiles[ProfileStandard], true
	}
	if !ok {
		return nil, fmt.Errorf("unknown database profile %q", cfg.Profile)
	}

	path := cfg.Path
	if !strings.HasPrefix(path, "file:") {
		abs, err := filepath.Abs(path)
		if err != nil {
			return nil, fmt.Errorf("resolve path for %s: %w", cfg.Name, err)
		}
		if err := os.MkdirAll(filepath.Dir(abs), 0755); err != nil {
			return nil, fmt.Errorf("create directory for %s: %w", cfg.Name, err)
		}
		path = abs
	}

	conn, err := sql.Open("sqlite", dsn(path, settings))
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", cfg.Name, err)
	}
	conn.SetMaxOpenConns(settings.maxOpen)
	conn.SetMaxIdleConns(settings.maxIdle)
	conn.SetConnMaxLifetime(24 * time.Hour)
	conn.SetConnMaxIdleTime(30 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := conn.PingContext(ctx); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("ping %s: %w", cfg.Name, err)
	}

	return &DB{conn: conn, path: path, name: cfg.Name}, nil
}

func dsn(path string, settings profileSettings) string {
	all := append(append([]string{}, basePragmas...), settings.pragmas...)
	params := make([]string, len(all))
	for i, p := range all {
		params[i] = "_pragma=" + p
	}
	return path + "?" + strings.Join(params, "&")
}

func (db *DB) Close() error {
	return db.conn.Close()
}

func (db *DB) Conn() *sql.DB {
	return db.conn
}

func (db *DB) Name() string {
	return db.name
}

// Migrate applies the embedded schema for this database. Schemas only use
// IF NOT EXISTS and INSERT OR IGNORE, so running it again is a no-op.
// Databases without a schema file are left alone.
func (db *DB) Migrate() error {
	file := "schemas/" + db.name + "_schema.sql"
	content, err := schemaFS.ReadFile(file)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read %s: %w", file, err)
	}

	err = db.InTx(context.Background(), func(tx *sql.Tx) error {
		_, err := tx.Exec(string(content))
		return err
	})
	if err != nil {
		return fmt.Errorf("migrate %s: %w", db.name, err)
	}
	return nil
}

// InTx runs fn in a transaction, committing only when fn returns nil.
// A panic in fn rolls back and is returned as an error.
func (db *DB) InTx(ctx context.Context, fn func(*sql.Tx) error) (err error) {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin on %s: %w", db.name, err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			err = fmt.Errorf("panic in transaction on %s: %v", db.name, p)
			return
		}
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				err = fmt.Errorf("%w (rollback: %v)", err, rbErr)
			}
			return
		}
		if err = tx.Commit(); err != nil {
			err = fmt.Errorf("commit on %s: %w", db.name, err)
		}
	}()

	return fn(tx)
}

// HealthCheck pings the database and runs PRAGMA quick_check
func (db *DB) HealthCheck(ctx context.Context) error {
	if err := db.conn.PingContext(ctx); err != nil {
		return fmt.Errorf("%s unreachable: %w", db.name, err)
	}

	var verdict string
	if err := db.conn.QueryRowContext(ctx, "PRAGMA quick_check").Scan(&verdict); err != nil {
		return fmt.Errorf("%s quick_check: %w", db.name, err)
	}
	if verdict != "ok" {
		return fmt.Errorf("%s is corrupt: %s", db.name, verdict)
	}
	return nil
}

var checkpointModes = map[string]bool{"PASSIVE": true, "FULL": true, "RESTART": true, "TRUNCATE": true}

// WALCheckpoint copies the write-ahead log into the main file. An empty
// mode means TRUNCATE.
func (db *DB) WALCheckpoint(ctx context.Context, mode string) error {
	if mode == "" {
		mode = "TRUNCATE"
	}
	if !checkpointModes[mode] {
		return fmt.Errorf("invalid checkpoint mode %q", mode)
	}

	if _, err := db.conn.ExecContext(ctx, "PRAGMA wal_checkpoint("+mode+")"); err != nil {
		return fmt.Errorf("checkpoint %s: %w", db.name, err)
	}
	return nil
}

// SnapshotTo writes a consistent copy of the database to dest with
// VACUUM INTO, replacing any existing file.
func (db *DB) SnapshotTo(ctx context.Context, dest string) error {
	if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
		return fmt.Errorf("create snapshot directory: %w", err)
	}
	if err := os.Remove(dest); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("replace snapshot %s: %w", dest, err)
	}

	if _, err := db.conn.ExecContext(ctx, "VACUUM INTO ?", dest); err != nil {
		return fmt.Errorf("snapshot %s: %w", db.name, err)
	}
	return nil
}

// Stats describes the on-disk footprint of a database
type Stats struct {
	SizeBytes     int64 `json:"size_bytes"`
	WALSizeBytes  int64 `json:"wal_size_bytes"`
	PageCount     int64 `json:"page_count"`
	PageSize      int64 `json:"page_size"`
	FreelistCount int64 `json:"freelist_count"`
}

// Stats reads file sizes and page counters. Missing files count as zero bytes.
func (db *DB) Stats(ctx context.Context) (*Stats, error) {
	stats := &Stats{
		SizeBytes:    fileSize(db.path),
		WALSizeBytes: fileSize(db.path + "-wal"),
	}

	counters := []struct {
		pragma string
		dest   *int64
	}{
		{"page_count", &stats.PageCount},
		{"page_size", &stats.PageSize},
		{"freelist_count", &stats.FreelistCount},
	}
	for _, c := range counters {
		if err := db.conn.QueryRowContext(ctx, "PRAGMA "+c.pragma).Scan(c.dest); err != nil {
			return nil, fmt.Errorf("%s %s: %w", db.name, c.pragma, err)
		}
	}
	return stats, nil
}

func fileSize(path string) int64 {
	info, err := os.Stat(path)
	if err != nil {
		return 0
	}
	return info.Size()
}
