// Package clientdata keeps external provider responses in client_data.db.
// Values are msgpack encoded. Expired rows stay readable as stale entries
// until the sweep job deletes them.
package clientdata

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/vmihailenco/msgpack/v5"
)

// State describes how a lookup matched
type State int

const (
	Missing State = iota
	Fresh
	Stale
)

func (s State) String() string {
	switch s {
	case Fresh:
		return "fresh"
	case Stale:
		return "stale"
	default:
		return "missing"
	}
}

// Entry is the metadata of a looked up value
type Entry struct {
	State     State
	StoredAt  time.Time
	ExpiresAt time.Time
}

// Cache reads and writes provider responses
type Cache struct {
	db  *sql.DB
	now func() time.Time
}

func NewCache(db *sql.DB) *Cache {
	return &Cache{db: db, now: time.Now}
}

// Put stores value under key for the table's TTL
func (c *Cache) Put(ctx context.Context, table Table, key string, value interface{}) error {
	return c.PutFor(ctx, table, key, value, table.TTL())
}

// PutFor stores value under key with an explicit lifetime. A negative ttl
// writes an entry that is already stale.
func (c *Cache) PutFor(ctx context.Context, table Table, key string, value interface{}, ttl time.Duration) error {
	if err := table.check(); err != nil {
		return err
	}

	blob, err := msgpack.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode %s/%s: %w", table, key, err)
	}

	now := c.now()
	_, err = c.db.ExecContext(ctx,
		`INSERT INTO `+string(table)+` (cache_key, data, stored_at, expires_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT(cache_key) DO UPDATE SET
		     data = excluded.data,
		     stored_at = excluded.stored_at,
		     expires_at = excluded.expires_at`,
		key, blob, now.Unix(), now.Add(ttl).Unix(),
	)
	if err != nil {
		return fmt.Errorf("write %s/%s: %w", table, key, err)
	}
	return nil
}

// Lookup decodes the value under key into dest whether or not it has
// expired. The returned entry says which; dest is untouched when the
// state is Missing.
func (c *Cache) Lookup(ctx context.Context, table Table, key string, dest interface{}) (Entry, error) {
	if err := table.check(); err != nil {
		return Entry{}, err
	}

	var (
		blob      []byte
		storedAt  int64
		expiresAt int64
	)
	err := c.db.QueryRowContext(ctx,
		`SELECT data, stored_at, expires_at FROM `+string(table)+` WHERE cache_key = ?`, key,
	).Scan(&blob, &storedAt, &expiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Entry{State: Missing}, nil
	}
	if err != nil {
		return Entry{}, fmt.Errorf("read %s/%s: %w", table, key, err)
	}

	if err := msgpack.Unmarshal(blob, dest); err != nil {
		return Entry{}, fmt.Errorf("decode %s/%s: %w", table, key, err)
	}

	entry := Entry{
		State:     Fresh,
		StoredAt:  time.Unix(storedAt, 0),
		ExpiresAt: time.Unix(expiresAt, 0),
	}
	if !c.now().Before(entry.ExpiresAt) {
		entry.State = Stale
	}
	return entry, nil
}

// Evict removes a single key
func (c *Cache) Evict(ctx context.Context, table Table, key string) error {
	if err := table.check(); err != nil {
		return err
	}
	if _, err := c.db.ExecContext(ctx, `DELETE FROM `+string(table)+` WHERE cache_key = ?`, key); err != nil {
		return fmt.Errorf("evict %s/%s: %w", table, key, err)
	}
	return nil
}

// SweepReport counts the rows a sweep removed
type SweepReport struct {
	Removed map[Table]int64
	Total   int64
}

// Sweep deletes expired rows from every table in one transaction.
// Either all tables are swept or none are.
func (c *Cache) Sweep(ctx context.Context) (SweepReport, error) {
	report := SweepReport{Removed: make(map[Table]int64, len(Tables))}
	cutoff := c.now().Unix()

	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return report, fmt.Errorf("begin sweep: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, table := range Tables {
		res, err := tx.ExecContext(ctx, `DELETE FROM `+string(table)+` WHERE expires_at <= ?`, cutoff)
		if err != nil {
			return SweepReport{}, fmt.Errorf("sweep %s: %w", table, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return SweepReport{}, fmt.Errorf("sweep %s: %w", table, err)
		}
		report.Removed[table] = n
		report.Total += n
	}

	if err := tx.Commit(); err != nil {
		return SweepReport{}, fmt.Errorf("commit sweep: %w", err)
	}
	return report, nil
}
