package clientdata

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/portfolio-manager/internal/database"
	testingpkg "github.com/aristath/portfolio-manager/internal/testing"
)

type quoteRow struct {
	Symbol string `msgpack:"symbol"`
	Price  string `msgpack:"price"`
}

// clock is a settable time source
type clock struct{ t time.Time }

func (c *clock) now() time.Time { return c.t }
func (c *clock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestCache(t *testing.T) (*Cache, *database.DB, *clock) {
	t.Helper()
	db, cleanup := testingpkg.NewTestDB(t, database.NameClientData)
	t.Cleanup(cleanup)

	clk := &clock{t: time.Date(2025, 3, 14, 9, 30, 0, 0, time.UTC)}
	cache := NewCache(db.Conn())
	cache.now = clk.now
	return cache, db, clk
}

func TestLookupStates(t *testing.T) {
	cache, _, clk := newTestCache(t)
	ctx := context.Background()

	var row quoteRow
	entry, err := cache.Lookup(ctx, Quotes, "AAPL", &row)
	require.NoError(t, err)
	assert.Equal(t, Missing, entry.State)
	assert.Empty(t, row.Symbol)

	require.NoError(t, cache.Put(ctx, Quotes, "AAPL", quoteRow{Symbol: "AAPL", Price: "175.50"}))
	storedAt := clk.t

	entry, err = cache.Lookup(ctx, Quotes, "AAPL", &row)
	require.NoError(t, err)
	assert.Equal(t, Fresh, entry.State)
	assert.Equal(t, "175.50", row.Price)
	assert.True(t, entry.StoredAt.Equal(storedAt))
	assert.True(t, entry.ExpiresAt.Equal(storedAt.Add(Quotes.TTL())))

	clk.advance(Quotes.TTL())
	row = quoteRow{}
	entry, err = cache.Lookup(ctx, Quotes, "AAPL", &row)
	require.NoError(t, err)
	assert.Equal(t, Stale, entry.State)
	assert.Equal(t, "AAPL", row.Symbol, "stale values are still decoded")
}

func TestPutOverwritesAndStoresMsgpack(t *testing.T) {
	cache, db, clk := newTestCache(t)
	ctx := context.Background()

	require.NoError(t, cache.Put(ctx, Quotes, "V", quoteRow{Price: "1"}))
	clk.advance(time.Hour)
	require.NoError(t, cache.Put(ctx, Quotes, "V", quoteRow{Price: "2"}))

	var row quoteRow
	entry, err := cache.Lookup(ctx, Quotes, "V", &row)
	require.NoError(t, err)
	assert.Equal(t, Fresh, entry.State)
	assert.Equal(t, "2", row.Price)

	var (
		count int
		blob  []byte
	)
	require.NoError(t, db.Conn().QueryRow("SELECT COUNT(*) FROM quotes").Scan(&count))
	assert.Equal(t, 1, count)
	require.NoError(t, db.Conn().QueryRow("SELECT data FROM quotes WHERE cache_key = 'V'").Scan(&blob))
	assert.NotEqual(t, byte('{'), blob[0])
}

func TestTableTTLs(t *testing.T) {
	assert.Equal(t, 10*time.Minute, Quotes.TTL())
	assert.Equal(t, 15*time.Minute, News.TTL())
	assert.Zero(t, Table("users").TTL())
}

func TestUnknownTableRejected(t *testing.T) {
	cache, _, _ := newTestCache(t)
	ctx := context.Background()
	bad := Table("quotes; DROP TABLE news")

	assert.ErrorContains(t, cache.Put(ctx, bad, "k", quoteRow{}), "unknown cache table")
	_, err := cache.Lookup(ctx, bad, "k", &quoteRow{})
	assert.Error(t, err)
	assert.Error(t, cache.Evict(ctx, bad, "k"))
}

func TestEvict(t *testing.T) {
	cache, _, _ := newTestCache(t)
	ctx := context.Background()

	require.NoError(t, cache.Put(ctx, News, "feed", []string{"a", "b"}))
	require.NoError(t, cache.Evict(ctx, News, "feed"))
	require.NoError(t, cache.Evict(ctx, News, "feed"))

	var feed []string
	entry, err := cache.Lookup(ctx, News, "feed", &feed)
	require.NoError(t, err)
	assert.Equal(t, Missing, entry.State)
}

func TestSweep(t *testing.T) {
	cache, _, clk := newTestCache(t)
	ctx := context.Background()

	require.NoError(t, cache.PutFor(ctx, Quotes, "old", quoteRow{}, -time.Hour))
	require.NoError(t, cache.Put(ctx, Quotes, "new", quoteRow{}))
	require.NoError(t, cache.PutFor(ctx, News, "old", []string{}, -time.Minute))

	report, err := cache.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), report.Removed[Quotes])
	assert.Equal(t, int64(1), report.Removed[News])
	assert.Equal(t, int64(2), report.Total)

	var row quoteRow
	entry, err := cache.Lookup(ctx, Quotes, "new", &row)
	require.NoError(t, err)
	assert.Equal(t, Fresh, entry.State)

	clk.advance(Quotes.TTL())
	report, err = cache.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), report.Total)
}
