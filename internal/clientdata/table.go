package clientdata

import (
	"fmt"
	"time"
)

// Table names a cache table in client_data.db
type Table string

const (
	Quotes Table = "quotes"
	News   Table = "news"
)

// Tables is every cache table, in sweep order
var Tables = []Table{Quotes, News}

var tableTTL = map[Table]time.Duration{
	Quotes: 10 * time.Minute,
	News:   15 * time.Minute,
}

// TTL is how long a freshly written entry is served without asking the provider
func (t Table) TTL() time.Duration {
	return tableTTL[t]
}

// check rejects anything that is not a known table. Table names end up in
// SQL text, so this is the only thing standing between callers and the query.
func (t Table) check() error {
	if _, ok := tableTTL[t]; !ok {
		return fmt.Errorf("unknown cache table %q", string(t))
	}
	return nil
}
