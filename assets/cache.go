package assets

import (
	"fmt"

	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"

	"slidefit/layout"
)

// DimCache is a persistent probe cache backed by a SQLite database. Large
// decks referencing remote assets re-probe from here instead of refetching.
// NOTE: presently not to be used concurrently!
type DimCache struct {
	conn *sqlite.Conn
}

// OpenDimCache opens (creating if necessary) the cache database at path.
func OpenDimCache(path string) (*DimCache, error) {
	conn, err := sqlite.OpenConn(path, sqlite.OpenReadWrite, sqlite.OpenCreate)
	if err != nil {
		return nil, fmt.Errorf("unable to open probe cache: %w", err)
	}
	err = sqlitex.ExecuteTransient(conn,
		`CREATE TABLE IF NOT EXISTS dimensions (ref TEXT PRIMARY KEY, width INTEGER NOT NULL, height INTEGER NOT NULL)`, nil)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("unable to initialize probe cache: %w", err)
	}
	return &DimCache{conn: conn}, nil
}

// Get returns cached dimensions for ref if present.
func (c *DimCache) Get(ref string) (layout.Dimension, bool) {
	if c == nil {
		return layout.Dimension{}, false
	}
	var dim layout.Dimension
	found := false
	err := sqlitex.Execute(c.conn, `SELECT width, height FROM dimensions WHERE ref = ?`,
		&sqlitex.ExecOptions{
			Args: []any{ref},
			ResultFunc: func(stmt *sqlite.Stmt) error {
				dim.Width = stmt.ColumnInt(0)
				dim.Height = stmt.ColumnInt(1)
				found = true
				return nil
			},
		})
	if err != nil {
		return layout.Dimension{}, false
	}
	return dim, found
}

// Put stores dimensions for ref, replacing any previous entry.
func (c *DimCache) Put(ref string, dim layout.Dimension) error {
	if c == nil {
		return nil
	}
	return sqlitex.Execute(c.conn, `INSERT OR REPLACE INTO dimensions (ref, width, height) VALUES (?, ?, ?)`,
		&sqlitex.ExecOptions{Args: []any{ref, dim.Width, dim.Height}})
}

// Close releases the underlying database connection.
func (c *DimCache) Close() error {
	if c == nil || c.conn == nil {
		return nil
	}
	return c.conn.Close()
}
