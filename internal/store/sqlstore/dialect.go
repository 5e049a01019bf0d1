package sqlstore

import (
	"strconv"
	"strings"
)

// Dialect captures the per-database differences.
type Dialect struct {
	Name   string
	schema []string
	// positional placeholders ($1, $2, ...) instead of ?
	numbered bool
}

var (
	SQLite = Dialect{
		Name: "sqlite",
		schema: []string{
			`CREATE TABLE IF NOT EXISTS character_index (
				seq   INTEGER PRIMARY KEY AUTOINCREMENT,
				id    TEXT NOT NULL UNIQUE,
				name  TEXT NOT NULL,
				alias TEXT NOT NULL,
				tags  TEXT NOT NULL
			)`,
			`CREATE TABLE IF NOT EXISTS character_details (
				id         TEXT PRIMARY KEY,
				bio        TEXT NOT NULL,
				full_tags  TEXT NOT NULL,
				image_path TEXT NOT NULL
			)`,
		},
	}

	Postgres = Dialect{
		Name:     "postgres",
		numbered: true,
		schema: []string{
			`CREATE TABLE IF NOT EXISTS character_index (
				seq   BIGSERIAL PRIMARY KEY,
				id    TEXT NOT NULL UNIQUE,
				name  TEXT NOT NULL,
				alias TEXT NOT NULL,
				tags  TEXT NOT NULL
			)`,
			`CREATE TABLE IF NOT EXISTS character_details (
				id         TEXT PRIMARY KEY,
				bio        TEXT NOT NULL,
				full_tags  TEXT NOT NULL,
				image_path TEXT NOT NULL
			)`,
		},
	}
)

// rebind rewrites ? placeholders for dialects that number them.
func (d Dialect) rebind(q string) string {
	if !d.numbered {
		return q
	}
	var b strings.Builder
	b.Grow(len(q) + 8)
	n := 0
	for i := 0; i < len(q); i++ {
		if q[i] == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteByte(q[i])
	}
	return b.String()
}
