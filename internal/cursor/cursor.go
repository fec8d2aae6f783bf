// Package cursor encodes and decodes opaque feed pagination tokens.
//
// A token is the base64 of "<RFC3339Nano timestamp>|<id>" taken from the last
// row of a page. Feeds order by (created_at DESC, id DESC) and resume with
// Predicate, so rows sharing a timestamp are neither skipped nor repeated.
package cursor

import (
	"encoding/base64"
	"strings"
	"time"
)

const separator = "|"

// Cursor is a decoded resume position.
type Cursor struct {
	CreatedAt time.Time
	ID        string
}

// Encode builds the token for the row identified by (createdAt, id).
func Encode(createdAt time.Time, id string) string {
	raw := createdAt.UTC().Format(time.RFC3339Nano) + separator + id
	return base64.StdEncoding.EncodeToString([]byte(raw))
}

// Decode parses a token. It never fails loudly: any malformed input reports ok=false.
func Decode(token string) (Cursor, bool) {
	if token == "" {
		return Cursor{}, false
	}
	raw, err := base64.StdEncoding.DecodeString(token)
	if err != nil {
		return Cursor{}, false
	}
	ts, id, found := strings.Cut(string(raw), separator)
	if !found || ts == "" || id == "" {
		return Cursor{}, false
	}
	createdAt, err := time.Parse(time.RFC3339Nano, ts)
	if err != nil {
		return Cursor{}, false
	}
	return Cursor{CreatedAt: createdAt.UTC(), ID: id}, true
}

// Token re-encodes the cursor.
func (c Cursor) Token() string {
	return Encode(c.CreatedAt, c.ID)
}

// Predicate returns the keyset WHERE fragment selecting rows strictly after c
// in (created_at DESC, id DESC) order, with its bind arguments.
func (c Cursor) Predicate(table string) (string, []any) {
	col := func(name string) string {
		if table == "" {
			return name
		}
		return table + "." + name
	}
	sql := col("created_at") + " < ? OR (" + col("created_at") + " = ? AND " + col("id") + " < ?)"
	return sql, []any{c.CreatedAt, c.CreatedAt, c.ID}
}
