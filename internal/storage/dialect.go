package storage

import (
	"database/sql/driver"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// sqliteTimeLayout keeps timestamps sortable as text so the month key is a
// plain prefix.
const sqliteTimeLayout = "2006-01-02T15:04:05Z"

// dialect isolates the few places where SQLite and Postgres disagree.
type dialect struct {
	name       string
	driverName string
	// monthKey renders the YYYY-MM key of a timestamp column.
	monthKey func(col string) string
	// timeArg converts a timestamp into a bind argument.
	timeArg func(t time.Time) any
	// rebind rewrites ? placeholders.
	rebind func(q string) string
}

var sqliteDialect = dialect{
	name:       "sqlite",
	driverName: "sqlite",
	monthKey: func(col string) string {
		return fmt.Sprintf("substr(%s, 1, 7)", col)
	},
	timeArg: func(t time.Time) any {
		return t.UTC().Format(sqliteTimeLayout)
	},
	rebind: func(q string) string { return q },
}

var postgresDialect = dialect{
	name:       "postgres",
	driverName: "pgx",
	monthKey: func(col string) string {
		return fmt.Sprintf("to_char(%s, 'YYYY-MM')", col)
	},
	timeArg: func(t time.Time) any {
		return t.UTC()
	},
	rebind: rebindDollar,
}

func rebindDollar(q string) string {
	var b strings.Builder
	b.Grow(len(q) + 8)
	n := 0
	for _, r := range q {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// dbTime scans both SQLite text timestamps and native Postgres timestamps.
type dbTime struct {
	time.Time
}

func (t *dbTime) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		t.Time = time.Time{}
		return nil
	case time.Time:
		t.Time = v.UTC()
		return nil
	case string:
		return t.parse(v)
	case []byte:
		return t.parse(string(v))
	default:
		return fmt.Errorf("unsupported timestamp type %T", src)
	}
}

func (t *dbTime) parse(s string) error {
	for _, layout := range []string{sqliteTimeLayout, time.RFC3339Nano, "2006-01-02 15:04:05", "2006-01-02"} {
		if parsed, err := time.Parse(layout, s); err == nil {
			t.Time = parsed.UTC()
			return nil
		}
	}
	return fmt.Errorf("parse timestamp %q", s)
}

// nullString maps "" to SQL NULL for optional foreign keys.
type nullString string

func (s nullString) Value() (driver.Value, error) {
	if s == "" {
		return nil, nil
	}
	return string(s), nil
}
