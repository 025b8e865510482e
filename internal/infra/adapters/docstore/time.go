package docstore

import (
	"fmt"
	"time"
)

// Fixed-width fractional seconds: a ".999999999" layout drops trailing
// zeros, and "...05Z" sorts after "...05.5Z" as TEXT, which would break
// every ORDER BY on these columns.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

// parseRFC3339 parses the timestamp strings stored in SQLite.
// SQLite has no native datetime type; we store RFC3339 TEXT.
func parseRFC3339(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("docstore: parse time %q: %w", s, err)
	}
	return t, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}
