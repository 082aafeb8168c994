package repository

import (
	"strconv"
	"strings"
	"time"

	"github.com/contractsonly/api/internal/database"
)

// getString extracts a string value from a row
func getString(m database.Row, key string) string {
	switch v := m[key].(type) {
	case string:
		return v
	case []byte:
		return string(v)
	}
	return ""
}

// getInt extracts an int value from a row
func getInt(m database.Row, key string) int {
	switch v := m[key].(type) {
	case int64:
		return int(v)
	case int32:
		return int(v)
	case int:
		return v
	case float64:
		return int(v)
	}
	return 0
}

// getFloat extracts a float value from a row. NUMERIC columns may arrive as text.
func getFloat(m database.Row, key string) float64 {
	switch v := m[key].(type) {
	case float64:
		return v
	case float32:
		return float64(v)
	case int64:
		return float64(v)
	case string:
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	case []byte:
		if f, err := strconv.ParseFloat(string(v), 64); err == nil {
			return f
		}
	}
	return 0
}

// getBool extracts a bool value from a row
func getBool(m database.Row, key string) bool {
	if v, ok := m[key].(bool); ok {
		return v
	}
	return false
}

// getTime extracts an optional time value from a row
func getTime(m database.Row, key string) *time.Time {
	t := parseTime(m[key])
	if t.IsZero() {
		return nil
	}
	return &t
}

// parseTime parses time from various formats
func parseTime(v interface{}) time.Time {
	switch t := v.(type) {
	case time.Time:
		return t
	case *time.Time:
		if t != nil {
			return *t
		}
	case string:
		if parsed, err := time.Parse(time.RFC3339, t); err == nil {
			return parsed
		}
		if parsed, err := time.Parse(time.RFC3339Nano, t); err == nil {
			return parsed
		}
	}
	return time.Time{}
}

// joinList stores a list as a comma separated column
func joinList(values []string) string {
	return strings.Join(values, ",")
}

// nilIfEmpty returns nil for empty strings so the column is stored as NULL
func nilIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
