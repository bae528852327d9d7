package utils

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ParseQueryList handles both repeated and comma-separated query params.
// Blank entries are dropped.
// Example:
//
//	?municipality=a,b            → ["a","b"]
//	?municipality=a&municipality=b → ["a","b"]
func ParseQueryList(q map[string][]string, key string) []string {
	values := q[key]
	if len(values) == 0 {
		return nil
	}

	var out []string
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

// ParseUUIDList parses a list param into ids. The value "all" (or no value)
// means no filter and yields nil.
func ParseUUIDList(q map[string][]string, key string) ([]uuid.UUID, error) {
	raw := ParseQueryList(q, key)
	ids := make([]uuid.UUID, 0, len(raw))
	for _, v := range raw {
		if strings.EqualFold(v, "all") {
			return nil, nil
		}
		id, err := uuid.Parse(v)
		if err != nil {
			return nil, fmt.Errorf("invalid %s %q", key, v)
		}
		ids = append(ids, id)
	}
	if len(ids) == 0 {
		return nil, nil
	}
	return ids, nil
}

// ParseTime accepts RFC 3339 timestamps or plain dates (UTC midnight).
func ParseTime(v string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, v); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.DateOnly, v)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid time %q", v)
	}
	return t, nil
}
