package records

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/siwarga/rwrt-backend/internal/approval"
	"github.com/siwarga/rwrt-backend/internal/rbac"
)

// text returns the first non-blank string among keys.
func text(data map[string]any, keys ...string) string {
	for _, k := range keys {
		if s, ok := data[k].(string); ok && strings.TrimSpace(s) != "" {
			return strings.TrimSpace(s)
		}
	}
	return ""
}

// verbatim is text without trimming, for user-entered prose.
func verbatim(data map[string]any, key string) string {
	s, _ := data[key].(string)
	return s
}

func boolean(data map[string]any, key string) bool {
	switch v := data[key].(type) {
	case bool:
		return v
	case string:
		return strings.EqualFold(v, "true") || v == "1" || strings.EqualFold(v, "ya")
	}
	return false
}

func stringList(data map[string]any, key string) []string {
	raw, ok := data[key].([]any)
	if !ok {
		if typed, ok := data[key].([]string); ok {
			return append([]string{}, typed...)
		}
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, v := range raw {
		if s, ok := v.(string); ok && s != "" {
			out = append(out, s)
		}
	}
	return out
}

// timestamp accepts RFC3339 strings, unix milliseconds and
// {"seconds": n, "nanoseconds": n} objects exported from the hosted store.
func timestamp(data map[string]any, keys ...string) time.Time {
	for _, k := range keys {
		if t, ok := coerceTime(data[k]); ok {
			return t
		}
	}
	return time.Time{}
}

func coerceTime(v any) (time.Time, bool) {
	switch t := v.(type) {
	case string:
		for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02 15:04:05", "2006-01-02"} {
			if parsed, err := time.Parse(layout, t); err == nil {
				return parsed.UTC(), true
			}
		}
	case float64:
		return time.UnixMilli(int64(t)).UTC(), true
	case int64:
		return time.UnixMilli(t).UTC(), true
	case int:
		return time.UnixMilli(int64(t)).UTC(), true
	case json.Number:
		if n, err := t.Int64(); err == nil {
			return time.UnixMilli(n).UTC(), true
		}
	case time.Time:
		return t.UTC(), true
	case map[string]any:
		secs, ok := t["seconds"].(float64)
		if !ok {
			secs, ok = t["_seconds"].(float64)
		}
		if ok {
			nanos, _ := t["nanoseconds"].(float64)
			return time.Unix(int64(secs), int64(nanos)).UTC(), true
		}
	}
	return time.Time{}, false
}

func attribution(data map[string]any, key string) *approval.Attribution {
	raw, ok := data[key].(map[string]any)
	if !ok {
		return nil
	}
	a := &approval.Attribution{
		UserID: text(raw, "userId", "uid"),
		Name:   text(raw, "name", "displayName"),
		Role:   rbac.Role(strings.ToUpper(text(raw, "role"))),
	}
	a.At, _ = coerceTime(raw["at"])
	if a.UserID == "" && a.Name == "" {
		return nil
	}
	return a
}
