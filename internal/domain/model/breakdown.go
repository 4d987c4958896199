package model

import (
	"encoding/json"
	"strconv"
	"strings"
)

// Breakdown is one alliance's season-specific scoring detail for a match.
// Lookups never fail: missing or mistyped fields read as zero values.
type Breakdown struct {
	Fields map[string]any
	// Score is the alliance total. It feeds the legacy proxy ruleset.
	Score float64
}

// NewBreakdown wraps decoded JSON fields.
func NewBreakdown(fields map[string]any, score float64) Breakdown {
	return Breakdown{Fields: fields, Score: score}
}

// Float reads a numeric field. Path segments are separated by '.'.
// Booleans read as 1/0 and numeric strings are parsed.
func (b Breakdown) Float(path string) float64 {
	switch v := b.lookup(path).(type) {
	case float64:
		return v
	case float32:
		return float64(v)
	case int:
		return float64(v)
	case int64:
		return float64(v)
	case json.Number:
		f, err := v.Float64()
		if err != nil {
			return 0
		}
		return f
	case bool:
		if v {
			return 1
		}
		return 0
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return 0
		}
		return f
	default:
		return 0
	}
}

// String reads a string field, "" when missing.
func (b Breakdown) String(path string) string {
	if s, ok := b.lookup(path).(string); ok {
		return s
	}
	return ""
}

func (b Breakdown) lookup(path string) any {
	if b.Fields == nil || path == "" {
		return nil
	}
	var cur any = b.Fields
	for _, seg := range strings.Split(path, ".") {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil
		}
		cur, ok = m[seg]
		if !ok {
			return nil
		}
	}
	return cur
}
