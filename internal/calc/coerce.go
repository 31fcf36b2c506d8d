package calc

import (
	"strconv"
	"strings"
	"time"

	"github.com/CyberismoCom/cyberismo-engine/internal/resource"
)

// Coerce converts a Clingo string argument into a typed Go value per the
// field-type coercion table (spec §8). The literal "null" coerces to nil in
// every type; an empty string is the empty-string sentinel and passes
// through unchanged rather than coercing to the type's zero value.
func Coerce(dataType resource.DataType, raw string) any {
	if raw == "null" {
		return nil
	}
	if raw == "" {
		return ""
	}
	switch dataType {
	case resource.DataTypeBoolean:
		return raw == "true"
	case resource.DataTypeNumber:
		f, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil
		}
		return f
	case resource.DataTypeInteger:
		f, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil
		}
		return int64(f) // truncates toward zero, matching float64->int64 conversion
	case resource.DataTypeShortText, resource.DataTypeLongText, resource.DataTypeEnum:
		return raw
	case resource.DataTypeList:
		return coerceList(raw)
	case resource.DataTypeDate:
		return coerceDate(raw)
	case resource.DataTypeDateTime:
		return coerceDateTime(raw)
	case resource.DataTypePerson:
		return coercePerson(raw)
	default:
		return raw
	}
}

// coerceList parses "(a, b)" into ["a","b"] and "()" into an empty slice
// (spec §8 "list" row).
func coerceList(raw string) []string {
	trimmed := strings.TrimSpace(raw)
	trimmed = strings.TrimPrefix(trimmed, "(")
	trimmed = strings.TrimSuffix(trimmed, ")")
	trimmed = strings.TrimSpace(trimmed)
	if trimmed == "" {
		return []string{}
	}
	parts := strings.Split(trimmed, ",")
	out := make([]string, len(parts))
	for i, p := range parts {
		out[i] = strings.TrimSpace(p)
	}
	return out
}

// coerceDate normalises an ISO dateTime or bare "YYYY" into an ISO date
// "YYYY-MM-DD" (spec §8 "date" row).
func coerceDate(raw string) any {
	if len(raw) == 4 {
		if _, err := strconv.Atoi(raw); err == nil {
			return raw + "-01-01"
		}
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t.Format("2006-01-02")
	}
	if t, err := time.Parse("2006-01-02", raw); err == nil {
		return t.Format("2006-01-02")
	}
	return nil
}

// coerceDateTime normalises any parseable timestamp to ISO-8601 with a "Z"
// suffix (spec §8 "dateTime" row).
func coerceDateTime(raw string) any {
	formats := []string{time.RFC3339, time.RFC3339Nano, "2006-01-02"}
	for _, f := range formats {
		if t, err := time.Parse(f, raw); err == nil {
			return t.UTC().Format("2006-01-02T15:04:05Z")
		}
	}
	return nil
}

// coercePerson validates raw looks like an email address (".+@.+"); a
// non-matching value coerces to nil (spec §8 "person" row).
func coercePerson(raw string) any {
	at := strings.IndexByte(raw, '@')
	if at <= 0 || at >= len(raw)-1 {
		return nil
	}
	return raw
}
