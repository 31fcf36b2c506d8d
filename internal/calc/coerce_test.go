package calc

import (
	"reflect"
	"testing"

	"github.com/CyberismoCom/cyberismo-engine/internal/resource"
)

func TestCoerceNullAndEmptySentinel(t *testing.T) {
	if got := Coerce(resource.DataTypeShortText, "null"); got != nil {
		t.Fatalf("expected nil for null, got %v", got)
	}
	if got := Coerce(resource.DataTypeInteger, ""); got != "" {
		t.Fatalf("expected empty-string sentinel passthrough, got %v", got)
	}
}

func TestCoerceBooleanNumberInteger(t *testing.T) {
	if got := Coerce(resource.DataTypeBoolean, "true"); got != true {
		t.Fatalf("expected true, got %v", got)
	}
	if got := Coerce(resource.DataTypeBoolean, "false"); got != false {
		t.Fatalf("expected false, got %v", got)
	}
	if got := Coerce(resource.DataTypeNumber, "3.5"); got != 3.5 {
		t.Fatalf("expected 3.5, got %v", got)
	}
	if got := Coerce(resource.DataTypeInteger, "7"); got != int64(7) {
		t.Fatalf("expected int64(7), got %v (%T)", got, got)
	}
}

func TestCoerceTextAndEnumPassThrough(t *testing.T) {
	for _, dt := range []resource.DataType{resource.DataTypeShortText, resource.DataTypeLongText, resource.DataTypeEnum} {
		if got := Coerce(dt, "hello"); got != "hello" {
			t.Fatalf("expected passthrough for %s, got %v", dt, got)
		}
	}
}

func TestCoerceList(t *testing.T) {
	got := Coerce(resource.DataTypeList, "(a, b, c)")
	if !reflect.DeepEqual(got, []string{"a", "b", "c"}) {
		t.Fatalf("unexpected list coercion: %v", got)
	}
	empty := Coerce(resource.DataTypeList, "()")
	if !reflect.DeepEqual(empty, []string{}) {
		t.Fatalf("expected empty slice for empty list, got %v", empty)
	}
}

func TestCoerceDate(t *testing.T) {
	if got := Coerce(resource.DataTypeDate, "2026-07-31"); got != "2026-07-31" {
		t.Fatalf("unexpected date coercion: %v", got)
	}
	if got := Coerce(resource.DataTypeDate, "2026-07-31T10:00:00Z"); got != "2026-07-31" {
		t.Fatalf("expected date truncated from dateTime, got %v", got)
	}
	if got := Coerce(resource.DataTypeDate, "2026"); got != "2026-01-01" {
		t.Fatalf("expected bare year expanded, got %v", got)
	}
	if got := Coerce(resource.DataTypeDate, "not-a-date"); got != nil {
		t.Fatalf("expected nil for unparsable date, got %v", got)
	}
}

func TestCoerceDateTime(t *testing.T) {
	got := Coerce(resource.DataTypeDateTime, "2026-07-31T10:00:00Z")
	if got != "2026-07-31T10:00:00Z" {
		t.Fatalf("unexpected dateTime coercion: %v", got)
	}
}

func TestCoercePerson(t *testing.T) {
	if got := Coerce(resource.DataTypePerson, "alice@example.com"); got != "alice@example.com" {
		t.Fatalf("unexpected person coercion: %v", got)
	}
	if got := Coerce(resource.DataTypePerson, "not-an-email"); got != nil {
		t.Fatalf("expected nil for non-email person value, got %v", got)
	}
}
