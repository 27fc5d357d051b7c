package util

import (
	"testing"
	"time"
)

func TestNormalizeEpochMillis(t *testing.T) {
	if got := NormalizeEpochMillis(1_700_000_000); got != 1_700_000_000_000 {
		t.Fatalf("seconds not scaled: %d", got)
	}
	if got := NormalizeEpochMillis(1_700_000_000_123); got != 1_700_000_000_123 {
		t.Fatalf("millis changed: %d", got)
	}
	if got := NormalizeEpochMillis(0); got != 0 {
		t.Fatalf("zero changed: %d", got)
	}
}

func TestFromMillis(t *testing.T) {
	want := time.Date(2024, 10, 10, 10, 10, 10, 250*int(time.Millisecond), time.UTC)
	got := FromMillis(want.UnixMilli())
	if !got.Equal(want) || got.Location() != time.UTC {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestParseIntDefault(t *testing.T) {
	if got := ParseIntDefault("5433", 5432); got != 5433 {
		t.Fatalf("got %d", got)
	}
	if got := ParseIntDefault("", 5432); got != 5432 {
		t.Fatalf("empty: got %d", got)
	}
	if got := ParseIntDefault("x", 6379); got != 6379 {
		t.Fatalf("invalid: got %d", got)
	}
}
