package s3blob

import (
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestReportKeyLayout(t *testing.T) {
	id := uuid.MustParse("11111111-2222-3333-4444-555555555555")
	date := time.Date(2026, time.August, 31, 0, 0, 0, 0, time.UTC)

	key := reportKey(date, id)
	want := "reports/2026/08/2026-08-31-11111111-2222-3333-4444-555555555555.txt"
	if key != want {
		t.Fatalf("key = %q, want %q", key, want)
	}
}

func TestMatchReportKeyPicksDate(t *testing.T) {
	date := time.Date(2026, time.August, 28, 0, 0, 0, 0, time.UTC)
	keys := []string{
		"reports/2026/08/2026-08-27-" + uuid.NewString() + ".txt",
		"reports/2026/08/2026-08-28-aaaaaaaa-0000-0000-0000-000000000000.txt",
		"reports/2026/08/2026-08-28-bbbbbbbb-0000-0000-0000-000000000000.txt",
		"reports/2026/08/2026-08-29-" + uuid.NewString() + ".txt",
	}

	key, ok := matchReportKey(keys, date)
	if !ok {
		t.Fatalf("no key matched %s", date.Format("2006-01-02"))
	}
	if !strings.Contains(key, "2026-08-28-bbbbbbbb") {
		t.Fatalf("matched %q, want the last same-date key", key)
	}
}

func TestMatchReportKeyMiss(t *testing.T) {
	date := time.Date(2026, time.August, 30, 0, 0, 0, 0, time.UTC)
	keys := []string{
		"reports/2026/08/2026-08-28-" + uuid.NewString() + ".txt",
	}
	if key, ok := matchReportKey(keys, date); ok {
		t.Fatalf("matched %q for a date with no reports", key)
	}
	if _, ok := matchReportKey(nil, date); ok {
		t.Fatalf("matched a key in an empty listing")
	}
}
