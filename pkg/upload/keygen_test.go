package upload

import (
	"testing"
	"time"
)

func TestSanitizeFilename(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"report.pdf", "report.pdf"},
		{"my budget 2025.csv", "my_budget_2025.csv"},
		{"tax/return?.pdf", "tax_return_.pdf"},
		{"UPPER-case.PNG", "UPPER-case.PNG"},
		{"weird!@#$%^&*().txt", "weird__________.txt"},
		{"", ""},
	}

	for _, tt := range tests {
		if got := sanitizeFilename(tt.in); got != tt.want {
			t.Errorf("sanitizeFilename(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestStorageKey(t *testing.T) {
	now := time.UnixMilli(1_700_000_000_000)

	got := storageKey("owner-1", "my report.pdf", now)
	want := "owner-1/1700000000000_my_report.pdf"
	if string(got) != want {
		t.Errorf("storageKey = %q, want %q", got, want)
	}
}

func TestStorageKey_DistinctTimestampsDistinctKeys(t *testing.T) {
	k1 := storageKey("owner-1", "a.txt", time.UnixMilli(1000))
	k2 := storageKey("owner-1", "a.txt", time.UnixMilli(1001))
	if k1 == k2 {
		t.Errorf("keys for distinct timestamps must differ, both %q", k1)
	}
}
