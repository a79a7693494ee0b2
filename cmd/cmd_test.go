package cmd

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/kozaktomas/attendance-scanner/internal/database"
)

func TestParseStatus(t *testing.T) {
	tests := []struct {
		in      string
		want    database.Status
		wantErr bool
	}{
		{"", "", false},
		{"present", database.StatusPresent, false},
		{"LATE", database.StatusLate, false},
		{"Absent", database.StatusAbsent, false},
		{"gone", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := parseStatus(tt.in)
			if (err != nil) != tt.wantErr || got != tt.want {
				t.Errorf("parseStatus(%q) = %q, %v", tt.in, got, err)
			}
		})
	}
}

func TestEnrollmentPaths(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"a.JPG", "b.png", "notes.txt"} {
		if err := os.WriteFile(filepath.Join(dir, name), nil, 0o644); err != nil {
			t.Fatal(err)
		}
	}
	if err := os.Mkdir(filepath.Join(dir, "sub.jpg"), 0o755); err != nil {
		t.Fatal(err)
	}

	paths, err := enrollmentPaths([]string{"extra.jpg"}, dir)
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"extra.jpg", filepath.Join(dir, "a.JPG"), filepath.Join(dir, "b.png")}
	if len(paths) != len(want) {
		t.Fatalf("paths = %v, want %v", paths, want)
	}
	for i := range want {
		if paths[i] != want[i] {
			t.Errorf("paths[%d] = %q, want %q", i, paths[i], want[i])
		}
	}

	if _, err := enrollmentPaths(nil, ""); err == nil {
		t.Error("expected error without images")
	}
	if _, err := enrollmentPaths(make([]string, 21), ""); err == nil {
		t.Error("expected error above the image limit")
	}
	if _, err := enrollmentPaths(nil, filepath.Join(dir, "missing")); err == nil {
		t.Error("expected error for missing directory")
	}
}

func TestParseIndex(t *testing.T) {
	if i, err := parseIndex("2"); err != nil || i != 2 {
		t.Errorf("parseIndex(2) = %d, %v", i, err)
	}
	for _, bad := range []string{"-1", "x", ""} {
		if _, err := parseIndex(bad); err == nil {
			t.Errorf("parseIndex(%q) should fail", bad)
		}
	}
}
