package utils

import (
	"os"
	"path/filepath"
	"testing"
)

func TestRealPath(t *testing.T) {
	dir := t.TempDir()
	resolvedDir, err := filepath.EvalSymlinks(dir)
	if err != nil {
		t.Fatal(err)
	}

	target := filepath.Join(resolvedDir, "target")
	if err := os.Mkdir(target, 0755); err != nil {
		t.Fatal(err)
	}
	link := filepath.Join(resolvedDir, "link")
	if err := os.Symlink(target, link); err != nil {
		t.Fatal(err)
	}

	got, err := RealPath(link)
	if err != nil {
		t.Fatalf("RealPath() error = %v", err)
	}
	if got != target {
		t.Errorf("RealPath() = %q, want %q", got, target)
	}

	if _, err := RealPath(""); err == nil {
		t.Error("expected error for empty path")
	}
	if _, err := RealPath(filepath.Join(resolvedDir, "missing")); err == nil {
		t.Error("expected error for missing path")
	}
}

func TestIsWithinBase(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		base string
		path string
		want bool
	}{
		{"same directory", "/srv/data", "/srv/data", true},
		{"child", "/srv/data", "/srv/data/mnt", true},
		{"trailing slash", "/srv/data/", "/srv/data/mnt", true},
		{"sibling with shared prefix", "/srv/data", "/srv/database", false},
		{"parent", "/srv/data", "/srv", false},
		{"dot segments", "/srv/data", "/srv/data/../other", false},
		{"filesystem root base", "/", "/mnt", true},
		{"empty base", "", "/mnt", false},
		{"empty path", "/srv", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsWithinBase(tt.base, tt.path); got != tt.want {
				t.Errorf("IsWithinBase(%q, %q) = %v, want %v", tt.base, tt.path, got, tt.want)
			}
		})
	}
}
