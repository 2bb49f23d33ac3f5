package core

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestCatalogList(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"b.csv", "a.CSV", "notes.txt", ".a.csv.123.tmp", ".hidden.csv"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("x\n"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	if err := os.Mkdir(filepath.Join(dir, "sub.csv"), 0o755); err != nil {
		t.Fatal(err)
	}

	c, err := NewCatalog(dir)
	if err != nil {
		t.Fatalf("NewCatalog() error = %v", err)
	}
	files, err := c.List()
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}

	if len(files) != 2 {
		t.Fatalf("List() returned %d files, want 2: %+v", len(files), files)
	}
	if files[0].Name != "a.CSV" || files[1].Name != "b.csv" {
		t.Errorf("List() names = %q, %q; want a.CSV, b.csv", files[0].Name, files[1].Name)
	}
	if files[1].Size != 2 {
		t.Errorf("Size = %d, want 2", files[1].Size)
	}
}

func TestCatalogList_MissingDir(t *testing.T) {
	c, err := NewCatalog(filepath.Join(t.TempDir(), "missing"))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := c.List(); err == nil {
		t.Error("List() expected error for missing directory")
	}
}

func TestCatalogResolve(t *testing.T) {
	dir := t.TempDir()
	c, err := NewCatalog(dir)
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name    string
		in      string
		want    string
		wantErr error
	}{
		{name: "plain name", in: "fornecedores.csv", want: filepath.Join(c.Dir(), "fornecedores.csv")},
		{name: "surrounding space", in: " out.csv ", want: filepath.Join(c.Dir(), "out.csv")},
		{name: "empty", in: "", wantErr: ErrNoFileSelected},
		{name: "parent traversal", in: "../secret.csv", wantErr: ErrInvalidFileName},
		{name: "subdirectory", in: "sub/file.csv", wantErr: ErrInvalidFileName},
		{name: "backslash", in: `sub\file.csv`, wantErr: ErrInvalidFileName},
		{name: "absolute", in: "/etc/passwd.csv", wantErr: ErrInvalidFileName},
		{name: "hidden", in: ".x.csv", wantErr: ErrInvalidFileName},
		{name: "dot dot", in: "..", wantErr: ErrInvalidFileName},
		{name: "wrong extension", in: "notes.txt", wantErr: ErrInvalidFileName},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := c.Resolve(tt.in)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("Resolve(%q) error = %v, want %v", tt.in, err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Resolve(%q) error = %v", tt.in, err)
			}
			if got != tt.want {
				t.Errorf("Resolve(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}
