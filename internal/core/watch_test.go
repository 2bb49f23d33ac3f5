package core

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDirWatcher(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "fornecedores.csv")
	if err := os.WriteFile(path, []byte("a\n1\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	loaded := time.Now().Add(-time.Hour)
	if err := os.Chtimes(path, loaded, loaded); err != nil {
		t.Fatal(err)
	}

	w, err := WatchDir(dir, nil)
	if err != nil {
		t.Fatalf("WatchDir() error = %v", err)
	}
	defer w.Close()

	if w.ChangedSince("fornecedores.csv", loaded) {
		t.Fatal("ChangedSince() = true before any change")
	}

	if err := os.WriteFile(path, []byte("a\n2\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	deadline := time.Now().Add(5 * time.Second)
	for !w.ChangedSince("fornecedores.csv", loaded) {
		if time.Now().After(deadline) {
			t.Fatal("change was not observed")
		}
		time.Sleep(10 * time.Millisecond)
	}

	st, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if w.ChangedSince("fornecedores.csv", st.ModTime()) {
		t.Error("ChangedSince(current mtime) = true, want false")
	}
	if w.ChangedSince("other.csv", loaded) {
		t.Error("ChangedSince(other.csv) = true, want false")
	}
}

func TestDirWatcher_Nil(t *testing.T) {
	var w *DirWatcher
	if w.ChangedSince("x.csv", time.Time{}) {
		t.Error("nil watcher reported a change")
	}
}

func TestWatchDir_Missing(t *testing.T) {
	if _, err := WatchDir(filepath.Join(t.TempDir(), "missing"), nil); err == nil {
		t.Error("WatchDir() expected error for missing directory")
	}
}
