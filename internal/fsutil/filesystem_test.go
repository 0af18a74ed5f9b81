package fsutil

import (
	"errors"
	"io"
	"io/fs"
	"path/filepath"
	"testing"
)

func TestOSFileSystem_Exists(t *testing.T) {
	osfs := OSFileSystem{}

	if !osfs.Exists("filesystem.go") {
		t.Error("expected filesystem.go to exist")
	}
	if osfs.Exists("nonexistent_file_xyz.pt") {
		t.Error("expected nonexistent file to not exist")
	}
}

func TestOSFileSystem_CreateAndOpen(t *testing.T) {
	osfs := OSFileSystem{}
	dir := t.TempDir()
	name := filepath.Join(dir, "nested", "run.pt")

	if err := osfs.MkdirAll(filepath.Dir(name), 0755); err != nil {
		t.Fatalf("MkdirAll failed: %v", err)
	}
	w, err := osfs.Create(name)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if _, err := w.Write([]byte("0 1 2 3 1 0 7 0\n")); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	f, err := osfs.Open(name)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		t.Fatalf("ReadAll failed: %v", err)
	}
	if string(data) != "0 1 2 3 1 0 7 0\n" {
		t.Errorf("unexpected content %q", data)
	}
}

func TestMemoryFileSystem_CreateAndOpen(t *testing.T) {
	mfs := NewMemoryFileSystem()

	w, err := mfs.Create("/out/run_3.png")
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	w.Write([]byte("hello, "))
	w.Write([]byte("world"))
	if err := w.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	f, err := mfs.Open("/out/run_3.png")
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	data, _ := io.ReadAll(f)
	if string(data) != "hello, world" {
		t.Errorf("expected %q, got %q", "hello, world", data)
	}

	info, err := f.Stat()
	if err != nil || info.Size() != int64(len("hello, world")) {
		t.Errorf("unexpected stat %v %v", info, err)
	}

	if got := mfs.Files(); len(got) != 1 || got[0] != "/out/run_3.png" {
		t.Errorf("Files() = %v", got)
	}
}

func TestMemoryFileSystem_NotExist(t *testing.T) {
	mfs := NewMemoryFileSystem()

	if _, err := mfs.Open("/missing.pt"); !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("Open: expected fs.ErrNotExist, got %v", err)
	}
	if _, err := mfs.Stat("/missing.pt"); !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("Stat: expected fs.ErrNotExist, got %v", err)
	}
	if _, err := mfs.ReadFile("/missing.pt"); !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("ReadFile: expected fs.ErrNotExist, got %v", err)
	}
	if mfs.Exists("/missing.pt") {
		t.Error("expected missing file to not exist")
	}
}

func TestMemoryFileSystem_Dirs(t *testing.T) {
	mfs := NewMemoryFileSystem()

	if err := mfs.MkdirAll("/a/b/c", 0755); err != nil {
		t.Fatalf("MkdirAll failed: %v", err)
	}
	for _, p := range []string{"/a", "/a/b", "/a/b/c"} {
		if !mfs.Exists(p) {
			t.Errorf("expected %s to exist", p)
		}
	}
	info, err := mfs.Stat("/a/b")
	if err != nil || !info.IsDir() {
		t.Errorf("expected /a/b to be a dir, got %v %v", info, err)
	}

	mfs.WriteFile("/x/y.pt", []byte("1"))
	if !mfs.Exists("/x") {
		t.Error("parent of a stored file should exist")
	}
}
