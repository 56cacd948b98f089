package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func writeFile(t *testing.T, root, rel string, data []byte) {
	t.Helper()
	path := filepath.Join(root, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestFSStoreListFiltersAndSorts(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "2025/b-well.pdf", []byte("%PDF-b"))
	writeFile(t, root, "2025/a-well.pdf", []byte("%PDF-a"))
	writeFile(t, root, "2025/notes.txt", []byte("not a filing"))
	writeFile(t, root, ".staging/hidden.pdf", []byte("%PDF-h"))

	s, err := NewFSStore(root, nil)
	if err != nil {
		t.Fatalf("NewFSStore() error = %v", err)
	}
	objects, err := s.List(context.Background(), "")
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(objects) != 2 {
		t.Fatalf("objects = %+v, want only the two PDFs", objects)
	}
	if objects[0].Key != "2025/a-well.pdf" || objects[1].Key != "2025/b-well.pdf" {
		t.Errorf("keys = %s, %s; want sorted order", objects[0].Key, objects[1].Key)
	}
	if objects[0].Size != 6 {
		t.Errorf("size = %d, want 6", objects[0].Size)
	}
}

func TestFSStoreFetchBytes(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "2025/a-well.pdf", []byte("%PDF-payload"))

	s, err := NewFSStore(root, nil)
	if err != nil {
		t.Fatalf("NewFSStore() error = %v", err)
	}
	data, err := s.FetchBytes(context.Background(), "2025/a-well.pdf")
	if err != nil {
		t.Fatalf("FetchBytes() error = %v", err)
	}
	if string(data) != "%PDF-payload" {
		t.Errorf("data = %q", data)
	}
}

func TestFSStoreRejectsEscapingKey(t *testing.T) {
	root := t.TempDir()
	s, err := NewFSStore(root, nil)
	if err != nil {
		t.Fatalf("NewFSStore() error = %v", err)
	}
	if _, err := s.FetchBytes(context.Background(), "../outside.pdf"); err == nil {
		t.Error("FetchBytes() accepted a key escaping the root")
	}
}
