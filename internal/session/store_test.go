package session

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	return store
}

func TestSaveListDelete(t *testing.T) {
	store := newTestStore(t)
	id := store.NewID()

	uploads := map[string][]byte{
		"photo one.PNG": []byte("png-bytes"),
		"scan.jpeg":     []byte("longer jpeg payload"),
		"pic.webp":      []byte("w"),
	}
	saved := make(map[string]int64)
	for name, data := range uploads {
		f, err := store.Save(id, name, "", data)
		if err != nil {
			t.Fatalf("Save %q: %v", name, err)
		}
		if f.Size != int64(len(data)) {
			t.Fatalf("size mismatch for %q: got %d want %d", name, f.Size, len(data))
		}
		saved[f.Name] = f.Size
	}

	files, err := store.List(id)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(files) != 3 {
		t.Fatalf("listing count mismatch: got %d want 3", len(files))
	}
	for _, f := range files {
		if want, ok := saved[f.Name]; !ok || f.Size != want {
			t.Fatalf("unexpected listing entry: %+v", f)
		}
	}

	victim := files[0].Name
	if err := store.Delete(id, victim); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	files, err = store.List(id)
	if err != nil {
		t.Fatalf("List after delete: %v", err)
	}
	if len(files) != 2 {
		t.Fatalf("listing count after delete: got %d want 2", len(files))
	}
	if err := store.Delete(id, victim); !errors.Is(err, ErrNotFound) {
		t.Fatalf("second delete should be ErrNotFound, got %v", err)
	}
}

func TestReadRoundTrip(t *testing.T) {
	store := newTestStore(t)
	id := store.NewID()
	payload := []byte("\x89PNG fake bytes")

	f, err := store.Save(id, "img.png", "image/png", payload)
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	got, err := store.Read(id, f.Name)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if !bytes.Equal(got, payload) {
		t.Fatalf("bytes mismatch: got %q", got)
	}
}

func TestListUnknownSession(t *testing.T) {
	store := newTestStore(t)
	if _, err := store.List("no-such-session"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestListFiltersNonImages(t *testing.T) {
	store := newTestStore(t)
	id := store.NewID()

	if _, err := store.Save(id, "ok.png", "image/png", []byte("x")); err != nil {
		t.Fatalf("Save: %v", err)
	}
	stray := filepath.Join(store.basePath, id, "notes.txt")
	if err := os.WriteFile(stray, []byte("not an image"), 0o644); err != nil {
		t.Fatalf("write stray file: %v", err)
	}

	files, err := store.List(id)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(files) != 1 {
		t.Fatalf("listing count mismatch: got %d", len(files))
	}
}

func TestTraversalRejected(t *testing.T) {
	store := newTestStore(t)
	id := store.NewID()
	if _, err := store.Save(id, "a.png", "image/png", []byte("x")); err != nil {
		t.Fatalf("Save: %v", err)
	}

	if _, _, err := store.FilePath(id, "../"+id+"/a.png"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for traversal name, got %v", err)
	}
	if _, err := store.List("../" + id); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for traversal id, got %v", err)
	}
	if err := store.Delete(id, ".hidden"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for dotfile, got %v", err)
	}
}

func TestGeneratedNamesAreCollisionResistant(t *testing.T) {
	store := newTestStore(t)
	id := store.NewID()

	first, err := store.Save(id, "same.png", "image/png", []byte("1"))
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	second, err := store.Save(id, "same.png", "image/png", []byte("2"))
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if first.Name == second.Name {
		t.Fatalf("stored names collided: %q", first.Name)
	}
	if !strings.HasSuffix(first.Name, ".png") {
		t.Fatalf("extension lost: %q", first.Name)
	}
}
