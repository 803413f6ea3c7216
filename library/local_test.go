package library

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"go.uber.org/zap/zaptest"
)

// pngHeader is enough for content sniffing.
var pngHeader = []byte{0x89, 'P', 'N', 'G', 0x0d, 0x0a, 0x1a, 0x0a, 0, 0, 0, 0x0d, 'I', 'H', 'D', 'R'}

func writeFile(t *testing.T, path string, data []byte) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatal(err)
	}
}

func newLocalLibrary(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	for _, name := range []string{"10.png", "2.png", "1.png"} {
		writeFile(t, filepath.Join(root, "Tower", "Chapter 10", name), pngHeader)
		writeFile(t, filepath.Join(root, "Tower", "Chapter 2", name), pngHeader)
	}
	writeFile(t, filepath.Join(root, "Tower", "Chapter 2", "notes.txt"), []byte("not an image"))
	writeFile(t, filepath.Join(root, "Oneshot", "a.png"), pngHeader)
	writeFile(t, filepath.Join(root, "Oneshot", "b.png"), pngHeader)
	return root
}

func TestLocalSourceMangas(t *testing.T) {
	root := newLocalLibrary(t)
	s := NewLocalSource([]string{root, filepath.Join(root, "missing")}, zaptest.NewLogger(t))

	mangas, err := s.Mangas(context.Background())
	if err != nil {
		t.Fatalf("Mangas: %v", err)
	}
	if len(mangas) != 2 {
		t.Fatalf("got %d mangas, want 2", len(mangas))
	}
	if mangas[0].Title != "Oneshot" || mangas[0].ID != 1 || mangas[0].Chapters != 1 {
		t.Errorf("first manga %+v", mangas[0])
	}
	if mangas[1].Title != "Tower" || mangas[1].ID != 2 || mangas[1].Chapters != 2 {
		t.Errorf("second manga %+v", mangas[1])
	}
}

func TestLocalSourceChaptersNaturalOrder(t *testing.T) {
	s := NewLocalSource([]string{newLocalLibrary(t)}, zaptest.NewLogger(t))

	chapters, err := s.Chapters(context.Background(), 2)
	if err != nil {
		t.Fatalf("Chapters: %v", err)
	}
	if len(chapters) != 2 || chapters[0].Name != "Chapter 2" || chapters[1].Name != "Chapter 10" {
		t.Errorf("chapters %+v, want Chapter 2 then Chapter 10", chapters)
	}

	if _, err := s.Chapters(context.Background(), 9); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestLocalSourcePages(t *testing.T) {
	s := NewLocalSource([]string{newLocalLibrary(t)}, zaptest.NewLogger(t))
	ctx := context.Background()

	n, err := s.PageCount(ctx, 2, 1)
	if err != nil {
		t.Fatalf("PageCount: %v", err)
	}
	if n != 3 {
		t.Fatalf("got %d pages, want 3 (text file skipped)", n)
	}
	for i, want := range []string{"1.png", "2.png", "10.png"} {
		if got := filepath.Base(s.Locate(2, 1, i)); got != want {
			t.Errorf("page %d = %q, want %q", i, got, want)
		}
	}

	n, err = s.PageCount(ctx, 1, 1)
	if err != nil || n != 2 {
		t.Errorf("single chapter manga PageCount = %d, %v; want 2", n, err)
	}
	if _, err := s.PageCount(ctx, 1, 2); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}
