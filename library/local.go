package library

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/h2non/filetype"
	"github.com/maruel/natural"
	"go.uber.org/zap"
)

// sniffLen is the header size filetype needs to recognise an image.
const sniffLen = 262

// LocalSource reads mangas from folders on disk:
//
//	<library path>/<manga>/<chapter>/<page image>
//
// A manga folder that directly contains images is a single chapter. IDs are
// 1-based positions in natural sort order.
type LocalSource struct {
	roots []string
	log   *zap.Logger

	mu    sync.Mutex
	pages map[pageKey][]string
}

func NewLocalSource(roots []string, log *zap.Logger) *LocalSource {
	return &LocalSource{roots: roots, log: log, pages: make(map[pageKey][]string)}
}

func (s *LocalSource) Name() string { return SourceLocal }

// mangaDirs lists manga folders of all roots, naturally sorted by name.
func (s *LocalSource) mangaDirs() ([]string, error) {
	var dirs []string
	for _, root := range s.roots {
		entries, err := os.ReadDir(root)
		if err != nil {
			s.log.Warn("Unable to read library folder", zap.String("path", root), zap.Error(err))
			continue
		}
		for _, e := range entries {
			if e.IsDir() && !strings.HasPrefix(e.Name(), ".") {
				dirs = append(dirs, filepath.Join(root, e.Name()))
			}
		}
	}
	sortNatural(dirs)
	return dirs, nil
}

func (s *LocalSource) Mangas(context.Context) ([]Manga, error) {
	dirs, err := s.mangaDirs()
	if err != nil {
		return nil, err
	}
	mangas := make([]Manga, 0, len(dirs))
	for i, dir := range dirs {
		chapters, _ := s.chapterDirs(dir)
		mangas = append(mangas, Manga{
			ID:       i + 1,
			Title:    filepath.Base(dir),
			Source:   SourceLocal,
			URL:      dir,
			Chapters: len(chapters),
		})
	}
	return mangas, nil
}

func (s *LocalSource) mangaDir(mangaID int) (string, error) {
	dirs, err := s.mangaDirs()
	if err != nil {
		return "", err
	}
	if mangaID < 1 || mangaID > len(dirs) {
		return "", fmt.Errorf("local manga %d: %w", mangaID, ErrNotFound)
	}
	return dirs[mangaID-1], nil
}

// chapterDirs returns the chapter folders of a manga, or the manga folder
// itself when it holds images directly.
func (s *LocalSource) chapterDirs(mangaDir string) ([]string, error) {
	entries, err := os.ReadDir(mangaDir)
	if err != nil {
		return nil, err
	}
	var dirs []string
	for _, e := range entries {
		if e.IsDir() && !strings.HasPrefix(e.Name(), ".") {
			dirs = append(dirs, filepath.Join(mangaDir, e.Name()))
		}
	}
	if len(dirs) == 0 {
		if images, _ := imageFiles(mangaDir); len(images) > 0 {
			return []string{mangaDir}, nil
		}
	}
	sortNatural(dirs)
	return dirs, nil
}

func (s *LocalSource) Chapters(_ context.Context, mangaID int) ([]Chapter, error) {
	dir, err := s.mangaDir(mangaID)
	if err != nil {
		return nil, err
	}
	dirs, err := s.chapterDirs(dir)
	if err != nil {
		return nil, err
	}

	chapters := make([]Chapter, 0, len(dirs))
	for i, d := range dirs {
		var date int64
		if info, err := os.Stat(d); err == nil {
			date = info.ModTime().UnixMilli()
		}
		chapters = append(chapters, Chapter{
			ID:          i + 1,
			Name:        filepath.Base(d),
			Number:      float64(i + 1),
			Date:        date,
			SourceOrder: len(dirs) - 1 - i,
			URL:         d,
		})
	}
	return chapters, nil
}

func (s *LocalSource) PageCount(_ context.Context, mangaID, chapterID int) (int, error) {
	dir, err := s.mangaDir(mangaID)
	if err != nil {
		return 0, err
	}
	dirs, err := s.chapterDirs(dir)
	if err != nil {
		return 0, err
	}
	if chapterID < 1 || chapterID > len(dirs) {
		return 0, fmt.Errorf("local chapter %d of manga %d: %w", chapterID, mangaID, ErrNotFound)
	}

	start := time.Now()
	pages, err := imageFiles(dirs[chapterID-1])
	if err != nil {
		return 0, err
	}
	s.log.Debug("Scanned chapter", zap.String("path", dirs[chapterID-1]), zap.Int("pages", len(pages)), zap.Duration("took", time.Since(start)))

	s.mu.Lock()
	s.pages[pageKey{mangaID, chapterID}] = pages
	s.mu.Unlock()
	return len(pages), nil
}

// Locate returns the file path of a page.
func (s *LocalSource) Locate(mangaID, chapterID, page int) string {
	s.mu.Lock()
	pages := s.pages[pageKey{mangaID, chapterID}]
	s.mu.Unlock()
	if page < 0 || page >= len(pages) {
		return fmt.Sprintf("local://%d/%d/%d", mangaID, chapterID, page)
	}
	return pages[page]
}

// imageFiles lists image files in dir, recognised by content, naturally
// sorted.
func imageFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var files []string
	for _, e := range entries {
		if e.IsDir() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		path := filepath.Join(dir, e.Name())
		if isImageFile(path) {
			files = append(files, path)
		}
	}
	sortNatural(files)
	return files, nil
}

func isImageFile(path string) bool {
	f, err := os.Open(path)
	if err != nil {
		return false
	}
	defer f.Close()

	head := make([]byte, sniffLen)
	n, err := io.ReadFull(f, head)
	if err != nil && err != io.ErrUnexpectedEOF {
		return false
	}
	return filetype.IsImage(head[:n])
}

// sortNatural sorts paths by base name so that "page2" comes before "page10".
func sortNatural(paths []string) {
	sort.SliceStable(paths, func(i, j int) bool {
		return natural.Less(filepath.Base(paths[i]), filepath.Base(paths[j]))
	})
}
