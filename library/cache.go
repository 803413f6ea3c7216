package library

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"manga_reader/utils"
)

func CacheDir() string {
	dir, err := utils.ConfigDir()
	if err != nil {
		return filepath.Join(os.TempDir(), "manga_reader", "cache")
	}
	return filepath.Join(dir, "cache")
}

func MangaCachePath(source string, mangaID int) string {
	return filepath.Join(CacheDir(), source, strconv.Itoa(mangaID))
}

func chapterListPath(source string, mangaID int) string {
	return filepath.Join(MangaCachePath(source, mangaID), "chapters.json")
}

func chapterPagesPath(source string, mangaID, chapterID int) string {
	return filepath.Join(MangaCachePath(source, mangaID), fmt.Sprintf("%d.pages.json", chapterID))
}

func SaveChapterList(source string, mangaID int, chapters []Chapter) error {
	if len(chapters) == 0 {
		return fmt.Errorf("no chapters to save")
	}
	return writeJSON(chapterListPath(source, mangaID), chapters)
}

func LoadChapterList(source string, mangaID int) ([]Chapter, error) {
	var chapters []Chapter
	if err := readJSON(chapterListPath(source, mangaID), &chapters); err != nil {
		return nil, err
	}
	if len(chapters) == 0 {
		return nil, fmt.Errorf("cached chapter list of %s/%d: %w", source, mangaID, ErrNotFound)
	}
	return chapters, nil
}

func SaveChapterPages(source string, mangaID, chapterID int, pages []string) error {
	if len(pages) == 0 {
		return fmt.Errorf("no pages to save")
	}
	return writeJSON(chapterPagesPath(source, mangaID, chapterID), pages)
}

func LoadChapterPages(source string, mangaID, chapterID int) ([]string, error) {
	var pages []string
	if err := readJSON(chapterPagesPath(source, mangaID, chapterID), &pages); err != nil {
		return nil, err
	}
	if len(pages) == 0 {
		return nil, fmt.Errorf("cached pages of %s/%d/%d: %w", source, mangaID, chapterID, ErrNotFound)
	}
	return pages, nil
}

func writeJSON(path string, v any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return json.NewEncoder(f).Encode(v)
}

func readJSON(path string, v any) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return json.NewDecoder(f).Decode(v)
}
