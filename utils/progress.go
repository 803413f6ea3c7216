package utils

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"slices"
	"strings"
	"sync"
	"time"

	"go.uber.org/multierr"
)

// ErrNoProgress is returned when nothing was saved for a manga.
var ErrNoProgress = errors.New("no reading progress")

// Progress tracks reading position inside a manga
type Progress struct {
	Source      string    `json:"source"`
	MangaID     int       `json:"manga_id"`
	ChapterID   int       `json:"chapter_id"`
	Page        int       `json:"page"`                   // zero-based page in ChapterID
	LastRead    time.Time `json:"last_read"`              // timestamp of last read
	ChapterName string    `json:"chapter_name,omitempty"` // for display only
	// chapters read to the last page
	ReadChapters []int `json:"read_chapters,omitempty"`
}

// IsRead reports whether chapterID was read to the end.
func (p Progress) IsRead(chapterID int) bool {
	return slices.Contains(p.ReadChapters, chapterID)
}

// writes are read-modify-write of the whole file
var progressMu sync.Mutex

// ---------------- Paths ----------------
func progressFile() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", err
	}
	return filepath.Join(dir, "progress.json"), nil
}

// ---------------- Helper for compound keys ----------------
func makeKey(source string, mangaID int) string {
	return source + "|" + strconv.Itoa(mangaID)
}

func parseKey(key string) (source string, mangaID int, ok bool) {
	parts := strings.SplitN(key, "|", 2)
	if len(parts) != 2 || parts[0] == "" {
		return "", 0, false
	}
	id, err := strconv.Atoi(parts[1])
	if err != nil {
		return "", 0, false
	}
	return parts[0], id, true
}

// ---------------- Load progress ----------------
func Load() (map[string]Progress, error) {
	path, err := progressFile()
	if err != nil {
		return nil, err
	}
	return loadFrom(path)
}

func loadFrom(path string) (map[string]Progress, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return make(map[string]Progress), nil
	}
	if err != nil {
		return nil, err
	}

	var raw map[string]Progress
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("corrupt progress file %s: %w", path, err)
	}

	progressMap := make(map[string]Progress, len(raw))
	for k, v := range raw {
		source, id, ok := parseKey(k)
		if !ok {
			continue // skip invalid entries
		}
		v.Source, v.MangaID = source, id
		progressMap[k] = v
	}
	return progressMap, nil
}

// ---------------- Save progress ----------------
func Save(m map[string]Progress) error {
	path, err := progressFile()
	if err != nil {
		return err
	}
	return saveTo(path, m)
}

// saveTo writes through a temporary file so a crash never leaves a truncated
// progress file behind.
func saveTo(path string, m map[string]Progress) (err error) {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), "progress.*.json")
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			err = multierr.Append(err, os.Remove(tmp.Name()))
		}
	}()

	if _, err = tmp.Write(data); err != nil {
		return multierr.Append(err, tmp.Close())
	}
	if err = tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

// ---------------- Convenience ----------------

// GetProgress safely retrieves a progress entry
func GetProgress(m map[string]Progress, source string, mangaID int) (Progress, bool) {
	if source == "" {
		return Progress{}, false
	}
	p, ok := m[makeKey(source, mangaID)]
	return p, ok
}

// SetProgress safely updates a progress entry
func SetProgress(m map[string]Progress, p Progress) {
	if p.Source == "" {
		return
	}
	m[makeKey(p.Source, p.MangaID)] = p
}

// RecordPage stores the position in p, keeping the read chapters already
// saved for the manga. A record older than the saved one only adds its read
// chapters.
func RecordPage(p Progress) error {
	progressMu.Lock()
	defer progressMu.Unlock()

	progressMap, err := Load()
	if err != nil {
		return err
	}
	if p.LastRead.IsZero() {
		p.LastRead = time.Now()
	}
	if old, ok := GetProgress(progressMap, p.Source, p.MangaID); ok {
		read := mergeRead(old.ReadChapters, p.ReadChapters)
		if old.LastRead.After(p.LastRead) {
			p = old
		}
		p.ReadChapters = read
	}
	SetProgress(progressMap, p)
	return Save(progressMap)
}

func mergeRead(a, b []int) []int {
	out := append(append([]int(nil), a...), b...)
	slices.Sort(out)
	return slices.Compact(out)
}

// Lookup returns the saved progress for a manga or ErrNoProgress.
func Lookup(source string, mangaID int) (Progress, error) {
	progressMap, err := Load()
	if err != nil {
		return Progress{}, err
	}
	p, ok := GetProgress(progressMap, source, mangaID)
	if !ok {
		return Progress{}, ErrNoProgress
	}
	return p, nil
}

// DeleteProgress removes the progress entry of a manga.
func DeleteProgress(source string, mangaID int) error {
	progressMu.Lock()
	defer progressMu.Unlock()

	progressMap, err := Load()
	if err != nil {
		return err
	}

	key := makeKey(source, mangaID)
	if _, ok := progressMap[key]; !ok {
		return nil
	}
	delete(progressMap, key)

	return Save(progressMap)
}
