package library

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"manga_reader/lang"
)

type Manga struct {
	ID           int    `json:"id"`
	Title        string `json:"title"`
	Source       string `json:"source"`
	URL          string `json:"url"`
	Author       string `json:"author,omitempty"`
	Description  string `json:"description,omitempty"`
	ThumbnailURL string `json:"thumbnail_url,omitempty"`
	Genres       string `json:"genres,omitempty"`
	Status       string `json:"status,omitempty"`
	Chapters     int    `json:"chapters,omitempty"`
	Unread       int    `json:"unread,omitempty"`
	Favorite     bool   `json:"favorite"`
}

type Chapter struct {
	ID             int     `json:"id"`
	Name           string  `json:"name"`
	Number         float64 `json:"chapter_number"`
	Date           int64   `json:"date,omitempty"` // unix millis
	SourceOrder    int     `json:"source_order"`
	Read           bool    `json:"read"`
	LastPageRead   int     `json:"last_page_read"`
	DownloadStatus string  `json:"download_status,omitempty"`
	URL            string  `json:"url,omitempty"` // web source only
}

// DisplayName falls back to the chapter number when the name is empty.
func (c Chapter) DisplayName() string {
	if name := strings.TrimSpace(c.Name); name != "" {
		return name
	}
	return lang.ChapterTitle(strconv.FormatFloat(c.Number, 'f', -1, 64))
}

// StartPage is the page a chapter opens at: the last page read, or the first
// page once the chapter is marked read.
func (c Chapter) StartPage() int {
	if c.Read || c.LastPageRead < 0 {
		return 0
	}
	return c.LastPageRead
}

// SortChapters orders chapters for reading: ascending chapter number, ties
// broken by source order (sources list newest first).
func SortChapters(chapters []Chapter) {
	sort.SliceStable(chapters, func(i, j int) bool {
		if chapters[i].Number != chapters[j].Number {
			return chapters[i].Number < chapters[j].Number
		}
		return chapters[i].SourceOrder > chapters[j].SourceOrder
	})
}

// Adjacent returns the chapters before and after chapterID in reading order.
func Adjacent(chapters []Chapter, chapterID int) (prev, next *Chapter) {
	for i := range chapters {
		if chapters[i].ID != chapterID {
			continue
		}
		if i > 0 {
			prev = &chapters[i-1]
		}
		if i < len(chapters)-1 {
			next = &chapters[i+1]
		}
		return prev, next
	}
	return nil, nil
}

// FindChapter returns the chapter with the given ID.
func FindChapter(chapters []Chapter, chapterID int) (Chapter, error) {
	for _, ch := range chapters {
		if ch.ID == chapterID {
			return ch, nil
		}
	}
	return Chapter{}, fmt.Errorf("chapter %d: %w", chapterID, ErrNotFound)
}
