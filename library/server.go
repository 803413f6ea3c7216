package library

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"go.uber.org/zap"
)

// ServerSource talks to a Tachiweb style manga server.
type ServerSource struct {
	baseURL  string
	client   *http.Client
	attempts uint
	log      *zap.Logger
}

// envelope is the common shape of server responses.
type envelope struct {
	Success   bool            `json:"success"`
	Content   json.RawMessage `json:"content"`
	PageCount *int            `json:"page_count"`
	Error     string          `json:"error"`
}

func NewServerSource(baseURL string, client *http.Client, attempts uint, log *zap.Logger) *ServerSource {
	if attempts == 0 {
		attempts = 1
	}
	return &ServerSource{baseURL: baseURL, client: client, attempts: attempts, log: log}
}

func (s *ServerSource) Name() string { return SourceServer }

// Locate returns the image URL of a page.
func (s *ServerSource) Locate(mangaID, chapterID, page int) string {
	return fmt.Sprintf("%s/api/img/%d/%d/%d", s.baseURL, mangaID, chapterID, page)
}

func (s *ServerSource) Mangas(ctx context.Context) ([]Manga, error) {
	var mangas []Manga
	if err := s.getContent(ctx, "/api/library", &mangas); err != nil {
		return nil, err
	}
	for i := range mangas {
		if mangas[i].Source == "" {
			mangas[i].Source = SourceServer
		}
	}
	return mangas, nil
}

// MangaInfo returns the details of a single manga.
func (s *ServerSource) MangaInfo(ctx context.Context, mangaID int) (Manga, error) {
	var m Manga
	err := s.getContent(ctx, fmt.Sprintf("/api/manga_info/%d", mangaID), &m)
	return m, err
}

// Chapters returns the chapters in reading order. The list is cached so it
// stays available when the server is unreachable.
func (s *ServerSource) Chapters(ctx context.Context, mangaID int) ([]Chapter, error) {
	var chapters []Chapter
	err := s.getContent(ctx, fmt.Sprintf("/api/chapters/%d", mangaID), &chapters)
	if err != nil {
		cached, cacheErr := LoadChapterList(SourceServer, mangaID)
		if cacheErr != nil || errors.Is(err, ErrNotFound) {
			return nil, err
		}
		s.log.Warn("Using cached chapter list", zap.Int("manga", mangaID), zap.Error(err))
		return cached, nil
	}

	SortChapters(chapters)
	if err := SaveChapterList(SourceServer, mangaID, chapters); err != nil {
		s.log.Debug("Unable to cache chapter list", zap.Int("manga", mangaID), zap.Error(err))
	}
	return chapters, nil
}

func (s *ServerSource) PageCount(ctx context.Context, mangaID, chapterID int) (int, error) {
	env, err := s.get(ctx, fmt.Sprintf("/api/page_count/%d/%d", mangaID, chapterID))
	if err != nil {
		return 0, err
	}
	if env.PageCount == nil {
		return 0, fmt.Errorf("page count of chapter %d missing from response", chapterID)
	}
	if *env.PageCount < 0 {
		return 0, fmt.Errorf("chapter %d: invalid page count %d", chapterID, *env.PageCount)
	}
	return *env.PageCount, nil
}

func (s *ServerSource) get(ctx context.Context, path string) (envelope, error) {
	res, err := fetch(ctx, s.client, s.baseURL+path, s.attempts, s.log)
	if err != nil {
		return envelope{}, err
	}
	var env envelope
	if err := json.Unmarshal(res.body, &env); err != nil {
		return envelope{}, fmt.Errorf("decode %s: %w", path, err)
	}
	if !env.Success {
		if env.Error == "" {
			env.Error = "request failed"
		}
		return envelope{}, fmt.Errorf("%s: %s", path, env.Error)
	}
	return env, nil
}

func (s *ServerSource) getContent(ctx context.Context, path string, v any) error {
	env, err := s.get(ctx, path)
	if err != nil {
		return err
	}
	if len(env.Content) == 0 {
		return fmt.Errorf("%s: empty content", path)
	}
	if err := json.Unmarshal(env.Content, v); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}
