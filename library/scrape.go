package library

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"manga_reader/utils"
)

const (
	defaultChapterSelector = "a[href*='chapter']"
	defaultImageSelector   = "img"
)

type pageKey struct {
	manga, chapter int
}

// WebSource scrapes manga sites described in the configuration. Manga IDs are
// positions in the configuration, chapter IDs are 1-based positions in the
// chapter list of the manga page.
type WebSource struct {
	sites    []utils.WebConfig
	client   *http.Client
	attempts uint
	log      *zap.Logger

	mu       sync.Mutex
	chapters map[int][]Chapter
	pages    map[pageKey][]string
}

func NewWebSource(sites []utils.WebConfig, client *http.Client, attempts uint, log *zap.Logger) *WebSource {
	if attempts == 0 {
		attempts = 1
	}
	return &WebSource{
		sites:    sites,
		client:   client,
		attempts: attempts,
		log:      log,
		chapters: make(map[int][]Chapter),
		pages:    make(map[pageKey][]string),
	}
}

func (s *WebSource) Name() string { return SourceWeb }

func (s *WebSource) Mangas(context.Context) ([]Manga, error) {
	mangas := make([]Manga, 0, len(s.sites))
	for i, site := range s.sites {
		mangas = append(mangas, Manga{
			ID:     i,
			Title:  site.Name,
			Source: SourceWeb,
			URL:    site.URL,
		})
	}
	return mangas, nil
}

func (s *WebSource) site(mangaID int) (utils.WebConfig, error) {
	if mangaID < 0 || mangaID >= len(s.sites) {
		return utils.WebConfig{}, fmt.Errorf("web manga %d: %w", mangaID, ErrNotFound)
	}
	return s.sites[mangaID], nil
}

// Chapters scrapes the chapter links of the manga page, falling back to the
// cached list when the site is unreachable.
func (s *WebSource) Chapters(ctx context.Context, mangaID int) ([]Chapter, error) {
	site, err := s.site(mangaID)
	if err != nil {
		return nil, err
	}

	chapters, err := s.scrapeChapters(ctx, site)
	if err != nil {
		cached, cacheErr := LoadChapterList(SourceWeb, mangaID)
		if cacheErr != nil {
			return nil, err
		}
		s.log.Warn("Using cached chapter list", zap.String("site", site.Name), zap.Error(err))
		chapters = cached
	} else if err := SaveChapterList(SourceWeb, mangaID, chapters); err != nil {
		s.log.Debug("Unable to cache chapter list", zap.String("site", site.Name), zap.Error(err))
	}

	s.mu.Lock()
	s.chapters[mangaID] = chapters
	s.mu.Unlock()
	return chapters, nil
}

func (s *WebSource) scrapeChapters(ctx context.Context, site utils.WebConfig) ([]Chapter, error) {
	doc, base, err := s.fetchHTML(ctx, site.URL)
	if err != nil {
		return nil, err
	}

	selector := site.ChapterSelector
	if selector == "" {
		selector = defaultChapterSelector
	}

	var links []Chapter
	seen := make(map[string]bool)
	doc.Find(selector).Each(func(_ int, sel *goquery.Selection) {
		href, ok := sel.Attr("href")
		if !ok {
			return
		}
		link := resolve(base, href)
		if link == "" || seen[link] {
			return
		}
		seen[link] = true
		links = append(links, Chapter{
			Name: cleanChapterTitle(sel.Text()),
			URL:  link,
		})
	})
	if len(links) == 0 {
		return nil, fmt.Errorf("no chapters found on %s", site.URL)
	}

	if site.Reverse {
		for i, j := 0, len(links)-1; i < j; i, j = i+1, j-1 {
			links[i], links[j] = links[j], links[i]
		}
	}
	for i := range links {
		links[i].ID = i + 1
		links[i].Number = float64(i + 1)
		links[i].SourceOrder = len(links) - 1 - i
	}
	return links, nil
}

// PageCount scrapes the image list of a chapter. The list is kept in memory
// for Locate and cached on disk.
func (s *WebSource) PageCount(ctx context.Context, mangaID, chapterID int) (int, error) {
	key := pageKey{mangaID, chapterID}
	s.mu.Lock()
	pages, ok := s.pages[key]
	s.mu.Unlock()
	if ok {
		return len(pages), nil
	}

	if cached, err := LoadChapterPages(SourceWeb, mangaID, chapterID); err == nil {
		pages = cached
	} else {
		if pages, err = s.scrapePages(ctx, mangaID, chapterID); err != nil {
			return 0, err
		}
		if err := SaveChapterPages(SourceWeb, mangaID, chapterID, pages); err != nil {
			s.log.Debug("Unable to cache page list", zap.Int("chapter", chapterID), zap.Error(err))
		}
	}

	s.mu.Lock()
	s.pages[key] = pages
	s.mu.Unlock()
	return len(pages), nil
}

func (s *WebSource) scrapePages(ctx context.Context, mangaID, chapterID int) ([]string, error) {
	site, err := s.site(mangaID)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	chapters, ok := s.chapters[mangaID]
	s.mu.Unlock()
	if !ok {
		if chapters, err = s.Chapters(ctx, mangaID); err != nil {
			return nil, err
		}
	}
	ch, err := FindChapter(chapters, chapterID)
	if err != nil {
		return nil, err
	}

	doc, base, err := s.fetchHTML(ctx, ch.URL)
	if err != nil {
		return nil, err
	}

	selector := site.ImageSelector
	if selector == "" {
		selector = defaultImageSelector
	}

	var pages []string
	doc.Find(selector).Each(func(_ int, sel *goquery.Selection) {
		src := imageSource(sel)
		if src == "" {
			return
		}
		if link := resolve(base, src); link != "" {
			pages = append(pages, link)
		}
	})
	if len(pages) == 0 {
		return nil, fmt.Errorf("no pages found on %s", ch.URL)
	}
	return pages, nil
}

// Locate returns the scraped image URL. Pages of chapters that were never
// counted get a placeholder that the image fetcher rejects.
func (s *WebSource) Locate(mangaID, chapterID, page int) string {
	s.mu.Lock()
	pages := s.pages[pageKey{mangaID, chapterID}]
	s.mu.Unlock()
	if page < 0 || page >= len(pages) {
		return fmt.Sprintf("web://%d/%d/%d", mangaID, chapterID, page)
	}
	return pages[page]
}

func (s *WebSource) fetchHTML(ctx context.Context, pageURL string) (*goquery.Document, *url.URL, error) {
	base, err := url.Parse(pageURL)
	if err != nil {
		return nil, nil, fmt.Errorf("bad url %q: %w", pageURL, err)
	}
	res, err := fetch(ctx, s.client, pageURL, s.attempts, s.log)
	if err != nil {
		return nil, nil, err
	}
	text, err := utils.DecodeToUTF8(res.body, res.header.Get("Content-Type"))
	if err != nil {
		return nil, nil, err
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(text))
	if err != nil {
		return nil, nil, err
	}
	return doc, base, nil
}

// imageSource prefers lazy-loading attributes over src, which is often a
// placeholder on manga sites.
func imageSource(sel *goquery.Selection) string {
	for _, attr := range []string{"data-src", "data-original", "data-lazy-src", "src"} {
		if v, ok := sel.Attr(attr); ok {
			if v = strings.TrimSpace(v); v != "" && !strings.HasPrefix(v, "data:") {
				return v
			}
		}
	}
	return ""
}

func resolve(base *url.URL, ref string) string {
	ref = strings.TrimSpace(ref)
	if ref == "" || strings.HasPrefix(ref, "#") || strings.HasPrefix(ref, "javascript:") {
		return ""
	}
	u, err := url.Parse(ref)
	if err != nil {
		return ""
	}
	return base.ResolveReference(u).String()
}

func cleanChapterTitle(raw string) string {
	return strings.Join(strings.Fields(raw), " ")
}
