package library

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"go.uber.org/zap/zaptest"

	"manga_reader/utils"
)

func newScrapeServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/manga", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		fmt.Fprint(w, `<html><body><ul class="chapters">
			<li><a href="/manga/chapter-2">  Chapter
				2 </a></li>
			<li><a href="/manga/chapter-1">Chapter 1</a></li>
			<li><a href="/manga/chapter-1">Chapter 1 (dup)</a></li>
		</ul><a href="/about">About</a></body></html>`)
	})
	mux.HandleFunc("/manga/chapter-1", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><body><div class="reader">
			<img src="data:image/gif;base64,AAAA" data-src="/img/1-1.jpg">
			<img src="/img/1-2.jpg">
			<img data-original="https://cdn.example.com/1-3.jpg" src="">
			<img>
		</div><img src="/logo.png" class="logo"></body></html>`)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestWebSourceChapters(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	srv := newScrapeServer(t)
	s := NewWebSource([]utils.WebConfig{{Name: "Test", URL: srv.URL + "/manga", Reverse: true}}, srv.Client(), 1, zaptest.NewLogger(t))

	chapters, err := s.Chapters(context.Background(), 0)
	if err != nil {
		t.Fatalf("Chapters: %v", err)
	}
	if len(chapters) != 2 {
		t.Fatalf("got %d chapters, want 2 (duplicates removed)", len(chapters))
	}
	if chapters[0].Name != "Chapter 1" || chapters[0].ID != 1 {
		t.Errorf("first chapter %+v", chapters[0])
	}
	if chapters[1].Name != "Chapter 2" || chapters[1].ID != 2 {
		t.Errorf("second chapter %+v", chapters[1])
	}
	if !strings.HasSuffix(chapters[0].URL, "/manga/chapter-1") {
		t.Errorf("chapter url not resolved: %q", chapters[0].URL)
	}
}

func TestWebSourcePageCountAndLocate(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	srv := newScrapeServer(t)
	site := utils.WebConfig{Name: "Test", URL: srv.URL + "/manga", ImageSelector: ".reader img", Reverse: true}
	s := NewWebSource([]utils.WebConfig{site}, srv.Client(), 1, zaptest.NewLogger(t))

	n, err := s.PageCount(context.Background(), 0, 1)
	if err != nil {
		t.Fatalf("PageCount: %v", err)
	}
	if n != 3 {
		t.Fatalf("got %d pages, want 3", n)
	}

	want := []string{srv.URL + "/img/1-1.jpg", srv.URL + "/img/1-2.jpg", "https://cdn.example.com/1-3.jpg"}
	for i, w := range want {
		if got := s.Locate(0, 1, i); got != w {
			t.Errorf("Locate(%d) = %q, want %q", i, got, w)
		}
	}
	if got := s.Locate(0, 1, 3); !strings.HasPrefix(got, "web://") {
		t.Errorf("Locate past the end = %q, want placeholder", got)
	}

	// A fresh source reads the page list from the disk cache.
	srv.Close()
	fresh := NewWebSource([]utils.WebConfig{site}, http.DefaultClient, 1, zaptest.NewLogger(t))
	if n, err := fresh.PageCount(context.Background(), 0, 1); err != nil || n != 3 {
		t.Errorf("cached PageCount = %d, %v; want 3", n, err)
	}
}

func TestWebSourceUnknownManga(t *testing.T) {
	s := NewWebSource(nil, http.DefaultClient, 1, zaptest.NewLogger(t))
	if _, err := s.Chapters(context.Background(), 0); err == nil {
		t.Error("expected error for unknown manga")
	}
}

func TestCleanChapterTitle(t *testing.T) {
	if got := cleanChapterTitle("\n  Chapter \t 12:\n The  End "); got != "Chapter 12: The End" {
		t.Errorf("got %q", got)
	}
}
