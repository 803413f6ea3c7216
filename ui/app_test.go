package ui

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap/zaptest"

	"manga_reader/library"
	"manga_reader/utils"
)

func TestAppOpensChapterFromTOC(t *testing.T) {
	f := newFixture(t)
	cfg := utils.AppConfig
	cfg.Library.Paths = []string{libraryRoot(t, f)}
	reg := library.NewRegistry(cfg, zaptest.NewLogger(t))

	var model tea.Model = NewAppModel(context.Background(), reg, zaptest.NewLogger(t), nil)
	model, _ = model.Update(tea.WindowSizeMsg{Width: 40, Height: 12})
	model, _ = model.Update(chaptersLoadedMsg{Source: library.SourceLocal, Manga: f.manga, Chapters: f.chapters})

	app := model.(AppModel)
	if app.state != StateChapters {
		t.Fatalf("state %d, want chapters", app.state)
	}

	model, cmd := model.Update(TOCSelectMsg(f.chapters[0].ID))
	app = model.(AppModel)
	if app.state != StateReader || !app.readerUI.Loading {
		t.Fatalf("reader not loading after chapter selection")
	}

	for _, msg := range runCmd(cmd) {
		model, _ = model.Update(msg)
	}
	app = model.(AppModel)
	if app.readerUI.Loading {
		t.Fatal("chapter did not open")
	}
	if session, ok := app.readerUI.engine.Session(); !ok || session.PageCount != 8 {
		t.Errorf("engine session %+v", session)
	}

	model, _ = model.Update(tea.KeyMsg{Type: tea.KeyEsc})
	if model.(AppModel).state != StateChapters {
		t.Error("esc did not return to the chapter list")
	}
	if p, err := utils.Lookup(library.SourceLocal, f.manga.ID); err != nil || p.ChapterID != f.chapters[0].ID {
		t.Errorf("leaving the reader did not save progress: %+v, %v", p, err)
	}
}

func TestAppShowsReadChapters(t *testing.T) {
	f := newFixture(t)
	cfg := utils.AppConfig
	cfg.Library.Paths = []string{libraryRoot(t, f)}
	reg := library.NewRegistry(cfg, zaptest.NewLogger(t))

	err := utils.RecordPage(utils.Progress{
		Source:       library.SourceLocal,
		MangaID:      f.manga.ID,
		ChapterID:    f.chapters[1].ID,
		LastRead:     time.Now(),
		ReadChapters: []int{f.chapters[0].ID},
	})
	if err != nil {
		t.Fatal(err)
	}

	var model tea.Model = NewAppModel(context.Background(), reg, zaptest.NewLogger(t), nil)
	model, _ = model.Update(tea.WindowSizeMsg{Width: 40, Height: 12})
	model, _ = model.Update(chaptersLoadedMsg{Source: library.SourceLocal, Manga: f.manga, Chapters: f.chapters})

	app := model.(AppModel)
	if !app.chapters[0].Read || app.chapters[1].Read {
		t.Errorf("read marks %v %v, want true false", app.chapters[0].Read, app.chapters[1].Read)
	}
	if !app.readerUI.Chapters[0].Read {
		t.Error("reader does not see the read mark")
	}
	if f.chapters[0].Read {
		t.Error("loaded chapter list was modified")
	}
}

func TestAppRoutesProgressTimer(t *testing.T) {
	f := newFixture(t)
	cfg := utils.AppConfig
	cfg.Library.Paths = []string{libraryRoot(t, f)}
	reg := library.NewRegistry(cfg, zaptest.NewLogger(t))

	var model tea.Model = NewAppModel(context.Background(), reg, zaptest.NewLogger(t), nil)
	model, _ = model.Update(tea.WindowSizeMsg{Width: 40, Height: 12})
	model, _ = model.Update(chaptersLoadedMsg{Source: library.SourceLocal, Manga: f.manga, Chapters: f.chapters})
	model, cmd := model.Update(TOCSelectMsg(f.chapters[0].ID))

	var timers []tea.Msg
	queue := runCmd(cmd)
	for len(queue) > 0 {
		msg := queue[0]
		queue = queue[1:]
		if _, ok := msg.(progressDueMsg); ok {
			timers = append(timers, msg)
			continue
		}
		var next tea.Cmd
		model, next = model.Update(msg)
		queue = append(queue, runCmd(next)...)
	}
	if len(timers) == 0 {
		t.Fatal("opening a chapter started no progress timer")
	}

	// the timer fires while the library is on screen
	app := model.(AppModel)
	app.state = StateLibrary
	model = app
	for _, msg := range timers {
		var next tea.Cmd
		model, next = model.Update(msg)
		runCmd(next)
	}
	if _, err := utils.Lookup(library.SourceLocal, f.manga.ID); err != nil {
		t.Errorf("progress not saved once the timer fired: %v", err)
	}
}

// libraryRoot returns the folder holding the fixture manga.
func libraryRoot(t *testing.T, f readerFixture) string {
	t.Helper()
	mangas, err := f.src.Mangas(context.Background())
	if err != nil || len(mangas) == 0 {
		t.Fatal("fixture has no manga")
	}
	return filepath.Dir(mangas[0].URL)
}

func TestAppStartAtChapter(t *testing.T) {
	f := newFixture(t)
	cfg := utils.AppConfig
	cfg.Library.Paths = []string{libraryRoot(t, f)}
	reg := library.NewRegistry(cfg, zaptest.NewLogger(t))

	start := &StartAt{Source: library.SourceLocal, MangaID: f.manga.ID, ChapterID: f.chapters[1].ID}
	app := NewAppModel(context.Background(), reg, zaptest.NewLogger(t), start)
	var model tea.Model = app
	model, _ = model.Update(tea.WindowSizeMsg{Width: 40, Height: 12})

	model, cmd := model.Update(findMangaCmd(context.Background(), reg, *start)())
	if model.(AppModel).state != StateReader {
		t.Fatalf("state %d, want reader", model.(AppModel).state)
	}
	for _, msg := range runCmd(cmd) {
		model, _ = model.Update(msg)
	}
	reader := model.(AppModel).readerUI
	if reader.Loading || reader.Chapter.ID != f.chapters[1].ID {
		t.Errorf("reader shows chapter %d (loading %v)", reader.Chapter.ID, reader.Loading)
	}
}

func TestAppStartAtUnknownManga(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	cfg := utils.DefaultConfig()
	cfg.Library.Paths = []string{t.TempDir()}
	reg := library.NewRegistry(cfg, zaptest.NewLogger(t))

	msg := findMangaCmd(context.Background(), reg, StartAt{Source: library.SourceLocal, MangaID: 3})()
	loaded, ok := msg.(chaptersLoadedMsg)
	if !ok || !errors.Is(loaded.Err, library.ErrNotFound) {
		t.Errorf("got %+v, want ErrNotFound", msg)
	}
}
