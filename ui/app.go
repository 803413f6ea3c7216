package ui

import (
	"context"
	"errors"
	"fmt"
	"image"

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"manga_reader/lang"
	"manga_reader/library"
	"manga_reader/utils"
)

type AppState int

const (
	StateLibrary AppState = iota
	StateChapters
	StateReader
)

type AppModel struct {
	ctx      context.Context
	registry *library.Registry
	log      *zap.Logger

	state     AppState
	libraryUI LibraryModel
	tocUI     TOCModel
	readerUI  WebtoonModel

	source   library.Source
	manga    library.Manga
	chapters []library.Chapter
	start    *StartAt
	width    int
	height   int
}

// StartAt names a manga to open right after launch.
type StartAt struct {
	Source    string
	MangaID   int
	ChapterID int // 0 = saved or first chapter
}

// Async page fetch result, tagged with the engine session it was planned in
type pageLoadedMsg struct {
	Session string
	Page    int
	ID      string // every page located at ID shows this image
	Image   image.Image
	Cols    int
	Rows    int
	Lines   []string
	Err     error
}

// Debounce timer of the reading position fired
type progressDueMsg struct {
	Seq int
}

// Page count of a chapter is known, the reader can start a session
type chapterReadyMsg struct {
	MangaID   int
	Chapter   library.Chapter
	PageCount int
	StartPage int
	Err       error
}

func NewAppModel(ctx context.Context, registry *library.Registry, log *zap.Logger, start *StartAt) AppModel {
	return AppModel{
		ctx:       ctx,
		registry:  registry,
		log:       log,
		state:     StateLibrary,
		libraryUI: NewLibraryModel(ctx, registry, log.Named("library")),
		start:     start,
	}
}

func (m AppModel) Init() tea.Cmd {
	if m.start != nil {
		return tea.Batch(m.libraryUI.Init(), findMangaCmd(m.ctx, m.registry, *m.start))
	}
	return m.libraryUI.Init()
}

func findMangaCmd(ctx context.Context, registry *library.Registry, start StartAt) tea.Cmd {
	return func() tea.Msg {
		src, err := registry.Get(start.Source)
		if err != nil {
			return chaptersLoadedMsg{Source: start.Source, Err: err}
		}
		mangas, err := src.Mangas(ctx)
		if err != nil {
			return chaptersLoadedMsg{Source: start.Source, Err: err}
		}
		for _, manga := range mangas {
			if manga.ID == start.MangaID {
				chapters, err := src.Chapters(ctx, manga.ID)
				return chaptersLoadedMsg{Source: start.Source, Manga: manga, Chapters: chapters, Err: err}
			}
		}
		return chaptersLoadedMsg{Source: start.Source, Err: fmt.Errorf("manga %d: %w", start.MangaID, library.ErrNotFound)}
	}
}

func (m AppModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch tm := msg.(type) {
	case tea.KeyMsg:
		if tm.String() == "ctrl+c" {
			m.readerUI.FlushProgress()
			return m, tea.Quit
		}
	case tea.WindowSizeMsg:
		m.width, m.height = tm.Width, tm.Height
		var cmd tea.Cmd
		m.libraryUI, _ = m.libraryUI.Update(tm)
		m.tocUI.SetSize(tm.Width, tm.Height)
		m.readerUI, cmd = m.readerUI.Update(tm)
		return m, cmd

	// Async results go to their owner whatever is on screen
	case mangasLoadedMsg:
		var cmd tea.Cmd
		m.libraryUI, cmd = m.libraryUI.Update(tm)
		return m, cmd
	case openMangaMsg:
		return m, loadChaptersCmd(m.ctx, m.registry, tm.Source, tm.Manga)
	case chaptersLoadedMsg:
		return m.handleChaptersLoaded(tm)
	case pageLoadedMsg, chapterReadyMsg, progressDueMsg:
		var cmd tea.Cmd
		m.readerUI, cmd = m.readerUI.Update(tm)
		return m, cmd
	}

	switch m.state {
	case StateLibrary:
		var cmd tea.Cmd
		m.libraryUI, cmd = m.libraryUI.Update(msg)
		return m, cmd
	case StateChapters:
		return m.handleStateChapters(msg)
	case StateReader:
		return m.handleStateReader(msg)
	default:
		return m, nil
	}
}

func (m AppModel) handleChaptersLoaded(msg chaptersLoadedMsg) (tea.Model, tea.Cmd) {
	m.libraryUI, _ = m.libraryUI.Update(msg)
	if msg.Err != nil {
		m.log.Error("Unable to load chapters", zap.String("manga", msg.Manga.Title), zap.Error(msg.Err))
		return m, nil
	}

	src, err := m.registry.Get(msg.Source)
	if err != nil {
		m.log.Error("Unknown source", zap.Error(err))
		return m, nil
	}
	m.readerUI.FlushProgress()
	m.source = src
	m.manga = msg.Manga
	progress := m.progress()
	m.chapters = markRead(msg.Chapters, progress)
	m.readerUI = NewWebtoonModel(m.ctx, src, m.registry.Images, msg.Manga, m.chapters, m.log.Named("reader"))
	m.readerUI.Width, m.readerUI.Height = m.width, m.height

	selected := 0
	if len(m.chapters) > 0 {
		selected = m.chapters[0].ID
	}
	if progress != nil {
		selected = progress.ChapterID
	}
	m.tocUI = NewTOCModel(m.chapters, m.width-4, m.height-2, selected, progress)
	m.state = StateChapters

	if m.start != nil && m.start.Source == msg.Source && m.start.MangaID == msg.Manga.ID {
		if m.start.ChapterID > 0 {
			selected = m.start.ChapterID
		}
		m.start = nil
		if len(msg.Chapters) > 0 {
			return m.handleStateChapters(TOCSelectMsg(selected))
		}
	}
	return m, nil
}

// markRead returns chapters with the chapters finished in p marked read.
func markRead(chapters []library.Chapter, p *utils.Progress) []library.Chapter {
	if p == nil || len(p.ReadChapters) == 0 {
		return chapters
	}
	marked := make([]library.Chapter, len(chapters))
	for i, ch := range chapters {
		if p.IsRead(ch.ID) {
			ch.Read = true
		}
		marked[i] = ch
	}
	return marked
}

// progress returns the saved progress of the open manga.
func (m AppModel) progress() *utils.Progress {
	if m.source == nil {
		return nil
	}
	p, err := utils.Lookup(m.source.Name(), m.manga.ID)
	if err != nil {
		if !errors.Is(err, utils.ErrNoProgress) {
			m.log.Warn("Unable to load progress", zap.Error(err))
		}
		return nil
	}
	return &p
}

func (m AppModel) handleStateChapters(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	m.tocUI, cmd = m.tocUI.Update(msg)

	switch tm := msg.(type) {
	case TOCSelectMsg:
		ch, err := library.FindChapter(m.chapters, int(tm))
		if err != nil {
			m.log.Error("Selected chapter vanished", zap.Error(err))
			return m, cmd
		}
		m.state = StateReader
		var openCmd tea.Cmd
		m.readerUI, openCmd = m.readerUI.OpenChapter(ch)
		return m, tea.Batch(cmd, openCmd)
	case TOCCancelMsg:
		m.state = StateLibrary
		return m, tea.Batch(cmd, m.libraryUI.refreshProgress())
	}
	return m, cmd
}

func (m AppModel) handleStateReader(msg tea.Msg) (tea.Model, tea.Cmd) {
	if keyMsg, ok := msg.(tea.KeyMsg); ok && !m.readerUI.Prompting() {
		switch keyMsg.String() {
		case "esc", "t", "tab":
			m.readerUI.FlushProgress()
			m.chapters = m.readerUI.Chapters
			selected := m.readerUI.Chapter.ID
			m.tocUI = NewTOCModel(m.chapters, m.width-4, m.height-2, selected, m.progress())
			m.state = StateChapters
			return m, nil
		}
	}

	var cmd tea.Cmd
	m.readerUI, cmd = m.readerUI.Update(msg)
	return m, cmd
}

func (m AppModel) View() string {
	switch m.state {
	case StateLibrary:
		return m.libraryUI.View()
	case StateChapters:
		return m.tocUI.View()
	case StateReader:
		return m.readerUI.View()
	default:
		return lang.Active().Common.UnknownState
	}
}

// RunApp runs the UI until the user quits or ctx is cancelled.
func RunApp(ctx context.Context, registry *library.Registry, log *zap.Logger, start *StartAt) error {
	p := tea.NewProgram(NewAppModel(ctx, registry, log, start), tea.WithAltScreen(), tea.WithContext(ctx))
	final, err := p.Run()
	if m, ok := final.(AppModel); ok {
		m.readerUI.FlushProgress()
	}
	return err
}
