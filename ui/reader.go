package ui

import (
	"context"
	"image"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/mattn/go-runewidth"
	"go.uber.org/zap"

	"manga_reader/lang"
	"manga_reader/library"
	"manga_reader/utils"
	"manga_reader/webtoon"
)

// pageImage is a fetched page. lines are rendered for a cols x rows box.
type pageImage struct {
	id    string
	img   image.Image
	cols  int
	rows  int
	lines []string
	err   error
}

// Delay between the last current page change and the progress write.
var progressDelay = 400 * time.Millisecond

// progressSink receives current page changes from the engine and saves them
// as reading progress once the reader settles on a page.
type progressSink struct {
	source  string
	manga   library.Manga
	chapter library.Chapter
	pages   int
	log     *zap.Logger
	record  func(utils.Progress) error

	current  int
	known    bool
	finished bool // last page of the chapter reached

	pending *utils.Progress
	seq     int
	waiting bool
}

func (s *progressSink) CurrentPageChanged(page int) {
	s.current, s.known = page, true
	p := utils.Progress{
		Source:      s.source,
		MangaID:     s.manga.ID,
		ChapterID:   s.chapter.ID,
		Page:        page,
		LastRead:    time.Now(),
		ChapterName: s.chapter.DisplayName(),
	}
	if page == s.pages-1 {
		p.ReadChapters = []int{s.chapter.ID}
		s.finished = true
	}
	s.pending = &p
	s.seq++
}

// schedule starts the write timer unless one is running.
func (s *progressSink) schedule() tea.Cmd {
	if s.pending == nil || s.waiting {
		return nil
	}
	s.waiting = true
	return progressTick(s.seq)
}

func progressTick(seq int) tea.Cmd {
	return tea.Tick(progressDelay, func(time.Time) tea.Msg { return progressDueMsg{Seq: seq} })
}

// due handles a fired timer. The timer restarts while the page keeps
// changing; the write itself runs as a command.
func (s *progressSink) due(seq int) tea.Cmd {
	if s.pending == nil {
		s.waiting = false
		return nil
	}
	if seq != s.seq {
		return progressTick(s.seq)
	}
	s.waiting = false
	p, record, log := *s.pending, s.record, s.log
	s.pending = nil
	return func() tea.Msg {
		if err := record(p); err != nil {
			log.Warn("Unable to save progress", zap.Int("page", p.Page), zap.Error(err))
		}
		return nil
	}
}

// flush writes the pending progress right away.
func (s *progressSink) flush() {
	if s.pending == nil {
		return
	}
	p := *s.pending
	s.pending = nil
	if err := s.record(p); err != nil {
		s.log.Warn("Unable to save progress", zap.Int("page", p.Page), zap.Error(err))
	}
}

// Where a chapter opens.
const (
	startSaved = -1 // saved progress, else Chapter.StartPage
	startLast  = -2 // last page, when paging backwards into a chapter
)

// WebtoonModel shows the pages of a chapter stacked vertically and feeds
// viewport changes into a webtoon.Engine.
type WebtoonModel struct {
	ctx    context.Context
	source library.Source
	images *library.Fetcher
	engine *webtoon.Engine
	sink   *progressSink
	log    *zap.Logger

	Manga    library.Manga
	Chapters []library.Chapter
	Chapter  library.Chapter

	pageCount int
	ids       map[string][]int // pages sharing a load identifier
	requested map[string]bool
	pages     map[int]*pageImage
	paged     bool

	layout  layout
	offset  int
	visible pageRange
	bottom  bool

	jumpInput textinput.Model
	prompting bool

	Width       int
	Height      int
	Loading     bool
	LoadingText string
	status      string
}

func NewWebtoonModel(ctx context.Context, src library.Source, images *library.Fetcher, manga library.Manga, chapters []library.Chapter, log *zap.Logger) WebtoonModel {
	sink := &progressSink{
		source: src.Name(),
		manga:  manga,
		log:    log,
		record: utils.RecordPage,
	}
	engine := webtoon.New(src, sink,
		webtoon.WithLookAhead(utils.AppConfig.Reader.LookAhead),
		webtoon.WithLogger(log.Named("engine")))

	ti := textinput.New()
	ti.Prompt = lang.Active().Reader.JumpPrompt
	ti.PromptStyle = PromptStyle
	ti.TextStyle = PromptTextStyle
	ti.Cursor.Style = PromptCursorStyle
	ti.CharLimit = 6
	ti.Width = 10

	return WebtoonModel{
		ctx:       ctx,
		source:    src,
		images:    images,
		engine:    engine,
		sink:      sink,
		log:       log,
		Manga:     manga,
		Chapters:  chapters,
		ids:       make(map[string][]int),
		requested: make(map[string]bool),
		pages:     make(map[int]*pageImage),
		paged:     utils.AppConfig.Reader.Mode == utils.ModePaged,
		layout:    uniformLayout(0, 1),
		visible:   noPages,
		jumpInput: ti,
	}
}

func (m WebtoonModel) Init() tea.Cmd { return nil }

// Prompting reports whether the page number prompt has the keyboard.
func (m WebtoonModel) Prompting() bool { return m.prompting }

func (m WebtoonModel) viewHeight() int {
	return max(1, m.Height-2) // header and footer
}

// Paged reports whether pages are shown one screen at a time.
func (m WebtoonModel) Paged() bool { return m.paged }

// pageRows is the height of one page: the whole view in paged mode.
func (m WebtoonModel) pageRows() int {
	if m.paged {
		return m.viewHeight()
	}
	return utils.AppConfig.Reader.PageHeight
}

func (m WebtoonModel) imageCols() int {
	cols := m.Width - 2
	if w := utils.AppConfig.Reader.ImageWidth; w > 0 && w < cols {
		cols = w
	}
	return max(1, cols)
}

// OpenChapter shows the loading screen and fetches the page count of ch.
// The chapter opens at the saved page.
func (m WebtoonModel) OpenChapter(ch library.Chapter) (WebtoonModel, tea.Cmd) {
	return m.openAt(ch, startSaved)
}

func (m WebtoonModel) openAt(ch library.Chapter, start int) (WebtoonModel, tea.Cmd) {
	m.FlushProgress()
	m.Loading = true
	m.LoadingText = lang.ReaderLoadingTitle(ch.DisplayName())
	m.status = ""
	m.prompting = false
	return m, openChapterCmd(m.ctx, m.source, m.Manga, ch, start)
}

// FlushProgress writes the pending reading position, if any.
func (m WebtoonModel) FlushProgress() {
	if m.sink != nil {
		m.sink.flush()
	}
}

// open starts a new engine session for ch and scrolls to start.
func (m WebtoonModel) open(ch library.Chapter, pageCount, start int) (WebtoonModel, tea.Cmd) {
	if pageCount < 0 {
		m.log.Warn("Negative page count", zap.Int("chapter", ch.ID), zap.Int("pages", pageCount))
		pageCount = 0
	}
	m.Chapter = ch
	m.pageCount = pageCount
	m.Loading = false
	m.LoadingText = ""
	m.status = ""
	m.sink.chapter = ch
	m.sink.pages = pageCount
	m.sink.known = false
	m.sink.finished = false

	m.engine.StartSession(m.Manga.ID, ch.ID, pageCount)
	m.ids = make(map[string][]int, pageCount)
	m.requested = make(map[string]bool)
	m.pages = make(map[int]*pageImage)
	for i := 0; i < pageCount; i++ {
		id := m.source.Locate(m.Manga.ID, ch.ID, i)
		m.ids[id] = append(m.ids[id], i)
	}
	m.layout = uniformLayout(pageCount, m.pageRows())
	m.visible = noPages
	m.bottom = false
	m.offset = 0

	m.log.Info("Chapter opened",
		zap.String("manga", m.Manga.Title),
		zap.String("chapter", ch.DisplayName()),
		zap.Int("pages", pageCount),
		zap.Int("start", start),
		zap.Bool("paged", m.paged))

	if start > 0 && start < pageCount {
		return m.jumpTo(start)
	}
	m.scrollTo(0)
	return m, m.afterEngine()
}

// scrollTo moves the viewport and reports the pages that left and entered
// it. Leaves are delivered before enters.
func (m *WebtoonModel) scrollTo(offset int) {
	height := m.viewHeight()
	m.offset = m.layout.clamp(offset, height)

	next := m.layout.visibleRange(m.offset, height)
	left, entered := diffRanges(m.visible, next)
	m.visible = next
	for _, p := range left {
		m.engine.PageLeave(p)
	}
	for _, p := range entered {
		m.engine.PageEnter(p)
	}

	atBottom := m.layout.sentinelVisible(m.offset, height)
	if atBottom && !m.bottom {
		m.engine.ScrollToBottom()
	}
	m.bottom = atBottom
}

// jumpTo starts an engine jump and scrolls to the top of page. When the
// offset had to be clamped the end of the chapter is visible, which ends the
// jump.
func (m WebtoonModel) jumpTo(page int) (WebtoonModel, tea.Cmd) {
	m.engine.JumpToPage(page)
	m.scrollTo(m.layout.top(page))
	if m.bottom && m.engine.IsJumping() {
		m.engine.ScrollToBottom()
	}
	return m, m.afterEngine()
}

// relayout rebuilds the layout for the current page height keeping the top
// visible page in place.
func (m *WebtoonModel) relayout() {
	page := 0
	if !m.visible.empty() {
		page = m.visible.first
	}
	m.layout = uniformLayout(m.pageCount, m.pageRows())
	m.scrollTo(m.layout.top(page))
}

// afterEngine collects the work that follows engine events: page loads,
// the progress timer and the read mark of a finished chapter.
func (m *WebtoonModel) afterEngine() tea.Cmd {
	if m.sink.finished && !m.Chapter.Read {
		m.Chapter.Read = true
		chapters := make([]library.Chapter, len(m.Chapters))
		copy(chapters, m.Chapters)
		for i := range chapters {
			if chapters[i].ID == m.Chapter.ID {
				chapters[i].Read = true
			}
		}
		m.Chapters = chapters
	}
	return tea.Batch(m.syncLoads(), m.sink.schedule())
}

// syncLoads requests every planned page that was not requested yet.
func (m WebtoonModel) syncLoads() tea.Cmd {
	session, ok := m.engine.Session()
	if !ok {
		return nil
	}
	var cmds []tea.Cmd
	for _, id := range m.engine.LoadSet() {
		if m.requested[id] {
			continue
		}
		m.requested[id] = true
		page := -1
		if pages := m.ids[id]; len(pages) > 0 {
			page = pages[0]
		}
		cmds = append(cmds, loadPageCmd(m.ctx, m.images, session.ID, page, id, m.imageCols(), m.pageRows()))
	}
	return tea.Batch(cmds...)
}

// rerender renders loaded pages again when the page box changed size.
func (m WebtoonModel) rerender() tea.Cmd {
	session, ok := m.engine.Session()
	if !ok {
		return nil
	}
	cols, rows := m.imageCols(), m.pageRows()
	seen := make(map[*pageImage]bool)
	var cmds []tea.Cmd
	for page, p := range m.pages {
		if p.img == nil || seen[p] || (p.cols == cols && p.rows == rows) {
			continue
		}
		seen[p] = true
		cmds = append(cmds, renderPageCmd(session.ID, page, p.id, p.img, cols, rows))
	}
	return tea.Batch(cmds...)
}

func (m WebtoonModel) Update(msg tea.Msg) (WebtoonModel, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.Width = msg.Width
		m.Height = msg.Height
		if m.Loading || m.engine == nil {
			return m, nil
		}
		if _, ok := m.engine.Session(); !ok {
			return m, nil
		}
		if m.paged {
			m.relayout()
		} else {
			m.scrollTo(m.offset)
		}
		return m, tea.Batch(m.afterEngine(), m.rerender())

	case chapterReadyMsg:
		if msg.MangaID != m.Manga.ID {
			return m, nil
		}
		if msg.Err != nil {
			m.Loading = false
			m.status = lang.Error(msg.Err)
			m.log.Error("Unable to open chapter", zap.Int("chapter", msg.Chapter.ID), zap.Error(msg.Err))
			return m, nil
		}
		return m.open(msg.Chapter, msg.PageCount, msg.StartPage)

	case pageLoadedMsg:
		session, ok := m.engine.Session()
		if !ok || session.ID != msg.Session {
			m.log.Debug("Dropping page of a previous session", zap.Int("page", msg.Page))
			return m, nil
		}
		if msg.Err != nil {
			m.log.Warn("Unable to load page", zap.Int("page", msg.Page), zap.String("id", msg.ID), zap.Error(msg.Err))
		}
		p := &pageImage{id: msg.ID, img: msg.Image, cols: msg.Cols, rows: msg.Rows, lines: msg.Lines, err: msg.Err}
		pages := m.ids[msg.ID]
		if len(pages) == 0 && msg.Page >= 0 {
			pages = []int{msg.Page}
		}
		for _, page := range pages {
			m.pages[page] = p
		}
		if p.img != nil && (p.cols != m.imageCols() || p.rows != m.pageRows()) {
			return m, m.rerender()
		}
		return m, nil

	case progressDueMsg:
		if m.sink == nil {
			return m, nil
		}
		return m, m.sink.due(msg.Seq)

	case tea.KeyMsg:
		if m.Loading {
			return m, nil
		}
		if m.prompting {
			return m.updatePrompt(msg)
		}
		return m.handleKey(msg)
	}
	return m, nil
}

func (m WebtoonModel) handleKey(msg tea.KeyMsg) (WebtoonModel, tea.Cmd) {
	switch msg.String() {
	case "g":
		if m.pageCount == 0 {
			return m, nil
		}
		m.prompting = true
		m.status = ""
		m.jumpInput.Reset()
		m.jumpInput.Prompt = lang.Active().Reader.JumpPrompt
		m.jumpInput.Placeholder = lang.JumpPlaceholder(m.pageCount)
		return m, m.jumpInput.Focus()
	case "n":
		return m.changeChapter(1)
	case "p":
		return m.changeChapter(-1)
	case "m":
		m.paged = !m.paged
		m.status = ""
		m.relayout()
		m.log.Debug("Reading mode changed", zap.Bool("paged", m.paged))
		return m, tea.Batch(m.afterEngine(), m.rerender())
	}
	if m.paged {
		return m.handlePagedKey(msg)
	}

	step := utils.AppConfig.Reader.ScrollStep
	height := m.viewHeight()

	switch msg.String() {
	case "j", "down":
		m.scrollTo(m.offset + step)
	case "k", "up":
		m.scrollTo(m.offset - step)
	case " ", "pgdown", "f", "ctrl+f":
		m.scrollTo(m.offset + height)
	case "b", "pgup", "ctrl+b":
		m.scrollTo(m.offset - height)
	case "home":
		m.scrollTo(0)
	case "end", "G":
		m.scrollTo(m.layout.maxOffset(height))
	default:
		return m, nil
	}
	m.status = ""
	return m, m.afterEngine()
}

func (m WebtoonModel) handlePagedKey(msg tea.KeyMsg) (WebtoonModel, tea.Cmd) {
	switch msg.String() {
	case "j", "down", "l", "right", " ", "pgdown", "f", "ctrl+f":
		return m.turnPage(1)
	case "k", "up", "h", "left", "b", "pgup", "ctrl+b":
		return m.turnPage(-1)
	case "home":
		m.scrollTo(0)
	case "end", "G":
		m.scrollTo(m.layout.top(m.pageCount - 1))
	default:
		return m, nil
	}
	m.status = ""
	return m, m.afterEngine()
}

// turnPage shows the next or previous page. Past the first page it opens the
// last page of the previous chapter, past the last page the start of the
// next one.
func (m WebtoonModel) turnPage(delta int) (WebtoonModel, tea.Cmd) {
	page := 0
	if !m.visible.empty() {
		page = m.visible.first
	}
	target := page + delta
	if target >= 0 && target < m.pageCount {
		m.status = ""
		m.scrollTo(m.layout.top(target))
		return m, m.afterEngine()
	}

	prev, next := library.Adjacent(m.Chapters, m.Chapter.ID)
	texts := lang.Active()
	if delta > 0 {
		if next == nil {
			m.status = texts.Reader.NoNextChapter
			return m, nil
		}
		return m.openAt(*next, 0)
	}
	if prev == nil {
		m.status = texts.Reader.NoPrevChapter
		return m, nil
	}
	return m.openAt(*prev, startLast)
}

func (m WebtoonModel) updatePrompt(msg tea.KeyMsg) (WebtoonModel, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.prompting = false
		m.jumpInput.Blur()
		return m, nil
	case "enter":
		m.prompting = false
		m.jumpInput.Blur()
		input := strings.TrimSpace(m.jumpInput.Value())
		n, err := strconv.Atoi(input)
		if err != nil || n < 1 || n > m.pageCount {
			m.status = lang.InvalidPage(input, m.pageCount)
			return m, nil
		}
		return m.jumpTo(n - 1)
	}

	var cmd tea.Cmd
	m.jumpInput, cmd = m.jumpInput.Update(msg)
	return m, cmd
}

func (m WebtoonModel) changeChapter(delta int) (WebtoonModel, tea.Cmd) {
	prev, next := library.Adjacent(m.Chapters, m.Chapter.ID)
	texts := lang.Active()
	if delta > 0 {
		if next == nil {
			m.status = texts.Reader.NoNextChapter
			return m, nil
		}
		return m.OpenChapter(*next)
	}
	if prev == nil {
		m.status = texts.Reader.NoPrevChapter
		return m, nil
	}
	return m.OpenChapter(*prev)
}

func (m WebtoonModel) View() string {
	if m.Loading {
		text := m.LoadingText
		if strings.TrimSpace(text) == "" {
			text = lang.Active().Reader.LoadingDefault
		}
		return ReaderLoadingStyle.Width(m.Width).Render(text)
	}
	return m.headerView() + "\n" + m.bodyView() + "\n" + m.footerView()
}

func (m WebtoonModel) headerView() string {
	title := m.Manga.Title
	if name := m.Chapter.DisplayName(); name != "" {
		title += " · " + name
	}
	counter := ""
	if m.sink.known {
		counter = lang.PageCounter(m.sink.current, m.pageCount)
	}
	room := m.Width - runewidth.StringWidth(counter) - 4
	title = runewidth.Truncate(title, max(room, 0), "…")
	gap := max(1, m.Width-runewidth.StringWidth(title)-runewidth.StringWidth(counter)-2)
	return ReaderHeaderStyle.Width(m.Width).Render(title + strings.Repeat(" ", gap) + counter)
}

func (m WebtoonModel) bodyView() string {
	height := m.viewHeight()
	rows := m.pageRows()
	cols := m.imageCols()
	texts := lang.Active()

	lines := make([]string, height)
	for r := range lines {
		row := m.offset + r
		page, ok := m.layout.pageAt(row)
		if !ok {
			if row == m.layout.sentinelRow() {
				text := texts.Reader.EndOfChapter
				if m.pageCount == 0 {
					text = texts.Reader.EmptyChapter
				}
				lines[r] = PageHintStyle.Width(m.Width).Render(text)
			}
			continue
		}

		within := row - m.layout.top(page)
		p := m.pages[page]
		switch {
		case p == nil:
			if within == rows/2 {
				lines[r] = PageHintStyle.Width(m.Width).Render(lang.PageLoading(page))
			}
		case p.err != nil:
			if within == rows/2 {
				lines[r] = PageErrorStyle.Width(m.Width).Render(lang.PageFailed(page, p.err))
			}
		case p.cols != cols || p.rows != rows:
			// waiting for the render at the new size
			if within == rows/2 {
				lines[r] = PageHintStyle.Width(m.Width).Render(lang.PageLoading(page))
			}
		default:
			if within < len(p.lines) {
				lines[r] = " " + p.lines[within]
			}
		}
	}
	return strings.Join(lines, "\n")
}

func (m WebtoonModel) footerView() string {
	if m.prompting {
		return FooterStyle.Render(m.jumpInput.View())
	}
	return FooterStyle.Render(runewidth.Truncate(m.footerText(), max(m.Width-2, 0), "…"))
}

func (m WebtoonModel) footerText() string {
	switch {
	case m.status != "":
		return m.status
	case m.engine.IsJumping():
		target, _ := m.engine.JumpTarget()
		return lang.Jumping(target)
	case m.paged:
		return lang.Active().Reader.PagedHelp
	default:
		return lang.Active().Reader.Help
	}
}

func loadPageCmd(ctx context.Context, images *library.Fetcher, session string, page int, id string, cols, rows int) tea.Cmd {
	return func() tea.Msg {
		data, err := images.Fetch(ctx, id)
		if err != nil {
			return pageLoadedMsg{Session: session, Page: page, ID: id, Err: err}
		}
		img, err := decodeImage(data)
		if err != nil {
			return pageLoadedMsg{Session: session, Page: page, ID: id, Err: err}
		}
		return pageLoadedMsg{
			Session: session,
			Page:    page,
			ID:      id,
			Image:   img,
			Cols:    cols,
			Rows:    rows,
			Lines:   renderHalfBlocks(img, cols, rows),
		}
	}
}

func renderPageCmd(session string, page int, id string, img image.Image, cols, rows int) tea.Cmd {
	return func() tea.Msg {
		return pageLoadedMsg{
			Session: session,
			Page:    page,
			ID:      id,
			Image:   img,
			Cols:    cols,
			Rows:    rows,
			Lines:   renderHalfBlocks(img, cols, rows),
		}
	}
}

// openChapterCmd fetches the page count of ch and resolves the start page:
// startSaved, startLast or a page index.
func openChapterCmd(ctx context.Context, src library.Source, manga library.Manga, ch library.Chapter, start int) tea.Cmd {
	return func() tea.Msg {
		n, err := src.PageCount(ctx, manga.ID, ch.ID)
		if err != nil {
			return chapterReadyMsg{MangaID: manga.ID, Chapter: ch, Err: err}
		}
		switch start {
		case startLast:
			start = max(n-1, 0)
		case startSaved:
			start = ch.StartPage()
			if p, err := utils.Lookup(src.Name(), manga.ID); err == nil && p.ChapterID == ch.ID {
				start = p.Page
			}
		}
		return chapterReadyMsg{MangaID: manga.ID, Chapter: ch, PageCount: n, StartPage: start}
	}
}
