package ui

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	gloss "github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"
	"github.com/muesli/reflow/wordwrap"
	"go.uber.org/zap"

	"manga_reader/lang"
	"manga_reader/library"
	"manga_reader/utils"
)

// ---------------- LibraryModel ----------------
type LibraryModel struct {
	ctx       context.Context
	registry  *library.Registry
	log       *zap.Logger
	sources   []string
	lists     []list.Model
	loading   []bool
	errs      []error
	activeTab int
	spinner   spinner.Model
	opening   string // title of the manga whose chapters are loading
	openErr   error
	width     int
	height    int
}

// mangaItem is a list entry with the saved progress of the manga, if any.
type mangaItem struct {
	manga    library.Manga
	progress *utils.Progress
}

func (i mangaItem) Title() string { return i.manga.Title }

func (i mangaItem) Description() string {
	var parts []string
	if i.progress != nil && i.progress.ChapterName != "" {
		parts = append(parts, i.progress.ChapterName+" · "+lang.LastPage(i.progress.Page))
	}
	if i.manga.Chapters > 0 {
		parts = append(parts, lang.ChapterCount(i.manga.Chapters))
	}
	if i.manga.Unread > 0 {
		parts = append(parts, lang.UnreadCount(i.manga.Unread))
	}
	return strings.Join(parts, " · ")
}

func (i mangaItem) FilterValue() string { return i.manga.Title }

// ---------------- Messages ----------------
type mangasLoadedMsg struct {
	Source string
	Mangas []library.Manga
	Err    error
}

type openMangaMsg struct {
	Source string
	Manga  library.Manga
}

type chaptersLoadedMsg struct {
	Source   string
	Manga    library.Manga
	Chapters []library.Chapter
	Err      error
}

func tabName(source string) string {
	texts := lang.Active()
	switch source {
	case library.SourceServer:
		return texts.Tabs.Server
	case library.SourceWeb:
		return texts.Tabs.Web
	case library.SourceLocal:
		return texts.Tabs.Local
	}
	return source
}

func NewLibraryModel(ctx context.Context, registry *library.Registry, log *zap.Logger) LibraryModel {
	sources := registry.Names()
	lists := make([]list.Model, len(sources))
	for i := range lists {
		lists[i] = list.New(nil, &MangaDelegate{}, 0, 0)
		listSettings(&lists[i])
		filterStyle(&lists[i])
	}

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = SpinnerStyle

	loading := make([]bool, len(sources))
	for i := range loading {
		loading[i] = true
	}

	return LibraryModel{
		ctx:      ctx,
		registry: registry,
		log:      log,
		sources:  sources,
		lists:    lists,
		loading:  loading,
		errs:     make([]error, len(sources)),
		spinner:  sp,
	}
}

func (m LibraryModel) Init() tea.Cmd {
	cmds := []tea.Cmd{m.spinner.Tick}
	for _, name := range m.sources {
		cmds = append(cmds, m.loadMangasCmd(name))
	}
	return tea.Batch(cmds...)
}

func (m LibraryModel) loadMangasCmd(name string) tea.Cmd {
	ctx, registry := m.ctx, m.registry
	return func() tea.Msg {
		src, err := registry.Get(name)
		if err != nil {
			return mangasLoadedMsg{Source: name, Err: err}
		}
		mangas, err := src.Mangas(ctx)
		return mangasLoadedMsg{Source: name, Mangas: mangas, Err: err}
	}
}

// infoSource is a source that can fetch the full details of one manga.
type infoSource interface {
	MangaInfo(ctx context.Context, mangaID int) (library.Manga, error)
}

func loadChaptersCmd(ctx context.Context, registry *library.Registry, source string, manga library.Manga) tea.Cmd {
	return func() tea.Msg {
		src, err := registry.Get(source)
		if err != nil {
			return chaptersLoadedMsg{Source: source, Manga: manga, Err: err}
		}
		// library listings may leave the synopsis out
		if is, ok := src.(infoSource); ok && manga.Description == "" {
			if info, err := is.MangaInfo(ctx, manga.ID); err == nil {
				manga = mergeInfo(manga, info)
			}
		}
		chapters, err := src.Chapters(ctx, manga.ID)
		return chaptersLoadedMsg{Source: source, Manga: manga, Chapters: chapters, Err: err}
	}
}

// mergeInfo fills the empty fields of manga from info.
func mergeInfo(manga, info library.Manga) library.Manga {
	if manga.Description == "" {
		manga.Description = info.Description
	}
	if manga.Author == "" {
		manga.Author = info.Author
	}
	if manga.Status == "" {
		manga.Status = info.Status
	}
	if manga.Genres == "" {
		manga.Genres = info.Genres
	}
	return manga
}

// updateManga replaces the list entry of manga in the list of source.
func (m *LibraryModel) updateManga(source string, manga library.Manga) tea.Cmd {
	idx := m.sourceIndex(source)
	if idx < 0 {
		return nil
	}
	for i, it := range m.lists[idx].Items() {
		if mi, ok := it.(mangaItem); ok && mi.manga.ID == manga.ID {
			mi.manga = manga
			return m.lists[idx].SetItem(i, mi)
		}
	}
	return nil
}

func (m LibraryModel) sourceIndex(name string) int {
	for i, s := range m.sources {
		if s == name {
			return i
		}
	}
	return -1
}

func (m *LibraryModel) ActiveList() *list.Model {
	return &m.lists[m.activeTab]
}

func (m LibraryModel) busy() bool {
	if m.opening != "" {
		return true
	}
	for _, l := range m.loading {
		if l {
			return true
		}
	}
	return false
}

// ----- Tab navigation -----
func (m *LibraryModel) nextTab() {
	m.activeTab++
	if m.activeTab >= len(m.sources) {
		m.activeTab = 0
	}
}

func (m *LibraryModel) prevTab() {
	m.activeTab--
	if m.activeTab < 0 {
		m.activeTab = len(m.sources) - 1
	}
}

func (m *LibraryModel) resize(width, height int) {
	m.width = width
	m.height = height

	availWidth := width - 8
	if availWidth > ListMaxWidth {
		availWidth = ListMaxWidth
	}
	if availWidth < 0 {
		availWidth = ListMaxWidth
	}
	availHeight := height - 12 // tabs, status and synopsis
	if availHeight < 3 {
		availHeight = 3
	}
	for i := range m.lists {
		m.lists[i].SetSize(availWidth, availHeight)
	}
}

// setMangas fills the list of a source: mangas read before come first, most
// recent first, the rest keep the source order.
func (m *LibraryModel) setMangas(idx int, mangas []library.Manga, progress map[string]utils.Progress) tea.Cmd {
	items := make([]mangaItem, len(mangas))
	for i, manga := range mangas {
		items[i] = mangaItem{manga: manga}
		if p, ok := utils.GetProgress(progress, m.sources[idx], manga.ID); ok {
			items[i].progress = &p
		}
	}
	sortByLastRead(items)

	listItems := make([]list.Item, len(items))
	for i := range items {
		listItems[i] = items[i]
	}
	return m.lists[idx].SetItems(listItems)
}

func sortByLastRead(items []mangaItem) {
	sort.SliceStable(items, func(i, j int) bool {
		pi, pj := items[i].progress, items[j].progress
		switch {
		case pi != nil && pj != nil:
			return pi.LastRead.After(pj.LastRead)
		case pi != nil:
			return true
		default:
			return false
		}
	})
}

// refreshProgress reloads saved progress into every list, keeping the
// selection on the same manga.
func (m *LibraryModel) refreshProgress() tea.Cmd {
	progress, err := utils.Load()
	if err != nil {
		m.log.Warn("Unable to load progress", zap.Error(err))
		return nil
	}
	var cmds []tea.Cmd
	for idx := range m.lists {
		var mangas []library.Manga
		selected := -1
		if it, ok := m.lists[idx].SelectedItem().(mangaItem); ok {
			selected = it.manga.ID
		}
		for _, it := range m.lists[idx].Items() {
			if mi, ok := it.(mangaItem); ok {
				mangas = append(mangas, mi.manga)
			}
		}
		cmds = append(cmds, m.setMangas(idx, mangas, progress))
		for i, it := range m.lists[idx].Items() {
			if mi, ok := it.(mangaItem); ok && mi.manga.ID == selected {
				m.lists[idx].Select(i)
				break
			}
		}
	}
	return tea.Batch(cmds...)
}

// ---------------- Update ----------------
func (m LibraryModel) Update(msg tea.Msg) (LibraryModel, tea.Cmd) {
	switch tm := msg.(type) {
	case tea.WindowSizeMsg:
		m.resize(tm.Width, tm.Height)
		return m, nil

	case spinner.TickMsg:
		if !m.busy() {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(tm)
		return m, cmd

	case mangasLoadedMsg:
		idx := m.sourceIndex(tm.Source)
		if idx < 0 {
			return m, nil
		}
		m.loading[idx] = false
		m.errs[idx] = tm.Err
		if tm.Err != nil {
			m.log.Error("Unable to load mangas", zap.String("source", tm.Source), zap.Error(tm.Err))
			return m, nil
		}
		m.log.Info("Mangas loaded", zap.String("source", tm.Source), zap.Int("count", len(tm.Mangas)))
		progress, err := utils.Load()
		if err != nil {
			m.log.Warn("Unable to load progress", zap.Error(err))
		}
		return m, m.setMangas(idx, tm.Mangas, progress)

	case chaptersLoadedMsg:
		m.opening = ""
		m.openErr = tm.Err
		if tm.Err != nil {
			return m, nil
		}
		return m, m.updateManga(tm.Source, tm.Manga)

	case tea.KeyMsg:
		if len(m.sources) == 0 {
			return m, nil
		}
		active := m.ActiveList()
		if active.FilterState() == list.Filtering {
			break
		}
		switch tm.String() {
		case "q":
			return m, tea.Quit
		case "tab", "right", "l":
			m.nextTab()
			return m, nil
		case "shift+tab", "left", "h":
			m.prevTab()
			return m, nil
		case "L":
			next := lang.NextLocale()
			lang.SetLocale(next)
			for i := range m.lists {
				filterStyle(&m.lists[i])
			}
			m.log.Info("Language changed", zap.String("locale", string(next)))
			return m, nil
		case "x":
			item, ok := active.SelectedItem().(mangaItem)
			if !ok || item.progress == nil {
				return m, nil
			}
			if err := utils.DeleteProgress(m.sources[m.activeTab], item.manga.ID); err != nil {
				m.log.Warn("Unable to forget progress", zap.String("manga", item.manga.Title), zap.Error(err))
				m.openErr = err
				return m, nil
			}
			m.log.Info("Progress forgotten", zap.String("manga", item.manga.Title))
			return m, m.refreshProgress()
		case "r":
			m.loading[m.activeTab] = true
			m.errs[m.activeTab] = nil
			return m, tea.Batch(m.spinner.Tick, m.loadMangasCmd(m.sources[m.activeTab]))
		case "enter":
			if m.opening != "" {
				return m, nil
			}
			item, ok := active.SelectedItem().(mangaItem)
			if !ok {
				return m, nil
			}
			m.opening = item.manga.Title
			m.openErr = nil
			source := m.sources[m.activeTab]
			return m, tea.Batch(m.spinner.Tick, func() tea.Msg {
				return openMangaMsg{Source: source, Manga: item.manga}
			})
		}
	}

	if len(m.lists) == 0 {
		return m, nil
	}
	var cmd tea.Cmd
	m.lists[m.activeTab], cmd = m.lists[m.activeTab].Update(msg)
	return m, cmd
}

// ---------------- View ----------------
func (m LibraryModel) View() string {
	var renderedTabs []string
	for i, name := range m.sources {
		if i == m.activeTab {
			renderedTabs = append(renderedTabs, ActiveTabStyle.Render(tabName(name)))
		} else {
			renderedTabs = append(renderedTabs, InactiveTabStyle.Render(tabName(name)))
		}
	}
	texts := lang.Active()
	tabsRow := TabsRow.Width(m.width).Render(gloss.JoinHorizontal(gloss.Top, renderedTabs...))

	maxUnderline := texts.Layout.UnderlineLength
	if maxUnderline <= 0 {
		maxUnderline = 48
	}
	lineWidth := min(m.width, maxUnderline)
	underlineRow := UnderlineRow.Width(m.width).Render(strings.Repeat("─", max(lineWidth, 0)))

	result := tabsRow + "\n" + underlineRow
	if len(m.sources) == 0 {
		return result
	}

	switch {
	case m.opening != "":
		result += "\n" + StatusStyle.Width(m.width).Render(m.spinner.View()+" "+lang.LibraryLoadingTitle(m.opening))
	case m.openErr != nil:
		result += "\n" + StatusErrorStyle.Width(m.width).Render(lang.LibraryError(m.openErr))
	case m.loading[m.activeTab]:
		result += "\n" + StatusStyle.Width(m.width).Render(m.spinner.View()+" "+texts.Library.Loading)
		return result
	case m.errs[m.activeTab] != nil:
		result += "\n" + StatusErrorStyle.Width(m.width).Render(lang.LibraryError(m.errs[m.activeTab]))
		return result
	}

	active := m.lists[m.activeTab]
	if len(active.Items()) == 0 {
		return result + "\n" + StatusMutedStyle.Width(m.width).Render(texts.Library.Empty)
	}

	containerWidth := ListMaxWidth
	if m.width < containerWidth {
		containerWidth = m.width - 8
	}
	listBlock := ListStyle.Width(containerWidth).Render(active.View())
	result += List.Width(m.width).Render(listBlock)

	if item, ok := active.SelectedItem().(mangaItem); ok {
		result += "\n" + m.synopsis(item.manga, containerWidth)
	}
	help := runewidth.Truncate(texts.Library.Help, max(m.width-4, 0), "…")
	return result + "\n" + StatusMutedStyle.Width(m.width).Render(help)
}

// synopsis renders author, status and description of the selected manga.
func (m LibraryModel) synopsis(manga library.Manga, width int) string {
	texts := lang.Active()
	var lines []string
	if manga.Author != "" {
		lines = append(lines, fmt.Sprintf("%s: %s", texts.Library.AuthorLabel, manga.Author))
	}
	if manga.Status != "" {
		lines = append(lines, fmt.Sprintf("%s: %s", texts.Library.StatusLabel, manga.Status))
	}
	if desc := strings.TrimSpace(manga.Description); desc != "" {
		lines = append(lines, wordwrap.String(desc, max(width-4, 10)))
	}
	if len(lines) == 0 {
		return ""
	}
	block := DescriptionStyle.Width(width).Render(strings.Join(lines, "\n"))
	return List.Width(m.width).Render(block)
}

// ---------------- MangaDelegate ----------------
type MangaDelegate struct {
	list.DefaultDelegate
}

func (d *MangaDelegate) Render(w io.Writer, m list.Model, index int, item list.Item) {
	var title, desc string
	if v, ok := item.(mangaItem); ok {
		title = runewidth.Truncate(v.Title(), m.Width()-6, "…")
		desc = runewidth.Truncate(v.Description(), m.Width()-10, "…")
	}
	if index == m.Index() {
		title = SelectedTitleStyle.Render(title)
		desc = SelectedDescStyle.Render(desc)
	} else {
		title = NormalTitleStyle.Render(title)
		desc = NormalDescStyle.Render(desc)
	}
	fmt.Fprintf(w, "%s\n%s", title, desc)
}

func (d *MangaDelegate) Height() int  { return 2 }
func (d *MangaDelegate) Spacing() int { return 1 }
func (d *MangaDelegate) Update(msg tea.Msg, m *list.Model) tea.Cmd {
	return nil
}

// ---------------- List styling ----------------
func filterStyle(l *list.Model) {
	l.FilterInput.Prompt = lang.Active().Library.FilterPrompt
	l.FilterInput.PromptStyle = PromptStyle
	l.FilterInput.TextStyle = PromptTextStyle
	l.FilterInput.Cursor.Style = PromptCursorStyle
}

func listSettings(l *list.Model) {
	l.SetShowHelp(false)
	l.SetShowStatusBar(false)
	l.SetShowTitle(false)
	l.DisableQuitKeybindings()
}
