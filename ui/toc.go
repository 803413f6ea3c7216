package ui

import (
	"strconv"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	gloss "github.com/charmbracelet/lipgloss"

	"manga_reader/lang"
	"manga_reader/library"
	"manga_reader/utils"
)

// TOCModel wraps a bubbles list to display the chapters of a manga.
type TOCModel struct {
	list       list.Model
	jumpBuffer string // accumulate number keys
	ready      bool
}

type TOCItem struct {
	title string
	desc  string
	id    int // chapter ID
}

func (i TOCItem) Title() string       { return i.title }
func (i TOCItem) Description() string { return i.desc }
func (i TOCItem) FilterValue() string { return i.title }

// Messages used to communicate selection/cancel to the parent AppModel
type TOCSelectMsg int
type TOCCancelMsg struct{}

// chapterMark describes how far a chapter was read.
func chapterMark(ch library.Chapter, progress *utils.Progress) string {
	switch {
	case ch.Read:
		return lang.Active().TOC.ReadMark
	case progress != nil && progress.ChapterID == ch.ID:
		return lang.LastPage(progress.Page)
	case ch.LastPageRead > 0:
		return lang.LastPage(ch.LastPageRead)
	}
	return ""
}

// NewTOCModel lists chapters in reading order with selectedID highlighted.
// progress may be nil.
func NewTOCModel(chapters []library.Chapter, width, height, selectedID int, progress *utils.Progress) TOCModel {
	items := make([]list.Item, len(chapters))
	selectedPos := 0
	for i, ch := range chapters {
		items[i] = TOCItem{title: ch.DisplayName(), desc: chapterMark(ch, progress), id: ch.ID}
		if ch.ID == selectedID {
			selectedPos = i
		}
	}

	delegate := list.NewDefaultDelegate()
	delegate.Styles.SelectedTitle = SelectedTitleStyle
	delegate.Styles.NormalTitle = NormalTitleStyle
	delegate.Styles.SelectedDesc = SelectedDescStyle
	delegate.Styles.NormalDesc = NormalDescStyle
	delegate.SetSpacing(0)

	l := list.New(items, delegate, width, height)
	l.SetShowHelp(false)
	l.SetShowStatusBar(true)
	l.Styles.StatusBar = gloss.NewStyle().
		Foreground(gloss.Color("#585b70")).
		PaddingBottom(1).
		PaddingLeft(2)
	l.SetShowTitle(false)
	l.SetShowPagination(true)
	l.DisableQuitKeybindings()

	applyTOCStrings(&l)

	l.FilterInput.PromptStyle = PromptStyle.PaddingTop(1)
	l.FilterInput.TextStyle = PromptTextStyle
	l.FilterInput.Cursor.Style = PromptCursorStyle

	l.Styles.Title = l.Styles.Title.Margin(0).Padding(0)
	l.Styles.FilterPrompt = l.Styles.FilterPrompt.Padding(0)
	l.Styles.FilterCursor = l.Styles.FilterCursor.Padding(0)

	if len(items) > 0 {
		l.Select(selectedPos)
	}

	return TOCModel{list: l, ready: true}
}

func applyTOCStrings(l *list.Model) {
	texts := lang.Active()
	l.Title = texts.TOC.Title
	l.SetStatusBarItemName(texts.TOC.StatusSingular, texts.TOC.StatusPlural)
	l.FilterInput.Prompt = texts.TOC.FilterPrompt
}

func (m TOCModel) Init() tea.Cmd { return nil }

// Selected returns the chapter ID under the cursor.
func (m TOCModel) Selected() (int, bool) {
	item, ok := m.list.SelectedItem().(TOCItem)
	return item.id, ok
}

func (m *TOCModel) SetSize(width, height int) {
	if !m.ready {
		return
	}
	m.list.SetSize(width-4, height-2)
}

func (m TOCModel) Update(msg tea.Msg) (TOCModel, tea.Cmd) {
	if keyMsg, ok := msg.(tea.KeyMsg); ok {
		switch keyMsg.String() {
		case "enter":
			if m.list.FilterState() == list.Filtering {
				break
			}
			if item, ok := m.list.SelectedItem().(TOCItem); ok {
				return m, func() tea.Msg { return TOCSelectMsg(item.id) }
			}
		case "esc":
			if m.list.FilterState() == list.Filtering || m.list.IsFiltered() {
				m.list.ResetFilter()
				return m, nil
			}
			return m, func() tea.Msg { return TOCCancelMsg{} }
		}

		// Digits followed by g select the n-th chapter
		if m.list.FilterState() != list.Filtering {
			switch keyMsg.String() {
			case "0", "1", "2", "3", "4", "5", "6", "7", "8", "9":
				m.jumpBuffer += keyMsg.String()
				return m, nil
			case "g", "G":
				if m.jumpBuffer != "" {
					n, err := strconv.Atoi(m.jumpBuffer)
					m.jumpBuffer = ""
					if err == nil && n >= 1 && n <= len(m.list.Items()) {
						m.list.Select(n - 1)
					}
					return m, nil
				}
			}
		}
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func (m TOCModel) View() string {
	return gloss.NewStyle().
		PaddingTop(1).
		PaddingLeft(2).
		Render(m.list.View())
}
