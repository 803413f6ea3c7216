package lang

import (
	"fmt"
	"strings"
	"sync"
)

type Locale string

const (
	LocaleEnglish Locale = "en"
	LocaleChinese Locale = "zh"
)

type TabsStrings struct {
	Server string
	Web    string
	Local  string
}

type LibraryStrings struct {
	Loading              string
	Empty                string
	FilterPrompt         string
	ErrorTemplate        string
	LoadingTitleTemplate string
	ChaptersTemplate     string
	UnreadTemplate       string
	AuthorLabel          string
	StatusLabel          string
	Help                 string
}

type ReaderStrings struct {
	LoadingDefault       string
	LoadingTitleTemplate string
	ChapterTemplate      string
	PageTemplate         string
	JumpPrompt           string
	JumpPlaceholder      string
	JumpingTemplate      string
	InvalidPageTemplate  string
	PageLoadingTemplate  string
	PageFailedTemplate   string
	EmptyChapter         string
	EndOfChapter         string
	NoNextChapter        string
	NoPrevChapter        string
	Help                 string
	PagedHelp            string
}

type TOCStrings struct {
	Title            string
	StatusSingular   string
	StatusPlural     string
	FilterPrompt     string
	ReadMark         string
	LastPageTemplate string
}

type CommonStrings struct {
	UnknownState  string
	ErrorTemplate string
}

type LayoutStrings struct {
	UnderlineLength int
}

type Strings struct {
	Tabs    TabsStrings
	Library LibraryStrings
	Reader  ReaderStrings
	TOC     TOCStrings
	Common  CommonStrings
	Layout  LayoutStrings
}

var (
	mu sync.RWMutex

	translations = map[Locale]*Strings{
		LocaleChinese: {
			Tabs: TabsStrings{
				Server: "服务器",
				Web:    "网站",
				Local:  "本地",
			},
			Library: LibraryStrings{
				Loading:              "正在加载书架…",
				Empty:                "这里还没有漫画",
				FilterPrompt:         "搜索：",
				ErrorTemplate:        "加载失败: %v",
				LoadingTitleTemplate: "正在加载「%s」的章节…",
				ChaptersTemplate:     "%d 章",
				UnreadTemplate:       "%d 章未读",
				AuthorLabel:          "作者",
				StatusLabel:          "状态",
				Help:                 "回车 打开 · / 搜索 · tab 切换来源 · r 刷新 · x 清除进度 · L 切换语言 · q 退出",
			},
			Reader: ReaderStrings{
				LoadingDefault:       "章节加载中…",
				LoadingTitleTemplate: "正在加载「%s」…",
				ChapterTemplate:      "第%s话",
				PageTemplate:         "%d / %d 页",
				JumpPrompt:           "跳转到：",
				JumpPlaceholder:      "1-%d",
				JumpingTemplate:      "正在跳转到第 %d 页…",
				InvalidPageTemplate:  "没有第 %s 页（共 %d 页）",
				PageLoadingTemplate:  "第 %d 页加载中…",
				PageFailedTemplate:   "第 %d 页加载失败: %v",
				EmptyChapter:         "本章没有图片",
				EndOfChapter:         "— 本章完 —",
				NoNextChapter:        "已经是最后一章",
				NoPrevChapter:        "已经是第一章",
				Help:                 "j/k 滚动 · 空格/b 翻页 · g 跳页 · n/p 切换章节 · m 单页模式 · t 目录 · esc 返回",
				PagedHelp:            "j/k 或 ←/→ 翻页 · g 跳页 · n/p 切换章节 · m 条漫模式 · t 目录 · esc 返回",
			},
			TOC: TOCStrings{
				Title:            "目录",
				StatusSingular:   "话",
				StatusPlural:     "话",
				FilterPrompt:     "搜索：",
				ReadMark:         "已读",
				LastPageTemplate: "读到第 %d 页",
			},
			Common: CommonStrings{
				UnknownState:  "未知状态",
				ErrorTemplate: "错误: %v",
			},
			Layout: LayoutStrings{
				UnderlineLength: 48,
			},
		},
		LocaleEnglish: {
			Tabs: TabsStrings{
				Server: "Server",
				Web:    "Web",
				Local:  "Local",
			},
			Library: LibraryStrings{
				Loading:              "Loading library…",
				Empty:                "No manga here yet",
				FilterPrompt:         "Search: ",
				ErrorTemplate:        "Failed to load: %v",
				LoadingTitleTemplate: "Loading chapters of \"%s\"…",
				ChaptersTemplate:     "%d chapters",
				UnreadTemplate:       "%d unread",
				AuthorLabel:          "Author",
				StatusLabel:          "Status",
				Help:                 "enter open · / filter · tab source · r reload · x forget progress · L language · q quit",
			},
			Reader: ReaderStrings{
				LoadingDefault:       "Loading chapter…",
				LoadingTitleTemplate: "Loading %s…",
				ChapterTemplate:      "Chapter %s",
				PageTemplate:         "Page %d / %d",
				JumpPrompt:           "Go to page: ",
				JumpPlaceholder:      "1-%d",
				JumpingTemplate:      "Jumping to page %d…",
				InvalidPageTemplate:  "No page %q (1-%d)",
				PageLoadingTemplate:  "Loading page %d…",
				PageFailedTemplate:   "Page %d failed: %v",
				EmptyChapter:         "This chapter has no pages",
				EndOfChapter:         "— end of chapter —",
				NoNextChapter:        "This is the last chapter",
				NoPrevChapter:        "This is the first chapter",
				Help:                 "j/k scroll · space/b page · g go to page · n/p chapter · m paged · t contents · esc back",
				PagedHelp:            "j/k or ←/→ turn page · g go to page · n/p chapter · m webtoon · t contents · esc back",
			},
			TOC: TOCStrings{
				Title:            "Chapters",
				StatusSingular:   "chapter",
				StatusPlural:     "chapters",
				FilterPrompt:     "Search:",
				ReadMark:         "read",
				LastPageTemplate: "at page %d",
			},
			Common: CommonStrings{
				UnknownState:  "Unknown state",
				ErrorTemplate: "Error: %v",
			},
			Layout: LayoutStrings{
				UnderlineLength: 60,
			},
		},
	}

	availableLocales = []Locale{
		LocaleEnglish,
		LocaleChinese,
	}

	currentLocale = LocaleEnglish
	current       = translations[currentLocale]
)

func AvailableLocales() []Locale {
	mu.RLock()
	defer mu.RUnlock()
	out := make([]Locale, len(availableLocales))
	copy(out, availableLocales)
	return out
}

func SetLocale(loc Locale) bool {
	mu.Lock()
	defer mu.Unlock()
	texts, ok := translations[loc]
	if !ok {
		return false
	}
	currentLocale = loc
	current = texts
	return true
}

// NextLocale returns the locale after the active one, wrapping around.
func NextLocale() Locale {
	locales := AvailableLocales()
	cur := CurrentLocale()
	for i, loc := range locales {
		if loc == cur {
			return locales[(i+1)%len(locales)]
		}
	}
	return locales[0]
}

// ParseLocale maps a config value such as "zh-CN" or "EN" to a known locale.
func ParseLocale(s string) (Locale, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	if i := strings.IndexAny(s, "-_"); i > 0 {
		s = s[:i]
	}
	mu.RLock()
	defer mu.RUnlock()
	if _, ok := translations[Locale(s)]; ok {
		return Locale(s), true
	}
	return "", false
}

func CurrentLocale() Locale {
	mu.RLock()
	defer mu.RUnlock()
	return currentLocale
}

func Active() *Strings {
	mu.RLock()
	defer mu.RUnlock()
	return current
}

func ChapterTitle(number string) string {
	s := Active()
	return fmt.Sprintf(s.Reader.ChapterTemplate, number)
}

func ReaderLoadingTitle(title string) string {
	s := Active()
	return fmt.Sprintf(s.Reader.LoadingTitleTemplate, title)
}

// PageCounter formats a zero-based page as "Page n / total".
func PageCounter(page, total int) string {
	s := Active()
	return fmt.Sprintf(s.Reader.PageTemplate, page+1, total)
}

func JumpPlaceholder(total int) string {
	s := Active()
	return fmt.Sprintf(s.Reader.JumpPlaceholder, total)
}

func Jumping(page int) string {
	s := Active()
	return fmt.Sprintf(s.Reader.JumpingTemplate, page+1)
}

func InvalidPage(input string, total int) string {
	s := Active()
	return fmt.Sprintf(s.Reader.InvalidPageTemplate, input, total)
}

func PageLoading(page int) string {
	s := Active()
	return fmt.Sprintf(s.Reader.PageLoadingTemplate, page+1)
}

func PageFailed(page int, err error) string {
	s := Active()
	return fmt.Sprintf(s.Reader.PageFailedTemplate, page+1, err)
}

func LibraryError(err error) string {
	s := Active()
	return fmt.Sprintf(s.Library.ErrorTemplate, err)
}

func LibraryLoadingTitle(title string) string {
	s := Active()
	return fmt.Sprintf(s.Library.LoadingTitleTemplate, title)
}

func ChapterCount(n int) string {
	s := Active()
	return fmt.Sprintf(s.Library.ChaptersTemplate, n)
}

func UnreadCount(n int) string {
	s := Active()
	return fmt.Sprintf(s.Library.UnreadTemplate, n)
}

func LastPage(page int) string {
	s := Active()
	return fmt.Sprintf(s.TOC.LastPageTemplate, page+1)
}

func Error(err error) string {
	s := Active()
	return fmt.Sprintf(s.Common.ErrorTemplate, err)
}
