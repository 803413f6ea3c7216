package webtoon

import (
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Locator turns a page position into the identifier used to load it,
// usually an image URL or a file path. It must be deterministic.
type Locator interface {
	Locate(mangaID, chapterID, page int) string
}

// LocatorFunc adapts a function to Locator.
type LocatorFunc func(mangaID, chapterID, page int) string

func (f LocatorFunc) Locate(mangaID, chapterID, page int) string { return f(mangaID, chapterID, page) }

// Navigator receives the current page whenever it changes.
type Navigator interface {
	CurrentPageChanged(page int)
}

// SessionInfo describes the chapter session an Engine is tracking.
type SessionInfo struct {
	ID        string
	MangaID   int
	ChapterID int
	PageCount int
}

type session struct {
	info    SessionInfo
	visible visibleSet
	load    loadSet
	jump    jumpState

	current int
	emitted bool
}

// Engine tracks visible pages of one chapter, plans which pages to load and
// coordinates explicit jumps.
type Engine struct {
	locator   Locator
	navigator Navigator
	lookAhead int
	log       *zap.Logger

	session *session
}

// Option configures an Engine.
type Option func(*Engine)

// WithLookAhead sets how many pages past the visible ones are loaded.
// Negative values are treated as zero.
func WithLookAhead(n int) Option {
	return func(e *Engine) {
		if n < 0 {
			n = 0
		}
		e.lookAhead = n
	}
}

// WithLogger sets the logger used for debug tracing of events.
func WithLogger(log *zap.Logger) Option {
	return func(e *Engine) {
		if log != nil {
			e.log = log
		}
	}
}

// New returns an Engine without a session. Until StartSession is called every
// event is ignored. nav may be nil.
func New(loc Locator, nav Navigator, opts ...Option) *Engine {
	e := &Engine{
		locator:   loc,
		navigator: nav,
		lookAhead: DefaultLookAhead,
		log:       zap.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// StartSession replaces the current session with a fresh one for the given
// chapter. Visible pages, loaded pages, jump state and the last emitted
// current page are all discarded.
func (e *Engine) StartSession(mangaID, chapterID, pageCount int) {
	if pageCount < 0 {
		pageCount = 0
	}
	e.session = &session{
		info: SessionInfo{
			ID:        uuid.NewString(),
			MangaID:   mangaID,
			ChapterID: chapterID,
			PageCount: pageCount,
		},
		load: newLoadSet(),
	}
	e.log.Debug("Session started",
		zap.String("session", e.session.info.ID),
		zap.Int("manga", mangaID),
		zap.Int("chapter", chapterID),
		zap.Int("pages", pageCount))
}

// ResetSession restarts the current chapter from scratch. No-op without a
// session.
func (e *Engine) ResetSession() {
	if e.session == nil {
		return
	}
	info := e.session.info
	e.StartSession(info.MangaID, info.ChapterID, info.PageCount)
}

// Session returns the active session description.
func (e *Engine) Session() (SessionInfo, bool) {
	if e.session == nil {
		return SessionInfo{}, false
	}
	return e.session.info, true
}

// PageEnter records that page started intersecting the viewport.
func (e *Engine) PageEnter(page int) {
	s := e.accept("enter", page)
	if s == nil {
		return
	}
	var changed bool
	if s.visible, changed = s.visible.insert(page); changed {
		e.settle(s)
	}
}

// PageLeave records that page no longer intersects the viewport.
func (e *Engine) PageLeave(page int) {
	s := e.accept("leave", page)
	if s == nil {
		return
	}
	var changed bool
	if s.visible, changed = s.visible.remove(page); changed {
		e.settle(s)
	}
}

// JumpToPage starts a jump to target. Window growth and current page updates
// are suppressed until target is the top-most visible page or ScrollToBottom
// is called. A second jump replaces the target of the first.
func (e *Engine) JumpToPage(target int) {
	s := e.accept("jump", target)
	if s == nil {
		return
	}
	s.jump = jumpingTo(target)
	if s.jump.landed(s.visible) {
		s.jump = idle()
		e.log.Debug("Jump landed immediately", zap.String("session", s.info.ID), zap.Int("page", target))
		e.plan(s)
		e.derive(s)
		return
	}
	e.log.Debug("Jump started", zap.String("session", s.info.ID), zap.Int("page", target))
}

// ScrollToBottom signals that the end of the content is visible. Any jump in
// progress is aborted and the load window is planned from the visible pages.
func (e *Engine) ScrollToBottom() {
	s := e.session
	if s == nil {
		return
	}
	if s.jump.active {
		e.log.Debug("Jump aborted at bottom", zap.String("session", s.info.ID), zap.Int("page", s.jump.target))
	}
	s.jump = idle()
	e.plan(s)
}

// IsJumping reports whether a jump is in progress.
func (e *Engine) IsJumping() bool {
	return e.session != nil && e.session.jump.active
}

// JumpTarget returns the page of the jump in progress.
func (e *Engine) JumpTarget() (int, bool) {
	if !e.IsJumping() {
		return 0, false
	}
	return e.session.jump.target, true
}

// LoadSet returns the identifiers of pages that should be loaded, in the order
// they were first planned.
func (e *Engine) LoadSet() []string {
	if e.session == nil {
		return nil
	}
	return e.session.load.list()
}

// ShouldLoad reports whether id is in the load set.
func (e *Engine) ShouldLoad(id string) bool {
	return e.session != nil && e.session.load.has(id)
}

// VisiblePages returns a copy of the visible pages, ascending.
func (e *Engine) VisiblePages() []int {
	if e.session == nil || len(e.session.visible) == 0 {
		return nil
	}
	out := make([]int, len(e.session.visible))
	copy(out, e.session.visible)
	return out
}

// CurrentPage returns the last page reported to the navigator.
func (e *Engine) CurrentPage() (int, bool) {
	if e.session == nil || !e.session.emitted {
		return 0, false
	}
	return e.session.current, true
}

// accept returns the session if page is a valid event target for it.
func (e *Engine) accept(event string, page int) *session {
	s := e.session
	if s == nil {
		e.log.Debug("Event without session ignored", zap.String("event", event), zap.Int("page", page))
		return nil
	}
	if page < 0 || page >= s.info.PageCount {
		e.log.Debug("Out of range page ignored",
			zap.String("session", s.info.ID),
			zap.String("event", event),
			zap.Int("page", page),
			zap.Int("pages", s.info.PageCount))
		return nil
	}
	return s
}

// settle runs after every visible set mutation.
func (e *Engine) settle(s *session) {
	if s.jump.active {
		if !s.jump.landed(s.visible) {
			return
		}
		e.log.Debug("Jump landed", zap.String("session", s.info.ID), zap.Int("page", s.jump.target))
		s.jump = idle()
	}
	e.plan(s)
	e.derive(s)
}

func (e *Engine) plan(s *session) {
	before := s.load.len()
	for _, page := range planWindow(s.visible, e.lookAhead, s.info.PageCount) {
		s.load.add(e.locator.Locate(s.info.MangaID, s.info.ChapterID, page))
	}
	if added := s.load.len() - before; added > 0 {
		e.log.Debug("Load window grown", zap.String("session", s.info.ID), zap.Int("added", added), zap.Int("total", s.load.len()))
	}
}

// derive reports the bottom-most visible page to the navigator when it changed.
func (e *Engine) derive(s *session) {
	page, ok := s.visible.bottom()
	if !ok || (s.emitted && s.current == page) {
		return
	}
	s.current, s.emitted = page, true
	if e.navigator != nil {
		e.navigator.CurrentPageChanged(page)
	}
}
