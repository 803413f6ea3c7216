package webtoon

import (
	"fmt"
	"math/rand"
	"slices"
	"testing"

	"go.uber.org/zap/zaptest"
)

type recorder struct {
	pages []int
}

func (r *recorder) CurrentPageChanged(page int) { r.pages = append(r.pages, page) }

func testLocator(mangaID, chapterID, page int) string {
	return fmt.Sprintf("%d/%d/%d", mangaID, chapterID, page)
}

func newTestEngine(t *testing.T, pageCount int) (*Engine, *recorder) {
	t.Helper()
	rec := &recorder{}
	e := New(LocatorFunc(testLocator), rec, WithLookAhead(3), WithLogger(zaptest.NewLogger(t)))
	e.StartSession(1, 2, pageCount)
	return e, rec
}

func ids(pages ...int) []string {
	out := make([]string, 0, len(pages))
	for _, p := range pages {
		out = append(out, testLocator(1, 2, p))
	}
	return out
}

func sameMembers(a, b []string) bool {
	a, b = slices.Clone(a), slices.Clone(b)
	slices.Sort(a)
	slices.Sort(b)
	return slices.Equal(a, b)
}

func TestScenarioScrollThrough(t *testing.T) {
	e, rec := newTestEngine(t, 10)

	e.PageEnter(0)
	if got, want := e.LoadSet(), ids(0, 1, 2, 3); !sameMembers(got, want) {
		t.Fatalf("after enter(0): load set %v, want %v", got, want)
	}

	e.PageEnter(1)
	if got := e.VisiblePages(); !slices.Equal(got, []int{0, 1}) {
		t.Fatalf("visible %v, want [0 1]", got)
	}
	if got, want := e.LoadSet(), ids(0, 1, 2, 3, 4); !sameMembers(got, want) {
		t.Fatalf("after enter(1): load set %v, want %v", got, want)
	}

	e.PageLeave(0)
	if got := e.VisiblePages(); !slices.Equal(got, []int{1}) {
		t.Fatalf("visible %v, want [1]", got)
	}
	if got, want := e.LoadSet(), ids(0, 1, 2, 3, 4); !sameMembers(got, want) {
		t.Fatalf("after leave(0): load set %v, want %v", got, want)
	}

	if !slices.Equal(rec.pages, []int{0, 1}) {
		t.Fatalf("navigation events %v, want [0 1]", rec.pages)
	}
}

func TestScenarioJumpPastIntermediatePage(t *testing.T) {
	e, rec := newTestEngine(t, 10)

	e.JumpToPage(8)
	if !e.IsJumping() {
		t.Fatal("expected jump in progress")
	}

	e.PageEnter(1)
	if len(e.LoadSet()) != 0 {
		t.Fatalf("suppressed enter grew load set: %v", e.LoadSet())
	}
	if len(rec.pages) != 0 {
		t.Fatalf("suppressed enter emitted navigation: %v", rec.pages)
	}

	e.PageEnter(8)
	if got := e.VisiblePages(); !slices.Equal(got, []int{1, 8}) {
		t.Fatalf("visible %v, want [1 8]", got)
	}
	if !e.IsJumping() {
		t.Fatal("jump must not land while page 1 is on top")
	}
	if len(e.LoadSet()) != 0 || len(rec.pages) != 0 {
		t.Fatal("jump still in progress but side effects observed")
	}

	e.PageLeave(1)
	if e.IsJumping() {
		t.Fatal("jump should land once page 8 is on top")
	}
	if got, want := e.LoadSet(), ids(8, 9); !sameMembers(got, want) {
		t.Fatalf("load set %v, want %v", got, want)
	}
	if !slices.Equal(rec.pages, []int{8}) {
		t.Fatalf("navigation events %v, want [8]", rec.pages)
	}
}

func TestJumpLandsExactlyOnTarget(t *testing.T) {
	e, _ := newTestEngine(t, 10)

	e.JumpToPage(5)
	e.PageEnter(3)
	if !e.IsJumping() {
		t.Fatal("jump landed on the wrong page")
	}
	e.PageLeave(3)
	e.PageEnter(5)
	if e.IsJumping() {
		t.Fatal("jump should have landed on page 5")
	}
	if target, ok := e.JumpTarget(); ok {
		t.Fatalf("unexpected jump target %d after landing", target)
	}
}

func TestJumpSuppressesEnter(t *testing.T) {
	e, rec := newTestEngine(t, 10)
	e.PageEnter(0)
	before := e.LoadSet()
	emitted := len(rec.pages)

	e.JumpToPage(5)
	e.PageEnter(2)

	if got := e.LoadSet(); !slices.Equal(got, before) {
		t.Fatalf("load set changed during jump: %v -> %v", before, got)
	}
	if len(rec.pages) != emitted {
		t.Fatalf("navigation emitted during jump: %v", rec.pages)
	}
	if got := e.VisiblePages(); !slices.Equal(got, []int{0, 2}) {
		t.Fatalf("visible set must still track pages during a jump, got %v", got)
	}
}

func TestScrollToBottomAbortsJump(t *testing.T) {
	tests := []struct {
		name    string
		target  int
		visible []int
	}{
		{name: "empty viewport", target: 9},
		{name: "target not on top", target: 9, visible: []int{6, 7}},
		{name: "target visible below top", target: 7, visible: []int{6, 7, 8}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, _ := newTestEngine(t, 10)
			e.JumpToPage(tt.target)
			for _, p := range tt.visible {
				e.PageEnter(p)
			}
			e.ScrollToBottom()
			if e.IsJumping() {
				t.Fatal("jump must be aborted by bottom signal")
			}
			if len(tt.visible) == 0 && len(e.LoadSet()) != 0 {
				t.Fatalf("empty viewport must not plan, got %v", e.LoadSet())
			}
			if len(tt.visible) > 0 {
				want := ids(planWindow(tt.visible, 3, 10)...)
				if got := e.LoadSet(); !sameMembers(got, want) {
					t.Fatalf("load set %v, want %v", got, want)
				}
			}
		})
	}
}

func TestScrollToBottomDoesNotShrink(t *testing.T) {
	e, _ := newTestEngine(t, 10)
	e.PageEnter(0)
	e.PageEnter(1)
	e.PageLeave(0)
	e.PageLeave(1)
	before := e.LoadSet()
	e.ScrollToBottom()
	if got := e.LoadSet(); !slices.Equal(got, before) {
		t.Fatalf("bottom signal with empty viewport changed load set: %v -> %v", before, got)
	}
}

func TestJumpToTopPageLandsImmediately(t *testing.T) {
	e, rec := newTestEngine(t, 10)
	e.PageEnter(4)
	e.PageEnter(5)
	e.JumpToPage(4)
	if e.IsJumping() {
		t.Fatal("jump to the top-most page should land immediately")
	}
	if got, want := e.LoadSet(), ids(4, 5, 6, 7, 8); !sameMembers(got, want) {
		t.Fatalf("load set %v, want %v", got, want)
	}
	if !slices.Equal(rec.pages, []int{4, 5}) {
		t.Fatalf("navigation events %v, want [4 5]", rec.pages)
	}
}

func TestSecondJumpReplacesTarget(t *testing.T) {
	e, _ := newTestEngine(t, 10)
	e.JumpToPage(8)
	e.JumpToPage(3)
	if target, ok := e.JumpTarget(); !ok || target != 3 {
		t.Fatalf("jump target = %d, %v; want 3", target, ok)
	}
	e.PageEnter(8)
	if !e.IsJumping() {
		t.Fatal("old target must not land the replaced jump")
	}
	e.PageEnter(3)
	if e.IsJumping() {
		t.Fatal("new target should land the jump")
	}
}

func TestIdempotentEnter(t *testing.T) {
	once, onceRec := newTestEngine(t, 10)
	twice, twiceRec := newTestEngine(t, 10)

	once.PageEnter(2)
	twice.PageEnter(2)
	twice.PageEnter(2)

	if !slices.Equal(once.VisiblePages(), twice.VisiblePages()) {
		t.Fatalf("visible differs: %v vs %v", once.VisiblePages(), twice.VisiblePages())
	}
	if !slices.Equal(once.LoadSet(), twice.LoadSet()) {
		t.Fatalf("load set differs: %v vs %v", once.LoadSet(), twice.LoadSet())
	}
	if !slices.Equal(onceRec.pages, twiceRec.pages) {
		t.Fatalf("navigation differs: %v vs %v", onceRec.pages, twiceRec.pages)
	}
}

func TestLeaveUnknownPageIsNoop(t *testing.T) {
	e, rec := newTestEngine(t, 10)
	e.PageEnter(1)
	e.PageLeave(4)
	if got := e.VisiblePages(); !slices.Equal(got, []int{1}) {
		t.Fatalf("visible %v, want [1]", got)
	}
	if !slices.Equal(rec.pages, []int{1}) {
		t.Fatalf("navigation events %v, want [1]", rec.pages)
	}
}

func TestOutOfRangePagesIgnored(t *testing.T) {
	e, rec := newTestEngine(t, 5)
	for _, p := range []int{-1, 5, 100} {
		e.PageEnter(p)
		e.PageLeave(p)
		e.JumpToPage(p)
	}
	if len(e.VisiblePages()) != 0 || len(e.LoadSet()) != 0 {
		t.Fatalf("state mutated by out of range pages: visible %v load %v", e.VisiblePages(), e.LoadSet())
	}
	if e.IsJumping() {
		t.Fatal("out of range jump must be ignored")
	}
	if len(rec.pages) != 0 {
		t.Fatalf("navigation emitted: %v", rec.pages)
	}
}

func TestEventsWithoutSession(t *testing.T) {
	rec := &recorder{}
	e := New(LocatorFunc(testLocator), rec)
	e.PageEnter(0)
	e.PageLeave(0)
	e.JumpToPage(0)
	e.ScrollToBottom()
	e.ResetSession()

	if e.IsJumping() || e.LoadSet() != nil || e.VisiblePages() != nil {
		t.Fatal("engine without session must stay empty")
	}
	if _, ok := e.Session(); ok {
		t.Fatal("unexpected session")
	}
	if _, ok := e.CurrentPage(); ok {
		t.Fatal("unexpected current page")
	}
	if len(rec.pages) != 0 {
		t.Fatalf("navigation emitted: %v", rec.pages)
	}
}

func TestNavigationNotRepeated(t *testing.T) {
	e, rec := newTestEngine(t, 10)
	e.PageEnter(2)
	e.PageEnter(1) // bottom-most still 2
	e.PageLeave(1)
	e.PageLeave(2) // empty: nothing emitted
	e.PageEnter(2) // same as last emitted
	e.PageEnter(3)

	if !slices.Equal(rec.pages, []int{2, 3}) {
		t.Fatalf("navigation events %v, want [2 3]", rec.pages)
	}
	if page, ok := e.CurrentPage(); !ok || page != 3 {
		t.Fatalf("current page = %d, %v; want 3", page, ok)
	}
}

func TestStartSessionReplacesEverything(t *testing.T) {
	e, rec := newTestEngine(t, 10)
	e.PageEnter(0)
	e.JumpToPage(7)
	first, _ := e.Session()

	e.StartSession(1, 3, 4)
	second, ok := e.Session()
	if !ok || second.ID == first.ID || second.ChapterID != 3 || second.PageCount != 4 {
		t.Fatalf("unexpected session after restart: %+v (was %+v)", second, first)
	}
	if e.IsJumping() || len(e.LoadSet()) != 0 || e.VisiblePages() != nil {
		t.Fatal("session state leaked across chapters")
	}

	// stale event from the previous chapter
	e.PageEnter(7)
	if e.VisiblePages() != nil {
		t.Fatalf("stale page accepted: %v", e.VisiblePages())
	}

	// the last emitted page is forgotten: page 0 is reported again
	e.PageEnter(0)
	if !slices.Equal(rec.pages, []int{0, 0}) {
		t.Fatalf("navigation events %v, want [0 0]", rec.pages)
	}
	if got := e.LoadSet(); !slices.Equal(got, []string{"1/3/0", "1/3/1", "1/3/2", "1/3/3"}) {
		t.Fatalf("load set %v", got)
	}
}

func TestResetSessionKeepsChapter(t *testing.T) {
	e, _ := newTestEngine(t, 10)
	e.PageEnter(3)
	before, _ := e.Session()

	e.ResetSession()
	after, _ := e.Session()
	if after.ID == before.ID {
		t.Fatal("reset must start a new session")
	}
	if after.MangaID != before.MangaID || after.ChapterID != before.ChapterID || after.PageCount != before.PageCount {
		t.Fatalf("reset changed chapter: %+v -> %+v", before, after)
	}
	if len(e.LoadSet()) != 0 || e.VisiblePages() != nil {
		t.Fatal("reset must clear state")
	}
}

func TestLoadSetInsertionOrder(t *testing.T) {
	e, _ := newTestEngine(t, 20)
	e.PageEnter(10)
	e.PageEnter(2)
	// entering 2 plans 3+2 pages starting at 2
	want := append(ids(10, 11, 12, 13), ids(2, 3, 4, 5, 6)...)
	if got := e.LoadSet(); !slices.Equal(got, want) {
		t.Fatalf("load set %v, want %v", got, want)
	}
	if !e.ShouldLoad(testLocator(1, 2, 12)) || e.ShouldLoad(testLocator(1, 2, 14)) {
		t.Fatal("ShouldLoad disagrees with LoadSet")
	}
}

func TestRandomEventsKeepInvariants(t *testing.T) {
	const pageCount = 12
	rng := rand.New(rand.NewSource(42))
	e, rec := newTestEngine(t, pageCount)

	prevLoad := map[string]bool{}
	for i := 0; i < 2000; i++ {
		page := rng.Intn(pageCount+4) - 2
		switch rng.Intn(5) {
		case 0, 1:
			e.PageEnter(page)
		case 2:
			e.PageLeave(page)
		case 3:
			e.JumpToPage(page)
		case 4:
			e.ScrollToBottom()
		}

		visible := e.VisiblePages()
		for j := 1; j < len(visible); j++ {
			if visible[j-1] >= visible[j] {
				t.Fatalf("step %d: visible set not strictly ascending: %v", i, visible)
			}
		}
		for _, p := range visible {
			if p < 0 || p >= pageCount {
				t.Fatalf("step %d: out of range page %d visible", i, p)
			}
		}

		load := e.LoadSet()
		if len(load) < len(prevLoad) {
			t.Fatalf("step %d: load set shrank from %d to %d", i, len(prevLoad), len(load))
		}
		current := map[string]bool{}
		for _, id := range load {
			current[id] = true
		}
		for id := range prevLoad {
			if !current[id] {
				t.Fatalf("step %d: %s dropped from load set", i, id)
			}
		}
		prevLoad = current
	}

	for j := 1; j < len(rec.pages); j++ {
		if rec.pages[j-1] == rec.pages[j] {
			t.Fatalf("navigation repeated page %d", rec.pages[j])
		}
	}
}
