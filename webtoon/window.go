package webtoon

// DefaultLookAhead is the number of pages loaded past the visible ones.
const DefaultLookAhead = 3

// planWindow returns the page indices that should be loaded for the given
// visible pages: from the top-most visible page, lookAhead+len(visible) pages,
// clipped to pageCount. An empty visible set plans nothing.
func planWindow(visible []int, lookAhead, pageCount int) []int {
	if len(visible) == 0 {
		return nil
	}

	start := visible[0]
	end := start + lookAhead + len(visible)
	if end > pageCount {
		end = pageCount
	}
	if end <= start {
		return nil
	}

	pages := make([]int, 0, end-start)
	for page := start; page < end; page++ {
		pages = append(pages, page)
	}
	return pages
}

// loadSet is an insertion-ordered set of load identifiers. Entries are never
// removed; a new session gets a new loadSet.
type loadSet struct {
	order []string
	index map[string]struct{}
}

func newLoadSet() loadSet {
	return loadSet{index: make(map[string]struct{})}
}

func (s *loadSet) add(id string) bool {
	if _, ok := s.index[id]; ok {
		return false
	}
	s.index[id] = struct{}{}
	s.order = append(s.order, id)
	return true
}

func (s *loadSet) has(id string) bool {
	_, ok := s.index[id]
	return ok
}

func (s *loadSet) len() int { return len(s.order) }

func (s *loadSet) list() []string {
	out := make([]string, len(s.order))
	copy(out, s.order)
	return out
}
