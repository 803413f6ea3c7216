package ui

import "sort"

// pageRange is an inclusive range of page indices. It is empty when
// first > last.
type pageRange struct {
	first, last int
}

var noPages = pageRange{first: 0, last: -1}

func (r pageRange) empty() bool { return r.first > r.last }

func (r pageRange) contains(page int) bool {
	return !r.empty() && page >= r.first && page <= r.last
}

// layout places pages one below the other. tops[i] is the first row of page
// i and tops[len(tops)-1] is the single row of the end-of-chapter sentinel.
type layout struct {
	tops []int
}

func newLayout(heights []int) layout {
	tops := make([]int, len(heights)+1)
	for i, h := range heights {
		if h < 1 {
			h = 1
		}
		tops[i+1] = tops[i] + h
	}
	return layout{tops: tops}
}

// uniformLayout lays out n pages of height h.
func uniformLayout(n, h int) layout {
	heights := make([]int, max(n, 0))
	for i := range heights {
		heights[i] = h
	}
	return newLayout(heights)
}

func (l layout) pages() int { return len(l.tops) - 1 }

func (l layout) sentinelRow() int { return l.tops[len(l.tops)-1] }

// rows is the content height including the sentinel.
func (l layout) rows() int { return l.sentinelRow() + 1 }

func (l layout) top(page int) int {
	if page < 0 {
		return 0
	}
	if page > l.pages() {
		page = l.pages()
	}
	return l.tops[page]
}

func (l layout) maxOffset(height int) int {
	return max(0, l.rows()-height)
}

func (l layout) clamp(offset, height int) int {
	return min(max(offset, 0), l.maxOffset(height))
}

// pageAt returns the page covering row, or false for the sentinel and rows
// outside the content.
func (l layout) pageAt(row int) (int, bool) {
	if row < 0 || row >= l.sentinelRow() {
		return 0, false
	}
	// first page whose bottom is below row
	i := sort.Search(l.pages(), func(i int) bool { return l.tops[i+1] > row })
	return i, true
}

// visibleRange returns the pages intersecting rows [offset, offset+height).
func (l layout) visibleRange(offset, height int) pageRange {
	if height <= 0 || l.pages() == 0 {
		return noPages
	}
	first, ok := l.pageAt(max(offset, 0))
	if !ok {
		return noPages
	}
	lastRow := min(offset+height-1, l.sentinelRow()-1)
	last, _ := l.pageAt(lastRow)
	return pageRange{first: first, last: last}
}

func (l layout) sentinelVisible(offset, height int) bool {
	row := l.sentinelRow()
	return height > 0 && row >= offset && row < offset+height
}

// diffRanges lists the pages that stopped being visible, ascending, and the
// pages that became visible, ascending.
func diffRanges(before, after pageRange) (left, entered []int) {
	if !before.empty() {
		for p := before.first; p <= before.last; p++ {
			if !after.contains(p) {
				left = append(left, p)
			}
		}
	}
	if !after.empty() {
		for p := after.first; p <= after.last; p++ {
			if !before.contains(p) {
				entered = append(entered, p)
			}
		}
	}
	return left, entered
}
