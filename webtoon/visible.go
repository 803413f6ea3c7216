package webtoon

import "slices"

// visibleSet holds the pages intersecting the viewport in ascending order.
// The first element is the top-most visible page.
type visibleSet []int

// insert adds page keeping the set sorted. Reports false if page was present.
func (v visibleSet) insert(page int) (visibleSet, bool) {
	i, found := slices.BinarySearch(v, page)
	if found {
		return v, false
	}
	return slices.Insert(v, i, page), true
}

// remove drops page from the set. Reports false if page was absent.
func (v visibleSet) remove(page int) (visibleSet, bool) {
	i, found := slices.BinarySearch(v, page)
	if !found {
		return v, false
	}
	return slices.Delete(v, i, i+1), true
}

func (v visibleSet) top() (int, bool) {
	if len(v) == 0 {
		return 0, false
	}
	return v[0], true
}

func (v visibleSet) bottom() (int, bool) {
	if len(v) == 0 {
		return 0, false
	}
	return v[len(v)-1], true
}
