package webtoon

// jumpState is either idle or jumping to a target page. The zero value is idle.
type jumpState struct {
	target int
	active bool
}

func idle() jumpState { return jumpState{} }

func jumpingTo(target int) jumpState { return jumpState{target: target, active: true} }

// landed reports whether an active jump has reached its target, which happens
// only when the target is the top-most visible page.
func (j jumpState) landed(v visibleSet) bool {
	if !j.active {
		return false
	}
	top, ok := v.top()
	return ok && top == j.target
}
