package ir

// DomTree holds the immediate dominators of the blocks reachable from the entry
type DomTree struct {
	idom map[*BasicBlock]*BasicBlock
	rpo  map[*BasicBlock]int
}

// ReversePostOrder returns the blocks of fn reachable from the entry in reverse postorder
func ReversePostOrder(fn *Function) []*BasicBlock {
	entry := fn.Entry()
	if entry == nil {
		return nil
	}

	visited := make(map[*BasicBlock]bool, len(fn.Blocks))
	var order []*BasicBlock
	var dfs func(b *BasicBlock)
	dfs = func(b *BasicBlock) {
		if visited[b] {
			return
		}
		visited[b] = true
		for _, s := range b.Successors {
			dfs(s)
		}
		order = append(order, b)
	}
	dfs(entry)

	for i, j := 0, len(order)-1; i < j; i, j = i+1, j-1 {
		order[i], order[j] = order[j], order[i]
	}
	return order
}

// ComputeDominators runs "A Simple, Fast Dominance Algorithm" (Cooper, Harvey, Kennedy)
// over the reachable part of fn.
func ComputeDominators(fn *Function) *DomTree {
	order := ReversePostOrder(fn)
	t := &DomTree{
		idom: make(map[*BasicBlock]*BasicBlock, len(order)),
		rpo:  make(map[*BasicBlock]int, len(order)),
	}
	if len(order) == 0 {
		return t
	}
	for i, b := range order {
		t.rpo[b] = i
	}

	entry := order[0]
	t.idom[entry] = entry

	for changed := true; changed; {
		changed = false
		for _, b := range order[1:] {
			var u *BasicBlock
			for _, pred := range b.Predecessors {
				// Skip predecessors not processed yet, or unreachable ones.
				if t.idom[pred] == nil {
					continue
				}
				if u == nil {
					u = pred
				} else {
					u = t.intersect(u, pred)
				}
			}
			if t.idom[b] != u {
				t.idom[b] = u
				changed = true
			}
		}
	}
	return t
}

func (t *DomTree) intersect(b1, b2 *BasicBlock) *BasicBlock {
	for b1 != b2 {
		for t.rpo[b1] > t.rpo[b2] {
			b1 = t.idom[b1]
		}
		for t.rpo[b2] > t.rpo[b1] {
			b2 = t.idom[b2]
		}
	}
	return b1
}

// Reachable reports whether b is reachable from the entry
func (t *DomTree) Reachable(b *BasicBlock) bool {
	_, ok := t.rpo[b]
	return ok
}

// Idom returns the immediate dominator of b; the entry and unreachable blocks have none
func (t *DomTree) Idom(b *BasicBlock) *BasicBlock {
	d := t.idom[b]
	if d == b {
		return nil
	}
	return d
}

// Dominates reports whether a dominates b. Every block dominates itself.
func (t *DomTree) Dominates(a, b *BasicBlock) bool {
	if !t.Reachable(a) || !t.Reachable(b) {
		return false
	}
	for {
		if a == b {
			return true
		}
		next := t.idom[b]
		if next == b {
			return false
		}
		b = next
	}
}
