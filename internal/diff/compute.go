package diff

import "github.com/roach88/listq/internal/listop"

// Compute returns the edit script that turns old into next.
//
// Identity matches on the longest common subsequence stay in place; identity
// matches outside it are emitted as moves; any identity match whose content
// differs also gets a change at its final position.
func Compute[T any](old, next []T, eq listop.Equivalence[T]) Script {
	matches := commonSubsequence(old, next, eq.SameIdentity)

	oldTarget := filled(len(old))  // old index -> new index
	newSource := filled(len(next)) // new index -> old index
	for _, mm := range matches {
		oldTarget[mm.old] = mm.new
		newSource[mm.new] = mm.old
	}

	// Pair identities that left the subsequence with identities that joined
	// it; the first unclaimed old occurrence wins.
	moved := make([]bool, len(old))
	for j := range next {
		if newSource[j] >= 0 {
			continue
		}
		for i := range old {
			if oldTarget[i] < 0 && eq.SameIdentity(old[i], next[j]) {
				oldTarget[i] = j
				newSource[j] = i
				moved[i] = true
				break
			}
		}
	}

	var b builder
	lifted := make([]bool, len(old))

	for i := len(old) - 1; i >= 0; i-- {
		if oldTarget[i] < 0 {
			b.remove(i)
		}
	}

	// cur mirrors the evolving list: old indices for surviving items, -1 for
	// inserted ones. Positions below j are final.
	cur := make([]int, 0, len(next))
	for i := range old {
		if oldTarget[i] >= 0 {
			cur = append(cur, i)
		}
	}

	// anchor[t] is the first new index after t held by a subsequence item.
	anchor := make([]int, len(next)+1)
	anchor[len(next)] = -1
	for j := len(next) - 1; j >= 0; j-- {
		anchor[j] = anchor[j+1]
		if src := newSource[j]; src >= 0 && !moved[src] {
			anchor[j] = j
		}
	}

	for j := range next {
		src := newSource[j]
		if src < 0 {
			cur = insertInt(cur, j, -1)
			b.insert(j)
			continue
		}

		// A moved item blocking position j belongs further down. Park it
		// right before the subsequence item that follows its target so it
		// usually lands in place without a second move. Each item is parked at
		// most once; anything still out of place gets the direct move below.
		for j < len(cur) && cur[j] != src && cur[j] >= 0 && moved[cur[j]] && !lifted[cur[j]] {
			lifted[cur[j]] = true
			target := oldTarget[cur[j]]
			to := len(cur) - 1
			if target+1 <= len(next) {
				if a := anchor[target+1]; a >= 0 {
					to = indexOf(cur, newSource[a], j) - 1
				}
			}
			if to <= j {
				break
			}
			b.move(j, to)
			moveInt(cur, j, to)
		}

		if p := indexOf(cur, src, j); p != j {
			b.move(p, j)
			moveInt(cur, p, j)
		}
		if !eq.SameContent(old[src], next[j]) {
			b.change(j)
		}
	}

	return b.script()
}

// Apply replays script over old, reading inserted and changed items from
// next. It is the reference interpretation of a Script.
func Apply[T any](old, next []T, script Script) []T {
	cur := make([]T, len(old))
	copy(cur, old)
	for _, e := range script.Edits {
		switch e.Type {
		case EditRemove:
			cur = append(cur[:e.Position], cur[e.Position+e.Count:]...)
		case EditInsert:
			tail := append([]T(nil), cur[e.Position:]...)
			cur = append(append(cur[:e.Position], next[e.Position:e.Position+e.Count]...), tail...)
		case EditChange:
			copy(cur[e.Position:e.Position+e.Count], next[e.Position:e.Position+e.Count])
		case EditMove:
			item := cur[e.From]
			cur = append(cur[:e.From], cur[e.From+1:]...)
			tail := append([]T(nil), cur[e.To:]...)
			cur = append(append(cur[:e.To], item), tail...)
		}
	}
	return cur
}

func filled(n int) []int {
	s := make([]int, n)
	for i := range s {
		s[i] = -1
	}
	return s
}

func indexOf(s []int, v, from int) int {
	for i := from; i < len(s); i++ {
		if s[i] == v {
			return i
		}
	}
	return -1
}

func insertInt(s []int, at, v int) []int {
	s = append(s, 0)
	copy(s[at+1:], s[at:])
	s[at] = v
	return s
}

func moveInt(s []int, from, to int) {
	v := s[from]
	if from < to {
		copy(s[from:to], s[from+1:to+1])
	} else {
		copy(s[to+1:from+1], s[to:from])
	}
	s[to] = v
}
