package diff

// match pairs an old index with a new index of the same identity.
type match struct {
	old, new int
}

// commonSubsequence returns identity matches in increasing order of both
// indices. Common prefix and suffix are stripped before running Myers.
func commonSubsequence[T any](a, b []T, same func(x, y T) bool) []match {
	n, m := len(a), len(b)

	prefix := 0
	for prefix < n && prefix < m && same(a[prefix], b[prefix]) {
		prefix++
	}
	suffix := 0
	for suffix < n-prefix && suffix < m-prefix && same(a[n-1-suffix], b[m-1-suffix]) {
		suffix++
	}

	out := make([]match, 0, prefix+suffix)
	for i := 0; i < prefix; i++ {
		out = append(out, match{i, i})
	}
	for _, mm := range myers(a[prefix:n-suffix], b[prefix:m-suffix], same) {
		out = append(out, match{mm.old + prefix, mm.new + prefix})
	}
	for i := suffix; i > 0; i-- {
		out = append(out, match{n - i, m - i})
	}
	return out
}

// myers finds a longest common subsequence of a and b with the
// linear-space variant of Myers' algorithm: locate the middle snake of an
// optimal path, then recurse on the halves before and after it. Working
// memory is O(N+M) regardless of edit distance.
func myers[T any](a, b []T, same func(x, y T) bool) []match {
	if len(a) == 0 || len(b) == 0 {
		return nil
	}
	size := 2*((len(a)+len(b)+1)/2) + 3
	s := &lcsSearch[T]{
		a:    a,
		b:    b,
		same: same,
		fwd:  make([]int, size),
		bwd:  make([]int, size),
	}
	s.compare(0, len(a), 0, len(b))
	return s.out
}

// lcsSearch holds the frontier buffers shared by every recursion level.
// A level finishes with them before it recurses.
type lcsSearch[T any] struct {
	a, b     []T
	same     func(x, y T) bool
	fwd, bwd []int
	out      []match
}

// compare appends the matches of a[aLo:aHi] against b[bLo:bHi] in order.
func (s *lcsSearch[T]) compare(aLo, aHi, bLo, bHi int) {
	for aLo < aHi && bLo < bHi && s.same(s.a[aLo], s.b[bLo]) {
		s.out = append(s.out, match{aLo, bLo})
		aLo++
		bLo++
	}
	suffix := 0
	for aLo < aHi-suffix && bLo < bHi-suffix && s.same(s.a[aHi-1-suffix], s.b[bHi-1-suffix]) {
		suffix++
	}
	aEnd, bEnd := aHi-suffix, bHi-suffix

	switch {
	case aLo == aEnd || bLo == bEnd:
	case aEnd-aLo == 1:
		for j := bLo; j < bEnd; j++ {
			if s.same(s.a[aLo], s.b[j]) {
				s.out = append(s.out, match{aLo, j})
				break
			}
		}
	case bEnd-bLo == 1:
		for i := aLo; i < aEnd; i++ {
			if s.same(s.a[i], s.b[bLo]) {
				s.out = append(s.out, match{i, bLo})
				break
			}
		}
	default:
		if x, y, ok := s.split(aLo, aEnd, bLo, bEnd); ok {
			s.compare(aLo, x, bLo, y)
			s.compare(x, aEnd, y, bEnd)
		}
	}

	for i := 0; i < suffix; i++ {
		s.out = append(s.out, match{aEnd + i, bEnd + i})
	}
}

// split runs the forward and backward searches until they overlap and
// returns a point on an optimal path strictly inside the box. ok is false
// when the ranges share no element.
func (s *lcsSearch[T]) split(aLo, aHi, bLo, bHi int) (x, y int, ok bool) {
	n, m := aHi-aLo, bHi-bLo
	maxD := (n + m + 1) / 2
	offset := maxD + 1
	fwd := s.fwd[:2*maxD+3]
	bwd := s.bwd[:2*maxD+3]
	for i := range fwd {
		fwd[i] = -1
		bwd[i] = -1
	}
	fwd[offset+1] = 0
	bwd[offset+1] = 0

	delta := n - m
	front := delta%2 != 0
	// Diagonals that left the box are trimmed from either end.
	var fStart, fEnd, bStart, bEnd int

	for d := 0; d <= maxD; d++ {
		for k := -d + fStart; k <= d-fEnd; k += 2 {
			i := offset + k
			var fx int
			if k == -d || (k != d && fwd[i-1] < fwd[i+1]) {
				fx = fwd[i+1]
			} else {
				fx = fwd[i-1] + 1
			}
			fy := fx - k
			for fx < n && fy < m && s.same(s.a[aLo+fx], s.b[bLo+fy]) {
				fx++
				fy++
			}
			fwd[i] = fx
			switch {
			case fx > n:
				fEnd += 2
			case fy > m:
				fStart += 2
			case front:
				j := offset + delta - k
				if j < 0 || j >= len(bwd) || !within(bwd[j], j-offset, n, m) {
					continue
				}
				if fx >= n-bwd[j] {
					return s.inside(aLo, aHi, bLo, bHi, aLo+fx, bLo+fy)
				}
			}
		}

		for k := -d + bStart; k <= d-bEnd; k += 2 {
			i := offset + k
			var bx int
			if k == -d || (k != d && bwd[i-1] < bwd[i+1]) {
				bx = bwd[i+1]
			} else {
				bx = bwd[i-1] + 1
			}
			by := bx - k
			for bx < n && by < m && s.same(s.a[aHi-1-bx], s.b[bHi-1-by]) {
				bx++
				by++
			}
			bwd[i] = bx
			switch {
			case bx > n:
				bEnd += 2
			case by > m:
				bStart += 2
			case !front:
				j := offset + delta - k
				if j < 0 || j >= len(fwd) || !within(fwd[j], j-offset, n, m) {
					continue
				}
				if fx := fwd[j]; fx >= n-bx {
					return s.inside(aLo, aHi, bLo, bHi, aLo+fx, bLo+fx-(j-offset))
				}
			}
		}
	}
	return 0, 0, false
}

// within reports whether frontier value x on diagonal k is a reached point
// of the n by m box.
func within(x, k, n, m int) bool {
	y := x - k
	return x >= 0 && x <= n && y >= 0 && y <= m
}

// inside accepts a split point only when both halves are smaller than the
// box, so the recursion always makes progress.
func (s *lcsSearch[T]) inside(aLo, aHi, bLo, bHi, x, y int) (int, int, bool) {
	if (x == aLo && y == bLo) || (x == aHi && y == bHi) {
		return 0, 0, false
	}
	return x, y, true
}
