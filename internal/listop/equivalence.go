package listop

// Equivalence projects identity and content equality over opaque items.
//
// SameIdentity reports whether two values represent the same logical entry
// (same primary key). SameContent reports whether two values of the same
// identity render identically. Both must be pure and safe for concurrent use.
type Equivalence[T any] struct {
	SameIdentity func(a, b T) bool
	SameContent  func(a, b T) bool
}

// Comparable returns an Equivalence that uses == for both predicates.
func Comparable[T comparable]() Equivalence[T] {
	eq := func(a, b T) bool { return a == b }
	return Equivalence[T]{SameIdentity: eq, SameContent: eq}
}

// ByKey returns an Equivalence keyed on a projected identity.
// Content equality falls back to identity equality when sameContent is nil.
func ByKey[T any, K comparable](key func(T) K, sameContent func(a, b T) bool) Equivalence[T] {
	sameIdentity := func(a, b T) bool { return key(a) == key(b) }
	if sameContent == nil {
		sameContent = sameIdentity
	}
	return Equivalence[T]{SameIdentity: sameIdentity, SameContent: sameContent}
}

// IndexOf returns the position of the first element whose identity matches
// item, or -1.
func (e Equivalence[T]) IndexOf(items []T, item T) int {
	for i, candidate := range items {
		if e.SameIdentity(candidate, item) {
			return i
		}
	}
	return -1
}
