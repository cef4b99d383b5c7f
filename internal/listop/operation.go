package listop

import "fmt"

// Kind tags the variant of an Operation.
type Kind int

const (
	// KindSetItems replaces the list wholesale.
	KindSetItems Kind = iota + 1
	// KindAddItem appends one item.
	KindAddItem
	// KindAddItemAt inserts one item at an index (index == size appends).
	KindAddItemAt
	// KindAddItems appends several items.
	KindAddItems
	// KindAddItemsAt inserts several items at an index.
	KindAddItemsAt
	// KindRemoveAt removes the item at an index.
	KindRemoveAt
	// KindRemoveItem removes the first item whose identity matches.
	KindRemoveItem
	// KindReplaceItemAt overwrites the item at an index.
	KindReplaceItemAt
	// KindMoveItem removes the item at From and re-inserts it at To.
	KindMoveItem
	// KindRemoveAll empties the list.
	KindRemoveAll
	// KindUpdateItems runs a caller transform over a copy of the list.
	KindUpdateItems
)

var kindNames = map[Kind]string{
	KindSetItems:      "SetItems",
	KindAddItem:       "AddItem",
	KindAddItemAt:     "AddItemAt",
	KindAddItems:      "AddItems",
	KindAddItemsAt:    "AddItemsAt",
	KindRemoveAt:      "RemoveAt",
	KindRemoveItem:    "RemoveItem",
	KindReplaceItemAt: "ReplaceItemAt",
	KindMoveItem:      "MoveItem",
	KindRemoveAll:     "RemoveAll",
	KindUpdateItems:   "UpdateItems",
}

// String returns the variant name, which is also the default merge key.
func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// ParseKind resolves a variant name as produced by Kind.String.
func ParseKind(name string) (Kind, bool) {
	for k, n := range kindNames {
		if n == name {
			return k, true
		}
	}
	return 0, false
}

// Kinds returns every known variant in declaration order.
func Kinds() []Kind {
	kinds := make([]Kind, 0, len(kindNames))
	for k := KindSetItems; k <= KindUpdateItems; k++ {
		kinds = append(kinds, k)
	}
	return kinds
}

// Operation is one structural edit. Only the fields relevant to Kind are read.
//
// Operations are values: the engine copies Items on admission so later caller
// mutation of the slice cannot leak into the queue.
type Operation[T any] struct {
	Kind Kind

	// Index is the target position (AddItemAt, AddItemsAt, RemoveAt,
	// ReplaceItemAt) or the source position for MoveItem.
	Index int

	// To is the destination position for MoveItem.
	To int

	Item  T
	Items []T

	// Update is the transform for UpdateItems. It receives a private copy.
	Update func([]T) []T

	// MergeKey overrides the category used for coalescing. Empty means
	// Kind.String().
	MergeKey string
}

// Name returns the operation's display name.
func (op Operation[T]) Name() string {
	return op.Kind.String()
}

// Key returns the merge key used for coalescing.
func (op Operation[T]) Key() string {
	if op.MergeKey != "" {
		return op.MergeKey
	}
	return op.Kind.String()
}

// Wholesale reports whether the operation replaces the entire list, making
// every earlier pending edit irrelevant to the final contents.
func (op Operation[T]) Wholesale() bool {
	return op.Kind == KindSetItems
}

// WithMergeKey returns a copy of op with an explicit merge key.
func (op Operation[T]) WithMergeKey(key string) Operation[T] {
	op.MergeKey = key
	return op
}

// SetItems replaces the list with items.
func SetItems[T any](items []T) Operation[T] {
	return Operation[T]{Kind: KindSetItems, Items: clone(items)}
}

// AddItem appends item.
func AddItem[T any](item T) Operation[T] {
	return Operation[T]{Kind: KindAddItem, Item: item}
}

// AddItemAt inserts item at index.
func AddItemAt[T any](index int, item T) Operation[T] {
	return Operation[T]{Kind: KindAddItemAt, Index: index, Item: item}
}

// AddItems appends items in order.
func AddItems[T any](items []T) Operation[T] {
	return Operation[T]{Kind: KindAddItems, Items: clone(items)}
}

// AddItemsAt inserts items at index, preserving their order.
func AddItemsAt[T any](index int, items []T) Operation[T] {
	return Operation[T]{Kind: KindAddItemsAt, Index: index, Items: clone(items)}
}

// RemoveAt removes the item at index.
func RemoveAt[T any](index int) Operation[T] {
	return Operation[T]{Kind: KindRemoveAt, Index: index}
}

// RemoveItem removes the first item whose identity matches item.
func RemoveItem[T any](item T) Operation[T] {
	return Operation[T]{Kind: KindRemoveItem, Item: item}
}

// ReplaceItemAt overwrites the item at index.
func ReplaceItemAt[T any](index int, item T) Operation[T] {
	return Operation[T]{Kind: KindReplaceItemAt, Index: index, Item: item}
}

// MoveItem moves the item at from to position to.
func MoveItem[T any](from, to int) Operation[T] {
	return Operation[T]{Kind: KindMoveItem, Index: from, To: to}
}

// RemoveAll empties the list.
func RemoveAll[T any]() Operation[T] {
	return Operation[T]{Kind: KindRemoveAll}
}

// UpdateItems runs fn over a copy of the current list and adopts its result.
func UpdateItems[T any](fn func([]T) []T) Operation[T] {
	return Operation[T]{Kind: KindUpdateItems, Update: fn}
}

func clone[T any](items []T) []T {
	if items == nil {
		return nil
	}
	out := make([]T, len(items))
	copy(out, items)
	return out
}
