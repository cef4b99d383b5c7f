package listop

// Result is the outcome of applying one operation.
type Result[T any] struct {
	// Items is the new list. It never aliases the input slice unless
	// Modified is false.
	Items []T

	// Modified is false when the operation left the list unchanged.
	Modified bool

	Change Change
}

// Apply validates op against current and returns the resulting list.
//
// current is never mutated. A non-nil error is a *ValidationError; panics
// raised by caller-supplied functions (predicates, Update) propagate so the
// caller can classify them separately.
func Apply[T any](op Operation[T], current []T, eq Equivalence[T]) (Result[T], error) {
	if err := Validate(op, current, eq); err != nil {
		return Result[T]{Items: current}, err
	}

	unchanged := Result[T]{Items: current, Change: Change{Type: ChangeNone}}

	switch op.Kind {
	case KindSetItems:
		if len(current) == 0 && len(op.Items) == 0 {
			return unchanged, nil
		}
		return Result[T]{Items: clone(op.Items), Modified: true, Change: Change{Type: ChangeFull}}, nil

	case KindAddItem:
		return insert(current, len(current), []T{op.Item}), nil

	case KindAddItemAt:
		return insert(current, op.Index, []T{op.Item}), nil

	case KindAddItems:
		if len(op.Items) == 0 {
			return unchanged, nil
		}
		return insert(current, len(current), op.Items), nil

	case KindAddItemsAt:
		if len(op.Items) == 0 {
			return unchanged, nil
		}
		return insert(current, op.Index, op.Items), nil

	case KindRemoveAt:
		return removeAt(current, op.Index), nil

	case KindRemoveItem:
		return removeAt(current, eq.IndexOf(current, op.Item)), nil

	case KindReplaceItemAt:
		next := clone(current)
		next[op.Index] = op.Item
		return Result[T]{
			Items:    next,
			Modified: true,
			Change:   Change{Type: ChangeUpdate, Position: op.Index, Count: 1},
		}, nil

	case KindMoveItem:
		if op.Index == op.To {
			return unchanged, nil
		}
		return Result[T]{
			Items:    move(current, op.Index, op.To),
			Modified: true,
			Change:   Change{Type: ChangeMove, From: op.Index, To: op.To},
		}, nil

	case KindRemoveAll:
		if len(current) == 0 {
			return unchanged, nil
		}
		return Result[T]{
			Items:    []T{},
			Modified: true,
			Change:   Change{Type: ChangeRemove, Position: 0, Count: len(current)},
		}, nil

	case KindUpdateItems:
		next := op.Update(clone(current))
		if next == nil {
			next = []T{}
		}
		return Result[T]{Items: next, Modified: true, Change: Change{Type: ChangeFull}}, nil
	}

	// Validate rejects unknown kinds.
	return unchanged, nil
}

func insert[T any](current []T, at int, items []T) Result[T] {
	next := make([]T, 0, len(current)+len(items))
	next = append(next, current[:at]...)
	next = append(next, items...)
	next = append(next, current[at:]...)
	return Result[T]{
		Items:    next,
		Modified: true,
		Change:   Change{Type: ChangeInsert, Position: at, Count: len(items)},
	}
}

func removeAt[T any](current []T, at int) Result[T] {
	next := make([]T, 0, len(current)-1)
	next = append(next, current[:at]...)
	next = append(next, current[at+1:]...)
	return Result[T]{
		Items:    next,
		Modified: true,
		Change:   Change{Type: ChangeRemove, Position: at, Count: 1},
	}
}

// move removes the element at from and re-inserts it at to, shifting the
// elements in between.
func move[T any](current []T, from, to int) []T {
	next := clone(current)
	item := next[from]
	if from < to {
		copy(next[from:to], next[from+1:to+1])
	} else {
		copy(next[to+1:from+1], next[to:from])
	}
	next[to] = item
	return next
}
