package listop

import (
	"errors"
	"fmt"
)

// ValidationError reports an operation whose precondition does not hold
// against the list it was applied to.
type ValidationError struct {
	Op      string
	Message string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Op, e.Message)
}

// IsValidation reports whether err is, or wraps, a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

func invalid(op Kind, format string, args ...any) *ValidationError {
	return &ValidationError{Op: op.String(), Message: fmt.Sprintf(format, args...)}
}

// checkInsert allows 0..size inclusive.
func checkInsert(op Kind, position, size int) error {
	if position < 0 || position > size {
		return invalid(op, "cannot insert at position %d, valid range is 0..%d", position, size)
	}
	return nil
}

// checkAccess allows 0..size-1.
func checkAccess(op Kind, position, size int) error {
	if position < 0 || position >= size {
		return invalid(op, "position %d out of range, valid range is 0 until %d", position, size)
	}
	return nil
}

func checkMove(from, to, size int) error {
	if from < 0 || from >= size || to < 0 || to >= size {
		return invalid(KindMoveItem, "cannot move %d to %d, valid range is 0 until %d", from, to, size)
	}
	return nil
}

// Validate checks op's precondition against current without applying it.
func Validate[T any](op Operation[T], current []T, eq Equivalence[T]) error {
	size := len(current)
	switch op.Kind {
	case KindSetItems, KindAddItem, KindAddItems, KindRemoveAll:
		return nil
	case KindAddItemAt:
		return checkInsert(op.Kind, op.Index, size)
	case KindAddItemsAt:
		if len(op.Items) == 0 {
			return nil
		}
		return checkInsert(op.Kind, op.Index, size)
	case KindRemoveAt, KindReplaceItemAt:
		return checkAccess(op.Kind, op.Index, size)
	case KindRemoveItem:
		if eq.IndexOf(current, op.Item) < 0 {
			return invalid(op.Kind, "item not found in the list")
		}
		return nil
	case KindMoveItem:
		return checkMove(op.Index, op.To, size)
	case KindUpdateItems:
		if op.Update == nil {
			return invalid(op.Kind, "update function is nil")
		}
		return nil
	default:
		return invalid(op.Kind, "unknown operation kind")
	}
}
