package listop

import "fmt"

// ChangeType classifies the position metadata of an applied operation.
type ChangeType int

const (
	// ChangeNone means the list is unchanged.
	ChangeNone ChangeType = iota
	// ChangeFull means the list was replaced and positions are meaningless.
	ChangeFull
	// ChangeInsert covers Count items inserted at Position.
	ChangeInsert
	// ChangeRemove covers Count items removed at Position.
	ChangeRemove
	// ChangeUpdate covers Count items overwritten at Position.
	ChangeUpdate
	// ChangeMove moves one item from From to To.
	ChangeMove
)

func (t ChangeType) String() string {
	switch t {
	case ChangeNone:
		return "none"
	case ChangeFull:
		return "full"
	case ChangeInsert:
		return "insert"
	case ChangeRemove:
		return "remove"
	case ChangeUpdate:
		return "update"
	case ChangeMove:
		return "move"
	default:
		return fmt.Sprintf("ChangeType(%d)", int(t))
	}
}

// Change is the position metadata an operation produces when applied.
type Change struct {
	Type     ChangeType
	Position int
	Count    int
	From     int
	To       int
}

func (c Change) String() string {
	switch c.Type {
	case ChangeInsert, ChangeRemove, ChangeUpdate:
		return fmt.Sprintf("%s(%d,%d)", c.Type, c.Position, c.Count)
	case ChangeMove:
		return fmt.Sprintf("move(%d->%d)", c.From, c.To)
	default:
		return c.Type.String()
	}
}
