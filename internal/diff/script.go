package diff

import (
	"encoding/json"
	"fmt"
	"strings"
)

// EditType classifies one edit.
type EditType int

const (
	// EditInsert inserts Count items of the new snapshot at Position.
	EditInsert EditType = iota + 1
	// EditRemove removes Count items starting at Position.
	EditRemove
	// EditMove removes the item at From and re-inserts it at To.
	EditMove
	// EditChange replaces Count items at Position with new-snapshot content.
	EditChange
)

func (t EditType) String() string {
	switch t {
	case EditInsert:
		return "insert"
	case EditRemove:
		return "remove"
	case EditMove:
		return "move"
	case EditChange:
		return "change"
	default:
		return fmt.Sprintf("EditType(%d)", int(t))
	}
}

// MarshalText implements encoding.TextMarshaler.
func (t EditType) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (t *EditType) UnmarshalText(b []byte) error {
	for _, c := range []EditType{EditInsert, EditRemove, EditMove, EditChange} {
		if c.String() == string(b) {
			*t = c
			return nil
		}
	}
	return fmt.Errorf("unknown edit type %q", b)
}

// Edit is one step of a Script. Moves use From and To; every other type
// uses Position and Count.
type Edit struct {
	Type     EditType `json:"type"`
	Position int      `json:"position"`
	Count    int      `json:"count"`
	From     int      `json:"from"`
	To       int      `json:"to"`
}

type rangeEdit struct {
	Type     EditType `json:"type"`
	Position int      `json:"position"`
	Count    int      `json:"count"`
}

type moveEdit struct {
	Type EditType `json:"type"`
	From int      `json:"from"`
	To   int      `json:"to"`
}

// MarshalJSON writes only the fields meaningful for the edit type.
func (e Edit) MarshalJSON() ([]byte, error) {
	if e.Type == EditMove {
		return json.Marshal(moveEdit{Type: e.Type, From: e.From, To: e.To})
	}
	return json.Marshal(rangeEdit{Type: e.Type, Position: e.Position, Count: e.Count})
}

func (e Edit) String() string {
	if e.Type == EditMove {
		return fmt.Sprintf("move(%d->%d)", e.From, e.To)
	}
	return fmt.Sprintf("%s(%d,%d)", e.Type, e.Position, e.Count)
}

// Script is an ordered edit list turning one snapshot into another.
type Script struct {
	Edits []Edit `json:"edits"`
}

// Empty reports whether the script has no edits.
func (s Script) Empty() bool {
	return len(s.Edits) == 0
}

// Stats summarizes a script by edit type, counting items rather than edits.
type Stats struct {
	Inserted int
	Removed  int
	Moved    int
	Changed  int
}

// Stats counts affected items per edit type.
func (s Script) Stats() Stats {
	var st Stats
	for _, e := range s.Edits {
		switch e.Type {
		case EditInsert:
			st.Inserted += e.Count
		case EditRemove:
			st.Removed += e.Count
		case EditMove:
			st.Moved++
		case EditChange:
			st.Changed += e.Count
		}
	}
	return st
}

func (s Script) String() string {
	parts := make([]string, len(s.Edits))
	for i, e := range s.Edits {
		parts[i] = e.String()
	}
	return "[" + strings.Join(parts, " ") + "]"
}

// builder appends edits, folding adjacent ranges of the same type.
type builder struct {
	edits []Edit
}

func (b *builder) last() *Edit {
	if len(b.edits) == 0 {
		return nil
	}
	return &b.edits[len(b.edits)-1]
}

// remove is called with strictly descending positions.
func (b *builder) remove(at int) {
	if l := b.last(); l != nil && l.Type == EditRemove && l.Position == at+1 {
		l.Position = at
		l.Count++
		return
	}
	b.edits = append(b.edits, Edit{Type: EditRemove, Position: at, Count: 1})
}

func (b *builder) insert(at int) {
	if l := b.last(); l != nil && l.Type == EditInsert && l.Position+l.Count == at {
		l.Count++
		return
	}
	b.edits = append(b.edits, Edit{Type: EditInsert, Position: at, Count: 1})
}

func (b *builder) change(at int) {
	if l := b.last(); l != nil && l.Type == EditChange && l.Position+l.Count == at {
		l.Count++
		return
	}
	b.edits = append(b.edits, Edit{Type: EditChange, Position: at, Count: 1})
}

func (b *builder) move(from, to int) {
	b.edits = append(b.edits, Edit{Type: EditMove, From: from, To: to})
}

func (b *builder) script() Script {
	return Script{Edits: b.edits}
}
