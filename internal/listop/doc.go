// Package listop defines the structural list edits accepted by the engine and
// the pure functions that validate and apply them.
//
// Operations never touch shared state. Apply takes the current contents,
// checks the operation's precondition against them, and returns a fresh slice
// together with position metadata describing what changed. The engine's serial
// lane is the only caller that feeds the result back into the authoritative
// list.
//
// Items are opaque. The only view the package has of an item is through an
// Equivalence, which supplies identity and content predicates.
package listop
