// Package diff computes edit scripts between two list snapshots.
//
// The script is produced by a Myers shortest-edit-script pass over item
// identity, followed by a placement pass that turns identity matches outside
// the common subsequence into moves and identity matches with different
// content into changes. A change is always preferred over a remove+insert
// pair for the same identity.
//
// Script semantics are sequential: edits are applied in order to an evolving
// list that starts as the old snapshot. Remove positions refer to the list at
// that point; Insert and Change positions are also final positions in the new
// snapshot, so their items are read from it.
package diff
