// Package tracker implements the lobby reconciliation engine.
//
// One Worker runs per region. It pulls cursor-tagged events from a journal
// source, applies the lobby lifecycle state machine against the relational
// store, and advances the per-feed checkpoint pairs. Events are processed one
// at a time; no two events of the same region are ever in flight together,
// which is what keeps the identity caches and the slot departure table safe
// without locks. Workers share nothing with each other except the database
// server itself, reached over independent connections.
//
// # Delivery semantics
//
// The journal is at-least-once: after a crash the source replays from the
// resuming checkpoint, and the engine drops any event whose cursor is not
// newer than the feed's storage checkpoint. Effects are therefore applied
// exactly once even though events are not. Slot reconciliation runs inside a
// single transaction so a crash can never leave half of a slot batch
// visible.
//
// # Failure model
//
// The engine does not retry. Stale or duplicate data is silently ignored; a
// duplicate-identity conflict on lobby creation is reinterpreted as a
// reappearance signal; everything else aborts the worker and relies on
// supervisor restart plus checkpoint resume.
package tracker
