// Package models defines the persistent entities of the lobby tracker.
//
// The schema mirrors the journal's view of the game world: lobbies and their
// slots, the players occupying them, the map/mod documents a lobby references,
// and the per-feed checkpoint positions the reconciliation engine uses to
// resume after a restart.
//
// # Identity
//
// A lobby is identified by (region, bucket id, record id); the same pair can
// reappear in the journal after a lobby closes, which is why the unique index
// on GameLobby doubles as the engine's "has this lobby already been created"
// check. PlayerJoin rows represent one continuous occupancy span of a profile
// in a lobby and are deliberately not bound to a slot number, so a player
// moving between slots keeps a single join record.
//
// # Checkpoints
//
// FeedPosition carries two independent (session file, offset) pairs per feed:
// the storage pair marks how far effects have been durably committed, the
// resuming pair marks how far the journal source has safely consumed for
// re-entry. Both are monotonically non-decreasing.
package models
