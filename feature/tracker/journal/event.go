package journal

import (
	"time"

	"lobby-tracker/feature/tracker/models"
)

// Kind identifies an event variant.
type Kind string

const (
	KindNewLobby            Kind = "new_lobby"
	KindCloseLobby          Kind = "close_lobby"
	KindUpdateLobbySnapshot Kind = "update_lobby_snapshot"
	KindUpdateLobbySlots    Kind = "update_lobby_slots"
	KindUpdateLobbyList     Kind = "update_lobby_list"
)

// Cursor is a position within one feed: the session file it was read from and
// the byte offset just past the event.
type Cursor struct {
	Session uint32 `json:"session"`
	Offset  int64  `json:"offset"`
}

// Event is one cursor-tagged journal event.
type Event struct {
	Feed    string
	Cursor  Cursor
	At      time.Time
	Payload Payload
}

// Payload is the kind-specific body of an event. The interface is sealed:
// only the five variants below implement it.
type Payload interface {
	Kind() Kind
}

// NewLobby announces a lobby appearing in the journal for the first time.
type NewLobby struct {
	Lobby LobbyState `json:"lobby"`
}

// CloseLobby carries the final state of a lobby leaving the listing.
type CloseLobby struct {
	Lobby LobbyState `json:"lobby"`
}

// UpdateLobbySnapshot carries refreshed title/host/occupancy counters.
type UpdateLobbySnapshot struct {
	Lobby LobbyState `json:"lobby"`
}

// UpdateLobbySlots carries a refreshed slot template.
type UpdateLobbySlots struct {
	Lobby LobbyState `json:"lobby"`
}

// UpdateLobbyList carries no lobby mutation; it marks that every preceding
// mutation from this feed has been durably observed.
type UpdateLobbyList struct{}

func (NewLobby) Kind() Kind            { return KindNewLobby }
func (CloseLobby) Kind() Kind          { return KindCloseLobby }
func (UpdateLobbySnapshot) Kind() Kind { return KindUpdateLobbySnapshot }
func (UpdateLobbySlots) Kind() Kind    { return KindUpdateLobbySlots }
func (UpdateLobbyList) Kind() Kind     { return KindUpdateLobbyList }

// LobbyState is the journal's snapshot of one lobby at event time. Fields
// that a given event kind does not refresh are zero.
type LobbyState struct {
	BucketID uint32 `json:"bucketId"`
	RecordID uint32 `json:"recordId"`

	CreatedAt         time.Time `json:"createdAt"`
	ClosedAt          time.Time `json:"closedAt,omitzero"`
	SnapshotUpdatedAt time.Time `json:"snapshotUpdatedAt"`
	SlotsUpdatedAt    time.Time `json:"slotsUpdatedAt,omitzero"`

	Status models.LobbyStatus `json:"status,omitempty"`

	Name        string `json:"name"`
	HostName    string `json:"hostName"`
	HumansTaken int    `json:"humansTaken"`
	HumansTotal int    `json:"humansTotal"`

	Map      DocumentHandle `json:"map"`
	ExtMod   DocumentHandle `json:"extMod,omitzero"`
	MultiMod DocumentHandle `json:"multiMod,omitzero"`

	MapVariantIndex    int    `json:"mapVariantIndex"`
	MapVariantMode     string `json:"mapVariantMode,omitempty"`
	MapVariantCategory string `json:"mapVariantCategory,omitempty"`

	// Slots is nil when the event did not include a slot template.
	Slots []SlotState `json:"slots,omitempty"`
}

// DocumentHandle references a map or mod document version. A zero ID means
// no document.
type DocumentHandle struct {
	ID           uint32 `json:"id"`
	Name         string `json:"name,omitempty"`
	MajorVersion uint16 `json:"major"`
	MinorVersion uint16 `json:"minor"`
	IconHash     string `json:"iconHash,omitempty"`
	IsArcade     bool   `json:"isArcade,omitempty"`
}

// SlotState is one slot of an incoming slot template.
type SlotState struct {
	Team    int             `json:"team"`
	Kind    models.SlotKind `json:"kind"`
	Name    string          `json:"name,omitempty"`
	Profile *ProfileRef     `json:"profile,omitempty"`
}

// ProfileRef identifies the occupant of a slot within its region.
type ProfileRef struct {
	RealmID       uint8  `json:"realmId"`
	ProfileID     uint32 `json:"profileId"`
	Name          string `json:"name"`
	Discriminator uint32 `json:"discriminator"`
}
