package models

import (
	"time"
)

// RegionID identifies one of the isolated game regions.
type RegionID uint8

const (
	RegionUS RegionID = 1
	RegionEU RegionID = 2
	RegionKR RegionID = 3
)

// Code returns the short region code used in feed names and log lines.
func (r RegionID) Code() string {
	switch r {
	case RegionUS:
		return "US"
	case RegionEU:
		return "EU"
	case RegionKR:
		return "KR"
	default:
		return "??"
	}
}

// Valid reports whether r is a known region.
func (r RegionID) Valid() bool {
	return r >= RegionUS && r <= RegionKR
}

// LobbyStatus is the lifecycle state of a lobby.
type LobbyStatus string

const (
	// LobbyUnknown marks a lobby whose final outcome could not be resolved
	// from the journal. The close handler may later repair it to open.
	LobbyUnknown LobbyStatus = "unknown"
	LobbyOpen    LobbyStatus = "open"
	LobbyStarted LobbyStatus = "started"
	// LobbyEnded covers every terminal outcome other than a started game.
	LobbyEnded LobbyStatus = "ended"
)

// SlotKind describes what occupies a lobby slot.
type SlotKind string

const (
	SlotOpen  SlotKind = "open"
	SlotAI    SlotKind = "ai"
	SlotHuman SlotKind = "human"
)

// DocumentType distinguishes maps from mods.
type DocumentType string

const (
	DocumentMap          DocumentType = "map"
	DocumentExtensionMod DocumentType = "extension_mod"
)

// Region is a row of the regions table. Regions are seeded out of band; the
// tracker only reads them.
type Region struct {
	ID   uint8  `gorm:"primaryKey"`
	Code string `gorm:"size:4;not null;unique"`
}

// GameLobby is a single tracked lobby instance.
type GameLobby struct {
	ID           uint   `gorm:"primaryKey"`
	RegionID     uint8  `gorm:"not null;uniqueIndex:region_bnet_id,priority:1"`
	BnetBucketID uint32 `gorm:"not null;uniqueIndex:region_bnet_id,priority:2"`
	BnetRecordID uint32 `gorm:"not null;uniqueIndex:region_bnet_id,priority:3"`

	CreatedAt         time.Time `gorm:"not null"`
	ClosedAt          *time.Time
	SnapshotUpdatedAt time.Time `gorm:"not null"`
	SlotsUpdatedAt    time.Time

	Status LobbyStatus `gorm:"size:16;not null;index"`

	LobbyTitle       string `gorm:"size:128"`
	HostName         string `gorm:"size:64"`
	SlotsHumansTaken int
	SlotsHumansTotal int

	MapBnetID       uint32 `gorm:"not null"`
	MapMajorVersion uint16
	MapMinorVersion uint16
	MapVariantIndex int
	MapVariantMode  string `gorm:"size:32"`

	ExtModBnetID       *uint32
	ExtModMajorVersion *uint16
	ExtModMinorVersion *uint16

	MultiModBnetID       *uint32
	MultiModMajorVersion *uint16
	MultiModMinorVersion *uint16

	MapDocumentVersionID      *uint
	ExtModDocumentVersionID   *uint
	MultiModDocumentVersionID *uint

	Slots []LobbySlot `gorm:"foreignKey:LobbyID"`
}

// LobbySlot is one slot of a lobby's occupancy template, 1-based by
// SlotNumber. Slot rows are deleted when an unstarted lobby closes.
type LobbySlot struct {
	ID         uint `gorm:"primaryKey"`
	LobbyID    uint `gorm:"not null;uniqueIndex:lobby_slot_number,priority:1"`
	SlotNumber int  `gorm:"not null;uniqueIndex:lobby_slot_number,priority:2"`

	Team int
	Kind SlotKind `gorm:"size:8;not null"`
	Name string   `gorm:"size:64"`

	ProfileID *uint
	Profile   *Profile `gorm:"foreignKey:ProfileID"`

	JoinID *uint
	Join   *PlayerJoin `gorm:"foreignKey:JoinID"`
}

// PlayerJoin is one continuous occupancy span of a profile in a lobby.
// LeftAt stays null while the player is still seated somewhere in the lobby.
type PlayerJoin struct {
	ID        uint `gorm:"primaryKey"`
	LobbyID   uint `gorm:"not null;index"`
	ProfileID uint `gorm:"not null;index"`
	Profile   *Profile `gorm:"foreignKey:ProfileID"`

	JoinedAt time.Time `gorm:"not null"`
	LeftAt   *time.Time
}

// Profile is a player identity, unique per (region, realm, profile id).
// Name and discriminator are lazily upserted and only overwritten by newer
// journal data.
type Profile struct {
	ID            uint   `gorm:"primaryKey"`
	RegionID      uint8  `gorm:"not null;uniqueIndex:region_realm_profile,priority:1"`
	RealmID       uint8  `gorm:"not null;uniqueIndex:region_realm_profile,priority:2"`
	BnetProfileID uint32 `gorm:"not null;uniqueIndex:region_realm_profile,priority:3"`

	Name          string `gorm:"size:64"`
	Discriminator uint32
	UpdatedAt     *time.Time `gorm:"autoUpdateTime:false"`
}

// Document is a map or mod known to a region. CurrentMajorVersion and
// CurrentMinorVersion track the highest version ever observed and never
// decrease.
type Document struct {
	ID       uint   `gorm:"primaryKey"`
	RegionID uint8  `gorm:"not null;uniqueIndex:region_bnet,priority:1"`
	BnetID   uint32 `gorm:"not null;uniqueIndex:region_bnet,priority:2"`

	Type     DocumentType `gorm:"size:16;not null;index:region_doc_type"`
	IsArcade bool
	Name     string `gorm:"size:128;index:doc_name"`

	CategoryID *uint
	Category   *MapCategory `gorm:"foreignKey:CategoryID"`

	CurrentMajorVersion *uint16
	CurrentMinorVersion *uint16
}

// DocumentVersion is one observed (major, minor) version of a document.
type DocumentVersion struct {
	ID         uint `gorm:"primaryKey"`
	DocumentID uint `gorm:"not null;uniqueIndex:document_version,priority:1"`
	Document   *Document `gorm:"foreignKey:DocumentID"`

	MajorVersion uint16 `gorm:"not null;uniqueIndex:document_version,priority:2"`
	MinorVersion uint16 `gorm:"not null;uniqueIndex:document_version,priority:3"`

	IconHash string `gorm:"size:64"`
}

// MapCategory is a named map category resolved by name on first sight.
type MapCategory struct {
	ID   uint   `gorm:"primaryKey"`
	Name string `gorm:"size:64;not null;unique"`
}

// FeedProvider is one enabled journal feed of a region.
type FeedProvider struct {
	ID       uint   `gorm:"primaryKey"`
	RegionID uint8  `gorm:"not null;index"`
	Name     string `gorm:"size:32;not null"`
	Enabled  bool   `gorm:"not null;default:true"`

	Position FeedPosition `gorm:"foreignKey:ProviderID"`
}

// FeedPosition is the dual checkpoint pair of a feed provider.
type FeedPosition struct {
	ProviderID uint `gorm:"primaryKey"`

	StorageFile   uint32
	StorageOffset int64

	ResumingFile   uint32
	ResumingOffset int64
}

// TrackerTables lists every entity the engine persists, in dependency order.
// Tests and the schema guard iterate over it.
func TrackerTables() []any {
	return []any{
		&Region{},
		&MapCategory{},
		&Document{},
		&DocumentVersion{},
		&Profile{},
		&GameLobby{},
		&PlayerJoin{},
		&LobbySlot{},
		&FeedProvider{},
		&FeedPosition{},
	}
}
