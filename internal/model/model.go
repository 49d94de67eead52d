// Package model defines domain entities used by the sync engine and repositories.
package model

import (
	"time"

	"github.com/gofrs/uuid/v5"
)

// ClockNone is the clock value of an identity that has no applied data yet.
const ClockNone int64 = -1

// FileType enumerates the kinds of content files tracked per identity.
type FileType string

const (
	FileTypeTrack    FileType = "track"
	FileTypeCopy320  FileType = "copy320"
	FileTypeImage    FileType = "image"
	FileTypeDir      FileType = "dir"
	FileTypeMetadata FileType = "metadata"
)

// TrackTyped reports whether files of this type reference an owning track row.
func (t FileType) TrackTyped() bool {
	return t == FileTypeTrack || t == FileTypeCopy320
}

// Identity is the per-user root record. Child rows are keyed by ID, the
// locally minted identifier, never by any remote-assigned one.
type Identity struct {
	ID                uuid.UUID // locally minted PK
	Wallet            string    // network-wide user key, unique
	LastLogin         *time.Time
	LatestBlockNumber int64
	Clock             int64 // highest applied clock, ClockNone if empty
	CreatedAt         time.Time
}

// ClockRecord is one entry of an identity's ordered change log. Per identity
// the clock values form a contiguous run starting at 0.
type ClockRecord struct {
	IdentityID    uuid.UUID
	Clock         int64
	OperationType string
}

// File is a content-addressed file belonging to an identity.
type File struct {
	ID                uuid.UUID
	IdentityID        uuid.UUID
	Multihash         string
	StoragePath       string
	Type              FileType
	FileName          *string // set only for image files with dir-style storage
	TrackBlockchainID *int64  // set only for track-typed files
}

// Track is track metadata belonging to an identity. It must exist before any
// track-typed File referencing its BlockchainID is inserted.
type Track struct {
	ID                uuid.UUID
	IdentityID        uuid.UUID
	BlockchainID      int64
	MetadataMultihash string
}

// Profile is user-facing profile metadata, independent of files and tracks.
type Profile struct {
	ID                uuid.UUID
	IdentityID        uuid.UUID
	DisplayName       string
	Bio               string
	MetadataMultihash string
}
