package model

import "time"

// Snapshot is one user's state as exported by a primary. It is both the wire
// shape of an export response entry and the input to reconciliation; child
// entries carry no identity identifier because the local one is minted (or
// looked up) only at apply time.
type Snapshot struct {
	Wallet            string         `json:"userKey"`
	LastLogin         *time.Time     `json:"lastLogin"`
	LatestBlockNumber int64          `json:"latestBlockNumber"`
	Clock             int64          `json:"clock"`
	ClockRecords      []ClockEntry   `json:"clockRecords"`
	Files             []FileEntry    `json:"files"`
	Tracks            []TrackEntry   `json:"tracks"`
	ProfileRecords    []ProfileEntry `json:"profileRecords"`
}

// ClockEntry is a change-log entry inside a snapshot.
type ClockEntry struct {
	Clock         int64  `json:"clock"`
	OperationType string `json:"operationType"`
}

// FileEntry is a file inside a snapshot.
type FileEntry struct {
	Multihash         string   `json:"multihash"`
	StoragePath       string   `json:"storagePath"`
	Type              FileType `json:"type"`
	FileName          *string  `json:"fileName,omitempty"`
	TrackBlockchainID *int64   `json:"trackBlockchainId,omitempty"`
}

// TrackEntry is a track inside a snapshot.
type TrackEntry struct {
	BlockchainID      int64  `json:"blockchainId"`
	MetadataMultihash string `json:"metadataMultihash"`
}

// ProfileEntry is a profile record inside a snapshot.
type ProfileEntry struct {
	DisplayName       string `json:"displayName"`
	Bio               string `json:"bio"`
	MetadataMultihash string `json:"metadataMultihash"`
}
