package models

import "time"

// User anchors the vault identity. PublicKey is the hex Ed25519 public key.
type User struct {
	ID        string    `json:"id"`
	PublicKey string    `json:"publicKey"`
	CreatedAt time.Time `json:"createdAt"`
	LastSync  time.Time `json:"lastSync,omitempty"`
}

// SyncDataType names the kind of points a sync batch carried.
type SyncDataType string

const (
	SyncDataLocation SyncDataType = "location"
	SyncDataBrowsing SyncDataType = "browsing"
)

// SyncLogEntry records one transmitted batch.
type SyncLogEntry struct {
	ID        string       `json:"id"`
	UserID    string       `json:"userId"`
	DataType  SyncDataType `json:"dataType"`
	Count     int          `json:"count"`
	DateStart time.Time    `json:"dateStart"`
	DateEnd   time.Time    `json:"dateEnd"`
	SyncedAt  time.Time    `json:"syncedAt"`
}
