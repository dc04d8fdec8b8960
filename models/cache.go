package models

import (
	"encoding/json"
	"time"
)

// CacheRecordVersion tags the current CacheRecord shape.
const CacheRecordVersion = 1

// CacheRecord is the value written to the payload cache when a card is
// activated. The payload is kept opaque; detail pages normalize it on read.
type CacheRecord struct {
	Version        int             `json:"v"`
	StoredAtMillis int64           `json:"at"`
	Data           json.RawMessage `json:"data"`
}

// NewCacheRecord stamps a payload with the current version and time.
func NewCacheRecord(data json.RawMessage, now time.Time) CacheRecord {
	return CacheRecord{
		Version:        CacheRecordVersion,
		StoredAtMillis: now.UnixMilli(),
		Data:           data,
	}
}

// RequestedMarker records that a title request already succeeded for a profile.
type RequestedMarker struct {
	ProfileID   string    `json:"profileId"`
	ItemID      string    `json:"itemId"`
	Table       string    `json:"table"`
	RequestedAt time.Time `json:"requestedAt"`
}
