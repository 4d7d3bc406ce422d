package model

import (
	"time"

	"gorm.io/gorm"
)

type History struct {
	gorm.Model
	Outcome      Outcome   `gorm:"not null;index" json:"outcome"`
	Source       string    `gorm:"not null" json:"source"`
	Destination  string    `gorm:"not null" json:"destination"`
	Bytes        int64     `json:"bytes"`
	Checksum     string    `json:"checksum"`
	ErrMsg       string    `json:"error,omitempty"`
	ReplicatedAt time.Time `gorm:"not null;index" json:"replicated_at"`
}

func NewHistory(r ReplicationResult) History {
	h := History{
		Outcome:      r.Outcome,
		Source:       r.Source,
		Destination:  r.Destination,
		Bytes:        r.Bytes,
		Checksum:     r.Checksum,
		ReplicatedAt: r.Timestamp,
	}
	if r.Err != nil {
		h.ErrMsg = r.Err.Error()
	}

	return h
}
