package model

import "time"

type Snapshot struct {
	Status          string     `json:"status"`
	Source          string     `json:"source"`
	Destination     string     `json:"destination"`
	StartedAt       time.Time  `json:"started_at"`
	Replicated      int        `json:"replicated"`
	Failed          int        `json:"failed"`
	LastReplication *time.Time `json:"last_replication"`
	LastError       string     `json:"last_error,omitempty"`
}
