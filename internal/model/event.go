package model

import "time"

type EventKind string

const (
	EventModified EventKind = "MODIFIED"
	EventOther    EventKind = "OTHER"
)

type ChangeEvent struct {
	Path      string
	Kind      EventKind
	Timestamp time.Time
}
