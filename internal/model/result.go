package model

import "time"

type Outcome string

const (
	OutcomeSuccess          Outcome = "SUCCESS"
	OutcomeTransientFailure Outcome = "TRANSIENT_FAILURE"
)

type ReplicationResult struct {
	Outcome     Outcome
	Timestamp   time.Time
	Source      string
	Destination string
	Bytes       int64
	Checksum    string
	Duration    time.Duration
	Err         error
}

func (r ReplicationResult) OK() bool {
	return r.Outcome == OutcomeSuccess
}
