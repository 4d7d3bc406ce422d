package daemon

import (
	"sigbridge/internal/model"
	"sync"
	"time"
)

type Status string

const (
	StatusIdle     Status = "IDLE"
	StatusStarting Status = "STARTING"
	StatusRunning  Status = "RUNNING"
	StatusStopping Status = "STOPPING"
	StatusStopped  Status = "STOPPED"
)

// State tracks the loop's lifecycle and counts replication outcomes. It is
// safe for concurrent use.
type State struct {
	mu              sync.RWMutex
	target          model.WatchTarget
	status          Status
	startedAt       time.Time
	replicated      int
	failed          int
	lastReplication *time.Time
	lastError       string
}

func NewState(target model.WatchTarget) *State {
	return &State{
		target: target,
		status: StatusIdle,
	}
}

func (s *State) Record(result model.ReplicationResult) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.lastReplication = new(result.Timestamp)
	if result.Err != nil {
		s.failed++
		s.lastError = result.Err.Error()
	} else {
		s.replicated++
	}
}

func (s *State) Status() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.status
}

func (s *State) setStatus(status Status) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.status = status
	if status == StatusRunning {
		s.startedAt = time.Now()
	}
}

// transition moves from one status to another and reports whether the
// state was in from.
func (s *State) transition(from, to Status) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.status != from {
		return false
	}
	s.status = to
	return true
}

func (s *State) Snapshot() model.Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return model.Snapshot{
		Status:          string(s.status),
		Source:          s.target.Source,
		Destination:     s.target.Destination,
		StartedAt:       s.startedAt,
		Replicated:      s.replicated,
		Failed:          s.failed,
		LastReplication: s.lastReplication,
		LastError:       s.lastError,
	}
}
