package repository

import (
	"errors"
	"path/filepath"
	"sigbridge/internal/db"
	"sigbridge/internal/model"
	"testing"
	"time"
)

func setupDB(t *testing.T) {
	t.Helper()

	if err := db.Init(filepath.Join(t.TempDir(), "history.db")); err != nil {
		t.Fatalf("db.Init failed: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
}

func result(outcome model.Outcome, at time.Time, err error) model.ReplicationResult {
	return model.ReplicationResult{
		Outcome:     outcome,
		Timestamp:   at,
		Source:      "/tmp/sig.txt",
		Destination: "/tmp/out/alerts.txt",
		Bytes:       10,
		Err:         err,
	}
}

func TestHistoryRepository_SaveAndStats(t *testing.T) {
	setupDB(t)
	repo := NewHistoryRepository()

	now := time.Now()
	repo.Record(result(model.OutcomeSuccess, now.Add(-2*time.Second), nil))
	repo.Record(result(model.OutcomeTransientFailure, now.Add(-time.Second), errors.New("permission denied")))
	repo.Record(result(model.OutcomeSuccess, now, nil))

	stats, err := repo.GetStats()
	if err != nil {
		t.Fatalf("GetStats failed: %v", err)
	}
	if stats.Total != 3 || stats.Success != 2 || stats.Failed != 1 {
		t.Errorf("Unexpected stats %+v", stats)
	}
}

func TestHistoryRepository_GetRecentNewestFirst(t *testing.T) {
	setupDB(t)
	repo := NewHistoryRepository()

	base := time.Now()
	for i := 0; i < 5; i++ {
		if err := repo.Save(result(model.OutcomeSuccess, base.Add(time.Duration(i)*time.Second), nil)); err != nil {
			t.Fatalf("Save failed: %v", err)
		}
	}

	recent, err := repo.GetRecent(3)
	if err != nil {
		t.Fatalf("GetRecent failed: %v", err)
	}
	if len(recent) != 3 {
		t.Fatalf("Expected 3 entries, got %d", len(recent))
	}
	for i := 1; i < len(recent); i++ {
		if recent[i].ReplicatedAt.After(recent[i-1].ReplicatedAt) {
			t.Errorf("Entries not ordered newest first: %v then %v", recent[i-1].ReplicatedAt, recent[i].ReplicatedAt)
		}
	}
}

func TestHistoryRepository_GetFailedKeepsErrorMessage(t *testing.T) {
	setupDB(t)
	repo := NewHistoryRepository()

	repo.Record(result(model.OutcomeSuccess, time.Now(), nil))
	repo.Record(result(model.OutcomeTransientFailure, time.Now(), errors.New("disk full")))

	failed, err := repo.GetFailed(10)
	if err != nil {
		t.Fatalf("GetFailed failed: %v", err)
	}
	if len(failed) != 1 {
		t.Fatalf("Expected 1 failed entry, got %d", len(failed))
	}
	if failed[0].ErrMsg != "disk full" {
		t.Errorf("Expected error message %q, got %q", "disk full", failed[0].ErrMsg)
	}
}
