package syncer

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"os"
	"path/filepath"
	"runtime"
	"sigbridge/internal/logger"
	"sigbridge/internal/model"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

const testSettle = 20 * time.Millisecond

type resultLog struct {
	mu      sync.Mutex
	results []model.ReplicationResult
}

func (l *resultLog) Record(r model.ReplicationResult) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.results = append(l.results, r)
}

func (l *resultLog) len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.results)
}

func (l *resultLog) last() model.ReplicationResult {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.results[len(l.results)-1]
}

func newTarget(t *testing.T) model.WatchTarget {
	t.Helper()

	src := filepath.Join(t.TempDir(), "sig.txt")
	if err := os.WriteFile(src, nil, 0644); err != nil {
		t.Fatalf("Failed to create source: %v", err)
	}

	dstDir := filepath.Join(t.TempDir(), "out")
	if err := os.MkdirAll(dstDir, 0755); err != nil {
		t.Fatalf("Failed to create destination dir: %v", err)
	}

	target, err := model.NewWatchTarget(src, filepath.Join(dstDir, "alerts.txt"))
	if err != nil {
		t.Fatalf("NewWatchTarget failed: %v", err)
	}
	return target
}

func observeLogs(t *testing.T) *observer.ObservedLogs {
	t.Helper()

	core, logs := observer.New(zapcore.DebugLevel)
	prev := logger.Log
	logger.Log = zap.New(core)
	t.Cleanup(func() { logger.Log = prev })
	return logs
}

func readFile(t *testing.T, path string) string {
	t.Helper()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read %s: %v", path, err)
	}
	return string(data)
}

func waitFor(timeout time.Duration, cond func() bool) bool {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(5 * time.Millisecond)
	}
	return cond()
}

func TestReplicate_CopiesContent(t *testing.T) {
	target := newTarget(t)
	s := New(target, WithSettleDelay(testSettle))
	defer s.Close()

	if err := os.WriteFile(target.Source, []byte("BUY EURUSD"), 0644); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	result := s.Replicate()
	if !result.OK() {
		t.Fatalf("Expected success, got %s: %v", result.Outcome, result.Err)
	}

	if got := readFile(t, target.Destination); got != "BUY EURUSD" {
		t.Errorf("Expected %q, got %q", "BUY EURUSD", got)
	}

	sum := sha256.Sum256([]byte("BUY EURUSD"))
	if result.Checksum != hex.EncodeToString(sum[:]) {
		t.Errorf("Unexpected checksum %s", result.Checksum)
	}
	if result.Bytes != int64(len("BUY EURUSD")) {
		t.Errorf("Expected %d bytes, got %d", len("BUY EURUSD"), result.Bytes)
	}
	if result.Timestamp.IsZero() {
		t.Error("Expected a timestamp")
	}
}

func TestReplicate_WaitsForSettleDelay(t *testing.T) {
	target := newTarget(t)
	s := New(target, WithSettleDelay(80*time.Millisecond))
	defer s.Close()

	start := time.Now()
	s.Replicate()

	if elapsed := time.Since(start); elapsed < 80*time.Millisecond {
		t.Errorf("Expected Replicate to wait at least 80ms, took %s", elapsed)
	}
}

func TestReplicate_MissingDestinationDirIsTransient(t *testing.T) {
	logs := observeLogs(t)
	target := newTarget(t)
	s := New(target, WithSettleDelay(testSettle))
	defer s.Close()

	if err := os.WriteFile(target.Source, []byte("SELL USDJPY"), 0644); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	if err := os.RemoveAll(filepath.Dir(target.Destination)); err != nil {
		t.Fatalf("RemoveAll failed: %v", err)
	}

	result := s.Replicate()
	if result.Outcome != model.OutcomeTransientFailure {
		t.Fatalf("Expected transient failure, got %s", result.Outcome)
	}
	if result.Err == nil {
		t.Error("Expected an error on the result")
	}
	if logs.FilterMessage("replication failed").Len() != 1 {
		t.Error("Expected the failure to be logged")
	}

	if err := os.MkdirAll(filepath.Dir(target.Destination), 0755); err != nil {
		t.Fatalf("MkdirAll failed: %v", err)
	}

	result = s.Replicate()
	if !result.OK() {
		t.Fatalf("Expected success after restoring the directory, got %v", result.Err)
	}
	if got := readFile(t, target.Destination); got != "SELL USDJPY" {
		t.Errorf("Expected %q, got %q", "SELL USDJPY", got)
	}
}

func TestReplicate_MissingSourceKeepsDestination(t *testing.T) {
	target := newTarget(t)
	s := New(target, WithSettleDelay(testSettle))
	defer s.Close()

	if err := os.WriteFile(target.Destination, []byte("previous"), 0644); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	if err := os.Remove(target.Source); err != nil {
		t.Fatalf("Remove failed: %v", err)
	}

	result := s.Replicate()
	if result.Outcome != model.OutcomeTransientFailure {
		t.Fatalf("Expected transient failure, got %s", result.Outcome)
	}
	if got := readFile(t, target.Destination); got != "previous" {
		t.Errorf("Expected destination to keep %q, got %q", "previous", got)
	}
}

func TestTrigger_CoalescesBurst(t *testing.T) {
	target := newTarget(t)
	results := &resultLog{}
	s := New(target, WithSettleDelay(150*time.Millisecond), WithRecorder(results))
	defer s.Close()

	for i := 0; i < 10; i++ {
		line := []byte("BUY EURUSD " + string(rune('0'+i)) + "\n")
		f, err := os.OpenFile(target.Source, os.O_APPEND|os.O_WRONLY, 0644)
		if err != nil {
			t.Fatalf("Open failed: %v", err)
		}
		_, _ = f.Write(line)
		_ = f.Close()
		s.Trigger()
	}

	time.Sleep(500 * time.Millisecond)

	if n := results.len(); n != 1 {
		t.Fatalf("Expected exactly 1 replication, got %d", n)
	}
	if got, want := readFile(t, target.Destination), readFile(t, target.Source); got != want {
		t.Errorf("Expected destination %q, got %q", want, got)
	}
}

func TestTrigger_ConvergesToLatest(t *testing.T) {
	target := newTarget(t)
	results := &resultLog{}
	s := New(target, WithSettleDelay(testSettle), WithRecorder(results))
	defer s.Close()

	for i := 0; i < 20; i++ {
		content := bytes.Repeat([]byte{byte('a' + i)}, 1024*(i+1))
		if err := os.WriteFile(target.Source, content, 0644); err != nil {
			t.Fatalf("Write failed: %v", err)
		}
		s.Trigger()
		time.Sleep(time.Duration(i%4) * 7 * time.Millisecond)
	}

	want := readFile(t, target.Source)
	if !waitFor(2*time.Second, func() bool {
		data, err := os.ReadFile(target.Destination)
		return err == nil && string(data) == want
	}) {
		t.Fatal("Destination did not converge to the latest source content")
	}
}

func TestReplicate_ReaderNeverSeesMixedContent(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("rename over a file held open by a reader fails on windows")
	}

	target := newTarget(t)
	s := New(target, WithSettleDelay(0))
	defer s.Close()

	const size = 256 * 1024
	versions := [][]byte{
		bytes.Repeat([]byte{'a'}, size),
		bytes.Repeat([]byte{'b'}, size),
	}

	if err := os.WriteFile(target.Source, versions[0], 0644); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	if r := s.Replicate(); !r.OK() {
		t.Fatalf("Initial replicate failed: %v", r.Err)
	}

	var stop atomic.Bool
	var bad atomic.Int32
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for !stop.Load() {
			data, err := os.ReadFile(target.Destination)
			if err != nil {
				continue
			}
			if len(data) != size || (!bytes.Equal(data, versions[0]) && !bytes.Equal(data, versions[1])) {
				bad.Add(1)
			}
		}
	}()

	for i := 1; i <= 30; i++ {
		if err := os.WriteFile(target.Source, versions[i%2], 0644); err != nil {
			t.Fatalf("Write failed: %v", err)
		}
		if r := s.Replicate(); !r.OK() {
			t.Fatalf("Replicate failed: %v", r.Err)
		}
	}

	stop.Store(true)
	wg.Wait()

	if n := bad.Load(); n != 0 {
		t.Errorf("Reader observed %d partial or mixed reads", n)
	}
}

func TestClose_RunsPendingTrigger(t *testing.T) {
	target := newTarget(t)
	results := &resultLog{}
	s := New(target, WithSettleDelay(50*time.Millisecond), WithRecorder(results))

	if err := os.WriteFile(target.Source, []byte("CLOSE ALL"), 0644); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	s.Trigger()
	s.Close()

	if n := results.len(); n != 1 {
		t.Fatalf("Expected the pending trigger to run before Close returned, got %d runs", n)
	}
	if got := readFile(t, target.Destination); got != "CLOSE ALL" {
		t.Errorf("Expected %q, got %q", "CLOSE ALL", got)
	}
}

func TestClose_IsIdempotentAndIgnoresLateTriggers(t *testing.T) {
	target := newTarget(t)
	results := &resultLog{}
	s := New(target, WithSettleDelay(testSettle), WithRecorder(results))

	s.Close()
	s.Close()
	s.Trigger()

	time.Sleep(60 * time.Millisecond)
	if n := results.len(); n != 0 {
		t.Errorf("Expected no replication after Close, got %d", n)
	}
}

func TestOnChange_Triggers(t *testing.T) {
	target := newTarget(t)
	results := &resultLog{}
	s := New(target, WithSettleDelay(testSettle), WithRecorder(RecorderFunc(results.Record)))
	defer s.Close()

	s.OnChange(model.ChangeEvent{Path: target.Source, Kind: model.EventModified, Timestamp: time.Now()})

	if !waitFor(time.Second, func() bool { return results.len() == 1 }) {
		t.Fatal("Expected OnChange to cause one replication")
	}
	if !results.last().OK() {
		t.Errorf("Expected success, got %v", results.last().Err)
	}
}
