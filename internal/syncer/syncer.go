package syncer

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"sigbridge/internal/logger"
	"sigbridge/internal/model"
	"sigbridge/internal/util"
	"sync"
	"time"

	"go.uber.org/zap"
)

const DefaultSettleDelay = 100 * time.Millisecond

// Recorder receives every replication result.
type Recorder interface {
	Record(model.ReplicationResult)
}

type RecorderFunc func(model.ReplicationResult)

func (f RecorderFunc) Record(r model.ReplicationResult) { f(r) }

type Option func(*Syncer)

func WithSettleDelay(d time.Duration) Option {
	return func(s *Syncer) {
		s.settleDelay = d
	}
}

func WithRecorder(r Recorder) Option {
	return func(s *Syncer) {
		s.recorders = append(s.recorders, r)
	}
}

// Syncer copies the source file over the destination whenever it is
// triggered. Triggers that arrive while a copy is pending or running are
// folded into a single follow-up run.
type Syncer struct {
	target      model.WatchTarget
	settleDelay time.Duration
	recorders   []Recorder

	copyMu sync.Mutex

	mu        sync.Mutex
	closed    bool
	triggerCh chan struct{}
	doneCh    chan struct{}
	closeOnce sync.Once
}

func New(target model.WatchTarget, opts ...Option) *Syncer {
	s := &Syncer{
		target:      target,
		settleDelay: DefaultSettleDelay,
		triggerCh:   make(chan struct{}, 1),
		doneCh:      make(chan struct{}),
	}

	for _, opt := range opts {
		opt(s)
	}

	go s.run()
	return s
}

// OnChange adapts Trigger to the watcher's callback.
func (s *Syncer) OnChange(event model.ChangeEvent) {
	logger.Log.Debug("change detected",
		zap.String("path", event.Path),
		zap.Time("at", event.Timestamp))
	s.Trigger()
}

// Trigger asks for a replication and returns immediately. It is a no-op
// after Close.
func (s *Syncer) Trigger() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}

	select {
	case s.triggerCh <- struct{}{}:
	default:
		// a run is already pending and will read the latest content
	}
}

// Close stops accepting triggers and waits for the running copy and any
// pending one to finish.
func (s *Syncer) Close() {
	s.closeOnce.Do(func() {
		s.mu.Lock()
		s.closed = true
		close(s.triggerCh)
		s.mu.Unlock()
	})

	<-s.doneCh
}

func (s *Syncer) run() {
	defer close(s.doneCh)

	for range s.triggerCh {
		s.Replicate()
	}
}

// Replicate waits for the settle delay and then copies the source over the
// destination. Calls are serialized. Copy errors are reported in the result
// and never returned.
func (s *Syncer) Replicate() model.ReplicationResult {
	s.copyMu.Lock()
	defer s.copyMu.Unlock()

	time.Sleep(s.settleDelay)
	s.absorbPending()

	result := s.copyOnce()
	s.report(result)

	return result
}

// absorbPending drops a trigger that arrived during the settle delay; the
// copy that follows already covers it.
func (s *Syncer) absorbPending() {
	select {
	case <-s.triggerCh:
	default:
	}
}

func (s *Syncer) copyOnce() model.ReplicationResult {
	start := time.Now()
	result := model.ReplicationResult{
		Source:      s.target.Source,
		Destination: s.target.Destination,
	}

	n, sum, err := copyFile(s.target.Source, s.target.Destination)
	result.Timestamp = time.Now()
	result.Duration = result.Timestamp.Sub(start)
	result.Bytes = n

	if err != nil {
		result.Outcome = model.OutcomeTransientFailure
		result.Err = err
		return result
	}

	result.Outcome = model.OutcomeSuccess
	result.Checksum = sum
	return result
}

func (s *Syncer) report(result model.ReplicationResult) {
	if result.Err != nil {
		logger.Log.Error("replication failed",
			zap.String("src", result.Source),
			zap.String("dst", result.Destination),
			zap.Error(result.Err))
	} else {
		logger.Log.Info("replicated",
			zap.String("at", result.Timestamp.Format("15:04:05")),
			zap.String("dst", result.Destination),
			zap.Int64("bytes", result.Bytes),
			zap.Duration("took", result.Duration))
	}

	for _, r := range s.recorders {
		r.Record(result)
	}
}

func copyFile(src, dst string) (int64, string, error) {
	f, err := os.Open(src)
	if err != nil {
		return 0, "", fmt.Errorf("failed to open src: %w", err)
	}

	defer func(f *os.File) {
		_ = f.Close()
	}(f)

	info, err := f.Stat()
	if err != nil {
		return 0, "", fmt.Errorf("failed to stat src: %w", err)
	}

	h := sha256.New()
	n, err := util.AtomicWrite(dst, io.TeeReader(f, h), info.Mode().Perm())
	if err != nil {
		return n, "", err
	}

	return n, hex.EncodeToString(h.Sum(nil)), nil
}
