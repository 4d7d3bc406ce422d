package daemon

import (
	"context"
	"errors"
	"fmt"
	"sigbridge/internal/logger"
	"sigbridge/internal/model"
	"sigbridge/internal/syncer"
	"sigbridge/internal/watcher"
	"time"

	"go.uber.org/zap"
)

var ErrAlreadyRun = errors.New("loop has already been run")

type LoopOption func(*Loop)

func WithSettleDelay(d time.Duration) LoopOption {
	return func(l *Loop) {
		l.settleDelay = d
	}
}

func WithRecorder(r syncer.Recorder) LoopOption {
	return func(l *Loop) {
		l.recorders = append(l.recorders, r)
	}
}

// Loop wires the watcher to the syncer and owns both for the lifetime of
// one Run call.
type Loop struct {
	target      model.WatchTarget
	settleDelay time.Duration
	recorders   []syncer.Recorder
	state       *State
}

func NewLoop(target model.WatchTarget, opts ...LoopOption) *Loop {
	l := &Loop{
		target:      target,
		settleDelay: syncer.DefaultSettleDelay,
		state:       NewState(target),
	}

	for _, opt := range opts {
		opt(l)
	}

	return l
}

// Run starts watching and blocks until ctx is cancelled or the watcher
// fails after startup. A cancelled ctx yields nil. Any copy in progress is
// allowed to finish before Run returns.
func (l *Loop) Run(ctx context.Context) error {
	if !l.state.transition(StatusIdle, StatusStarting) {
		return ErrAlreadyRun
	}

	opts := []syncer.Option{
		syncer.WithSettleDelay(l.settleDelay),
		syncer.WithRecorder(l.state),
	}
	for _, r := range l.recorders {
		opts = append(opts, syncer.WithRecorder(r))
	}
	s := syncer.New(l.target, opts...)

	w, err := watcher.New()
	if err != nil {
		s.Close()
		l.state.setStatus(StatusStopped)
		return err
	}

	if err := w.Start(l.target, s.OnChange); err != nil {
		w.Stop()
		s.Close()
		l.state.setStatus(StatusStopped)
		return err
	}

	l.state.setStatus(StatusRunning)
	logger.Log.Info("bridge running",
		zap.String("src", l.target.Source),
		zap.String("dst", l.target.Destination),
		zap.Duration("settle_delay", l.settleDelay))

	var runErr error
	select {
	case <-ctx.Done():
		logger.Log.Info("shutting down")
	case err := <-w.Err():
		runErr = fmt.Errorf("watcher stopped: %w", err)
	}

	l.state.setStatus(StatusStopping)
	w.Stop()
	s.Close()
	l.state.setStatus(StatusStopped)

	logger.Log.Info("bridge stopped")
	return runErr
}

func (l *Loop) Status() Status {
	return l.state.Status()
}

func (l *Loop) Snapshot() model.Snapshot {
	return l.state.Snapshot()
}
