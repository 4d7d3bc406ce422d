package cmd

import (
	"context"
	"os"
	"os/signal"
	"sigbridge/internal/daemon"
	"sigbridge/internal/db"
	"sigbridge/internal/logger"
	"sigbridge/internal/model"
	"sigbridge/internal/repository"
	"sigbridge/internal/util"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Watch the source file and mirror it to the destination until interrupted",
	RunE:  runWatch,
}

func runWatch(cmd *cobra.Command, args []string) error {
	defer logger.Sync()

	target, err := validTarget()
	if err != nil {
		return err
	}

	if err := util.EnsureParentDir(target.Destination); err != nil {
		return err
	}

	opts := []daemon.LoopOption{daemon.WithSettleDelay(cfg.Watch.SettleDelay)}

	histRepo := openHistory()
	if histRepo != nil {
		defer func() { _ = db.Close() }()
		opts = append(opts, daemon.WithRecorder(histRepo))
	}

	loop := daemon.NewLoop(target, opts...)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// The status port doubles as a single-instance guard, so it is bound
	// before the source file is touched.
	if cfg.Daemon.Port != 0 {
		srv := daemon.NewServer(loop, histRepo, cfg.Daemon.Port)
		if err := srv.Start(); err != nil {
			return err
		}

		go func() {
			select {
			case <-srv.StopCh():
				logger.Log.Info("stop requested via API")
				stop()
			case <-ctx.Done():
			}
		}()

		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Stop(shutdownCtx)
		}()
	}

	created, err := util.ResetSource(target.Source)
	if err != nil {
		return err
	}
	if created {
		logger.Log.Info("created source file", zap.String("path", target.Source))
	} else {
		logger.Log.Info("cleared source file", zap.String("path", target.Source))
	}

	logger.Log.Info("press Ctrl+C to stop")
	return loop.Run(ctx)
}

func validTarget() (model.WatchTarget, error) {
	if err := cfg.Validate(); err != nil {
		return model.WatchTarget{}, err
	}

	return cfg.Target()
}

// openHistory returns nil when the database cannot be opened. History is
// a convenience and never blocks replication.
func openHistory() *repository.HistoryRepository {
	if err := db.Init(cfg.Daemon.DBPath); err != nil {
		logger.Log.Warn("history disabled",
			zap.String("db", cfg.Daemon.DBPath),
			zap.Error(err))
		return nil
	}

	return repository.NewHistoryRepository()
}

func init() {
	rootCmd.AddCommand(watchCmd)
}
