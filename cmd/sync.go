package cmd

import (
	"fmt"
	"sigbridge/internal/db"
	"sigbridge/internal/logger"
	"sigbridge/internal/syncer"
	"sigbridge/internal/util"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Copy the source file to the destination once",
	RunE: func(cmd *cobra.Command, args []string) error {
		defer logger.Sync()

		target, err := validTarget()
		if err != nil {
			return err
		}

		if err := util.EnsureParentDir(target.Destination); err != nil {
			return err
		}

		var opts []syncer.Option
		if histRepo := openHistory(); histRepo != nil {
			defer func() { _ = db.Close() }()
			opts = append(opts, syncer.WithRecorder(histRepo))
		}

		logger.Log.Info("starting one-shot sync",
			zap.String("src", target.Source),
			zap.String("dst", target.Destination))

		s := syncer.New(target, append(opts, syncer.WithSettleDelay(cfg.Watch.SettleDelay))...)
		defer s.Close()

		result := s.Replicate()
		if result.Err != nil {
			return fmt.Errorf("sync failed: %w", result.Err)
		}

		fmt.Printf("copied %d bytes to %s\n", result.Bytes, result.Destination)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(syncCmd)
}
