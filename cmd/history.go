package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sigbridge/internal/db"
	"sigbridge/internal/model"
	"sigbridge/internal/repository"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var (
	historyN      int
	historyFailed bool
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "View replication history",
	RunE: func(cmd *cobra.Command, args []string) error {
		histories, stats, err := fetchHistory()
		if err != nil {
			return err
		}

		if len(histories) == 0 {
			fmt.Println("no history yet")
			return nil
		}

		ok := color.New(color.FgGreen).SprintFunc()
		bad := color.New(color.FgRed).SprintFunc()

		fmt.Printf("%d total, %s ok, %s failed\n",
			stats.Total,
			ok(stats.Success),
			bad(stats.Failed),
		)

		for _, h := range histories {
			if h.Outcome == model.OutcomeSuccess {
				fmt.Printf("%s [%s] %6dB %s\n",
					ok("✓"),
					h.ReplicatedAt.Format("2006-01-02 15:04:05"),
					h.Bytes,
					h.Destination,
				)
				continue
			}

			fmt.Printf("%s [%s] %s\n",
				bad("✗"),
				h.ReplicatedAt.Format("2006-01-02 15:04:05"),
				h.ErrMsg,
			)
		}

		return nil
	},
}

// fetchHistory asks the running bridge first and reads the database
// directly when no bridge answers.
func fetchHistory() ([]model.History, repository.Stats, error) {
	if histories, stats, err := fetchRemoteHistory(); err == nil {
		return histories, stats, nil
	}

	if err := db.Init(cfg.Daemon.DBPath); err != nil {
		return nil, repository.Stats{}, err
	}

	defer func() {
		_ = db.Close()
	}()

	repo := repository.NewHistoryRepository()

	stats, err := repo.GetStats()
	if err != nil {
		return nil, stats, err
	}

	var histories []model.History
	if historyFailed {
		histories, err = repo.GetFailed(historyN)
	} else {
		histories, err = repo.GetRecent(historyN)
	}

	return histories, stats, err
}

func fetchRemoteHistory() ([]model.History, repository.Stats, error) {
	var (
		histories []model.History
		stats     repository.Stats
	)

	if err := getJSON(fmt.Sprintf("/history?n=%d&failed=%t", historyN, historyFailed), &histories); err != nil {
		return nil, stats, err
	}

	if err := getJSON("/history/stats", &stats); err != nil {
		return nil, stats, err
	}

	return histories, stats, nil
}

func getJSON(path string, v any) error {
	url, err := daemonURL(path)
	if err != nil {
		return err
	}

	resp, err := http.Get(url)
	if err != nil {
		return err
	}

	defer func(Body io.ReadCloser) {
		_ = Body.Close()
	}(resp.Body)

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %s", resp.Status)
	}

	return json.NewDecoder(resp.Body).Decode(v)
}

func init() {
	historyCmd.Flags().IntVar(&historyN, "n", 20, "number of history entries to show")
	historyCmd.Flags().BoolVar(&historyFailed, "failed", false, "show only failed replications")
	rootCmd.AddCommand(historyCmd)
}
