package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sigbridge/internal/model"
	"time"

	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "View bridge status",
	RunE: func(cmd *cobra.Command, args []string) error {
		url, err := daemonURL("/status")
		if err != nil {
			return err
		}

		resp, err := http.Get(url)
		if err != nil {
			return fmt.Errorf("bridge not running: %w", err)
		}

		defer func(Body io.ReadCloser) {
			_ = Body.Close()
		}(resp.Body)

		var snap model.Snapshot
		if err := json.NewDecoder(resp.Body).Decode(&snap); err != nil {
			return fmt.Errorf("failed to decode status response: %w", err)
		}

		lastSync := "-"
		if snap.LastReplication != nil {
			lastSync = snap.LastReplication.Format("2006-01-02 15:04:05")
		}

		fmt.Printf("status:      %s\n", snap.Status)
		fmt.Printf("source:      %s\n", snap.Source)
		fmt.Printf("destination: %s\n", snap.Destination)
		fmt.Printf("replicated:  %d\n", snap.Replicated)
		fmt.Printf("failed:      %d\n", snap.Failed)
		fmt.Printf("last copy:   %s\n", lastSync)
		if !snap.StartedAt.IsZero() {
			fmt.Printf("uptime:      %s\n", time.Since(snap.StartedAt).Round(time.Second))
		}
		if snap.LastError != "" {
			fmt.Printf("last error:  %s\n", snap.LastError)
		}

		return nil
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
