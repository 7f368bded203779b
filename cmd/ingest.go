package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	ingestDate    string
	ingestOffline bool
)

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Fetch both boards and reconcile every flight into the store",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		mode := "ingest"
		if ingestOffline {
			mode = "" // snapshot replay needs no API key
		}
		if err := cfg.Validate(mode); err != nil {
			return err
		}

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		ing, zone, err := newIngestor(st, !ingestOffline)
		if err != nil {
			return err
		}

		date, err := resolveDate(zone, ingestDate)
		if err != nil {
			return err
		}

		res, err := ing.Run(ctx, date, ingestOffline)
		if err != nil {
			return err
		}

		fmt.Printf("run %s: %d fetched, %d stored, %d skipped for %s\n",
			res.RunID, res.Fetched, res.Stored, res.Skipped, res.QueryDate)
		return nil
	},
}

func init() {
	ingestCmd.Flags().StringVar(&ingestDate, "date", "", "date to ingest (YYYY-MM-DD, today, yesterday; default today)")
	ingestCmd.Flags().BoolVar(&ingestOffline, "offline", false, "replay stored snapshots instead of calling the API")
	rootCmd.AddCommand(ingestCmd)
}
