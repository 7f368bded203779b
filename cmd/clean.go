package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var cleanDate string

var cleanCmd = &cobra.Command{
	Use:   "clean",
	Short: "Re-reconcile stored records for a date without calling the API",
	Long:  "Replays reconciliation over records already in the store so that statuses progress once their effective times have passed. Useful after the last ingest of the day.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		if err := cfg.Validate(""); err != nil {
			return err
		}

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		ing, zone, err := newIngestor(st, false)
		if err != nil {
			return err
		}

		date, err := resolveDate(zone, cleanDate)
		if err != nil {
			return err
		}

		n, err := ing.CleanDate(ctx, date.DateLabel())
		if err != nil {
			return err
		}

		fmt.Printf("cleaned %d records for %s\n", n, date.DateLabel())
		return nil
	},
}

func init() {
	cleanCmd.Flags().StringVar(&cleanDate, "date", "", "date to clean (YYYY-MM-DD, today, yesterday; default today)")
	rootCmd.AddCommand(cleanCmd)
}
