package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tunis-skies/flightwatch/internal/report"
)

var (
	reportDate string
	reportXLSX string
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Render the daily delay summary for a departure date",
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

		_, zone, err := newIngestor(st, false)
		if err != nil {
			return err
		}

		date, err := resolveDate(zone, reportDate)
		if err != nil {
			return err
		}

		daily, err := report.Build(ctx, st, date.DateLabel())
		if err != nil {
			return err
		}

		fmt.Print(daily.Text())

		if reportXLSX != "" {
			if err := daily.WriteXLSX(reportXLSX); err != nil {
				return err
			}
			fmt.Printf("wrote %s\n", reportXLSX)
		}
		return nil
	},
}

func init() {
	reportCmd.Flags().StringVar(&reportDate, "date", "yesterday", "departure date to report on (YYYY-MM-DD, today, yesterday)")
	reportCmd.Flags().StringVar(&reportXLSX, "xlsx", "", "also write an xlsx export to this path")
	rootCmd.AddCommand(reportCmd)
}
