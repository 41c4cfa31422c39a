package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var nightlyDate string

var nightlyCmd = &cobra.Command{
	Use:   "nightly",
	Short: "Aggregate the previous day's deliveries once and exit",
	Long: `nightly runs the same aggregation the scheduler triggers at nightly.run_at. The window
is the day before --date (default today) in the configured time zone.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := newApp(ctx, cfg)
		if err != nil {
			return err
		}
		defer a.Close()

		now := time.Now().In(a.loc)
		if nightlyDate != "" {
			now, err = time.ParseInLocation(time.DateOnly, nightlyDate, a.loc)
			if err != nil {
				return fmt.Errorf("invalid --date %q: %w", nightlyDate, err)
			}
		}

		job, err := a.nightlyJob(ctx)
		if err != nil {
			return err
		}
		result, err := job.Run(ctx, now)
		if err != nil {
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "%s: %d stores aggregated, %d failed\n",
			result.Start.Format(time.DateOnly), len(result.Stores)-result.Failed(), result.Failed())
		return nil
	},
}

func init() {
	nightlyCmd.Flags().StringVar(&nightlyDate, "date", "", "anchor day as YYYY-MM-DD; the day before it is aggregated")
	rootCmd.AddCommand(nightlyCmd)
}
