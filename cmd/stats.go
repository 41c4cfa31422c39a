package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var statsStoreID string

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Inspect and refresh store delay statistics",
}

var statsRefreshCmd = &cobra.Command{
	Use:   "refresh",
	Short: "Fold a store's deliveries since its last analysis into its summary",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := newApp(ctx, cfg)
		if err != nil {
			return err
		}
		defer a.Close()

		summary, applied, err := a.aggregator.UpdateDelayStats(ctx, statsStoreID)
		if err != nil {
			return err
		}
		if !applied {
			fmt.Fprintf(cmd.OutOrStdout(), "%s: no new deliveries since %s\n", statsStoreID, summary.LastAnalyzedAt.Format("2006-01-02 15:04:05"))
			return nil
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s: %d orders, %d delayed (%.2f%%)\n",
			statsStoreID, summary.TotalOrders, summary.DelayedOrders, summary.DelayRate()*100)
		return nil
	},
}

var statsRankingCmd = &cobra.Command{
	Use:   "ranking",
	Short: "List stores by delay rate, highest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := newApp(ctx, cfg)
		if err != nil {
			return err
		}
		defer a.Close()

		summaries, err := a.aggregator.GetStoreRanking(ctx)
		if err != nil {
			return err
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "STORE\tNAME\tORDERS\tDELAYED\tRATE\tAVG DELAY")
		for _, s := range summaries {
			fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%.2f%%\t%.1fm\n",
				s.StoreID, s.StoreName, s.TotalOrders, s.DelayedOrders, s.DelayRate()*100, s.AvgDelayMinutes())
		}
		return w.Flush()
	},
}

func init() {
	statsRefreshCmd.Flags().StringVar(&statsStoreID, "store", "", "store id")
	cobra.CheckErr(statsRefreshCmd.MarkFlagRequired("store"))

	statsCmd.AddCommand(statsRefreshCmd, statsRankingCmd)
	rootCmd.AddCommand(statsCmd)
}
