package cmd

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/alenjb/deli/internal/logger"
	"github.com/alenjb/deli/internal/orders"
	"github.com/spf13/cobra"
)

var consumeCmd = &cobra.Command{
	Use:   "consume",
	Short: "Consume delivery completion events only",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		a, err := newApp(ctx, cfg)
		if err != nil {
			return err
		}
		defer a.Close()

		consumer, err := newConsumer(cfg)
		if err != nil {
			return err
		}
		defer consumer.Close()

		return orders.NewCompletionListener(a.orders, logger.New("listener")).Run(ctx, consumer)
	},
}

func init() {
	rootCmd.AddCommand(consumeCmd)
}
