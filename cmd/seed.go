package cmd

import (
	"fmt"
	"log/slog"
	"math/rand"
	"time"

	"github.com/alenjb/deli/internal/factories"
	"github.com/alenjb/deli/internal/logger"
	"github.com/alenjb/deli/internal/models"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Generate demo stores and, optionally, yesterday's delivered orders",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := newApp(ctx, cfg)
		if err != nil {
			return err
		}
		defer a.Close()

		log := logger.New("seed")
		sf := &factories.StoreFactory{}
		stores := make([]*models.Store, 0, cfg.Seed.Stores)
		for i := 0; i < cfg.Seed.Stores; i++ {
			stores = append(stores, sf.CreateStore(cfg.Seed))
		}
		if err := a.db.Stores().BulkCreate(ctx, stores); err != nil {
			return fmt.Errorf("failed to insert stores: %w", err)
		}
		log.Info("stores created", slog.Int("count", len(stores)))

		if cfg.Seed.OrdersPerStore <= 0 {
			return nil
		}

		// orders are placed and delivered over the previous day
		now := time.Now().In(a.loc)
		dayStart := time.Date(now.Year(), now.Month(), now.Day()-1, 0, 0, 0, 0, a.loc)

		of := &factories.OrderFactory{}
		bar := progressbar.Default(int64(len(stores)*cfg.Seed.OrdersPerStore), "seeding orders")
		for _, store := range stores {
			for i := 0; i < cfg.Seed.OrdersPerStore; i++ {
				createdAt := dayStart.Add(time.Duration(rand.Int63n(int64(22 * time.Hour))))
				order := of.CreateOrder(store, createdAt)
				if err := a.db.Orders().Create(ctx, order); err != nil {
					return fmt.Errorf("failed to insert order: %w", err)
				}
				if _, _, err := a.orders.CompleteDelivery(ctx, order.ID, of.DeliveryTime(order, cfg.Seed.LateRatio)); err != nil {
					return fmt.Errorf("failed to complete order %s: %w", order.ID, err)
				}
				_ = bar.Add(1)
			}
		}
		log.Info("orders created", slog.Int("count", len(stores)*cfg.Seed.OrdersPerStore))
		return nil
	},
}

func init() {
	seedCmd.Flags().Int("stores", 20, "number of stores to create")
	seedCmd.Flags().Int("orders-per-store", 0, "delivered orders to create per store")
	seedCmd.Flags().Float64("late-ratio", 0.2, "share of seeded deliveries that arrive late")
	cobra.CheckErr(viper.BindPFlag("seed.stores", seedCmd.Flags().Lookup("stores")))
	cobra.CheckErr(viper.BindPFlag("seed.orders_per_store", seedCmd.Flags().Lookup("orders-per-store")))
	cobra.CheckErr(viper.BindPFlag("seed.late_ratio", seedCmd.Flags().Lookup("late-ratio")))
	rootCmd.AddCommand(seedCmd)
}
