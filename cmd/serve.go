package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/alenjb/deli/internal/api"
	"github.com/alenjb/deli/internal/logger"
	"github.com/alenjb/deli/internal/orders"
	"github.com/alenjb/deli/internal/scheduler"
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API, the completion consumer and the nightly scheduler",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		a, err := newApp(ctx, cfg)
		if err != nil {
			return err
		}
		defer a.Close()

		var tasks []func(context.Context) error

		if cfg.HTTP.Enabled {
			if cfg.Log.Level != "debug" {
				gin.SetMode(gin.ReleaseMode)
			}
			log := logger.New("api")
			handler := api.NewHandler(a.orders, a.aggregator, a.db.Stores(), log)
			server := api.NewServer(cfg.HTTP.Port, api.NewRouter(handler, log), cfg.HTTP.ShutdownTimeout, log)
			tasks = append(tasks, server.Run)
		}

		if cfg.Consumer.Enabled {
			consumer, err := newConsumer(cfg)
			if err != nil {
				return err
			}
			defer consumer.Close()
			listener := orders.NewCompletionListener(a.orders, logger.New("listener"))
			tasks = append(tasks, func(ctx context.Context) error { return listener.Run(ctx, consumer) })
		}

		if cfg.Nightly.Enabled {
			job, err := a.nightlyJob(ctx)
			if err != nil {
				return err
			}
			hour, minute, _ := cfg.NightlyRunAt()
			sched := scheduler.NewScheduler(job, hour, minute, a.loc, logger.New("scheduler"))
			tasks = append(tasks, sched.Run)
		}

		if len(tasks) == 0 {
			return fmt.Errorf("nothing to run: http, consumer and nightly are all disabled")
		}
		return runAll(ctx, tasks...)
	},
}

// runAll runs tasks concurrently. The first failure cancels the others and is returned.
func runAll(ctx context.Context, tasks ...func(context.Context) error) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		wg       sync.WaitGroup
		once     sync.Once
		firstErr error
	)
	for _, task := range tasks {
		wg.Add(1)
		go func(task func(context.Context) error) {
			defer wg.Done()
			if err := task(ctx); err != nil {
				once.Do(func() {
					firstErr = err
					cancel()
				})
			}
		}(task)
	}
	wg.Wait()
	return firstErr
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
