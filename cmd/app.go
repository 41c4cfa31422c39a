package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/alenjb/deli/internal/events"
	"github.com/alenjb/deli/internal/events/console"
	"github.com/alenjb/deli/internal/events/kafka"
	"github.com/alenjb/deli/internal/events/rabbitmq"
	"github.com/alenjb/deli/internal/logger"
	"github.com/alenjb/deli/internal/models"
	"github.com/alenjb/deli/internal/orders"
	"github.com/alenjb/deli/internal/report"
	"github.com/alenjb/deli/internal/repositories"
	"github.com/alenjb/deli/internal/repositories/memory"
	"github.com/alenjb/deli/internal/repositories/postgres"
	"github.com/alenjb/deli/internal/scheduler"
	"github.com/alenjb/deli/internal/stats"
)

// app holds the dependencies shared by the subcommands.
type app struct {
	cfg        *models.Config
	loc        *time.Location
	db         repositories.DB
	publisher  events.Publisher
	aggregator *stats.Aggregator
	orders     *orders.Service
}

func newApp(ctx context.Context, cfg *models.Config) (*app, error) {
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}

	db, err := openDB(ctx, cfg)
	if err != nil {
		return nil, err
	}

	publisher, err := newPublisher(cfg)
	if err != nil {
		db.Close()
		return nil, err
	}

	aggregator := stats.NewAggregator(db, logger.New("stats"))
	return &app{
		cfg:        cfg,
		loc:        loc,
		db:         db,
		publisher:  publisher,
		aggregator: aggregator,
		orders:     orders.NewService(db, aggregator, publisher, loc, cfg.CookingCompletedMinutes, logger.New("orders")),
	}, nil
}

func (a *app) Close() {
	if err := a.publisher.Close(); err != nil {
		logger.New("app").Warn("failed to close publisher", slog.String("error", err.Error()))
	}
	a.db.Close()
}

func openDB(ctx context.Context, cfg *models.Config) (repositories.DB, error) {
	switch cfg.Storage {
	case "memory":
		return memory.NewDB(), nil
	case "postgres":
		return postgres.Connect(ctx, cfg.Database)
	default:
		return nil, fmt.Errorf("unsupported storage %q", cfg.Storage)
	}
}

func newPublisher(cfg *models.Config) (events.Publisher, error) {
	log := logger.New("publisher")
	switch cfg.Broker {
	case "kafka":
		return kafka.NewProducer(cfg.Kafka, log)
	case "rabbitmq":
		return rabbitmq.NewPublisher(cfg.RabbitMQ, log)
	case "log":
		return console.NewPublisher(log), nil
	default:
		return nil, fmt.Errorf("unsupported broker %q", cfg.Broker)
	}
}

func newConsumer(cfg *models.Config) (events.Consumer, error) {
	log := logger.New("consumer")
	switch cfg.Broker {
	case "kafka":
		return kafka.NewConsumer(cfg.Kafka, log)
	case "rabbitmq":
		return rabbitmq.NewConsumer(cfg.RabbitMQ, log)
	case "log":
		return console.NewConsumer(log), nil
	default:
		return nil, fmt.Errorf("unsupported broker %q", cfg.Broker)
	}
}

func (a *app) nightlyJob(ctx context.Context) (*scheduler.NightlyJob, error) {
	var reporter scheduler.Reporter
	if a.cfg.Report.Enabled {
		w, err := report.NewWriter(ctx, a.cfg.Report, logger.New("report"))
		if err != nil {
			return nil, err
		}
		reporter = w
	}
	return scheduler.NewNightlyJob(a.db, a.aggregator, a.loc, a.cfg.Nightly.SkipAnalyzed, reporter, logger.New("nightly")), nil
}
