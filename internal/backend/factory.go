package backend

import (
	"context"
	"fmt"
	"time"

	"expensetracker/internal/cache"
	"expensetracker/internal/config"
	"expensetracker/internal/core"
	"expensetracker/internal/events"
	"expensetracker/internal/events/amqp"
	"expensetracker/internal/events/kafka"
	"expensetracker/internal/ledger"
	"expensetracker/internal/ledger/memory"
	"expensetracker/internal/log"
	"expensetracker/internal/services"
	"expensetracker/internal/storage"
)

// DefaultFactory wires real stores and brokers.
type DefaultFactory struct {
	logger *log.Logger

	// Cleaners collects caches created by the factory so the caller can
	// sweep them.
	Cleaners []cache.Cleaner
}

func NewFactory(logger *log.Logger) *DefaultFactory {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &DefaultFactory{logger: logger.WithComponent(log.ComponentBackend)}
}

// CreateBackend opens the store, then connects the broker. A broker that
// cannot be reached is logged and replaced by a no-op publisher; a store
// that cannot be opened is fatal.
func (f *DefaultFactory) CreateBackend(ctx context.Context, cfg *config.Config) (Backend, error) {
	if cfg == nil {
		return nil, fmt.Errorf("app config is nil")
	}

	store, err := f.createStore(ctx, cfg)
	if err != nil {
		return nil, err
	}

	opts := []services.Option{
		services.WithLogger(f.logger),
		services.WithPublisher(f.createPublisher(cfg)),
	}
	if cfg.QueryCacheSize > 0 {
		lru := cache.NewLRUCache[[]core.Expense](cfg.QueryCacheSize, cfg.QueryCacheTTL)
		f.Cleaners = append(f.Cleaners, lru)
		opts = append(opts, services.WithCache(lru))
	}

	f.logger.Info("Initialized ledger backend",
		log.FieldBackend, cfg.LedgerBackend,
		log.FieldBroker, cfg.EventsBroker,
		"query_cache_size", cfg.QueryCacheSize)

	return services.NewLedgerService(store, opts...), nil
}

func (f *DefaultFactory) createStore(ctx context.Context, cfg *config.Config) (ledger.Store, error) {
	ctx = log.NewContext(ctx, f.logger.WithComponent(log.ComponentStorage))

	switch cfg.LedgerBackend {
	case config.BackendMemory, "":
		return memory.New(), nil
	case config.BackendSQLite:
		repo, err := storage.OpenSQLite(ctx, cfg.SQLiteDBPath)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize SQLite store: %w", err)
		}
		return repo, nil
	case config.BackendPostgres:
		repo, err := storage.OpenPostgres(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize Postgres store: %w", err)
		}
		return repo, nil
	default:
		return nil, fmt.Errorf("unsupported ledger backend: %s", cfg.LedgerBackend)
	}
}

func (f *DefaultFactory) createPublisher(cfg *config.Config) events.Publisher {
	logger := f.logger.WithComponent(log.ComponentEvents)

	switch cfg.EventsBroker {
	case config.BrokerAMQP:
		p, err := amqp.Dial(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Warn("Failed to initialize AMQP publisher, continuing without events", log.FieldError, err)
			return events.Nop{}
		}
		logger.Info("Initialized AMQP publisher", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
		return p
	case config.BrokerKafka:
		p, err := kafka.NewPublisher(kafka.Config{
			Brokers:      cfg.KafkaBrokers,
			Topic:        cfg.KafkaTopic,
			WriteTimeout: 5 * time.Second,
		}, logger)
		if err != nil {
			logger.Warn("Failed to initialize Kafka publisher, continuing without events", log.FieldError, err)
			return events.Nop{}
		}
		return p
	default:
		return events.Nop{}
	}
}
