package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	mongodriver "go.mongodb.org/mongo-driver/mongo"

	"venuecal/internal/app/middleware"
	appoutbox "venuecal/internal/app/outbox"
	"venuecal/internal/domain/reservation"
	"venuecal/internal/domain/venueevent"
	"venuecal/internal/infra/broker/kafka"
	redisstore "venuecal/internal/infra/cache/redis"
	"venuecal/internal/infra/config"
	mongostore "venuecal/internal/infra/db/mongo"
	"venuecal/internal/infra/db/sqlstore"
	"venuecal/internal/infra/inbox"
	"venuecal/internal/infra/obs"
	"venuecal/internal/infra/outbox"
	"venuecal/internal/infra/storage/memory"
)

// stores is every persistence port the application needs, chosen by configuration.
type stores struct {
	reservations reservation.Gateway
	events       venueevent.Repository
	idempotency  middleware.IdempotencyStore
	outbox       appoutbox.Outbox
	claims       appoutbox.ClaimStore
	inbox        kafka.Inbox

	checks  map[string]obs.Check
	closers []func(context.Context) error

	mongo *mongostore.Client
}

func openStores(ctx context.Context, cfg config.Config, logger *slog.Logger) (*stores, error) {
	st := &stores{checks: map[string]obs.Check{}}
	if err := st.openLedger(ctx, cfg, logger); err != nil {
		st.close(logger)
		return nil, err
	}
	if err := st.openIdempotency(ctx, cfg); err != nil {
		st.close(logger)
		return nil, err
	}
	if err := st.openMessaging(ctx, cfg); err != nil {
		st.close(logger)
		return nil, err
	}
	return st, nil
}

func (st *stores) openLedger(ctx context.Context, cfg config.Config, logger *slog.Logger) error {
	switch cfg.StoreDriver {
	case config.StoreMemory:
		st.reservations = memory.NewReservationGateway()
		st.events = memory.NewEventRepository()
	case config.StoreMongo:
		db, err := st.mongoDB(ctx, cfg)
		if err != nil {
			return err
		}
		gw := mongostore.NewReservationGateway(db)
		if err := gw.EnsureIndexes(ctx); err != nil {
			return fmt.Errorf("reservation indexes: %w", err)
		}
		repo := mongostore.NewEventRepository(db)
		if err := repo.EnsureIndexes(ctx); err != nil {
			return fmt.Errorf("event indexes: %w", err)
		}
		st.reservations, st.events = gw, repo
	case config.StorePostgres, config.StoreSQLite:
		dsn := cfg.PostgresDSN
		if cfg.StoreDriver == config.StoreSQLite {
			dsn = cfg.SQLitePath
		}
		db, err := sqlstore.Open(cfg.StoreDriver, dsn, logger)
		if err != nil {
			return err
		}
		sqlDB, err := db.DB()
		if err != nil {
			return err
		}
		st.checks["sql"] = sqlDB.PingContext
		st.closers = append(st.closers, func(context.Context) error { return sqlstore.Close(db) })
		st.reservations = sqlstore.NewReservationGateway(db)
		st.events = sqlstore.NewEventRepository(db)
	default:
		return fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
	}
	return nil
}

func (st *stores) openIdempotency(ctx context.Context, cfg config.Config) error {
	switch cfg.IdempotencyBackend {
	case config.StoreMemory:
		st.idempotency = memory.NewIdempotencyStore(cfg.IdempotencyTTL)
	case config.StoreMongo:
		db, err := st.mongoDB(ctx, cfg)
		if err != nil {
			return err
		}
		store, err := mongostore.NewIdempotencyStore(ctx, db, cfg.IdempotencyTTL)
		if err != nil {
			return fmt.Errorf("idempotency indexes: %w", err)
		}
		st.idempotency = store
	case config.IdempotencyRedis:
		client, err := redisstore.NewClient(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			return fmt.Errorf("redis: %w", err)
		}
		st.checks["redis"] = func(ctx context.Context) error { return client.Ping(ctx).Err() }
		st.closers = append(st.closers, func(context.Context) error { return client.Close() })
		st.idempotency = redisstore.NewIdempotencyStore(client, cfg.IdempotencyTTL)
	default:
		return fmt.Errorf("unknown idempotency backend %q", cfg.IdempotencyBackend)
	}
	return nil
}

// openMessaging picks the outbox and inbox. Without Kafka records are dropped on flush;
// with Kafka they are kept for the worker, durably when mongo is configured.
func (st *stores) openMessaging(ctx context.Context, cfg config.Config) error {
	if !cfg.KafkaEnabled() {
		st.outbox = memory.NewOutbox(false)
		return nil
	}
	if cfg.MongoURI == "" {
		box := memory.NewOutbox(true)
		st.outbox, st.claims = box, box
		st.inbox = memory.NewInbox()
		return nil
	}
	db, err := st.mongoDB(ctx, cfg)
	if err != nil {
		return err
	}
	box, err := outbox.NewStore(ctx, db)
	if err != nil {
		return fmt.Errorf("outbox indexes: %w", err)
	}
	in, err := inbox.NewStore(ctx, db, cfg.ConsumerGroup)
	if err != nil {
		return fmt.Errorf("inbox indexes: %w", err)
	}
	st.outbox, st.claims, st.inbox = box, box, in
	return nil
}

// mongoDB connects on first use so the ledger, idempotency and outbox share one client.
func (st *stores) mongoDB(ctx context.Context, cfg config.Config) (*mongodriver.Database, error) {
	if st.mongo != nil {
		return st.mongo.DB, nil
	}
	client, err := mongostore.New(ctx, cfg.MongoURI, cfg.MongoDB)
	if err != nil {
		return nil, fmt.Errorf("mongo connect: %w", err)
	}
	st.mongo = client
	st.checks["mongo"] = client.Ping
	st.closers = append(st.closers, client.Close)
	return client.DB, nil
}

func (st *stores) close(logger *slog.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	for i := len(st.closers) - 1; i >= 0; i-- {
		if err := st.closers[i](ctx); err != nil {
			logger.Warn("closing store failed", "error", err)
		}
	}
	st.closers = nil
}
