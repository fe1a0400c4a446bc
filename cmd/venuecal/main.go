package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"venuecal/internal/app/commands"
	calendarapp "venuecal/internal/app/handlers/calendar"
	eventapp "venuecal/internal/app/handlers/events"
	reservationapp "venuecal/internal/app/handlers/reservations"
	"venuecal/internal/app/middleware"
	"venuecal/internal/app/queries"
	"venuecal/internal/app/session"
	"venuecal/internal/app/slotsync"
	"venuecal/internal/app/timeslot"
	"venuecal/internal/domain/availability"
	"venuecal/internal/infra/broker/kafka"
	"venuecal/internal/infra/config"
	ginserver "venuecal/internal/infra/http/gin"
	"venuecal/internal/infra/obs"
	"venuecal/internal/infra/outbox"
)

const sessionIdleTimeout = 30 * time.Minute

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger := obs.NewLogger(getenv("APP_ENV", "dev"))

	cfg, err := config.Load()
	if err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	logger = obs.NewLogger(cfg.Env)
	slog.SetDefault(logger)

	st, err := openStores(ctx, cfg, logger)
	if err != nil {
		logger.Error("storage init failed", "driver", cfg.StoreDriver, "error", err)
		os.Exit(1)
	}
	defer st.close(logger)

	app, err := buildApplication(cfg, st, logger)
	if err != nil {
		logger.Error("application init failed", "error", err)
		os.Exit(1)
	}

	var wg sync.WaitGroup
	if cfg.KafkaEnabled() {
		if err := app.startMessaging(ctx, &wg, cfg, st, logger); err != nil {
			logger.Error("kafka init failed", "brokers", cfg.KafkaBrokers, "error", err)
			os.Exit(1)
		}
	}
	if cfg.ReconcileInterval > 0 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			app.reconcileLoop(ctx, cfg, logger)
		}()
	}

	server := ginserver.NewServer(cfg, obs.Middleware{Logger: logger}, obs.HealthHandlers{
		Checks:  st.checks,
		Timeout: 2 * time.Second,
	}, app.handlers)

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("http shutdown failed", "error", err)
		}
	}()

	logger.Info("HTTP server starting",
		"addr", cfg.HTTPAddr,
		"venue", cfg.Venue.Name,
		"store", cfg.StoreDriver,
		"idempotency", cfg.IdempotencyBackend,
		"kafka", cfg.KafkaEnabled(),
	)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("http server failed", "error", err)
		stop()
		wg.Wait()
		os.Exit(1)
	}
	wg.Wait()
	logger.Info("HTTP server stopped")
}

type application struct {
	handlers ginserver.Handlers
	commands commands.Bus
	location *time.Location
}

func buildApplication(cfg config.Config, st *stores, logger *slog.Logger) (*application, error) {
	hours, err := cfg.OperatingHours()
	if err != nil {
		return nil, err
	}
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}
	classifier, err := availability.NewClassifier(hours, cfg.Venue.BusyThreshold, logger)
	if err != nil {
		return nil, err
	}
	slots, err := timeslot.NewService(st.reservations, st.outbox, logger, cfg.StoreTimeout)
	if err != nil {
		return nil, err
	}
	syncer, err := slotsync.New(slots, logger)
	if err != nil {
		return nil, err
	}

	commandBus := commands.NewInMemoryBus()
	queryBus := queries.NewInMemoryBus()
	reservationapp.Register(commandBus, queryBus, slots)
	eventapp.Register(commandBus, queryBus, eventapp.Deps{
		Events:   st.events,
		Sync:     syncer,
		Outbox:   st.outbox,
		Location: loc,
		Logger:   logger,
	})
	calendarapp.Register(queryBus, slots, classifier)

	cache := ginserver.NewResponseCache(cfg.CacheTTL)
	readOnly := cfg.ReadOnly
	mws := []middleware.CommandMiddleware{
		middleware.Logging(logger),
		middleware.Guarded(middleware.ReadOnlyGuard{Enabled: func() bool { return readOnly }}),
		middleware.Validation(middleware.MessageValidator{}),
		middleware.Idempotency(st.idempotency, nil),
		middleware.Invalidating(cache),
	}
	if !cfg.KafkaEnabled() {
		mws = append(mws, middleware.OutboxFlush(st.outbox))
	}
	cmds := middleware.ChainCommands(commandBus, mws...)
	qs := middleware.ChainQueries(queryBus,
		middleware.QueryLogging(logger),
		middleware.QueryValidation(middleware.MessageValidator{}),
	)

	sessions := ginserver.NewSessionStore(sessionIdleTimeout, func() *session.Session {
		return session.New(slots, classifier)
	})

	return &application{
		commands: cmds,
		location: loc,
		handlers: ginserver.Handlers{
			Reservations: ginserver.ReservationHandler{Commands: cmds, Queries: qs, Logger: logger},
			Calendar:     ginserver.CalendarHandler{Queries: qs, Logger: logger},
			Events:       ginserver.EventHandler{Commands: cmds, Queries: qs, Logger: logger},
			Sessions:     ginserver.SessionHandler{Store: sessions, Invalidator: cache, Logger: logger},
			Cache:        cache,
		},
	}, nil
}

// startMessaging runs the outbox worker and the event lifecycle consumer until ctx ends.
func (a *application) startMessaging(ctx context.Context, wg *sync.WaitGroup, cfg config.Config, st *stores, logger *slog.Logger) error {
	producer, err := kafka.NewProducer(cfg.KafkaBrokers, kafka.NewConfig("venuecal"))
	if err != nil {
		return err
	}
	consumer, err := kafka.NewConsumer(cfg.KafkaBrokers, cfg.ConsumerGroup, kafka.NewConfig("venuecal"), &kafka.EventLifecycleHandler{
		Commands: a.commands,
		Inbox:    st.inbox,
		Logger:   logger,
	}, logger)
	if err != nil {
		_ = producer.Close()
		return err
	}
	consumer.Backoff = cfg.RetryBackoff

	worker := &outbox.Worker{
		Store:       st.claims,
		Producer:    producer,
		Logger:      logger,
		Interval:    cfg.OutboxPollInterval,
		TopicPrefix: cfg.KafkaTopicPrefix,
		Backoff:     cfg.RetryBackoff,
	}
	wg.Add(2)
	go func() {
		defer wg.Done()
		defer producer.Close()
		if err := worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("outbox worker stopped", "error", err)
		}
	}()
	go func() {
		defer wg.Done()
		defer consumer.Close()
		if err := consumer.Run(ctx, []string{cfg.EventsTopic}); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("event consumer stopped", "error", err)
		}
	}()
	logger.Info("kafka messaging started", "events_topic", cfg.EventsTopic, "group", cfg.ConsumerGroup)
	return nil
}

// reconcileLoop repairs the ledger for the next ReconcileDays days on every tick.
func (a *application) reconcileLoop(ctx context.Context, cfg config.Config, logger *slog.Logger) {
	ticker := time.NewTicker(cfg.ReconcileInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			cmd := reconcileWindow(time.Now().In(a.location), cfg.ReconcileDays)
			res, err := commands.Dispatch[eventapp.ReconcileCommand, any](ctx, a.commands, cmd)
			if err != nil {
				logger.Warn("scheduled reconcile failed", "from", cmd.From, "to", cmd.To, "error", err)
				continue
			}
			logger.Debug("scheduled reconcile done", "from", cmd.From, "to", cmd.To, "report", res)
		}
	}
}

func reconcileWindow(now time.Time, days int) eventapp.ReconcileCommand {
	if days < 1 {
		days = 1
	}
	return eventapp.ReconcileCommand{
		From: now.Format(time.DateOnly),
		To:   now.AddDate(0, 0, days-1).Format(time.DateOnly),
	}
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
