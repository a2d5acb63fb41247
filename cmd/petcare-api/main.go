// README: Entry point; loads config, wires infra and services, starts the HTTP server and the daily scheduler.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"petcare/internal/config"
	httptransport "petcare/internal/http"
	"petcare/internal/http/handlers"
	"petcare/internal/infra"
	"petcare/internal/modules/audit"
	"petcare/internal/modules/directory"
	"petcare/internal/modules/matching"
	"petcare/internal/modules/notification"
	"petcare/internal/modules/pricing"
	"petcare/internal/modules/reservation"
	"petcare/internal/modules/review"
	"petcare/internal/types"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("load config", "err", err)
		os.Exit(1)
	}
	logger := infra.NewLogger("petcare-api", cfg.Log.Level)
	slog.SetDefault(logger)

	if err := run(cfg, logger); err != nil {
		logger.Error("petcare-api stopped", "err", err)
		os.Exit(1)
	}
}

func run(cfg config.Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Firebase.ProjectID == "" {
		return errors.New("PETCARE_FIREBASE_PROJECT_ID is required")
	}
	app, err := infra.NewFirebaseApp(ctx, cfg.Firebase.ProjectID, cfg.Firebase.CredentialsFile)
	if err != nil {
		return err
	}
	verifier, err := infra.NewFirebaseVerifier(ctx, app)
	if err != nil {
		return err
	}

	db, err := infra.NewDB(ctx, cfg.DB.DSN)
	if err != nil {
		return err
	}
	defer db.Close()
	if cfg.DB.AutoMigrate {
		if err := infra.ApplyMigrations(ctx, db, ""); err != nil {
			return err
		}
		logger.Info("migrations applied")
	}

	rdb, err := infra.NewRedis(ctx, cfg.Redis.Addr)
	if err != nil {
		return err
	}
	defer rdb.Close()

	senders := notification.Fanout{notification.NewLogSender(logger)}
	if client, err := infra.NewMessaging(ctx, app); err != nil {
		logger.Warn("fcm disabled", "err", err)
	} else {
		senders = append(senders, notification.NewFCMSender(client, logger))
	}
	if len(cfg.Kafka.Brokers) > 0 {
		w := notification.NewKafkaWriter(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		defer w.Close()
		senders = append(senders, notification.NewKafkaSender(w))
	}

	clock := types.SystemClock{}
	pricingStore := pricing.NewStore(db, rdb, logger, pricing.StoreConfig{
		DefaultRate: cfg.Pricing.DefaultRate,
		CacheTTL:    cfg.Pricing.CacheTTL,
	})
	pricingSvc := pricing.NewService(pricingStore)
	directoryStore := directory.NewStore(db)
	auditStore := audit.NewStore(db)

	reservationSvc := reservation.NewService(reservation.NewStore(db), reservation.Deps{
		Directory: directoryStore,
		Pets:      directoryStore,
		Pricing:   pricingSvc,
		Audit:     auditStore,
		Notifier:  senders,
		Clock:     clock,
		Location:  cfg.Location,
		Logger:    logger,
	})
	scheduler := reservation.NewScheduler(reservationSvc, reservation.SchedulerConfig{
		Hour:     cfg.Scheduler.Hour,
		Minute:   cfg.Scheduler.Minute,
		Location: cfg.Location,
		Clock:    clock,
		Lock:     reservation.NewRedisLock(rdb, "", cfg.Scheduler.LockTTL),
		Logger:   logger,
	})

	reviewSvc := review.NewService(review.NewStore(db), reservationSvc, auditStore, clock, logger)
	matchingSvc := matching.NewService(matching.Deps{
		Candidates:  matching.NewStore(db),
		Pets:        directoryStore,
		Addresses:   directoryStore,
		Rates:       pricingSvc,
		Reviews:     reviewSvc,
		Clock:       clock,
		Location:    cfg.Location,
		MaxPageSize: cfg.Search.MaxPageSize,
		Logger:      logger,
	})

	server := httptransport.NewServer(httptransport.ServerDeps{
		Verifier:     verifier,
		Reservations: handlers.NewReservationHandler(reservationSvc, cfg.Location, cfg.Booking.PaymentRequired, logger),
		Search:       handlers.NewSearchHandler(matchingSvc, cfg.Location, logger),
		Reviews:      handlers.NewReviewHandler(reviewSvc, logger),
		Admin:        handlers.NewAdminHandler(auditStore, scheduler, logger),
		Logger:       logger,
	})
	httpServer := &http.Server{
		Addr:              cfg.HTTP.Addr,
		Handler:           server.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	if cfg.Scheduler.Enabled {
		scheduler.Start(ctx)
		defer scheduler.Stop()
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http listening", "addr", cfg.HTTP.Addr, "timezone", cfg.Location.String())
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	logger.Info("shutting down")
	return httpServer.Shutdown(shutdownCtx)
}
