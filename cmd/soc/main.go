package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/redis/go-redis/v9"

	"github.com/vantor-systems/vantor-soc/internal/config"
	"github.com/vantor-systems/vantor-soc/internal/events"
	"github.com/vantor-systems/vantor-soc/internal/handlers"
	"github.com/vantor-systems/vantor-soc/internal/idgen"
	"github.com/vantor-systems/vantor-soc/internal/ingest"
	"github.com/vantor-systems/vantor-soc/internal/logging"
	"github.com/vantor-systems/vantor-soc/internal/messaging"
	natsclient "github.com/vantor-systems/vantor-soc/internal/messaging/nats"
	"github.com/vantor-systems/vantor-soc/internal/notification"
	"github.com/vantor-systems/vantor-soc/internal/reporting"
	"github.com/vantor-systems/vantor-soc/internal/repository"
	"github.com/vantor-systems/vantor-soc/internal/scheduler"
	"github.com/vantor-systems/vantor-soc/internal/server"
	"github.com/vantor-systems/vantor-soc/internal/service"
	"github.com/vantor-systems/vantor-soc/internal/trigger"
)

func main() {
	configPath := flag.String("config", "", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger := logging.New(logging.ParseLevel(cfg.Logging.Level), cfg.Logging.Format)
	logging.SetDefault(logger)

	connString := cfg.Database.Postgres.DSN()

	// Run database migrations
	log.Println("Running database migrations...")
	m, err := migrate.New("file://migrations", connString)
	if err != nil {
		log.Fatalf("Failed to initialize migrations: %v", err)
	}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		log.Fatalf("Failed to run migrations: %v", err)
	}
	log.Println("Database migrations completed")

	repo, err := repository.NewPostgresRepository(context.Background(), connString)
	if err != nil {
		log.Fatalf("Failed to connect to PostgreSQL: %v", err)
	}
	defer repo.Close()

	// Human-readable alert/case sequence numbers come from Redis; fall back
	// to an in-process sequencer when it is disabled.
	var sequencer idgen.Sequencer = idgen.NewMemorySequencer()
	if cfg.Redis.Enabled {
		opts, err := redis.ParseURL(cfg.Redis.URL)
		if err != nil {
			log.Fatalf("Failed to parse Redis URL: %v", err)
		}
		opts.PoolSize = cfg.Redis.PoolSize
		rdb := redis.NewClient(opts)
		defer rdb.Close()
		sequencer = idgen.NewRedisSequencer(rdb)
	}
	ids := idgen.NewGenerator(sequencer)

	// Message bus for lifecycle events and inbound detections
	var bus messaging.Publisher
	var natsConn *natsclient.Client
	if cfg.NATS.Enabled {
		nc, err := natsclient.NewClient(natsclient.Config{
			URL:           cfg.NATS.URL,
			Name:          "vantor-soc",
			MaxReconnects: cfg.NATS.MaxReconnects,
			ReconnectWait: cfg.NATS.ReconnectWait,
			Timeout:       5 * time.Second,
		})
		if err != nil {
			log.Fatalf("Failed to connect to NATS: %v", err)
		}
		defer nc.Close()
		bus = nc
		natsConn = nc
	}
	publisher := events.NewPublisher(bus, logger.Logger)

	// Notification channels for notify actions
	channels := []notification.Channel{
		notification.NewLogChannel(log.Printf),
	}
	if cfg.Notifications.WebhookURL != "" {
		channels = append(channels, notification.NewWebhookChannel(cfg.Notifications.WebhookURL, cfg.Notifications.Timeout))
	}
	if cfg.Notifications.SlackWebhookURL != "" {
		channels = append(channels, notification.NewSlackChannel(cfg.Notifications.SlackWebhookURL, cfg.Notifications.Timeout))
	}
	notifier := notification.NewRegistry(channels...)

	// Services, scheduler, trigger dispatcher
	alertSvc := service.NewAlertService(repo, ids)
	caseSvc := service.NewCaseService(repo, ids)
	playbookSvc := service.NewPlaybookService(repo)

	runner := scheduler.NewRunner(alertSvc, caseSvc, notifier, logger.Logger)
	sched := scheduler.New(repo, runner, publisher, logger.Logger)
	dispatcher := trigger.NewDispatcher(repo, sched, logger.Logger)
	alertSvc.SetTriggerSink(dispatcher)
	caseSvc.SetTriggerSink(dispatcher)
	alertSvc.SetEventPublisher(publisher)
	caseSvc.SetEventPublisher(publisher)

	// Detections published on the bus become alerts through the same
	// service path as API submissions.
	if natsConn != nil {
		consumer := ingest.NewConsumer(natsConn, alertSvc, logger.Logger)
		if err := consumer.Start(); err != nil {
			log.Fatalf("Failed to start ingest consumer: %v", err)
		}
		defer consumer.Stop()
	}

	reports := reporting.NewService(repo)

	handler := handlers.NewHandler(alertSvc, caseSvc, playbookSvc, sched, dispatcher, reports, repo, logger)
	router := server.NewRouter(handler)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		log.Printf("SOC service listening on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")
	ctx, cancel := context.WithTimeout(context.Background(), cfg.Scheduler.ShutdownGraceInterval)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	// Let in-flight playbook executions reach a safe boundary.
	done := make(chan struct{})
	go func() {
		sched.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		log.Println("Shutdown grace period expired with executions in flight")
	}

	log.Println("Server stopped gracefully")
}
