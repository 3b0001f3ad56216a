package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"nestegg/internal/aggregator"
	"nestegg/internal/aggregator/plaid"
	"nestegg/internal/domain/connection"
	"nestegg/internal/domain/networth"
	"nestegg/internal/domain/notification"
	"nestegg/internal/domain/sync"
	"nestegg/internal/infrastructure/crypto"
	"nestegg/internal/infrastructure/firebase"
	"nestegg/internal/infrastructure/kafka"
	"nestegg/internal/infrastructure/postgres"
	httpapi "nestegg/internal/interfaces/http"
	"nestegg/internal/scheduler"
	"nestegg/internal/shared/config"
	"nestegg/internal/shared/middleware"
	"nestegg/internal/shared/telemetry"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("Application error: %v", err)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	ctx := context.Background()

	if cfg.Telemetry.Enabled {
		shutdown, err := telemetry.Init(ctx, telemetry.Config{
			ServiceName:  cfg.Telemetry.ServiceName,
			Environment:  cfg.Telemetry.Environment,
			OTLPEndpoint: cfg.Telemetry.OTLPEndpoint,
			MetricsPort:  cfg.Telemetry.MetricsPort,
		})
		if err != nil {
			return err
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := shutdown(shutdownCtx); err != nil {
				log.Printf("Error shutting down telemetry: %v", err)
			}
		}()
	}

	db, err := postgres.New(cfg.Database.ConnectionString())
	if err != nil {
		return err
	}
	defer db.Close()

	log.Println("Connected to database")

	// Repositories
	accountRepo := postgres.NewConnectedAccountRepository(db)
	transactionRepo := postgres.NewTransactionRepository(db)
	assetRepo := postgres.NewAssetRepository(db)
	liabilityRepo := postgres.NewLiabilityRepository(db)
	securityRepo := postgres.NewSecurityRepository(db)
	holdingRepo := postgres.NewHoldingRepository(db)
	deviceTokenRepo := postgres.NewDeviceTokenRepository(db)

	vault, err := crypto.NewEncryptor(cfg.Encryption.Key)
	if err != nil {
		return err
	}

	// Provider registry. Only Plaid is backed; the other variants resolve
	// to NotImplementedError and the registry routes around them.
	plaidCfg := cfg.Aggregator.Plaid
	registry := aggregator.NewRegistry(
		aggregator.Type(cfg.Aggregator.DefaultProvider),
		map[aggregator.Type]aggregator.Factory{
			aggregator.TypePlaid: func() (aggregator.Provider, error) {
				return plaid.NewClient(plaid.Config{
					ClientID:    plaidCfg.ClientID,
					Secret:      plaidCfg.Secret,
					Environment: plaidCfg.Environment,
					WebhookURL:  plaidCfg.WebhookURL,
					RedirectURI: plaidCfg.RedirectURI,
				}), nil
			},
		},
	)

	// FCM messenger (optional)
	var messenger notification.Messenger
	if cfg.Firebase.CredentialsFile != "" {
		fcm, err := firebase.NewClient(ctx, cfg.Firebase.CredentialsFile, deviceTokenRepo.DeactivateToken)
		if err != nil {
			return err
		}
		messenger = fcm
		log.Println("Firebase messaging initialized")
	} else {
		log.Println("Firebase credentials not configured, push notifications disabled")
	}

	notificationSvc := notification.NewService(deviceTokenRepo, messenger)

	connectionSvc := connection.NewService(
		accountRepo, registry, vault,
		transactionRepo, holdingRepo,
		networth.Unlinker{Assets: assetRepo, Liabilities: liabilityRepo},
	)

	// Sync engine
	balanceSync := sync.NewBalanceSyncService(registry, vault, accountRepo, assetRepo, liabilityRepo)
	transactionSync := sync.NewTransactionSyncService(registry, vault, accountRepo, transactionRepo)
	holdingSync := sync.NewHoldingSyncService(registry, vault, accountRepo, securityRepo, holdingRepo)
	batchSync := sync.NewBatchService(accountRepo, balanceSync, transactionSync, holdingSync, notificationSvc)

	// Kafka report publisher (optional)
	var publisher httpapi.ReportPublisher
	if cfg.Kafka.Enabled {
		kafkaPublisher := kafka.NewReportPublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		defer kafkaPublisher.Close()
		publisher = kafkaPublisher
		log.Printf("Kafka report publisher initialized (topic=%s)", cfg.Kafka.Topic)
	}

	// Scheduler (optional)
	var sched *scheduler.Scheduler
	if cfg.Scheduler.Enabled {
		sched, err = scheduler.New(scheduler.Config{
			ScheduleTimes: cfg.Scheduler.ScheduleTimes,
			WorkerCount:   cfg.Scheduler.WorkerCount,
			JobDelay:      cfg.Scheduler.JobDelay,
			QueueSize:     cfg.Scheduler.QueueSize,
			RunOnStartup:  cfg.Scheduler.RunOnStartup,
			JobProvider: func(ctx context.Context) ([]scheduler.Job, error) {
				userIDs, err := batchSync.GetAllUserIDs(ctx)
				if err != nil {
					return nil, err
				}
				jobs := make([]scheduler.Job, 0, len(userIDs))
				for _, userID := range userIDs {
					jobs = append(jobs, scheduler.NewUserSyncJob(userID, batchSync))
				}
				return jobs, nil
			},
		})
		if err != nil {
			return err
		}
		sched.Start()
	} else {
		log.Println("Scheduler is disabled")
	}

	// Router
	mux := httpapi.NewRouter(httpapi.RouterConfig{
		Connections:    httpapi.NewConnectionHandler(connectionSvc),
		Notifications:  httpapi.NewNotificationHandler(notificationSvc),
		Sync:           httpapi.NewSyncHandler(batchSync, publisher),
		SyncAPIKeyHash: cfg.Sync.APIKeyHash,
	})

	handler := middleware.Logging(middleware.Telemetry(mux))

	addr := cfg.Server.Host + ":" + cfg.Server.Port
	srv := &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second, // batch triggers run synchronously
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("Server starting on %s", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Server shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Error shutting down HTTP server: %v", err)
	}

	if sched != nil {
		log.Println("Shutting down scheduler...")
		sched.Shutdown(30 * time.Second)
	}

	log.Println("Server stopped")
	return nil
}
