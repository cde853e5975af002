/**
 * @description
 * This is the main entry point for the wallet-service. It is responsible for
 * initializing all components of the service, including configuration, optional
 * database and Redis connections, the ledger and anchor protocol clients, the
 * message broker producer, the coordination core, and the HTTP server. It wires
 * everything together and starts the service.
 *
 * @dependencies
 * - log, net/http: Standard Go libraries for logging and HTTP server functionality.
 * - github.com/go-chi/chi/v5: For HTTP routing.
 * - github.com/jackc/pgx/v5: PostgreSQL driver.
 * - github.com/joho/godotenv: Optional .env loading for local development.
 * - github.com/robfig/cron/v3: Notification expiry sweeping.
 * - internal/api, internal/app, internal/config, internal/store: Internal packages for the service.
 * - pkg/horizonclient, pkg/sep24client, pkg/rabbitmq: External protocol clients.
 */

package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/robfig/cron/v3"
	"github.com/stellawallet/wallet-service/internal/api"
	"github.com/stellawallet/wallet-service/internal/app"
	"github.com/stellawallet/wallet-service/internal/config"
	"github.com/stellawallet/wallet-service/internal/domain"
	"github.com/stellawallet/wallet-service/internal/store"
	"github.com/stellawallet/wallet-service/pkg/horizonclient"
	rmrabbit "github.com/stellawallet/wallet-service/pkg/rabbitmq"
	"github.com/stellawallet/wallet-service/pkg/sep24client"
)

// brokerNotificationPublisher adapts the RabbitMQ producer to the core's
// notification publisher port.
type brokerNotificationPublisher struct {
	producer rmrabbit.Publisher
	exchange string
}

func (p *brokerNotificationPublisher) PublishNotificationCreated(ctx context.Context, event domain.NotificationEvent) error {
	return p.producer.Publish(ctx, p.exchange, "wallet.notification.created", rmrabbit.NotificationCreatedEvent{
		NotificationID: event.ID,
		Message:        event.Message,
		Severity:       string(event.Severity),
		ExpiresAt:      event.ExpiresAt,
		Timestamp:      time.Now(),
	})
}

func main() {
	// Load an optional .env file before config binding; missing files are fine.
	_ = godotenv.Load()

	// Load application configuration from environment variables.
	cfg, err := config.LoadConfig(".")
	if err != nil {
		log.Fatalf("level=fatal component=bootstrap msg=\"config load failed\" err=%v", err)
	}

	log.Printf("level=info component=bootstrap msg=\"starting wallet-service\" port=%s horizon=%s home_domain=%s network=%q", cfg.ServerPort, cfg.HorizonURL, cfg.HomeDomain, cfg.NetworkPassphrase)

	// Observed-payment persistence is optional: without a database the wallet
	// still coordinates, it just cannot serve /wallet/payments/observed.
	var repository store.Repository
	if strings.TrimSpace(cfg.DatabaseURL) == "" {
		log.Println("level=warn component=bootstrap msg=\"database url missing; observed-payment persistence disabled\" env=DATABASE_URL")
	} else {
		poolConfig, parseErr := pgxpool.ParseConfig(cfg.DatabaseURL)
		if parseErr != nil {
			log.Fatalf("level=fatal component=bootstrap msg=\"database url parse failed\" err=%v", parseErr)
		}
		poolConfig.MaxConns = 20
		poolConfig.MinConns = 2
		poolConfig.MaxConnLifetime = 30 * time.Minute
		poolConfig.MaxConnIdleTime = 5 * time.Minute

		// Disable prepared statement caching to prevent conflicts
		poolConfig.ConnConfig.DefaultQueryExecMode = pgx.QueryExecModeSimpleProtocol

		dbpool, poolErr := pgxpool.NewWithConfig(context.Background(), poolConfig)
		if poolErr != nil {
			log.Fatalf("level=fatal component=bootstrap msg=\"database connection failed\" err=%v", poolErr)
		}
		defer dbpool.Close()
		repository = store.NewPostgresRepository(dbpool)
		log.Println("level=info component=bootstrap msg=\"database connected\"")
	}

	// Redis holds payment-stream cursors so restarts resume instead of
	// replaying. Without it, cursors live only in process memory.
	var cursorStore app.CursorStore
	if strings.TrimSpace(cfg.RedisURL) == "" {
		log.Println("level=warn component=bootstrap msg=\"redis url missing; cursors will not survive restarts\" env=REDIS_URL")
	} else {
		redisOptions, parseErr := redis.ParseURL(cfg.RedisURL)
		if parseErr != nil {
			log.Printf("level=warn component=bootstrap msg=\"redis url parse failed; cursors will not survive restarts\" err=%v", parseErr)
		} else {
			redisClient := redis.NewClient(redisOptions)
			pingCtx, cancelPing := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancelPing()
			if pingErr := redisClient.Ping(pingCtx).Err(); pingErr != nil {
				log.Printf("level=warn component=bootstrap msg=\"redis ping failed; cursors will not survive restarts\" err=%v", pingErr)
				redisClient.Close()
			} else {
				defer redisClient.Close()
				cursorStore = app.NewRedisCursorStore(redisClient, cfg.RedisCursorPrefix)
				log.Println("level=info component=bootstrap msg=\"redis connected\"")
			}
		}
	}

	// Initialize the RabbitMQ producer to publish notification events.
	// This service only needs to publish, so we use a producer.
	var rabbitProducer rmrabbit.Publisher
	producer, err := rmrabbit.NewEventProducer(cfg.RabbitMQURL)
	if err != nil {
		log.Printf("level=warn component=bootstrap msg=\"rabbitmq producer unavailable; using fallback\" err=%v", err)
		rabbitProducer = &rmrabbit.EventProducerFallback{}
	} else {
		defer producer.Close()
		rabbitProducer = producer
		log.Println("level=info component=bootstrap msg=\"rabbitmq producer connected\"")
	}

	// Initialize the protocol clients.
	horizonClient := horizonclient.NewClient(cfg.HorizonURL)
	sep24Client := sep24client.NewClient()

	clock := app.SystemClock()
	queue := app.NewNotificationQueue(clock, time.Duration(cfg.NotificationDefaultTTLSeconds)*time.Second, &brokerNotificationPublisher{producer: rabbitProducer, exchange: cfg.NotificationEventExchange})

	accountWatcher := app.NewAccountChangeWatcher(horizonClient)
	paymentWatcher := app.NewPaymentInflowWatcher(horizonClient, cursorStore, cfg.NativeAssetCode)
	notifier := app.NewBalanceDeltaNotifier(cfg.AssetDecimals)

	// Initialize the core wallet service with its dependencies. No transaction
	// signer is wired here; payment sending rejects until one is configured.
	walletService := app.NewService(
		horizonClient,
		accountWatcher,
		paymentWatcher,
		notifier,
		queue,
		repository,
		nil,
		cfg.NativeAssetCode,
		cfg.AssetDecimals,
		cfg.MaxPaymentAmount,
	)

	deposits := app.NewInteractiveDepositOrchestrator(
		sep24Client,
		clock,
		time.Duration(cfg.DepositPollIntervalSeconds)*time.Second,
		time.Duration(cfg.TimelineResetDelaySeconds)*time.Second,
		app.DepositHooks{
			RefreshBalance: func() {
				ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
				defer cancel()
				if _, refreshErr := walletService.RefreshBalance(ctx); refreshErr != nil {
					log.Printf("level=warn component=bootstrap msg=\"balance refresh after deposit failed\" err=%v", refreshErr)
				}
			},
		},
		queue,
	)
	walletService.ConfigureDeposits(deposits, cfg.HomeDomain, nil)

	// Optionally start a session at boot for a preconfigured account.
	if accountID := strings.TrimSpace(cfg.WalletAccountID); accountID != "" {
		if err := walletService.StartSession(context.Background(), accountID); err != nil {
			log.Printf("level=warn component=bootstrap msg=\"initial session start failed\" account_id=%s err=%v", accountID, err)
		}
	}

	// Sweep expired notifications every second so reads stay cheap.
	sweeper := cron.New()
	if _, err := sweeper.AddFunc("@every 1s", func() { queue.Sweep() }); err != nil {
		log.Fatalf("level=fatal component=bootstrap msg=\"sweep schedule failed\" err=%v", err)
	}
	sweeper.Start()
	defer sweeper.Stop()

	// Initialize the API handlers.
	walletHandlers := api.NewWalletHandlers(walletService, deposits, queue)

	// Set up the HTTP router and define the API routes.
	router := chi.NewRouter()
	router.Mount("/", api.WalletRoutes(walletHandlers))

	// Start the HTTP server.
	serverAddr := fmt.Sprintf(":%s", cfg.ServerPort)
	log.Printf("level=info component=http msg=\"server listening\" addr=%s", serverAddr)

	server := &http.Server{
		Addr:    serverAddr,
		Handler: router,
	}

	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("level=fatal component=http msg=\"server stopped unexpectedly\" err=%v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	log.Println("level=info component=http msg=\"shutdown started\"")

	walletService.StopSession()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Printf("level=error component=http msg=\"shutdown failed\" err=%v", err)
	}

	log.Println("level=info component=http msg=\"shutdown complete\"")
}
