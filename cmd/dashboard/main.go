package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/mymmrac/telego"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"cashback-dashboard/internal/accounts"
	"cashback-dashboard/internal/api"
	"cashback-dashboard/internal/bot"
	"cashback-dashboard/internal/brokerapi"
	"cashback-dashboard/internal/cashback"
	"cashback-dashboard/internal/config"
	"cashback-dashboard/internal/database"
	"cashback-dashboard/internal/ingest"
	"cashback-dashboard/internal/logging"
	"cashback-dashboard/internal/payout"
	"cashback-dashboard/internal/referral"
	"cashback-dashboard/internal/wallet"
	"cashback-dashboard/internal/worker"
)

func main() {
	// Load Configuration
	cfg := config.LoadConfig()

	logger, err := logging.New(cfg.LogProduction)
	if err != nil {
		log.Fatalf("Could not create logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	if err := run(cfg, logger); err != nil {
		logger.Fatal("Service stopped with error", zap.Error(err))
	}
	logger.Info("Service stopped")
}

func run(cfg *config.Config, logger *zap.Logger) error {
	if cfg.JWTSecret == "" {
		return errors.New("JWT_SECRET is required")
	}
	cashbackCfg, err := cfg.Cashback()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Connect to Database
	db, err := database.ConnectPostgres(cfg, logger)
	if err != nil {
		return err
	}
	store := database.NewStore(db)
	if err := store.SeedBrokers(ctx, cashbackCfg, cfg.MinWithdrawal); err != nil {
		return err
	}

	// Connect to Redis
	rdb, err := database.ConnectRedis(cfg, logger)
	if err != nil {
		return err
	}
	defer rdb.Close()
	retryQueue := database.NewRetryQueue(rdb)

	calc := cashback.NewCalculator(cashbackCfg)
	recorder := referral.NewRecorder(store, calc, logger.Named("settlement"),
		referral.WithRetryQueue(retryQueue, cfg.SettlementMaxTries))
	referrals := referral.NewService(store, logger.Named("referral"))

	var brokerClient *brokerapi.Client
	var verifier accounts.Verifier
	if cfg.BrokerAPIURL != "" {
		brokerClient = brokerapi.NewClient(cfg.BrokerAPIURL, cfg.BrokerAPIKey)
		verifier = brokerClient
	} else {
		logger.Warn("BROKER_API_URL not set: accounts stay pending and trade sync is off")
	}
	accountService := accounts.NewService(store, verifier, recorder, logger.Named("accounts"))

	walletOpts := []wallet.Option{wallet.WithCurrency(cfg.PayoutCurrency)}
	if cfg.PayoutShopID != "" {
		walletOpts = append(walletOpts, wallet.WithPayouter(payout.NewClient(cfg.PayoutShopID, cfg.PayoutSecretKey)))
	} else {
		logger.Warn("PAYOUT_SHOP_ID not set: approved withdrawals are paid out manually")
	}

	var tgClient *telego.Bot
	var earningNotifier ingest.EarningNotifier
	if cfg.BotToken != "" {
		tgClient, err = telego.NewBot(cfg.BotToken)
		if err != nil {
			return fmt.Errorf("failed to create bot: %w", err)
		}
		notifier := bot.NewNotifier(tgClient, store, rdb, logger.Named("notifier"))
		walletOpts = append(walletOpts, wallet.WithNotifier(notifier))
		earningNotifier = notifier
	} else {
		logger.Warn("TELEGRAM_BOT_TOKEN not set: bot and notifications are off")
	}
	walletService := wallet.NewService(store, calc, logger.Named("wallet"), walletOpts...)

	ingestor := ingest.NewIngestor(store, recorder, earningNotifier, logger.Named("ingest"))

	handler := api.NewHandler(walletService, accountService, referrals, store, cfg.PayoutAllowedIPs, logger.Named("http"))
	router := handler.Router(api.RouterOptions{
		JWTSecret:      cfg.JWTSecret,
		AllowedOrigins: cfg.AllowedOrigins,
		Production:     cfg.LogProduction,
	})
	server := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("HTTP server listening", zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	g.Go(func() error {
		return worker.NewRetrier(retryQueue, recorder, cfg.SettlementRetryEvery, logger.Named("retrier")).Start(gctx)
	})

	if brokerClient != nil {
		g.Go(func() error {
			return worker.NewSyncer(store, brokerClient, ingestor, cfg.TradeSyncEvery, logger.Named("sync")).Start(gctx)
		})
	}

	if len(cfg.KafkaBrokers) > 0 {
		consumer, err := ingest.NewConsumer(cfg.KafkaBrokers, cfg.KafkaGroupID, cfg.KafkaTradesTopic, ingestor, logger.Named("kafka"))
		if err != nil {
			return err
		}
		g.Go(func() error {
			return consumer.Run(gctx)
		})
	}

	if tgClient != nil {
		tgBot := bot.NewBot(tgClient, store, referrals, walletService, logger.Named("bot"))
		g.Go(func() error {
			return tgBot.Start(gctx)
		})
	}

	logger.Info("Service started successfully")
	return g.Wait()
}
