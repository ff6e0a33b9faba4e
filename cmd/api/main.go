package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"taziri/internal/config"
	"taziri/internal/handler"
	"taziri/internal/infra/cache"
	"taziri/internal/infra/carrier"
	"taziri/internal/infra/db"
	"taziri/internal/infra/kafka"
	"taziri/internal/infra/mediahost"
	"taziri/internal/infra/pgnotify"
	"taziri/internal/infra/push"
	infraRepo "taziri/internal/infra/repository"
	"taziri/internal/logger"
	"taziri/internal/server"
	"taziri/internal/trace"
	"taziri/internal/usecase"
	"taziri/internal/validator"
)

const (
	notifierGroup   = "notifier"
	notifierWorkers = 4
	purgeInterval   = time.Hour
)

func main() {
	//.env はローカル用。無くても環境変数で動く
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("load config", logger.Err(err))
		os.Exit(1)
	}
	log := logger.New(os.Stdout, cfg.LogLevel, cfg.LogJSON)
	slog.SetDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("taziri-api stopped", logger.Err(err))
		os.Exit(1)
	}
	log.Info("taziri-api stopped")
}

func run(ctx context.Context, cfg config.Config, log *slog.Logger) error {
	// サーバーが起動に失敗してもワーカーを止められるように
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if cfg.OTelEnabled {
		tp, err := trace.InitTracer(ctx)
		if err != nil {
			return err
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := tp.Shutdown(shutdownCtx); err != nil {
				log.Warn("tracer shutdown", logger.Err(err))
			}
		}()
	}

	//DB接続
	gormDB, err := db.Connect(cfg.DSN(), !cfg.IsProd())
	if err != nil {
		return err
	}
	if err := db.Migrate(gormDB); err != nil {
		return err
	}
	sqlDB, err := gormDB.DB()
	if err != nil {
		return err
	}
	defer sqlDB.Close()

	rdb := cache.New(cfg.RedisAddr)
	defer rdb.Close()
	if err := cache.Ping(ctx, rdb); err != nil {
		// キャッシュが無くても注文は受けられる
		log.Warn("redis unavailable at startup", logger.Err(err))
	}

	producer := kafka.NewProducer(cfg.KafkaBrokers, cfg.KafkaTopic, log)
	defer producer.Close()

	//Repository（GORM実装）生成
	userRepo := infraRepo.NewUserGormRepository(gormDB)
	rtRepo := infraRepo.NewRefreshTokenRepository(gormDB)
	productRepo := infraRepo.NewProductGormRepository(gormDB)
	offerRepo := infraRepo.NewOfferGormRepository(gormDB)
	orderRepo := infraRepo.NewOrderGormRepository(gormDB)
	linkRepo := infraRepo.NewResellLinkGormRepository(gormDB)
	jobRepo := infraRepo.NewShipmentJobGormRepository(gormDB)
	auditRepo := infraRepo.NewAuditLogGormRepository(gormDB)
	notificationRepo := infraRepo.NewNotificationGormRepository(gormDB)
	convRepo := infraRepo.NewConversationGormRepository(gormDB)
	txm := infraRepo.NewTxManagerGorm(gormDB)

	statusCache := cache.NewStatusCache(rdb)
	resellCache := cache.NewResellCache(rdb)

	//Usecase生成
	authUC := usecase.NewAuthUsecase(cfg, userRepo, rtRepo, auditRepo, validator.NewAuthValidator(userRepo), cache.NewLoginLimiter(rdb))
	catalogUC := usecase.NewCatalogUsecase(productRepo, offerRepo, txm)
	orderUC := usecase.NewOrderUsecase(catalogUC, orderRepo, linkRepo, userRepo, producer, statusCache, log)
	adminOrderUC := usecase.NewAdminOrderUsecase(txm, orderRepo, jobRepo, producer, statusCache, log)
	resellUC := usecase.NewResellUsecase(catalogUC, linkRepo, userRepo, resellCache, cfg.PublicBaseURL, log)
	notificationUC := usecase.NewNotificationUsecase(notificationRepo)
	chatUC := usecase.NewChatUsecase(convRepo, cache.NewChatHub(rdb), log)
	uploadUC := usecase.NewUploadUsecase(mediahost.NewClient("", cfg.MediaCloudName, cfg.MediaAPIKey, cfg.MediaAPISecret), log)
	auditUC := usecase.NewAuditUsecase(auditRepo)

	dispatcher := usecase.NewShipmentDispatcher(
		usecase.DispatcherConfig{MaxAttempts: cfg.CarrierMaxAttempts, Interval: cfg.DispatchInterval},
		txm,
		jobRepo,
		orderRepo,
		carrier.NewClient(cfg.CarrierBaseURL, cfg.CarrierAPIID, cfg.CarrierAPIToken),
		producer,
		statusCache,
		log,
	)
	notifier := usecase.NewNotifier(notificationRepo, userRepo, push.NewClient(cfg.PushURL), cache.NewDeduper(rdb, notifierGroup), log)

	//Handler生成
	e := server.New(log, handler.NewGuards(cfg, userRepo), server.Handlers{
		Auth:         handler.NewAuthHandler(authUC, usecase.RefreshTokenTTL, cfg.IsProd()),
		Product:      handler.NewProductHandler(catalogUC),
		AdminProduct: handler.NewAdminProductHandler(catalogUC),
		Order:        handler.NewOrderHandler(orderUC),
		AdminOrder:   handler.NewAdminOrderHandler(adminOrderUC),
		AdminUser:    handler.NewAdminUserHandler(authUC, auditUC),
		Resell:       handler.NewResellHandler(resellUC),
		Shipping:     handler.NewShippingHandler(),
		Notification: handler.NewNotificationHandler(notificationUC),
		Chat:         handler.NewChatHandler(chatUC),
		Upload:       handler.NewUploadHandler(uploadUC),
	}, map[string]server.Check{
		"postgres": sqlDB.PingContext,
		"redis":    func(ctx context.Context) error { return cache.Ping(ctx, rdb) },
	})

	var wg sync.WaitGroup

	// 配送登録ワーカー。NOTIFYが使えなければ周期ポーリングだけで回す
	var wake <-chan struct{}
	listener, err := pgnotify.Listen(cfg.DSN(), infraRepo.ShipmentJobsChannel, log)
	if err != nil {
		log.Warn("pg listen unavailable, polling only", logger.Err(err))
	} else {
		defer listener.Close()
		wake = listener.Wake()
		wg.Add(1)
		go func() {
			defer wg.Done()
			listener.Run(ctx)
		}()
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		dispatcher.Run(ctx, wake)
	}()

	// order.events → 通知
	consumer := kafka.NewConsumer(cfg.KafkaBrokers, notifierGroup, cfg.KafkaTopic, notifierWorkers, log)
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := consumer.Start(ctx, kafka.EnvelopeHandler(log, notifier.Handle)); err != nil {
			log.Error("notifier consumer", logger.Err(err))
		}
	}()

	// 期限切れセッションの掃除
	wg.Add(1)
	go func() {
		defer wg.Done()
		t := time.NewTicker(purgeInterval)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				n, err := authUC.PurgeExpiredSessions(ctx)
				if err != nil {
					log.Warn("purge sessions", logger.Err(err))
					continue
				}
				log.Info("purged expired sessions", slog.Int64("count", n))
			}
		}
	}()

	//Server起動
	err = server.Start(ctx, e, ":"+cfg.Port, log)
	cancel()
	wg.Wait()
	return err
}
