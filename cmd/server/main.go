package main

import (
	"context"
	"errors"
	"log"
	nethttp "net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"shop-service/internal/auth"
	"shop-service/internal/config"
	"shop-service/internal/controllers/http"
	"shop-service/internal/domain"
	"shop-service/internal/infra/cache"
	"shop-service/internal/infra/logging"
	mmysql "shop-service/internal/infra/mysql"
	"shop-service/internal/infra/rabbitmq"
	mysqlrepo "shop-service/internal/repository/mysql"
	"shop-service/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger, err := logging.New(cfg.LogLevel)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	decimal.MarshalJSONWithoutQuotes = true

	db, err := mmysql.NewMySQL(cfg.MySQL)
	if err != nil {
		logger.Fatal("db: connect", zap.Error(err))
	}
	sqlDB, err := db.DB()
	if err != nil {
		logger.Fatal("db: handle", zap.Error(err))
	}
	defer sqlDB.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var redisClient redis.Cmdable
	if cfg.Redis.Enabled() {
		rc, err := cache.NewRedisClient(ctx, cfg.Redis)
		if err != nil {
			logger.Fatal("redis: connect", zap.Error(err))
		}
		defer rc.Close()
		redisClient = rc
		logger.Info("redis cache enabled", zap.String("addr", cfg.Redis.Addr()))
	} else {
		logger.Info("redis not configured, product cache and idempotency keys disabled")
	}

	var publisher rabbitmq.PublisherInterface
	if cfg.RabbitMQ.URL != "" {
		p, err := rabbitmq.NewPublisher(cfg.RabbitMQ.URL, cfg.RabbitMQ.Exchange, logger)
		if err != nil {
			logger.Fatal("failed to init publisher", zap.Error(err))
		}
		defer p.Close()
		publisher = p
	} else {
		logger.Info("rabbitmq not configured, events are dropped")
		publisher = rabbitmq.NewNopPublisher(logger)
	}

	policy := domain.NewInventoryPolicy(cfg.SizedCategories...)
	productCache := cache.NewProductCache(redisClient, cfg.Redis.CacheTTL, logger)

	products := mysqlrepo.NewProductRepository(db)
	tx := mysqlrepo.NewTransactor(db)

	inventory := services.NewInventoryService(products, tx, policy, productCache, logger)
	productService := services.NewProductService(products, tx, policy, productCache, logger)
	categoryService := services.NewCategoryService(mysqlrepo.NewCategoryRepository(db), logger)
	authService := services.NewAuthService(mysqlrepo.NewUserRepository(db), auth.NewTokenIssuer(cfg.JWTSecret, cfg.JWTTTL), logger)

	orderService := services.NewOrderService(mysqlrepo.NewOrderRepository(db), inventory, tx, publisher, productCache, logger)
	orderService.SetTimeout(cfg.OrderTimeout)
	if redisClient != nil {
		orderService.SetIdempotencyStore(cache.NewIdempotencyStore(redisClient, cfg.IdempotencyTTL))
	}

	if created, err := authService.EnsureAdmin(ctx, cfg.Admin.UserName, cfg.Admin.Email, cfg.Admin.Password); err != nil {
		logger.Error("failed to bootstrap admin", zap.Error(err))
	} else if created {
		logger.Info("admin account created", zap.String("user_name", cfg.Admin.UserName))
	}

	if redisClient != nil {
		go func() {
			if n, err := productService.WarmupCache(ctx, cfg.CacheWarmup); err != nil {
				logger.Warn("failed to warm up cache", zap.Error(err))
			} else {
				logger.Debug("cache warmed up", zap.Int("products", n))
			}
		}()
	}

	handler := http.NewHandler(http.Deps{
		Products:       productService,
		Inventory:      inventory,
		Categories:     categoryService,
		Orders:         orderService,
		Auth:           authService,
		DB:             sqlDB,
		PaypalClientID: cfg.PaypalClientID,
		Log:            logger,
	})

	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery(), http.RequestLogger(logger), http.CORS(cfg.CORSOrigins))

	handler.RegisterRoutes(r)

	srv := &nethttp.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("starting shop service", zap.String("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, nethttp.ErrServerClosed) {
			logger.Fatal("server run", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", zap.Error(err))
	}
}
