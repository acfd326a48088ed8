package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/yashrajoria/checkout-service/cart"
	"github.com/yashrajoria/checkout-service/common/auth"
	apperrors "github.com/yashrajoria/checkout-service/common/errors"
	"github.com/yashrajoria/checkout-service/common/logger"
	"github.com/yashrajoria/checkout-service/common/middleware"
	"github.com/yashrajoria/checkout-service/config"
	"github.com/yashrajoria/checkout-service/controllers"
	"github.com/yashrajoria/checkout-service/database"
	"github.com/yashrajoria/checkout-service/events"
	aws_pkg "github.com/yashrajoria/checkout-service/pkg/aws"
	ddb "github.com/yashrajoria/checkout-service/pkg/dynamodb"
	"github.com/yashrajoria/checkout-service/providers"
	"github.com/yashrajoria/checkout-service/repository"
	"github.com/yashrajoria/checkout-service/routes"
	"github.com/yashrajoria/checkout-service/sender"
	"github.com/yashrajoria/checkout-service/services"
	"github.com/yashrajoria/checkout-service/tasks"
	"go.uber.org/zap"
)

const serviceName = "checkout-service"

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal("[CheckoutService] Failed to load config: ", err)
	}

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	// --- AWS setup ---
	awsCfg, err := aws_pkg.LoadAWSConfig(ctx)
	if err != nil {
		log.Fatal("[CheckoutService] Failed to load AWS config: ", err)
	}

	// --- Logger ---
	var zapLogger *zap.Logger
	if cfg.CloudWatchEnabled {
		cwWriter, cwErr := aws_pkg.NewCloudWatchLogsClient(ctx, awsCfg, cfg.CloudWatchLogGroup, serviceName)
		if cwErr != nil {
			log.Println("[CheckoutService] CloudWatch Logs unavailable, logging to console only:", cwErr)
			zapLogger, err = logger.Initialize(cfg.Env)
		} else {
			zapLogger, err = logger.InitializeWithWriter(cfg.Env, cwWriter)
		}
	} else {
		zapLogger, err = logger.Initialize(cfg.Env)
	}
	if err != nil {
		log.Fatal("[CheckoutService] Failed to initialize logger: ", err)
	}
	defer zapLogger.Sync()

	if cfg.UseSecrets {
		cfg.ApplySecrets(ctx, aws_pkg.NewSecretsClient(awsCfg))
	}
	if err := cfg.Validate(); err != nil {
		zapLogger.Fatal("Invalid configuration", zap.Error(err))
	}

	metricsClient := aws_pkg.NewMetricsClient(awsCfg, cfg.CloudWatchNamespace, cfg.CloudWatchEnabled)

	// --- Storage ---
	db, err := database.ConnectPostgres(ctx, cfg.DSN(), zapLogger)
	if err != nil {
		zapLogger.Fatal("DB connection failed", zap.Error(err))
	}
	orderRepo := repository.NewGormOrderRepository(db)
	logRepo := repository.NewGormNotificationLogRepository(db)

	var sessionRepo repository.SessionRepository
	switch cfg.SessionStore {
	case "dynamodb":
		ddbClient := ddb.NewClientFromConfig(awsCfg)
		created, err := ddb.EnsureSessionTable(ctx, ddbClient, cfg.SessionTable)
		if err != nil {
			zapLogger.Fatal("Session table setup failed", zap.Error(err))
		}
		if created {
			zapLogger.Info("Created payment session table", zap.String("table", cfg.SessionTable))
		}
		sessionRepo = repository.NewDynamoSessionRepository(ddbClient, cfg.SessionTable)
	case "memory":
		sessionRepo = repository.NewMemorySessionRepository()
	default:
		sessionRepo = repository.NewGormSessionRepository(db)
	}

	// --- Post-payment side effects ---
	redisClient, err := cart.NewRedisClient(ctx, cfg.RedisURL)
	if err != nil {
		zapLogger.Fatal("Redis connection failed", zap.Error(err))
	}
	defer redisClient.Close()

	var emailSender sender.EmailSender = sender.NewLogSender(zapLogger)
	if cfg.SMTP.Host != "" {
		smtpSender, smtpErr := sender.NewSMTPSender(sender.SMTPConfig(cfg.SMTP))
		if smtpErr != nil {
			zapLogger.Fatal("Invalid SMTP configuration", zap.Error(smtpErr))
		}
		emailSender = smtpSender
	}

	var publisher events.Publisher
	switch cfg.EventSink {
	case "sns":
		publisher = events.NewSNSPublisher(aws_pkg.NewSNSClient(awsCfg), cfg.PaymentSNSTopicARN, zapLogger)
	case "kafka":
		kafkaPublisher := events.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaTopic, zapLogger)
		defer kafkaPublisher.Close()
		publisher = kafkaPublisher
	default:
		publisher = events.NewLogPublisher(zapLogger)
	}

	policy := tasks.DefaultRetryPolicy()
	policy.MaxAttempts = cfg.TaskMaxAttempts
	dispatcher := tasks.NewDispatcher(policy, zapLogger)
	tasks.RegisterDefaults(dispatcher, cart.NewRedisCartClearer(redisClient), emailSender, tasks.NewRedisOnceGuard(redisClient, tasks.DefaultOnceTTL), publisher, zapLogger)

	var (
		taskQueue    tasks.Queue
		channelQueue *tasks.ChannelQueue
	)
	if cfg.TaskQueue == "sqs" {
		consumer := aws_pkg.NewSQSConsumer(awsCfg, cfg.TaskQueueURL, zapLogger)
		sqsQueue := tasks.NewSQSQueue(consumer, dispatcher, zapLogger)
		go func() {
			if err := consumer.StartPolling(ctx, sqsQueue.Handle); err != nil && !errors.Is(err, context.Canceled) {
				zapLogger.Error("task consumer stopped", zap.Error(err))
			}
		}()
		taskQueue = sqsQueue
	} else {
		channelQueue = tasks.NewChannelQueue(dispatcher, cfg.TaskBuffer, cfg.TaskWorkers, zapLogger)
		channelQueue.Start(ctx)
		taskQueue = channelQueue
	}

	// --- Checkout pipeline ---
	registry := providers.NewRegistry(
		providers.NewProviderA(cfg.ProviderA),
		providers.NewProviderB(cfg.ProviderB),
	)
	builder := services.NewCheckoutSessionBuilder(registry, sessionRepo, orderRepo, cfg.SessionTTL, zapLogger)
	verifier := services.NewNotificationVerifier(registry)
	reconciler := services.NewOrderReconciler(orderRepo, logRepo, taskQueue, metricsClient, cfg.AmountTolerance, zapLogger)
	checkoutService := services.NewCheckoutOrchestrator(orderRepo, sessionRepo, registry, builder, verifier, reconciler, metricsClient, cfg.FrontendURL, zapLogger)

	// --- HTTP router ---
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.RequestLogger(zapLogger))
	r.Use(middleware.MetricsMiddleware(metricsClient, serviceName))
	r.Use(middleware.SecurityHeaders())
	r.Use(middleware.CORSMiddleware(cfg.AllowedOrigins))
	r.Use(middleware.Timeout(cfg.RequestTimeout))
	r.Use(apperrors.ErrorMiddleware())

	notifyLimiter := middleware.PerMinute(cfg.RateLimitPerMinute)
	notifyLimiter.StartCleanup(ctx)

	routes.RegisterCheckoutRoutes(r,
		controllers.NewCheckoutController(checkoutService),
		controllers.NewNotificationController(checkoutService, cfg.FrontendURL, zapLogger),
		middleware.AuthMiddleware(auth.NewTokenParser(cfg.JWTSecret), cfg.TrustGatewayHeader),
		notifyLimiter.Middleware(),
	)

	// --- HTTP server ---
	srv := &http.Server{Addr: ":" + cfg.Port, Handler: r}
	go func() {
		zapLogger.Info("Checkout Service started", zap.String("port", cfg.Port), zap.Any("providers", registry.Tags()))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zapLogger.Fatal("server failed", zap.Error(err))
		}
	}()

	// --- Graceful shutdown ---
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	zapLogger.Info("Initiating graceful shutdown...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		zapLogger.Error("Server shutdown error", zap.Error(err))
	}

	// in-flight handlers are done; drain queued side effects before stopping workers
	if channelQueue != nil {
		channelQueue.Close()
	}
	stop()

	if err := database.Close(db); err != nil {
		zapLogger.Error("Database close error", zap.Error(err))
	}

	zapLogger.Info("Checkout Service stopped gracefully")
}
