package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/gin-gonic/gin"

	"github.com/mzkhan-25/field-services-mk/configs"
	"github.com/mzkhan-25/field-services-mk/internal/domain"
	"github.com/mzkhan-25/field-services-mk/internal/notifier"
	"github.com/mzkhan-25/field-services-mk/internal/postgres"
	"github.com/mzkhan-25/field-services-mk/internal/rabbitmq"
	redis2 "github.com/mzkhan-25/field-services-mk/internal/redis"
	"github.com/mzkhan-25/field-services-mk/pkg/sender"
)

var postgresIsReady, rabbitIsReady, redisIsReady bool

type pinger interface {
	Ping(ctx context.Context) error
}

func main() {
	cfg := configs.InitConfig()
	args := os.Args
	slog.Info("Running notification_worker command", "args", args, "len_args", len(args))

	// workerNumber only needs to be unique per consumer, it is appended to the consumer name
	workerNumber := "0"
	if len(args) > 1 {
		workerNumber = args[1]
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.WorkerTimeOutInSeconds)*time.Second)
	defer cancel()

	mainQueueNames := cfg.RabbitMQ.GetMainQueueNames()
	rabbitClient, err := rabbitmq.NewRabbitMQClient(ctx, cfg.RabbitMQ.ToRabbitConnectionUri(), mainQueueNames)
	if err != nil {
		log.Fatal(err)
	}
	defer func() {
		err = rabbitClient.Close()
		if err != nil {
			slog.Error("An error occurred while closing RabbitMQ connection", "error", err.Error())
		}
	}()
	rabbitIsReady = true
	slog.Info("RabbitMQ connection has been initialized successfully")

	redisClient, err := redis2.NewClient(ctx, cfg.RedisConfig.ToRedisConnectionUri())
	if err != nil {
		log.Fatal(err)
	}
	defer func() {
		err = redisClient.Close()
		if err != nil {
			slog.Error("An error occurred while closing Redis connection", "error", err.Error())
		}
	}()
	redisIsReady = true
	slog.Info("Redis connection has been initialized successfully")

	storage, err := postgres.NewStorage(ctx, cfg.Database.ToDbConnectionUri())
	if err != nil {
		log.Fatal(err)
	}
	postgresIsReady = true
	slog.Info("Postgres connection has been initialized successfully")

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Mail.AWSRegion))
	if err != nil {
		log.Fatal(err)
	}
	channelSender := sender.NewSESSender(awsCfg, cfg.Mail.FromEmail)
	notifications := notifier.NewService(storage, channelSender, cfg.NotificationMaxRetries)

	handlerFunc := func(input string) {
		request := domain.NotificationRequest{}
		err := json.Unmarshal([]byte(input), &request)
		if err != nil {
			slog.Error("There was an error in unmarshalling the notification request", "error", err)
			return
		}
		slog.Info("Notification request is picked up from the queue", "task_id", request.TaskID, "type", request.Type)

		// A request for the same task and type cannot be processed simultaneously via two workers
		lockKey := fmt.Sprintf("lock:notification:%d:%s", request.TaskID, request.Type)
		slog.Info("Locking the key in distributed lock system", "lock_key", lockKey)
		isLocked, err := redisClient.Lock(lockKey, time.Duration(10)*time.Second)
		if err != nil {
			slog.Error("Error occurred while locking the key for notification", "lock_key", lockKey, "error", err.Error())
			return
		}
		if !isLocked {
			slog.Error("Concurrent processing error happened for the notification, ignoring running current process...", "task_id", request.TaskID)
			return
		}
		defer func() {
			err = redisClient.Unlock(lockKey)
			if err != nil {
				slog.Error("Error while unlocking locked key", "lock_key", lockKey, "err", err.Error())
			}
		}()

		sendCtx, sendCancel := context.WithTimeout(context.Background(), time.Duration(cfg.WorkerTimeOutInSeconds)*time.Second)
		defer sendCancel()

		notification, err := notifications.Send(sendCtx, request)
		if err != nil {
			slog.Error("There was an error in sending the notification", "error", err, "task_id", request.TaskID)
			return
		}
		slog.Info("Notification has been processed", "notification_id", notification.ID, "task_id", request.TaskID, "status", notification.DeliveryStatus)
	}

	// Channel to listen for interrupt signals
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	queueName := cfg.RabbitMQ.NotificationsQueueName
	consumerName := "notification-consumer:" + workerNumber
	slog.Info("Creating consumer for RabbitMQ", "queueName", queueName, "consumer_name", consumerName)
	err = rabbitClient.ConsumeMessages(consumerName, queueName, handlerFunc)
	if err != nil {
		log.Fatalf("Failed to start consuming messages: %v", err)
	}
	slog.Info("Consumer is created successfully", "queueName", queueName, "consumer_name", consumerName)

	// Running HTTP Server in order to have liveness and readiness HTTP APIs
	go setUpHealthCheckerAPIs(ctx, cfg, storage, rabbitClient, redisClient)

	slog.Info("Worker is running. To exit press CTRL+C", "worker_num", workerNumber)
	<-sigChan // Wait for interrupt signal
	slog.Info("Worker is shutting down...", "worker_num", workerNumber)
}

func setUpHealthCheckerAPIs(ctx context.Context, cfg *configs.Config, storage pinger, rabbitClient *rabbitmq.RabbitMQClient, redisClient *redis2.Client) {
	r := gin.Default()
	r.GET("/readiness", func(c *gin.Context) {
		if postgresIsReady && rabbitIsReady && redisIsReady {
			c.JSON(http.StatusOK, gin.H{"status": "ready"})
		} else {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "not ready"})
		}
	})
	r.GET("/liveness", func(c *gin.Context) {
		err := storage.Ping(ctx)
		if err != nil {
			slog.Error("Postgresql seem not to be pingable in liveness API", "error", err.Error())
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "not healthy"})
			return
		}

		isRabbitHealthy := rabbitClient.IsHealthy()
		if !isRabbitHealthy {
			slog.Error("Rabbit is not healthy")
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "not healthy"})
			return
		}

		err = redisClient.Ping(ctx)
		if err != nil {
			slog.Error("Redis seem not to be pingable in liveness API", "error", err.Error())
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "not healthy"})
			return
		}

		c.JSON(http.StatusOK, gin.H{"status": "up"})
	})

	srv := &http.Server{
		Addr:    ":" + cfg.ServerPort,
		Handler: r,
	}

	// Initializing the server in a goroutine so that
	// it won't block the graceful shutdown handling below
	go func() {
		log.Printf("Starting server on port %s\n", cfg.ServerPort)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("listen: %s\n", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")
}
