package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	"github.com/mzkhan-25/field-services-mk/configs"
	db2 "github.com/mzkhan-25/field-services-mk/db"
	"github.com/mzkhan-25/field-services-mk/internal/assignment"
	"github.com/mzkhan-25/field-services-mk/internal/domain"
	"github.com/mzkhan-25/field-services-mk/internal/errval"
	"github.com/mzkhan-25/field-services-mk/internal/notifier"
	"github.com/mzkhan-25/field-services-mk/internal/postgres"
	"github.com/mzkhan-25/field-services-mk/internal/rabbitmq"
	redis2 "github.com/mzkhan-25/field-services-mk/internal/redis"
	"github.com/mzkhan-25/field-services-mk/internal/tasks"
	"github.com/mzkhan-25/field-services-mk/internal/tracking"
	"github.com/mzkhan-25/field-services-mk/pkg/sender"

	_ "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	_ "github.com/golang-migrate/migrate/v4/source/file"
)

var postgresIsReady, rabbitIsReady, redisIsReady bool

type pinger interface {
	Ping(ctx context.Context) error
}

// serverDeps carries everything the HTTP layer needs, so tests can wire the
// same routes over in-memory implementations.
type serverDeps struct {
	tasks         *tasks.Service
	assignments   *assignment.Coordinator
	tracking      *tracking.Service
	notifications *notifier.Service
	store         pinger
	queue         domain.Queue
}

func main() {
	cfg := configs.InitConfig()

	h := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo})
	slog.SetDefault(slog.New(h))

	d, err := iofs.New(db2.Migrations, "migrations")
	if err != nil {
		log.Fatal(err)
		return
	}

	m, err := migrate.NewWithSourceInstance("iofs", d, cfg.Database.ToMigrationUri())
	if err != nil {
		log.Fatal(err)
		return
	}

	if err := m.Up(); err != nil {
		if !errors.Is(err, migrate.ErrNoChange) {
			log.Fatal(err)
		}
	}
	slog.Info("Migrations ran successfully")

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.ServerTimeOutInSeconds)*time.Second)
	defer cancel()

	storage, err := postgres.NewStorage(ctx, cfg.Database.ToDbConnectionUri())
	if err != nil {
		log.Fatal(err)
	}
	postgresIsReady = true
	slog.Info("Postgres connection has been initialized successfully")

	rabbitClient, err := rabbitmq.NewRabbitMQClient(context.Background(), cfg.RabbitMQ.ToRabbitConnectionUri(), cfg.RabbitMQ.GetMainQueueNames())
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
	slog.Info("RabbitMQ has been initialized successfully")

	redisClient, err := redis2.NewClient(context.Background(), cfg.RedisConfig.ToRedisConnectionUri())
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

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Mail.AWSRegion))
	if err != nil {
		log.Fatal(err)
	}
	channelSender := sender.NewSESSender(awsCfg, cfg.Mail.FromEmail)

	throttle := redis2.NewThrottle(redisClient, time.Duration(cfg.LocationThrottleSeconds)*time.Second)
	enqueuer := notifier.NewQueueEnqueuer(rabbitClient, cfg.RabbitMQ.NotificationsQueueName)

	deps := serverDeps{
		tasks:         tasks.NewService(storage, storage, redisClient, enqueuer),
		assignments:   assignment.NewCoordinator(storage, storage, redisClient, enqueuer),
		tracking:      tracking.NewService(storage, storage, storage, throttle, rabbitClient, cfg.RabbitMQ.LiveLocationsQueueName),
		notifications: notifier.NewService(storage, channelSender, cfg.NotificationMaxRetries),
		store:         storage,
		queue:         rabbitClient,
	}

	router := setupHTTPServer(deps)
	srv := &http.Server{
		Addr:    ":" + cfg.ServerPort,
		Handler: router,
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
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown:", err)
	}

	log.Println("Server exiting")
}

func setupHTTPServer(deps serverDeps) *gin.Engine {
	r := gin.Default()
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		err := v.RegisterValidation("validate_priority", validatePriority)
		if err != nil {
			log.Fatal("failed to bind validation rule of validate_priority")
		}

		err = v.RegisterValidation("validate_channel", validateChannel)
		if err != nil {
			log.Fatal("failed to bind validation rule of validate_channel")
		}

		err = v.RegisterValidation("validate_notification_type", validateNotificationType)
		if err != nil {
			log.Fatal("failed to bind validation rule of validate_notification_type")
		}
	}

	taskRoutes := r.Group("/tasks")
	taskRoutes.POST("", func(c *gin.Context) {
		req := domain.RouterRequestCreateTask{}
		if err := c.ShouldBindBodyWith(&req, binding.JSON); err != nil {
			slog.Error("error occurred while binding request", "error", err)
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		task, err := deps.tasks.Create(c, req)
		if err != nil {
			respondError(c, err)
			return
		}

		c.JSON(http.StatusCreated, task)
	})

	taskRoutes.GET("", func(c *gin.Context) {
		allTasks, err := deps.tasks.GetAll(c)
		if err != nil {
			respondError(c, err)
			return
		}

		c.JSON(http.StatusOK, allTasks)
	})

	taskRoutes.GET("/unassigned", func(c *gin.Context) {
		unassigned, err := deps.tasks.GetUnassigned(c)
		if err != nil {
			respondError(c, err)
			return
		}

		c.JSON(http.StatusOK, unassigned)
	})

	taskRoutes.GET("/:id", func(c *gin.Context) {
		id, ok := parseID(c)
		if !ok {
			return
		}

		task, err := deps.tasks.GetByID(c, id)
		if err != nil {
			respondError(c, err)
			return
		}

		c.JSON(http.StatusOK, task)
	})

	taskRoutes.PATCH("/:id", func(c *gin.Context) {
		id, ok := parseID(c)
		if !ok {
			return
		}

		req := domain.RouterRequestUpdateTask{}
		if err := c.ShouldBindBodyWith(&req, binding.JSON); err != nil {
			slog.Error("error occurred while binding request", "error", err)
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		task, err := deps.tasks.Update(c, id, req)
		if err != nil {
			respondError(c, err)
			return
		}

		c.JSON(http.StatusOK, task)
	})

	taskRoutes.POST("/:id/assign", func(c *gin.Context) {
		id, ok := parseID(c)
		if !ok {
			return
		}

		req := domain.RouterRequestAssignTask{}
		if err := c.ShouldBindBodyWith(&req, binding.JSON); err != nil {
			slog.Error("error occurred while binding request", "error", err)
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		task, err := deps.assignments.Assign(c, id, req.TechnicianID, req.AssignedByID, notificationTarget(req.CustomerID, req.CustomerContact, req.Channel))
		if err != nil {
			respondError(c, err)
			return
		}

		c.JSON(http.StatusOK, task)
	})

	taskRoutes.POST("/:id/start", func(c *gin.Context) {
		id, ok := parseID(c)
		if !ok {
			return
		}

		req := domain.RouterRequestStartTask{}
		if c.Request.ContentLength > 0 {
			if err := c.ShouldBindBodyWith(&req, binding.JSON); err != nil {
				slog.Error("error occurred while binding request", "error", err)
				c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
		}

		task, err := deps.tasks.Start(c, id, notificationTarget(req.CustomerID, req.CustomerContact, req.Channel))
		if err != nil {
			respondError(c, err)
			return
		}

		c.JSON(http.StatusOK, task)
	})

	taskRoutes.POST("/:id/complete", func(c *gin.Context) {
		id, ok := parseID(c)
		if !ok {
			return
		}

		req := domain.RouterRequestCompleteTask{}
		if err := c.ShouldBindBodyWith(&req, binding.JSON); err != nil {
			slog.Error("error occurred while binding request", "error", err)
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		task, err := deps.tasks.Complete(c, id, req.WorkSummary)
		if err != nil {
			respondError(c, err)
			return
		}

		c.JSON(http.StatusOK, task)
	})

	taskRoutes.GET("/:id/status", func(c *gin.Context) {
		id, ok := parseID(c)
		if !ok {
			return
		}

		status, err := deps.tasks.GetStatus(c, id)
		if err != nil {
			respondError(c, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{"status": status})
	})

	r.GET("/technicians/available", func(c *gin.Context) {
		technicians, err := deps.assignments.ListAvailableTechnicians(c)
		if err != nil {
			respondError(c, err)
			return
		}

		c.JSON(http.StatusOK, technicians)
	})

	locationRoutes := r.Group("/locations")
	locationRoutes.POST("", func(c *gin.Context) {
		req := domain.RouterRequestReportLocation{}
		if err := c.ShouldBindBodyWith(&req, binding.JSON); err != nil {
			slog.Error("error occurred while binding request", "error", err)
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		location, err := deps.tracking.Report(c, req)
		if err != nil {
			respondError(c, err)
			return
		}

		c.JSON(http.StatusCreated, location)
	})

	locationRoutes.GET("/technicians", func(c *gin.Context) {
		locations, err := deps.tracking.LatestPerTechnician(c, tracking.ActiveWindow)
		if err != nil {
			respondError(c, err)
			return
		}

		c.JSON(http.StatusOK, locations)
	})

	locationRoutes.GET("/technicians/nearest", func(c *gin.Context) {
		latitude, err := strconv.ParseFloat(c.Query("latitude"), 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid latitude"})
			return
		}
		longitude, err := strconv.ParseFloat(c.Query("longitude"), 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid longitude"})
			return
		}

		location, err := deps.tracking.Nearest(c, tracking.ActiveWindow, latitude, longitude)
		if err != nil {
			respondError(c, err)
			return
		}

		c.JSON(http.StatusOK, location)
	})

	locationRoutes.GET("/tasks", func(c *gin.Context) {
		views, err := deps.tracking.TaskLocations(c)
		if err != nil {
			respondError(c, err)
			return
		}

		c.JSON(http.StatusOK, views)
	})

	locationRoutes.GET("/user/:id", func(c *gin.Context) {
		id, ok := parseID(c)
		if !ok {
			return
		}

		location, err := deps.tracking.LatestForUser(c, id)
		if err != nil {
			respondError(c, err)
			return
		}

		c.JSON(http.StatusOK, location)
	})

	notificationRoutes := r.Group("/notifications")
	notificationRoutes.POST("/send", func(c *gin.Context) {
		req := domain.NotificationRequest{}
		if err := c.ShouldBindBodyWith(&req, binding.JSON); err != nil {
			slog.Error("error occurred while binding request", "error", err)
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		notification, err := deps.notifications.Send(c, req)
		if err != nil {
			respondError(c, err)
			return
		}

		c.JSON(http.StatusCreated, notification)
	})

	notificationRoutes.GET("/:taskId", func(c *gin.Context) {
		idStr := c.Param("taskId")
		id, err := strconv.ParseInt(idStr, 10, 64)
		if err != nil {
			slog.Error("Invalid taskId parameter", "error", err)
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid id"})
			return
		}

		notifications, err := deps.notifications.NotificationsByTask(c, id)
		if err != nil {
			respondError(c, err)
			return
		}

		c.JSON(http.StatusOK, notifications)
	})

	notificationRoutes.POST("/retry", func(c *gin.Context) {
		if err := deps.notifications.RetryFailed(c); err != nil {
			respondError(c, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{})
	})

	r.GET("/readiness", func(c *gin.Context) {
		if postgresIsReady && rabbitIsReady && redisIsReady {
			c.JSON(http.StatusOK, gin.H{"status": "ready"})
		} else {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "not ready"})
		}
	})
	r.GET("/liveness", func(c *gin.Context) {
		err := deps.store.Ping(c)
		if err != nil {
			slog.Error("Postgresql seem not to be pingable in liveness API", "error", err.Error())
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "not healthy"})
			return
		}

		if !deps.queue.IsHealthy() {
			slog.Error("Rabbit is not healthy")
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "not healthy"})
			return
		}

		c.JSON(http.StatusOK, gin.H{"status": "up"})
	})

	return r
}

func parseID(c *gin.Context) (int64, bool) {
	idStr := c.Param("id")
	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil {
		slog.Error("Invalid id parameter, error occurred while casting id str to int", "error", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid id"})
		return 0, false
	}

	return id, true
}

func notificationTarget(customerID *int64, contact, channel *string) *notifier.Target {
	if customerID == nil || contact == nil {
		return nil
	}

	target := &notifier.Target{
		CustomerID: *customerID,
		Contact:    *contact,
		Channel:    domain.ChannelEmail,
	}
	if channel != nil {
		target.Channel = domain.NotificationChannel(*channel)
	}

	return target
}

func respondError(c *gin.Context, err error) {
	var throttled *errval.ThrottledError

	switch {
	case errors.Is(err, errval.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{})
	case errors.As(err, &throttled):
		c.JSON(http.StatusTooManyRequests, gin.H{"error": err.Error(), "retry_after_seconds": throttled.RetryAfterSeconds})
	case errors.Is(err, errval.ErrInvalidArgument):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, errval.ErrAlreadyAssigned), errors.Is(err, errval.ErrInvalidState), errors.Is(err, errval.ErrUnavailable):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{})
	}
}

var validatePriority validator.Func = func(fl validator.FieldLevel) bool {
	priority := fl.Field().String()
	switch priority {
	case string(domain.High), string(domain.Medium), string(domain.Low):
		return true
	default:
		return false
	}
}

var validateChannel validator.Func = func(fl validator.FieldLevel) bool {
	channel := fl.Field().String()
	switch channel {
	case string(domain.ChannelEmail), string(domain.ChannelSms), string(domain.ChannelBoth):
		return true
	default:
		return false
	}
}

var validateNotificationType validator.Func = func(fl validator.FieldLevel) bool {
	notificationType := fl.Field().String()
	switch notificationType {
	case string(domain.TaskAssignedNotification), string(domain.TaskInProgressNotification),
		string(domain.TaskCompletedNotification), string(domain.TaskCancelledNotification):
		return true
	default:
		return false
	}
}
