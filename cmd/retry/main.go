package main

import (
	"context"
	"log"
	"log/slog"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"

	"github.com/mzkhan-25/field-services-mk/configs"
	"github.com/mzkhan-25/field-services-mk/internal/notifier"
	"github.com/mzkhan-25/field-services-mk/internal/postgres"
	"github.com/mzkhan-25/field-services-mk/pkg/sender"
)

// One-shot sweep over FAILED notifications, meant to be run from cron or a
// Kubernetes CronJob. Records past their retry budget are skipped and stay
// FAILED for manual inspection.
func main() {
	cfg := configs.InitConfig()

	ctx := context.Background()
	storage, err := postgres.NewStorage(ctx, cfg.Database.ToDbConnectionUri())
	if err != nil {
		log.Fatal(err)
	}
	slog.Info("Postgres connection has been initialized successfully")

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Mail.AWSRegion))
	if err != nil {
		log.Fatal(err)
	}
	channelSender := sender.NewSESSender(awsCfg, cfg.Mail.FromEmail)

	notifications := notifier.NewService(storage, channelSender, cfg.NotificationMaxRetries)

	slog.Info("Starting retry sweep of failed notifications", "max_retries", cfg.NotificationMaxRetries)
	if err := notifications.RetryFailed(ctx); err != nil {
		slog.Error("Error occurred while retrying failed notifications", "error", err.Error())
		return
	}
	slog.Info("Retry sweep of failed notifications has finished")
}
