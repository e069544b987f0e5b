package main

import (
	"context"
	"fmt"
	"time"

	"solidarity/internal/matching"
	"solidarity/internal/notify"
	"solidarity/internal/store"
	"solidarity/pkg/types"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/kelseyhightower/envconfig"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
)

func loadConfig(cCtx *cli.Context) (*types.Config, error) {
	c := new(types.Config)
	if err := envconfig.Process(cCtx.String("env-prefix"), c); err != nil {
		return nil, fmt.Errorf("process environment config: %w", err)
	}

	if c.DatabaseURL == "" {
		return nil, fmt.Errorf("set DATABASE_URL")
	}

	if c.ServerPort == 0 {
		c.ServerPort = 8080
	}

	if c.ReadTimeoutSec == 0 {
		c.ReadTimeoutSec = 10
	}

	if c.WriteTimeoutSec == 0 {
		c.WriteTimeoutSec = 15
	}

	if c.DefaultRadiusM <= 0 {
		return nil, fmt.Errorf("DEFAULT_RADIUS_M must be positive, got %v", c.DefaultRadiusM)
	}

	return c, nil
}

func loadAWSConfig(ctx context.Context) (aws.Config, error) {
	config, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		return aws.Config{}, fmt.Errorf("failed to load aws config: %w", err)
	}

	return config, nil
}

func newLogger(cfg *types.Config) *logrus.Logger {
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})

	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		logger.WithError(err).Warn("invalid LOG_LEVEL, using info")
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)

	return logger
}

func newRepositories(pool *pgxpool.Pool) matching.Repositories {
	return matching.Repositories{
		Needs:       store.NewNeedRepository(pool),
		Offers:      store.NewOfferRepository(pool),
		Facilities:  store.NewFacilityRepository(pool),
		Assignments: store.NewAssignmentRepository(pool),
		Users:       store.NewUserRepository(pool),
		Areas:       store.NewAdminAreaRepository(pool),
	}
}

func engineOptions(cfg *types.Config) matching.Options {
	return matching.Options{
		QueryTimeout:         time.Duration(cfg.SpatialQueryTimeoutSec) * time.Second,
		NotifyTimeout:        time.Duration(cfg.NotifyTimeoutSec) * time.Second,
		DefaultFacilityLimit: cfg.DefaultFacilityLimit,
		MaxFacilityLimit:     cfg.MaxFacilityLimit,
	}
}

func loadFacilityMap(cfg *types.Config) (*matching.FacilityMap, error) {
	if cfg.FacilityMapPath == "" {
		return matching.DefaultFacilityMap(), nil
	}
	return matching.LoadFacilityMap(cfg.FacilityMapPath)
}

// newSender picks the notification transport named by NOTIFY_DRIVER.
func newSender(ctx context.Context, cfg *types.Config, logger *logrus.Logger) (notify.Sender, error) {
	switch cfg.NotifyDriver {
	case "", "log":
		return notify.NewLogSender(logger), nil
	case "smtp":
		if cfg.SMTPHost == "" || cfg.NotifyFromEmail == "" {
			return nil, fmt.Errorf("smtp notifications need SMTP_HOST and NOTIFY_FROM_EMAIL")
		}
		return notify.NewSMTPSender(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUsername, cfg.SMTPPassword, cfg.NotifyFromEmail), nil
	case "ses":
		if cfg.NotifyFromEmail == "" {
			return nil, fmt.Errorf("ses notifications need NOTIFY_FROM_EMAIL")
		}
		awsConfig, err := loadAWSConfig(ctx)
		if err != nil {
			return nil, err
		}
		return notify.NewSESSender(awsConfig, cfg.NotifyFromEmail), nil
	case "sns":
		awsConfig, err := loadAWSConfig(ctx)
		if err != nil {
			return nil, err
		}
		return notify.NewSNSSender(awsConfig), nil
	default:
		return nil, fmt.Errorf("unknown NOTIFY_DRIVER %q", cfg.NotifyDriver)
	}
}
