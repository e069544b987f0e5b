package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"solidarity/internal/db"
	"solidarity/internal/matching"
	"solidarity/internal/notify"
	"solidarity/internal/server"
	"solidarity/internal/store"

	"github.com/lestrrat-go/httprc/v3"
	"github.com/lestrrat-go/jwx/v3/jwk"
	"github.com/urfave/cli/v2"
)

var serveCommand = &cli.Command{
	Name:   "serve",
	Usage:  "Start the HTTP server",
	Action: serve,
}

func serve(cCtx *cli.Context) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	config, err := loadConfig(cCtx)
	if err != nil {
		return err
	}

	logger := newLogger(config)

	if config.CognitoIssuerURL == "" {
		return fmt.Errorf("set COGNITO_ISSUER_URL")
	}

	pool, err := db.Connect(ctx, config)
	if err != nil {
		return err
	}
	defer pool.Close()

	facilityMap, err := loadFacilityMap(config)
	if err != nil {
		return err
	}

	sender, err := newSender(ctx, config, logger)
	if err != nil {
		return err
	}

	dispatcher := notify.NewDispatcher(
		logger,
		sender,
		config.NotifyWorkers,
		config.NotifyQueueSize,
		time.Duration(config.NotifyTimeoutSec)*time.Second,
	)

	engine := matching.New(logger, newRepositories(pool), dispatcher, facilityMap, engineOptions(config))

	jwkCache, err := jwk.NewCache(context.Background(), httprc.NewClient())
	if err != nil {
		return fmt.Errorf("failed to initialize jwk cache: %w", err)
	}

	jwksURL := fmt.Sprintf("%s/.well-known/jwks.json", config.CognitoIssuerURL)

	err = jwkCache.Register(context.Background(), jwksURL)
	if err != nil {
		return fmt.Errorf("failed to register cognito jwk with cache: %w", err)
	}

	srv, err := server.New(
		config,
		logger,
		engine,
		store.NewCategoryRepository(pool),
		store.NewFacilityRepository(pool),
		store.NewUserRepository(pool),
		server.NewJWKVerifier(jwkCache, jwksURL),
	)
	if err != nil {
		return err
	}

	go func() {
		logger.WithField("port", config.ServerPort).Infof("server starting http://localhost:%d", config.ServerPort)
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Fatal("server failed")
		}
	}()

	<-ctx.Done()
	logger.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Stop(shutdownCtx); err != nil {
		return err
	}

	// drain queued notifications after the last request has committed
	if err := dispatcher.Close(shutdownCtx); err != nil {
		logger.WithError(err).Warn("notification queue not drained")
	}

	return nil
}
