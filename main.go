package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"survivaldash/internal"
	"survivaldash/internal/api"
	"survivaldash/internal/config"
	"survivaldash/internal/container"
	"survivaldash/internal/errors"
	"survivaldash/ui"

	"github.com/joho/godotenv"
)

func main() {
	// Load environment variables from .env file
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	appConfig, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger := internal.NewLogger(internal.LogOptions{
		Level:      internal.ParseLogLevel(appConfig.Log.Level),
		File:       appConfig.Log.File,
		MaxSizeMB:  appConfig.Log.MaxSizeMB,
		MaxBackups: appConfig.Log.MaxBackups,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	appContainer, err := container.New(ctx, appConfig, logger, container.Options{Migrate: true})
	if err != nil {
		if errors.GetCode(err) == errors.CodeNotFound {
			logger.Error("table %s is empty; load it first with: survivaldash-cli seed <titanic.csv>", appConfig.Warehouse.Table)
		}
		logger.Error("failed to start: %v", err)
		logger.Sync()
		os.Exit(1)
	}
	defer appContainer.Close()

	server, err := ui.NewServer(ui.Deps{
		Analysis:   appContainer.Analysis,
		Prediction: appContainer.Prediction,
		API:        api.NewRouter(appContainer.Analysis, appContainer.Prediction, logger),
		Health:     appContainer.Session.Ping,
		Logger:     logger,
		GinMode:    appConfig.Server.GinMode,
	})
	if err != nil {
		logger.Error("failed to build dashboard: %v", err)
		return
	}

	if err := server.Run(ctx, ":"+appConfig.Server.Port); err != nil {
		logger.Error("dashboard stopped: %v", err)
	}
}
