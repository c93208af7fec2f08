package main

import (
	"context"
	"log"
	"time"

	"chauffeur-backoffice/cmd"
	"chauffeur-backoffice/internal/data/repository"
	"chauffeur-backoffice/internal/provider/accounting"
	"chauffeur-backoffice/internal/provider/messaging"
	"chauffeur-backoffice/internal/provider/payments"
	"chauffeur-backoffice/internal/usecase"
	"chauffeur-backoffice/internal/wire"
	"chauffeur-backoffice/pkg/database"
	"chauffeur-backoffice/pkg/utils"

	"go.uber.org/zap"
)

func main() {
	// Load config
	config, err := utils.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Initialize logger
	logger, err := utils.InitLogger(config.App.LogPath, config.App.Name, config.App.Debug)
	if err != nil {
		log.Printf("Failed to init logger: %v. Using standard log.", err)
		logger, _ = zap.NewProduction()
	}
	defer logger.Sync()

	logger.Info("Starting application",
		zap.String("app", config.App.Name),
		zap.String("port", config.App.Port),
		zap.Bool("debug", config.App.Debug),
	)

	// Connect to database
	db, err := database.InitDB(config.Database)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	err = database.Migrate(ctx, db)
	cancel()
	if err != nil {
		logger.Fatal("Failed to apply schema", zap.Error(err))
	}

	logger.Info("Database connected successfully")

	repos := repository.NewRepository(db, logger)

	// External providers
	messagingClient := messaging.NewClient(config.Messaging, logger)
	providers := usecase.Providers{
		Messaging:  messagingClient,
		Accounting: accounting.NewClient(config.Accounting, logger),
		Payments:   payments.NewClient(config.Stripe, logger),
	}

	app := wire.Wiring(repos, providers, messagingClient, config, logger)

	if err := cmd.APIServer(app.Router, config.App.Port, logger); err != nil {
		logger.Error("Server exited", zap.Error(err))
	}
}
