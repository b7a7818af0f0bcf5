package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/NeuralTrust/TrustModeration/pkg/config"
	"github.com/NeuralTrust/TrustModeration/pkg/dependency_container"
	infraLogger "github.com/NeuralTrust/TrustModeration/pkg/infra/logger"
	"github.com/NeuralTrust/TrustModeration/pkg/server"
	"github.com/joho/godotenv"
)

//go:generate swag init --dir ../../ --generalInfo cmd/moderator/main.go --output ../../docs --outputTypes json

// @title TrustModeration API
// @version 1.0
// @description Multi-modal content moderation for text, image, audio and video.
// @BasePath /
func main() {
	ctx := context.Background()
	envFile := os.Getenv("ENV_FILE")
	if envFile == "" {
		envFile = ".env"
	}
	if err := godotenv.Load(envFile); err != nil {
		log.Println("no .env file found, using system environment variables")
	}

	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "./config"
	}
	if err := config.Load(configPath); err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	cfg := config.GetConfig()

	logger := infraLogger.NewLogger(cfg.Logger.Component)
	if os.Getenv("LOG_LEVEL") == "" {
		logger.SetLevel(infraLogger.ParseLevel(cfg.Logger.Level))
	}

	container, err := dependency_container.NewContainer(ctx, dependency_container.ContainerDI{
		Cfg:    cfg,
		Logger: logger,
	})
	if err != nil {
		logger.Fatalf("failed to initialize container: %v", err)
	}

	srv := server.NewModerationServer(server.ModerationServerDI{
		Config:  cfg,
		Logger:  logger,
		Routers: container.Routers,
	})

	go func() {
		if err := srv.Run(); err != nil {
			logger.Fatalf("server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	<-quit
	fmt.Println("shutting down server...")
	if err := srv.Shutdown(); err != nil {
		fmt.Println("error shutting down server:", err)
		container.Close()
		os.Exit(1)
	}
	container.Close()
	fmt.Println("server gracefully stopped")
}
