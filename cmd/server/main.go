package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/sirupsen/logrus"

	"github.com/anemia-triage-server/internal/api"
	"github.com/anemia-triage-server/internal/config"
	"github.com/anemia-triage-server/internal/domain"
	"github.com/anemia-triage-server/internal/history"
	"github.com/anemia-triage-server/internal/model"
	"github.com/anemia-triage-server/internal/service"
)

func main() {
	configManager, err := config.NewManager()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if err := configManager.Validate(); err != nil {
		log.Fatalf("Configuration validation failed: %v", err)
	}
	cfg := configManager.GetConfig()

	logger := newLogger(cfg.Logging)

	// A corrupt artifact aborts startup; an absent one selects the fallback.
	artifact, err := model.Load(cfg.Model.Path, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to load classifier artifact")
	}
	var classifier domain.Classifier
	if artifact != nil {
		classifier = model.NewPipelineClassifier(artifact, logger)
	}

	store, err := history.NewCSVStore(cfg.History.Path, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to initialize history store")
	}
	query := history.NewQueryService(store, logger)

	engine := service.NewDiagnosisEngine(logger, classifier)

	server := api.NewServer(cfg, logger, engine, store, query)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		logger.Info("Shutdown signal received, gracefully shutting down")
		cancel()
	}()

	logger.WithFields(logrus.Fields{
		"host":       cfg.Server.Host,
		"port":       cfg.Server.Port,
		"classifier": engine.ClassifierAvailable(),
	}).Info("Starting anemia triage server")

	if err := server.Start(ctx); err != nil {
		logger.WithError(err).Fatal("Server failed")
	}

	logger.Info("Server stopped")
}

func newLogger(cfg config.LoggingConfig) *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(os.Stdout)

	level, err := logrus.ParseLevel(strings.ToLower(cfg.Level))
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)

	if strings.ToLower(cfg.Format) == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	return logger
}
