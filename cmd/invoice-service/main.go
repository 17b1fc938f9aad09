package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kminvoice/km-invoice/internal/invoice/events"
	"github.com/kminvoice/km-invoice/internal/invoice/extraction"
	"github.com/kminvoice/km-invoice/internal/invoice/extraction/azure"
	"github.com/kminvoice/km-invoice/internal/invoice/extraction/tesseract"
	"github.com/kminvoice/km-invoice/internal/invoice/handler"
	"github.com/kminvoice/km-invoice/internal/invoice/pdf"
	"github.com/kminvoice/km-invoice/internal/invoice/repository"
	"github.com/kminvoice/km-invoice/internal/invoice/service"
	"github.com/kminvoice/km-invoice/pkg/config"
	"github.com/kminvoice/km-invoice/pkg/database"
	"github.com/kminvoice/km-invoice/pkg/logger"
	"github.com/kminvoice/km-invoice/pkg/messaging"
)

const serviceName = "invoice-service"

func main() {
	// Load configuration with validation (fails fast in production if required config is missing)
	cfg, err := config.LoadWithValidation(serviceName)
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(serviceName, cfg.Server.Environment)
	log.SetLevel(cfg.Server.LogLevel)
	log.Info().Msg("starting Invoice Service")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	db, err := database.New(&cfg.Database, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	if cfg.Database.AutoMigrate {
		if err := db.EnsureSchema(ctx); err != nil {
			log.Fatal().Err(err).Msg("failed to create schema")
		}
	}

	health := map[string]handler.HealthFunc{
		"database": db.Health,
	}

	// The broker is optional; without it events are dropped
	var publisher *events.InvoiceEventPublisher
	if cfg.RabbitMQ.Enabled {
		rmq, err := messaging.New(&cfg.RabbitMQ, log)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect to RabbitMQ")
		}
		defer rmq.Close()
		go rmq.Watch(ctx)

		publisher, err = events.NewInvoiceEventPublisher(rmq, log)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to create event publisher")
		}
		health["rabbitmq"] = func(context.Context) map[string]string { return rmq.Health() }
	} else {
		log.Warn().Msg("RabbitMQ disabled; invoice events will not be published")
		publisher = events.NewWithPublisher(messaging.NopPublisher{}, log)
	}

	// Repositories
	invoiceRepo := repository.NewInvoiceRepository(db)
	tierRepo := repository.NewTierRepository(db)

	// Services
	renderer := pdf.NewRenderer(&cfg.PDF)
	invoiceService := service.NewInvoiceService(invoiceRepo, renderer, publisher, log)
	tierService := service.NewTierService(tierRepo, publisher, log)

	// OCR engines, tried in order
	engines := []extraction.Engine{tesseract.New(cfg.OCR.Language)}
	if cfg.OCR.AzureEnabled() {
		engines = append(engines, azure.New(cfg.OCR.AzureEndpoint, cfg.OCR.AzureKey))
	}
	registry := extraction.NewRegistry(engines...)
	log.Info().Strs("engines", registry.Names()).Msg("OCR engines registered")

	parser := extraction.NewService(
		registry,
		extraction.NewRasterizer(cfg.OCR.DPI, cfg.OCR.MaxPages).WithMaxPixels(cfg.OCR.MaxPixels),
		cfg.OCR.Enhance,
		log,
	)

	router := handler.NewRouter(handler.RouterConfig{
		Invoices:       handler.NewInvoiceHandler(invoiceService, log),
		Tiers:          handler.NewTierHandler(tierService, log),
		Parser:         handler.NewParseHandler(parser, cfg.Server.MaxUploadSize, log),
		Health:         health,
		AllowedOrigins: cfg.CORS.AllowedOrigins,
		Logger:         log,
	})

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		log.Info().Str("addr", addr).Msg("server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("server stopped")
}
