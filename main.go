package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"jengamart/internal/config"
	"jengamart/internal/repositories"
	"jengamart/internal/seed"
	"jengamart/internal/server"
	"jengamart/internal/services"
	"jengamart/internal/store"
	"jengamart/pkg/rabbitmq"
)

func main() {
	// --- Configuration ---
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// --- Database ---
	db, err := store.Open(cfg.DatabaseDriver, cfg.DatabaseDSN)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}

	// --- RabbitMQ (optional) ---
	var publisher services.EventPublisher
	var mqClient *rabbitmq.Client
	if cfg.RabbitMQURL != "" {
		mqClient, err = rabbitmq.NewClient(rabbitmq.Config{URL: cfg.RabbitMQURL})
		if err != nil {
			log.Fatalf("Failed to initialize RabbitMQ client: %v", err)
		}
		defer mqClient.Close() // Ensure the connection is closed on exit
		publisher = mqClient
	} else {
		log.Println("RABBITMQ_URL not set, domain events are disabled")
	}

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	if cfg.SeedDemo {
		seeder := seed.NewSeeder(
			repositories.NewGORMTxManager(db),
			repositories.NewGORMUserRepository(db),
			repositories.NewGORMSellerRepository(db),
			repositories.NewGORMProductRepository(db),
		)
		if _, err := seeder.Run(ctx); err != nil {
			log.Printf("Error seeding demo data: %v", err)
		}
	}

	srv := server.New(cfg, db, publisher, nil)

	// --- Background workers ---
	go srv.Reconciler.Run(ctx)

	if mqClient != nil {
		log.Println("Starting RabbitMQ consumer for marketplace events...")
		if consumerErr := mqClient.ConsumeEvents(rabbitmq.LogEvent); consumerErr != nil {
			log.Printf("Failed to start RabbitMQ consumer: %v", consumerErr)
		}
	}

	// --- Start HTTP Server ---
	log.Printf("Starting server on port %s", cfg.AppPort)

	// Graceful shutdown handling
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		if err := srv.App.Listen(cfg.AppPort); err != nil {
			log.Fatalf("Server failed to start: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shut down the server
	<-quit
	log.Println("Shutting down server...")
	stop()

	if err := srv.App.Shutdown(); err != nil {
		log.Printf("Error during Fiber shutdown: %v", err)
	}
	if sqlDB, err := db.DB(); err == nil {
		sqlDB.Close()
	}

	log.Println("Server gracefully stopped")
}
