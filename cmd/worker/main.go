package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"github.com/sahilchouksey/course-market/config"
	"github.com/sahilchouksey/course-market/database"
	"github.com/sahilchouksey/course-market/services"
	"github.com/sahilchouksey/course-market/services/events"
	"gorm.io/gorm"
)

// worker consumes domain events from RabbitMQ and sends transactional email
func main() {
	if err := config.LoadENV(); err != nil {
		log.Println("[WORKER] .env file not found, using system environment variables")
	}

	env, err := config.Get()
	if err != nil {
		log.Fatalf("[WORKER] config: %v", err)
	}
	if env.RABBITMQ_URL == "" {
		log.Fatal("[WORKER] RABBITMQ_URL is not set")
	}

	store, err := database.StartGORM()
	if err != nil {
		log.Fatalf("[WORKER] Failed to connect to database: %v", err)
	}
	defer store.Close()

	email := services.NewEmailService()
	if !email.IsConfigured() {
		log.Println("[WORKER] Warning: SMTP is not configured; events will be acknowledged without email")
	}
	mailer := services.NewEventMailer(store.GetDB().(*gorm.DB), email)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	consumer := &events.Consumer{
		URL:      env.RABBITMQ_URL,
		Exchange: env.RABBITMQ_EXCHANGE,
		Queue:    env.RABBITMQ_QUEUE,
		RoutingKeys: []string{
			events.TypePaymentVerified,
			events.TypePaymentRejected,
			events.TypeCertificateIssued,
		},
		Handler: mailer.Handle,
	}

	log.Printf("[WORKER] Consuming %s from exchange %s", env.RABBITMQ_QUEUE, env.RABBITMQ_EXCHANGE)
	if err := consumer.Run(ctx); err != nil && ctx.Err() == nil {
		log.Fatalf("[WORKER] consumer stopped: %v", err)
	}
	log.Println("[WORKER] shutting down")
}
