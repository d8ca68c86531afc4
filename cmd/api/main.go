package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/govscheme-portal/internal/application/notification"
	"github.com/govscheme-portal/internal/application/user"
	"github.com/govscheme-portal/internal/config"
	"github.com/govscheme-portal/internal/infrastructure/dynamo"
	jwtinfra "github.com/govscheme-portal/internal/infrastructure/jwt"
	"github.com/govscheme-portal/internal/infrastructure/metrics"
	s3infra "github.com/govscheme-portal/internal/infrastructure/s3"
	"github.com/govscheme-portal/internal/infrastructure/smtp"
	"github.com/govscheme-portal/internal/infrastructure/sns"
	transporthttp "github.com/govscheme-portal/internal/transport/http"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, reading from environment")
	}

	cfg := config.Load()

	// Bootstrap DynamoDB tables (creates them if they don't exist).
	dynamoClient, err := dynamo.NewClient(context.Background(), cfg)
	if err != nil {
		log.Fatalf("dynamodb client: %v", err)
	}
	dynamo.Bootstrap(context.Background(), dynamoClient, cfg.DynamoTables)

	jwtProvider, err := jwtinfra.NewProvider(cfg)
	if err != nil {
		log.Fatalf("jwt provider: %v", err)
	}

	m := metrics.New(prometheus.DefaultRegisterer)
	mailer := smtp.NewMailer(cfg)
	s3Client, err := s3infra.NewClient(context.Background(), cfg)
	if err != nil {
		log.Fatalf("s3 client: %v", err)
	}
	s3Store := s3infra.NewStore(s3Client, cfg)

	// Scheme announcements are optional.
	var announcer sns.Publisher
	if cfg.SNSTopicARN != "" {
		if p, err := sns.NewPublisher(context.Background(), cfg); err == nil {
			announcer = p
		} else {
			log.Printf("WARN: SNS publisher not available: %v", err)
		}
	}

	userRepo := dynamo.NewUserRepo(dynamoClient, cfg.DynamoTables.Users, cfg.DynamoTables.UserEmails)
	schemeRepo := dynamo.NewSchemeRepo(dynamoClient, cfg.DynamoTables.Schemes)

	if err := user.NewService(user.ServiceDeps{UserRepo: userRepo}).
		EnsureAdmin(context.Background(), cfg.AdminEmail, cfg.AdminPassword); err != nil {
		log.Fatalf("seed admin: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	dispatcher := notification.NewDispatcher(cfg.NotifyWorkers, cfg.NotifyQueueSize, cfg.NotifyTaskTimeout, m)
	dispatched := make(chan struct{})
	go func() {
		defer close(dispatched)
		if err := dispatcher.Run(ctx); err != nil {
			slog.Error("notification dispatcher stopped", "err", err)
		}
	}()

	deps := &transporthttp.Deps{
		UserRepo:    userRepo,
		SchemeRepo:  schemeRepo,
		Documents:   s3Store,
		Announcer:   announcer,
		Mailer:      mailer,
		JWTProvider: jwtProvider,
		Queue:       dispatcher,
		Metrics:     m,
	}

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.AppPort),
		Handler:      transporthttp.NewRouter(cfg, deps),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("Server starting on :%s (env=%s)", cfg.AppPort, cfg.AppEnv)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	<-ctx.Done()

	log.Println("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("forced shutdown: %v", err)
	}
	<-dispatched
	log.Println("Server stopped")
}
