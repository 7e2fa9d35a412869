package main

import (
	"context"
	"errors"
	"log"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/user-registration-service/config"
	appuser "github.com/oksasatya/user-registration-service/internal/application"
	"github.com/oksasatya/user-registration-service/internal/container"
	pginfra "github.com/oksasatya/user-registration-service/internal/infrastructure/postgres"
	"github.com/oksasatya/user-registration-service/internal/router"
	"github.com/oksasatya/user-registration-service/pkg/helpers"
)

var demoUsers = []appuser.CreateUserInput{
	{Email: "user1@gmail.com", Username: "user1", Password: "Password123!", FirstName: "John", LastName: "Doe"},
	{Email: "user2@gmail.com", Username: "user2", Password: "Password123!", FirstName: "Jay", LastName: "Weed"},
	{Email: "user3@gmail.com", Username: "user3", Password: "Password123!", FirstName: "Mary Ann", LastName: "Cruz-Santos"},
}

func main() {
	_ = godotenv.Load()
	cfg := config.Load()
	// seeding never sends mail
	cfg.MailSendEnabled = false

	logger := helpers.NewLogger(cfg.AppName+"-seed", cfg.Env, cfg.LogLevel)
	ctx := context.Background()

	pool, err := pginfra.NewPool(ctx, pginfra.PoolConfig{
		DSN:         cfg.PostgresDSN(),
		MaxConns:    cfg.DBMaxConns,
		MinConns:    cfg.DBMinConns,
		MaxConnLife: cfg.DBMaxConnLife,
	})
	if err != nil {
		log.Fatalf("failed to connect to postgres: %v", err)
	}
	defer pool.Close()

	container.SetConfig(cfg)
	container.SetLogger(logger)
	container.SetPGPool(pool)

	svc := router.BuildUserService()
	for _, in := range demoUsers {
		u, err := svc.Create(ctx, in)
		switch {
		case errors.Is(err, appuser.ErrDuplicateIdentity):
			logger.WithField("username", in.Username).Info("already seeded")
		case err != nil:
			log.Fatalf("failed to seed %s: %v", in.Username, err)
		default:
			logger.WithFields(logrus.Fields{"id": u.ID, "username": u.Username}).Info("seeded user")
		}
	}
}
