package router

import (
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/user-registration-service/config"
	appuser "github.com/oksasatya/user-registration-service/internal/application"
	"github.com/oksasatya/user-registration-service/internal/container"
	pginfra "github.com/oksasatya/user-registration-service/internal/infrastructure/postgres"
	"github.com/oksasatya/user-registration-service/internal/infrastructure/search"
	handlers "github.com/oksasatya/user-registration-service/internal/interface/http"
	"github.com/oksasatya/user-registration-service/internal/interface/middleware"
	"github.com/oksasatya/user-registration-service/internal/router/modules"
	"github.com/oksasatya/user-registration-service/pkg/mailer"
)

// BuildUserService wires the lifecycle service from the container singletons.
// The seed command uses it without the HTTP layer.
func BuildUserService() *appuser.Service {
	cfg := container.GetConfig()
	logger := container.GetLogger()

	var index appuser.UserIndex
	if es := container.GetES(); es != nil {
		index = search.NewUserIndex(es, cfg.ESUsersIndex, logger)
	}

	return appuser.NewService(
		pginfra.NewUserRepository(container.GetPGPool()),
		BuildNotifier(cfg, logger),
		index,
		appuser.NotificationConfig{
			Enabled:     cfg.MailSendEnabled,
			Subject:     cfg.MailDefaultSubject,
			CompanyName: cfg.CompanyName,
		},
		logger,
	)
}

// BuildNotifier picks the mail transport for MAIL_DISPATCH_MODE. When the chosen
// transport is not available it falls back to a notifier that only logs.
func BuildNotifier(cfg *config.Config, logger *logrus.Logger) appuser.Notifier {
	switch cfg.MailDispatchMode {
	case config.DispatchQueue:
		if pub := container.GetRabbitPub(); pub != nil {
			return mailer.NewQueueNotifier(pub, logger)
		}
	default:
		if mg := container.GetMailgun(); mg != nil {
			return mailer.NewDirectNotifier(mg, logger)
		}
	}
	return mailer.LogNotifier{Logger: logger}
}

func buildUserHandler() *handlers.UserHandler {
	return handlers.NewUserHandler(BuildUserService(), container.GetLogger(), container.GetConfig().Location())
}

// InitModules initializes all application modules and registers them with the router registry
// This function should be called once during application startup to wire up all modules
func InitModules(r *Registry) {
	cfg := container.GetConfig()
	r.Add(modules.NewUserModule(buildUserHandler(), container.GetRedis(), modules.RateLimits{
		Register: cfg.RateLimitRegister,
		Global:   cfg.RateLimitGlobal,
		Allow:    middleware.AllowIf(cfg.RateLimitBypassPrivate),
	}))
	if cfg.DebugMetricsEnabled {
		r.Add(modules.NewDebugModule(container.GetRedis()))
	}
}
