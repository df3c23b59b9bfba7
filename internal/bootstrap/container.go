package bootstrap

import (
	"context"
	"errors"
	"time"

	"github.com/gin-gonic/gin"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
	"github.com/samber/do"
	"github.com/teamhub-dev/teamhub/db"
	"github.com/teamhub-dev/teamhub/internal/archive"
	"github.com/teamhub-dev/teamhub/internal/auth"
	"github.com/teamhub-dev/teamhub/internal/cache"
	"github.com/teamhub-dev/teamhub/internal/config"
	"github.com/teamhub-dev/teamhub/internal/handlers"
	"github.com/teamhub-dev/teamhub/internal/httpclient"
	"github.com/teamhub-dev/teamhub/internal/logger"
	"github.com/teamhub-dev/teamhub/internal/middleware"
	"github.com/teamhub-dev/teamhub/internal/monitors"
	"github.com/teamhub-dev/teamhub/internal/notify"
	"github.com/teamhub-dev/teamhub/internal/queue"
	"github.com/teamhub-dev/teamhub/internal/realtime"
	"github.com/teamhub-dev/teamhub/internal/router"
	"github.com/teamhub-dev/teamhub/internal/scheduler"
	"github.com/teamhub-dev/teamhub/internal/services"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Outbound holds the optional delivery backends. A nil field is disabled.
type Outbound struct {
	Mailer   notify.Mailer
	Pusher   notify.Pusher
	Archiver scheduler.Archiver

	publisher *queue.Publisher
	amqpConn  *amqp.Connection
}

// Shutdown is called by the injector.
func (o *Outbound) Shutdown() error {
	var errs []error
	if o.publisher != nil {
		errs = append(errs, o.publisher.Close())
	}
	if o.amqpConn != nil && !o.amqpConn.IsClosed() {
		errs = append(errs, o.amqpConn.Close())
	}
	return errors.Join(errs...)
}

func buildOutbound(cfg *config.Config, conn *gorm.DB, client *httpclient.Client, log *zap.Logger) (*Outbound, error) {
	out := &Outbound{}

	switch cfg.Mail.Transport {
	case "amqp":
		amqpConn, err := amqp.Dial(cfg.RabbitMQ.URL)
		if err != nil {
			return nil, err
		}
		out.amqpConn = amqpConn
		out.publisher = queue.NewPublisher(amqpConn, log)
		out.Mailer = notify.NewQueueMailer(out.publisher, cfg.RabbitMQ.MailQueue, cfg.Mail.From)
	case "webhook":
		out.Mailer = notify.NewWebhookMailer(cfg.Mail.WebhookURL, cfg.Mail.From, client)
	case "log":
		out.Mailer = notify.NewLogMailer(cfg.Mail.From, log)
	}

	if cfg.Push.Enabled {
		out.Pusher = notify.NewExpoPusher(conn, cfg.Push.ExpoURL, client)
	}

	if cfg.S3.Enabled {
		uploader, err := archive.NewS3Uploader(context.Background(), cfg.S3)
		if err != nil {
			return nil, err
		}
		out.Archiver = archive.NewS3Archiver(uploader, cfg.S3.Bucket, cfg.S3.ArchivePrefix)
	}

	return out, nil
}

func BuildContainer() *do.Injector {
	inj := do.New()

	// config
	do.Provide(inj, func(i *do.Injector) (*config.Config, error) {
		return config.Load()
	})

	// logger
	do.Provide(inj, func(i *do.Injector) (*zap.Logger, error) {
		cfg := do.MustInvoke[*config.Config](i)
		return logger.New(cfg.Log.Level, cfg.App.Env)
	})

	// DB
	do.Provide(inj, func(i *do.Injector) (*gorm.DB, error) {
		cfg := do.MustInvoke[*config.Config](i)
		conn, err := db.ConnectDatabase(cfg.Database, do.MustInvoke[*zap.Logger](i))
		if err != nil {
			return nil, err
		}
		if cfg.Database.AutoMigrate {
			if err := db.MigrateDatabase(conn); err != nil {
				return nil, err
			}
		}
		return conn, nil
	})

	do.Provide(inj, func(i *do.Injector) (*httpclient.Client, error) {
		return httpclient.New(10 * time.Second), nil
	})

	do.Provide(inj, func(i *do.Injector) (*Outbound, error) {
		return buildOutbound(
			do.MustInvoke[*config.Config](i),
			do.MustInvoke[*gorm.DB](i),
			do.MustInvoke[*httpclient.Client](i),
			do.MustInvoke[*zap.Logger](i),
		)
	})

	// Redis; the client dials lazily and is only used when enabled
	do.Provide(inj, func(i *do.Injector) (*redis.Client, error) {
		return cache.New(do.MustInvoke[*config.Config](i)), nil
	})

	// presence is shared through redis when enabled, otherwise per process
	do.Provide(inj, func(i *do.Injector) (realtime.Presence, error) {
		cfg := do.MustInvoke[*config.Config](i)
		if !cfg.Redis.Enabled {
			return realtime.NewMemoryPresence(), nil
		}
		rdb := do.MustInvoke[*redis.Client](i)
		if err := cache.Ping(context.Background(), rdb); err != nil {
			return nil, err
		}
		return realtime.NewRedisPresence(rdb, cfg.Redis.PresenceKey), nil
	})

	do.Provide(inj, func(i *do.Injector) ([]monitors.Probe, error) {
		cfg := do.MustInvoke[*config.Config](i)
		probes := []monitors.Probe{monitors.NewDatabaseProbe(do.MustInvoke[*gorm.DB](i))}
		if cfg.Redis.Enabled {
			probes = append(probes, monitors.NewRedisProbe(do.MustInvoke[*redis.Client](i)))
		}
		return probes, nil
	})

	do.Provide(inj, func(i *do.Injector) (*realtime.Hub, error) {
		return realtime.NewHub(do.MustInvoke[realtime.Presence](i), do.MustInvoke[*zap.Logger](i)), nil
	})

	do.Provide(inj, func(i *do.Injector) (*notify.Notifier, error) {
		cfg := do.MustInvoke[*config.Config](i)
		out := do.MustInvoke[*Outbound](i)
		return notify.NewNotifier(
			do.MustInvoke[*gorm.DB](i),
			do.MustInvoke[*realtime.Hub](i),
			out.Mailer,
			out.Pusher,
			cfg.Mail.BaseURL,
			do.MustInvoke[*zap.Logger](i),
		), nil
	})

	do.Provide(inj, func(i *do.Injector) (*auth.TokenManager, error) {
		cfg := do.MustInvoke[*config.Config](i)
		return auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL), nil
	})

	// Service
	do.Provide(inj, func(i *do.Injector) (services.UserService, error) {
		cfg := do.MustInvoke[*config.Config](i)
		return services.NewUserService(
			do.MustInvoke[*gorm.DB](i),
			do.MustInvoke[*Outbound](i).Mailer,
			cfg.Mail.BaseURL,
			cfg.Auth.ResetTokenTTL,
			do.MustInvoke[*zap.Logger](i),
		), nil
	})
	do.Provide(inj, func(i *do.Injector) (services.ProjectService, error) {
		return services.NewProjectService(do.MustInvoke[*gorm.DB](i)), nil
	})
	do.Provide(inj, func(i *do.Injector) (services.TaskService, error) {
		return services.NewTaskService(
			do.MustInvoke[*gorm.DB](i),
			do.MustInvoke[*notify.Notifier](i),
			do.MustInvoke[*zap.Logger](i),
		), nil
	})
	do.Provide(inj, func(i *do.Injector) (services.InvitationService, error) {
		return services.NewInvitationService(do.MustInvoke[*gorm.DB](i), do.MustInvoke[*notify.Notifier](i)), nil
	})
	do.Provide(inj, func(i *do.Injector) (services.MentorService, error) {
		return services.NewMentorService(
			do.MustInvoke[*gorm.DB](i),
			do.MustInvoke[*notify.Notifier](i),
			do.MustInvoke[*zap.Logger](i),
		), nil
	})
	do.Provide(inj, func(i *do.Injector) (services.PushTokenService, error) {
		return services.NewPushTokenService(do.MustInvoke[*gorm.DB](i)), nil
	})
	do.Provide(inj, func(i *do.Injector) (services.ChatService, error) {
		cfg := do.MustInvoke[*config.Config](i)
		return services.NewChatService(
			do.MustInvoke[*gorm.DB](i),
			do.MustInvoke[*realtime.Hub](i),
			do.MustInvoke[*notify.Notifier](i),
			cfg.Scheduler.RetentionWindow,
			do.MustInvoke[*zap.Logger](i),
		), nil
	})

	do.Provide(inj, func(i *do.Injector) (*middleware.Authenticator, error) {
		cfg := do.MustInvoke[*config.Config](i)
		var identity auth.IdentityVerifier
		if cfg.Auth.IdentityVerifyURL != "" {
			identity = auth.NewHTTPIdentityVerifier(cfg.Auth.IdentityVerifyURL, do.MustInvoke[*httpclient.Client](i))
		}
		return middleware.NewAuthenticator(
			do.MustInvoke[*auth.TokenManager](i),
			do.MustInvoke[services.UserService](i),
			identity,
			cfg.Auth.AllowLegacyUserID,
			cfg.Auth.CookieName,
			do.MustInvoke[*zap.Logger](i),
		), nil
	})

	do.Provide(inj, func(i *do.Injector) (*realtime.Dispatcher, error) {
		return realtime.NewDispatcher(
			do.MustInvoke[*realtime.Hub](i),
			do.MustInvoke[services.ChatService](i),
			do.MustInvoke[*zap.Logger](i),
		), nil
	})

	do.Provide(inj, func(i *do.Injector) (*scheduler.Scheduler, error) {
		cfg := do.MustInvoke[*config.Config](i)
		log := do.MustInvoke[*zap.Logger](i)
		conn := do.MustInvoke[*gorm.DB](i)

		s := scheduler.NewScheduler(cfg.Scheduler.RunOnStart, log)
		dueDates := scheduler.NewDueDateJob(conn, do.MustInvoke[*notify.Notifier](i), log)
		if err := s.AddJob(dueDates.Job(cfg.Scheduler.DueDateInterval)); err != nil {
			return nil, err
		}
		retention := scheduler.NewRetentionJob(conn, do.MustInvoke[*Outbound](i).Archiver, cfg.Scheduler.RetentionWindow, log)
		if err := s.AddJob(retention.Job(cfg.Scheduler.RetentionInterval)); err != nil {
			return nil, err
		}
		return s, nil
	})

	// Handler
	do.Provide(inj, func(i *do.Injector) (*gin.Engine, error) {
		cfg := do.MustInvoke[*config.Config](i)
		log := do.MustInvoke[*zap.Logger](i)
		authenticator := do.MustInvoke[*middleware.Authenticator](i)
		chat := do.MustInvoke[services.ChatService](i)

		return router.NewRouter(router.RouterDeps{
			Config:        cfg,
			Log:           log,
			Auth:          authenticator,
			HealthHandler: handlers.NewHealthHandler(log, do.MustInvoke[[]monitors.Probe](i)...),
			AuthHandler: handlers.NewAuthHandler(
				do.MustInvoke[services.UserService](i),
				do.MustInvoke[*auth.TokenManager](i),
				handlers.CookieConfig{
					Name:   cfg.Auth.CookieName,
					Domain: cfg.Auth.CookieDomain,
					Secure: cfg.App.Env != gin.DebugMode && cfg.App.Env != gin.TestMode,
				},
				log,
			),
			ProjectHandler:      handlers.NewProjectHandler(do.MustInvoke[services.ProjectService](i), chat, log),
			TaskHandler:         handlers.NewTaskHandler(do.MustInvoke[services.TaskService](i), log),
			InvitationHandler:   handlers.NewInvitationHandler(do.MustInvoke[services.InvitationService](i), do.MustInvoke[services.MentorService](i), log),
			NotificationHandler: handlers.NewNotificationHandler(do.MustInvoke[*notify.Notifier](i), log),
			PushHandler:         handlers.NewPushHandler(do.MustInvoke[services.PushTokenService](i), log),
			ChatHandler:         handlers.NewChatHandler(chat, log),
			WSHandler: handlers.NewWSHandler(
				do.MustInvoke[*realtime.Hub](i),
				do.MustInvoke[*realtime.Dispatcher](i),
				authenticator,
				cfg.CORS.AllowedOrigins,
				log,
			),
		}), nil
	})

	return inj
}
