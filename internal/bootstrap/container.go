package bootstrap

import (
	"context"
	"time"

	"github.com/oz-workspace/api/internal/config"
	"github.com/oz-workspace/api/internal/infra/blob"
	"github.com/oz-workspace/api/internal/infra/broadcast"
	"github.com/oz-workspace/api/internal/infra/cache"
	"github.com/oz-workspace/api/internal/infra/db"
	"github.com/oz-workspace/api/internal/infra/httpclient"
	"github.com/oz-workspace/api/internal/infra/llm"
	"github.com/oz-workspace/api/internal/infra/logger"
	"github.com/oz-workspace/api/internal/infra/queue"
	"github.com/oz-workspace/api/internal/modules/handler"
	"github.com/oz-workspace/api/internal/modules/model"
	"github.com/oz-workspace/api/internal/modules/repo"
	"github.com/oz-workspace/api/internal/modules/service"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
	"github.com/samber/do"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func BuildContainer() *do.Injector {
	inj := do.New()

	// config
	do.Provide(inj, func(i *do.Injector) (*config.Config, error) {
		return config.Load()
	})

	// logger
	do.Provide(inj, func(i *do.Injector) (*zap.Logger, error) {
		cfg := do.MustInvoke[*config.Config](i)
		return logger.New(cfg.Log.Level)
	})

	// DB
	do.Provide(inj, func(i *do.Injector) (*gorm.DB, error) {
		cfg := do.MustInvoke[*config.Config](i)
		d, err := db.New(cfg)
		if err != nil {
			return nil, err
		}
		// [optional] auto migrate
		if cfg.Database.AutoMigrate {
			if err := d.AutoMigrate(model.All()...); err != nil {
				return nil, err
			}
		}
		return d, nil
	})

	// Redis
	do.Provide(inj, func(i *do.Injector) (*redis.Client, error) {
		cfg := do.MustInvoke[*config.Config](i)
		return cache.New(cfg), nil
	})

	// RabbitMQ connection, nil when no broker is configured
	do.Provide(inj, func(i *do.Injector) (*amqp.Connection, error) {
		cfg := do.MustInvoke[*config.Config](i)
		if cfg.RabbitMQ.URL == "" {
			return nil, nil
		}
		return amqp.Dial(cfg.RabbitMQ.URL)
	})
	do.Provide(inj, func(i *do.Injector) (*queue.Publisher, error) {
		conn := do.MustInvoke[*amqp.Connection](i)
		if conn == nil {
			return nil, nil
		}
		return queue.NewPublisher(conn), nil
	})

	// S3, nil when no bucket is configured
	do.Provide(inj, func(i *do.Injector) (*blob.S3Deps, error) {
		cfg := do.MustInvoke[*config.Config](i)
		if cfg.S3.Bucket == "" {
			return nil, nil
		}
		return blob.NewS3(context.Background(), cfg)
	})
	// get presign expire duration
	do.Provide(inj, func(i *do.Injector) (func() time.Duration, error) {
		cfg := do.MustInvoke[*config.Config](i)
		return func() time.Duration {
			if cfg.S3.PresignExpireSec <= 0 {
				return 15 * time.Minute
			}
			return time.Duration(cfg.S3.PresignExpireSec) * time.Second
		}, nil
	})

	// Broadcast
	do.Provide(inj, func(i *do.Injector) (*broadcast.Hub, error) {
		cfg := do.MustInvoke[*config.Config](i)
		return broadcast.NewHub(cfg.Broadcast.SubscriberBuffer, do.MustInvoke[*zap.Logger](i)), nil
	})
	do.Provide(inj, func(i *do.Injector) (*broadcast.RedisRelay, error) {
		cfg := do.MustInvoke[*config.Config](i)
		if !cfg.Broadcast.RelayEnabled {
			return nil, nil
		}
		return broadcast.NewRedisRelay(
			do.MustInvoke[*broadcast.Hub](i),
			do.MustInvoke[*redis.Client](i),
			cfg.Broadcast.RelayChannel,
			do.MustInvoke[*zap.Logger](i),
		), nil
	})
	do.Provide(inj, func(i *do.Injector) (broadcast.Publisher, error) {
		if relay := do.MustInvoke[*broadcast.RedisRelay](i); relay != nil {
			return relay, nil
		}
		return do.MustInvoke[*broadcast.Hub](i), nil
	})

	// Agent capability
	do.Provide(inj, func(i *do.Injector) (service.AgentRunner, error) {
		cfg := do.MustInvoke[*config.Config](i)
		log := do.MustInvoke[*zap.Logger](i)
		if cfg.Agent.Driver == "openai" {
			return llm.NewOpenAIRunner(cfg, log), nil
		}
		return httpclient.NewAgentRunnerClient(cfg, log), nil
	})

	// Repo
	do.Provide(inj, func(i *do.Injector) (repo.WorkspaceRepo, error) {
		return repo.NewWorkspaceRepo(do.MustInvoke[*gorm.DB](i)), nil
	})
	do.Provide(inj, func(i *do.Injector) (repo.RoomRepo, error) {
		return repo.NewRoomRepo(do.MustInvoke[*gorm.DB](i)), nil
	})
	do.Provide(inj, func(i *do.Injector) (repo.AgentRepo, error) {
		return repo.NewAgentRepo(do.MustInvoke[*gorm.DB](i)), nil
	})
	do.Provide(inj, func(i *do.Injector) (repo.MessageRepo, error) {
		return repo.NewMessageRepo(do.MustInvoke[*gorm.DB](i)), nil
	})
	do.Provide(inj, func(i *do.Injector) (repo.ArtifactRepo, error) {
		return repo.NewArtifactRepo(do.MustInvoke[*gorm.DB](i)), nil
	})
	do.Provide(inj, func(i *do.Injector) (repo.NotificationRepo, error) {
		return repo.NewNotificationRepo(do.MustInvoke[*gorm.DB](i)), nil
	})
	do.Provide(inj, func(i *do.Injector) (repo.SettingRepo, error) {
		return repo.NewSettingRepo(do.MustInvoke[*gorm.DB](i)), nil
	})

	// Service
	do.Provide(inj, func(i *do.Injector) (service.WorkspaceService, error) {
		return service.NewWorkspaceService(do.MustInvoke[repo.WorkspaceRepo](i)), nil
	})
	do.Provide(inj, func(i *do.Injector) (service.RoomService, error) {
		return service.NewRoomService(
			do.MustInvoke[repo.RoomRepo](i),
			do.MustInvoke[broadcast.Publisher](i),
		), nil
	})
	do.Provide(inj, func(i *do.Injector) (service.AgentService, error) {
		return service.NewAgentService(do.MustInvoke[repo.AgentRepo](i)), nil
	})
	do.Provide(inj, func(i *do.Injector) (service.SettingService, error) {
		return service.NewSettingService(do.MustInvoke[repo.SettingRepo](i)), nil
	})
	do.Provide(inj, func(i *do.Injector) (service.ArtifactService, error) {
		cfg := do.MustInvoke[*config.Config](i)
		// a nil *S3Deps must not become a non-nil interface
		var store service.ContentStore
		if s3 := do.MustInvoke[*blob.S3Deps](i); s3 != nil {
			store = s3
		}
		return service.NewArtifactService(
			do.MustInvoke[repo.ArtifactRepo](i),
			do.MustInvoke[repo.RoomRepo](i),
			do.MustInvoke[repo.AgentRepo](i),
			store,
			do.MustInvoke[broadcast.Publisher](i),
			do.MustInvoke[*zap.Logger](i),
			service.ArtifactOptions{
				InlineContentLimit: cfg.Artifact.InlineContentLimit,
				PresignExpire:      do.MustInvoke[func() time.Duration](i)(),
			},
		), nil
	})
	do.Provide(inj, func(i *do.Injector) (service.NotificationService, error) {
		return service.NewNotificationService(
			do.MustInvoke[repo.NotificationRepo](i),
			do.MustInvoke[repo.RoomRepo](i),
			do.MustInvoke[repo.AgentRepo](i),
			do.MustInvoke[repo.WorkspaceRepo](i),
			do.MustInvoke[broadcast.Publisher](i),
		), nil
	})
	do.Provide(inj, func(i *do.Injector) (service.InvocationService, error) {
		cfg := do.MustInvoke[*config.Config](i)
		return service.NewInvocationService(
			do.MustInvoke[repo.RoomRepo](i),
			do.MustInvoke[repo.AgentRepo](i),
			do.MustInvoke[repo.MessageRepo](i),
			do.MustInvoke[service.AgentRunner](i),
			do.MustInvoke[service.ArtifactService](i),
			do.MustInvoke[service.NotificationService](i),
			do.MustInvoke[broadcast.Publisher](i),
			do.MustInvoke[*zap.Logger](i),
			service.InvocationOptions{
				Timeout:         cfg.Agent.InvokeTimeout(),
				HistoryLimit:    cfg.Agent.HistoryLimit,
				HistoryMaxChars: cfg.Agent.HistoryMaxChars,
			},
		), nil
	})
	do.Provide(inj, func(i *do.Injector) (service.CallbackService, error) {
		return service.NewCallbackService(
			do.MustInvoke[repo.RoomRepo](i),
			do.MustInvoke[repo.AgentRepo](i),
			do.MustInvoke[service.ArtifactService](i),
			do.MustInvoke[service.NotificationService](i),
			do.MustInvoke[*zap.Logger](i),
		), nil
	})

	// Handler
	do.Provide(inj, func(i *do.Injector) (*handler.WorkspaceHandler, error) {
		cfg := do.MustInvoke[*config.Config](i)
		return handler.NewWorkspaceHandler(do.MustInvoke[service.WorkspaceService](i), cfg.App.PublicURL), nil
	})
	do.Provide(inj, func(i *do.Injector) (*handler.RoomHandler, error) {
		return handler.NewRoomHandler(do.MustInvoke[service.RoomService](i)), nil
	})
	do.Provide(inj, func(i *do.Injector) (*handler.AgentHandler, error) {
		return handler.NewAgentHandler(do.MustInvoke[service.AgentService](i)), nil
	})
	do.Provide(inj, func(i *do.Injector) (*handler.InvokeHandler, error) {
		return handler.NewInvokeHandler(do.MustInvoke[service.InvocationService](i)), nil
	})
	do.Provide(inj, func(i *do.Injector) (*handler.EventsHandler, error) {
		cfg := do.MustInvoke[*config.Config](i)
		return handler.NewEventsHandler(
			do.MustInvoke[*broadcast.Hub](i),
			do.MustInvoke[service.RoomService](i),
			cfg.Broadcast.Keepalive(),
		), nil
	})
	do.Provide(inj, func(i *do.Injector) (*handler.ArtifactHandler, error) {
		return handler.NewArtifactHandler(do.MustInvoke[service.ArtifactService](i)), nil
	})
	do.Provide(inj, func(i *do.Injector) (*handler.NotificationHandler, error) {
		return handler.NewNotificationHandler(do.MustInvoke[service.NotificationService](i)), nil
	})
	do.Provide(inj, func(i *do.Injector) (*handler.SettingHandler, error) {
		return handler.NewSettingHandler(do.MustInvoke[service.SettingService](i)), nil
	})
	do.Provide(inj, func(i *do.Injector) (*handler.CallbackHandler, error) {
		cfg := do.MustInvoke[*config.Config](i)
		var pub handler.CallbackPublisher
		if p := do.MustInvoke[*queue.Publisher](i); p != nil {
			pub = p
		}
		return handler.NewCallbackHandler(do.MustInvoke[service.CallbackService](i), pub, cfg.RabbitMQ.Queue.AgentCallback), nil
	})

	return inj
}
