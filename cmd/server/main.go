package main

//	@title			Oz Workspace API
//	@version		1.0
//	@description	Rooms, agents, artifacts and notifications for shared agent workspaces.
//	@schemes		http https
//	@BasePath		/api/v1

//  Root bearer shared with the front end and the agent runner
//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
//	@description				Root bearer token (e.g., "Bearer <token>"); user routes also send X-User-Id

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/oz-workspace/api/internal/bootstrap"
	"github.com/oz-workspace/api/internal/config"
	"github.com/oz-workspace/api/internal/infra/broadcast"
	"github.com/oz-workspace/api/internal/infra/cache"
	dbpkg "github.com/oz-workspace/api/internal/infra/db"
	"github.com/oz-workspace/api/internal/infra/queue"
	"github.com/oz-workspace/api/internal/modules/handler"
	"github.com/oz-workspace/api/internal/modules/service"
	"github.com/oz-workspace/api/internal/router"
	"github.com/oz-workspace/api/internal/telemetry"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
	"github.com/samber/do"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func main() {
	// build dependency injection container
	inj := bootstrap.BuildContainer()

	cfg := do.MustInvoke[*config.Config](inj)
	log := do.MustInvoke[*zap.Logger](inj)
	defer func() { _ = log.Sync() }()
	db := do.MustInvoke[*gorm.DB](inj)
	rdb := do.MustInvoke[*redis.Client](inj)

	// Setup OpenTelemetry tracing (using configuration system)
	tp, err := telemetry.SetupTracing(cfg)
	if err != nil {
		log.Sugar().Warnw("failed to setup tracing, continuing without tracing", "err", err)
	} else if tp != nil {
		log.Sugar().Infow("OpenTelemetry tracing enabled", "endpoint", cfg.Telemetry.OtlpEndpoint)
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := telemetry.Shutdown(ctx); err != nil {
				log.Sugar().Errorw("failed to shutdown tracer", "err", err)
			}
		}()

		if err := dbpkg.RegisterOpenTelemetryPlugin(db); err != nil {
			log.Sugar().Warnw("failed to register GORM OpenTelemetry plugin, continuing without database tracing", "err", err)
		}
		if err := cache.RegisterOpenTelemetryPlugin(rdb); err != nil {
			log.Sugar().Warnw("failed to register Redis OpenTelemetry plugin, continuing without Redis tracing", "err", err)
		}
	}

	// background workers stop with this context
	bg, stopBackground := context.WithCancel(context.Background())
	defer stopBackground()

	hub := do.MustInvoke[*broadcast.Hub](inj)
	if relay := do.MustInvoke[*broadcast.RedisRelay](inj); relay != nil {
		go relay.Run(bg)
	}

	if conn := do.MustInvoke[*amqp.Connection](inj); conn != nil {
		callbacks := do.MustInvoke[service.CallbackService](inj)
		consumer := queue.NewConsumer(conn, queue.ConsumerConfig{
			Queue:    cfg.RabbitMQ.Queue.AgentCallback,
			Prefetch: cfg.RabbitMQ.Prefetch,
		}, callbacks.HandleDelivery, log)
		go func() {
			if err := consumer.Run(bg); err != nil {
				log.Sugar().Errorw("callback consumer stopped", "err", err)
			}
		}()
		defer func() {
			if p := do.MustInvoke[*queue.Publisher](inj); p != nil {
				_ = p.Close()
			}
			_ = conn.Close()
		}()
	} else {
		log.Sugar().Infow("rabbitmq not configured, agent callbacks are handled inline")
	}

	// init gin
	gin.SetMode(cfg.App.Env)

	engine := router.NewRouter(router.RouterDeps{
		Config:              cfg,
		Log:                 log,
		WorkspaceService:    do.MustInvoke[service.WorkspaceService](inj),
		WorkspaceHandler:    do.MustInvoke[*handler.WorkspaceHandler](inj),
		RoomHandler:         do.MustInvoke[*handler.RoomHandler](inj),
		AgentHandler:        do.MustInvoke[*handler.AgentHandler](inj),
		InvokeHandler:       do.MustInvoke[*handler.InvokeHandler](inj),
		EventsHandler:       do.MustInvoke[*handler.EventsHandler](inj),
		ArtifactHandler:     do.MustInvoke[*handler.ArtifactHandler](inj),
		NotificationHandler: do.MustInvoke[*handler.NotificationHandler](inj),
		SettingHandler:      do.MustInvoke[*handler.SettingHandler](inj),
		CallbackHandler:     do.MustInvoke[*handler.CallbackHandler](inj),
	})

	addr := fmt.Sprintf("%s:%d", cfg.App.Host, cfg.App.Port)
	srv := &http.Server{Addr: addr, Handler: engine}

	go func() {
		log.Sugar().Infow("starting http server", "addr", addr)
		log.Sugar().Infow("swagger url", "url", addr+"/swagger/index.html")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Sugar().Fatalw("listen error", "err", err)
		}
	}()

	// graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	// end open event streams so Shutdown does not wait on them
	hub.Close()
	stopBackground()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Sugar().Errorw("server shutdown", "err", err)
	}
	log.Sugar().Info("server exited")
}
