package router

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	_ "github.com/oz-workspace/api/docs"
	"github.com/oz-workspace/api/internal/config"
	"github.com/oz-workspace/api/internal/middleware"
	"github.com/oz-workspace/api/internal/modules/handler"
	"github.com/oz-workspace/api/internal/modules/serializer"
	"github.com/oz-workspace/api/internal/modules/service"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

const eventsPath = "/api/v1/events"

type RouterDeps struct {
	Config              *config.Config
	Log                 *zap.Logger
	WorkspaceService    service.WorkspaceService
	WorkspaceHandler    *handler.WorkspaceHandler
	RoomHandler         *handler.RoomHandler
	AgentHandler        *handler.AgentHandler
	InvokeHandler       *handler.InvokeHandler
	EventsHandler       *handler.EventsHandler
	ArtifactHandler     *handler.ArtifactHandler
	NotificationHandler *handler.NotificationHandler
	SettingHandler      *handler.SettingHandler
	CallbackHandler     *handler.CallbackHandler
}

func NewRouter(d RouterDeps) *gin.Engine {
	serializer.SetLogger(d.Log)

	r := gin.New()
	r.Use(gin.Recovery())

	if d.Config.Telemetry.Enabled && d.Config.Telemetry.OtlpEndpoint != "" {
		// the event stream is long-lived; a span per connection is noise
		r.Use(middleware.OtelTracing(d.Config.App.Name, eventsPath))
		r.Use(middleware.TraceID())
	}

	r.Use(middleware.ZapLogger(d.Log))

	// health
	r.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, serializer.Response{Msg: "ok"}) })

	// swagger
	r.GET("/swagger", func(c *gin.Context) {
		c.Redirect(http.StatusMovedPermanently, "/swagger/index.html")
	})
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	v1 := r.Group("/api/v1")

	// server-to-server
	root := v1.Group("", middleware.RootAuth(d.Config))
	{
		root.POST("/notifications", d.NotificationHandler.Notify)
		root.POST("/callbacks/agent", d.CallbackHandler.AgentCallback)
	}

	user := v1.Group("", middleware.UserAuth(d.Config))
	{
		user.GET("/workspaces", d.WorkspaceHandler.ListWorkspaces)
		user.POST("/workspaces", d.WorkspaceHandler.CreateWorkspace)
		user.POST("/workspace/invites/accept", d.WorkspaceHandler.AcceptInvite)
	}

	ws := user.Group("", middleware.WorkspaceAuth(d.WorkspaceService))
	{
		ws.GET("/ping", func(c *gin.Context) { c.JSON(http.StatusOK, serializer.Response{Msg: "pong"}) })

		ws.POST("/invoke", d.InvokeHandler.Invoke)
		ws.GET("/events", d.EventsHandler.Stream)

		workspace := ws.Group("/workspace")
		{
			workspace.GET("", d.WorkspaceHandler.GetWorkspace)
			workspace.GET("/members", d.WorkspaceHandler.ListMembers)
			workspace.DELETE("/members/:user_id", d.WorkspaceHandler.RemoveMember)
			workspace.GET("/invites", d.WorkspaceHandler.ListInvites)
			workspace.POST("/invites", d.WorkspaceHandler.CreateInvite)
			workspace.DELETE("/invites/:invite_id", d.WorkspaceHandler.RevokeInvite)
		}

		room := ws.Group("/rooms")
		{
			room.GET("", d.RoomHandler.ListRooms)
			room.POST("", d.RoomHandler.CreateRoom)
			room.PATCH("/:room_id/pause", d.RoomHandler.PauseRoom)
		}

		agent := ws.Group("/agents")
		{
			agent.GET("", d.AgentHandler.ListAgents)
			agent.POST("", d.AgentHandler.CreateAgent)
		}

		artifact := ws.Group("/artifacts")
		{
			artifact.GET("", d.ArtifactHandler.ListArtifacts)
			artifact.POST("", d.ArtifactHandler.CreateArtifact)
		}

		notification := ws.Group("/notifications")
		{
			notification.GET("", d.NotificationHandler.ListNotifications)
			notification.POST("/read-all", d.NotificationHandler.MarkAllRead)
			notification.PATCH("/:id", d.NotificationHandler.MarkNotificationRead)
			notification.DELETE("/:id", d.NotificationHandler.DeleteNotification)
		}

		setting := ws.Group("/settings")
		{
			setting.GET("", d.SettingHandler.GetSettings)
			setting.PUT("", d.SettingHandler.PutSetting)
		}
	}
	return r
}
