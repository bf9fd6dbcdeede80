package middleware

import (
	"crypto/subtle"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/oz-workspace/api/internal/config"
	"github.com/oz-workspace/api/internal/modules/serializer"
	"github.com/oz-workspace/api/internal/modules/service"
	"github.com/oz-workspace/api/internal/pkg/apperr"
)

// Context keys set by the auth middlewares.
const (
	CtxUserID     = "user_id"
	CtxMembership = "membership"
)

const (
	HeaderUserID      = "X-User-Id"
	HeaderWorkspaceID = "X-Workspace-Id"
)

// RootAuth admits server-to-server callers holding the root bearer token.
func RootAuth(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !validBearer(c, cfg.Root.ApiBearerToken) {
			serializer.Abort(c, apperr.Unauthorized())
			return
		}
		c.Next()
	}
}

// UserAuth authenticates requests relayed by the trusted front end: the root
// bearer token plus the end user's id in X-User-Id.
func UserAuth(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !validBearer(c, cfg.Root.ApiBearerToken) {
			serializer.Abort(c, apperr.Unauthorized())
			return
		}
		userID, err := uuid.Parse(strings.TrimSpace(c.GetHeader(HeaderUserID)))
		if err != nil || userID == uuid.Nil {
			serializer.Abort(c, apperr.Unauthorized())
			return
		}

		span := trace.SpanFromContext(c.Request.Context())
		if span.SpanContext().IsValid() {
			span.SetAttributes(attribute.String("user_id", userID.String()))
		}

		c.Set(CtxUserID, userID)
		c.Next()
	}
}

// WorkspaceAuth resolves the caller's workspace membership. It must run after UserAuth.
// X-Workspace-Id selects a workspace; without it the newest membership is used.
func WorkspaceAuth(svc service.WorkspaceService) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.MustGet(CtxUserID).(uuid.UUID)

		var wsID *uuid.UUID
		if raw := strings.TrimSpace(c.GetHeader(HeaderWorkspaceID)); raw != "" {
			id, err := uuid.Parse(raw)
			if err != nil {
				serializer.Abort(c, apperr.Forbidden(""))
				return
			}
			wsID = &id
		}

		m, err := svc.Resolve(c.Request.Context(), userID, wsID)
		if err != nil {
			serializer.Abort(c, err)
			return
		}

		span := trace.SpanFromContext(c.Request.Context())
		if span.SpanContext().IsValid() {
			span.SetAttributes(attribute.String("workspace_id", m.WorkspaceID.String()))
		}

		c.Set(CtxMembership, m)
		c.Next()
	}
}

func validBearer(c *gin.Context, want string) bool {
	auth := c.GetHeader("Authorization")
	if want == "" || !strings.HasPrefix(auth, "Bearer ") {
		return false
	}
	got := strings.TrimPrefix(auth, "Bearer ")
	return subtle.ConstantTimeCompare([]byte(got), []byte(want)) == 1
}
