package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/oz-workspace/api/internal/modules/service"
)

// userIDFrom returns the id set by the user auth middleware.
func userIDFrom(c *gin.Context) uuid.UUID {
	return c.MustGet("user_id").(uuid.UUID)
}

// membershipFrom returns the membership set by the workspace auth middleware.
func membershipFrom(c *gin.Context) *service.Membership {
	return c.MustGet("membership").(*service.Membership)
}
