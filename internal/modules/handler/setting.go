package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/oz-workspace/api/internal/modules/serializer"
	"github.com/oz-workspace/api/internal/modules/service"
)

type SettingHandler struct {
	svc service.SettingService
}

func NewSettingHandler(s service.SettingService) *SettingHandler {
	return &SettingHandler{svc: s}
}

// GetSettings godoc
//
//	@Summary		Get settings
//	@Description	Workspace settings as a key/value map
//	@Tags			setting
//	@Produce		json
//	@Security		BearerAuth
//	@Success		200	{object}	serializer.Response{data=map[string]string}
//	@Router			/settings [get]
func (h *SettingHandler) GetSettings(c *gin.Context) {
	m := membershipFrom(c)
	out, err := h.svc.Get(c.Request.Context(), m.WorkspaceID)
	if err != nil {
		serializer.Abort(c, err)
		return
	}
	c.JSON(http.StatusOK, serializer.Response{Data: out})
}

type PutSettingReq struct {
	Key   string  `json:"key" example:"theme"`
	Value *string `json:"value" example:"dark"`
}

// PutSetting godoc
//
//	@Summary		Set setting
//	@Tags			setting
//	@Accept			json
//	@Produce		json
//	@Param			payload	body	handler.PutSettingReq	true	"Setting"
//	@Security		BearerAuth
//	@Success		200	{object}	serializer.Response{data=model.Setting}
//	@Router			/settings [put]
func (h *SettingHandler) PutSetting(c *gin.Context) {
	req := PutSettingReq{}
	if err := c.ShouldBindJSON(&req); err != nil || req.Key == "" || req.Value == nil {
		c.JSON(http.StatusBadRequest, serializer.ParamErr("key and value are required", err))
		return
	}

	m := membershipFrom(c)
	st, err := h.svc.Put(c.Request.Context(), m.WorkspaceID, req.Key, *req.Value)
	if err != nil {
		serializer.Abort(c, err)
		return
	}
	c.JSON(http.StatusOK, serializer.Response{Data: st})
}
