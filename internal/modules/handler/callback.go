package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/oz-workspace/api/internal/modules/serializer"
	"github.com/oz-workspace/api/internal/modules/service"
	"github.com/oz-workspace/api/internal/pkg/types"
)

// CallbackPublisher queues callbacks for the background consumer.
type CallbackPublisher interface {
	PublishJSON(ctx context.Context, queue string, body any) error
}

type CallbackHandler struct {
	svc   service.CallbackService
	pub   CallbackPublisher
	queue string
}

// NewCallbackHandler builds the handler. A nil pub handles callbacks inline.
func NewCallbackHandler(s service.CallbackService, pub CallbackPublisher, queue string) *CallbackHandler {
	return &CallbackHandler{svc: s, pub: pub, queue: queue}
}

// AgentCallback godoc
//
//	@Summary		Agent run callback
//	@Description	Artifacts and events reported by the agent runner after a run. Queued (202) when a broker is configured, otherwise applied inline (200).
//	@Tags			callback
//	@Accept			json
//	@Produce		json
//	@Param			payload	body	types.CallbackMessage	true	"Callback"
//	@Security		BearerAuth
//	@Success		200	{object}	serializer.Response{data=service.CallbackResult}
//	@Success		202	{object}	serializer.Response{}
//	@Router			/callbacks/agent [post]
func (h *CallbackHandler) AgentCallback(c *gin.Context) {
	msg := types.CallbackMessage{}
	if err := c.ShouldBindJSON(&msg); err != nil {
		c.JSON(http.StatusBadRequest, serializer.ParamErr("", err))
		return
	}

	if h.pub != nil {
		if err := h.pub.PublishJSON(c.Request.Context(), h.queue, msg); err != nil {
			c.JSON(http.StatusServiceUnavailable, serializer.Err(http.StatusServiceUnavailable, "callback queue unavailable", err))
			return
		}
		c.JSON(http.StatusAccepted, serializer.Response{Msg: "queued"})
		return
	}

	res, err := h.svc.Handle(c.Request.Context(), msg)
	if err != nil {
		serializer.Abort(c, err)
		return
	}
	c.JSON(http.StatusOK, serializer.Response{Data: res})
}
