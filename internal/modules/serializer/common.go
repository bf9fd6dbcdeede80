package serializer

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/oz-workspace/api/internal/pkg/apperr"
	"go.uber.org/zap"
)

var log = zap.NewNop()

// SetLogger sets the logger used when rendering unexpected errors.
func SetLogger(l *zap.Logger) {
	if l != nil {
		log = l
	}
}

// Response
type Response struct {
	Code  int         `json:"code"`
	Data  interface{} `json:"data,omitempty"`
	Msg   string      `json:"msg"`
	Error string      `json:"error,omitempty"`
}

// Err
func Err(errCode int, msg string, err error) Response {
	res := Response{
		Code: errCode,
		Msg:  msg,
	}
	// development mode, show error detail
	if err != nil && gin.Mode() != gin.ReleaseMode {
		res.Error = fmt.Sprintf("%+v", err)
	}
	return res
}

// DBErr
func DBErr(msg string, err error) Response {
	if msg == "" {
		msg = "database error"
	}
	return Err(http.StatusInternalServerError, msg, err)
}

// ParamErr
func ParamErr(msg string, err error) Response {
	if msg == "" {
		msg = "parameter error"
	}
	return Err(http.StatusBadRequest, msg, err)
}

// AuthErr
func AuthErr(msg string) Response {
	if msg == "" {
		msg = "authentication error"
	}
	return Err(http.StatusUnauthorized, msg, nil)
}

// ForbiddenErr
func ForbiddenErr(msg string) Response {
	if msg == "" {
		msg = "Forbidden"
	}
	return Err(http.StatusForbidden, msg, nil)
}

// FromError renders a service error. Typed errors keep their message and status;
// anything else is an internal error.
func FromError(err error) (int, Response) {
	if e, ok := apperr.As(err); ok {
		status := e.HTTPStatus()
		if e.Kind == apperr.KindInfra {
			log.Sugar().Errorw("request failed", "err", err)
			return status, Err(status, "internal error", err)
		}
		return status, Response{Code: status, Msg: e.Msg}
	}
	log.Sugar().Errorw("request failed", "err", err)
	return http.StatusInternalServerError, Err(http.StatusInternalServerError, "internal error", err)
}

// Abort writes err as JSON and stops the handler chain.
func Abort(c *gin.Context, err error) {
	status, res := FromError(err)
	c.AbortWithStatusJSON(status, res)
}
