package controllers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/pomtime/rewards/middleware"
	"github.com/pomtime/rewards/services"
	"github.com/pomtime/rewards/utils"
)

func getUserID(ctx *gin.Context) (uint, bool) {
	value, exists := ctx.Get(middleware.ContextUserIDKey)
	if !exists {
		return 0, false
	}

	switch v := value.(type) {
	case uint:
		return v, v != 0
	case int:
		return uint(v), v > 0
	case int64:
		return uint(v), v > 0
	case float64:
		return uint(v), v > 0
	default:
		return 0, false
	}
}

// requireUser writes 401 and returns false when no user is attached.
func requireUser(ctx *gin.Context) (uint, bool) {
	uid, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
	}
	return uid, ok
}

func parseIDParam(ctx *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(ctx.Param(name), 10, 64)
	if err != nil || id == 0 {
		utils.Error(ctx, http.StatusBadRequest, 40001, "invalid "+name)
		return 0, false
	}
	return uint(id), true
}

type errorMapping struct {
	status int
	code   int
}

var errorMappings = map[services.ErrorKind]errorMapping{
	services.KindInvalidRequest:    {http.StatusBadRequest, 40001},
	services.KindInsufficientFunds: {http.StatusConflict, 40901},
	services.KindInsufficientStock: {http.StatusConflict, 40902},
	services.KindCapAlreadyReached: {http.StatusTooManyRequests, 42902},
	services.KindTooEarly:          {http.StatusTooManyRequests, 42903},
	services.KindBusy:              {http.StatusServiceUnavailable, 50301},
	services.KindInternal:          {http.StatusInternalServerError, 50001},
}

// respondError writes the envelope for a service error. Internal causes are never
// echoed to the client.
func respondError(ctx *gin.Context, err error) {
	e := services.AsError(err)
	m, ok := errorMappings[e.Kind]
	if !ok {
		m = errorMappings[services.KindInternal]
	}
	if e.Kind == services.KindInternal {
		_ = ctx.Error(err)
		utils.Error(ctx, m.status, m.code, "internal error")
		return
	}
	if e.Kind == services.KindBusy {
		ctx.Header("Retry-After", "1")
	}
	data := gin.H{"error": string(e.Kind), "retryable": e.Retryable()}
	for k, v := range e.Details {
		data[k] = v
	}
	utils.ErrorWithData(ctx, m.status, m.code, e.Message, data)
}
