package middleware

import (
	"context"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/pomtime/rewards/utils"
)

// AccountRegistrar creates the caller's economy record on first access.
type AccountRegistrar interface {
	Register(ctx context.Context, userID uint, username string) error
}

// EnsureAccount registers the authenticated user once per process and username.
// Must run after AuthRequired.
func EnsureAccount(reg AccountRegistrar) gin.HandlerFunc {
	var known sync.Map // user id -> username
	return func(ctx *gin.Context) {
		uid := ctx.GetUint(ContextUserIDKey)
		if uid == 0 {
			ctx.Next()
			return
		}
		name := ctx.GetString(ContextUsernameKey)
		if prev, ok := known.Load(uid); ok && prev.(string) == name {
			ctx.Next()
			return
		}
		if err := reg.Register(ctx.Request.Context(), uid, name); err != nil {
			utils.Logger.Error("register economy account failed", zap.Uint("user_id", uid), zap.Error(err))
			utils.Error(ctx, http.StatusInternalServerError, 50001, "failed to initialise account")
			ctx.Abort()
			return
		}
		known.Store(uid, name)
		ctx.Next()
	}
}
