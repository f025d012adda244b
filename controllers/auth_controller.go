package controllers

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/pomtime/rewards/middleware"
	"github.com/pomtime/rewards/utils"
)

// AuthController covers the token operations this service owns. Login and
// registration live in the account service that issues the JWTs.
type AuthController struct{}

func NewAuthController() *AuthController { return &AuthController{} }

// Me echoes the authenticated identity.
func (a *AuthController) Me(ctx *gin.Context) {
	uid, ok := requireUser(ctx)
	if !ok {
		return
	}
	utils.Success(ctx, gin.H{
		"user_id":  uid,
		"username": ctx.GetString(middleware.ContextUsernameKey),
	})
}

// Logout revokes the bearer token until it expires.
func (a *AuthController) Logout(ctx *gin.Context) {
	token := ctx.GetString(middleware.ContextTokenKey)
	expiresAt := time.Now().Add(72 * time.Hour)
	if v, ok := ctx.Get(middleware.ContextClaimsKey); ok {
		if claims, ok := v.(*utils.Claims); ok && claims.ExpiresAt != nil {
			expiresAt = claims.ExpiresAt.Time
		}
	}
	utils.RevokeToken(ctx.Request.Context(), token, expiresAt)
	utils.Success(ctx, gin.H{"message": "logged out"})
}
