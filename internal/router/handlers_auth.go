package router

import (
	"context"
	"net/http"

	"github.com/HelixDevelopment/nldbexplorer/internal/contracts"
	"github.com/HelixDevelopment/nldbexplorer/internal/event"
	"github.com/google/uuid"
	"github.com/gin-gonic/gin"
)

type registerRequest struct {
	Username string `json:"username" binding:"required"`
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

func (r *Router) register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, contracts.NewErrorf(contracts.ErrValidation, "%v", err))
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), askTimeout)
	defer cancel()

	user, err := r.auth.Register(ctx, req.Username, req.Email, req.Password)
	if err != nil {
		respondError(c, err)
		return
	}

	r.publish(event.Event{Type: event.EventUserRegistered, Source: "router", Severity: event.SeverityInfo, UserID: user.ID.String()})

	c.JSON(http.StatusCreated, gin.H{
		"userId":   user.ID,
		"username": user.Username,
		"email":    user.Email,
		"role":     user.Role,
	})
}

type loginRequest struct {
	Username  string `json:"username" binding:"required"`
	Password  string `json:"password" binding:"required"`
	UserAgent string `json:"userAgent"`
	IPAddress string `json:"ipAddress"`
}

func (r *Router) login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, contracts.NewErrorf(contracts.ErrValidation, "%v", err))
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), askTimeout)
	defer cancel()

	ip := req.IPAddress
	if ip == "" {
		ip = c.ClientIP()
	}
	userAgent := req.UserAgent
	if userAgent == "" {
		userAgent = c.GetHeader("User-Agent")
	}

	user, session, err := r.auth.Login(ctx, req.Username, req.Password, userAgent, ip)
	if err != nil {
		r.publish(event.Event{Type: event.EventAuthFailure, Source: "router", Severity: event.SeverityWarning, Data: map[string]interface{}{"username": req.Username}})
		respondError(c, err)
		return
	}

	r.publish(event.Event{Type: event.EventUserLogin, Source: "router", Severity: event.SeverityInfo, UserID: user.ID.String()})

	// token backs the stateless, service-to-service auth path: a caller
	// that holds it never needs to look up this session again.
	token, err := r.auth.GenerateJWT(user)
	if err != nil {
		r.logger.Warn("jwt issuance failed for user %s: %v", user.ID, err)
	}

	c.JSON(http.StatusOK, gin.H{
		"userId":           user.ID,
		"sessionId":        session.ID,
		"sessionExpiresAt": session.ExpiresAt,
		"refreshToken":     session.RefreshToken,
		"role":             user.Role,
		"token":            token,
	})
}

type logoutRequest struct {
	SessionID uuid.UUID `json:"sessionId" binding:"required"`
}

func (r *Router) logout(c *gin.Context) {
	var req logoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, contracts.NewErrorf(contracts.ErrValidation, "%v", err))
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), askTimeout)
	defer cancel()

	if err := r.auth.Logout(ctx, req.SessionID); err != nil {
		respondError(c, err)
		return
	}
	r.publish(event.Event{Type: event.EventUserLogout, Source: "router", Severity: event.SeverityInfo})
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

type changePasswordRequest struct {
	UserID          uuid.UUID `json:"userId" binding:"required"`
	CurrentPassword string    `json:"currentPassword" binding:"required"`
	NewPassword     string    `json:"newPassword" binding:"required"`
}

func (r *Router) changePassword(c *gin.Context) {
	var req changePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, contracts.NewErrorf(contracts.ErrValidation, "%v", err))
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), askTimeout)
	defer cancel()

	if err := r.auth.ChangePassword(ctx, req.UserID, req.CurrentPassword, req.NewPassword); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
