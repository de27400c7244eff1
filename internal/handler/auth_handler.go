package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-proctor/internal/middleware"
	"github.com/stemsi/exstem-proctor/internal/model"
	"github.com/stemsi/exstem-proctor/internal/response"
	"github.com/stemsi/exstem-proctor/internal/service"
	"github.com/stemsi/exstem-proctor/internal/validator"
)

// AuthHandler handles authentication endpoints.
type AuthHandler struct {
	authService    *service.AuthService
	sessionService *service.ExamSessionService
	log            zerolog.Logger
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(authService *service.AuthService, sessionService *service.ExamSessionService, log zerolog.Logger) *AuthHandler {
	return &AuthHandler{
		authService:    authService,
		sessionService: sessionService,
		log:            log.With().Str("component", "auth_handler").Logger(),
	}
}

// Login godoc
// POST /api/v1/auth/login
// Signs a user in from the static directory and returns a token.
func (h *AuthHandler) Login(c *gin.Context) {
	var req model.LoginRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	token, user, err := h.authService.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		fail(c, h.log, err)
		return
	}

	h.log.Info().Str("user_id", user.ID).Str("role", string(user.Role)).Msg("User signed in")
	response.Success(c, http.StatusOK, gin.H{
		"token": token,
		"user":  user,
	})
}

// Me godoc
// GET /api/v1/auth/me
// Returns the profile of the signed-in user.
func (h *AuthHandler) Me(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	user, err := h.authService.GetUser(claims.UserID)
	if err != nil {
		fail(c, h.log, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"user": user})
}

// Logout godoc
// POST /api/v1/auth/logout
// Abandons any running exam in this browser context and revokes the token.
func (h *AuthHandler) Logout(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	ctx := c.Request.Context()
	if err := h.sessionService.Leave(ctx, claims); err != nil {
		fail(c, h.log, err)
		return
	}
	if err := h.authService.Revoke(ctx, claims); err != nil {
		fail(c, h.log, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{})
}
