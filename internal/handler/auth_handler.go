package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stemsi/exam-portal/internal/middleware"
	"github.com/stemsi/exam-portal/internal/model"
	"github.com/stemsi/exam-portal/internal/response"
	"github.com/stemsi/exam-portal/internal/service"
	"github.com/stemsi/exam-portal/internal/validator"
)

// AuthHandler handles operator authentication endpoints.
type AuthHandler struct {
	authService *service.AuthService
	log         zerolog.Logger
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(authService *service.AuthService, log zerolog.Logger) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		log:         log.With().Str("component", "auth_handler").Logger(),
	}
}

// OperatorLogin godoc
// POST /api/v1/auth/operator/login
// Validates email + password against the configured operator, returns JWT.
func (h *AuthHandler) OperatorLogin(c *gin.Context) {
	var req model.OperatorLoginRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	token, err := h.authService.OperatorLogin(req.Email, req.Password)
	switch {
	case errors.Is(err, service.ErrOperatorDisabled):
		response.Fail(c, http.StatusServiceUnavailable, response.ErrOperatorDisabled)
		return
	case errors.Is(err, service.ErrInvalidCredentials):
		h.log.Warn().Str("request_id", response.RequestID(c)).Msg("Operator login rejected")
		response.Fail(c, http.StatusUnauthorized, response.ErrInvalidCredentials)
		return
	case err != nil:
		failWith(c, h.log, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"token": token})
}

// GetOperatorProfile godoc
// GET /api/v1/auth/operator/me
// Returns the identity carried by the operator token.
func (h *AuthHandler) GetOperatorProfile(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"operator": gin.H{
			"email":      claims.Subject,
			"expires_at": claims.ExpiresAt,
		},
	})
}
