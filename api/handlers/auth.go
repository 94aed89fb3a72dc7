package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/OldStager01/fleet-autoscaler/internal/auth"
	"github.com/OldStager01/fleet-autoscaler/pkg/config"
)

type AuthHandler struct {
	cfg         config.APIConfig
	authService *auth.Service
}

func NewAuthHandler(cfg config.APIConfig, authService *auth.Service) *AuthHandler {
	return &AuthHandler{
		cfg:         cfg,
		authService: authService,
	}
}

type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type LoginResponse struct {
	Token     string `json:"token"`
	ExpiresIn int    `json:"expires_in"`
	Username  string `json:"username"`
}

func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	if req.Username != h.cfg.OperatorUser || !auth.CheckPassword(req.Password, h.cfg.OperatorPassHash) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
		return
	}

	token, err := h.authService.GenerateToken(req.Username)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to generate token"})
		return
	}

	expiresIn := int(h.cfg.JWTDuration.Seconds())

	c.SetSameSite(http.SameSiteStrictMode)
	c.SetCookie("auth_token", token, expiresIn, "/", "", true, true)

	c.JSON(http.StatusOK, LoginResponse{
		Token:     token,
		ExpiresIn: expiresIn,
		Username:  req.Username,
	})
}
