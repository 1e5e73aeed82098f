package handler

import (
	"net/http"

	"conference_registration/internal/model"
	"conference_registration/internal/service"

	"github.com/gin-gonic/gin"
)

// PublicHandler serves the unauthenticated signup surface
type PublicHandler struct {
	service service.RegistrationService
}

func NewPublicHandler(s service.RegistrationService) *PublicHandler {
	return &PublicHandler{service: s}
}

func (h *PublicHandler) Register(c *gin.Context) {
	var req model.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	resp, err := h.service.Register(c.Request.Context(), req)
	if err != nil {
		respondError(c, err, "Failed to register")
		return
	}
	c.JSON(http.StatusCreated, resp)
}

func (h *PublicHandler) CheckStatus(c *gin.Context) {
	var req struct {
		Email string `json:"email" binding:"required,email"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	status, err := h.service.CheckStatus(c.Request.Context(), req.Email)
	if err != nil {
		respondError(c, err, "Failed to check registration status")
		return
	}
	c.JSON(http.StatusOK, status)
}

func (h *PublicHandler) Tracks(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"tracks": h.service.Tracks()})
}

func (h *PublicHandler) Universities(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"universities": h.service.Universities()})
}

func (h *PublicHandler) Stats(c *gin.Context) {
	stats, err := h.service.PublicStats(c.Request.Context())
	if err != nil {
		respondError(c, err, "Failed to load stats")
		return
	}
	c.JSON(http.StatusOK, stats)
}

func (h *PublicHandler) RegisterPublicRoutes(rg *gin.RouterGroup) {
	public := rg.Group("/public")
	{
		public.POST("/register", h.Register)
		public.POST("/check-status", h.CheckStatus)
		public.GET("/tracks", h.Tracks)
		public.GET("/universities", h.Universities)
		public.GET("/stats", h.Stats)
	}
}
