package handler

import (
	"net/http"

	"conference_registration/internal/model"
	"conference_registration/internal/service"

	"github.com/gin-gonic/gin"
)

// TeamHandler handles team formation
type TeamHandler struct {
	service service.TeamService
}

func NewTeamHandler(s service.TeamService) *TeamHandler {
	return &TeamHandler{service: s}
}

func (h *TeamHandler) Create(c *gin.Context) {
	principal, ok := getPrincipal(c)
	if !ok {
		return
	}
	var req model.CreateTeamRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	team, err := h.service.Create(c.Request.Context(), principal, req.Name)
	if err != nil {
		respondError(c, err, "Failed to create team")
		return
	}
	c.JSON(http.StatusCreated, team)
}

func (h *TeamHandler) Join(c *gin.Context) {
	principal, ok := getPrincipal(c)
	if !ok {
		return
	}
	var req model.JoinTeamRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	team, err := h.service.Join(c.Request.Context(), principal, req.Code)
	if err != nil {
		respondError(c, err, "Failed to join team")
		return
	}
	c.JSON(http.StatusOK, team)
}

func (h *TeamHandler) PaymentStatus(c *gin.Context) {
	principal, ok := getPrincipal(c)
	if !ok {
		return
	}
	teamID, ok := paramID(c, "id")
	if !ok {
		return
	}
	status, err := h.service.PaymentStatus(c.Request.Context(), principal, teamID)
	if err != nil {
		respondError(c, err, "Failed to load team payment status")
		return
	}
	c.JSON(http.StatusOK, status)
}

func (h *TeamHandler) RegisterTeamRoutes(rg *gin.RouterGroup, authMW, participantMW gin.HandlerFunc) {
	teams := rg.Group("/teams")
	teams.Use(authMW)
	{
		teams.POST("", participantMW, h.Create)
		teams.POST("/join", participantMW, h.Join)
		teams.GET("/:id/payment-status", h.PaymentStatus)
	}
}
