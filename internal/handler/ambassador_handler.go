package handler

import (
	"net/http"

	"conference_registration/internal/model"
	"conference_registration/internal/service"

	"github.com/gin-gonic/gin"
)

// AmbassadorHandler serves campus ambassadors collecting cash
type AmbassadorHandler struct {
	payments     service.PaymentService
	participants service.ParticipantService
	admin        service.AdminService
}

func NewAmbassadorHandler(payments service.PaymentService, participants service.ParticipantService, admin service.AdminService) *AmbassadorHandler {
	return &AmbassadorHandler{payments: payments, participants: participants, admin: admin}
}

func (h *AmbassadorHandler) Search(c *gin.Context) {
	principal, ok := getPrincipal(c)
	if !ok {
		return
	}
	var req model.SearchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	results, err := h.participants.Search(c.Request.Context(), principal, req)
	if err != nil {
		respondError(c, err, "Failed to search participants")
		return
	}
	c.JSON(http.StatusOK, results)
}

func (h *AmbassadorHandler) GetParticipant(c *gin.Context) {
	principal, ok := getPrincipal(c)
	if !ok {
		return
	}
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	d, err := h.participants.Get(c.Request.Context(), principal, id)
	if err != nil {
		respondError(c, err, "Failed to retrieve participant")
		return
	}
	c.JSON(http.StatusOK, d)
}

func (h *AmbassadorHandler) VerifyCash(c *gin.Context) {
	principal, ok := getPrincipal(c)
	if !ok {
		return
	}
	participantID, ok := paramID(c, "participant_id")
	if !ok {
		return
	}
	var req model.VerifyCashRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	payment, err := h.payments.VerifyCash(c.Request.Context(), principal, participantID, req)
	if err != nil {
		respondError(c, err, "Failed to verify cash payment")
		return
	}
	c.JSON(http.StatusOK, payment)
}

func (h *AmbassadorHandler) PendingCash(c *gin.Context) {
	principal, ok := getPrincipal(c)
	if !ok {
		return
	}
	limit, offset := pagination(c)
	payments, err := h.payments.ListPendingCash(c.Request.Context(), principal, limit, offset)
	if err != nil {
		respondError(c, err, "Failed to retrieve pending cash payments")
		return
	}
	c.JSON(http.StatusOK, payments)
}

func (h *AmbassadorHandler) MyVerifications(c *gin.Context) {
	principal, ok := getPrincipal(c)
	if !ok {
		return
	}
	limit, offset := pagination(c)
	payments, err := h.payments.MyVerifications(c.Request.Context(), principal, limit, offset)
	if err != nil {
		respondError(c, err, "Failed to retrieve verifications")
		return
	}
	c.JSON(http.StatusOK, payments)
}

func (h *AmbassadorHandler) Stats(c *gin.Context) {
	principal, ok := getPrincipal(c)
	if !ok {
		return
	}
	stats, err := h.admin.VerifierStats(c.Request.Context(), principal)
	if err != nil {
		respondError(c, err, "Failed to load stats")
		return
	}
	c.JSON(http.StatusOK, stats)
}

// AuditLog lists the caller's own recorded actions
func (h *AmbassadorHandler) AuditLog(c *gin.Context) {
	principal, ok := getPrincipal(c)
	if !ok {
		return
	}
	limit, offset := pagination(c)
	entries, err := h.admin.MyActions(c.Request.Context(), principal, limit, offset)
	if err != nil {
		respondError(c, err, "Failed to retrieve audit log")
		return
	}
	c.JSON(http.StatusOK, entries)
}

func (h *AmbassadorHandler) RegisterAmbassadorRoutes(rg *gin.RouterGroup, authMW, lookupMW, cashMW gin.HandlerFunc) {
	amb := rg.Group("/ambassador")
	amb.Use(authMW)
	{
		amb.POST("/search", lookupMW, h.Search)
		amb.GET("/participants/:id", lookupMW, h.GetParticipant)
		amb.POST("/verify-cash/:participant_id", cashMW, h.VerifyCash)
		amb.GET("/pending-cash", cashMW, h.PendingCash)
		amb.GET("/my-verifications", cashMW, h.MyVerifications)
		amb.GET("/stats", cashMW, h.Stats)
		amb.GET("/audit-log", cashMW, h.AuditLog)
	}
}
