package handler

import (
	"net/http"

	"conference_registration/internal/model"
	"conference_registration/internal/service"

	"github.com/gin-gonic/gin"
)

// RegistrationTeamHandler serves the on-site registration desk
type RegistrationTeamHandler struct {
	registration service.RegistrationService
	payments     service.PaymentService
	participants service.ParticipantService
	admin        service.AdminService
}

func NewRegistrationTeamHandler(
	registration service.RegistrationService,
	payments service.PaymentService,
	participants service.ParticipantService,
	admin service.AdminService,
) *RegistrationTeamHandler {
	return &RegistrationTeamHandler{
		registration: registration,
		payments:     payments,
		participants: participants,
		admin:        admin,
	}
}

func (h *RegistrationTeamHandler) Dashboard(c *gin.Context) {
	principal, ok := getPrincipal(c)
	if !ok {
		return
	}
	stats, err := h.admin.DeskDashboard(c.Request.Context(), principal)
	if err != nil {
		respondError(c, err, "Failed to load dashboard")
		return
	}
	c.JSON(http.StatusOK, stats)
}

func (h *RegistrationTeamHandler) Register(c *gin.Context) {
	principal, ok := getPrincipal(c)
	if !ok {
		return
	}
	var req model.ManualRegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	resp, err := h.registration.RegisterManual(c.Request.Context(), principal, req)
	if err != nil {
		respondError(c, err, "Failed to register participant")
		return
	}
	c.JSON(http.StatusCreated, resp)
}

func (h *RegistrationTeamHandler) UploadProof(c *gin.Context) {
	principal, ok := getPrincipal(c)
	if !ok {
		return
	}
	paymentID, ok := paramID(c, "id")
	if !ok {
		return
	}
	file, err := c.FormFile("receipt")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Receipt file is required: " + err.Error()})
		return
	}
	var details model.ReceiptDetails
	if err := c.ShouldBind(&details); err != nil {
		badRequest(c, err)
		return
	}
	payment, err := h.payments.UploadProof(c.Request.Context(), principal, paymentID, file, details)
	if err != nil {
		respondError(c, err, "Failed to upload payment proof")
		return
	}
	c.JSON(http.StatusOK, payment)
}

func (h *RegistrationTeamHandler) Registrations(c *gin.Context) {
	principal, ok := getPrincipal(c)
	if !ok {
		return
	}
	limit, offset := pagination(c)
	results, err := h.participants.ListRegisteredBy(c.Request.Context(), principal, limit, offset)
	if err != nil {
		respondError(c, err, "Failed to retrieve registrations")
		return
	}
	c.JSON(http.StatusOK, results)
}

func (h *RegistrationTeamHandler) Payments(c *gin.Context) {
	principal, ok := getPrincipal(c)
	if !ok {
		return
	}
	limit, offset := pagination(c)
	payments, err := h.payments.ListForDesk(c.Request.Context(), principal, limit, offset)
	if err != nil {
		respondError(c, err, "Failed to retrieve payments")
		return
	}
	c.JSON(http.StatusOK, payments)
}

func (h *RegistrationTeamHandler) Flag(c *gin.Context) {
	principal, ok := getPrincipal(c)
	if !ok {
		return
	}
	var req model.FlagRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	if err := h.payments.Flag(c.Request.Context(), principal, req); err != nil {
		respondError(c, err, "Failed to flag payment")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Payment flagged for review"})
}

func (h *RegistrationTeamHandler) RegisterRegistrationTeamRoutes(rg *gin.RouterGroup, authMW, deskMW gin.HandlerFunc) {
	desk := rg.Group("/registration-team")
	desk.Use(authMW, deskMW)
	{
		desk.GET("/dashboard", h.Dashboard)
		desk.POST("/register", h.Register)
		desk.GET("/payments", h.Payments)
		desk.POST("/payments/:id/proof", h.UploadProof)
		desk.GET("/registrations", h.Registrations)
		desk.POST("/flag", h.Flag)
	}
}
