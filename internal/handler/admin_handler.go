package handler

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"conference_registration/internal/model"
	"conference_registration/internal/service"

	"github.com/gin-gonic/gin"
)

// AdminHandler serves organizers
type AdminHandler struct {
	admin        service.AdminService
	payments     service.PaymentService
	participants service.ParticipantService
	checkins     service.CheckInService
}

func NewAdminHandler(
	admin service.AdminService,
	payments service.PaymentService,
	participants service.ParticipantService,
	checkins service.CheckInService,
) *AdminHandler {
	return &AdminHandler{admin: admin, payments: payments, participants: participants, checkins: checkins}
}

func (h *AdminHandler) Dashboard(c *gin.Context) {
	principal, ok := getPrincipal(c)
	if !ok {
		return
	}
	stats, err := h.admin.Dashboard(c.Request.Context(), principal)
	if err != nil {
		respondError(c, err, "Failed to load dashboard")
		return
	}
	c.JSON(http.StatusOK, stats)
}

func participantFilters(c *gin.Context) (model.ParticipantFilters, bool) {
	var filters model.ParticipantFilters
	if trackParam := c.Query("track"); trackParam != "" {
		track := model.Track(trackParam)
		if !track.Valid() {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid track"})
			return filters, false
		}
		filters.Track = &track
	}
	if statusParam := c.Query("status"); statusParam != "" {
		status := model.PaymentStatus(statusParam)
		filters.PaymentStatus = &status
	}
	if searchParam := c.Query("search"); searchParam != "" {
		filters.Search = &searchParam
	}
	filters.Limit, filters.Offset = pagination(c)
	return filters, true
}

func paymentFilters(c *gin.Context) (model.PaymentFilters, bool) {
	var filters model.PaymentFilters
	if statusParam := c.Query("status"); statusParam != "" {
		status := model.PaymentStatus(statusParam)
		filters.Status = &status
	}
	if methodParam := c.Query("method"); methodParam != "" {
		method := model.PaymentMethod(methodParam)
		if !method.Valid() {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid payment method"})
			return filters, false
		}
		filters.Method = &method
	}
	if verifierParam := c.Query("verified_by"); verifierParam != "" {
		id, err := strconv.ParseInt(verifierParam, 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid verified_by format"})
			return filters, false
		}
		filters.VerifiedBy = &id
	}
	if email := c.Query("email"); email != "" {
		filters.Email = &email
	}
	if studentID := c.Query("student_id"); studentID != "" {
		filters.StudentID = &studentID
	}
	if txID := c.Query("transaction_id"); txID != "" {
		filters.TransactionID = &txID
	}
	for param, dst := range map[string]**time.Time{"start_date": &filters.CreatedFrom, "end_date": &filters.CreatedTo} {
		raw := c.Query(param)
		if raw == "" {
			continue
		}
		ts, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid " + param + " format, use RFC3339"})
			return filters, false
		}
		*dst = &ts
	}
	filters.Limit, filters.Offset = pagination(c)
	return filters, true
}

func (h *AdminHandler) Participants(c *gin.Context) {
	principal, ok := getPrincipal(c)
	if !ok {
		return
	}
	filters, ok := participantFilters(c)
	if !ok {
		return
	}
	results, err := h.participants.List(c.Request.Context(), principal, filters)
	if err != nil {
		respondError(c, err, "Failed to retrieve participants")
		return
	}
	c.JSON(http.StatusOK, results)
}

func (h *AdminHandler) Users(c *gin.Context) {
	principal, ok := getPrincipal(c)
	if !ok {
		return
	}
	limit, offset := pagination(c)
	users, err := h.admin.ListUsers(c.Request.Context(), principal, limit, offset)
	if err != nil {
		respondError(c, err, "Failed to retrieve users")
		return
	}
	c.JSON(http.StatusOK, users)
}

func (h *AdminHandler) CreateUser(c *gin.Context) {
	principal, ok := getPrincipal(c)
	if !ok {
		return
	}
	var req model.CreateStaffUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	user, err := h.admin.CreateStaffUser(c.Request.Context(), principal, req)
	if err != nil {
		respondError(c, err, "Failed to create user")
		return
	}
	c.JSON(http.StatusCreated, user)
}

func (h *AdminHandler) UpdateRoles(c *gin.Context) {
	principal, ok := getPrincipal(c)
	if !ok {
		return
	}
	userID, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req model.UpdateRolesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	user, err := h.admin.UpdateRoles(c.Request.Context(), principal, userID, req)
	if err != nil {
		respondError(c, err, "Failed to update roles")
		return
	}
	c.JSON(http.StatusOK, user)
}

func (h *AdminHandler) VerifyPayment(c *gin.Context) {
	principal, ok := getPrincipal(c)
	if !ok {
		return
	}
	paymentID, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req model.VerifyOnlineRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	payment, err := h.payments.VerifyOnline(c.Request.Context(), principal, paymentID, req)
	if err != nil {
		respondError(c, err, "Failed to verify payment")
		return
	}
	c.JSON(http.StatusOK, payment)
}

func (h *AdminHandler) PendingPayments(c *gin.Context) {
	principal, ok := getPrincipal(c)
	if !ok {
		return
	}
	limit, offset := pagination(c)
	payments, err := h.payments.ListPendingOnline(c.Request.Context(), principal, limit, offset)
	if err != nil {
		respondError(c, err, "Failed to retrieve pending payments")
		return
	}
	c.JSON(http.StatusOK, payments)
}

func (h *AdminHandler) Payments(c *gin.Context) {
	principal, ok := getPrincipal(c)
	if !ok {
		return
	}
	filters, ok := paymentFilters(c)
	if !ok {
		return
	}
	payments, err := h.payments.List(c.Request.Context(), principal, filters)
	if err != nil {
		respondError(c, err, "Failed to retrieve payments")
		return
	}
	c.JSON(http.StatusOK, payments)
}

func sendCSV(c *gin.Context, prefix string, data []byte) {
	fileName := fmt.Sprintf("%s_export_%s.csv", prefix, time.Now().Format("20060102_150405"))
	c.Header("Content-Description", "File Transfer")
	c.Header("Content-Disposition", "attachment; filename="+fileName)
	c.Data(http.StatusOK, "text/csv", data)
}

func (h *AdminHandler) ExportPayments(c *gin.Context) {
	principal, ok := getPrincipal(c)
	if !ok {
		return
	}
	filters, ok := paymentFilters(c)
	if !ok {
		return
	}
	csvBuffer, err := h.payments.ExportCSV(c.Request.Context(), principal, filters)
	if err != nil {
		respondError(c, err, "Failed to export payments to CSV")
		return
	}
	sendCSV(c, "payments", csvBuffer.Bytes())
}

func (h *AdminHandler) ExportParticipants(c *gin.Context) {
	principal, ok := getPrincipal(c)
	if !ok {
		return
	}
	filters, ok := participantFilters(c)
	if !ok {
		return
	}
	csvBuffer, err := h.participants.ExportCSV(c.Request.Context(), principal, filters)
	if err != nil {
		respondError(c, err, "Failed to export participants to CSV")
		return
	}
	sendCSV(c, "participants", csvBuffer.Bytes())
}

func (h *AdminHandler) VerifyQR(c *gin.Context) {
	principal, ok := getPrincipal(c)
	if !ok {
		return
	}
	var req model.QRRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	info, err := h.checkins.VerifyTicket(c.Request.Context(), principal, req)
	if err != nil {
		respondError(c, err, "Failed to verify ticket")
		return
	}
	c.JSON(http.StatusOK, info)
}

func (h *AdminHandler) CheckIn(c *gin.Context) {
	principal, ok := getPrincipal(c)
	if !ok {
		return
	}
	var req model.QRRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	checkIn, err := h.checkins.CheckIn(c.Request.Context(), principal, req)
	if err != nil {
		respondError(c, err, "Failed to check in participant")
		return
	}
	c.JSON(http.StatusCreated, checkIn)
}

func (h *AdminHandler) AuditLog(c *gin.Context) {
	principal, ok := getPrincipal(c)
	if !ok {
		return
	}
	var filters model.AuditFilters
	if userIDStr := c.Query("user_id"); userIDStr != "" {
		uid, err := strconv.ParseInt(userIDStr, 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid user_id format"})
			return
		}
		filters.UserID = &uid
	}
	if actionParam := c.Query("action"); actionParam != "" {
		filters.Action = &actionParam
	}
	filters.Limit, filters.Offset = pagination(c)

	entries, err := h.admin.AuditLog(c.Request.Context(), principal, filters)
	if err != nil {
		respondError(c, err, "Failed to retrieve audit log")
		return
	}
	c.JSON(http.StatusOK, entries)
}

// RegisterAdminRoutes registers admin routes
func (h *AdminHandler) RegisterAdminRoutes(rg *gin.RouterGroup, authMW, adminMW gin.HandlerFunc) {
	adminRoutes := rg.Group("/admin")
	adminRoutes.Use(authMW)
	adminRoutes.Use(adminMW)
	{
		adminRoutes.GET("/dashboard", h.Dashboard)
		adminRoutes.GET("/participants", h.Participants)
		adminRoutes.GET("/participants/export", h.ExportParticipants)
		adminRoutes.GET("/users", h.Users)
		adminRoutes.POST("/users", h.CreateUser)
		adminRoutes.PUT("/users/:id/roles", h.UpdateRoles)
		adminRoutes.GET("/payments", h.Payments)
		adminRoutes.GET("/payments/pending", h.PendingPayments)
		adminRoutes.GET("/payments/export", h.ExportPayments)
		adminRoutes.POST("/payments/:id/verify", h.VerifyPayment)
		adminRoutes.POST("/verify-qr", h.VerifyQR)
		adminRoutes.POST("/check-in", h.CheckIn)
		adminRoutes.GET("/audit-log", h.AuditLog)
	}
}
