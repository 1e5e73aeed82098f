package handler

import (
	"net/http"
	"os"

	"conference_registration/internal/model"
	"conference_registration/internal/service"

	"github.com/gin-gonic/gin"
)

// PaymentHandler serves a participant's own payment
type PaymentHandler struct {
	service service.PaymentService
}

func NewPaymentHandler(s service.PaymentService) *PaymentHandler {
	return &PaymentHandler{service: s}
}

func (h *PaymentHandler) SelectMethod(c *gin.Context) {
	principal, ok := getPrincipal(c)
	if !ok {
		return
	}
	var req model.SelectMethodRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	payment, err := h.service.SelectMethod(c.Request.Context(), principal, req.Method)
	if err != nil {
		respondError(c, err, "Failed to select payment method")
		return
	}
	c.JSON(http.StatusCreated, payment)
}

func (h *PaymentHandler) UploadReceipt(c *gin.Context) {
	principal, ok := getPrincipal(c)
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

	payment, err := h.service.UploadReceipt(c.Request.Context(), principal, file, details)
	if err != nil {
		respondError(c, err, "Failed to upload receipt")
		return
	}
	c.JSON(http.StatusOK, payment)
}

func (h *PaymentHandler) MyPayment(c *gin.Context) {
	principal, ok := getPrincipal(c)
	if !ok {
		return
	}
	payment, err := h.service.MyPayment(c.Request.Context(), principal)
	if err != nil {
		respondError(c, err, "Failed to retrieve payment")
		return
	}
	c.JSON(http.StatusOK, payment)
}

// GetReceipt streams a stored receipt to its owner or to staff
func (h *PaymentHandler) GetReceipt(c *gin.Context) {
	principal, ok := getPrincipal(c)
	if !ok {
		return
	}
	paymentID, ok := paramID(c, "id")
	if !ok {
		return
	}

	filePath, fileName, err := h.service.ReceiptFile(c.Request.Context(), principal, paymentID)
	if err != nil {
		respondError(c, err, "Failed to get receipt")
		return
	}
	if _, err := os.Stat(filePath); os.IsNotExist(err) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Receipt file not found on server"})
		return
	}
	c.FileAttachment(filePath, fileName)
}

// Search looks payments up by participant, transaction or date range
func (h *PaymentHandler) Search(c *gin.Context) {
	principal, ok := getPrincipal(c)
	if !ok {
		return
	}
	filters, ok := paymentFilters(c)
	if !ok {
		return
	}
	payments, err := h.service.List(c.Request.Context(), principal, filters)
	if err != nil {
		respondError(c, err, "Failed to search payments")
		return
	}
	c.JSON(http.StatusOK, payments)
}

// RegisterPaymentRoutes registers participant payment routes
func (h *PaymentHandler) RegisterPaymentRoutes(rg *gin.RouterGroup, authMW, participantMW, adminMW gin.HandlerFunc) {
	payments := rg.Group("/payments")
	payments.Use(authMW)
	{
		payments.POST("/select-method", participantMW, h.SelectMethod)
		payments.POST("/receipt", participantMW, h.UploadReceipt)
		payments.GET("/me", participantMW, h.MyPayment)
		payments.GET("/search", adminMW, h.Search)
		payments.GET("/:id/receipt", h.GetReceipt) // ownership is checked by the service
	}
}
