package handler

import (
	"errors"
	"net/http"
	"strconv"

	"conference_registration/internal/apperrors"
	"conference_registration/internal/logger"
	"conference_registration/internal/middleware"
	"conference_registration/internal/model"

	"github.com/gin-gonic/gin"
)

// respondError maps service errors onto HTTP statuses. Anything that is not
// one of the apperrors kinds is logged and hidden behind fallback.
func respondError(c *gin.Context, err error, fallback string) {
	_ = c.Error(err)
	var status int
	switch {
	case errors.Is(err, apperrors.ErrValidation):
		status = http.StatusBadRequest
	case errors.Is(err, apperrors.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, apperrors.ErrConflict):
		status = http.StatusConflict
	case errors.Is(err, apperrors.ErrPermission):
		status = http.StatusForbidden
	case errors.Is(err, apperrors.ErrAuthentication):
		status = http.StatusUnauthorized
	default:
		logger.Error().Err(err).Str("path", c.FullPath()).Msg(fallback)
		c.JSON(http.StatusInternalServerError, gin.H{"error": fallback})
		return
	}
	c.JSON(status, gin.H{"error": apperrors.Message(err, fallback)})
}

func badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
}

// getPrincipal returns the authenticated caller or writes 401.
func getPrincipal(c *gin.Context) (model.Principal, bool) {
	p, ok := middleware.GetPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
	}
	return p, ok
}

// paramID parses a positive integer path parameter or writes 400.
func paramID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid " + name})
		return 0, false
	}
	return id, true
}

// pagination reads limit and offset; the services clamp them.
func pagination(c *gin.Context) (int, int) {
	limit, _ := strconv.Atoi(c.Query("limit"))
	offset, _ := strconv.Atoi(c.Query("offset"))
	return limit, offset
}
