package handlers

import (
	"errors"
	"net/http"

	"shuttlebook/internal/domain"
	"shuttlebook/internal/http/middleware"
	"shuttlebook/internal/utils"

	"github.com/gin-gonic/gin"
)

// ErrorResponse standardizes error payloads.
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details any    `json:"details,omitempty"`
}

func respondError(c *gin.Context, status int, code, message string, details any) {
	if code == "" {
		code = http.StatusText(status)
	}
	resp := ErrorResponse{
		Error:   message,
		Code:    code,
		Details: details,
	}
	reqID := middleware.GetRequestID(c)
	if reqID != "" {
		c.JSON(status, gin.H{
			"error":      resp.Error,
			"code":       resp.Code,
			"details":    resp.Details,
			"request_id": reqID,
			"message":    message,
		})
		return
	}
	c.JSON(status, resp)
}

// RespondDomainError maps domain errors to HTTP responses.
func RespondDomainError(c *gin.Context, err error) {
	var seat domain.SeatUnavailableError
	switch {
	case errors.As(err, &seat):
		respondError(c, http.StatusConflict, "seat_unavailable", err.Error(), gin.H{"tripId": seat.TripID, "seat": seat.Seat})
	case domain.IsHoldExpired(err):
		respondError(c, http.StatusGone, "hold_expired", err.Error(), nil)
	case domain.IsPaymentVerification(err):
		respondError(c, http.StatusPaymentRequired, "payment_verification_failed", err.Error(), nil)
	case domain.IsDraftLoadDenied(err):
		respondError(c, http.StatusForbidden, "draft_load_denied", err.Error(), nil)
	case domain.IsValidation(err):
		respondError(c, http.StatusBadRequest, "validation_error", err.Error(), nil)
	case domain.IsNotFound(err):
		respondError(c, http.StatusNotFound, "not_found", err.Error(), nil)
	case domain.IsConflict(err):
		respondError(c, http.StatusConflict, "conflict", err.Error(), nil)
	default:
		utils.LogEvent(middleware.GetRequestID(c), "http", "error", err.Error())
		respondError(c, http.StatusInternalServerError, "internal_error", "something went wrong", nil)
	}
}
