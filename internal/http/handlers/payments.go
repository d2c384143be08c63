package handlers

import (
	"net/http"

	"shuttlebook/internal/http/middleware"

	"github.com/gin-gonic/gin"
)

type verifyPaymentRequest struct {
	Reference string `json:"reference"`
	BookingID int64  `json:"bookingId"`
}

// POST /api/payments/verify
//
// Returns the confirmed booking for the receipt. Safe to retry with the
// same reference.
func (a API) VerifyPayment(c *gin.Context) {
	var req verifyPaymentRequest
	if !BindJSONOrError(c, &req) {
		return
	}
	if req.BookingID <= 0 {
		respondError(c, http.StatusBadRequest, "validation_error", "bookingId is required", nil)
		return
	}
	b, err := a.finalizer(c).Finalize(c.Request.Context(), middleware.GetSession(c), req.BookingID, req.Reference)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"booking": b})
}
