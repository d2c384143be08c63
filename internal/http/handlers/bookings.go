package handlers

import (
	"io"
	"net/http"

	"shuttlebook/internal/domain/models"
	"shuttlebook/internal/http/middleware"

	"github.com/gin-gonic/gin"
)

const maxFormBytes = 64 << 10

// POST /api/bookings
//
// The body is the booking form itself, discriminated by bookingType.
func (a API) CreateBooking(c *gin.Context) {
	raw, err := io.ReadAll(io.LimitReader(c.Request.Body, maxFormBytes))
	if err != nil || len(raw) == 0 {
		RespondError(c, http.StatusBadRequest, "empty body", err)
		return
	}
	out, err := a.bookings(c).CreatePending(c.Request.Context(), middleware.GetSession(c), raw)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusCreated, out)
}

// GET /api/bookings/:id
func (a API) GetBooking(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	b, err := a.bookings(c).Get(c.Request.Context(), middleware.GetSession(c), id)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, b)
}

// PUT /api/bookings/:id/status (admin)
func (a API) UpdateBookingStatus(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	var req statusRequest
	if !BindJSONOrError(c, &req) {
		return
	}
	b, err := a.bookings(c).TransitionStatus(c.Request.Context(), id, models.BookingStatus(req.Status))
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, b)
}
