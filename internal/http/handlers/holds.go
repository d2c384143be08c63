package handlers

import (
	"net/http"

	"shuttlebook/internal/http/middleware"

	"github.com/gin-gonic/gin"
)

type holdRequest struct {
	Seat int `json:"seat"`
}

// POST /api/trips/:id/holds
func (a API) RequestHold(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	var req holdRequest
	if !BindJSONOrError(c, &req) {
		return
	}
	res, err := a.holds(c).RequestHold(c.Request.Context(), middleware.GetSession(c), id, req.Seat)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

type releaseRequest struct {
	Seats []int `json:"seats"`
}

// DELETE /api/trips/:id/holds
func (a API) ReleaseHold(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	var req releaseRequest
	if !BindJSONOrError(c, &req) {
		return
	}
	n, err := a.holds(c).ReleaseHold(c.Request.Context(), middleware.GetSession(c), id, req.Seats)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"released": n})
}
