package handlers

import (
	"encoding/json"
	"net/http"

	"shuttlebook/internal/domain/models"
	"shuttlebook/internal/http/middleware"

	"github.com/gin-gonic/gin"
)

type saveDraftRequest struct {
	FormData json.RawMessage `json:"formData"`
	Step     int             `json:"step"`
}

// PUT /api/drafts/:type
func (a API) SaveDraft(c *gin.Context) {
	var req saveDraftRequest
	if !BindJSONOrError(c, &req) {
		return
	}
	d, err := a.drafts(c).Save(c.Request.Context(), middleware.GetSession(c), models.BookingType(c.Param("type")), req.FormData, req.Step)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, d)
}

// GET /api/drafts/:id
func (a API) GetDraft(c *gin.Context) {
	d, err := a.drafts(c).Load(c.Request.Context(), middleware.GetSession(c), c.Param("id"))
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, d)
}

// DELETE /api/drafts/:type
func (a API) DiscardDraft(c *gin.Context) {
	if err := a.drafts(c).Discard(c.Request.Context(), middleware.GetSession(c), models.BookingType(c.Param("type"))); err != nil {
		RespondDomainError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
