package services

import (
	"context"
	"database/sql"
	"encoding/json"
	"strings"
	"time"

	intconfig "shuttlebook/internal/config"
	"shuttlebook/internal/domain"
	"shuttlebook/internal/domain/models"
	"shuttlebook/internal/repositories"
	"shuttlebook/internal/utils"
)

// DraftService keeps one resumable form per user and booking type.
type DraftService struct {
	DB        *sql.DB
	RequestID string
	Now       func() time.Time
}

func (s DraftService) db() *sql.DB {
	if s.DB != nil {
		return s.DB
	}
	return intconfig.DB
}

// Save overwrites the user's draft for bookingType. Null fields are dropped
// before storage; what remains must decode as that booking type's form.
func (s DraftService) Save(ctx context.Context, sess domain.Session, bookingType models.BookingType, formData json.RawMessage, step int) (models.Draft, error) {
	if !sess.Authenticated() {
		return models.Draft{}, domain.ValidationError{Field: "session", Msg: "sign in to save drafts"}
	}
	if !bookingType.Valid() {
		return models.Draft{}, domain.ValidationError{Field: "type", Msg: "unknown booking type"}
	}
	if step < 0 {
		return models.Draft{}, domain.ValidationError{Field: "step", Msg: "must not be negative"}
	}
	clean, err := utils.StripNulls(formData)
	if err != nil {
		return models.Draft{}, domain.ValidationError{Field: "formData", Msg: "must be a JSON object", Err: err}
	}
	if _, err := models.DecodeBookingFormAs(bookingType, clean); err != nil {
		return models.Draft{}, domain.ValidationError{Field: "formData", Msg: err.Error(), Err: err}
	}

	d := models.Draft{
		ID:        models.DraftID(sess.UserID, bookingType),
		UserID:    sess.UserID,
		Type:      bookingType,
		LastSaved: utils.Clock(s.Now).Truncate(time.Millisecond),
		FormData:  clean,
		Step:      step,
	}
	if err := (repositories.DraftRepo{DB: s.db()}).Upsert(ctx, d); err != nil {
		utils.LogFields(s.RequestID, "draft", "save", "draft_id", d.ID, "err", err)
		return models.Draft{}, err
	}
	utils.LogFields(s.RequestID, "draft", "save", "draft_id", d.ID, "step", step)
	return d, nil
}

// Load returns a draft owned by the session. Guests and other users are denied.
func (s DraftService) Load(ctx context.Context, sess domain.Session, draftID string) (models.Draft, error) {
	draftID = strings.TrimSpace(draftID)
	if !sess.Authenticated() || !strings.HasPrefix(draftID, sess.UserID+"_") {
		utils.LogFields(s.RequestID, "draft", "load", "draft_id", draftID, "denied", true)
		return models.Draft{}, domain.DraftLoadDeniedError{DraftID: draftID}
	}
	d, err := repositories.DraftRepo{DB: s.db()}.Get(ctx, draftID)
	if err != nil {
		return models.Draft{}, err
	}
	if d.UserID != sess.UserID {
		return models.Draft{}, domain.DraftLoadDeniedError{DraftID: draftID}
	}
	return d, nil
}

// Discard is idempotent; guests have nothing stored server-side.
func (s DraftService) Discard(ctx context.Context, sess domain.Session, bookingType models.BookingType) error {
	if !bookingType.Valid() {
		return domain.ValidationError{Field: "type", Msg: "unknown booking type"}
	}
	if !sess.Authenticated() {
		return nil
	}
	id := models.DraftID(sess.UserID, bookingType)
	if err := (repositories.DraftRepo{DB: s.db()}).Delete(ctx, id); err != nil {
		return err
	}
	utils.LogFields(s.RequestID, "draft", "discard", "draft_id", id)
	return nil
}
