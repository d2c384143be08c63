package models

import (
	"encoding/json"
	"time"
)

// Draft is a resumable snapshot of an in-progress booking form.
type Draft struct {
	ID        string          `json:"id"`
	UserID    string          `json:"userId"`
	Type      BookingType     `json:"type"`
	LastSaved time.Time       `json:"lastSaved"`
	FormData  json.RawMessage `json:"formData"`
	Step      int             `json:"step"`
}

func DraftID(userID string, t BookingType) string {
	return userID + "_" + string(t)
}
