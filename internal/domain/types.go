package domain

import "strings"

// Role names carried in session tokens.
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// Session identifies who is acting: an authenticated user, or a guest with
// a generated id. It is passed explicitly into every service call.
type Session struct {
	UserID  string `json:"userId,omitempty"`
	GuestID string `json:"guestId,omitempty"`
	Role    string `json:"role,omitempty"`
}

// HolderID is the id written into seat holds for this session.
func (s Session) HolderID() string {
	if id := strings.TrimSpace(s.UserID); id != "" {
		return id
	}
	if id := strings.TrimSpace(s.GuestID); id != "" {
		return "guest:" + id
	}
	return ""
}

func (s Session) Authenticated() bool {
	return strings.TrimSpace(s.UserID) != ""
}

func (s Session) IsAdmin() bool {
	return s.Authenticated() && strings.EqualFold(s.Role, RoleAdmin)
}
