package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"shuttlebook/internal/domain"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	sessionKey    = "session"
	GuestIDHeader = "X-Guest-ID"
)

// Session resolves who is calling. A valid bearer token identifies a user;
// otherwise the X-Guest-ID header names a guest, and a new guest id is
// minted when neither is present. A bad token is rejected rather than
// silently downgraded to a guest.
func Session(secret []byte) gin.HandlerFunc {
	return func(c *gin.Context) {
		if raw, ok := bearerToken(c.GetHeader("Authorization")); ok {
			sess, err := ParseToken(secret, raw)
			if err != nil {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
					"error":      "unauthorized: " + err.Error(),
					"code":       "unauthorized",
					"request_id": GetRequestID(c),
				})
				return
			}
			c.Set(sessionKey, sess)
			c.Next()
			return
		}

		guest := strings.TrimSpace(c.GetHeader(GuestIDHeader))
		if _, err := uuid.Parse(guest); err != nil {
			guest = uuid.NewString()
		}
		c.Writer.Header().Set(GuestIDHeader, guest)
		c.Set(sessionKey, domain.Session{GuestID: guest})
		c.Next()
	}
}

// GetSession returns the caller's session, empty when the middleware did not run.
func GetSession(c *gin.Context) domain.Session {
	if c == nil {
		return domain.Session{}
	}
	if v, ok := c.Get(sessionKey); ok {
		if s, ok := v.(domain.Session); ok {
			return s
		}
	}
	return domain.Session{}
}

func bearerToken(header string) (string, bool) {
	header = strings.TrimSpace(header)
	if len(header) < 7 || !strings.EqualFold(header[:7], "bearer ") {
		return "", false
	}
	token := strings.TrimSpace(header[7:])
	return token, token != ""
}

// ParseToken validates an HS256 token and reads the user id from "sub" or
// "user_id" and the role from "role".
func ParseToken(secret []byte, raw string) (domain.Session, error) {
	claims := jwt.MapClaims{}
	_, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (any, error) {
		return secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return domain.Session{}, err
	}

	userID := claimString(claims["sub"])
	if userID == "" {
		userID = claimString(claims["user_id"])
	}
	if userID == "" {
		return domain.Session{}, errors.New("token has no subject")
	}
	role := claimString(claims["role"])
	if role == "" {
		role = domain.RoleUser
	}
	return domain.Session{UserID: userID, Role: strings.ToLower(role)}, nil
}

// claimString accepts numeric ids, which older tokens carry in user_id.
func claimString(v any) string {
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case float64:
		return fmt.Sprintf("%.0f", t)
	default:
		return ""
	}
}
