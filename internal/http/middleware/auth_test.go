package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"shuttlebook/internal/domain"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testSecret = []byte("test-secret")

func signed(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(testSecret)
	require.NoError(t, err)
	return tok
}

func sessionEngine(captured *domain.Session) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RequestID(), Session(testSecret))
	r.GET("/who", func(c *gin.Context) {
		*captured = GetSession(c)
		c.Status(http.StatusNoContent)
	})
	r.GET("/admin", RequireRoles(domain.RoleAdmin), func(c *gin.Context) { c.Status(http.StatusNoContent) })
	return r
}

func TestSessionFromBearerToken(t *testing.T) {
	var got domain.Session
	r := sessionEngine(&got)

	req := httptest.NewRequest(http.MethodGet, "/who", nil)
	req.Header.Set("Authorization", "Bearer "+signed(t, jwt.MapClaims{"user_id": 42, "role": "Admin", "exp": time.Now().Add(time.Hour).Unix()}))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "42", got.UserID)
	assert.True(t, got.IsAdmin())
	assert.Empty(t, w.Header().Get(GuestIDHeader))
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
}

func TestSessionRejectsBadToken(t *testing.T) {
	var got domain.Session
	r := sessionEngine(&got)

	req := httptest.NewRequest(http.MethodGet, "/who", nil)
	req.Header.Set("Authorization", "Bearer not-a-jwt")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestSessionRejectsExpiredToken(t *testing.T) {
	_, err := ParseToken(testSecret, signed(t, jwt.MapClaims{"sub": "u1", "exp": time.Now().Add(-time.Minute).Unix()}))
	assert.Error(t, err)
}

func TestSessionMintsAndKeepsGuestID(t *testing.T) {
	var got domain.Session
	r := sessionEngine(&got)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/who", nil))
	minted := w.Header().Get(GuestIDHeader)
	_, err := uuid.Parse(minted)
	require.NoError(t, err)
	assert.Equal(t, "guest:"+minted, got.HolderID())

	req := httptest.NewRequest(http.MethodGet, "/who", nil)
	req.Header.Set(GuestIDHeader, minted)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, minted, got.GuestID)
	assert.False(t, got.Authenticated())
}

func TestRequireRoles(t *testing.T) {
	var got domain.Session
	r := sessionEngine(&got)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/admin", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	req := httptest.NewRequest(http.MethodGet, "/admin", nil)
	req.Header.Set("Authorization", "Bearer "+signed(t, jwt.MapClaims{"sub": "u1"}))
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusForbidden, w.Code)

	req = httptest.NewRequest(http.MethodGet, "/admin", nil)
	req.Header.Set("Authorization", "Bearer "+signed(t, jwt.MapClaims{"sub": "boss", "role": "admin"}))
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNoContent, w.Code)
}
