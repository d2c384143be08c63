package handlers

import (
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
)

var (
	routerMu sync.RWMutex
	router   *gin.Engine
)

// SetRouter stores the active gin engine for later inspection (e.g., /api/routes).
func SetRouter(r *gin.Engine) {
	routerMu.Lock()
	defer routerMu.Unlock()
	router = r
}

func Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "message": "shuttlebook is running"})
}

func (a API) DBCheck(c *gin.Context) {
	db := a.db()
	if db == nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "database not connected"})
		return
	}
	var count int
	if err := db.QueryRowContext(c.Request.Context(), "SELECT COUNT(*) FROM scheduled_trips").Scan(&count); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "database query failed: " + err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "database connection OK", "trips_in_db": count})
}

func Routes(c *gin.Context) {
	routerMu.RLock()
	r := router
	routerMu.RUnlock()
	if r == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "router not ready"})
		return
	}

	routes := r.Routes()
	out := make([]gin.H, 0, len(routes))
	for _, rt := range routes {
		out = append(out, gin.H{
			"method":  rt.Method,
			"path":    rt.Path,
			"handler": rt.Handler,
		})
	}
	c.JSON(http.StatusOK, gin.H{"routes": out})
}
