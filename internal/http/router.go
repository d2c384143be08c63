package api

import (
	"log"
	stdhttp "net/http"

	h "shuttlebook/internal/http/handlers"
	"shuttlebook/internal/http/middleware"

	"github.com/gin-gonic/gin"
)

func NewRouter(a h.API) *gin.Engine {
	r := gin.New()
	r.Use(middleware.RequestID(), middleware.CORS(a.Env.AllowedOrigins), middleware.Session([]byte(a.Env.JWTSecret)), middleware.Logger(), gin.Recovery())

	if err := r.SetTrustedProxies(nil); err != nil {
		log.Printf("warning: failed to set trusted proxies: %v", err)
	}

	r.NoRoute(func(c *gin.Context) {
		c.JSON(stdhttp.StatusNotFound, gin.H{
			"error":  "route not found",
			"path":   c.Request.URL.Path,
			"method": c.Request.Method,
		})
	})

	admin := middleware.RequireRoles("admin")

	api := r.Group("/api")
	{
		api.GET("/health", h.Health)
		api.GET("/db-check", a.DBCheck)
		api.GET("/routes", admin, h.Routes)

		// Trips & seat holds
		trips := api.Group("/trips")
		trips.GET("", a.SearchTrips)
		trips.GET("/:id", a.GetTrip)
		trips.GET("/:id/stream", a.StreamTrip)
		trips.POST("/:id/holds", a.RequestHold)
		trips.DELETE("/:id/holds", a.ReleaseHold)
		trips.POST("", admin, a.CreateTrip)
		trips.PUT("/:id/status", admin, a.UpdateTripStatus)

		// Bookings
		bookings := api.Group("/bookings")
		bookings.POST("", a.CreateBooking)
		bookings.GET("/:id", a.GetBooking)
		bookings.PUT("/:id/status", admin, a.UpdateBookingStatus)

		// Payments
		api.POST("/payments/verify", a.VerifyPayment)

		// Drafts
		drafts := api.Group("/drafts")
		drafts.PUT("/:type", a.SaveDraft)
		drafts.GET("/:id", a.GetDraft)
		drafts.DELETE("/:type", a.DiscardDraft)
	}

	h.SetRouter(r)
	return r
}
