package ginserver

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	gin "github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"venuecal/internal/infra/config"
	"venuecal/internal/infra/obs"
)

type ReservationHTTP interface {
	List(c *gin.Context)
	Get(c *gin.Context)
	Create(c *gin.Context)
	Update(c *gin.Context)
	Delete(c *gin.Context)
	DeleteByEvent(c *gin.Context)
	Check(c *gin.Context)
}

type CalendarHTTP interface {
	Calendar(c *gin.Context)
}

type EventHTTP interface {
	List(c *gin.Context)
	Get(c *gin.Context)
	Put(c *gin.Context)
	Delete(c *gin.Context)
	ChangeStatus(c *gin.Context)
	Reconcile(c *gin.Context)
}

type SessionHTTP interface {
	Open(c *gin.Context)
	Get(c *gin.Context)
	PickStart(c *gin.Context)
	PickEnd(c *gin.Context)
	Submit(c *gin.Context)
	Reset(c *gin.Context)
	Close(c *gin.Context)
}

type Handlers struct {
	Reservations ReservationHTTP
	Calendar     CalendarHTTP
	Events       EventHTTP
	Sessions     SessionHTTP
	Cache        *ResponseCache
}

func NewServer(cfg config.Config, obsMW obs.Middleware, health obs.HealthHandlers, h Handlers) *http.Server {
	mode := configureGinMode(cfg.Env)
	if obsMW.Logger != nil {
		obsMW.Logger.Info("gin initialized", "mode", mode)
	}
	return &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           NewRouter(cfg, obsMW, health, h),
		ReadHeaderTimeout: 10 * time.Second,
	}
}

// NewRouter builds the routing tree without touching the global gin mode.
func NewRouter(cfg config.Config, obsMW obs.Middleware, health obs.HealthHandlers, h Handlers) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(obsMW.RequestID())
	router.Use(obsMW.AccessLog())
	router.Use(cors.New(cors.Config{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders: []string{"Origin", "Content-Type", "Accept", "Idempotency-Key", "X-Request-ID"},
		ExposeHeaders: []string{
			"Content-Length",
			"Content-Type",
			"X-Request-ID",
			"X-Cache",
		},
		MaxAge: 12 * time.Hour,
	}))

	router.GET("/livez", health.Livez)
	router.GET("/readyz", health.Readyz)

	limit := RateLimiter(rate.Limit(cfg.RateLimitPerSec), cfg.RateLimitBurst)
	cached := h.Cache.Middleware()

	api := router.Group("/api/v1")
	if h.Reservations != nil {
		g := api.Group("/reservations")
		g.GET("", cached, h.Reservations.List)
		g.GET("/:id", h.Reservations.Get)
		g.POST("", limit, h.Reservations.Create)
		g.POST("/check", h.Reservations.Check)
		g.PATCH("/:id", limit, h.Reservations.Update)
		g.DELETE("/:id", limit, h.Reservations.Delete)
		g.DELETE("", limit, h.Reservations.DeleteByEvent)
	}
	if h.Calendar != nil {
		api.GET("/calendar", cached, h.Calendar.Calendar)
	}
	if h.Events != nil {
		g := api.Group("/events")
		g.GET("", h.Events.List)
		g.POST("/reconcile", limit, h.Events.Reconcile)
		g.GET("/:id", h.Events.Get)
		g.PUT("/:id", limit, h.Events.Put)
		g.DELETE("/:id", limit, h.Events.Delete)
		g.POST("/:id/status", limit, h.Events.ChangeStatus)
	}
	if h.Sessions != nil {
		g := api.Group("/sessions")
		g.POST("", limit, h.Sessions.Open)
		g.GET("/:id", h.Sessions.Get)
		g.POST("/:id/start", h.Sessions.PickStart)
		g.POST("/:id/end", h.Sessions.PickEnd)
		g.POST("/:id/submit", limit, h.Sessions.Submit)
		g.POST("/:id/reset", h.Sessions.Reset)
		g.DELETE("/:id", h.Sessions.Close)
	}
	return router
}

func configureGinMode(env string) string {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "debug", "dev", "local":
		gin.SetMode(gin.DebugMode)
		return gin.DebugMode
	case "test", "testing":
		gin.SetMode(gin.TestMode)
		return gin.TestMode
	default:
		gin.SetMode(gin.ReleaseMode)
		return gin.ReleaseMode
	}
}
