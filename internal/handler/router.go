package handler

import (
	"what-to-do/internal/middleware"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

type Handlers struct {
	Auth     *AuthHandler
	Taxonomy *TaxonomyHandler
	Activity *ActivityHandler
	Day      *DayHandler
	Summary  *SummaryHandler
}

// RouterConfig carries the middleware the routes are mounted behind.
type RouterConfig struct {
	JWT              *middleware.JWT
	SummaryPerMinute int
	SummaryBurst     int
}

func NewRouter(h Handlers, cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), middleware.RequestID(), middleware.RequestLogger())
	r.Use(cors.New(cors.Config{
		AllowOrigins:  []string{"*"},
		AllowMethods:  []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Authorization", middleware.RequestIDHeader},
		ExposeHeaders: []string{"X-New-Token", middleware.RequestIDHeader},
	}))

	r.POST("/api/signup", h.Auth.Signup)
	r.POST("/api/login", h.Auth.Login)

	api := r.Group("/api", cfg.JWT.Auth())
	api.GET("/emotions", h.Taxonomy.List)

	api.GET("/activities", h.Activity.List)
	api.POST("/activities", h.Activity.Create)
	api.GET("/activities/:id", h.Activity.Get)
	api.PUT("/activities/:id", h.Activity.Update)
	api.DELETE("/activities/:id", h.Activity.Delete)

	api.GET("/days", h.Day.Day)
	api.GET("/days/:date", h.Day.Day)
	api.POST("/days/:date/events", h.Day.LogEvent)
	api.PUT("/events/:id", h.Day.UpdateEvent)
	api.DELETE("/events/:id", h.Day.DeleteEvent)
	api.GET("/events/:id/score", h.Day.Score)
	api.POST("/events/:id/annotations", h.Day.Annotate)
	api.DELETE("/annotations/:id", h.Day.DeleteAnnotation)
	api.GET("/weeks", h.Day.Week)
	api.GET("/weeks/:date", h.Day.Week)

	api.GET("/days/:date/summary", h.Summary.Peek)
	api.GET("/files/:name", h.Summary.Download)

	llm := api.Group("", middleware.RateLimit(cfg.SummaryPerMinute, cfg.SummaryBurst))
	llm.POST("/days/:date/summary", h.Summary.Generate)
	llm.POST("/days/:date/summary/stream", h.Summary.Stream)
	llm.GET("/days/:date/summary/export", h.Summary.Export)
	llm.POST("/summaries/range", h.Summary.Range)
	llm.POST("/ask", h.Summary.Ask)

	return r
}
