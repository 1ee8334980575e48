package api

import (
	"database/sql"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jengzang/itinerary-backend-go/internal/config"
	"github.com/jengzang/itinerary-backend-go/internal/handler"
	"github.com/jengzang/itinerary-backend-go/internal/insight"
	"github.com/jengzang/itinerary-backend-go/internal/middleware"
	"github.com/jengzang/itinerary-backend-go/internal/optimization"
	"github.com/jengzang/itinerary-backend-go/internal/planning"
	"github.com/jengzang/itinerary-backend-go/internal/repository"
	"github.com/jengzang/itinerary-backend-go/internal/service"
)

// Handlers groups the route handlers
type Handlers struct {
	Itineraries *handler.ItineraryHandler
	POIs        *handler.POIHandler
	Sessions    *handler.SessionHandler
}

// App is the wired HTTP application
type App struct {
	Router   *gin.Engine
	Sessions *service.SessionService
	limiter  *middleware.RateLimiter
}

// Close stops background work owned by the app
func (a *App) Close() {
	if a.limiter != nil {
		a.limiter.Stop()
	}
}

// NewPlanner builds the route planner from the strategy and config
func NewPlanner(cfg *config.Config, strategy config.Strategy, source planning.PoiSource) (*planning.RoutePlanner, error) {
	params := optimization.DefaultACOParams()
	if cfg.ACOSeed != 0 {
		params.Seed = cfg.ACOSeed
	}
	opts := []planning.Option{
		planning.WithACOParams(params),
		planning.WithDayWindow(strategy.Day.Start, strategy.Day.End),
	}
	if source != nil {
		opts = append(opts, planning.WithSource(source))
	}
	return planning.NewRoutePlanner(opts...)
}

// NewApp wires repositories, services and handlers on db
func NewApp(cfg *config.Config, db *sql.DB) (*App, error) {
	strategy, err := config.LoadStrategy(cfg.StrategyFile)
	if err != nil {
		return nil, err
	}

	pois := repository.NewPOIRepository(db)
	itineraries := repository.NewItineraryRepository(db)
	memories := repository.NewMemoryRepository(db)

	planner, err := NewPlanner(cfg, strategy, pois)
	if err != nil {
		return nil, err
	}

	var generator insight.Generator
	if cfg.OpenAIAPIKey != "" {
		g, err := insight.NewOpenAIGenerator(cfg.OpenAIAPIKey, cfg.InsightModel)
		if err != nil {
			return nil, err
		}
		generator = g
	} else {
		log.Println("OPENAI_API_KEY not set, historical insights use category stubs")
	}

	sessions, err := service.NewSessionService(service.SessionDeps{
		Strategy:    strategy,
		Planner:     planner,
		Itineraries: itineraries,
		POIs:        pois,
		Memories:    memories,
		Generator:   generator,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create session service: %w", err)
	}

	h := Handlers{
		Itineraries: handler.NewItineraryHandler(service.NewItineraryService(planner, itineraries)),
		POIs:        handler.NewPOIHandler(service.NewPOIService(pois)),
		Sessions:    handler.NewSessionHandler(sessions),
	}

	var limiter *middleware.RateLimiter
	if cfg.RateLimit > 0 {
		limiter = middleware.NewRateLimiter(cfg.RateLimit, time.Minute)
	}

	return &App{
		Router:   SetupRouter(cfg, h, limiter),
		Sessions: sessions,
		limiter:  limiter,
	}, nil
}

// SetupRouter 设置路由
func SetupRouter(cfg *config.Config, h Handlers, limiter *middleware.RateLimiter) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), middleware.Logger())

	// CORS 中间件
	r.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	})

	// 健康检查
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"message": "Itinerary Backend API is running",
		})
	})

	// Prometheus 指标
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// API 路由组
	api := r.Group("/api/v1")
	if cfg.AuthEnabled {
		api.Use(middleware.JWTAuth(cfg.JWTSecret))
	}
	api.Use(middleware.RateLimit(limiter))
	{
		// 行程生成
		itineraries := api.Group("/itineraries")
		{
			itineraries.POST("", h.Itineraries.Generate)
			itineraries.GET("", h.Itineraries.List)
			itineraries.GET("/:id", h.Itineraries.GetByID)
		}

		// 景点目录
		attractions := api.Group("/attractions")
		{
			attractions.GET("", h.POIs.List)
			attractions.POST("", h.POIs.Create)
			attractions.GET("/nearby", h.POIs.Nearby)
		}

		// 实时重规划会话
		sessions := api.Group("/sessions")
		{
			sessions.POST("", h.Sessions.Start)
			sessions.GET("/:id", h.Sessions.Summary)
			sessions.DELETE("/:id", h.Sessions.End)
			sessions.POST("/:id/advance", h.Sessions.Advance)
			sessions.POST("/:id/conditions", h.Sessions.Conditions)
			sessions.POST("/:id/events", h.Sessions.Event)
			sessions.POST("/:id/resolve", h.Sessions.Resolve)
			sessions.GET("/:id/memory", h.Sessions.Memory)
		}
	}

	return r
}
