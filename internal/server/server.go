package server

import (
	"context"
	"net/http"
	"time"

	"github.com/edgeform/contact-gateway/internal/broker"
	"github.com/edgeform/contact-gateway/internal/classifier"
	"github.com/edgeform/contact-gateway/internal/config"
	"github.com/edgeform/contact-gateway/internal/dispatch"
	"github.com/edgeform/contact-gateway/internal/handler"
	"github.com/edgeform/contact-gateway/internal/incident"
	"github.com/edgeform/contact-gateway/internal/middleware"
	"github.com/edgeform/contact-gateway/internal/origin"
	"github.com/edgeform/contact-gateway/internal/ratelimit"
	"github.com/edgeform/contact-gateway/internal/storage"
	"github.com/edgeform/contact-gateway/internal/verify"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

type Server struct {
	router     *gin.Engine
	config     *config.Config
	redis      *storage.RedisClient
	incidents  *incident.Recorder
	httpServer *http.Server
}

func New(cfg *config.Config, redis *storage.RedisClient) *Server {
	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	store := storage.NewRedisStore(redis)

	origins := origin.NewValidator(cfg.Origins.Allowed)
	backoff := ratelimit.NewBackoff(store, cfg.Backoff.DelayTable, cfg.Backoff.ResetAfter)
	limiter := ratelimit.NewLimiter(redis, cfg.RateLimit)
	cls := classifier.New(classifier.DefaultRules())
	verifier := verify.NewChecker(cfg.Turnstile)
	tokenBroker := broker.New(store, cfg.OAuth)
	dispatcher := dispatch.New(tokenBroker, cfg.Dispatch)
	incidents := incident.NewRecorder(store, 256, incident.DefaultRetention)

	contactHandler := handler.NewContactHandler(
		origins, backoff, limiter, cls, verifier, dispatcher, incidents,
	)

	s := &Server{
		router:    router,
		config:    cfg,
		redis:     redis,
		incidents: incidents,
	}

	// Middleware
	router.Use(middleware.Recovery())
	router.Use(middleware.RequestID())
	router.Use(middleware.Logger())
	router.Use(middleware.SecurityHeaders())
	router.Use(middleware.CORS(origins))

	// Routes
	router.POST("/api/contact", contactHandler.Handle)
	router.OPTIONS("/api/contact", contactHandler.Preflight)
	router.GET("/health", s.healthCheck)

	return s
}

func (s *Server) healthCheck(c *gin.Context) {
	redisHealthy := true

	if err := s.redis.Ping(c.Request.Context()); err != nil {
		redisHealthy = false
		logrus.WithError(err).Warn("redis health check failed")
	}

	status := "healthy"
	statusCode := http.StatusOK
	if !redisHealthy {
		status = "degraded"
		statusCode = http.StatusServiceUnavailable
	}

	c.JSON(statusCode, gin.H{
		"status":    status,
		"service":   "contact-gateway",
		"timestamp": time.Now().Unix(),
		"checks": gin.H{
			"redis": redisHealthy,
		},
	})
}

func (s *Server) Run(addr string) error {
	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  15 * time.Second,
	}

	logrus.WithFields(logrus.Fields{
		"addr":        addr,
		"environment": s.config.Server.Environment,
	}).Info("starting contact gateway")

	return s.httpServer.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	logrus.Info("shutting down server")

	if s.httpServer != nil {
		if err := s.httpServer.Shutdown(ctx); err != nil {
			return err
		}
	}

	// Drain queued incidents before the process exits.
	s.incidents.Close()
	return nil
}

func (s *Server) GetRouter() *gin.Engine {
	return s.router
}
