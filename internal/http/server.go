package http

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"subgate-bot/internal/common/logger"
	"subgate-bot/internal/features/subscriber/repository"
)

// Server exposes the operational endpoints: a health probe and a small
// subscription stats snapshot. It is meant for internal use only and
// carries no authentication.
type Server struct {
	srv  *http.Server
	db   *gorm.DB
	repo repository.SubscriberRepository
}

func NewServer(addr string, db *gorm.DB, repo repository.SubscriberRepository, debug bool) *Server {
	if !debug {
		gin.SetMode(gin.ReleaseMode)
	}

	s := &Server{db: db, repo: repo}

	router := gin.New()
	router.Use(gin.Recovery())
	router.GET("/healthz", s.health)
	router.GET("/stats", s.stats)

	s.srv = &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return s
}

// Start runs the listener in a goroutine and returns immediately.
func (s *Server) Start() {
	go func() {
		logger.Info().Str("addr", s.srv.Addr).Msg("Starting ops HTTP server")
		if err := s.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("Ops HTTP server failed")
		}
	}()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}

func (s *Server) health(c *gin.Context) {
	sqlDB, err := s.db.DB()
	if err == nil {
		err = sqlDB.PingContext(c.Request.Context())
	}
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status":    "ok",
		"timestamp": time.Now().UTC(),
		"service":   "subgate-bot",
	})
}

func (s *Server) stats(c *gin.Context) {
	ctx := c.Request.Context()

	counts, err := s.repo.CountByLabel(ctx)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	byLabel := make(map[string]int64, len(counts))
	for label, n := range counts {
		byLabel[string(label)] = n
	}

	expired, err := s.repo.ListExpired(ctx, time.Now())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"subscribers_by_label": byLabel,
		"expired_pending":      len(expired),
	})
}
