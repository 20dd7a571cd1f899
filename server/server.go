package server

import (
	"errors"
	"net/http"
	"sort"
	"sync"
	"time"

	gin "github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/rustyeddy/tradereplay/feed"
	"github.com/rustyeddy/tradereplay/replay"
)

// SessionFactory builds a session for a new id.
type SessionFactory func(id string, q feed.Query, speed replay.Speed) (*replay.Session, error)

// Server exposes replay sessions over HTTP. Each session is independent;
// the registry is the only shared state.
type Server struct {
	R      *gin.Engine
	Logger *zap.Logger

	newSession SessionFactory
	defaults   feed.Query

	mu       sync.RWMutex
	sessions map[string]*replay.Session
}

type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// NewServer wires the router and middleware. metrics may be nil.
func NewServer(factory SessionFactory, defaults feed.Query, logger *zap.Logger, corsOrigin string, metrics http.Handler) *Server {
	g := gin.New()

	// Request logging
	g.Use(func(cn *gin.Context) {
		start := time.Now()
		cn.Next()
		logger.Info("http_request",
			zap.String("method", cn.Request.Method),
			zap.String("path", cn.Request.URL.Path),
			zap.Int("status", cn.Writer.Status()),
			zap.String("ip", cn.ClientIP()),
			zap.Duration("latency", time.Since(start)),
		)
	})

	g.Use(gin.Recovery())

	// CORS
	g.Use(func(cn *gin.Context) {
		origin := cn.GetHeader("Origin")
		cn.Writer.Header().Set("Vary", "Origin")
		cn.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		cn.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		cn.Writer.Header().Set("Access-Control-Max-Age", "86400")
		if corsOrigin == "*" {
			cn.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		} else if origin != "" && origin == corsOrigin {
			cn.Writer.Header().Set("Access-Control-Allow-Origin", corsOrigin)
		}
		if cn.Request.Method == http.MethodOptions {
			cn.AbortWithStatus(http.StatusNoContent)
			return
		}
		cn.Next()
	})

	s := &Server{
		R:          g,
		Logger:     logger,
		newSession: factory,
		defaults:   defaults,
		sessions:   make(map[string]*replay.Session),
	}

	g.GET("/health", func(cn *gin.Context) { cn.JSON(http.StatusOK, gin.H{"ok": true, "sessions": s.count()}) })
	if metrics != nil {
		g.GET("/metrics", gin.WrapH(metrics))
	}

	api := g.Group("/api/sessions")
	api.POST("", s.createSession)
	api.GET("", s.listSessions)
	api.GET("/:id", s.withSession(s.getSession))
	api.DELETE("/:id", s.deleteSession)

	api.POST("/:id/start", s.withSession(s.start))
	api.POST("/:id/pause", s.withSession(s.pause))
	api.POST("/:id/resume", s.withSession(s.resume))
	api.POST("/:id/reset", s.withSession(s.reset))
	api.POST("/:id/step", s.withSession(s.step))
	api.PUT("/:id/params", s.withSession(s.setParams))
	api.PUT("/:id/speed", s.withSession(s.setSpeed))

	api.GET("/:id/positions", s.withSession(s.getPositions))
	api.GET("/:id/pnl", s.withSession(s.getPnL))
	api.GET("/:id/notifications", s.withSession(s.getNotifications))
	api.DELETE("/:id/notifications", s.withSession(s.clearNotifications))
	api.DELETE("/:id/notifications/:nid", s.withSession(s.removeNotification))

	return s
}

// Close closes every session.
func (s *Server) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, sess := range s.sessions {
		_ = sess.Close()
		delete(s.sessions, id)
	}
}

func (s *Server) count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

func (s *Server) lookup(id string) (*replay.Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[id]
	return sess, ok
}

func (s *Server) add(sess *replay.Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[sess.ID()] = sess
}

func (s *Server) remove(id string) (*replay.Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	delete(s.sessions, id)
	return sess, ok
}

func (s *Server) sorted() []*replay.Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*replay.Session, 0, len(s.sessions))
	for _, sess := range s.sessions {
		out = append(out, sess)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID() < out[j].ID() })
	return out
}

func newID() string { return uuid.NewString() }

// --- Helpers ---

func (s *Server) withSession(h func(*gin.Context, *replay.Session)) gin.HandlerFunc {
	return func(c *gin.Context) {
		sess, ok := s.lookup(c.Param("id"))
		if !ok {
			c.JSON(http.StatusNotFound, apiError{Code: "not_found", Message: "session not found"})
			return
		}
		h(c, sess)
	}
}

func (s *Server) badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, apiError{Code: "bad_request", Message: msg})
}

// commandError maps session and feed errors onto HTTP statuses.
func (s *Server) commandError(c *gin.Context, where string, err error) {
	var apiErr *feed.APIError
	switch {
	case errors.Is(err, replay.ErrClosed):
		c.JSON(http.StatusGone, apiError{Code: "closed", Message: err.Error()})
	case errors.Is(err, replay.ErrInvalidState), errors.Is(err, replay.ErrLoadCanceled):
		c.JSON(http.StatusConflict, apiError{Code: "conflict", Message: err.Error()})
	case errors.Is(err, replay.ErrNoData):
		c.JSON(http.StatusUnprocessableEntity, apiError{Code: "no_data", Message: err.Error()})
	case errors.As(err, &apiErr), errors.Is(err, feed.ErrBackend):
		c.JSON(http.StatusBadGateway, apiError{Code: "backend_error", Message: err.Error()})
	default:
		s.Logger.Error("internal_error", zap.String("where", where), zap.Error(err))
		c.JSON(http.StatusBadGateway, apiError{Code: "load_failed", Message: err.Error()})
	}
}
