package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	v1 "github.com/apprenticelog/apprenticelog/api/v1"
	"github.com/apprenticelog/apprenticelog/internal/httpapi/handlers"
	"github.com/apprenticelog/apprenticelog/internal/httpapi/middleware"
	"github.com/apprenticelog/apprenticelog/pkg/clients/ldap"
	"github.com/apprenticelog/apprenticelog/pkg/config"
	"github.com/apprenticelog/apprenticelog/pkg/store"
)

const shutdownTimeout = 5 * time.Second

type APIServer struct {
	config   *config.AppConfig
	router   *gin.Engine
	server   *http.Server
	handlers *handlers.Handlers
}

func NewAPIServer(cfg *config.AppConfig, s store.Store, directory ldap.LDAPClient) *APIServer {
	if cfg.App.Debug {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(middleware.RequestID())
	router.Use(gin.LoggerWithFormatter(func(param gin.LogFormatterParams) string {
		logrus.WithFields(logrus.Fields{
			"method":     param.Method,
			"path":       param.Path,
			"status":     param.StatusCode,
			"latency":    param.Latency,
			"client_ip":  param.ClientIP,
			"user_agent": param.Request.UserAgent(),
			"request_id": param.Keys[middleware.RequestIDKey],
			"error":      param.ErrorMessage,
		}).Info("HTTP request")
		return ""
	}))
	router.Use(gin.Recovery())
	router.Use(middleware.CORS(&cfg.APIServer))

	srv := &APIServer{
		config:   cfg,
		router:   router,
		handlers: handlers.NewHandlers(cfg, s, directory),
	}

	srv.setupRoutes()
	return srv
}

func (s *APIServer) setupRoutes() {

	s.router.GET("/api/v1/status", func(c *gin.Context) {
		c.JSON(http.StatusOK, v1.Status{
			Service: "apprenticelog-api",
			Status:  "running",
		})
	})

	v1Group := s.router.Group("/api/v1")
	v1Group.Use(middleware.BasicAuth(s.config))

	contexts := v1Group.Group("/comment-contexts")
	contexts.GET("", s.handlers.ListCommentContexts)
	contexts.GET("/:userID", s.handlers.GetCommentContext)
	contexts.PUT("/:userID", s.handlers.PutCommentContext)
	contexts.DELETE("/:userID", s.handlers.DeleteCommentContext)
	contexts.POST("/:userID/resolve", s.handlers.ResolveCommentContext)
}

// Handler exposes the router, mainly for tests
func (s *APIServer) Handler() http.Handler {
	return s.router
}

// Handlers gives access to the endpoint handlers, e.g. to pin their clock
func (s *APIServer) Handlers() *handlers.Handlers {
	return s.handlers
}

// Start serves until ctx is cancelled, then shuts down gracefully
func (s *APIServer) Start(ctx context.Context) error {
	s.server = &http.Server{
		Addr:              s.config.APIServer.Address,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go s.stopServer(ctx)

	logrus.WithField("address", s.server.Addr).Info("starting http API server")
	if err := s.server.ListenAndServe(); err != nil {
		if err == http.ErrServerClosed {
			logrus.Info("http API server stopped")
			return nil
		}
		return fmt.Errorf("failed to start http API server : %w", err)
	}

	return nil
}

func (s *APIServer) stopServer(ctx context.Context) {
	<-ctx.Done()
	logrus.Info("turning down http API server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := s.server.Shutdown(shutdownCtx); err != nil {
		logrus.WithError(err).Error("error during HTTP API server shutdown")
	}
}
