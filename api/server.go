// Package api exposes the share session lifecycle over HTTP.
package api

import (
	"context"
	"fmt"
	"net/http"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/gin-gonic/gin"

	"github.com/shareflow/shareflow-go/api/controllers"
	"github.com/shareflow/shareflow-go/api/middlewares"
	"github.com/shareflow/shareflow-go/api/notifyhub"
	"github.com/shareflow/shareflow-go/blob"
	"github.com/shareflow/shareflow-go/session"
	"github.com/shareflow/shareflow-go/tool"
	"github.com/shareflow/shareflow-go/types"
)

// Server is the HTTP API server fronting the session store, access
// mediator and blob store.
type Server struct {
	cfg      types.AppConfig
	store    *session.Store
	mediator *session.Mediator
	blobs    blob.Store
	hub      *notifyhub.Hub

	engine *gin.Engine
	server *http.Server
	mu     sync.RWMutex
}

// NewServer creates an API server over the given collaborators.
func NewServer(cfg types.AppConfig, store *session.Store, mediator *session.Mediator, blobs blob.Store, hub *notifyhub.Hub) *Server {
	return &Server{
		cfg:      cfg,
		store:    store,
		mediator: mediator,
		blobs:    blobs,
		hub:      hub,
	}
}

func (s *Server) setupRoutes() *gin.Engine {
	if tool.DefaultLogger.GetLevel() == log.DebugLevel {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	engine := gin.New()
	engine.Use(gin.Logger())
	engine.Use(middlewares.AllowAllCORS())
	engine.Use(gin.Recovery())

	// Initialize controllers
	shareCtrl := controllers.NewShareController(s.store, s.mediator, s.blobs, s.hub, s.cfg.PublicBaseURL, s.cfg.MaxUploadBytes)
	downloadCtrl := controllers.NewDownloadController(s.mediator, s.blobs, s.hub)
	qrCtrl := controllers.NewQRCodeController(s.mediator, s.cfg.PublicBaseURL)
	statusCtrl := controllers.NewStatusController(s.store)

	v1 := engine.Group("/api/shareflow/v1")
	{
		v1.POST("/create-share-session", middlewares.RateLimitCreate(s.cfg.CreateRatePerMinute), shareCtrl.HandleCreateShareSession)
		v1.GET("/session", downloadCtrl.HandleSessionMetadata)   // metadata for owner or recipient
		v1.GET("/download", downloadCtrl.HandleDownload)         // stream one file while active
		v1.DELETE("/cancel", shareCtrl.HandleCancelShareSession) // owner only
		v1.GET("/create-qr-code", qrCtrl.HandleCreateQRCode)     // QR PNG of the share link
		v1.GET("/session-events", notifyhub.HandleSessionEvents(s.hub, s.mediator))
		v1.GET("/status", statusCtrl.HandleStatus)
	}

	return engine
}

// Start starts the HTTP server. Blocking.
func (s *Server) Start() error {
	engine := s.setupRoutes()

	s.mu.Lock()
	s.engine = engine
	s.server = &http.Server{
		Addr:    fmt.Sprintf(":%d", s.cfg.Port),
		Handler: engine,
	}
	srv := s.server
	s.mu.Unlock()

	tool.DefaultLogger.Infof("Starting API server on :%d (public base %s)", s.cfg.Port, s.cfg.PublicBaseURL)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Stop shuts the server down gracefully.
func (s *Server) Stop(ctx context.Context) error {
	s.mu.RLock()
	srv := s.server
	s.mu.RUnlock()
	if srv == nil {
		return nil
	}
	return srv.Shutdown(ctx)
}
