// Package api implements the reference widget REST backend
package api

import (
	"context"
	_ "embed"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/gin-gonic/gin"
	"github.com/microcosm-cc/bluemonday"

	"github.com/go-while/go-widgets/internal/common"
	"github.com/go-while/go-widgets/internal/config"
	"github.com/go-while/go-widgets/internal/models"
)

//go:embed openapi.yaml
var openapiYAML []byte

// Store is the persistence the backend needs
type Store interface {
	ListWidgets(ctx context.Context) ([]models.Widget, error)
	GetWidget(ctx context.Context, name string) (*models.Widget, error)
	InsertWidget(ctx context.Context, w models.Widget) error
	UpdateWidget(ctx context.Context, name string, upd models.WidgetUpdate) (*models.Widget, error)
	DeleteWidget(ctx context.Context, name string) error
	Ping(ctx context.Context) error
}

// Server is the widget-api HTTP server
type Server struct {
	DB     Store
	Router *gin.Engine
	Config *config.BackendConfig

	openapi *openapi3.T
	policy  *bluemonday.Policy
	srv     *http.Server
}

// LoadOpenAPI parses and validates the embedded API description
func LoadOpenAPI(ctx context.Context) (*openapi3.T, error) {
	loader := openapi3.NewLoader()
	doc, err := loader.LoadFromData(openapiYAML)
	if err != nil {
		return nil, fmt.Errorf("load openapi: %w", err)
	}
	if err := doc.Validate(ctx); err != nil {
		return nil, fmt.Errorf("validate openapi: %w", err)
	}
	return doc, nil
}

// NewServer creates the backend with its routes
func NewServer(store Store, cfg *config.BackendConfig) (*Server, error) {
	doc, err := LoadOpenAPI(context.Background())
	if err != nil {
		return nil, err
	}

	router := gin.New()
	router.UseRawPath = true // names may contain an escaped '/'
	router.Use(gin.Recovery())
	router.Use(common.RequestIDMiddleware())
	router.Use(common.ApacheLogFormat())

	s := &Server{
		DB:      store,
		Router:  router,
		Config:  cfg,
		openapi: doc,
		policy:  bluemonday.StrictPolicy(),
	}
	s.setupRoutes()
	return s, nil
}

func (s *Server) setupRoutes() {
	s.Router.GET("/ping", s.ping)
	s.Router.GET("/openapi.json", s.getOpenAPI)

	v1 := s.Router.Group("/v1")
	{
		v1.GET("/widgets", s.listWidgets)
		v1.POST("/widgets", s.createWidget)
		v1.GET("/widgets/:name", s.getWidget)
		v1.PUT("/widgets/:name", s.updateWidget)
		v1.DELETE("/widgets/:name", s.deleteWidget)
	}
}

// Start listens on the configured port until Shutdown is called
func (s *Server) Start() error {
	addr := ":" + strconv.Itoa(s.Config.ListenPort)
	s.srv = &http.Server{
		Addr:              addr,
		Handler:           s.Router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	log.Printf("[API]: Starting widget API on %s", addr)
	if err := s.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown stops accepting requests and waits for in-flight ones
func (s *Server) Shutdown(ctx context.Context) error {
	if s.srv == nil {
		return nil
	}
	return s.srv.Shutdown(ctx)
}

func (s *Server) getOpenAPI(c *gin.Context) {
	c.JSON(http.StatusOK, s.openapi)
}
