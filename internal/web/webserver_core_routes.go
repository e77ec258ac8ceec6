package web

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-contrib/secure"
	"github.com/gin-gonic/gin"

	"github.com/go-while/go-widgets/internal/common"
	"github.com/go-while/go-widgets/internal/config"
)

// NewServer creates a new web server instance
func NewServer(api WidgetAPI, webconfig *config.WebConfig) (*WebServer, error) {
	if webconfig.Debug {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	templates, err := parsePageTemplates()
	if err != nil {
		return nil, err
	}

	router := gin.New()
	router.UseRawPath = true // names may contain an escaped '/'
	router.Use(gin.Recovery())

	// Trust X-Forwarded-* only from local and private reverse proxies
	if err := router.SetTrustedProxies([]string{"127.0.0.1", "::1", "10.0.0.0/8", "172.16.0.0/12", "192.168.0.0/16"}); err != nil {
		return nil, err
	}

	secureConfig := secure.Config{
		FrameDeny:             true,
		ContentTypeNosniff:    true,
		BrowserXssFilter:      true,
		ReferrerPolicy:        "strict-origin-when-cross-origin",
		ContentSecurityPolicy: "default-src 'self'",
	}

	// SSL headers only when the app terminates TLS itself, not behind a proxy
	if webconfig.SSL {
		secureConfig.SSLRedirect = true
		secureConfig.STSSeconds = 31536000
		secureConfig.STSIncludeSubdomains = true
	}
	router.Use(secure.New(secureConfig))

	server := &WebServer{
		API:       api,
		Router:    router,
		Config:    webconfig,
		templates: templates,
	}

	router.Use(server.ReverseProxyMiddleware())
	router.Use(common.RequestIDMiddleware())
	router.Use(common.ApacheLogFormat())

	server.setupRoutes()
	return server, nil
}

func (s *WebServer) setupRoutes() {
	// Health check and static files stay outside of auth
	s.Router.GET("/ping", func(c *gin.Context) {
		c.String(http.StatusOK, "pong")
	})
	s.Router.GET("/static/*filepath", EmbeddedStaticHandler("/static"))

	pages := s.Router.Group("/")
	if s.Config.AdminUser != "" {
		pages.Use(s.BasicAuthRequired())
	}
	{
		pages.GET("/", s.homePage)
		pages.POST("/delete-widget/:widgetName", s.deleteWidget)

		pages.GET("/create-widget", s.widgetFormPage)
		pages.POST("/create-widget", s.widgetFormSubmit)
		pages.GET("/edit-widget/:widgetName", s.widgetFormPage)
		pages.POST("/edit-widget/:widgetName", s.widgetFormSubmit)
	}

	s.Router.NoRoute(func(c *gin.Context) {
		s.renderError(c, http.StatusNotFound, "Page not found", c.Request.URL.Path)
	})
}

// Start starts the web server with SSL support if configured
func (s *WebServer) Start() error {
	addr := ":" + strconv.Itoa(s.Config.ListenPort)
	s.srv = &http.Server{
		Addr:              addr,
		Handler:           s.Router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	var err error
	if s.Config.SSL {
		if s.Config.CertFile == "" || s.Config.KeyFile == "" {
			return errors.New("SSL enabled but cert_file or key_file not specified in config")
		}
		log.Printf("%s Starting HTTPS server on %s", logPrefix, addr)
		err = s.srv.ListenAndServeTLS(s.Config.CertFile, s.Config.KeyFile)
	} else {
		log.Printf("%s Starting HTTP server on %s", logPrefix, addr)
		err = s.srv.ListenAndServe()
	}
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Shutdown gracefully stops the server
func (s *WebServer) Shutdown(ctx context.Context) error {
	if s.srv == nil {
		return nil
	}
	return s.srv.Shutdown(ctx)
}

// ReverseProxyMiddleware handles X-Forwarded headers when running behind a reverse proxy
func (s *WebServer) ReverseProxyMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		// X-Forwarded-Proto tells us the original request was HTTPS
		if proto := c.GetHeader("X-Forwarded-Proto"); strings.EqualFold(proto, "https") {
			c.Request.URL.Scheme = "https"
		}
		if host := c.GetHeader("X-Forwarded-Host"); host != "" {
			c.Request.Host = host
		}
		c.Next()
	}
}
