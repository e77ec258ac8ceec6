// Package web provides the HTTP server and browser interface for go-widgets
package web

import (
	"context"
	"html/template"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/go-while/go-widgets/internal/config"
	"github.com/go-while/go-widgets/internal/models"
)

const logPrefix = "[WEB]:"

// WidgetAPI is the part of the API client the pages use
type WidgetAPI interface {
	FetchAllWidgets(ctx context.Context) ([]models.Widget, error)
	CreateWidget(ctx context.Context, w models.Widget) (*models.Widget, error)
	UpdateWidget(ctx context.Context, name string, upd models.WidgetUpdate) (*models.Widget, error)
	DeleteWidget(ctx context.Context, name string) int
}

// WebServer represents the web server
type WebServer struct {
	API    WidgetAPI
	Router *gin.Engine
	Config *config.WebConfig

	templates map[string]*template.Template
	srv       *http.Server
}

// TemplateData represents common template data
type TemplateData struct {
	Title       string
	CurrentTime string
	Port        int
	AppVersion  string
	Success     string // flash
	Error       string // flash
}

// WidgetCard is the view model of one widget on the list page
type WidgetCard struct {
	Widget    models.Widget
	DeleteURL string
	EditURL   string
}

// WidgetListPageData represents data for the widget list
type WidgetListPageData struct {
	TemplateData
	Cards []WidgetCard
}

// WidgetFormPageData represents data for the create and edit form
type WidgetFormPageData struct {
	TemplateData
	IsEdit    bool
	Action    string
	Form      models.WidgetForm
	FormError string
}

// ErrorPageData represents data for the error page
type ErrorPageData struct {
	TemplateData
	StatusCode int
	Message    string
}
