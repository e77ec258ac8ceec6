package web

import (
	"bytes"
	"fmt"
	"html/template"
	"net/http"
	"net/url"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/go-while/go-widgets/internal/common"
	"github.com/go-while/go-widgets/internal/config"
	"github.com/go-while/go-widgets/internal/models"
)

// pages rendered inside base.html; widget_card.html is shared by all of them
var pageTemplates = []string{"widget_list.html", "widget_form.html", "error.html"}

// parsePageTemplates builds one template set per page from the embedded files
func parsePageTemplates() (map[string]*template.Template, error) {
	out := make(map[string]*template.Template, len(pageTemplates))
	for _, page := range pageTemplates {
		tmpl, err := template.New("base.html").ParseFS(EmbeddedTemplatesFS,
			"templates/base.html", "templates/widget_card.html", "templates/"+page)
		if err != nil {
			return nil, fmt.Errorf("parse template %s: %w", page, err)
		}
		out[page] = tmpl
	}
	return out, nil
}

// GetPort returns the listening port from the config
func (s *WebServer) GetPort() int {
	return s.Config.ListenPort
}

// getBaseTemplateData creates a TemplateData struct and takes any pending flash
func (s *WebServer) getBaseTemplateData(c *gin.Context, title string) TemplateData {
	data := TemplateData{
		Title:       title,
		CurrentTime: time.Now().Format("2006-01-02 15:04:05"),
		Port:        s.GetPort(),
		AppVersion:  config.AppVersion,
	}
	if flashID, err := c.Cookie(flashCookieName); err == nil && flashID != "" {
		data.Success, data.Error = GetAndClearFlash(flashID)
	}
	return data
}

// newWidgetCard builds the card view model with path-escaped action URLs
func newWidgetCard(w models.Widget) WidgetCard {
	escaped := url.PathEscape(w.Name)
	return WidgetCard{
		Widget:    w,
		DeleteURL: "/delete-widget/" + escaped,
		EditURL:   "/edit-widget/" + escaped,
	}
}

// renderError renders an error page
func (s *WebServer) renderError(c *gin.Context, statusCode int, message string, errstring string) {
	common.Logf(c.Request.Context(), logPrefix, "Error %d: %s - %s", statusCode, message, errstring)
	data := ErrorPageData{
		TemplateData: s.getBaseTemplateData(c, "Error"),
		StatusCode:   statusCode,
		Message:      message,
	}
	var buf bytes.Buffer
	if err := s.templates["error.html"].ExecuteTemplate(&buf, "base.html", data); err != nil {
		common.Logf(c.Request.Context(), logPrefix, "Error rendering error template: %v", err)
		c.String(statusCode, "Error: %s", message)
		return
	}
	c.Data(statusCode, "text/html; charset=utf-8", buf.Bytes())
}

// renderTemplate renders a page inside base.html with the given status.
// Output is buffered so a template failure can still turn into an error page.
func (s *WebServer) renderTemplate(c *gin.Context, statusCode int, templateName string, data any) {
	tmpl, ok := s.templates[templateName]
	if !ok {
		s.renderError(c, http.StatusInternalServerError, "Template error", "unknown template "+templateName)
		return
	}
	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "base.html", data); err != nil {
		s.renderError(c, http.StatusInternalServerError, "Template error", err.Error())
		return
	}
	c.Data(statusCode, "text/html; charset=utf-8", buf.Bytes())
}
