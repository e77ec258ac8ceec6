package web

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/go-while/go-widgets/internal/apiclient"
	"github.com/go-while/go-widgets/internal/common"
)

const (
	msgDeleted      = "Widget deleted successfully!"
	msgDeleteFailed = "Failed to delete widget (status %d)."
)

// homePage lists all widgets in server order. A failed fetch is logged and
// shown as an empty list.
func (s *WebServer) homePage(c *gin.Context) {
	ctx := c.Request.Context()
	data := WidgetListPageData{
		TemplateData: s.getBaseTemplateData(c, "Widgets"),
	}

	widgets, err := s.API.FetchAllWidgets(ctx)
	if err != nil {
		common.Logf(ctx, logPrefix, "Failed to fetch widgets: %v", err)
	}
	data.Cards = make([]WidgetCard, 0, len(widgets))
	for _, w := range widgets {
		data.Cards = append(data.Cards, newWidgetCard(w))
	}

	s.renderTemplate(c, http.StatusOK, "widget_list.html", data)
}

// deleteWidget removes a widget and redirects back to the list, which re-fetches
func (s *WebServer) deleteWidget(c *gin.Context) {
	ctx := c.Request.Context()
	name := c.Param("widgetName")

	status := s.API.DeleteWidget(ctx, name)
	if !apiclient.DeleteSucceeded(status) {
		common.Logf(ctx, logPrefix, "Failed to delete widget %q: status %d", name, status)
		s.setError(c, fmt.Sprintf(msgDeleteFailed, status))
		c.Redirect(http.StatusSeeOther, "/")
		return
	}

	common.Logf(ctx, logPrefix, "Deleted widget %q", name)
	s.setSuccess(c, msgDeleted)
	c.Redirect(http.StatusSeeOther, "/")
}
