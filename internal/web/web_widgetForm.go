package web

import (
	"context"
	"errors"
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"

	"github.com/go-while/go-widgets/internal/common"
	"github.com/go-while/go-widgets/internal/models"
)

const (
	msgCreated      = "Widget created successfully!"
	msgUpdated      = "Widget updated successfully!"
	msgSubmitFailed = "Failed to submit widget. Please try again."
)

// formMode is edit when the route carries a widget name
func formMode(c *gin.Context) models.FormMode {
	if c.Param("widgetName") != "" {
		return models.ModeEdit
	}
	return models.ModeCreate
}

// lookupWidget re-reads the collection and finds name case-insensitively.
// A fetch failure is logged and treated as a miss.
func (s *WebServer) lookupWidget(ctx context.Context, name string) (models.Widget, bool) {
	widgets, err := s.API.FetchAllWidgets(ctx)
	if err != nil {
		common.Logf(ctx, logPrefix, "Failed to fetch widgets for %q: %v", name, err)
		return models.Widget{}, false
	}
	return models.FindWidget(widgets, name)
}

func (s *WebServer) formPageData(c *gin.Context, mode models.FormMode, form models.WidgetForm, formError string) WidgetFormPageData {
	data := WidgetFormPageData{
		IsEdit:    mode == models.ModeEdit,
		Form:      form,
		FormError: formError,
	}
	if data.IsEdit {
		data.TemplateData = s.getBaseTemplateData(c, "Edit Widget")
		data.Action = "/edit-widget/" + url.PathEscape(form.Name)
	} else {
		data.TemplateData = s.getBaseTemplateData(c, "Create Widget")
		data.Action = "/create-widget"
	}
	return data
}

// widgetFormPage renders an empty create form or the pre-filled edit form
func (s *WebServer) widgetFormPage(c *gin.Context) {
	mode := formMode(c)
	if mode == models.ModeCreate {
		s.renderTemplate(c, http.StatusOK, "widget_form.html", s.formPageData(c, mode, models.WidgetForm{}, ""))
		return
	}

	existing, ok := s.lookupWidget(c.Request.Context(), c.Param("widgetName"))
	if !ok {
		c.Redirect(http.StatusSeeOther, "/")
		return
	}
	s.renderTemplate(c, http.StatusOK, "widget_form.html", s.formPageData(c, mode, models.FormFromWidget(existing), ""))
}

// widgetFormSubmit validates the form and creates or updates the widget
func (s *WebServer) widgetFormSubmit(c *gin.Context) {
	ctx := c.Request.Context()
	mode := formMode(c)

	form := models.WidgetForm{
		Name:        c.PostForm("name"),
		Description: c.PostForm("description"),
		Price:       c.PostForm("price"),
	}

	var existing models.ExistingFunc
	if mode == models.ModeEdit {
		target, ok := s.lookupWidget(ctx, c.Param("widgetName"))
		if !ok {
			c.Redirect(http.StatusSeeOther, "/")
			return
		}
		// the name is immutable; the disabled field is not submitted
		form.Name = target.Name
	} else {
		existing = func() ([]models.Widget, error) {
			return s.API.FetchAllWidgets(ctx)
		}
	}

	widget, err := form.Validate(mode, existing)
	if err != nil {
		var verr *models.ValidationError
		if errors.As(err, &verr) {
			s.renderTemplate(c, http.StatusUnprocessableEntity, "widget_form.html", s.formPageData(c, mode, form, verr.Message))
			return
		}
		common.Logf(ctx, logPrefix, "Failed to load widgets for uniqueness check: %v", err)
		s.renderTemplate(c, http.StatusBadGateway, "widget_form.html", s.formPageData(c, mode, form, msgSubmitFailed))
		return
	}

	if mode == models.ModeEdit {
		upd := models.WidgetUpdate{Description: &widget.Description, Price: &widget.Price}
		if _, err := s.API.UpdateWidget(ctx, widget.Name, upd); err != nil {
			common.Logf(ctx, logPrefix, "Failed to update widget %q: %v", widget.Name, err)
			s.renderTemplate(c, http.StatusBadGateway, "widget_form.html", s.formPageData(c, mode, form, msgSubmitFailed))
			return
		}
		common.Logf(ctx, logPrefix, "Updated widget %q", widget.Name)
		s.setSuccess(c, msgUpdated)
		c.Redirect(http.StatusSeeOther, "/")
		return
	}

	if _, err := s.API.CreateWidget(ctx, widget); err != nil {
		common.Logf(ctx, logPrefix, "Failed to create widget %q: %v", widget.Name, err)
		s.renderTemplate(c, http.StatusBadGateway, "widget_form.html", s.formPageData(c, mode, form, msgSubmitFailed))
		return
	}
	common.Logf(ctx, logPrefix, "Created widget %q", widget.Name)
	s.setSuccess(c, msgCreated)
	c.Redirect(http.StatusSeeOther, "/")
}
