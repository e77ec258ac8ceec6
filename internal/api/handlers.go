package api

import (
	"errors"
	"html"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/go-while/go-widgets/internal/common"
	"github.com/go-while/go-widgets/internal/database"
	"github.com/go-while/go-widgets/internal/models"
)

const logPrefix = "[API]:"

// createRequest is the POST /v1/widgets body
type createRequest struct {
	Name        string  `json:"name" binding:"required"`
	Description string  `json:"description" binding:"required"`
	Price       float64 `json:"price" binding:"required"`
}

func errorJSON(c *gin.Context, status int, msg string) {
	c.JSON(status, gin.H{"error": msg})
}

// containsMarkup reports whether s carries HTML beyond plain text
func (s *Server) containsMarkup(v string) bool {
	return html.UnescapeString(s.policy.Sanitize(v)) != v
}

func (s *Server) ping(c *gin.Context) {
	if err := s.DB.Ping(c.Request.Context()); err != nil {
		common.Logf(c.Request.Context(), logPrefix, "ping database: %v", err)
		c.String(http.StatusServiceUnavailable, "database unavailable")
		return
	}
	c.String(http.StatusOK, "pong")
}

func (s *Server) listWidgets(c *gin.Context) {
	widgets, err := s.DB.ListWidgets(c.Request.Context())
	if err != nil {
		common.Logf(c.Request.Context(), logPrefix, "list widgets: %v", err)
		errorJSON(c, http.StatusInternalServerError, "failed to list widgets")
		return
	}
	c.JSON(http.StatusOK, widgets)
}

func (s *Server) getWidget(c *gin.Context) {
	name := c.Param("name")
	w, err := s.DB.GetWidget(c.Request.Context(), name)
	if errors.Is(err, database.ErrWidgetNotFound) {
		errorJSON(c, http.StatusNotFound, "widget not found")
		return
	}
	if err != nil {
		common.Logf(c.Request.Context(), logPrefix, "get widget %q: %v", name, err)
		errorJSON(c, http.StatusInternalServerError, "failed to load widget")
		return
	}
	c.JSON(http.StatusOK, w)
}

func (s *Server) createWidget(c *gin.Context) {
	var req createRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		errorJSON(c, http.StatusBadRequest, "invalid widget: "+err.Error())
		return
	}
	w := models.Widget{
		Name:        req.Name,
		Description: req.Description,
		Price:       req.Price,
	}
	if err := models.ValidateWidget(w); err != nil {
		errorJSON(c, http.StatusBadRequest, err.Error())
		return
	}
	if s.containsMarkup(w.Name) || s.containsMarkup(w.Description) {
		errorJSON(c, http.StatusBadRequest, "HTML markup is not allowed")
		return
	}

	err := s.DB.InsertWidget(c.Request.Context(), w)
	if errors.Is(err, database.ErrWidgetExists) {
		errorJSON(c, http.StatusConflict, "widget already exists")
		return
	}
	if err != nil {
		common.Logf(c.Request.Context(), logPrefix, "create widget %q: %v", w.Name, err)
		errorJSON(c, http.StatusInternalServerError, "failed to create widget")
		return
	}
	common.Logf(c.Request.Context(), logPrefix, "created widget %q", w.Name)
	c.JSON(http.StatusCreated, w)
}

func (s *Server) updateWidget(c *gin.Context) {
	name := c.Param("name")

	var upd models.WidgetUpdate
	if v, ok := c.GetQuery("description"); ok {
		upd.Description = &v
	}
	if v, ok := c.GetQuery("price"); ok {
		price, err := strconv.ParseFloat(v, 64)
		if err != nil {
			errorJSON(c, http.StatusBadRequest, models.MsgPriceInvalid)
			return
		}
		upd.Price = &price
	}
	if upd.IsEmpty() {
		errorJSON(c, http.StatusBadRequest, "nothing to update")
		return
	}
	if err := models.ValidateUpdate(upd); err != nil {
		errorJSON(c, http.StatusBadRequest, err.Error())
		return
	}
	if upd.Description != nil && s.containsMarkup(*upd.Description) {
		errorJSON(c, http.StatusBadRequest, "HTML markup is not allowed")
		return
	}

	w, err := s.DB.UpdateWidget(c.Request.Context(), name, upd)
	if errors.Is(err, database.ErrWidgetNotFound) {
		errorJSON(c, http.StatusNotFound, "widget not found")
		return
	}
	if err != nil {
		common.Logf(c.Request.Context(), logPrefix, "update widget %q: %v", name, err)
		errorJSON(c, http.StatusInternalServerError, "failed to update widget")
		return
	}
	common.Logf(c.Request.Context(), logPrefix, "updated widget %q", w.Name)
	c.JSON(http.StatusOK, w)
}

func (s *Server) deleteWidget(c *gin.Context) {
	name := c.Param("name")
	err := s.DB.DeleteWidget(c.Request.Context(), name)
	if errors.Is(err, database.ErrWidgetNotFound) {
		errorJSON(c, http.StatusNotFound, "widget not found")
		return
	}
	if err != nil {
		common.Logf(c.Request.Context(), logPrefix, "delete widget %q: %v", name, err)
		errorJSON(c, http.StatusInternalServerError, "failed to delete widget")
		return
	}
	common.Logf(c.Request.Context(), logPrefix, "deleted widget %q", name)
	c.Status(http.StatusNoContent)
}
