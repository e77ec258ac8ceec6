// Package models defines core data structures for go-widgets
package models

import (
	"strconv"
	"unicode/utf8"
)

// Field limits shared by the web forms and the reference backend
const (
	NameMinLen        = 3
	NameMaxLen        = 100
	DescriptionMinLen = 5
	DescriptionMaxLen = 1000
	PriceMin          = 1.0
	PriceMax          = 20000.0
)

// Widget is the only managed entity. Name is the identifier and never changes
// after creation.
type Widget struct {
	Name        string  `json:"name" db:"name"`
	Description string  `json:"description" db:"description"`
	Price       float64 `json:"price" db:"price"`
}

// PriceString renders the price the way it was typed, without trailing zeros
func (w Widget) PriceString() string {
	return strconv.FormatFloat(w.Price, 'f', -1, 64)
}

// WidgetUpdate carries the optional fields of a partial update. Nil fields are
// left untouched.
type WidgetUpdate struct {
	Description *string  `json:"description,omitempty"`
	Price       *float64 `json:"price,omitempty"`
}

// IsEmpty reports whether the update changes nothing
func (u WidgetUpdate) IsEmpty() bool {
	return u.Description == nil && u.Price == nil
}

// FindWidget locates a widget by name, ignoring case
func FindWidget(widgets []Widget, name string) (Widget, bool) {
	key := NormalizeName(name)
	for _, w := range widgets {
		if NormalizeName(w.Name) == key {
			return w, true
		}
	}
	return Widget{}, false
}

// NameTaken reports whether name collides with any widget, ignoring case
func NameTaken(widgets []Widget, name string) bool {
	_, ok := FindWidget(widgets, name)
	return ok
}

// charLen counts characters, not bytes
func charLen(s string) int {
	return utf8.RuneCountInString(s)
}
