package models

import (
	"regexp"
	"strconv"
)

// Messages shown on the widget form
const (
	MsgFieldsRequired    = "All fields are required."
	MsgNameLength        = "Name must be between 3 and 100 characters."
	MsgNameTaken         = "Widget name must be unique."
	MsgDescriptionLength = "Description must be between 5 and 1000 characters."
	MsgPriceInvalid      = "Price must be a number between 1 and 20,000 with up to two decimal places."
)

var pricePattern = regexp.MustCompile(`^\d+(\.\d{1,2})?$`)

// FormMode selects create or edit behaviour of the widget form
type FormMode int

const (
	ModeCreate FormMode = iota
	ModeEdit
)

func (m FormMode) String() string {
	if m == ModeEdit {
		return "edit"
	}
	return "create"
}

// ValidationError is a user-facing form error
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// WidgetForm holds the raw submitted form values
type WidgetForm struct {
	Name        string
	Description string
	Price       string
}

// FormFromWidget fills a form with an existing widget, used to pre-populate edits
func FormFromWidget(w Widget) WidgetForm {
	return WidgetForm{
		Name:        w.Name,
		Description: w.Description,
		Price:       w.PriceString(),
	}
}

// ExistingFunc loads the current widget collection for the uniqueness check
type ExistingFunc func() ([]Widget, error)

// Validate runs the checks in order and stops at the first failure, which is
// returned as a *ValidationError. Values are checked and kept exactly as
// submitted. In create mode existing is consulted only after the name itself
// is well formed; an error from it is returned as is.
func (f WidgetForm) Validate(mode FormMode, existing ExistingFunc) (Widget, error) {
	name, description, price := f.Name, f.Description, f.Price

	if name == "" || description == "" || price == "" {
		return Widget{}, &ValidationError{Message: MsgFieldsRequired}
	}

	if n := charLen(name); n < NameMinLen || n > NameMaxLen {
		return Widget{}, &ValidationError{Field: "name", Message: MsgNameLength}
	}

	if mode == ModeCreate && existing != nil {
		widgets, err := existing()
		if err != nil {
			return Widget{}, err
		}
		if NameTaken(widgets, name) {
			return Widget{}, &ValidationError{Field: "name", Message: MsgNameTaken}
		}
	}

	if n := charLen(description); n < DescriptionMinLen || n > DescriptionMaxLen {
		return Widget{}, &ValidationError{Field: "description", Message: MsgDescriptionLength}
	}

	value, ok := ParsePrice(price)
	if !ok {
		return Widget{}, &ValidationError{Field: "price", Message: MsgPriceInvalid}
	}

	return Widget{Name: name, Description: description, Price: value}, nil
}

// ParsePrice accepts digits with at most two decimals within [PriceMin, PriceMax]
func ParsePrice(s string) (float64, bool) {
	if !pricePattern.MatchString(s) {
		return 0, false
	}
	value, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	if !PriceInRange(value) {
		return 0, false
	}
	return value, true
}

// PriceInRange checks the inclusive price bounds
func PriceInRange(v float64) bool {
	return v >= PriceMin && v <= PriceMax
}

// HasAtMostTwoDecimals reports whether v needs no more than two decimal places
func HasAtMostTwoDecimals(v float64) bool {
	return pricePattern.MatchString(strconv.FormatFloat(v, 'f', -1, 64))
}

// ValidateWidget checks a decoded widget against the same limits as the form,
// without the uniqueness rule. Used by the reference backend.
func ValidateWidget(w Widget) error {
	if n := charLen(w.Name); n < NameMinLen || n > NameMaxLen {
		return &ValidationError{Field: "name", Message: MsgNameLength}
	}
	if n := charLen(w.Description); n < DescriptionMinLen || n > DescriptionMaxLen {
		return &ValidationError{Field: "description", Message: MsgDescriptionLength}
	}
	if !PriceInRange(w.Price) || !HasAtMostTwoDecimals(w.Price) {
		return &ValidationError{Field: "price", Message: MsgPriceInvalid}
	}
	return nil
}

// ValidateUpdate checks the fields present in a partial update
func ValidateUpdate(u WidgetUpdate) error {
	if u.Description != nil {
		if n := charLen(*u.Description); n < DescriptionMinLen || n > DescriptionMaxLen {
			return &ValidationError{Field: "description", Message: MsgDescriptionLength}
		}
	}
	if u.Price != nil && (!PriceInRange(*u.Price) || !HasAtMostTwoDecimals(*u.Price)) {
		return &ValidationError{Field: "price", Message: MsgPriceInvalid}
	}
	return nil
}
