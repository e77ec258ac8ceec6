// Package apiclient talks to the widget REST backend.
//
// List and create return errors for any failure. Fetch-by-name and update
// distinguish a missing widget (ErrWidgetNotFound) from other failures
// (*APIError or a transport error); callers that only care about success test
// err != nil. Delete never fails: it reports the HTTP status, or 500 when no
// response was received.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"github.com/go-while/go-widgets/internal/common"
	"github.com/go-while/go-widgets/internal/config"
	"github.com/go-while/go-widgets/internal/models"
)

const (
	widgetsPath = "/v1/widgets"
	tracerName  = "github.com/go-while/go-widgets/internal/apiclient"
	logPrefix   = "[CLIENT]:"

	// maxErrorBody caps how much of an error response is kept
	maxErrorBody = 4096
)

// ErrWidgetNotFound is returned when the backend answers 404
var ErrWidgetNotFound = errors.New("widget not found")

// APIError is a non-2xx response from the backend
type APIError struct {
	Method     string
	URL        string
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s %s: status %d: %s", e.Method, e.URL, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("%s %s: status %d", e.Method, e.URL, e.StatusCode)
}

// Client is safe for concurrent use
type Client struct {
	baseURL    string
	httpClient *http.Client
	tracer     trace.Tracer
}

// Option customizes a Client
type Option func(*Client)

// WithHTTPClient replaces the underlying *http.Client
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithTracerProvider sets the provider used for client spans
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(c *Client) { c.tracer = tp.Tracer(tracerName) }
}

// New builds a client for the backend described by cfg
func New(cfg config.APIConfig, opts ...Option) (*Client, error) {
	u, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse api base url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("api base url %q: scheme must be http or https", cfg.BaseURL)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("api base url %q: missing host", cfg.BaseURL)
	}

	c := &Client{
		baseURL:    strings.TrimRight(u.String(), "/"),
		httpClient: &http.Client{Timeout: cfg.Timeout},
		tracer:     otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// BaseURL returns the normalized backend address
func (c *Client) BaseURL() string {
	return c.baseURL
}

// DeleteSucceeded reports whether a DeleteWidget status means the widget is gone
func DeleteSucceeded(status int) bool {
	return status >= 200 && status < 300
}

// FetchAllWidgets returns all widgets in server order
func (c *Client) FetchAllWidgets(ctx context.Context) ([]models.Widget, error) {
	var widgets []models.Widget
	if err := c.doJSON(ctx, "FetchAllWidgets", http.MethodGet, c.collectionURL(), nil, &widgets); err != nil {
		return nil, err
	}
	if widgets == nil {
		widgets = []models.Widget{}
	}
	return widgets, nil
}

// CreateWidget submits one widget and returns the backend's copy
func (c *Client) CreateWidget(ctx context.Context, w models.Widget) (*models.Widget, error) {
	body, err := json.Marshal(w)
	if err != nil {
		return nil, fmt.Errorf("encode widget: %w", err)
	}
	var created models.Widget
	if err := c.doJSON(ctx, "CreateWidget", http.MethodPost, c.collectionURL(), body, &created); err != nil {
		return nil, err
	}
	return &created, nil
}

// FetchWidgetByName returns the named widget or ErrWidgetNotFound
func (c *Client) FetchWidgetByName(ctx context.Context, name string) (*models.Widget, error) {
	var w models.Widget
	if err := c.doJSON(ctx, "FetchWidgetByName", http.MethodGet, c.widgetURL(name), nil, &w); err != nil {
		return nil, notFound(err)
	}
	return &w, nil
}

// UpdateWidget sends only the fields set in upd as query parameters
func (c *Client) UpdateWidget(ctx context.Context, name string, upd models.WidgetUpdate) (*models.Widget, error) {
	target := c.widgetURL(name)
	if q := updateQuery(upd); q != "" {
		target += "?" + q
	}
	var w models.Widget
	if err := c.doJSON(ctx, "UpdateWidget", http.MethodPut, target, nil, &w); err != nil {
		return nil, notFound(err)
	}
	return &w, nil
}

// DeleteWidget removes the named widget and returns the response status.
// 204 means success; error responses return their status; no response at all
// returns 500.
func (c *Client) DeleteWidget(ctx context.Context, name string) int {
	common.Logf(ctx, logPrefix, "Delete invoked for widget: %s", name)
	resp, err := c.do(ctx, "DeleteWidget", http.MethodDelete, c.widgetURL(name), nil)
	if err != nil {
		common.Logf(ctx, logPrefix, "Error deleting widget %q: %v", name, err)
		return http.StatusInternalServerError
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxErrorBody))
	if !DeleteSucceeded(resp.StatusCode) {
		common.Logf(ctx, logPrefix, "Error deleting widget %q: status %d", name, resp.StatusCode)
	}
	return resp.StatusCode
}

func (c *Client) collectionURL() string {
	return c.baseURL + widgetsPath
}

func (c *Client) widgetURL(name string) string {
	return c.baseURL + widgetsPath + "/" + url.PathEscape(name)
}

func updateQuery(upd models.WidgetUpdate) string {
	q := url.Values{}
	if upd.Description != nil {
		q.Set("description", *upd.Description)
	}
	if upd.Price != nil {
		q.Set("price", strconv.FormatFloat(*upd.Price, 'f', -1, 64))
	}
	return q.Encode()
}

func notFound(err error) error {
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound {
		return fmt.Errorf("%w: %w", ErrWidgetNotFound, apiErr)
	}
	return err
}

// doJSON performs the request and decodes a 2xx JSON body into out
func (c *Client) doJSON(ctx context.Context, op, method, target string, body []byte, out any) error {
	resp, err := c.do(ctx, op, method, target, body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return readAPIError(method, target, resp)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%s %s: decode response: %w", method, target, err)
	}
	return nil
}

// do sends one request inside a client span. It returns transport errors only.
func (c *Client) do(ctx context.Context, op, method, target string, body []byte) (*http.Response, error) {
	ctx, span := c.tracer.Start(ctx, "apiclient."+op,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("http.method", method),
			attribute.String("http.url", target),
		),
	)
	defer span.End()

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	requestID := common.RequestIDFromContext(ctx)
	if requestID == "" {
		requestID = common.NewRequestID()
	}
	req.Header.Set(common.HeaderRequestID, requestID)
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(req.Header))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("%s %s: %w", method, target, err)
	}
	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))
	if resp.StatusCode >= 400 {
		span.SetStatus(codes.Error, http.StatusText(resp.StatusCode))
	}
	return resp, nil
}

func readAPIError(method, target string, resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	apiErr := &APIError{Method: method, URL: target, StatusCode: resp.StatusCode}
	var payload struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(raw, &payload) == nil && payload.Error != "" {
		apiErr.Message = payload.Error
	} else {
		apiErr.Message = strings.TrimSpace(string(raw))
	}
	return apiErr
}
