package apiclient

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/go-while/go-widgets/internal/common"
	"github.com/go-while/go-widgets/internal/config"
	"github.com/go-while/go-widgets/internal/models"
)

type recordedRequest struct {
	Method    string
	Path      string
	RawPath   string
	Query     map[string][]string
	Body      string
	RequestID string
}

// backendStub records every request and answers with the configured handler
type backendStub struct {
	mu       sync.Mutex
	requests []recordedRequest
	handler  http.HandlerFunc
}

func (b *backendStub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	b.mu.Lock()
	b.requests = append(b.requests, recordedRequest{
		Method:    r.Method,
		Path:      r.URL.Path,
		RawPath:   r.URL.EscapedPath(),
		Query:     r.URL.Query(),
		Body:      string(body),
		RequestID: r.Header.Get(common.HeaderRequestID),
	})
	b.mu.Unlock()
	b.handler(w, r)
}

func (b *backendStub) last(t *testing.T) recordedRequest {
	t.Helper()
	b.mu.Lock()
	defer b.mu.Unlock()
	require.NotEmpty(t, b.requests)
	return b.requests[len(b.requests)-1]
}

func newTestClient(t *testing.T, handler http.HandlerFunc, opts ...Option) (*Client, *backendStub) {
	t.Helper()
	stub := &backendStub{handler: handler}
	srv := httptest.NewServer(stub)
	t.Cleanup(srv.Close)

	c, err := New(config.APIConfig{BaseURL: srv.URL + "/"}, opts...)
	require.NoError(t, err)
	return c, stub
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func TestNewRejectsBadBaseURL(t *testing.T) {
	for _, raw := range []string{"", "localhost:9000", "ftp://host", "http://"} {
		_, err := New(config.APIConfig{BaseURL: raw})
		require.Error(t, err, "base url %q", raw)
	}
}

func TestNewNormalizesBaseURL(t *testing.T) {
	c, err := New(config.APIConfig{BaseURL: "http://backend.internal:9000/"})
	require.NoError(t, err)
	require.Equal(t, "http://backend.internal:9000", c.BaseURL())
}

func TestFetchAllWidgetsPreservesOrder(t *testing.T) {
	want := []models.Widget{
		{Name: "Zeta", Description: "last letter", Price: 2},
		{Name: "Alpha", Description: "first letter", Price: 1.5},
	}
	c, stub := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, want)
	})

	got, err := c.FetchAllWidgets(context.Background())
	require.NoError(t, err)
	require.Equal(t, want, got)

	req := stub.last(t)
	require.Equal(t, http.MethodGet, req.Method)
	require.Equal(t, "/v1/widgets", req.Path)
	require.NotEmpty(t, req.RequestID)
}

func TestFetchAllWidgetsEmptyBody(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, nil)
	})
	got, err := c.FetchAllWidgets(context.Background())
	require.NoError(t, err)
	require.NotNil(t, got)
	require.Empty(t, got)
}

func TestFetchAllWidgetsServerError(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "disk on fire"})
	})
	_, err := c.FetchAllWidgets(context.Background())
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, http.StatusInternalServerError, apiErr.StatusCode)
	require.Equal(t, "disk on fire", apiErr.Message)
}

func TestFetchAllWidgetsForwardsRequestID(t *testing.T) {
	c, stub := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, []models.Widget{})
	})
	ctx := common.WithRequestID(context.Background(), "0b7a5c1e-4f3e-4a55-9d8e-9d7d4d2f3b11")
	_, err := c.FetchAllWidgets(ctx)
	require.NoError(t, err)
	require.Equal(t, "0b7a5c1e-4f3e-4a55-9d8e-9d7d4d2f3b11", stub.last(t).RequestID)
}

func TestCreateWidgetPostsJSON(t *testing.T) {
	widget := models.Widget{Name: "B", Description: "desc of b", Price: 12.34}
	c, stub := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusCreated, widget)
	})
	created, err := c.CreateWidget(context.Background(), widget)
	require.NoError(t, err)

	req := stub.last(t)
	require.Equal(t, http.MethodPost, req.Method)
	require.Equal(t, "/v1/widgets", req.Path)
	require.JSONEq(t, `{"name":"B","description":"desc of b","price":12.34}`, req.Body)
	require.Equal(t, widget, *created)
}

func TestCreateWidgetConflict(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusConflict, map[string]string{"error": "widget already exists"})
	})
	_, err := c.CreateWidget(context.Background(), models.Widget{Name: "Dup", Description: "dupe desc", Price: 3})
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, http.StatusConflict, apiErr.StatusCode)
}

func TestFetchWidgetByName(t *testing.T) {
	c, stub := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/v1/widgets/Gear Box" {
			writeJSON(w, http.StatusOK, models.Widget{Name: "Gear Box", Description: "many gears", Price: 99})
			return
		}
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "widget not found"})
	})

	w, err := c.FetchWidgetByName(context.Background(), "Gear Box")
	require.NoError(t, err)
	require.Equal(t, "Gear Box", w.Name)
	require.Equal(t, "/v1/widgets/Gear%20Box", stub.last(t).RawPath)

	_, err = c.FetchWidgetByName(context.Background(), "missing")
	require.ErrorIs(t, err, ErrWidgetNotFound)
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, http.StatusNotFound, apiErr.StatusCode)
}

func TestFetchWidgetByNameServerErrorIsNotNotFound(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})
	_, err := c.FetchWidgetByName(context.Background(), "anything")
	require.Error(t, err)
	require.False(t, errors.Is(err, ErrWidgetNotFound))
}

func TestUpdateWidgetSendsOnlyProvidedFields(t *testing.T) {
	c, stub := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, models.Widget{Name: "A", Description: "d2", Price: 1.5})
	})

	desc := "new description"
	_, err := c.UpdateWidget(context.Background(), "A", models.WidgetUpdate{Description: &desc})
	require.NoError(t, err)
	req := stub.last(t)
	require.Equal(t, http.MethodPut, req.Method)
	require.Equal(t, "/v1/widgets/A", req.Path)
	require.Equal(t, map[string][]string{"description": {"new description"}}, req.Query)
	require.Empty(t, req.Body)

	price := 19.99
	_, err = c.UpdateWidget(context.Background(), "A", models.WidgetUpdate{Description: &desc, Price: &price})
	require.NoError(t, err)
	require.Equal(t, map[string][]string{
		"description": {"new description"},
		"price":       {"19.99"},
	}, stub.last(t).Query)
}

func TestUpdateWidgetNotFound(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "widget not found"})
	})
	price := 2.0
	w, err := c.UpdateWidget(context.Background(), "ghost", models.WidgetUpdate{Price: &price})
	require.Nil(t, w)
	require.ErrorIs(t, err, ErrWidgetNotFound)
}

func TestDeleteWidgetStatus(t *testing.T) {
	c, stub := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/v1/widgets/a/b" {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "widget not found"})
	})

	status := c.DeleteWidget(context.Background(), "a/b")
	require.Equal(t, http.StatusNoContent, status)
	require.True(t, DeleteSucceeded(status))
	require.Equal(t, "/v1/widgets/a%2Fb", stub.last(t).RawPath)

	status = c.DeleteWidget(context.Background(), "missing")
	require.Equal(t, http.StatusNotFound, status)
	require.False(t, DeleteSucceeded(status))
}

func TestDeleteWidgetTransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	base := srv.URL
	srv.Close()

	c, err := New(config.APIConfig{BaseURL: base})
	require.NoError(t, err)
	require.Equal(t, http.StatusInternalServerError, c.DeleteWidget(context.Background(), "A"))
}

func TestClientRecordsSpans(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })

	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}, WithTracerProvider(tp))

	c.DeleteWidget(context.Background(), "A")

	spans := recorder.Ended()
	require.Len(t, spans, 1)
	require.Equal(t, "apiclient.DeleteWidget", spans[0].Name())
	var status int64
	for _, kv := range spans[0].Attributes() {
		if kv.Key == "http.status_code" {
			status = kv.Value.AsInt64()
		}
	}
	require.Equal(t, int64(http.StatusNotFound), status)
}
