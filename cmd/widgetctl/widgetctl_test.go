package main

import (
	"bytes"
	"encoding/json"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/go-while/go-widgets/internal/api"
	"github.com/go-while/go-widgets/internal/config"
	"github.com/go-while/go-widgets/internal/database"
	"github.com/go-while/go-widgets/internal/models"
)

func newBackend(t *testing.T) string {
	t.Helper()
	gin.SetMode(gin.TestMode)
	db, err := database.OpenDatabase(filepath.Join(t.TempDir(), "widgets.sq3"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Shutdown() })

	backend, err := api.NewServer(db, &config.BackendConfig{ListenPort: config.DefaultBackendPort})
	require.NoError(t, err)
	ts := httptest.NewServer(backend.Router)
	t.Cleanup(ts.Close)
	return ts.URL
}

// run executes widgetctl non-interactively against baseURL
func run(t *testing.T, baseURL string, args ...string) (string, error) {
	t.Helper()
	cmd := newCLICmd(&cli{interactive: func() bool { return false }})
	var out, stderr bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&stderr)
	cmd.SetArgs(append([]string{"--api", baseURL}, args...))
	err := cmd.Execute()
	return out.String(), err
}

func TestCreateListGetUpdateDelete(t *testing.T) {
	baseURL := newBackend(t)

	out, err := run(t, baseURL, "create", "--name", "Gear Box", "--description", "A sturdy gear box", "--price", "12.50", "-o", "json")
	require.NoError(t, err)
	var created models.Widget
	require.NoError(t, json.Unmarshal([]byte(out), &created))
	require.Equal(t, models.Widget{Name: "Gear Box", Description: "A sturdy gear box", Price: 12.5}, created)

	_, err = run(t, baseURL, "create", "--name", "gear box", "--description", "Same name again", "--price", "3")
	require.EqualError(t, err, models.MsgNameTaken)

	out, err = run(t, baseURL, "list", "-o", "yaml")
	require.NoError(t, err)
	var listed []models.Widget
	require.NoError(t, yaml.Unmarshal([]byte(out), &listed))
	require.Equal(t, []models.Widget{created}, listed)

	out, err = run(t, baseURL, "list")
	require.NoError(t, err)
	require.Contains(t, out, "NAME")
	require.Contains(t, out, "$12.5")

	out, err = run(t, baseURL, "update", "Gear Box", "--price", "14", "-o", "json")
	require.NoError(t, err)
	require.Contains(t, out, `"price": 14`)

	_, err = run(t, baseURL, "get", "Gear Bx")
	require.EqualError(t, err, `widget "Gear Bx" not found, did you mean "Gear Box"?`)

	out, err = run(t, baseURL, "delete", "Gear Box", "--yes")
	require.NoError(t, err)
	require.Contains(t, out, `Widget "Gear Box" deleted`)

	_, err = run(t, baseURL, "delete", "Gear Box", "--yes")
	require.EqualError(t, err, `failed to delete widget "Gear Box" (status 404)`)
}

func TestCreateValidatesBeforeCalling(t *testing.T) {
	_, err := run(t, "http://127.0.0.1:1", "create", "--name", "ab", "--description", "valid text", "--price", "10")
	require.EqualError(t, err, models.MsgNameLength)

	_, err = run(t, "http://127.0.0.1:1", "create", "--name", "Widget")
	require.EqualError(t, err, models.MsgFieldsRequired)
}

func TestUpdateRequiresAField(t *testing.T) {
	_, err := run(t, "http://127.0.0.1:1", "update", "Widget")
	require.ErrorContains(t, err, "nothing to update")

	_, err = run(t, "http://127.0.0.1:1", "update", "Widget", "--price", "abc")
	require.EqualError(t, err, models.MsgPriceInvalid)
}

func TestUnknownOutputFormat(t *testing.T) {
	_, err := run(t, "http://127.0.0.1:1", "list", "-o", "xml")
	require.ErrorContains(t, err, "unknown output format")
}

func TestSuggestNames(t *testing.T) {
	widgets := []models.Widget{{Name: "Sprocket"}, {Name: "Socket"}, {Name: "Gear Box"}}
	require.Equal(t, []string{"Socket", "Sprocket"}, suggestNames(widgets, "sockets"))
	require.Empty(t, suggestNames(widgets, "Flux Capacitor"))
}

func TestWriteTableTruncatesDescriptions(t *testing.T) {
	var buf bytes.Buffer
	long := strings.Repeat("x", 100)
	require.NoError(t, writeTable(&buf, []models.Widget{{Name: "Lever", Description: long, Price: 8}}))
	require.Contains(t, buf.String(), strings.Repeat("x", maxTableDescription-3)+"...")
	require.NotContains(t, buf.String(), long)
}

func TestWriteTableAlignsColumns(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeTable(&buf, []models.Widget{
		{Name: "Lever", Description: "a long lever", Price: 8},
		{Name: "Flux Capacitor", Description: "time travel part", Price: 19999.99},
	}))
	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	require.Len(t, lines, 3)
	col := strings.Index(lines[0], "PRICE")
	require.Positive(t, col)
	require.Equal(t, col, strings.Index(lines[1], "$8"))
	require.Equal(t, col, strings.Index(lines[2], "$19999.99"))
}
