package api

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/terraincognita07/medjournal/internal/db"
	"github.com/terraincognita07/medjournal/internal/i18n"
	"github.com/terraincognita07/medjournal/internal/metrics"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var testNow = time.Date(2024, time.March, 4, 12, 0, 0, 0, time.UTC)

type testApp struct {
	app      *fiber.App
	handler  *Handler
	database *gorm.DB
}

func newTestApp(t *testing.T) testApp {
	t.Helper()

	databasePath := filepath.Join(t.TempDir(), "medjournal-api-test.db")
	database, err := db.OpenSQLite(databasePath, zap.NewNop())
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := database.DB()
	if err != nil {
		t.Fatalf("open sql db: %v", err)
	}
	t.Cleanup(func() {
		_ = sqlDB.Close()
	})

	i18nManager, err := i18n.NewManager("en")
	if err != nil {
		t.Fatalf("init i18n: %v", err)
	}

	registry := prometheus.NewRegistry()
	handler, err := NewHandler(database, Options{
		Location: time.UTC,
		I18n:     i18nManager,
		Metrics:  metrics.New(registry),
		Gatherer: registry,
	})
	if err != nil {
		t.Fatalf("init handler: %v", err)
	}
	handler.WithClock(func() time.Time { return testNow })

	app := fiber.New()
	app.Use(handler.MetricsMiddleware)
	app.Use(handler.LanguageMiddleware)
	RegisterRoutes(app, handler)
	app.Use(handler.NotFound)
	return testApp{app: app, handler: handler, database: database}
}

func (ta testApp) do(t *testing.T, method string, path string, payload any) *http.Response {
	t.Helper()

	var body io.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			t.Fatalf("encode payload: %v", err)
		}
		body = bytes.NewReader(encoded)
	}
	request := httptest.NewRequest(method, path, body)
	if payload != nil {
		request.Header.Set("Content-Type", "application/json")
	}
	request.Header.Set("Accept", "application/json")

	response, err := ta.app.Test(request, -1)
	if err != nil {
		t.Fatalf("%s %s failed: %v", method, path, err)
	}
	t.Cleanup(func() {
		_ = response.Body.Close()
	})
	return response
}

func expectStatus(t *testing.T, response *http.Response, expected int) {
	t.Helper()
	if response.StatusCode != expected {
		raw, _ := io.ReadAll(response.Body)
		t.Fatalf("expected status %d, got %d: %s", expected, response.StatusCode, raw)
	}
}

func decodeJSON(t *testing.T, body io.Reader, target any) {
	t.Helper()
	if err := json.NewDecoder(body).Decode(target); err != nil {
		t.Fatalf("decode response body: %v", err)
	}
}

func readAPIError(t *testing.T, body io.Reader) string {
	t.Helper()

	payload := map[string]string{}
	bytes, err := io.ReadAll(body)
	if err != nil {
		t.Fatalf("read response body: %v", err)
	}
	if err := json.Unmarshal(bytes, &payload); err != nil {
		t.Fatalf("decode response body: %v", err)
	}
	return payload["error"]
}

type createdResource struct {
	ID string `json:"id"`
}

func (ta testApp) createJournal(t *testing.T) string {
	t.Helper()
	response := ta.do(t, http.MethodPost, "/api/journals", map[string]any{"title": "Daily"})
	expectStatus(t, response, http.StatusCreated)
	created := createdResource{}
	decodeJSON(t, response.Body, &created)
	return created.ID
}

func (ta testApp) createMedication(t *testing.T, journalID string, payload map[string]any) string {
	t.Helper()
	response := ta.do(t, http.MethodPost, "/api/journals/"+journalID+"/medications", payload)
	expectStatus(t, response, http.StatusCreated)
	created := createdResource{}
	decodeJSON(t, response.Body, &created)
	return created.ID
}

func (ta testApp) createSchedule(t *testing.T, medicationID string, payload map[string]any) string {
	t.Helper()
	response := ta.do(t, http.MethodPost, "/api/medications/"+medicationID+"/schedules", payload)
	expectStatus(t, response, http.StatusCreated)
	created := createdResource{}
	decodeJSON(t, response.Body, &created)
	return created.ID
}
