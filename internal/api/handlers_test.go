package api

import (
	"bufio"
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/terraincognita07/medjournal/internal/services"
)

type quickLogResponse struct {
	Scheduled []struct {
		SourceID  string `json:"source_id"`
		Synthetic bool   `json:"synthetic"`
		Taken     bool   `json:"taken"`
	} `json:"scheduled"`
	AsNeeded []struct {
		MedicationID string `json:"medication_id"`
	} `json:"as_needed"`
	HasMedications bool `json:"has_medications"`
}

func TestHealth(t *testing.T) {
	ta := newTestApp(t)

	response := ta.do(t, http.MethodGet, "/healthz", nil)
	expectStatus(t, response, http.StatusOK)

	payload := map[string]string{}
	decodeJSON(t, response.Body, &payload)
	if payload["status"] != "ok" {
		t.Fatalf("expected status ok, got %q", payload["status"])
	}
}

func TestJournalRoutesRejectBadIdentifiers(t *testing.T) {
	ta := newTestApp(t)

	tests := []struct {
		name    string
		path    string
		status  int
		message string
	}{
		{name: "malformed id", path: "/api/journals/not-a-uuid/medications", status: http.StatusBadRequest, message: "invalid journal id"},
		{name: "unknown journal", path: "/api/journals/" + uuid.NewString() + "/medications", status: http.StatusNotFound, message: "journal not found"},
	}

	for _, testCase := range tests {
		t.Run(testCase.name, func(t *testing.T) {
			response := ta.do(t, http.MethodGet, testCase.path, nil)
			expectStatus(t, response, testCase.status)
			if message := readAPIError(t, response.Body); message != testCase.message {
				t.Fatalf("expected error %q, got %q", testCase.message, message)
			}
		})
	}
}

func TestQuickLogToggleMarksScheduledDoseTaken(t *testing.T) {
	ta := newTestApp(t)
	journalID := ta.createJournal(t)
	medicationID := ta.createMedication(t, journalID, map[string]any{
		"name":           "Sertraline",
		"default_amount": "50",
		"default_unit":   "mg",
	})
	scheduleID := ta.createSchedule(t, medicationID, map[string]any{
		"cadence": "daily",
		"hour":    8,
		"minute":  0,
	})

	quickLogPath := "/api/journals/" + journalID + "/quick-log?date=2024-03-03"
	response := ta.do(t, http.MethodGet, quickLogPath, nil)
	expectStatus(t, response, http.StatusOK)
	snapshot := quickLogResponse{}
	decodeJSON(t, response.Body, &snapshot)
	if len(snapshot.Scheduled) != 1 {
		t.Fatalf("expected one scheduled row, got %d", len(snapshot.Scheduled))
	}
	if snapshot.Scheduled[0].SourceID != scheduleID || snapshot.Scheduled[0].Taken {
		t.Fatalf("expected untaken row for schedule %s, got %+v", scheduleID, snapshot.Scheduled[0])
	}

	response = ta.do(t, http.MethodPost, "/api/journals/"+journalID+"/quick-log/toggle", map[string]any{
		"source_id": scheduleID,
		"date":      "2024-03-03",
		"taken":     true,
	})
	expectStatus(t, response, http.StatusOK)
	toggled := struct {
		Taken  bool `json:"taken"`
		Intake struct {
			Origin     string `json:"origin"`
			ScheduleID string `json:"schedule_id"`
			Amount     string `json:"amount"`
		} `json:"intake"`
	}{}
	decodeJSON(t, response.Body, &toggled)
	if !toggled.Taken || toggled.Intake.Origin != "scheduled" || toggled.Intake.ScheduleID != scheduleID {
		t.Fatalf("expected scheduled intake for %s, got %+v", scheduleID, toggled)
	}
	if toggled.Intake.Amount != "50" {
		t.Fatalf("expected dose to fall back to medication default 50, got %q", toggled.Intake.Amount)
	}

	response = ta.do(t, http.MethodGet, quickLogPath, nil)
	expectStatus(t, response, http.StatusOK)
	snapshot = quickLogResponse{}
	decodeJSON(t, response.Body, &snapshot)
	if !snapshot.Scheduled[0].Taken {
		t.Fatal("expected row to be taken after toggle")
	}

	response = ta.do(t, http.MethodGet, "/api/journals/"+journalID+"/adherence?range=7d", nil)
	expectStatus(t, response, http.StatusOK)
	adherence := struct {
		Range       string                      `json:"range"`
		Medications []services.AdherenceSummary `json:"medications"`
	}{}
	decodeJSON(t, response.Body, &adherence)
	if adherence.Range != "7d" || len(adherence.Medications) != 1 {
		t.Fatalf("expected one 7d summary, got %+v", adherence)
	}
	summary := adherence.Medications[0]
	if summary.ScheduledCount != 7 || summary.TakenCount != 1 {
		t.Fatalf("expected 1 of 7 doses taken, got %d of %d", summary.TakenCount, summary.ScheduledCount)
	}

	response = ta.do(t, http.MethodPost, "/api/journals/"+journalID+"/quick-log/toggle", map[string]any{
		"source_id": scheduleID,
		"date":      "2024-03-03",
		"taken":     false,
	})
	expectStatus(t, response, http.StatusOK)
	cleared := struct {
		Taken bool `json:"taken"`
	}{}
	decodeJSON(t, response.Body, &cleared)
	if cleared.Taken {
		t.Fatal("expected toggle off to clear the intake")
	}
}

func TestQuickLogToggleUnknownSource(t *testing.T) {
	ta := newTestApp(t)
	journalID := ta.createJournal(t)

	response := ta.do(t, http.MethodPost, "/api/journals/"+journalID+"/quick-log/toggle", map[string]any{
		"source_id": uuid.NewString(),
		"date":      "2024-03-03",
		"taken":     true,
	})
	expectStatus(t, response, http.StatusNotFound)
	if message := readAPIError(t, response.Body); message != "schedule not found" {
		t.Fatalf("expected schedule not found, got %q", message)
	}
}

func TestQuickLogRejectsMalformedDate(t *testing.T) {
	ta := newTestApp(t)
	journalID := ta.createJournal(t)

	response := ta.do(t, http.MethodGet, "/api/journals/"+journalID+"/quick-log?date=03/04/2024", nil)
	expectStatus(t, response, http.StatusBadRequest)
	if message := readAPIError(t, response.Body); message != "invalid date" {
		t.Fatalf("expected invalid date, got %q", message)
	}
}

func TestValidationFailuresMapToUnprocessableEntity(t *testing.T) {
	ta := newTestApp(t)
	journalID := ta.createJournal(t)

	response := ta.do(t, http.MethodPost, "/api/journals/"+journalID+"/medications", map[string]any{"name": "  "})
	expectStatus(t, response, http.StatusUnprocessableEntity)

	asNeededID := ta.createMedication(t, journalID, map[string]any{"name": "Ibuprofen", "is_as_needed": true})
	response = ta.do(t, http.MethodPost, "/api/medications/"+asNeededID+"/schedules", map[string]any{"cadence": "daily", "hour": 8})
	expectStatus(t, response, http.StatusUnprocessableEntity)
	if message := readAPIError(t, response.Body); message != services.ErrAsNeededSchedule.Error() {
		t.Fatalf("expected as-needed schedule error, got %q", message)
	}

	dailyID := ta.createMedication(t, journalID, map[string]any{"name": "Vitamin D"})
	response = ta.do(t, http.MethodPost, "/api/medications/"+dailyID+"/schedules", map[string]any{"cadence": "interval", "interval": 2, "hour": 8})
	expectStatus(t, response, http.StatusUnprocessableEntity)

	response = ta.do(t, http.MethodPost, "/api/journals/"+journalID+"/entries", map[string]any{"severity": 11})
	expectStatus(t, response, http.StatusUnprocessableEntity)
}

func TestAsNeededLogUpdatesMedicationDefaults(t *testing.T) {
	ta := newTestApp(t)
	journalID := ta.createJournal(t)
	medicationID := ta.createMedication(t, journalID, map[string]any{
		"name":           "Ibuprofen",
		"is_as_needed":   true,
		"default_amount": "200",
		"default_unit":   "mg",
	})

	response := ta.do(t, http.MethodPost, "/api/medications/"+medicationID+"/as-needed", map[string]any{"amount": "400"})
	expectStatus(t, response, http.StatusCreated)
	logged := struct {
		Intake struct {
			Origin string `json:"origin"`
			Amount string `json:"amount"`
			Unit   string `json:"unit"`
		} `json:"intake"`
		DefaultAmount string `json:"default_amount"`
	}{}
	decodeJSON(t, response.Body, &logged)
	if logged.Intake.Origin != "asNeeded" || logged.Intake.Amount != "400" || logged.Intake.Unit != "mg" {
		t.Fatalf("unexpected as-needed intake: %+v", logged.Intake)
	}
	if logged.DefaultAmount != "400" {
		t.Fatalf("expected default amount to become 400, got %q", logged.DefaultAmount)
	}

	response = ta.do(t, http.MethodGet, "/api/journals/"+journalID+"/medications", nil)
	expectStatus(t, response, http.StatusOK)
	medications := []struct {
		DefaultAmount string `json:"default_amount"`
	}{}
	decodeJSON(t, response.Body, &medications)
	if len(medications) != 1 || medications[0].DefaultAmount != "400" {
		t.Fatalf("expected stored default 400, got %+v", medications)
	}

	response = ta.do(t, http.MethodPost, "/api/medications/"+uuid.NewString()+"/as-needed", map[string]any{})
	expectStatus(t, response, http.StatusNotFound)
}

func TestManualIntakeEditAndDelete(t *testing.T) {
	ta := newTestApp(t)
	journalID := ta.createJournal(t)
	medicationID := ta.createMedication(t, journalID, map[string]any{"name": "Melatonin", "default_unit": "mg"})

	response := ta.do(t, http.MethodPost, "/api/medications/"+medicationID+"/intakes", map[string]any{"amount": "3"})
	expectStatus(t, response, http.StatusBadRequest)

	response = ta.do(t, http.MethodPost, "/api/medications/"+medicationID+"/intakes", map[string]any{
		"amount":    "3",
		"timestamp": "2024-03-02T22:00:00Z",
		"notes":     "late",
	})
	expectStatus(t, response, http.StatusCreated)
	created := struct {
		ID     string `json:"id"`
		Origin string `json:"origin"`
	}{}
	decodeJSON(t, response.Body, &created)
	if created.Origin != "manual" {
		t.Fatalf("expected manual origin, got %q", created.Origin)
	}

	response = ta.do(t, http.MethodPut, "/api/intakes/"+created.ID, map[string]any{"clear_amount": true, "notes": "edited"})
	expectStatus(t, response, http.StatusOK)
	edited := struct {
		Amount *string `json:"amount"`
		Notes  string  `json:"notes"`
		Origin string  `json:"origin"`
	}{}
	decodeJSON(t, response.Body, &edited)
	if edited.Amount != nil || edited.Notes != "edited" || edited.Origin != "manual" {
		t.Fatalf("unexpected edited intake: %+v", edited)
	}

	response = ta.do(t, http.MethodDelete, "/api/intakes/"+created.ID, nil)
	expectStatus(t, response, http.StatusNoContent)
	response = ta.do(t, http.MethodDelete, "/api/intakes/"+created.ID, nil)
	expectStatus(t, response, http.StatusNotFound)
}

func TestScheduleDeleteReturnsNotFoundAfterwards(t *testing.T) {
	ta := newTestApp(t)
	journalID := ta.createJournal(t)
	medicationID := ta.createMedication(t, journalID, map[string]any{"name": "Sertraline"})
	scheduleID := ta.createSchedule(t, medicationID, map[string]any{"cadence": "weekly", "weekdays": []int{1, 4}, "hour": 9})

	response := ta.do(t, http.MethodPut, "/api/schedules/"+scheduleID, map[string]any{"cadence": "weekly", "weekdays": []int{2}, "hour": 10, "minute": 30})
	expectStatus(t, response, http.StatusOK)
	updated := struct {
		DaysOfWeek []int `json:"days_of_week"`
		Hour       int   `json:"hour"`
		Minute     int   `json:"minute"`
	}{}
	decodeJSON(t, response.Body, &updated)
	if len(updated.DaysOfWeek) != 1 || updated.DaysOfWeek[0] != 2 || updated.Hour != 10 || updated.Minute != 30 {
		t.Fatalf("unexpected updated schedule: %+v", updated)
	}

	response = ta.do(t, http.MethodDelete, "/api/schedules/"+scheduleID, nil)
	expectStatus(t, response, http.StatusNoContent)
	response = ta.do(t, http.MethodDelete, "/api/schedules/"+scheduleID, nil)
	expectStatus(t, response, http.StatusNotFound)
}

func TestMedicationWithoutSchedulesShowsSyntheticRow(t *testing.T) {
	ta := newTestApp(t)
	journalID := ta.createJournal(t)
	medicationID := ta.createMedication(t, journalID, map[string]any{"name": "Iron"})

	response := ta.do(t, http.MethodGet, "/api/journals/"+journalID+"/quick-log?date=2024-03-04", nil)
	expectStatus(t, response, http.StatusOK)
	snapshot := quickLogResponse{}
	decodeJSON(t, response.Body, &snapshot)
	if len(snapshot.Scheduled) != 1 || !snapshot.Scheduled[0].Synthetic || snapshot.Scheduled[0].SourceID != medicationID {
		t.Fatalf("expected synthetic row keyed by medication, got %+v", snapshot.Scheduled)
	}

	response = ta.do(t, http.MethodDelete, "/api/medications/"+medicationID, nil)
	expectStatus(t, response, http.StatusNoContent)

	response = ta.do(t, http.MethodGet, "/api/journals/"+journalID+"/quick-log?date=2024-03-04", nil)
	expectStatus(t, response, http.StatusOK)
	snapshot = quickLogResponse{}
	decodeJSON(t, response.Body, &snapshot)
	if snapshot.HasMedications || len(snapshot.Scheduled) != 0 {
		t.Fatalf("expected empty snapshot after delete, got %+v", snapshot)
	}
}

func TestTrendsRangeAndLanguage(t *testing.T) {
	ta := newTestApp(t)
	journalID := ta.createJournal(t)

	response := ta.do(t, http.MethodGet, "/api/journals/"+journalID+"/trends?range=1y", nil)
	expectStatus(t, response, http.StatusBadRequest)

	request := httptest.NewRequest(http.MethodGet, "/api/journals/"+journalID+"/trends?range=30d", nil)
	request.Header.Set("Accept-Language", "ru-RU,ru;q=0.9")
	response, err := ta.app.Test(request, -1)
	if err != nil {
		t.Fatalf("trends request failed: %v", err)
	}
	defer response.Body.Close()
	expectStatus(t, response, http.StatusOK)
	if language := response.Header.Get("Content-Language"); language != "ru" {
		t.Fatalf("expected ru content language, got %q", language)
	}
	report := struct {
		Range string `json:"range"`
	}{}
	decodeJSON(t, response.Body, &report)
	if report.Range != "30d" {
		t.Fatalf("expected 30d range, got %q", report.Range)
	}
}

func TestExportFormats(t *testing.T) {
	ta := newTestApp(t)
	journalID := ta.createJournal(t)
	ta.createMedication(t, journalID, map[string]any{"name": "Sertraline", "default_amount": "50", "default_unit": "mg"})

	tests := []struct {
		format      string
		contentType string
		filename    string
	}{
		{format: "json", contentType: "application/json", filename: "medjournal-export-20240304.json"},
		{format: "csv", contentType: "application/zip", filename: "medjournal-export-20240304.zip"},
		{format: "xlsx", contentType: "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", filename: "medjournal-export-20240304.xlsx"},
	}

	for _, testCase := range tests {
		t.Run(testCase.format, func(t *testing.T) {
			response := ta.do(t, http.MethodGet, "/api/journals/"+journalID+"/export/"+testCase.format, nil)
			expectStatus(t, response, http.StatusOK)
			if contentType := response.Header.Get("Content-Type"); contentType != testCase.contentType {
				t.Fatalf("expected content type %q, got %q", testCase.contentType, contentType)
			}
			disposition := response.Header.Get("Content-Disposition")
			if disposition != "attachment; filename="+testCase.filename {
				t.Fatalf("unexpected content disposition %q", disposition)
			}
			body, err := io.ReadAll(response.Body)
			if err != nil {
				t.Fatalf("read export body: %v", err)
			}
			if len(body) == 0 {
				t.Fatal("expected non-empty export body")
			}
		})
	}

	response := ta.do(t, http.MethodGet, "/api/journals/"+journalID+"/export/pdf", nil)
	expectStatus(t, response, http.StatusBadRequest)
}

func TestMetricsEndpointCountsRequests(t *testing.T) {
	ta := newTestApp(t)
	ta.do(t, http.MethodGet, "/healthz", nil)

	response := ta.do(t, http.MethodGet, "/metrics", nil)
	expectStatus(t, response, http.StatusOK)
	body, err := io.ReadAll(response.Body)
	if err != nil {
		t.Fatalf("read metrics body: %v", err)
	}
	if !strings.Contains(string(body), `medjournal_http_requests_total{method="GET",route="/healthz",status="200"} 1`) {
		t.Fatalf("expected healthz request to be counted, got:\n%s", body)
	}
}

func TestMutationsReachSubscribers(t *testing.T) {
	ta := newTestApp(t)
	journalID := ta.createJournal(t)

	changes, cancel := ta.handler.broadcaster.Subscribe(uuid.MustParse(journalID))
	defer cancel()

	ta.createMedication(t, journalID, map[string]any{"name": "Sertraline"})

	select {
	case change := <-changes:
		if change.Kind != services.ChangeMedications {
			t.Fatalf("expected medications change, got %q", change.Kind)
		}
	case <-time.After(time.Second):
		t.Fatal("expected a change notification")
	}
}

func TestStreamChangesWritesServerSentEvents(t *testing.T) {
	journalID := uuid.New()
	changes := make(chan services.JournalChange, 1)
	changes <- services.JournalChange{JournalID: journalID, Kind: services.ChangeIntakes, At: testNow}
	close(changes)

	var output bytes.Buffer
	writer := bufio.NewWriter(&output)
	if err := streamChanges(writer, changes, time.Hour); err != nil {
		t.Fatalf("stream changes: %v", err)
	}

	frames := strings.Split(strings.TrimSpace(output.String()), "\n\n")
	if len(frames) != 2 || frames[0] != ": connected" {
		t.Fatalf("unexpected frames: %q", frames)
	}
	lines := strings.Split(frames[1], "\n")
	if lines[0] != "event: change" || !strings.HasPrefix(lines[1], "data: ") {
		t.Fatalf("unexpected event frame: %q", frames[1])
	}
	change := services.JournalChange{}
	if err := json.Unmarshal([]byte(strings.TrimPrefix(lines[1], "data: ")), &change); err != nil {
		t.Fatalf("decode event data: %v", err)
	}
	if change.JournalID != journalID || change.Kind != services.ChangeIntakes {
		t.Fatalf("unexpected change: %+v", change)
	}
}

func TestUnknownRouteReturnsJSONNotFound(t *testing.T) {
	ta := newTestApp(t)

	response := ta.do(t, http.MethodGet, "/api/unknown", nil)
	expectStatus(t, response, http.StatusNotFound)
	if message := readAPIError(t, response.Body); message != "not found" {
		t.Fatalf("expected not found, got %q", message)
	}
}
