package http

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"studentrisk/risk"
)

type fakeModel struct {
	label int
	prob  float64
}

func (f *fakeModel) Predict(features []float64) (int, float64, error) {
	return f.label, f.prob, nil
}

type memStore struct {
	records []risk.Record
}

func (m *memStore) SaveAssessment(rec *risk.Record) error {
	rec.ID = int64(len(m.records) + 1)
	m.records = append(m.records, *rec)
	return nil
}

func (m *memStore) ListAssessments() ([]risk.Record, error) {
	return append([]risk.Record(nil), m.records...), nil
}

func newTestMux(model *fakeModel) (*http.ServeMux, *memStore) {
	store := &memStore{}
	var classifier interface {
		Predict([]float64) (int, float64, error)
	}
	if model != nil {
		classifier = model
	}
	assessor := risk.NewAssessor(classifier, store, nil, nil)
	mux := http.NewServeMux()
	RegisterHandlers(mux, assessor, store, nil)
	return mux, store
}

func TestHandleHealth(t *testing.T) {
	mux, _ := newTestMux(&fakeModel{prob: 0.5})

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var payload map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &payload); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if payload["status"] != "healthy" || payload["model_loaded"] != true {
		t.Fatalf("unexpected payload: %v", payload)
	}
}

func TestHandleHealthWithoutModel(t *testing.T) {
	mux, _ := newTestMux(nil)

	w := httptest.NewRecorder()
	mux.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var payload map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &payload); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if payload["model_loaded"] != false {
		t.Fatalf("expected model_loaded false, got %v", payload)
	}
}

func TestHandlePredict(t *testing.T) {
	mux, store := newTestMux(&fakeModel{label: 1, prob: 0.75})

	body := `{"name":"Ada","previousGPA":8.5,"attendance":92}`
	req := httptest.NewRequest(http.MethodPost, "/predict", strings.NewReader(body))
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var payload map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &payload); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if payload["riskLevel"] != "Low" {
		t.Fatalf("unexpected riskLevel: %v", payload["riskLevel"])
	}
	if payload["passFailProb"].(float64) != 0.75 || payload["confidence"].(float64) != 0.75 {
		t.Fatalf("unexpected probability fields: %v", payload)
	}
	if payload["predictedGrade"].(float64) != 3.0 {
		t.Fatalf("unexpected predictedGrade: %v", payload["predictedGrade"])
	}

	if len(store.records) != 1 {
		t.Fatalf("expected one stored record, got %d", len(store.records))
	}
	if store.records[0].Name != "Ada" || store.records[0].RiskLevel != "Low" {
		t.Fatalf("unexpected stored record: %+v", store.records[0])
	}
}

func TestHandlePredictEmptyBodyScoresZeroVector(t *testing.T) {
	mux, store := newTestMux(&fakeModel{label: 0, prob: 0.1})

	req := httptest.NewRequest(http.MethodPost, "/predict", strings.NewReader(`{}`))
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var payload map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &payload); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if payload["riskLevel"] != "High" {
		t.Fatalf("unexpected riskLevel: %v", payload["riskLevel"])
	}

	rec := store.records[0]
	if rec.PreviousGPA != 0 || rec.Attendance != 0 || rec.LMSActivity != 0 {
		t.Fatalf("expected all-zero features, got %+v", rec)
	}
	if rec.Name != "Unknown" {
		t.Fatalf("expected default name, got %q", rec.Name)
	}
}

func TestHandlePredictValidationFailure(t *testing.T) {
	mux, store := newTestMux(&fakeModel{prob: 0.5})

	req := httptest.NewRequest(http.MethodPost, "/predict", strings.NewReader(`{"previousGPA":"excellent"}`))
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
	var payload map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &payload); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if payload["error"] == "" {
		t.Fatal("expected error message")
	}
	if len(store.records) != 0 {
		t.Fatal("validation failure must not persist a record")
	}
}

func TestHandlePredictWithoutModel(t *testing.T) {
	mux, store := newTestMux(nil)

	req := httptest.NewRequest(http.MethodPost, "/predict", strings.NewReader(`{}`))
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)

	if w.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", w.Code)
	}
	var payload map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &payload); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if payload["error"] != "Model not loaded" {
		t.Fatalf("unexpected error body: %v", payload)
	}
	if len(store.records) != 0 {
		t.Fatal("no record should exist")
	}
}

func TestHandlePredictOversizedBody(t *testing.T) {
	mux, store := newTestMux(&fakeModel{label: 1, prob: 0.75})
	handler := RequestSizeMiddleware(64)(mux)

	body := `{"name":"` + strings.Repeat("x", 256) + `"}`
	req := httptest.NewRequest(http.MethodPost, "/predict", strings.NewReader(body))
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if w.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("expected 413, got %d", w.Code)
	}
	var payload map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &payload); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if payload["error"] != "request body too large" {
		t.Fatalf("unexpected error body: %v", payload)
	}
	if len(store.records) != 0 {
		t.Fatal("oversized request must not persist a record")
	}
}

func TestHandleStudentsRoundsAndGrows(t *testing.T) {
	mux, store := newTestMux(&fakeModel{label: 1, prob: 0.666})

	listLen := func() []map[string]interface{} {
		w := httptest.NewRecorder()
		mux.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/students", nil))
		if w.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", w.Code)
		}
		var list []map[string]interface{}
		if err := json.Unmarshal(w.Body.Bytes(), &list); err != nil {
			t.Fatalf("invalid json: %v", err)
		}
		return list
	}

	if len(listLen()) != 0 {
		t.Fatal("expected empty list before any prediction")
	}

	w := httptest.NewRecorder()
	mux.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/predict", strings.NewReader(`{"name":"Bo"}`)))
	if w.Code != http.StatusOK {
		t.Fatalf("predict failed: %d", w.Code)
	}

	list := listLen()
	if len(list) != 1 {
		t.Fatalf("expected one record after predict, got %d", len(list))
	}
	entry := list[0]
	if entry["passFailProb"].(float64) != 0.67 {
		t.Fatalf("expected rounded passFailProb 0.67, got %v", entry["passFailProb"])
	}
	if entry["predictedGrade"].(float64) != 2.66 {
		t.Fatalf("expected rounded predictedGrade 2.66, got %v", entry["predictedGrade"])
	}
	if entry["riskLevel"] != "Low" || entry["name"] != "Bo" {
		t.Fatalf("unexpected entry: %v", entry)
	}

	// Stored values stay unrounded.
	if store.records[0].PassFailProb != 0.666 {
		t.Fatalf("stored value should be unrounded, got %f", store.records[0].PassFailProb)
	}
}
