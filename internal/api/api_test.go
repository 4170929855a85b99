package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"vitals_go/internal/models"
	"vitals_go/internal/redis"
	"vitals_go/internal/sensor"
)

type fakeSensor struct {
	status   models.SensorStatus
	last     *models.VitalsResult
	resetErr error
	resets   int
}

func (f *fakeSensor) GetStatus() models.SensorStatus     { return f.status }
func (f *fakeSensor) GetLastVitals() *models.VitalsResult { return f.last }
func (f *fakeSensor) Stats() sensor.ServiceStats {
	return sensor.ServiceStats{SessionID: "s1", Source: "simulator", Running: true}
}
func (f *fakeSensor) Reset(ctx context.Context) error {
	f.resets++
	return f.resetErr
}

type fakeStore struct {
	online  bool
	current *models.VitalsResult
	history []models.HistoryPoint
	changes []models.VitalsChange
	since   time.Time
	limit   int
}

func (f *fakeStore) IsConnected() bool { return f.online }
func (f *fakeStore) GetCurrentVitals() (*models.VitalsResult, error) {
	if f.current == nil {
		return nil, errors.New("vazio")
	}
	return f.current, nil
}
func (f *fakeStore) GetHistory(metric string, since time.Time) ([]models.HistoryPoint, error) {
	f.since = since
	return f.history, nil
}
func (f *fakeStore) GetChanges(limit int) ([]models.VitalsChange, error) {
	f.limit = limit
	return f.changes, nil
}

func intPtr(v int) *int { return &v }

func do(t *testing.T, h http.Handler, method, target string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(method, target, nil))
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Fatalf("Content-Type = %q", ct)
	}
	if err := json.Unmarshal(rec.Body.Bytes(), v); err != nil {
		t.Fatalf("corpo inválido %q: %v", rec.Body.String(), err)
	}
}

func TestGetStatus(t *testing.T) {
	s := &fakeSensor{status: models.SensorStatus{
		Status:        models.StatusOK,
		Timestamp:     time.UnixMilli(1700000000000),
		DeviceID:      "dev",
		InvalidFrames: 3,
	}}
	router := NewRouter(NewHandler(s, nil))

	rec := do(t, router, http.MethodGet, "/api/status")
	if rec.Code != http.StatusOK {
		t.Fatalf("code = %d", rec.Code)
	}
	var body map[string]interface{}
	decode(t, rec, &body)
	if body["status"] != models.StatusOK || body["deviceId"] != "dev" {
		t.Fatalf("body = %v", body)
	}
	if body["timestamp"].(float64) != 1700000000000 || body["invalidFrames"].(float64) != 3 {
		t.Fatalf("body = %v", body)
	}
	if body["redis"] != false {
		t.Fatalf("redis = %v", body["redis"])
	}
	if _, ok := body["lastError"]; ok {
		t.Fatal("lastError vazio não deveria aparecer")
	}
}

func TestGetCurrentFallsBackToStore(t *testing.T) {
	s := &fakeSensor{}
	store := &fakeStore{online: true}
	router := NewRouter(NewHandler(s, store))

	if rec := do(t, router, http.MethodGet, "/api/current"); rec.Code != http.StatusNotFound {
		t.Fatalf("sem dados: code = %d", rec.Code)
	}

	store.current = &models.VitalsResult{Seq: 9, HeartRateBPM: intPtr(64), IsWorn: true, Activity: models.ActivityStationary}
	rec := do(t, router, http.MethodGet, "/api/current")
	if rec.Code != http.StatusOK {
		t.Fatalf("code = %d", rec.Code)
	}
	var body currentResponse
	decode(t, rec, &body)
	if body.Source != "redis" || body.Seq != 9 || body.BPM == nil || *body.BPM != 64 {
		t.Fatalf("body = %+v", body)
	}

	s.last = &models.VitalsResult{Seq: 12, HeartRateBPM: intPtr(70), IsWorn: true}
	decode(t, do(t, router, http.MethodGet, "/api/current"), &body)
	if body.Source != "sensor" || body.Seq != 12 {
		t.Fatalf("body = %+v", body)
	}
}

func TestGetCurrentAbsentValuesAreNull(t *testing.T) {
	s := &fakeSensor{last: &models.VitalsResult{Seq: 1, Activity: models.ActivityUnknown}}
	rec := do(t, NewRouter(NewHandler(s, nil)), http.MethodGet, "/api/current")

	body := rec.Body.String()
	if !strings.Contains(body, `"bpm":null`) || !strings.Contains(body, `"spo2":null`) {
		t.Fatalf("body = %s", body)
	}
}

func TestGetHistory(t *testing.T) {
	store := &fakeStore{online: true, history: []models.HistoryPoint{{Value: 71, Timestamp: time.Now()}}}
	router := NewRouter(NewHandler(&fakeSensor{}, store))

	rec := do(t, router, http.MethodGet, "/api/history/bpm?since=1700000000000")
	if rec.Code != http.StatusOK {
		t.Fatalf("code = %d", rec.Code)
	}
	var points []models.HistoryPoint
	decode(t, rec, &points)
	if len(points) != 1 || points[0].Value != 71 {
		t.Fatalf("points = %v", points)
	}
	if !store.since.Equal(time.UnixMilli(1700000000000)) {
		t.Fatalf("since = %v", store.since)
	}

	tests := []struct {
		target string
		code   int
	}{
		{"/api/history/temperature", http.StatusBadRequest},
		{"/api/history/spo2?since=ontem", http.StatusBadRequest},
		{"/api/history/spo2", http.StatusOK},
	}
	for _, tt := range tests {
		if rec := do(t, router, http.MethodGet, tt.target); rec.Code != tt.code {
			t.Errorf("%s: code = %d, want %d", tt.target, rec.Code, tt.code)
		}
	}
}

func TestHistoryOfflineReturnsEmptyArray(t *testing.T) {
	router := NewRouter(NewHandler(&fakeSensor{}, &fakeStore{online: false}))
	rec := do(t, router, http.MethodGet, "/api/history/"+redis.MetricSpO2)
	if rec.Code != http.StatusOK || strings.TrimSpace(rec.Body.String()) != "[]" {
		t.Fatalf("code = %d body = %s", rec.Code, rec.Body.String())
	}
}

func TestGetChangesLimit(t *testing.T) {
	store := &fakeStore{online: true}
	router := NewRouter(NewHandler(&fakeSensor{}, store))

	do(t, router, http.MethodGet, "/api/changes")
	if store.limit != defaultChangesLimit {
		t.Fatalf("limit padrão = %d", store.limit)
	}
	do(t, router, http.MethodGet, "/api/changes?limit=500")
	if store.limit != maxChangesLimit {
		t.Fatalf("limit máximo = %d", store.limit)
	}
	if rec := do(t, router, http.MethodGet, "/api/changes?limit=0"); rec.Code != http.StatusBadRequest {
		t.Fatalf("limit=0: code = %d", rec.Code)
	}

	rec := do(t, router, http.MethodGet, "/api/changes")
	if strings.TrimSpace(rec.Body.String()) != "[]" {
		t.Fatalf("body = %s", rec.Body.String())
	}
}

func TestPostReset(t *testing.T) {
	s := &fakeSensor{}
	router := NewRouter(NewHandler(s, nil))

	if rec := do(t, router, http.MethodPost, "/api/reset"); rec.Code != http.StatusOK {
		t.Fatalf("code = %d", rec.Code)
	}
	if s.resets != 1 {
		t.Fatalf("resets = %d", s.resets)
	}

	if rec := do(t, router, http.MethodGet, "/api/reset"); rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("GET /api/reset: code = %d", rec.Code)
	}

	s.resetErr = errors.New("runner fechado")
	if rec := do(t, router, http.MethodPost, "/api/reset"); rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("erro: code = %d", rec.Code)
	}
}

func TestStatsAndNotFound(t *testing.T) {
	router := NewRouter(NewHandler(&fakeSensor{}, nil))

	var body struct {
		Sensor sensor.ServiceStats `json:"sensor"`
	}
	decode(t, do(t, router, http.MethodGet, "/api/stats"), &body)
	if body.Sensor.SessionID != "s1" || !body.Sensor.Running {
		t.Fatalf("stats = %+v", body.Sensor)
	}

	if rec := do(t, router, http.MethodGet, "/api/nada"); rec.Code != http.StatusNotFound {
		t.Fatalf("code = %d", rec.Code)
	}
}

func TestCorsMiddleware(t *testing.T) {
	h := CorsMiddleware("http://painel.local")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	req := httptest.NewRequest(http.MethodOptions, "/api/status", nil)
	req.Header.Set("Origin", "http://painel.local")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("preflight code = %d", rec.Code)
	}
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "http://painel.local" {
		t.Fatalf("allow-origin = %q", got)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/status", nil)
	req.Header.Set("Origin", "http://outro.local")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusTeapot || rec.Header().Get("Access-Control-Allow-Origin") != "" {
		t.Fatalf("origem não listada: code = %d allow = %q", rec.Code, rec.Header().Get("Access-Control-Allow-Origin"))
	}
}

func TestRecoveryMiddleware(t *testing.T) {
	h := RecoveryMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("falha")
	}))
	rec := do(t, h, http.MethodGet, "/")
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("code = %d", rec.Code)
	}
}
