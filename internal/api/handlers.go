package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"vitals_go/internal/models"
	"vitals_go/internal/redis"
	"vitals_go/internal/sensor"
	"vitals_go/pkg/utils"
)

const (
	defaultChangesLimit = 50
	maxChangesLimit     = 100
	resetTimeout        = 5 * time.Second
)

// SensorReader é a visão do serviço do sensor usada pela API
type SensorReader interface {
	GetStatus() models.SensorStatus
	GetLastVitals() *models.VitalsResult
	Reset(ctx context.Context) error
	Stats() sensor.ServiceStats
}

// Store é a visão do armazenamento de histórico usada pela API
type Store interface {
	IsConnected() bool
	GetCurrentVitals() (*models.VitalsResult, error)
	GetHistory(metric string, since time.Time) ([]models.HistoryPoint, error)
	GetChanges(limit int) ([]models.VitalsChange, error)
}

// Handler contém os handlers HTTP da API
type Handler struct {
	sensor SensorReader
	store  Store
}

// NewHandler cria um novo handler. store pode ser nil quando o Redis não é usado.
func NewHandler(sensor SensorReader, store Store) *Handler {
	return &Handler{sensor: sensor, store: store}
}

func (h *Handler) storeOnline() bool {
	return h.store != nil && h.store.IsConnected()
}

// currentResponse é a representação de /api/current
type currentResponse struct {
	Seq         uint64          `json:"seq"`
	DeviceID    string          `json:"deviceId,omitempty"`
	BPM         *int            `json:"bpm"`
	Confidence  float64         `json:"confidence"`
	SpO2        *float64        `json:"spo2"`
	SpO2Quality *float64        `json:"spo2Quality,omitempty"`
	Worn        bool            `json:"worn"`
	Activity    models.Activity `json:"activity"`
	Timestamp   int64           `json:"timestamp"`
	Source      string          `json:"source"`
}

// GetStatus retorna o status atual do sensor
func (h *Handler) GetStatus(w http.ResponseWriter, r *http.Request) {
	status := h.sensor.GetStatus()

	response := map[string]interface{}{
		"status":    status.Status,
		"timestamp": utils.UnixMillis(status.Timestamp),
		"redis":     h.storeOnline(),
	}
	if status.DeviceID != "" {
		response["deviceId"] = status.DeviceID
	}
	if status.LastError != "" {
		response["lastError"] = status.LastError
	}
	if status.ErrorCount > 0 {
		response["errorCount"] = status.ErrorCount
	}
	if status.InvalidFrames > 0 {
		response["invalidFrames"] = status.InvalidFrames
	}
	if status.ConnectionInfo != "" {
		response["connection"] = status.ConnectionInfo
	}

	respondWithJSON(w, http.StatusOK, response)
}

// GetCurrent retorna o último resultado. Sem resultado na sessão atual, usa
// o último valor gravado no Redis.
func (h *Handler) GetCurrent(w http.ResponseWriter, r *http.Request) {
	source := "sensor"
	v := h.sensor.GetLastVitals()
	if v == nil && h.storeOnline() {
		if stored, err := h.store.GetCurrentVitals(); err == nil {
			v, source = stored, "redis"
		} else {
			log.Debugf("Sem sinais vitais no Redis: %v", err)
		}
	}

	if v == nil {
		respondWithError(w, http.StatusNotFound, "Nenhum dado disponível")
		return
	}

	respondWithJSON(w, http.StatusOK, currentResponse{
		Seq:         v.Seq,
		DeviceID:    v.DeviceID,
		BPM:         v.HeartRateBPM,
		Confidence:  v.HeartRateConfidence,
		SpO2:        v.SpO2Percent,
		SpO2Quality: v.SpO2Quality,
		Worn:        v.IsWorn,
		Activity:    v.Activity,
		Timestamp:   utils.UnixMillis(v.Timestamp),
		Source:      source,
	})
}

// GetChanges retorna as mudanças recentes, da mais nova para a mais antiga
func (h *Handler) GetChanges(w http.ResponseWriter, r *http.Request) {
	limit := defaultChangesLimit
	if s := r.URL.Query().Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 1 {
			respondWithError(w, http.StatusBadRequest, "Parâmetro limit inválido")
			return
		}
		if n > maxChangesLimit {
			n = maxChangesLimit
		}
		limit = n
	}

	var changes []models.VitalsChange
	if h.storeOnline() {
		stored, err := h.store.GetChanges(limit)
		if err != nil {
			log.Warnf("Erro ao obter mudanças do Redis: %v", err)
		}
		changes = stored
	}
	if changes == nil {
		changes = []models.VitalsChange{}
	}

	respondWithJSON(w, http.StatusOK, changes)
}

// GetHistory retorna o histórico de bpm ou spo2, opcionalmente a partir de ?since=
func (h *Handler) GetHistory(w http.ResponseWriter, r *http.Request) {
	metric := chi.URLParam(r, "metric")
	if metric != redis.MetricBPM && metric != redis.MetricSpO2 {
		respondWithError(w, http.StatusBadRequest, "Métrica inválida. Use bpm ou spo2.")
		return
	}

	var since time.Time
	if s := r.URL.Query().Get("since"); s != "" {
		t, err := utils.ParseTimestamp(s)
		if err != nil {
			respondWithError(w, http.StatusBadRequest, err.Error())
			return
		}
		since = t
	}

	var history []models.HistoryPoint
	if h.storeOnline() {
		stored, err := h.store.GetHistory(metric, since)
		switch {
		case errors.Is(err, redis.ErrUnknownMetric):
			respondWithError(w, http.StatusBadRequest, err.Error())
			return
		case err != nil:
			log.Warnf("Erro ao obter histórico de %s: %v", metric, err)
		}
		history = stored
	}
	if history == nil {
		history = []models.HistoryPoint{}
	}

	respondWithJSON(w, http.StatusOK, history)
}

// PostReset descarta o estado do pipeline
func (h *Handler) PostReset(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), resetTimeout)
	defer cancel()

	if err := h.sensor.Reset(ctx); err != nil {
		log.Error("Erro ao resetar pipeline", err)
		respondWithError(w, http.StatusServiceUnavailable, "Não foi possível resetar o pipeline: "+err.Error())
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"status":    models.StatusInitializing,
		"timestamp": utils.UnixMillis(time.Now()),
	})
}

// GetStats retorna os contadores do serviço do sensor
func (h *Handler) GetStats(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"sensor": h.sensor.Stats(),
		"redis":  h.storeOnline(),
	})
}

// respondWithError responde com erro em formato JSON
func respondWithError(w http.ResponseWriter, code int, message string) {
	respondWithJSON(w, code, map[string]string{"error": message})
}

// respondWithJSON responde com JSON
func respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	data, err := json.Marshal(payload)
	if err != nil {
		log.Errorf("Erro ao codificar resposta JSON: %v", err)
		code = http.StatusInternalServerError
		data = []byte(`{"error":"Erro interno ao processar resposta"}`)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(data)
}
