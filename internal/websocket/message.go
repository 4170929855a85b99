package websocket

import (
	"bytes"
	"encoding/json"
	"time"

	"vitals_go/internal/models"
	"vitals_go/pkg/utils"
)

// Tipos de mensagem enviados pelo servidor
const (
	TypeVitals        = "vitals"
	TypeStatus        = "status"
	TypeVitalsChanges = "vitals_changes"
	TypeHistory       = "history"
	TypeWelcome       = "welcome"
	TypePong          = "pong"
	TypeError         = "error"
	TypeResetDone     = "reset_done"
)

// Comandos aceitos dos clientes
const (
	CmdPing       = "ping"
	CmdGetHistory = "get_history"
	CmdGetStatus  = "get_status"
	CmdReset      = "reset"
)

func header(kind string) models.WebSocketMessage {
	return models.WebSocketMessage{Type: kind, Timestamp: time.Now()}
}

// NewVitalsMessage cria uma mensagem com o resultado do pipeline
func NewVitalsMessage(v models.VitalsResult) *models.VitalsMessage {
	return &models.VitalsMessage{WebSocketMessage: header(TypeVitals), Vitals: v}
}

// NewStatusMessage cria uma nova mensagem de status
func NewStatusMessage(status models.SensorStatus) *models.StatusMessage {
	return &models.StatusMessage{
		WebSocketMessage: header(TypeStatus),
		Status:           status.Status,
		DeviceID:         status.DeviceID,
		LastError:        status.LastError,
		ErrorCount:       status.ErrorCount,
		InvalidFrames:    status.InvalidFrames,
	}
}

// NewVitalsChangeMessage cria uma mensagem de mudanças nos sinais vitais
func NewVitalsChangeMessage(changes []models.VitalsChange) *models.VitalsChangeMessage {
	return &models.VitalsChangeMessage{WebSocketMessage: header(TypeVitalsChanges), Changes: changes}
}

// NewHistoryMessage cria uma mensagem com o histórico de uma métrica
func NewHistoryMessage(metric string, history []models.HistoryPoint) *models.HistoryMessage {
	if history == nil {
		history = []models.HistoryPoint{}
	}
	return &models.HistoryMessage{WebSocketMessage: header(TypeHistory), Metric: metric, History: history}
}

// NewErrorMessage cria uma nova mensagem de erro
func NewErrorMessage(message string, errorCode string) models.WebSocketMessage {
	msg := header(TypeError)
	msg.Error = message
	msg.Data = map[string]string{"code": errorCode}
	return msg
}

// NewPongMessage cria uma resposta para um ping do cliente
func NewPongMessage(pingTime int64) *models.PongMessage {
	return &models.PongMessage{
		WebSocketMessage: header(TypePong),
		Time:             pingTime,
		ServerTime:       utils.UnixMillis(time.Now()),
	}
}

// SerializeMessage serializa uma mensagem para JSON
func SerializeMessage(message interface{}) ([]byte, error) {
	return json.Marshal(message)
}

// ParseClientCommand analisa um comando recebido do cliente, rejeitando
// campos desconhecidos
func ParseClientCommand(data []byte) (models.CommandMessage, error) {
	var command models.CommandMessage
	decoder := json.NewDecoder(bytes.NewReader(data))
	decoder.DisallowUnknownFields()
	err := decoder.Decode(&command)
	return command, err
}

// stringParam extrai um parâmetro textual de um comando
func stringParam(params map[string]interface{}, name string) string {
	if v, ok := params[name].(string); ok {
		return v
	}
	return ""
}
