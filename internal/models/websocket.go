package models

import "time"

// WebSocketMessage representa a estrutura base de todas as mensagens WebSocket
type WebSocketMessage struct {
	Type      string      `json:"type"`            // Tipo da mensagem: "vitals", "status", "vitals_changes", etc.
	Timestamp time.Time   `json:"timestamp"`       // Timestamp da mensagem
	Data      interface{} `json:"data,omitempty"`  // Dados adicionais específicos do tipo
	Error     string      `json:"error,omitempty"` // Mensagem de erro, se houver
}

// VitalsMessage é uma mensagem específica para resultados do pipeline
type VitalsMessage struct {
	WebSocketMessage
	Vitals VitalsResult `json:"vitals"`
}

// VitalsChangeMessage é uma mensagem específica para mudanças nos sinais vitais
type VitalsChangeMessage struct {
	WebSocketMessage
	Changes []VitalsChange `json:"changes"`
}

// StatusMessage é uma mensagem específica para atualizações de status
type StatusMessage struct {
	WebSocketMessage
	Status        string `json:"status"`
	DeviceID      string `json:"deviceId,omitempty"`
	LastError     string `json:"lastError,omitempty"`
	ErrorCount    int    `json:"errorCount,omitempty"`
	InvalidFrames uint64 `json:"invalidFrames,omitempty"`
}

// HistoryMessage é uma mensagem específica para histórico de um sinal vital
type HistoryMessage struct {
	WebSocketMessage
	Metric  string         `json:"metric"`
	History []HistoryPoint `json:"history"`
}

// CommandMessage é uma mensagem de comando do cliente para o servidor
type CommandMessage struct {
	Type   string                 `json:"type"`             // Tipo de comando: "get_history", "get_status", "reset"
	Params map[string]interface{} `json:"params,omitempty"` // Parâmetros adicionais
	ID     string                 `json:"id,omitempty"`     // ID opcional para correlacionar solicitações/respostas
}

// ClientCommand representa um comando enviado pelo cliente
type ClientCommand struct {
	Command  string                 `json:"command"`
	Params   map[string]interface{} `json:"params,omitempty"`
	ClientID string                 `json:"-"` // Usado internamente, não enviado no JSON
}

// PongMessage representa um pong enviado pelo servidor
type PongMessage struct {
	WebSocketMessage
	Time       int64 `json:"time"`       // Timestamp original do ping
	ServerTime int64 `json:"serverTime"` // Timestamp do servidor em milissegundos
}
