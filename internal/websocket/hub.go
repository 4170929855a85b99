package websocket

import (
	"context"
	"math"
	"sync"
	"time"

	"vitals_go/internal/models"
	"vitals_go/pkg/logger"
	"vitals_go/pkg/utils"
)

// Intervalo mínimo entre broadcasts de sinais vitais sem mudança relevante
const vitalsMinInterval = 200 * time.Millisecond

// Provider fornece ao hub os dados pedidos pelos clientes
type Provider interface {
	CurrentStatus() models.SensorStatus
	History(metric string, since time.Time) ([]models.HistoryPoint, error)
	Reset(ctx context.Context) error
}

// HubStats resume a atividade do hub
type HubStats struct {
	Clients           int     `json:"clients"`
	TotalClients      int64   `json:"totalClients"`
	TotalMessages     int64   `json:"totalMessages"`
	DroppedMessages   int64   `json:"droppedMessages"`
	MessagesPerSecond float64 `json:"messagesPerSecond"`
}

// Hub gerencia todas as conexões WebSocket e distribuição de mensagens
type Hub struct {
	// Clientes registrados
	clients map[*Client]bool

	register   chan *Client
	unregister chan *Client
	broadcast  chan []byte

	// Comandos recebidos dos clientes
	commands chan models.ClientCommand

	// Protege o mapa de clientes e o fechamento dos canais send
	mu sync.RWMutex

	provider   Provider
	providerMu sync.RWMutex

	// Último resultado enviado (para evitar duplicação)
	lastVitals     *models.VitalsResult
	lastVitalsTime time.Time
	vitalsLock     sync.Mutex

	stats struct {
		totalMessages      int64
		totalClients       int64
		dropped            int64
		messagesPerSecond  float64
		lastStatsReset     time.Time
		messagesSinceReset int64
	}
	statsLock sync.Mutex

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
}

// NewHub cria uma nova instância do Hub
func NewHub() *Hub {
	ctx, cancel := context.WithCancel(context.Background())

	h := &Hub{
		clients:    make(map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan []byte, 256),
		commands:   make(chan models.ClientCommand, 100),
		ctx:        ctx,
		cancel:     cancel,
		done:       make(chan struct{}),
	}
	h.stats.lastStatsReset = time.Now()
	return h
}

// SetProvider define a fonte de status, histórico e reset
func (h *Hub) SetProvider(p Provider) {
	h.providerMu.Lock()
	h.provider = p
	h.providerMu.Unlock()
}

func (h *Hub) getProvider() Provider {
	h.providerMu.RLock()
	defer h.providerMu.RUnlock()
	return h.provider
}

// Run inicia o loop principal do hub para gerenciar clientes e mensagens
func (h *Hub) Run() {
	defer close(h.done)
	logger.Info("Iniciando WebSocket Hub")

	statsTicker := time.NewTicker(30 * time.Second)
	defer statsTicker.Stop()

	for {
		select {
		case <-h.ctx.Done():
			logger.Info("Encerrando WebSocket Hub")
			h.closeAllClients()
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			clientCount := len(h.clients)
			h.mu.Unlock()

			logger.Infof("Novo cliente WebSocket conectado. ID: %s. Total: %d", client.id, clientCount)

			h.statsLock.Lock()
			h.stats.totalClients++
			h.statsLock.Unlock()

			go h.sendInitialDataToClient(client)

		case client := <-h.unregister:
			h.mu.Lock()
			h.dropClient(client)
			h.mu.Unlock()

		case message := <-h.broadcast:
			h.statsLock.Lock()
			h.stats.totalMessages++
			h.stats.messagesSinceReset++
			h.statsLock.Unlock()

			h.mu.Lock()
			for client := range h.clients {
				select {
				case client.send <- message:
				default:
					// Canal do cliente cheio, desconectar
					logger.Warnf("Cliente %s não acompanha o fluxo, desconectando", client.id)
					h.dropClient(client)
				}
			}
			h.mu.Unlock()

		case cmd := <-h.commands:
			go h.handleClientCommand(cmd)

		case <-statsTicker.C:
			h.statsLock.Lock()
			elapsed := time.Since(h.stats.lastStatsReset).Seconds()
			if elapsed > 0 {
				h.stats.messagesPerSecond = float64(h.stats.messagesSinceReset) / elapsed
			}
			h.stats.messagesSinceReset = 0
			h.stats.lastStatsReset = time.Now()
			mps := h.stats.messagesPerSecond
			total := h.stats.totalMessages
			h.statsLock.Unlock()

			logger.Infof("Estatísticas WebSocket: %d clientes, %.2f msgs/seg, total: %d mensagens",
				h.ClientCount(), mps, total)
		}
	}
}

// dropClient remove um cliente e fecha seu canal. Requer h.mu travado.
func (h *Hub) dropClient(client *Client) {
	if _, ok := h.clients[client]; !ok {
		return
	}
	delete(h.clients, client)
	close(client.send)
	logger.Infof("Cliente WebSocket desconectado. ID: %s. Total: %d", client.id, len(h.clients))
}

// addClient registra um cliente; retorna false se o hub já encerrou
func (h *Hub) addClient(c *Client) bool {
	select {
	case h.register <- c:
		return true
	case <-h.ctx.Done():
		return false
	}
}

func (h *Hub) removeClient(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.ctx.Done():
	}
}

// submitCommand encaminha um comando ao hub sem bloquear o leitor
func (h *Hub) submitCommand(cmd models.ClientCommand) {
	select {
	case h.commands <- cmd:
	default:
		logger.Warnf("Fila de comandos cheia, descartando %s do cliente %s", cmd.Command, cmd.ClientID)
	}
}

// enqueue serializa e coloca uma mensagem na fila de broadcast
func (h *Hub) enqueue(message interface{}, what string) {
	data, err := SerializeMessage(message)
	if err != nil {
		logger.Error("Erro ao serializar mensagem de "+what, err)
		return
	}

	select {
	case h.broadcast <- data:
	case <-h.ctx.Done():
	default:
		h.statsLock.Lock()
		h.stats.dropped++
		h.statsLock.Unlock()
	}
}

// BroadcastVitals envia o resultado do pipeline para todos os clientes.
// Resultados sem mudança de BPM, SpO2 ou uso chegam no máximo a cada
// vitalsMinInterval.
func (h *Hub) BroadcastVitals(v models.VitalsResult) {
	h.vitalsLock.Lock()
	if h.lastVitals != nil && time.Since(h.lastVitalsTime) < vitalsMinInterval && !vitalsDiffer(h.lastVitals, &v) {
		h.vitalsLock.Unlock()
		return
	}
	h.lastVitals = &v
	h.lastVitalsTime = time.Now()
	h.vitalsLock.Unlock()

	h.enqueue(NewVitalsMessage(v), "sinais vitais")
}

func vitalsDiffer(a, b *models.VitalsResult) bool {
	if a.IsWorn != b.IsWorn || a.HasHeartRate() != b.HasHeartRate() || a.HasSpO2() != b.HasSpO2() {
		return true
	}
	if a.HasHeartRate() && *a.HeartRateBPM != *b.HeartRateBPM {
		return true
	}
	return a.HasSpO2() && math.Abs(*a.SpO2Percent-*b.SpO2Percent) >= 0.5
}

// BroadcastChanges envia mudanças de sinais vitais para todos os clientes
func (h *Hub) BroadcastChanges(changes []models.VitalsChange) {
	if len(changes) == 0 {
		return
	}
	h.enqueue(NewVitalsChangeMessage(changes), "mudanças de sinais vitais")
}

// BroadcastStatus envia atualização de status para todos os clientes
func (h *Hub) BroadcastStatus(status models.SensorStatus) {
	h.enqueue(NewStatusMessage(status), "status")
}

// handleClientCommand processa comandos recebidos dos clientes
func (h *Hub) handleClientCommand(cmd models.ClientCommand) {
	logger.Debugf("Comando recebido do cliente %s: %s", cmd.ClientID, cmd.Command)

	client := h.getClientByID(cmd.ClientID)
	if client == nil {
		return
	}

	provider := h.getProvider()
	if provider == nil {
		h.sendTo(client, NewErrorMessage("Serviço de sinais vitais indisponível", "unavailable"))
		return
	}

	switch cmd.Command {
	case CmdGetHistory:
		h.sendHistory(client, provider, cmd.Params)
	case CmdGetStatus:
		h.sendTo(client, NewStatusMessage(provider.CurrentStatus()))
	case CmdReset:
		ctx, cancel := context.WithTimeout(h.ctx, 5*time.Second)
		defer cancel()
		if err := provider.Reset(ctx); err != nil {
			h.sendTo(client, NewErrorMessage("Falha ao reiniciar pipeline: "+err.Error(), "reset_failed"))
			return
		}
		msg := header(TypeResetDone)
		h.sendTo(client, msg)
	default:
		logger.Warnf("Comando desconhecido: %s", cmd.Command)
	}
}

// sendHistory envia o histórico de uma métrica ao cliente solicitante.
// Parâmetros: metric ("bpm" padrão) e since (timestamp opcional).
func (h *Hub) sendHistory(client *Client, provider Provider, params map[string]interface{}) {
	metric := stringParam(params, "metric")
	if metric == "" {
		metric = "bpm"
	}

	var since time.Time
	if raw := stringParam(params, "since"); raw != "" {
		t, err := utils.ParseTimestamp(raw)
		if err != nil {
			h.sendTo(client, NewErrorMessage(err.Error(), "invalid_params"))
			return
		}
		since = t
	}

	history, err := provider.History(metric, since)
	if err != nil {
		h.sendTo(client, NewErrorMessage("Erro ao obter histórico: "+err.Error(), "history_failed"))
		return
	}
	h.sendTo(client, NewHistoryMessage(metric, history))
}

// sendTo envia uma mensagem apenas para um cliente
func (h *Hub) sendTo(client *Client, message interface{}) {
	data, err := SerializeMessage(message)
	if err != nil {
		logger.Error("Erro ao serializar resposta", err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	if !h.clients[client] {
		return
	}
	select {
	case client.send <- data:
	default:
		logger.Warnf("Buffer do cliente %s cheio, resposta descartada", client.id)
	}
}

// sendInitialDataToClient envia boas-vindas e o status atual
func (h *Hub) sendInitialDataToClient(client *Client) {
	welcome := header(TypeWelcome)
	welcome.Data = map[string]interface{}{
		"message":  "Conectado ao servidor de sinais vitais",
		"clientId": client.id,
	}
	h.sendTo(client, welcome)

	if p := h.getProvider(); p != nil {
		h.sendTo(client, NewStatusMessage(p.CurrentStatus()))
	}
}

func (h *Hub) getClientByID(id string) *Client {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for client := range h.clients {
		if client.id == id {
			return client
		}
	}
	return nil
}

// Shutdown encerra o hub e aguarda o loop principal
func (h *Hub) Shutdown() {
	h.cancel()
	select {
	case <-h.done:
	case <-time.After(time.Second):
	}
}

// closeAllClients fecha todas as conexões dos clientes
func (h *Hub) closeAllClients() {
	h.mu.Lock()
	defer h.mu.Unlock()

	logger.Info("Fechando todas as conexões de clientes WebSocket")
	for client := range h.clients {
		h.dropClient(client)
	}
}

// ClientCount retorna o número atual de clientes conectados
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Stats retorna as estatísticas do hub
func (h *Hub) Stats() HubStats {
	h.statsLock.Lock()
	defer h.statsLock.Unlock()
	return HubStats{
		Clients:           h.ClientCount(),
		TotalClients:      h.stats.totalClients,
		TotalMessages:     h.stats.totalMessages,
		DroppedMessages:   h.stats.dropped,
		MessagesPerSecond: h.stats.messagesPerSecond,
	}
}
