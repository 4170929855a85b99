package server

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"vitals_go/internal/api"
	"vitals_go/internal/websocket"
)

const serviceName = "Vitals Monitor"

// setupRoutes configura todas as rotas do servidor
func (s *Server) setupRoutes() {
	origins := s.config.Server.AllowedOrigins
	wsHandler := websocket.NewHandler(s.wsHub, origins...)
	apiHandler := api.NewHandler(s.sensorService, s.redisService)

	r := chi.NewRouter()
	api.Setup(r, origins...)

	r.Get("/health", s.healthHandler)
	r.Get("/info", s.infoHandler)

	r.Handle("/ws", wsHandler)
	r.Get("/ws/health", wsHandler.GetHealthHandler())

	r.Route("/api", func(r chi.Router) {
		apiHandler.Routes(r)
		r.Get("/discover", s.discoverHandler)
		r.Get("/server-info", s.serverInfoHandler)
	})

	s.router = r
}

func (s *Server) redisState() string {
	switch {
	case !s.config.Redis.Enabled:
		return "disabled"
	case s.redisService.IsConnected():
		return "ok"
	}
	return "offline"
}

func (s *Server) plcState() string {
	switch {
	case s.plcService == nil:
		return "disabled"
	case s.plcService.IsRunning() && s.plcService.Stats().Connected:
		return "ok"
	}
	return "offline"
}

func (s *Server) mqttState() string {
	switch {
	case s.mqttEmitter == nil:
		return "disabled"
	case s.mqttEmitter.Stats().Connected:
		return "ok"
	}
	return "offline"
}

func (s *Server) natsState() string {
	switch {
	case s.natsConn == nil:
		return "disabled"
	case s.natsConn.IsConnected():
		return "ok"
	}
	return "offline"
}

func (s *Server) discoveryState() string {
	switch {
	case s.discoveryService == nil:
		return "disabled"
	case s.discoveryService.IsRunning():
		return "ok"
	}
	return "offline"
}

// healthHandler responde com o status de saúde do servidor
func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	sensorState := "ok"
	if !s.sensorService.IsRunning() {
		sensorState = "offline"
	}
	sensorStatus := s.sensorService.GetStatus().Status

	services := map[string]string{
		"sensor":    sensorState,
		"redis":     s.redisState(),
		"plc":       s.plcState(),
		"mqtt":      s.mqttState(),
		"nats":      s.natsState(),
		"websocket": "ok",
		"discovery": s.discoveryState(),
	}

	response := map[string]interface{}{
		"status":       "ok",
		"timestamp":    time.Now(),
		"sensorStatus": sensorStatus,
		"services":     services,
	}

	// Fonte parada ou armazenamento configurado e fora do ar degradam o estado geral
	if sensorState == "offline" || services["redis"] == "offline" || sensorStatus == "connection_failure" {
		response["status"] = "degraded"
	}

	api.RespondJSON(w, http.StatusOK, response)
}

// infoHandler retorna informações básicas sobre o servidor
func (s *Server) infoHandler(w http.ResponseWriter, r *http.Request) {
	info := s.GetServerInfo()
	uptime := time.Since(info.StartTime).Round(time.Second)

	api.RespondJSON(w, http.StatusOK, map[string]interface{}{
		"name":        serviceName,
		"version":     info.Version,
		"ip":          info.IP,
		"port":        info.Port,
		"websocket":   info.WebSocketURL,
		"api":         info.APIURL,
		"startTime":   info.StartTime,
		"uptime":      uptime.String(),
		"connections": info.Connections,
		"session":     s.sensorService.SessionID(),
	})
}

// serverInfoHandler retorna informações completas sobre o servidor e serviços
func (s *Server) serverInfoHandler(w http.ResponseWriter, r *http.Request) {
	info := s.GetServerInfo()
	uptime := time.Since(info.StartTime).Round(time.Second)

	discoveryInfo := map[string]interface{}{
		"enabled": s.discoveryService != nil,
		"running": s.discoveryState() == "ok",
	}
	if s.discoveryService != nil {
		discoveryInfo["instanceName"] = s.discoveryService.InstanceName()
		discoveryInfo["serviceType"] = s.discoveryService.ServiceType()
	}

	services := map[string]interface{}{
		"sensor": s.sensorService.Stats(),
		"redis": map[string]interface{}{
			"enabled":   s.config.Redis.Enabled,
			"connected": s.redisService.IsConnected(),
			"host":      s.config.Redis.Host,
			"port":      s.config.Redis.Port,
		},
		"websocket": s.wsHub.Stats(),
	}
	if s.plcService != nil {
		services["plc"] = s.plcService.Stats()
	}
	if s.mqttEmitter != nil {
		services["mqtt"] = s.mqttEmitter.Stats()
	}
	if s.publisher != nil {
		published, failed := s.publisher.Stats()
		services["nats"] = map[string]interface{}{
			"subject":   s.config.NATS.ResultSubject,
			"codec":     s.config.NATS.Codec,
			"published": published,
			"failed":    failed,
		}
	}

	api.RespondJSON(w, http.StatusOK, map[string]interface{}{
		"server": map[string]interface{}{
			"name":        serviceName,
			"version":     info.Version,
			"ip":          info.IP,
			"port":        info.Port,
			"websocket":   info.WebSocketURL,
			"api":         info.APIURL,
			"startTime":   info.StartTime,
			"uptime":      uptime.String(),
			"connections": info.Connections,
		},
		"discovery": discoveryInfo,
		"services":  services,
	})
}

// discoverHandler fornece informações para descoberta manual
func (s *Server) discoverHandler(w http.ResponseWriter, r *http.Request) {
	info := s.GetServerInfo()

	api.RespondJSON(w, http.StatusOK, map[string]interface{}{
		"name":        serviceName,
		"ip":          info.IP,
		"port":        info.Port,
		"wsUrl":       info.WebSocketURL,
		"apiUrl":      info.APIURL,
		"version":     info.Version,
		"wsEndpoint":  "/ws",
		"apiEndpoint": "/api",
		"session":     s.sensorService.SessionID(),
	})
}
