// Package api expõe os sinais vitais via HTTP/JSON.
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Routes registra as rotas da API em r
func (h *Handler) Routes(r chi.Router) {
	r.Get("/status", h.GetStatus)
	r.Get("/current", h.GetCurrent)
	r.Get("/changes", h.GetChanges)
	r.Get("/history/{metric}", h.GetHistory)
	r.Get("/stats", h.GetStats)
	r.Post("/reset", h.PostReset)
}

// Setup aplica a pilha de middlewares padrão e as respostas JSON de 404/405.
// Deve ser chamado antes de registrar qualquer rota.
func Setup(r *chi.Mux, allowedOrigins ...string) {
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(LoggingMiddleware)
	r.Use(RecoveryMiddleware)
	r.Use(CorsMiddleware(allowedOrigins...))

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		respondWithError(w, http.StatusNotFound, "Rota não encontrada")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		respondWithError(w, http.StatusMethodNotAllowed, "Método não permitido")
	})
}

// NewRouter cria um router com os middlewares padrão e as rotas em /api
func NewRouter(h *Handler, allowedOrigins ...string) *chi.Mux {
	r := chi.NewRouter()
	Setup(r, allowedOrigins...)
	r.Route("/api", h.Routes)
	return r
}

// RespondJSON escreve payload como JSON com o código informado
func RespondJSON(w http.ResponseWriter, code int, payload interface{}) {
	respondWithJSON(w, code, payload)
}
