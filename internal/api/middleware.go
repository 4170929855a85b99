package api

import (
	"net/http"
	"runtime/debug"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"

	"vitals_go/pkg/logger"
)

var log = logger.For("api")

// quietPaths são consultadas em polling pelos painéis e só aparecem em debug
var quietPaths = []string{"/status", "/current", "/stats"}

func isQuiet(path string) bool {
	for _, p := range quietPaths {
		if strings.HasSuffix(path, p) {
			return true
		}
	}
	return false
}

// LoggingMiddleware registra método, caminho, status e duração de cada requisição
func LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		format := "[%s] %d %s %s %s (%.3fs)"
		args := []interface{}{middleware.GetReqID(r.Context()), status, r.Method, r.URL.Path, r.RemoteAddr, time.Since(start).Seconds()}

		switch {
		case status >= http.StatusInternalServerError:
			log.Warnf(format, args...)
		case isQuiet(r.URL.Path):
			log.Debugf(format, args...)
		default:
			log.Infof(format, args...)
		}
	})
}

// RecoveryMiddleware recupera de panics e responde 500 em JSON
func RecoveryMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				if err == http.ErrAbortHandler {
					panic(err)
				}
				log.Errorf("Panic capturado em %s %s: %v\n%s", r.Method, r.URL.Path, err, debug.Stack())
				respondWithError(w, http.StatusInternalServerError, "Erro interno")
			}
		}()

		next.ServeHTTP(w, r)
	})
}

// CorsMiddleware adiciona cabeçalhos CORS. Lista vazia ou "*" libera qualquer origem.
func CorsMiddleware(allowedOrigins ...string) func(http.Handler) http.Handler {
	allowAll := len(allowedOrigins) == 0
	for _, o := range allowedOrigins {
		if o == "*" {
			allowAll = true
		}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			switch {
			case allowAll:
				w.Header().Set("Access-Control-Allow-Origin", "*")
			case origin != "" && originAllowed(origin, allowedOrigins):
				w.Header().Set("Access-Control-Allow-Origin", origin)
				w.Header().Add("Vary", "Origin")
			}
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func originAllowed(origin string, allowed []string) bool {
	for _, o := range allowed {
		if strings.EqualFold(o, origin) {
			return true
		}
	}
	return false
}
