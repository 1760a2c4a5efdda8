package http

import (
	"context"
	"encoding/json"
	"net/http"
	"time"
)

// StatusFunc возвращает сводку последнего прогона; false — прогонов ещё не было.
type StatusFunc func() (any, bool)

type Server struct {
	srv *http.Server
}

// New собирает сервер. metrics == nil отключает /metrics, status == nil — /runs/latest.
func New(addr string, metrics http.Handler, status StatusFunc) *Server {
	return &Server{srv: &http.Server{
		Addr:              addr,
		Handler:           Routes(metrics, status),
		ReadHeaderTimeout: 5 * time.Second,
	}}
}

func Routes(metrics http.Handler, status StatusFunc) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})

	if metrics != nil {
		mux.Handle("/metrics", metrics)
	}

	if status != nil {
		mux.HandleFunc("GET /runs/latest", func(w http.ResponseWriter, _ *http.Request) {
			run, ok := status()
			if !ok {
				http.Error(w, "no runs yet", http.StatusNotFound)
				return
			}
			w.Header().Set("Content-Type", "application/json")
			_ = json.NewEncoder(w).Encode(run)
		})
	}

	return mux
}

func (s *Server) Start() error {
	return s.srv.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}
