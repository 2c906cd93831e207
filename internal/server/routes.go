package server

import (
	"net/http"

	"github.com/bytedance/sonic"

	"github.com/seoulquant/autotrader/internal/events"
	"github.com/seoulquant/autotrader/internal/logger"
	"github.com/seoulquant/autotrader/internal/model"
)

// StatusProvider exposes read-only snapshots of the running bot.
type StatusProvider interface {
	LedgerSummary() model.LedgerSummary
	Watchlist() []model.WatchEntry
}

func NewMux(ws *events.WSHandler, status StatusProvider, logger logger.Logger) *http.ServeMux {
	mux := http.NewServeMux()

	mux.Handle("/ws", ws)

	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	mux.HandleFunc("GET /api/summary", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, status.LedgerSummary(), logger)
	})

	mux.HandleFunc("GET /api/watchlist", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, status.Watchlist(), logger)
	})

	return mux
}

func writeJSON(w http.ResponseWriter, v interface{}, logger logger.Logger) {
	payload, err := sonic.Marshal(v)
	if err != nil {
		logger.Errorf("can't marshal response: %v", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Write(payload)
}
