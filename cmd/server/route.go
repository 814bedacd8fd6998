package main

import (
	"encoding/json"
	"net/http"

	"github.com/matryer/way"
	log "github.com/sirupsen/logrus"
)

const URI_WS = "/play"

func (s *Server) routes() {
	s.router = way.NewRouter()
	s.router.HandleFunc("GET", URI_WS, s.GameServer.HandleHttpCall())
	s.router.HandleFunc("GET", "/games", s.handleGames)
	s.router.HandleFunc("GET", "/games/:id", s.handleGame)
	s.router.HandleFunc("GET", "/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
}

func (s *Server) handleGames(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.GameServer.Summaries())
}

func (s *Server) handleGame(w http.ResponseWriter, r *http.Request) {
	summary, ok := s.GameServer.Summary(way.Param(r.Context(), "id"))
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "game not found"})
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Warnf("write json: %v", err)
	}
}
