// File path: internal/api/history_handler.go
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	chi "github.com/go-chi/chi/v5"

	"github.com/nicodishanthj/Katral_insight/internal/history"
)

const defaultHistoryDays = 1

var errHistoryDisabled = errors.New("chat history is disabled")

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		writeError(w, http.StatusNotFound, errHistoryDisabled)
		return
	}
	days := defaultHistoryDays
	if raw := strings.TrimSpace(r.URL.Query().Get("days")); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			writeError(w, http.StatusBadRequest, fmt.Errorf("invalid days %q", raw))
			return
		}
		days = parsed
	}
	since := s.now().Add(-time.Duration(days) * 24 * time.Hour)
	sessions, err := s.history.Sessions(r.Context(), since)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	if sessions == nil {
		sessions = []history.Session{}
	}
	writeJSON(w, http.StatusOK, historyResponse{Sessions: sessions, Total: len(sessions)})
}

func (s *Server) handleHistoryMessages(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		writeError(w, http.StatusNotFound, errHistoryDisabled)
		return
	}
	id := chi.URLParam(r, "id")
	messages, err := s.history.Messages(r.Context(), id)
	if errors.Is(err, history.ErrSessionNotFound) {
		writeError(w, http.StatusNotFound, errors.New("session not found"))
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, historyMessagesResponse{ConversationID: id, Messages: messages})
}

// handleUpdateTitle accepts the title as a query parameter or a JSON body.
func (s *Server) handleUpdateTitle(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		writeError(w, http.StatusNotFound, errHistoryDisabled)
		return
	}
	title := strings.TrimSpace(r.URL.Query().Get("title"))
	if title == "" && r.Body != nil && r.ContentLength != 0 {
		var req titleRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, fmt.Errorf("decode title request: %w", err))
			return
		}
		title = strings.TrimSpace(req.Title)
	}
	if title == "" {
		writeError(w, http.StatusBadRequest, errors.New("title required"))
		return
	}
	err := s.history.UpdateTitle(r.Context(), chi.URLParam(r, "id"), title)
	if errors.Is(err, history.ErrSessionNotFound) {
		writeError(w, http.StatusNotFound, errors.New("session not found"))
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{Message: "Title updated successfully"})
}

func (s *Server) handleDeleteHistory(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		writeError(w, http.StatusNotFound, errHistoryDisabled)
		return
	}
	err := s.history.DeleteSession(r.Context(), chi.URLParam(r, "id"))
	if errors.Is(err, history.ErrSessionNotFound) {
		writeError(w, http.StatusNotFound, errors.New("session not found"))
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{Message: "Session deleted successfully"})
}
