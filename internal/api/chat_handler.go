// File path: internal/api/chat_handler.go
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	chi "github.com/go-chi/chi/v5"

	"github.com/nicodishanthj/Katral_insight/internal/common"
	"github.com/nicodishanthj/Katral_insight/internal/conversation"
	"github.com/nicodishanthj/Katral_insight/internal/history"
)

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	logger := common.Logger()
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("decode chat request: %w", err))
		return
	}
	question := strings.TrimSpace(req.Message)
	if question == "" {
		writeError(w, http.StatusBadRequest, errors.New("message required"))
		return
	}
	logger.Info("api: chat request received", "question_length", len(question), "conversation_id", req.ConversationID)
	result, err := s.pipeline.Process(r.Context(), question, strings.TrimSpace(req.ConversationID))
	if err != nil {
		writeError(w, http.StatusInternalServerError, fmt.Errorf("error processing query: %w", err))
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleGetConversation(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	conv, err := s.pipeline.Conversations().Get(r.Context(), id)
	if errors.Is(err, conversation.ErrNotFound) {
		writeError(w, http.StatusNotFound, errors.New("conversation not found"))
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, conv)
}

// handleDeleteConversation drops the in-memory conversation and its
// persisted session. It only reports 404 when neither existed.
func (s *Server) handleDeleteConversation(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := chi.URLParam(r, "id")
	found := false
	err := s.pipeline.Conversations().Delete(ctx, id)
	switch {
	case err == nil:
		found = true
	case !errors.Is(err, conversation.ErrNotFound):
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	if s.history != nil {
		err := s.history.DeleteSession(ctx, id)
		switch {
		case err == nil:
			found = true
		case !errors.Is(err, history.ErrSessionNotFound):
			writeError(w, http.StatusInternalServerError, err)
			return
		}
	}
	if !found {
		writeError(w, http.StatusNotFound, errors.New("conversation not found"))
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{Message: "Conversation deleted successfully"})
}
