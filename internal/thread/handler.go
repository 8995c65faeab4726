package thread

import (
	"encoding/json"
	"errors"
	"net/http"

	myMiddleware "github.com/LickLitty/ungservice2025/internal/middleware"
)

// ErrAllSourcesFailed means not a single relation source could be read.
// One or two failing only narrows the result.
var ErrAllSourcesFailed = errors.New("thread: all signal sources failed")

type Handler struct {
	Service *Service
}

func NewHandler(s *Service) *Handler {
	return &Handler{Service: s}
}

// ListThreads serves the inbox for the authenticated user.
func (h *Handler) ListThreads(w http.ResponseWriter, r *http.Request) {
	userID, ok := r.Context().Value(myMiddleware.UserKey).(string)
	if !ok || userID == "" {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	threads, err := h.Service.ListThreads(r.Context(), userID)
	if err != nil {
		http.Error(w, "failed to list threads", http.StatusInternalServerError)
		return
	}
	if threads == nil {
		threads = []Thread{}
	}
	json.NewEncoder(w).Encode(threads)
}
