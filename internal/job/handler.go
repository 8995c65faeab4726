package job

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	myMiddleware "github.com/LickLitty/ungservice2025/internal/middleware"
)

type Handler struct {
	Service *Service
}

func NewHandler(s *Service) *Handler {
	return &Handler{Service: s}
}

func currentUser(r *http.Request) (string, bool) {
	id, ok := r.Context().Value(myMiddleware.UserKey).(string)
	return id, ok && id != ""
}

func (h *Handler) CreateJob(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(r)
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var req CreateJobRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	j, err := h.Service.CreateJob(r.Context(), userID, &req)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(j)
}

func (h *Handler) ListJobs(w http.ResponseWriter, r *http.Request) {
	// ?owner=me narrows to the caller's own postings, the "mine oppdrag"
	// view.
	var owner string
	if r.URL.Query().Get("owner") == "me" {
		id, ok := currentUser(r)
		if !ok {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		owner = id
	}

	jobs, err := h.Service.ListJobs(r.Context(), r.URL.Query().Get("category"), owner)
	if err != nil {
		http.Error(w, "failed to list jobs", http.StatusInternalServerError)
		return
	}
	if jobs == nil {
		jobs = []Job{}
	}
	json.NewEncoder(w).Encode(jobs)
}

func (h *Handler) GetJob(w http.ResponseWriter, r *http.Request) {
	j, err := h.Service.GetJob(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			http.Error(w, "job not found", http.StatusNotFound)
			return
		}
		http.Error(w, "failed to load job", http.StatusInternalServerError)
		return
	}
	json.NewEncoder(w).Encode(j)
}

func (h *Handler) ListApplicants(w http.ResponseWriter, r *http.Request) {
	apps, err := h.Service.ListApplicants(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "failed to list applicants", http.StatusInternalServerError)
		return
	}
	if apps == nil {
		apps = []Application{}
	}
	json.NewEncoder(w).Encode(apps)
}

func (h *Handler) Interest(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(r)
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var req InterestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err := h.Service.Interest(r.Context(), chi.URLParam(r, "id"), userID, &req); err != nil {
		if errors.Is(err, ErrNotFound) {
			http.Error(w, "job not found", http.StatusNotFound)
			return
		}
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(map[string]string{"status": "interested"})
}

// UpdateApplicationStatus handles the owner's accept/reject decision on an
// applicant.
func (h *Handler) UpdateApplicationStatus(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(r)
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var req struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	err := h.Service.UpdateApplicationStatus(r.Context(),
		chi.URLParam(r, "id"), chi.URLParam(r, "applicant"), userID, req.Status)
	if err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			http.Error(w, "not found", http.StatusNotFound)
		case errors.Is(err, ErrNotOwner):
			http.Error(w, "forbidden", http.StatusForbidden)
		default:
			http.Error(w, err.Error(), http.StatusBadRequest)
		}
		return
	}

	json.NewEncoder(w).Encode(map[string]string{"status": req.Status})
}

func (h *Handler) ListNotifications(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(r)
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	out, err := h.Service.ListNotifications(r.Context(), userID)
	if err != nil {
		http.Error(w, "failed to list notifications", http.StatusInternalServerError)
		return
	}
	if out == nil {
		out = []Notification{}
	}
	json.NewEncoder(w).Encode(out)
}

func (h *Handler) MarkNotificationRead(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(r)
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	if err := h.Service.MarkNotificationRead(r.Context(), chi.URLParam(r, "id"), userID); err != nil {
		if errors.Is(err, ErrNotFound) {
			http.Error(w, "not found", http.StatusNotFound)
			return
		}
		http.Error(w, "failed to mark read", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
