package bookmarks

import (
	"io"
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/goccy/go-json"
	"github.com/gorilla/mux"

	"github.com/abx-learn/backend/internal/middleware"
	"github.com/abx-learn/backend/internal/models"
)

// maxImportBytes bounds an import upload.
const maxImportBytes = 4 << 20

type Handler struct {
	stores   *Manager
	validate *validator.Validate
}

func NewHandler(stores *Manager) *Handler {
	return &Handler{stores: stores, validate: validator.New()}
}

func (h *Handler) Register(r *mux.Router) {
	r.HandleFunc("/bookmarks", h.List).Methods("GET")
	r.HandleFunc("/bookmarks", h.Add).Methods("POST")
	r.HandleFunc("/bookmarks", h.ClearAll).Methods("DELETE")
	r.HandleFunc("/bookmarks/toggle", h.Toggle).Methods("POST")
	r.HandleFunc("/bookmarks/stats", h.Stats).Methods("GET")
	r.HandleFunc("/bookmarks/export", h.Export).Methods("GET")
	r.HandleFunc("/bookmarks/import", h.Import).Methods("POST")
	r.HandleFunc("/bookmarks/status/{name}", h.Status).Methods("GET")
	r.HandleFunc("/bookmarks/category/{category}", h.ByCategory).Methods("GET")
	r.HandleFunc("/bookmarks/{name}", h.Remove).Methods("DELETE")
}

func getUserID(r *http.Request) (int64, bool) {
	return middleware.UserID(r.Context())
}

func (h *Handler) store(w http.ResponseWriter, r *http.Request) (*Store, bool) {
	userID, ok := getUserID(r)
	if !ok {
		writeJSON(w, http.StatusUnauthorized, models.ErrorResponse{Error: "Authentication required"})
		return nil, false
	}
	return h.stores.For(userID), true
}

func (h *Handler) decodeEntity(w http.ResponseWriter, r *http.Request) (models.Entity, bool) {
	var e models.Entity
	if err := json.NewDecoder(r.Body).Decode(&e); err != nil {
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "Invalid request body"})
		return e, false
	}
	if err := h.validate.Struct(e); err != nil {
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "name is required"})
		return e, false
	}
	return e, true
}

// ── CRUD ────────────────────────────────────────────────

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	s, ok := h.store(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, s.All())
}

func (h *Handler) Add(w http.ResponseWriter, r *http.Request) {
	s, ok := h.store(w, r)
	if !ok {
		return
	}
	e, ok := h.decodeEntity(w, r)
	if !ok {
		return
	}
	s.Add(e)
	writeJSON(w, http.StatusOK, models.ToggleBookmarkResponse{Name: e.Name, Bookmarked: true})
}

func (h *Handler) Toggle(w http.ResponseWriter, r *http.Request) {
	s, ok := h.store(w, r)
	if !ok {
		return
	}
	e, ok := h.decodeEntity(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, models.ToggleBookmarkResponse{Name: e.Name, Bookmarked: s.Toggle(e)})
}

func (h *Handler) Remove(w http.ResponseWriter, r *http.Request) {
	s, ok := h.store(w, r)
	if !ok {
		return
	}
	s.Remove(mux.Vars(r)["name"])
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) ClearAll(w http.ResponseWriter, r *http.Request) {
	s, ok := h.store(w, r)
	if !ok {
		return
	}
	s.ClearAll()
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) Status(w http.ResponseWriter, r *http.Request) {
	s, ok := h.store(w, r)
	if !ok {
		return
	}
	name := mux.Vars(r)["name"]
	writeJSON(w, http.StatusOK, models.ToggleBookmarkResponse{Name: name, Bookmarked: s.IsBookmarked(name)})
}

func (h *Handler) ByCategory(w http.ResponseWriter, r *http.Request) {
	s, ok := h.store(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, s.ByCategory(mux.Vars(r)["category"]))
}

func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	s, ok := h.store(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, s.Stats())
}

// ── Import / Export ─────────────────────────────────────

func (h *Handler) Export(w http.ResponseWriter, r *http.Request) {
	s, ok := h.store(w, r)
	if !ok {
		return
	}
	data, err := s.Export()
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, models.ErrorResponse{Error: "Failed to export bookmarks"})
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", `attachment; filename="bookmarks.json"`)
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

// Import takes the export document as the request body. merge defaults to
// true; merge=false replaces the collection.
func (h *Handler) Import(w http.ResponseWriter, r *http.Request) {
	s, ok := h.store(w, r)
	if !ok {
		return
	}

	merge := true
	if v := r.URL.Query().Get("merge"); v != "" {
		parsed, err := strconv.ParseBool(v)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "merge must be true or false"})
			return
		}
		merge = parsed
	}

	data, err := io.ReadAll(io.LimitReader(r.Body, maxImportBytes))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "Failed to read request body"})
		return
	}

	result := s.Import(data, merge)
	status := http.StatusOK
	if !result.Success {
		status = http.StatusBadRequest
	}
	writeJSON(w, status, result)
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
