package catalog

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/goccy/go-json"
	"github.com/gorilla/mux"

	"github.com/abx-learn/backend/internal/models"
)

type Handler struct {
	catalog *Catalog
}

func NewHandler(c *Catalog) *Handler {
	return &Handler{catalog: c}
}

func (h *Handler) Register(r *mux.Router) {
	r.HandleFunc("/catalog/pathogens", h.ListPathogens).Methods("GET")
	r.HandleFunc("/catalog/pathogens/{name}", h.GetPathogen).Methods("GET")
	r.HandleFunc("/catalog/conditions", h.ListConditions).Methods("GET")
	r.HandleFunc("/catalog/conditions/{id}", h.GetCondition).Methods("GET")
}

// ListPathogens accepts optional category and gramStatus filters and a q
// search term, all case-insensitive.
func (h *Handler) ListPathogens(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, filter(h.catalog.Pathogens(), r.URL.Query()))
}

func (h *Handler) GetPathogen(w http.ResponseWriter, r *http.Request) {
	p, ok := h.catalog.Pathogen(mux.Vars(r)["name"])
	if !ok {
		writeJSON(w, http.StatusNotFound, models.ErrorResponse{Error: "Pathogen not found"})
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *Handler) ListConditions(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, filter(h.catalog.Conditions(), r.URL.Query()))
}

func (h *Handler) GetCondition(w http.ResponseWriter, r *http.Request) {
	c, ok := h.catalog.Condition(mux.Vars(r)["id"])
	if !ok {
		writeJSON(w, http.StatusNotFound, models.ErrorResponse{Error: "Condition not found"})
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func filter(list []models.Entity, q url.Values) []models.Entity {
	category, gram := q.Get("category"), q.Get("gramStatus")
	term := strings.TrimSpace(q.Get("q"))
	if category == "" && gram == "" && term == "" {
		return list
	}
	out := make([]models.Entity, 0, len(list))
	for _, e := range list {
		if category != "" && !strings.EqualFold(e.Category, category) {
			continue
		}
		if gram != "" && !strings.EqualFold(e.GramStatus, gram) {
			continue
		}
		if !e.Matches(term) {
			continue
		}
		out = append(out, e)
	}
	return out
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
