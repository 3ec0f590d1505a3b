package http

import (
	"net/http"
	"time"

	"github.com/itsmibrahim123/ExpenseManager/internal/core"
)

type categoryResponse struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Type  string `json:"type"`
	Color string `json:"color,omitempty"`
}

func toCategoryResponse(c core.Category) categoryResponse {
	return categoryResponse{ID: c.ID, Name: c.Name, Type: string(c.Type), Color: c.Color}
}

type categoryBody struct {
	Name  string `json:"name"`
	Type  string `json:"type"`
	Color string `json:"color"`
}

func (s *Server) handleCreateCategory(w http.ResponseWriter, r *http.Request) {
	owner, err := ownerID(r)
	if err != nil {
		respondError(w, r, err)
		return
	}

	var body categoryBody
	if err := decodeJSON(r, &body); err != nil {
		respondError(w, r, err)
		return
	}

	category, err := s.categories.Create(r.Context(), core.Category{
		OwnerID: owner,
		Name:    body.Name,
		Type:    core.TransactionType(body.Type),
		Color:   body.Color,
	})
	if err != nil {
		respondError(w, r, err)
		return
	}

	s.invalidateOwner(owner)
	respondJSON(w, http.StatusCreated, toCategoryResponse(category))
}

func (s *Server) handleListCategories(w http.ResponseWriter, r *http.Request) {
	owner, err := ownerID(r)
	if err != nil {
		respondError(w, r, err)
		return
	}

	categories, err := s.categories.List(r.Context(), owner)
	if err != nil {
		respondError(w, r, err)
		return
	}

	out := make([]categoryResponse, 0, len(categories))
	for _, c := range categories {
		out = append(out, toCategoryResponse(c))
	}
	respondJSON(w, http.StatusOK, out)
}

func (s *Server) handleUpdateCategory(w http.ResponseWriter, r *http.Request) {
	owner, err := ownerID(r)
	if err != nil {
		respondError(w, r, err)
		return
	}
	id, err := pathID(r, "id")
	if err != nil {
		respondError(w, r, err)
		return
	}

	var body categoryBody
	if err := decodeJSON(r, &body); err != nil {
		respondError(w, r, err)
		return
	}

	category, err := s.categories.Update(r.Context(), core.Category{
		ID:      id,
		OwnerID: owner,
		Name:    body.Name,
		Type:    core.TransactionType(body.Type),
		Color:   body.Color,
	})
	if err != nil {
		respondError(w, r, err)
		return
	}

	s.invalidateOwner(owner)
	respondJSON(w, http.StatusOK, toCategoryResponse(category))
}

func (s *Server) handleDeleteCategory(w http.ResponseWriter, r *http.Request) {
	owner, err := ownerID(r)
	if err != nil {
		respondError(w, r, err)
		return
	}
	id, err := pathID(r, "id")
	if err != nil {
		respondError(w, r, err)
		return
	}

	if err := s.categories.Delete(r.Context(), owner, id); err != nil {
		respondError(w, r, err)
		return
	}

	s.invalidateOwner(owner)
	w.WriteHeader(http.StatusNoContent)
}

// handleEnsureDefaultCategories creates the default category set for a new
// owner. Existing categories with the same names are left alone.
func (s *Server) handleEnsureDefaultCategories(w http.ResponseWriter, r *http.Request) {
	owner, err := ownerID(r)
	if err != nil {
		respondError(w, r, err)
		return
	}

	if err := s.categories.EnsureDefaults(r.Context(), owner); err != nil {
		respondError(w, r, err)
		return
	}

	s.invalidateOwner(owner)
	w.WriteHeader(http.StatusNoContent)
}

type auditEntryResponse struct {
	ID        int64     `json:"id"`
	Action    string    `json:"action"`
	Entity    string    `json:"entity"`
	EntityID  int64     `json:"entity_id"`
	Detail    string    `json:"detail,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

func (s *Server) handleListAudit(w http.ResponseWriter, r *http.Request) {
	owner, err := ownerID(r)
	if err != nil {
		respondError(w, r, err)
		return
	}

	limit := queryInt(r, "limit", 50)
	entries, err := s.audits.List(r.Context(), owner, limit)
	if err != nil {
		respondError(w, r, err)
		return
	}

	out := make([]auditEntryResponse, 0, len(entries))
	for _, entry := range entries {
		out = append(out, auditEntryResponse{
			ID:        entry.ID,
			Action:    entry.Action,
			Entity:    entry.Entity,
			EntityID:  entry.EntityID,
			Detail:    entry.Detail,
			CreatedAt: entry.CreatedAt,
		})
	}
	respondJSON(w, http.StatusOK, out)
}
