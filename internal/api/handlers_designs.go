package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/micro-nova/queuepi/internal/models"
)

type designRequest struct {
	Name         string         `json:"name"`
	TicketDesign map[string]any `json:"ticket_design,omitempty"`
}

func (h *Handlers) getDesigns(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.ctrl.Designs())
}

// saveDesign saves the given ticket_design, or the active one when omitted.
func (h *Handlers) saveDesign(w http.ResponseWriter, r *http.Request) {
	var req designRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if req.Name == "" {
		writeError(w, models.ErrBadRequest("name is required"))
		return
	}
	d, err := h.ctrl.SaveDesign(req.Name, req.TicketDesign)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, d)
}

func (h *Handlers) loadDesign(w http.ResponseWriter, r *http.Request) {
	view, err := h.ctrl.LoadDesign(chi.URLParam(r, "name"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (h *Handlers) deleteDesign(w http.ResponseWriter, r *http.Request) {
	if err := h.ctrl.DeleteDesign(chi.URLParam(r, "name")); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, h.ctrl.View())
}
