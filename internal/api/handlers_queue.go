package api

import (
	"net/http"

	"github.com/micro-nova/queuepi/internal/models"
)

func (h *Handlers) getState(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.ctrl.View())
}

func (h *Handlers) next(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.ctrl.Next())
}

func (h *Handlers) prev(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.ctrl.Prev())
}

func (h *Handlers) reset(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.ctrl.Reset())
}

func (h *Handlers) print(w http.ResponseWriter, r *http.Request) {
	view, err := h.ctrl.Print(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

type saveResponse struct {
	OK   bool             `json:"ok"`
	View models.QueueView `json:"queue"`
}

func (h *Handlers) save(w http.ResponseWriter, r *http.Request) {
	ok := h.ctrl.SaveCurrentState()
	status := http.StatusOK
	if !ok {
		status = http.StatusInternalServerError
	}
	writeJSON(w, status, saveResponse{OK: ok, View: h.ctrl.View()})
}
