package api

import (
	"net/http"

	"github.com/micro-nova/queuepi/internal/models"
)

// redact hides the admin password from settings returned to clients.
func redact(s models.Settings) models.Settings {
	delete(s, "system_password")
	return s
}

func (h *Handlers) getSettings(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, redact(h.ctrl.Settings()))
}

func (h *Handlers) patchSettings(w http.ResponseWriter, r *http.Request) {
	var patch map[string]any
	if err := decodeBody(r, &patch); err != nil {
		writeError(w, err)
		return
	}
	if len(patch) == 0 {
		writeError(w, models.ErrBadRequest("empty settings patch"))
		return
	}
	settings, err := h.ctrl.PatchSettings(patch)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, redact(settings))
}
