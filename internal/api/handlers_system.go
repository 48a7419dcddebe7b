package api

import (
	"errors"
	"log/slog"
	"net/http"
	"path/filepath"
	"strconv"
	"time"

	"github.com/micro-nova/queuepi/internal/maintenance"
	"github.com/micro-nova/queuepi/internal/models"
	"github.com/micro-nova/queuepi/internal/render"
)

func (h *Handlers) getInfo(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.info)
}

func (h *Handlers) getBackups(w http.ResponseWriter, r *http.Request) {
	names, err := h.ctrl.Backups()
	if err != nil {
		writeError(w, models.ErrInternal(err.Error()))
		return
	}
	writeJSON(w, http.StatusOK, map[string][]string{"backups": names})
}

func (h *Handlers) getArchives(w http.ResponseWriter, r *http.Request) {
	names, err := h.archives.Archives()
	if err != nil {
		writeError(w, models.ErrInternal(err.Error()))
		return
	}
	writeJSON(w, http.StatusOK, map[string][]string{"archives": names})
}

func (h *Handlers) createArchive(w http.ResponseWriter, r *http.Request) {
	path, err := h.archives.RunArchiveNow()
	if errors.Is(err, maintenance.ErrArchiveDisabled) {
		writeError(w, models.ErrConflict("archiving is disabled"))
		return
	}
	if err != nil {
		slog.Error("api: archive failed", "err", err)
		writeError(w, models.ErrInternal(err.Error()))
		return
	}
	slog.Info("api: archive created", "file", filepath.Base(path))
	writeJSON(w, http.StatusCreated, map[string]string{"archive": filepath.Base(path)})
}

// preview renders the active design as PNG. ?number= overrides the ticket
// number shown.
func (h *Handlers) preview(w http.ResponseWriter, r *http.Request) {
	number := h.ctrl.CurrentNumber()
	if s := r.URL.Query().Get("number"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 0 {
			writeError(w, models.ErrBadRequest("invalid number parameter"))
			return
		}
		number = n
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	if err := render.WritePNG(w, h.ctrl.Settings(), number, time.Now()); err != nil {
		slog.Warn("api: preview encode failed", "err", err)
	}
}

// shutdownNow acknowledges before closing so the client sees the response.
func (h *Handlers) shutdownNow(w http.ResponseWriter, r *http.Request) {
	slog.Info("api: shutdown requested", "remote", r.RemoteAddr)
	writeJSON(w, http.StatusAccepted, map[string]bool{"ok": true})
	go h.shutdown()
}
