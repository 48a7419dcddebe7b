// Package api implements the loopback HTTP control surface the kiosk UI drives.
package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/micro-nova/queuepi/internal/identity"
	"github.com/micro-nova/queuepi/internal/models"
)

// Handlers holds dependencies for all HTTP handlers.
type Handlers struct {
	ctrl     Controller
	events   EventBus
	info     identity.Info
	archives Archiver
	shutdown func()
}

// Controller is the interface the handlers use to interact with the kiosk state.
type Controller interface {
	View() models.QueueView
	CurrentNumber() int
	Settings() models.Settings
	Next() models.QueueView
	Prev() models.QueueView
	Reset() models.QueueView
	Print(ctx context.Context) (models.QueueView, error)
	SaveCurrentState() bool
	PatchSettings(patch map[string]any) (models.Settings, error)
	CheckPassword(pw string) bool
	Designs() map[string]models.TicketDesign
	SaveDesign(name string, td map[string]any) (models.TicketDesign, error)
	LoadDesign(name string) (models.QueueView, error)
	DeleteDesign(name string) error
	Backups() ([]string, error)
}

// Archiver lists and creates data directory archives.
type Archiver interface {
	Archives() ([]string, error)
	RunArchiveNow() (string, error)
}

// EventBus is the interface for subscribing to change events.
type EventBus interface {
	Subscribe(id string) <-chan models.Event
	Unsubscribe(id string)
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError writes an AppError as a JSON response.
func writeError(w http.ResponseWriter, err error) {
	w.Header().Set("Content-Type", "application/json")
	if appErr, ok := err.(*models.AppError); ok {
		w.WriteHeader(appErr.Status)
		_ = json.NewEncoder(w).Encode(appErr)
		return
	}
	w.WriteHeader(http.StatusInternalServerError)
	_ = json.NewEncoder(w).Encode(models.ErrInternal(err.Error()))
}

// decodeBody decodes a JSON request body into v. An empty body leaves v
// untouched.
func decodeBody(r *http.Request, v any) error {
	if r.Body == nil || r.ContentLength == 0 {
		return nil
	}
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return models.ErrBadRequest("invalid JSON: " + err.Error())
	}
	return nil
}
