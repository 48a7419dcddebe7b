package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/micro-nova/queuepi/internal/auth"
	"github.com/micro-nova/queuepi/internal/identity"
)

// NewRouter creates and returns the main HTTP router. The archive routes are
// mounted when archives is set. shutdown, when set, is called by
// POST /api/shutdown to begin a graceful close.
func NewRouter(ctrl Controller, bus EventBus, info identity.Info, archives Archiver, shutdown func()) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(corsMiddleware)
	r.Use(middleware.CleanPath)

	h := &Handlers{ctrl: ctrl, events: bus, info: info, archives: archives, shutdown: shutdown}
	gate := auth.NewGate(ctrl, 10*time.Second, 5)

	r.Get("/api", h.getState)
	r.Get("/api/", h.getState)
	r.Get("/api/info", h.getInfo)

	// Queue
	r.Post("/api/queue/next", h.next)
	r.Post("/api/queue/prev", h.prev)
	r.Post("/api/queue/reset", h.reset)
	r.Post("/api/queue/print", h.print)
	r.Post("/api/save", h.save)

	r.Get("/api/settings", h.getSettings)
	r.Get("/api/designs", h.getDesigns)
	r.Get("/api/preview.png", h.preview)
	r.Get("/api/backups", h.getBackups)
	if archives != nil {
		r.Get("/api/archives", h.getArchives)
	}

	// SSE
	r.Get("/api/subscribe", h.sseEvents)

	// Admin routes
	r.Group(func(r chi.Router) {
		r.Use(gate.Middleware)

		r.Patch("/api/settings", h.patchSettings)
		r.Post("/api/designs", h.saveDesign)
		r.Post("/api/designs/{name}/load", h.loadDesign)
		r.Delete("/api/designs/{name}", h.deleteDesign)
		if archives != nil {
			r.Post("/api/archives", h.createArchive)
		}
		if shutdown != nil {
			r.Post("/api/shutdown", h.shutdownNow)
		}
	})

	return r
}

// corsMiddleware allows the kiosk UI to call the API from its own origin.
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PATCH, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, "+auth.HeaderName)
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
