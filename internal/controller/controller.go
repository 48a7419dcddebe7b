// Package controller holds the kiosk's application state: the ticket counter,
// queue statistics, the settings tree and the active ticket design. It is the
// single owner of that state; the HTTP layer, the auto-save scheduler and the
// shutdown guard all go through it.
package controller

import (
	"log/slog"
	"sync"
	"time"

	"github.com/micro-nova/queuepi/internal/config"
	"github.com/micro-nova/queuepi/internal/events"
	"github.com/micro-nova/queuepi/internal/models"
	"github.com/micro-nova/queuepi/internal/printer"
)

// Options configures optional collaborators.
type Options struct {
	// Printer prints tickets. Nil disables Print.
	Printer printer.Driver
	// Now overrides the clock used for day rollover and ticket dates.
	Now func() time.Time
}

// Controller is the application state. All mutations go through apply(),
// which copies, mutates, persists and publishes.
type Controller struct {
	mu       sync.RWMutex
	settings models.Settings
	queue    models.QueueState

	printMu sync.Mutex
	printer printer.Driver

	store config.Store
	bus   *events.Bus
	now   func() time.Time
}

// state is the mutable part of the controller handed to apply callbacks.
type state struct {
	settings models.Settings
	queue    models.QueueState
}

// New loads settings and queue counters from store and reconciles them. The
// queue file wins when it holds a higher counter than settings, and a queue
// last updated on an earlier day starts with today_count at zero.
func New(store config.Store, bus *events.Bus, opts Options) *Controller {
	c := &Controller{
		settings: store.LoadSettings(),
		queue:    store.LoadQueue(),
		printer:  opts.Printer,
		store:    store,
		bus:      bus,
		now:      opts.Now,
	}
	if c.now == nil {
		c.now = time.Now
	}

	s := &state{settings: c.settings, queue: c.queue}
	current := s.settings.Int("current_number", models.DefaultStartNumber)
	if s.queue.CurrentNumber > current {
		slog.Info("controller: queue file ahead of settings, using queue number",
			"settings", current, "queue", s.queue.CurrentNumber)
		current = s.queue.CurrentNumber
	}
	s.setCurrent(current)

	if last, err := time.ParseInLocation(models.TimeLayout, s.queue.LastUpdate, time.Local); err == nil {
		if !sameDay(last, c.now()) {
			slog.Info("controller: new day since last update", "last_update", s.queue.LastUpdate)
			s.rollover()
		}
	}
	c.settings, c.queue = s.settings, s.queue

	slog.Info("controller: state loaded", "current_number", c.queue.CurrentNumber,
		"today_count", c.queue.TodayCount, "total_printed", c.queue.TotalPrinted)
	return c
}

// View returns the read model of the current state.
func (c *Controller) View() models.QueueView {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.viewLocked()
}

func (c *Controller) viewLocked() models.QueueView {
	return models.QueueView{
		CurrentNumber: c.queue.CurrentNumber,
		TodayCount:    c.queue.TodayCount,
		TotalPrinted:  c.queue.TotalPrinted,
		LastUpdate:    c.queue.LastUpdate,
		StartNumber:   c.settings.Int("business_rules.start_number", models.DefaultStartNumber),
		ActiveDesign:  c.settings.String("ticket_design.design_name", "default"),
		SaveCount:     c.settings.Int("auto_save.save_count", 0),
		LastSave:      c.settings.String("auto_save.last_save", ""),
	}
}

// CurrentNumber returns the in-memory ticket number.
func (c *Controller) CurrentNumber() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.queue.CurrentNumber
}

// Version returns the settings schema version.
func (c *Controller) Version() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.settings.String("version", models.SchemaVersion)
}

// Settings returns a deep copy of the settings tree.
func (c *Controller) Settings() models.Settings {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.settings.Clone()
}

// AutoSaveInterval returns the current auto-save period. Zero means auto-save
// is disabled.
func (c *Controller) AutoSaveInterval() time.Duration {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if !c.settings.Bool("auto_save.enabled", true) {
		return 0
	}
	secs := c.settings.Int("business_rules.auto_save_interval", models.DefaultAutoSaveInterval)
	return time.Duration(secs) * time.Second
}

// SaveCurrentState writes settings (with the current number mirrored in) and
// then the queue file. It reports whether the settings write succeeded.
func (c *Controller) SaveCurrentState() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.saveLocked()
}

func (c *Controller) saveLocked() bool {
	c.settings.Set("current_number", c.queue.CurrentNumber)
	if !c.store.SaveSettings(c.settings) {
		slog.Error("controller: state save failed", "current_number", c.queue.CurrentNumber)
		return false
	}
	c.store.SaveQueue(&c.queue)
	slog.Debug("controller: state saved", "current_number", c.queue.CurrentNumber,
		"save_count", c.settings.Int("auto_save.save_count", 0))
	return true
}

// WriteSnapshot writes the auto-save snapshot from the in-memory state.
func (c *Controller) WriteSnapshot() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.settings.Set("current_number", c.queue.CurrentNumber)
	return c.store.WriteSnapshot(c.settings, c.queue)
}

// apply is the core mutation primitive. It:
//  1. Acquires the write lock
//  2. Copies the current state
//  3. Calls fn to modify the copy (fn may return an error to abort)
//  4. If fn succeeds: swaps the copy in, saves, publishes an event
func (c *Controller) apply(kind string, fn func(*state) error) (models.QueueView, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	next := state{settings: c.settings.Clone(), queue: c.queue}
	if err := fn(&next); err != nil {
		return c.viewLocked(), err
	}

	c.settings, c.queue = next.settings, next.queue
	c.saveLocked()
	view := c.viewLocked()
	c.publish(kind, view)
	return view, nil
}

func (c *Controller) publish(kind string, view models.QueueView) {
	if c.bus == nil {
		return
	}
	c.bus.Publish(models.Event{Kind: kind, Queue: view})
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
