package controller

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/micro-nova/queuepi/internal/config"
	"github.com/micro-nova/queuepi/internal/models"
)

// Designs returns the saved designs keyed by name.
func (c *Controller) Designs() map[string]models.TicketDesign {
	return c.store.LoadTicketDesigns()
}

// SaveDesign stores a named design. A nil td saves the active ticket_design.
// The saved design becomes the active one.
func (c *Controller) SaveDesign(name string, td map[string]any) (models.TicketDesign, error) {
	if err := config.ValidateDesignName(name); err != nil {
		return models.TicketDesign{}, designError(err)
	}

	var saved models.TicketDesign
	_, err := c.apply(models.EventDesigns, func(s *state) error {
		active, _ := s.settings.Map("ticket_design")
		merged := models.DefaultTicketDesign()
		models.DeepMerge(merged, active)
		if td != nil {
			models.DeepMerge(merged, td)
		}
		stamp := models.FormatTime(c.now())
		merged["design_name"] = name
		merged["design_timestamp"] = stamp

		saved = models.TicketDesign{
			Name:         name,
			Timestamp:    stamp,
			TicketDesign: merged,
			Elements:     models.ElementsFromDesign(merged),
		}
		if err := c.store.SaveTicketDesign(name, saved); err != nil {
			return designError(err)
		}
		s.settings.Set("ticket_design", map[string]any(models.Settings(merged).Clone()))
		return nil
	})
	if err != nil {
		return models.TicketDesign{}, err
	}
	slog.Info("controller: design saved", "design", name)
	return saved, nil
}

// LoadDesign makes a saved design the active ticket_design.
func (c *Controller) LoadDesign(name string) (models.QueueView, error) {
	d, ok := c.store.LoadTicketDesigns()[name]
	if !ok {
		return c.View(), models.ErrNotFound(fmt.Sprintf("design %q not found", name))
	}
	view, err := c.apply(models.EventDesigns, func(s *state) error {
		td := models.DefaultTicketDesign()
		models.DeepMerge(td, d.TicketDesign)
		td["design_name"] = name
		s.settings.Set("ticket_design", td)
		return nil
	})
	if err == nil {
		slog.Info("controller: design loaded", "design", name)
	}
	return view, err
}

// DeleteDesign removes a saved design. The active ticket_design is kept.
func (c *Controller) DeleteDesign(name string) error {
	if err := c.store.DeleteTicketDesign(name); err != nil {
		return designError(err)
	}
	c.publish(models.EventDesigns, c.View())
	return nil
}

// NotifyDesignsChanged publishes a designs event, e.g. when files change on
// disk outside the kiosk.
func (c *Controller) NotifyDesignsChanged(name string) {
	if c.bus == nil {
		return
	}
	c.bus.Publish(models.Event{Kind: models.EventDesigns, Queue: c.View(), Design: name})
}

// Backups lists the rotated backup files, oldest first.
func (c *Controller) Backups() ([]string, error) {
	return c.store.ListBackups()
}

func designError(err error) error {
	switch {
	case errors.Is(err, config.ErrInvalidDesignName):
		return models.ErrBadRequest(err.Error())
	case errors.Is(err, config.ErrDesignNotFound):
		return models.ErrNotFound(err.Error())
	default:
		return models.ErrInternal(err.Error())
	}
}
