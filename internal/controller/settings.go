package controller

import (
	"crypto/subtle"
	"fmt"
	"strings"

	"github.com/micro-nova/queuepi/internal/models"
)

// PatchSettings deep-merges patch onto the settings. Keys the schema does not
// know are ignored; a non-object value for an object section is rejected. Business rules are validated before anything is saved.
func (c *Controller) PatchSettings(patch map[string]any) (models.Settings, error) {
	_, err := c.apply(models.EventSettings, func(s *state) error {
		if skipped := models.DeepMerge(s.settings, patch); len(skipped) > 0 {
			return models.ErrBadRequest("expected an object for " + strings.Join(skipped, ", "))
		}
		if err := validateRules(s.settings); err != nil {
			return err
		}
		// A patched current_number is adopted; otherwise the queue keeps its own.
		if _, ok := patch["current_number"]; ok {
			s.setCurrent(s.settings.Int("current_number", s.queue.CurrentNumber))
		} else {
			s.setCurrent(s.queue.CurrentNumber)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return c.Settings(), nil
}

func validateRules(s models.Settings) error {
	start := s.Int("business_rules.start_number", -1)
	if start < 0 {
		return models.ErrBadRequest("business_rules.start_number must be a non-negative integer")
	}
	if inc := s.Int("business_rules.increment_by", 0); inc < 1 {
		return models.ErrBadRequest("business_rules.increment_by must be at least 1")
	}
	if maxNum := s.Int("business_rules.max_number", 0); maxNum < start {
		return models.ErrBadRequest(fmt.Sprintf("business_rules.max_number must be at least %d", start))
	}
	if iv := s.Int("business_rules.auto_save_interval", -1); iv < 0 {
		return models.ErrBadRequest("business_rules.auto_save_interval must be a non-negative integer")
	}
	return nil
}

// CheckPassword reports whether pw matches system_password.
func (c *Controller) CheckPassword(pw string) bool {
	c.mu.RLock()
	want := c.settings.String("system_password", models.DefaultPassword)
	c.mu.RUnlock()
	return subtle.ConstantTimeCompare([]byte(pw), []byte(want)) == 1
}
