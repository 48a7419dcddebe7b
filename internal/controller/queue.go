package controller

import (
	"context"
	"log/slog"

	"github.com/micro-nova/queuepi/internal/models"
	"github.com/micro-nova/queuepi/internal/printer"
)

// rules returns start_number, increment_by and max_number.
func (s *state) rules() (start, inc, maxNum int) {
	start = s.settings.Int("business_rules.start_number", models.DefaultStartNumber)
	inc = s.settings.Int("business_rules.increment_by", models.DefaultIncrementBy)
	if inc < 1 {
		inc = models.DefaultIncrementBy
	}
	maxNum = s.settings.Int("business_rules.max_number", models.DefaultMaxNumber)
	return start, inc, maxNum
}

// setCurrent stores n in the queue and the settings mirror, never below
// start_number.
func (s *state) setCurrent(n int) {
	start, _, _ := s.rules()
	if n < start {
		n = start
	}
	s.queue.CurrentNumber = n
	s.settings.Set("current_number", n)
}

// advance never lowers the counter. Passing max_number is logged once and
// left to the operator, who can Reset.
func (s *state) advance() {
	_, inc, maxNum := s.rules()
	cur := s.queue.CurrentNumber
	n := cur + inc
	if cur <= maxNum && n > maxNum {
		slog.Warn("controller: counter passed max_number", "max_number", maxNum, "current_number", n)
	}
	s.setCurrent(n)
}

func (s *state) retreat() {
	_, inc, _ := s.rules()
	s.setCurrent(s.queue.CurrentNumber - inc)
}

func (s *state) reset() {
	start, _, _ := s.rules()
	s.setCurrent(start)
}

// rollover starts a new day: today_count goes to zero and, when
// reset_at_midnight is set, the counter returns to start_number.
func (s *state) rollover() {
	s.queue.TodayCount = 0
	if s.settings.Bool("business_rules.reset_at_midnight", false) {
		s.reset()
	}
}

// Next advances the counter by increment_by. The counter always goes up,
// including past max_number.
func (c *Controller) Next() models.QueueView {
	view, _ := c.apply(models.EventQueue, func(s *state) error {
		s.advance()
		return nil
	})
	return view
}

// Prev moves the counter back by increment_by, stopping at start_number.
func (c *Controller) Prev() models.QueueView {
	view, _ := c.apply(models.EventQueue, func(s *state) error {
		s.retreat()
		return nil
	})
	return view
}

// Reset sets the counter to start_number.
func (c *Controller) Reset() models.QueueView {
	view, _ := c.apply(models.EventQueue, func(s *state) error {
		s.reset()
		return nil
	})
	slog.Info("controller: counter reset", "current_number", view.CurrentNumber)
	return view
}

// RolloverDay is called at local midnight.
func (c *Controller) RolloverDay() models.QueueView {
	view, _ := c.apply(models.EventQueue, func(s *state) error {
		s.rollover()
		return nil
	})
	slog.Info("controller: day rolled over", "current_number", view.CurrentNumber)
	return view
}

// Print prints the current ticket. On success the daily and total counters
// go up, the counter advances when auto_increment_after_print is set, and the
// state is saved. A failed print changes nothing.
func (c *Controller) Print(ctx context.Context) (models.QueueView, error) {
	if c.printer == nil {
		return c.View(), models.ErrPrinter("no printer configured")
	}
	c.printMu.Lock()
	defer c.printMu.Unlock()

	c.mu.RLock()
	ticket := printer.Ticket{
		Number:   c.queue.CurrentNumber,
		Settings: c.settings.Clone(),
		Time:     c.now(),
	}
	c.mu.RUnlock()

	if err := c.printer.Print(ctx, ticket); err != nil {
		slog.Error("controller: print failed", "number", ticket.Number, "err", err)
		return c.View(), models.ErrPrinter("failed to print: " + err.Error())
	}

	return c.apply(models.EventQueue, func(s *state) error {
		s.queue.TodayCount++
		s.queue.TotalPrinted++
		if s.settings.Bool("business_rules.auto_increment_after_print", true) {
			s.advance()
		}
		return nil
	})
}
