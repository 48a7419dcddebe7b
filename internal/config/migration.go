package config

import (
	"log/slog"

	"github.com/micro-nova/queuepi/internal/models"
)

// migrateSettings repairs business rules that would stall the counter. It
// runs after the merge, so every key is present.
func migrateSettings(s models.Settings) {
	start := s.Int("business_rules.start_number", models.DefaultStartNumber)
	if start < 0 {
		slog.Warn("config: negative start_number, fixing", "start_number", start)
		start = models.DefaultStartNumber
		s.Set("business_rules.start_number", start)
	}

	if inc := s.Int("business_rules.increment_by", models.DefaultIncrementBy); inc < 1 {
		slog.Warn("config: invalid increment_by, fixing", "increment_by", inc)
		s.Set("business_rules.increment_by", models.DefaultIncrementBy)
	}

	if maxNum := s.Int("business_rules.max_number", models.DefaultMaxNumber); maxNum < start {
		slog.Warn("config: max_number below start_number, fixing", "max_number", maxNum, "start_number", start)
		s.Set("business_rules.max_number", models.DefaultMaxNumber)
	}

	if cur := s.Int("current_number", start); cur < start {
		slog.Warn("config: current_number below start_number, fixing", "current_number", cur)
		s.Set("current_number", start)
	}
}

// migrateQueue clamps counters that cannot be negative.
func migrateQueue(q *models.QueueState) {
	if q.TodayCount < 0 {
		q.TodayCount = 0
	}
	if q.TotalPrinted < 0 {
		q.TotalPrinted = 0
	}
	if q.CurrentNumber < 0 {
		slog.Warn("config: negative queue current_number, fixing", "current_number", q.CurrentNumber)
		q.CurrentNumber = models.DefaultStartNumber
	}
}
