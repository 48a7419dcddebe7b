package controller_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/micro-nova/queuepi/internal/config"
	"github.com/micro-nova/queuepi/internal/controller"
	"github.com/micro-nova/queuepi/internal/events"
	"github.com/micro-nova/queuepi/internal/models"
	"github.com/micro-nova/queuepi/internal/printer"
)

var testNow = time.Date(2024, 3, 1, 12, 0, 0, 0, time.Local)

func seededStore(t *testing.T, mutate func(models.Settings)) *config.MemStore {
	t.Helper()
	store := config.NewMemStore()
	if mutate != nil {
		s := store.LoadSettings()
		mutate(s)
		if !store.SaveSettings(s) {
			t.Fatal("seeding settings failed")
		}
	}
	return store
}

func newTestController(t *testing.T, store config.Store, p printer.Driver) *controller.Controller {
	t.Helper()
	return controller.New(store, events.NewBus(), controller.Options{
		Printer: p,
		Now:     func() time.Time { return testNow },
	})
}

func TestController_InitialState(t *testing.T) {
	ctrl := newTestController(t, config.NewMemStore(), nil)
	v := ctrl.View()
	if v.CurrentNumber != models.DefaultStartNumber {
		t.Errorf("CurrentNumber = %d, want %d", v.CurrentNumber, models.DefaultStartNumber)
	}
	if v.ActiveDesign != "default" {
		t.Errorf("ActiveDesign = %q, want default", v.ActiveDesign)
	}
}

func TestController_CounterMonotonicity(t *testing.T) {
	const start = 5
	store := seededStore(t, func(s models.Settings) {
		s.Set("business_rules.start_number", start)
		s.Set("current_number", start)
	})
	ctrl := newTestController(t, store, nil)

	prev := ctrl.CurrentNumber()
	for i := 0; i < 20; i++ {
		n := ctrl.Next().CurrentNumber
		if n <= prev {
			t.Fatalf("Next #%d: %d not greater than %d", i, n, prev)
		}
		prev = n
	}
	for i := 0; i < 40; i++ {
		if n := ctrl.Prev().CurrentNumber; n < start {
			t.Fatalf("Prev went below start_number: %d", n)
		}
	}
	if n := ctrl.CurrentNumber(); n != start {
		t.Errorf("after many Prev = %d, want %d", n, start)
	}

	ctrl.Next()
	ctrl.Next()
	if n := ctrl.Reset().CurrentNumber; n != start {
		t.Errorf("Reset = %d, want %d", n, start)
	}
}

func TestController_Increment(t *testing.T) {
	store := seededStore(t, func(s models.Settings) {
		s.Set("business_rules.start_number", 10)
		s.Set("business_rules.increment_by", 5)
		s.Set("business_rules.max_number", 20)
		s.Set("current_number", 10)
	})
	ctrl := newTestController(t, store, nil)

	want := []int{15, 20, 25, 30}
	for i, w := range want {
		if got := ctrl.Next().CurrentNumber; got != w {
			t.Errorf("Next #%d = %d, want %d", i, got, w)
		}
	}
	if got := ctrl.Prev().CurrentNumber; got != 25 {
		t.Errorf("Prev = %d, want 25", got)
	}
}

func TestController_NextPastMaxNumber(t *testing.T) {
	store := seededStore(t, func(s models.Settings) {
		s.Set("business_rules.start_number", 1)
		s.Set("business_rules.increment_by", 1)
		s.Set("business_rules.max_number", 3)
		s.Set("current_number", 3)
	})
	ctrl := newTestController(t, store, nil)

	prev := ctrl.View().CurrentNumber
	for i := 0; i < 3; i++ {
		got := ctrl.Next().CurrentNumber
		if got <= prev {
			t.Fatalf("Next #%d = %d, not above %d", i, got, prev)
		}
		prev = got
	}
	if prev != 6 {
		t.Errorf("current_number = %d, want 6", prev)
	}
	if got := store.LoadQueue().CurrentNumber; got != 6 {
		t.Errorf("stored current_number = %d, want 6", got)
	}
}

func TestController_MutationsPersist(t *testing.T) {
	store := config.NewMemStore()
	ctrl := newTestController(t, store, nil)

	ctrl.Next()
	ctrl.Next()

	if got := store.LoadSettings().Int("current_number", 0); got != 3 {
		t.Errorf("stored settings current_number = %d, want 3", got)
	}
	if got := store.LoadQueue().CurrentNumber; got != 3 {
		t.Errorf("stored queue current_number = %d, want 3", got)
	}
	snap, err := store.ReadSnapshot()
	if err != nil {
		t.Fatalf("ReadSnapshot: %v", err)
	}
	if snap.CurrentNumber != 3 {
		t.Errorf("snapshot current_number = %d, want 3", snap.CurrentNumber)
	}
}

func TestController_QueueFileAheadWins(t *testing.T) {
	store := seededStore(t, func(s models.Settings) { s.Set("current_number", 4) })
	q := models.QueueState{CurrentNumber: 40, TodayCount: 2, TotalPrinted: 9}
	store.SaveQueue(&q)

	ctrl := newTestController(t, store, nil)
	if got := ctrl.CurrentNumber(); got != 40 {
		t.Errorf("CurrentNumber = %d, want 40 from queue file", got)
	}
	if got := ctrl.Settings().Int("current_number", 0); got != 40 {
		t.Errorf("settings mirror = %d, want 40", got)
	}
}

func TestController_NewDayResetsTodayCount(t *testing.T) {
	store := config.NewMemStore()
	q := models.QueueState{CurrentNumber: 1, TodayCount: 12, TotalPrinted: 50}
	store.SaveQueue(&q) // stamped with today's date

	ctrl := controller.New(store, nil, controller.Options{
		Now: func() time.Time { return time.Now().AddDate(0, 0, 1) },
	})
	v := ctrl.View()
	if v.TodayCount != 0 {
		t.Errorf("TodayCount = %d, want 0 on a new day", v.TodayCount)
	}
	if v.TotalPrinted != 50 {
		t.Errorf("TotalPrinted = %d, want 50", v.TotalPrinted)
	}
}

func TestController_RolloverDay(t *testing.T) {
	store := seededStore(t, func(s models.Settings) {
		s.Set("business_rules.reset_at_midnight", true)
		s.Set("current_number", 30)
	})
	q := models.QueueState{CurrentNumber: 30, TodayCount: 8, TotalPrinted: 8}
	store.SaveQueue(&q)
	ctrl := controller.New(store, nil, controller.Options{})

	v := ctrl.RolloverDay()
	if v.TodayCount != 0 || v.CurrentNumber != models.DefaultStartNumber {
		t.Errorf("after rollover = %+v", v)
	}
	if v.TotalPrinted != 8 {
		t.Errorf("TotalPrinted = %d, want 8", v.TotalPrinted)
	}
}

func TestController_Print(t *testing.T) {
	store := config.NewMemStore()
	mock := printer.NewMock()
	ctrl := newTestController(t, store, mock)

	v, err := ctrl.Print(context.Background())
	if err != nil {
		t.Fatalf("Print: %v", err)
	}
	if got := mock.Printed(); len(got) != 1 || got[0] != 1 {
		t.Errorf("printed = %v, want [1]", got)
	}
	if v.TodayCount != 1 || v.TotalPrinted != 1 {
		t.Errorf("counts = %d/%d, want 1/1", v.TodayCount, v.TotalPrinted)
	}
	if v.CurrentNumber != 2 {
		t.Errorf("CurrentNumber = %d, want 2 after auto-increment", v.CurrentNumber)
	}
	if got := store.LoadQueue(); got.TotalPrinted != 1 || got.CurrentNumber != 2 {
		t.Errorf("stored queue = %+v", got)
	}
}

func TestController_PrintWithoutAutoIncrement(t *testing.T) {
	store := seededStore(t, func(s models.Settings) {
		s.Set("business_rules.auto_increment_after_print", false)
	})
	ctrl := newTestController(t, store, printer.NewMock())

	v, err := ctrl.Print(context.Background())
	if err != nil {
		t.Fatalf("Print: %v", err)
	}
	if v.CurrentNumber != 1 || v.TodayCount != 1 {
		t.Errorf("view = %+v, want number 1 and one printed", v)
	}
}

func TestController_PrintFailureChangesNothing(t *testing.T) {
	mock := printer.NewMock()
	mock.SetFail(true)
	ctrl := newTestController(t, config.NewMemStore(), mock)

	v, err := ctrl.Print(context.Background())
	var appErr *models.AppError
	if !errors.As(err, &appErr) || appErr.Status != 502 {
		t.Fatalf("Print err = %v, want printer AppError", err)
	}
	if v.CurrentNumber != 1 || v.TodayCount != 0 || v.TotalPrinted != 0 {
		t.Errorf("state changed after failed print: %+v", v)
	}
}

func TestController_PrintWithoutPrinter(t *testing.T) {
	ctrl := newTestController(t, config.NewMemStore(), nil)
	if _, err := ctrl.Print(context.Background()); err == nil {
		t.Error("Print without printer should fail")
	}
}

func TestController_SaveCurrentStateFailure(t *testing.T) {
	store := config.NewMemStore()
	ctrl := newTestController(t, store, nil)
	store.SetFailSave(true)

	ctrl.Next()
	if ctrl.SaveCurrentState() {
		t.Error("SaveCurrentState should report failure")
	}
	if rec := store.Emergency(); rec == nil || rec.CurrentNumber != 2 {
		t.Errorf("emergency record = %+v, want current_number 2", rec)
	}
}

func TestController_WriteSnapshotCountsSaves(t *testing.T) {
	store := config.NewMemStore()
	ctrl := newTestController(t, store, nil)

	before := ctrl.View().SaveCount
	ctrl.WriteSnapshot()
	ctrl.WriteSnapshot()
	if got := ctrl.View().SaveCount; got != before+2 {
		t.Errorf("SaveCount = %d, want %d", got, before+2)
	}
}

func TestController_AutoSaveInterval(t *testing.T) {
	ctrl := newTestController(t, config.NewMemStore(), nil)
	if got := ctrl.AutoSaveInterval(); got != 10*time.Second {
		t.Errorf("AutoSaveInterval = %v, want 10s", got)
	}
	if _, err := ctrl.PatchSettings(map[string]any{"business_rules": map[string]any{"auto_save_interval": 3}}); err != nil {
		t.Fatalf("PatchSettings: %v", err)
	}
	if got := ctrl.AutoSaveInterval(); got != 3*time.Second {
		t.Errorf("AutoSaveInterval = %v, want 3s", got)
	}
	if _, err := ctrl.PatchSettings(map[string]any{"auto_save": map[string]any{"enabled": false}}); err != nil {
		t.Fatalf("PatchSettings: %v", err)
	}
	if got := ctrl.AutoSaveInterval(); got != 0 {
		t.Errorf("AutoSaveInterval with auto-save disabled = %v, want 0", got)
	}
}

func TestController_PatchSettings(t *testing.T) {
	tests := []struct {
		name    string
		patch   map[string]any
		wantErr bool
	}{
		{"company name", map[string]any{"company_name": "New Co"}, false},
		{"unknown key ignored", map[string]any{"no_such_key": 1}, false},
		{"zero increment", map[string]any{"business_rules": map[string]any{"increment_by": 0}}, true},
		{"max below start", map[string]any{"business_rules": map[string]any{"start_number": 50, "max_number": 10}}, true},
		{"negative start", map[string]any{"business_rules": map[string]any{"start_number": -1}}, true},
		{"scalar for section", map[string]any{"business_rules": 5}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := newTestController(t, config.NewMemStore(), nil)
			got, err := ctrl.PatchSettings(tt.patch)
			if (err != nil) != tt.wantErr {
				t.Fatalf("PatchSettings err = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				if ctrl.Settings().Int("business_rules.increment_by", 0) != models.DefaultIncrementBy {
					t.Error("rejected patch modified settings")
				}
				return
			}
			if _, ok := got["no_such_key"]; ok {
				t.Error("unknown key added to settings")
			}
		})
	}
}

func TestController_PatchRaisesStartNumber(t *testing.T) {
	ctrl := newTestController(t, config.NewMemStore(), nil)
	if _, err := ctrl.PatchSettings(map[string]any{"business_rules": map[string]any{"start_number": 100}}); err != nil {
		t.Fatalf("PatchSettings: %v", err)
	}
	if got := ctrl.CurrentNumber(); got != 100 {
		t.Errorf("CurrentNumber = %d, want clamped to 100", got)
	}
}

func TestController_Designs(t *testing.T) {
	store := config.NewMemStore()
	ctrl := newTestController(t, store, nil)

	if _, err := ctrl.SaveDesign("Morning", map[string]any{"number_prefix": "AM-"}); err != nil {
		t.Fatalf("SaveDesign: %v", err)
	}
	if got := ctrl.View().ActiveDesign; got != "Morning" {
		t.Errorf("ActiveDesign = %q, want Morning", got)
	}
	saved := store.LoadTicketDesigns()["Morning"]
	if saved.Elements["number"].Text != "AM-" {
		t.Errorf("number element text = %q, want AM-", saved.Elements["number"].Text)
	}

	if _, err := ctrl.PatchSettings(map[string]any{"ticket_design": map[string]any{"number_prefix": "X"}}); err != nil {
		t.Fatalf("PatchSettings: %v", err)
	}
	if _, err := ctrl.LoadDesign("Morning"); err != nil {
		t.Fatalf("LoadDesign: %v", err)
	}
	if got := ctrl.Settings().String("ticket_design.number_prefix", ""); got != "AM-" {
		t.Errorf("number_prefix after load = %q, want AM-", got)
	}

	if designs := ctrl.Designs(); len(designs) != 1 {
		t.Errorf("Designs() has %d entries, want 1", len(designs))
	} else if _, ok := designs["Morning"]; !ok {
		t.Error("Designs() missing Morning")
	}
	if err := ctrl.DeleteDesign("Morning"); err != nil {
		t.Fatalf("DeleteDesign: %v", err)
	}
	if _, err := ctrl.LoadDesign("Morning"); err == nil {
		t.Error("LoadDesign after delete should fail")
	}
}

func TestController_DesignErrors(t *testing.T) {
	ctrl := newTestController(t, config.NewMemStore(), nil)

	_, err := ctrl.SaveDesign("../etc", nil)
	var appErr *models.AppError
	if !errors.As(err, &appErr) || appErr.Status != 400 {
		t.Errorf("SaveDesign bad name err = %v, want 400", err)
	}
	err = ctrl.DeleteDesign("missing")
	if !errors.As(err, &appErr) || appErr.Status != 404 {
		t.Errorf("DeleteDesign missing err = %v, want 404", err)
	}
}

func TestController_PublishesEvents(t *testing.T) {
	bus := events.NewBus()
	ctrl := controller.New(config.NewMemStore(), bus, controller.Options{})
	ch := bus.Subscribe("test")
	defer bus.Unsubscribe("test")

	ctrl.Next()
	select {
	case ev := <-ch:
		if ev.Kind != models.EventQueue || ev.Queue.CurrentNumber != 2 {
			t.Errorf("event = %+v", ev)
		}
	case <-time.After(time.Second):
		t.Fatal("no event published")
	}
}

func TestController_CheckPassword(t *testing.T) {
	ctrl := newTestController(t, config.NewMemStore(), nil)
	if !ctrl.CheckPassword(models.DefaultPassword) {
		t.Error("default password rejected")
	}
	if ctrl.CheckPassword("wrong") {
		t.Error("wrong password accepted")
	}
}
