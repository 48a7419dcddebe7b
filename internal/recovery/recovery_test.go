package recovery_test

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/micro-nova/queuepi/internal/config"
	"github.com/micro-nova/queuepi/internal/models"
	"github.com/micro-nova/queuepi/internal/recovery"
)

func setup(t *testing.T) (*config.JSONStore, string) {
	t.Helper()
	dir := t.TempDir()
	store, err := config.NewJSONStore(dir)
	if err != nil {
		t.Fatalf("NewJSONStore: %v", err)
	}
	return store, dir
}

func writeJSON(t *testing.T, path string, v any, mtime time.Time) {
	t.Helper()
	data, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if err := os.Chtimes(path, mtime, mtime); err != nil {
		t.Fatalf("Chtimes: %v", err)
	}
}

func snapshot(company string, current int, queue *models.QueueState) models.AutoSaveSnapshot {
	return models.AutoSaveSnapshot{
		Timestamp:     "2024-03-01 10:00:00",
		Settings:      models.Settings{"company_name": company, "current_number": current},
		Queue:         queue,
		CurrentNumber: current,
	}
}

var (
	t1 = time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	t2 = t1.Add(time.Minute)
)

func TestResolve_NoSnapshot(t *testing.T) {
	store, dir := setup(t)
	writeJSON(t, filepath.Join(dir, config.SettingsFileName), map[string]any{"company_name": "Canon"}, t1)

	res := recovery.Resolve(store)
	if res.Recovered {
		t.Error("Recovered = true with no snapshot")
	}
	if res.Reason != recovery.ReasonNoSnapshot {
		t.Errorf("Reason = %q, want %q", res.Reason, recovery.ReasonNoSnapshot)
	}
}

func TestResolve_NewerSnapshotWins(t *testing.T) {
	store, dir := setup(t)
	writeJSON(t, filepath.Join(dir, config.SettingsFileName), map[string]any{
		"company_name": "Canon",
		"title":        "Kept Title",
	}, t1)
	q := models.QueueState{CurrentNumber: 58, TodayCount: 7, TotalPrinted: 300, LastUpdate: "2024-03-01 10:00:00"}
	writeJSON(t, filepath.Join(dir, config.AutoSaveFileName), snapshot("X", 58, &q), t2)

	res := recovery.Resolve(store)
	if !res.Recovered {
		t.Fatalf("Recovered = false, reason %q", res.Reason)
	}

	got := store.LoadSettings()
	if got.String("company_name", "") != "X" {
		t.Errorf("company_name = %q, want X", got.String("company_name", ""))
	}
	if got.String("title", "") != "Kept Title" {
		t.Errorf("title = %q, canonical value should survive", got.String("title", ""))
	}
	if got.Int("current_number", 0) != 58 {
		t.Errorf("current_number = %d, want 58", got.Int("current_number", 0))
	}
	if _, ok := got.Lookup("business_rules.max_number"); !ok {
		t.Error("recovered settings lost default keys")
	}
	if gotQ := store.LoadQueue(); gotQ != q {
		t.Errorf("queue = %+v, want %+v", gotQ, q)
	}
	if !store.HasSnapshot() {
		t.Error("Resolve must not delete the snapshot")
	}
}

func TestResolve_StaleSnapshotIgnored(t *testing.T) {
	store, dir := setup(t)
	settingsPath := filepath.Join(dir, config.SettingsFileName)
	writeJSON(t, settingsPath, map[string]any{"company_name": "Canon"}, t2)
	writeJSON(t, filepath.Join(dir, config.AutoSaveFileName), snapshot("X", 3, nil), t1)
	before, err := os.ReadFile(settingsPath)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}

	res := recovery.Resolve(store)
	if res.Recovered {
		t.Error("stale snapshot recovered")
	}
	if res.Reason != recovery.ReasonStale {
		t.Errorf("Reason = %q, want %q", res.Reason, recovery.ReasonStale)
	}
	after, err := os.ReadFile(settingsPath)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if string(before) != string(after) {
		t.Error("canonical file changed for a stale snapshot")
	}
	if !store.HasSnapshot() {
		t.Error("stale snapshot should be left in place")
	}
}

func TestResolve_EqualTimesKeepCanonical(t *testing.T) {
	store, dir := setup(t)
	writeJSON(t, filepath.Join(dir, config.SettingsFileName), map[string]any{"company_name": "Canon"}, t1)
	writeJSON(t, filepath.Join(dir, config.AutoSaveFileName), snapshot("X", 3, nil), t1)

	if res := recovery.Resolve(store); res.Recovered {
		t.Error("equal mtimes should not recover")
	}
	if got := store.LoadSettings().String("company_name", ""); got != "Canon" {
		t.Errorf("company_name = %q, want Canon", got)
	}
}

func TestResolve_UnreadableSnapshot(t *testing.T) {
	store, dir := setup(t)
	writeJSON(t, filepath.Join(dir, config.SettingsFileName), map[string]any{"company_name": "Canon"}, t1)
	snapPath := filepath.Join(dir, config.AutoSaveFileName)
	if err := os.WriteFile(snapPath, []byte("{truncated"), 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if err := os.Chtimes(snapPath, t2, t2); err != nil {
		t.Fatalf("Chtimes: %v", err)
	}

	res := recovery.Resolve(store)
	if res.Recovered || res.Reason != recovery.ReasonUnreadable {
		t.Errorf("Resolve = %+v, want unreadable without recovery", res)
	}
	if got := store.LoadSettings().String("company_name", ""); got != "Canon" {
		t.Errorf("company_name = %q, want Canon", got)
	}
}

func TestResolve_MissingSettingsUsesSnapshot(t *testing.T) {
	store, dir := setup(t)
	writeJSON(t, filepath.Join(dir, config.AutoSaveFileName), snapshot("Only Snapshot", 12, nil), t1)

	res := recovery.Resolve(store)
	if !res.Recovered || res.Reason != recovery.ReasonNoSettings {
		t.Fatalf("Resolve = %+v", res)
	}
	if got := store.LoadSettings().String("company_name", ""); got != "Only Snapshot" {
		t.Errorf("company_name = %q", got)
	}
	// No queue payload: queue file untouched.
	if q := store.LoadQueue(); q != models.DefaultQueue() {
		t.Errorf("queue = %+v, want default", q)
	}
}
