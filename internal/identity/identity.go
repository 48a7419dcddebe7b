// Package identity provides system identity information for the kiosk.
package identity

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"
)

// DefaultVersion is the fallback version string when metadata.json is not found.
const DefaultVersion = "1.0.0"

// Info holds system identity information.
type Info struct {
	Hostname  string    `json:"hostname"`
	Version   string    `json:"version"`  // software version string e.g. "1.0.0"
	DataDir   string    `json:"data_dir"` // where settings and queue files live
	StartedAt time.Time `json:"started_at"`
}

// Get collects identity information for a kiosk using dataDir.
func Get(dataDir string) Info {
	return Info{
		Hostname:  GetHostname(),
		Version:   GetVersionFromDir(dataDir),
		DataDir:   dataDir,
		StartedAt: time.Now(),
	}
}

// GetHostname returns the system hostname.
func GetHostname() string {
	h, err := os.Hostname()
	if err != nil || h == "" {
		return "queuepi"
	}
	return h
}

// GetVersionFromDir reads the version from dir/metadata.json.
// Falls back to DefaultVersion if the file is missing or unreadable.
func GetVersionFromDir(dir string) string {
	data, err := os.ReadFile(filepath.Join(dir, "metadata.json"))
	if err != nil {
		return DefaultVersion
	}

	var meta map[string]any
	if err := json.Unmarshal(data, &meta); err != nil {
		return DefaultVersion
	}

	if v, ok := meta["version"].(string); ok && v != "" {
		return v
	}
	return DefaultVersion
}
