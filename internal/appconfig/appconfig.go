// Package appconfig loads process-level configuration for the kiosk: where
// data lives, which address the control surface binds, and how the printer
// is reached.
//
// Configuration comes from an optional YAML file named by the --config flag
// or the QUEUEPI_CONFIG environment variable. Values in the file overlay
// Default(); command-line flags overlay the file.
package appconfig

import (
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// EnvVar names the environment variable holding the config file path.
const EnvVar = "QUEUEPI_CONFIG"

// Config is the process configuration.
type Config struct {
	// DataDir holds settings.json, queue_data.json, backups and designs.
	DataDir string `yaml:"data_dir"`

	// LogsDir receives system.log.
	LogsDir string `yaml:"logs_dir"`

	// ListenAddr is the control surface address. Must be loopback.
	ListenAddr string `yaml:"listen_addr"`

	// Debug enables debug logging.
	Debug bool `yaml:"debug"`

	Printer PrinterConfig `yaml:"printer"`
	Archive ArchiveConfig `yaml:"archive"`
}

// PrinterConfig selects and configures the ticket printer.
type PrinterConfig struct {
	// Port is the serial device. Default: /dev/ttyUSB0
	Port string `yaml:"port"`

	// BaudRate for the serial link. Default: 9600
	BaudRate int `yaml:"baud_rate"`

	// Mock prints to memory instead of a device.
	Mock bool `yaml:"mock"`
}

// ArchiveConfig configures the daily data-directory archive.
type ArchiveConfig struct {
	// Dir receives the tar.gz archives. Empty disables archiving.
	Dir string `yaml:"dir"`

	// KeepDays is how long archives are kept.
	KeepDays int `yaml:"keep_days"`
}

// Default returns the default configuration, rooted at ~/.queuepi.
func Default() *Config {
	home, _ := os.UserHomeDir()
	root := filepath.Join(home, ".queuepi")
	return &Config{
		DataDir:    filepath.Join(root, "data"),
		LogsDir:    filepath.Join(root, "logs"),
		ListenAddr: "127.0.0.1:8080",
		Printer: PrinterConfig{
			Port:     "/dev/ttyUSB0",
			BaudRate: 9600,
		},
		Archive: ArchiveConfig{
			Dir:      filepath.Join(root, "archives"),
			KeepDays: 14,
		},
	}
}

// Load returns Default() overlaid with the file at path. An empty path falls
// back to QUEUEPI_CONFIG; with neither set the defaults are returned.
func Load(path string) (*Config, error) {
	if path == "" {
		path = os.Getenv(EnvVar)
	}
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("appconfig: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("appconfig: parse %s: %w", path, err)
	}
	cfg.expandHome()
	return cfg, nil
}

func (c *Config) expandHome() {
	home, err := os.UserHomeDir()
	if err != nil {
		return
	}
	for _, p := range []*string{&c.DataDir, &c.LogsDir, &c.Archive.Dir} {
		if *p == "~" {
			*p = home
		} else if strings.HasPrefix(*p, "~/") {
			*p = filepath.Join(home, (*p)[2:])
		}
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	var errs []error

	if c.DataDir == "" {
		errs = append(errs, errors.New("data_dir is required"))
	}
	if c.LogsDir == "" {
		errs = append(errs, errors.New("logs_dir is required"))
	}
	if err := checkLoopback(c.ListenAddr); err != nil {
		errs = append(errs, err)
	}
	if c.Printer.BaudRate <= 0 {
		errs = append(errs, fmt.Errorf("printer.baud_rate must be positive, got %d", c.Printer.BaudRate))
	}
	if !c.Printer.Mock && c.Printer.Port == "" {
		errs = append(errs, errors.New("printer.port is required unless printer.mock is set"))
	}
	if c.Archive.Dir != "" && c.Archive.KeepDays < 1 {
		errs = append(errs, fmt.Errorf("archive.keep_days must be at least 1, got %d", c.Archive.KeepDays))
	}

	return errors.Join(errs...)
}

func checkLoopback(addr string) error {
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		return fmt.Errorf("listen_addr: %w", err)
	}
	if host == "localhost" {
		return nil
	}
	ip := net.ParseIP(host)
	if ip == nil || !ip.IsLoopback() {
		return fmt.Errorf("listen_addr must be a loopback address, got %q", addr)
	}
	return nil
}
