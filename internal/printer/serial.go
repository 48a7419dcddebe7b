package printer

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"go.bug.st/serial"
	"golang.org/x/time/rate"
)

const (
	// DefaultPort is the printer device used when none is configured.
	DefaultPort = "/dev/ttyUSB0"
	// DefaultBaudRate matches the thermal printers shipped with the kiosk.
	DefaultBaudRate = 9600

	settleDelay = 500 * time.Millisecond
	initDelay   = 100 * time.Millisecond
	cutDelay    = 500 * time.Millisecond
)

// Serial prints over a serial port. The port is opened and closed inside
// each Print call; no handle is kept between tickets.
type Serial struct {
	mu      sync.Mutex
	port    string
	baud    int
	limiter *rate.Limiter
	open    func(port string, mode *serial.Mode) (serial.Port, error)
	sleep   func(time.Duration)
}

// NewSerial creates a serial printer driver. At most one ticket per second
// is sent, with a burst of three for operators who tap print repeatedly.
func NewSerial(port string, baud int) *Serial {
	if port == "" {
		port = DefaultPort
	}
	if baud <= 0 {
		baud = DefaultBaudRate
	}
	return &Serial{
		port:    port,
		baud:    baud,
		limiter: rate.NewLimiter(rate.Every(time.Second), 3),
		open:    serial.Open,
		sleep:   time.Sleep,
	}
}

// Port returns the configured device path.
func (s *Serial) Port() string { return s.port }

// Print renders t and writes it to the printer.
func (s *Serial) Print(ctx context.Context, t Ticket) error {
	if err := s.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("printer: %w", err)
	}
	data := Build(t)

	s.mu.Lock()
	defer s.mu.Unlock()

	port, err := s.open(s.port, &serial.Mode{
		BaudRate: s.baud,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	})
	if err != nil {
		return fmt.Errorf("%w: open %s: %v", ErrNotConnected, s.port, err)
	}
	defer port.Close()
	s.sleep(settleDelay)

	// Init goes out alone; the printer drops bytes that follow it too closely.
	if _, err := port.Write(data[:len(cmdInit)]); err != nil {
		return fmt.Errorf("printer: write %s: %w", s.port, err)
	}
	s.sleep(initDelay)
	if _, err := port.Write(data[len(cmdInit):]); err != nil {
		return fmt.Errorf("printer: write %s: %w", s.port, err)
	}
	if err := port.Drain(); err != nil {
		slog.Debug("printer: drain failed", "port", s.port, "err", err)
	}
	s.sleep(cutDelay)

	slog.Info("printer: ticket printed", "number", t.Number, "port", s.port,
		"design", t.design().String("design_name", "default"))
	return nil
}

var _ Driver = (*Serial)(nil)
