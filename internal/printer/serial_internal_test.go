package printer

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"go.bug.st/serial"

	"github.com/micro-nova/queuepi/internal/models"
)

// fakePort implements the parts of serial.Port the driver uses.
type fakePort struct {
	serial.Port
	buf    bytes.Buffer
	writes int
	closed bool
}

func (p *fakePort) Write(b []byte) (int, error) {
	p.writes++
	return p.buf.Write(b)
}

func (p *fakePort) Drain() error { return nil }

func (p *fakePort) Close() error {
	p.closed = true
	return nil
}

func newTestSerial(port *fakePort, openErr error) (*Serial, *serial.Mode) {
	s := NewSerial("/dev/ttyTEST", 19200)
	var gotMode serial.Mode
	s.open = func(name string, mode *serial.Mode) (serial.Port, error) {
		gotMode = *mode
		if openErr != nil {
			return nil, openErr
		}
		return port, nil
	}
	s.sleep = func(time.Duration) {}
	return s, &gotMode
}

func TestSerial_PrintWritesTicketAndCloses(t *testing.T) {
	port := &fakePort{}
	s, mode := newTestSerial(port, nil)
	ticket := Ticket{Number: 5, Settings: models.DefaultSettings(), Time: time.Now()}

	if err := s.Print(context.Background(), ticket); err != nil {
		t.Fatalf("Print: %v", err)
	}
	if mode.BaudRate != 19200 || mode.DataBits != 8 || mode.Parity != serial.NoParity {
		t.Errorf("mode = %+v", *mode)
	}
	if !bytes.Equal(port.buf.Bytes(), Build(ticket)) {
		t.Error("bytes written differ from Build output")
	}
	if port.writes != 2 {
		t.Errorf("writes = %d, want init then body", port.writes)
	}
	if !port.closed {
		t.Error("port not closed after print")
	}
}

func TestSerial_OpenFailure(t *testing.T) {
	s, _ := newTestSerial(nil, errors.New("no such device"))
	err := s.Print(context.Background(), Ticket{Number: 1, Settings: models.DefaultSettings()})
	if !errors.Is(err, ErrNotConnected) {
		t.Errorf("Print = %v, want ErrNotConnected", err)
	}
}

func TestSerial_CancelledContext(t *testing.T) {
	port := &fakePort{}
	s, _ := newTestSerial(port, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	// Drain the burst so Wait has to block on the cancelled context.
	s.limiter.AllowN(time.Now(), 3)
	if err := s.Print(ctx, Ticket{Number: 1, Settings: models.DefaultSettings()}); err == nil {
		t.Error("Print with cancelled context should fail")
	}
	if port.writes != 0 {
		t.Error("nothing should be written when the context is cancelled")
	}
}

func TestNewSerial_Defaults(t *testing.T) {
	s := NewSerial("", 0)
	if s.Port() != DefaultPort || s.baud != DefaultBaudRate {
		t.Errorf("defaults = %s/%d", s.Port(), s.baud)
	}
}
