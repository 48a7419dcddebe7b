package printer

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
)

// Mock is a thread-safe in-memory printer for tests and kiosks without a
// printer attached.
type Mock struct {
	mu      sync.Mutex
	tickets []Ticket
	output  [][]byte
	fail    bool
}

// NewMock creates a new mock printer.
func NewMock() *Mock { return &Mock{} }

// SetFail makes subsequent prints fail with ErrNotConnected.
func (m *Mock) SetFail(fail bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fail = fail
}

// Print records the ticket and its rendered bytes.
func (m *Mock) Print(ctx context.Context, t Ticket) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail {
		return fmt.Errorf("%w: mock failure", ErrNotConnected)
	}
	m.tickets = append(m.tickets, t)
	m.output = append(m.output, Build(t))
	slog.Debug("printer: mock print", "number", t.Number)
	return nil
}

// Printed returns the numbers of all tickets printed so far.
func (m *Mock) Printed() []int {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]int, len(m.tickets))
	for i, t := range m.tickets {
		out[i] = t.Number
	}
	return out
}

// LastOutput returns the bytes of the most recent ticket, or nil.
func (m *Mock) LastOutput() []byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.output) == 0 {
		return nil
	}
	return m.output[len(m.output)-1]
}

var _ Driver = (*Mock)(nil)
