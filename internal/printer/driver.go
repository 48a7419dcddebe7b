// Package printer drives the receipt printer that issues queue tickets.
// Tickets are rendered to ESC/POS bytes by Build and sent by a Driver.
package printer

import (
	"context"
	"errors"
	"time"

	"github.com/micro-nova/queuepi/internal/models"
)

// ErrNotConnected is returned when the printer port cannot be opened.
var ErrNotConnected = errors.New("printer not connected")

// Ticket is everything needed to print one ticket.
type Ticket struct {
	Number   int
	Settings models.Settings
	// Design is the flat ticket_design map. Nil means Settings' ticket_design.
	Design map[string]any
	Time   time.Time
}

// design returns the ticket layout to print.
func (t Ticket) design() models.Settings {
	if t.Design != nil {
		return models.Settings(t.Design)
	}
	if m, ok := t.Settings.Map("ticket_design"); ok {
		return models.Settings(m)
	}
	return models.Settings(models.DefaultTicketDesign())
}

// Driver sends a ticket to a printer. Implementations open, use and release
// the device within a single Print call.
type Driver interface {
	Print(ctx context.Context, t Ticket) error
}
