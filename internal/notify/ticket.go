package notify

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"text/template"
	"time"

	"github.com/Domenick1991/heliseats/internal/domain"
)

const ticketTemplate = `HELICOPTER BOARDING PASS
========================
Ticket:     {{.TicketNumber}}
Passenger:  {{.PassengerName}}
Flight date:{{printf " %s" .Date}}
Route:      {{.From}} -> {{.To}}
Status:     {{.Status}}
{{- if .PreviousDate}}
Rebooked from {{.PreviousDate}}
{{- end}}

Issued at {{.IssuedAt}}
Please arrive at the helipad 30 minutes before departure.
`

// Renderer produces the printable ticket for created and modified bookings.
type Renderer struct {
	dir  string
	tmpl *template.Template
}

func NewRenderer(dir string) (*Renderer, error) {
	tmpl, err := template.New("ticket").Parse(ticketTemplate)
	if err != nil {
		return nil, fmt.Errorf("parse ticket template: %w", err)
	}
	return &Renderer{dir: dir, tmpl: tmpl}, nil
}

type ticketView struct {
	domain.BookingEvent
	IssuedAt string
}

// Render writes Ticket-<number>.txt into the tickets directory and returns
// its path together with the rendered body.
func (r *Renderer) Render(event domain.BookingEvent) (string, []byte, error) {
	var buf bytes.Buffer
	view := ticketView{BookingEvent: event, IssuedAt: event.OccurredAt.UTC().Format(time.RFC3339)}
	if err := r.tmpl.Execute(&buf, view); err != nil {
		return "", nil, fmt.Errorf("render ticket %s: %w", event.TicketNumber, err)
	}

	if err := os.MkdirAll(r.dir, 0o755); err != nil {
		return "", nil, fmt.Errorf("create tickets dir: %w", err)
	}
	path := filepath.Join(r.dir, "Ticket-"+event.TicketNumber+".txt")
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return "", nil, fmt.Errorf("write ticket %s: %w", event.TicketNumber, err)
	}
	return path, buf.Bytes(), nil
}
