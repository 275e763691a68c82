package calendar

import "time"

// Status is the billing meaning of a calendar event's color. Raw
// provider color ids appear only at this boundary; the core never
// sees them.
type Status int

const (
	// StatusNeedsBilling is the default (uncolored) state.
	StatusNeedsBilling Status = iota
	// StatusNeedsBillingAnnotated marks a session whose notes are done
	// but which still awaits payment.
	StatusNeedsBillingAnnotated
	// StatusPaid marks a session already paid by the patient.
	StatusPaid
	// StatusCancelled excludes the event from billing entirely.
	StatusCancelled
)

// Google Calendar color ids carrying billing meaning.
const (
	colorIDAnnotated = "5"
	colorIDPaid      = "3"
	colorIDCancelled = "4"
)

// StatusFromColorID maps a raw provider color id to a Status. Unknown
// colors behave like the default: the event still needs billing.
func StatusFromColorID(colorID string) Status {
	switch colorID {
	case colorIDAnnotated:
		return StatusNeedsBillingAnnotated
	case colorIDPaid:
		return StatusPaid
	case colorIDCancelled:
		return StatusCancelled
	default:
		return StatusNeedsBilling
	}
}

// ColorID maps a Status back to the raw provider color id. The default
// status maps to the empty string, which clears the event's color.
func (s Status) ColorID() string {
	switch s {
	case StatusNeedsBillingAnnotated:
		return colorIDAnnotated
	case StatusPaid:
		return colorIDPaid
	case StatusCancelled:
		return colorIDCancelled
	default:
		return ""
	}
}

// Billable reports whether the event participates in billing at all.
// Cancelled is the only hard exclusion.
func (s Status) Billable() bool {
	return s != StatusCancelled
}

func (s Status) String() string {
	switch s {
	case StatusNeedsBillingAnnotated:
		return "needs_billing_annotated"
	case StatusPaid:
		return "paid"
	case StatusCancelled:
		return "cancelled"
	default:
		return "needs_billing"
	}
}

// Event is the boundary representation of an external calendar event.
// The core only ever reads events; creation and deletion stay with the
// external calendar.
type Event struct {
	ID         string
	CalendarID string
	Summary    string
	Start      time.Time
	Status     Status
}
