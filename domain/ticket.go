package domain

// TicketStatus enumerates the states pushed to a linked external ticket.
type TicketStatus int

const (
	TicketOpen TicketStatus = iota
	TicketInProgress
	TicketResolved
)

func (s TicketStatus) String() string {
	switch s {
	case TicketOpen:
		return "open"
	case TicketInProgress:
		return "in-progress"
	case TicketResolved:
		return "resolved"
	}
	return "unknown"
}

// TicketStatusFor maps a task status onto the ticket state it is pushed as.
// The mapping is one-directional; ticket state is never read back.
func TicketStatusFor(s Status) TicketStatus {
	switch s {
	case StatusInProgress:
		return TicketInProgress
	case StatusDone:
		return TicketResolved
	default:
		return TicketOpen
	}
}
