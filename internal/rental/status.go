package rental

import "strings"

// Status is the reservation state as the backend spells it.
type Status string

const (
	StatusPending   Status = "Pendiente"
	StatusConfirmed Status = "Confirmada"
	StatusCancelled Status = "Cancelada"
)

// ParseStatus accepts the backend's spellings in any case. Unknown or empty
// values are treated as pending.
func ParseStatus(s string) Status {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "confirmada", "confirmed":
		return StatusConfirmed
	case "cancelada", "cancelled", "canceled":
		return StatusCancelled
	default:
		return StatusPending
	}
}

func (s Status) Confirmed() bool { return s == StatusConfirmed }
