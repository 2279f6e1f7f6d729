package payment

import "strings"

// State is a payment session state. The session moves
// processing → verifying → {success | failed | canceled}.
type State string

const (
	StateProcessing State = "processing"
	StateVerifying  State = "verifying"
	StateSuccess    State = "success"
	StateFailed     State = "failed"
	StateCanceled   State = "canceled"
)

// IsTerminal reports whether the state ends the payment session.
func (s State) IsTerminal() bool {
	switch s {
	case StateSuccess, StateFailed, StateCanceled:
		return true
	default:
		return false
	}
}

// StatusToken classifies a gateway-supplied status string. The gateway uses
// inconsistent casing and spelling across integration points ("success" on
// one leg, "VALID" on another, "CANCELLED" vs "canceled"), so every
// comparison goes through this normalization.
type StatusToken int

const (
	StatusUnknown StatusToken = iota
	StatusSuccess
	StatusFailed
	StatusCanceled
)

func ParseStatusToken(raw string) StatusToken {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "success", "valid", "validated":
		return StatusSuccess
	case "failed", "failure":
		return StatusFailed
	case "canceled", "cancelled", "cancel":
		return StatusCanceled
	default:
		return StatusUnknown
	}
}

func (t StatusToken) String() string {
	switch t {
	case StatusSuccess:
		return "success"
	case StatusFailed:
		return "failed"
	case StatusCanceled:
		return "canceled"
	default:
		return "unknown"
	}
}
