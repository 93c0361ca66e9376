package checkout

import (
	"time"

	"github.com/shopspring/decimal"
)

// State is the saga's position in the checkout sequence.
type State string

const (
	StateStarted        State = "started"
	StateTransferFailed State = "transfer_failed"
	StateTransferred    State = "transferred"
	StateCompleted      State = "completed"
	StateCompensated    State = "compensated"
)

// Active states block a second checkout of the same reservation.
func (s State) Active() bool {
	return s == StateStarted || s == StateTransferred || s == StateCompleted
}

type StepName string

const (
	StepRecordPayment      StepName = "record_payment"
	StepConfirmReservation StepName = "confirm_reservation"
	StepIssueInvoice       StepName = "issue_invoice"
)

// stepOrder is the order post-transfer steps run in.
var stepOrder = []StepName{StepRecordPayment, StepConfirmReservation, StepIssueInvoice}

// Required steps trigger compensation when they cannot be completed.
func (n StepName) Required() bool {
	return n != StepIssueInvoice
}

type StepStatus string

const (
	StepPending   StepStatus = "pending"
	StepSucceeded StepStatus = "succeeded"
	StepFailed    StepStatus = "failed"
	StepAbandoned StepStatus = "abandoned"
)

type Step struct {
	Name      StepName   `json:"name"`
	Status    StepStatus `json:"status"`
	Attempts  int        `json:"attempts"`
	LastError string     `json:"lastError,omitempty"`
	UpdatedAt time.Time  `json:"updatedAt"`
}

func (s Step) done() bool {
	return s.Status == StepSucceeded || s.Status == StepAbandoned
}

// Saga is the durable record of one checkout attempt for a reservation.
type Saga struct {
	ID              string
	ReservationID   int
	UserID          int
	NationalID      string
	SourceAccount   int64
	MerchantAccount int64
	Amount          decimal.Decimal
	State           State

	TransactionID int64
	TransactionAt string

	PaymentID  int
	InvoiceID  int
	InvoiceURI string

	CompensationID       int64
	CompensationAttempts int

	LastError string
	Steps     []Step
	CreatedAt time.Time
	UpdatedAt time.Time

	// ClaimedBy is the runner allowed to advance the saga until ClaimedUntil.
	ClaimedBy    string
	ClaimedUntil time.Time
	// Version increases on every write; a write from a stale copy fails.
	Version int
}

func newSteps(now time.Time) []Step {
	steps := make([]Step, 0, len(stepOrder))
	for _, name := range stepOrder {
		steps = append(steps, Step{Name: name, Status: StepPending, UpdatedAt: now})
	}
	return steps
}

func (s *Saga) Step(name StepName) *Step {
	for i := range s.Steps {
		if s.Steps[i].Name == name {
			return &s.Steps[i]
		}
	}
	return nil
}

func (s *Saga) requiredSucceeded() bool {
	for _, st := range s.Steps {
		if st.Name.Required() && st.Status != StepSucceeded {
			return false
		}
	}
	return true
}

// Resumable reports whether any step still has work left.
func (s *Saga) Resumable() bool {
	if s.State != StateTransferred && s.State != StateCompleted {
		return false
	}
	for _, st := range s.Steps {
		if !st.done() {
			return true
		}
	}
	return false
}

// Paid reports whether money has left the payer's account and not been
// returned.
func (s *Saga) Paid() bool {
	return s.State == StateTransferred || s.State == StateCompleted
}

func (s *Saga) clone() *Saga {
	if s == nil {
		return nil
	}
	c := *s
	c.Steps = append([]Step(nil), s.Steps...)
	return &c
}
