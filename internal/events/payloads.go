package events

import (
	"time"

	"github.com/shopspring/decimal"
)

type ReservationConfirmedPayload struct {
	SagaID          string          `json:"sagaId"`
	ReservationID   int             `json:"reservationId"`
	UserID          int             `json:"userId"`
	TransactionID   int64           `json:"transactionId"`
	PaymentID       int             `json:"paymentId,omitempty"`
	InvoiceID       int             `json:"invoiceId,omitempty"`
	SourceAccount   int64           `json:"sourceAccount"`
	MerchantAccount int64           `json:"merchantAccount"`
	Amount          decimal.Decimal `json:"amount"`
	ConfirmedAt     time.Time       `json:"confirmedAt"`
}

type CheckoutCompensatedPayload struct {
	SagaID                    string          `json:"sagaId"`
	ReservationID             int             `json:"reservationId"`
	UserID                    int             `json:"userId"`
	TransactionID             int64           `json:"transactionId"`
	CompensationTransactionID int64           `json:"compensationTransactionId"`
	Amount                    decimal.Decimal `json:"amount"`
	FailedStep                string          `json:"failedStep"`
	Reason                    string          `json:"reason"`
	CompensatedAt             time.Time       `json:"compensatedAt"`
}
