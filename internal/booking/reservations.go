package booking

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/andreasstove999/urbandrive/web-go/internal/apperr"
	"github.com/andreasstove999/urbandrive/web-go/internal/checkout"
	"github.com/andreasstove999/urbandrive/web-go/internal/money"
	"github.com/andreasstove999/urbandrive/web-go/internal/rental"
)

// PaymentSummary is what the detail page shows about a payment. It is kept
// per session to spare backend round trips; it never decides the status.
// TransactionID is the MiBanca transfer and PaymentID the WS_Pagos record;
// either is zero when unknown.
type PaymentSummary struct {
	TransactionID   int64
	PaymentID       int
	SourceAccount   int64
	MerchantAccount int64
	Amount          decimal.Decimal
	PaidAt          time.Time
	NationalID      string
	InvoiceID       int
	InvoiceURI      string
}

// PaymentCache is the per-session store of payment summaries.
type PaymentCache interface {
	Payment(ctx context.Context, reservationID int) (PaymentSummary, bool)
	StorePayment(ctx context.Context, reservationID int, p PaymentSummary)
	ForgetPayment(ctx context.Context, reservationID int)
}

// Reservations lists the user's reservations with the status the backend holds.
func (s *Service) Reservations(ctx context.Context, u *rental.User) ([]rental.Reservation, error) {
	rs, err := s.backend.ReservationsByUser(ctx, u.ID)
	if err != nil {
		return []rental.Reservation{}, err
	}
	if rs == nil {
		rs = []rental.Reservation{}
	}
	return rs, nil
}

type ReservationDetail struct {
	Reservation rental.Reservation
	Days        int
	PerDay      decimal.Decimal
	money.Quote

	ClientName  string
	ClientEmail string

	Payment    *PaymentSummary
	InvoiceURI string

	// Checkout is the latest saga for the reservation, if any.
	Checkout *checkout.Saga
}

// Paid reports whether the reservation holds money that was not returned:
// the backend confirmed it or the latest checkout still counts as paid.
func (d ReservationDetail) Paid() bool {
	if d.Payment == nil {
		return false
	}
	return d.Reservation.Status.Confirmed() || (d.Checkout != nil && d.Checkout.Paid())
}

// Processing reports whether money was transferred but confirmation is still
// pending on the backend.
func (d ReservationDetail) Processing() bool {
	return d.Checkout != nil && d.Checkout.State == checkout.StateTransferred && !d.Reservation.Status.Confirmed()
}

// Detail assembles the reservation summary page.
func (s *Service) Detail(ctx context.Context, u *rental.User, id int, cache PaymentCache) (ReservationDetail, error) {
	r, err := s.backend.Reservation(ctx, id)
	if err != nil {
		return ReservationDetail{}, err
	}

	d := s.summarize(r, u)
	if saga, err := s.checkout.Latest(ctx, r.ID); err != nil {
		s.log.WithField("reservation_id", r.ID).WithError(err).Warn("load checkout state")
	} else {
		d.Checkout = saga
	}
	d.Payment = s.payment(ctx, r, d.Checkout, cache)
	d.InvoiceURI = s.invoiceURI(ctx, r.ID, d.Payment, cache)
	return d, nil
}

func (s *Service) summarize(r rental.Reservation, u *rental.User) ReservationDetail {
	days := money.Days(r.Start, r.End)
	d := ReservationDetail{
		Reservation: r,
		Days:        days,
		PerDay:      money.PerDay(r.Total, days),
		Quote:       money.NewQuote(r.Total, s.taxRate),
		ClientName:  strings.TrimSpace(r.UserName),
		ClientEmail: strings.TrimSpace(r.UserEmail),
	}
	if u != nil {
		if d.ClientName == "" {
			d.ClientName = u.FullName()
		}
		if d.ClientEmail == "" {
			d.ClientEmail = u.Email
		}
	}
	return d
}

// payment reads through the session cache. A cached entry for a reservation
// the backend does not show as confirmed is dropped and re-read from WS_Pagos.
// Unless the reservation is confirmed, a payment is only shown while the
// latest checkout still holds the money; WS_Pagos keeps records of reversed
// checkouts.
func (s *Service) payment(ctx context.Context, r rental.Reservation, saga *checkout.Saga, cache PaymentCache) *PaymentSummary {
	if cache != nil {
		if p, ok := cache.Payment(ctx, r.ID); ok {
			if r.Status.Confirmed() {
				return &p
			}
			cache.ForgetPayment(ctx, r.ID)
		}
	}

	live := saga != nil && saga.Paid()
	if !r.Status.Confirmed() && !live {
		return nil
	}

	var p PaymentSummary
	if live {
		p = summaryOf(saga)
	}
	if payments := s.backend.Payments(ctx, r.ID); len(payments) > 0 {
		last := payments[len(payments)-1]
		p.PaymentID = last.ID
		p.SourceAccount = last.SourceAccount
		p.MerchantAccount = last.MerchantAccount
		p.Amount = last.Amount
		p.PaidAt = last.PaidAt
	} else if !live {
		return nil
	}
	if cache != nil {
		cache.StorePayment(ctx, r.ID, p)
	}
	return &p
}

func (s *Service) invoiceURI(ctx context.Context, reservationID int, p *PaymentSummary, cache PaymentCache) string {
	if p != nil && p.InvoiceURI != "" {
		return p.InvoiceURI
	}
	inv, err := s.backend.InvoiceForReservation(ctx, reservationID)
	if err != nil {
		s.log.WithField("reservation_id", reservationID).WithError(err).Warn("look up invoice")
		return ""
	}
	if inv == nil || inv.URI == "" {
		return ""
	}
	if p != nil && cache != nil {
		p.InvoiceID = inv.ID
		p.InvoiceURI = inv.URI
		cache.StorePayment(ctx, reservationID, *p)
	}
	return inv.URI
}

var errNationalIDMissing = apperr.Validation("Ingresa tu número de cédula para realizar el pago.")

// Pay charges the reservation and caches the resulting summary. The returned
// message is the curated text for the outcome.
func (s *Service) Pay(ctx context.Context, u *rental.User, id int, nationalID string, cache PaymentCache) (string, error) {
	nationalID = strings.TrimSpace(nationalID)
	if nationalID == "" {
		return "", errNationalIDMissing
	}

	saga, err := s.checkout.Pay(ctx, id, checkout.Payer{UserID: u.ID, NationalID: nationalID})
	if err != nil {
		s.log.WithFields(logrus.Fields{
			"reservation_id": id,
			"user_id":        u.ID,
			"kind":           apperr.KindOf(err).String(),
		}).WithError(err).Error("checkout failed")
		return "", &UserError{Message: PaymentMessage(err), Err: err}
	}

	if cache != nil {
		cache.StorePayment(ctx, id, summaryOf(saga))
	}
	if saga.State == checkout.StateTransferred {
		return "Pago recibido. Estamos confirmando tu reserva.", nil
	}
	return "Pago realizado correctamente en MiBanca.", nil
}

func summaryOf(saga *checkout.Saga) PaymentSummary {
	paidAt, err := time.Parse(time.RFC3339, saga.TransactionAt)
	if err != nil {
		paidAt = saga.UpdatedAt
	}
	return PaymentSummary{
		TransactionID:   saga.TransactionID,
		PaymentID:       saga.PaymentID,
		SourceAccount:   saga.SourceAccount,
		MerchantAccount: saga.MerchantAccount,
		Amount:          saga.Amount,
		PaidAt:          paidAt,
		NationalID:      saga.NationalID,
		InvoiceID:       saga.InvoiceID,
		InvoiceURI:      saga.InvoiceURI,
	}
}

// PaymentMessage maps a checkout failure to what the payer is told.
func PaymentMessage(err error) string {
	switch {
	case errors.Is(err, checkout.ErrNoAccountFound):
		return "No se encontró ninguna cuenta. Contáctese con el soporte de su banco."
	case errors.Is(err, checkout.ErrNoMerchantAccount):
		return "No se encontró la cuenta de la empresa en MiBanca."
	case errors.Is(err, checkout.ErrAlreadyPaid):
		return "Esta reserva ya fue pagada."
	case errors.Is(err, checkout.ErrInProgress):
		return "Ya hay un pago en curso para esta reserva. Espera unos minutos."
	case errors.Is(err, checkout.ErrPaymentReversed):
		return "No pudimos confirmar tu reserva y el pago fue reversado a tu cuenta."
	case apperr.Is(err, apperr.KindTimeout):
		return "El banco no respondió a tiempo. Revisa tu cuenta antes de intentar nuevamente."
	case apperr.Is(err, apperr.KindValidation):
		return err.Error()
	}
	return "No se pudo completar el pago. Intenta nuevamente."
}
