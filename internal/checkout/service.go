// Package checkout pays for a reservation and drives the post-transfer steps
// (payment record, confirmation, invoice) as a persisted saga with an outbox.
package checkout

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/andreasstove999/urbandrive/web-go/internal/apperr"
	"github.com/andreasstove999/urbandrive/web-go/internal/bank"
	"github.com/andreasstove999/urbandrive/web-go/internal/events"
	"github.com/andreasstove999/urbandrive/web-go/internal/middleware"
	"github.com/andreasstove999/urbandrive/web-go/internal/money"
	"github.com/andreasstove999/urbandrive/web-go/internal/rental"
)

// Backend is the slice of the SOAP gateway the saga needs.
type Backend interface {
	Reservation(ctx context.Context, id int) (rental.Reservation, error)
	SetReservationStatus(ctx context.Context, id int, status rental.Status) error
	CreatePayment(ctx context.Context, p rental.PaymentRequest) (rental.PaymentReceipt, error)
	Payments(ctx context.Context, reservationID int) []rental.Payment
	CreateInvoice(ctx context.Context, inv rental.Invoice) (int, error)
	Invoice(ctx context.Context, id int) (rental.Invoice, error)
	InvoiceForReservation(ctx context.Context, reservationID int) (*rental.Invoice, error)
}

type Bank interface {
	Accounts(ctx context.Context, nationalID string) ([]bank.Account, error)
	CreateTransfer(ctx context.Context, t bank.Transfer) (bank.Transaction, error)
}

type Options struct {
	MerchantNationalID string
	TaxRate            decimal.Decimal
	PaymentTimeout     time.Duration
	// MaxAttempts bounds every post-transfer step and the compensation.
	MaxAttempts int
	// AttemptsPerRun bounds how many attempts one Pay or Resume spends on a step.
	AttemptsPerRun int
	// ClaimTTL is how long a runner keeps a saga to itself without saving it.
	ClaimTTL   time.Duration
	NewBackOff func() backoff.BackOff
	Now            func() time.Time
	Logger         logrus.FieldLogger
}

type Payer struct {
	UserID     int
	NationalID string
}

var errInvoiceNotIssued = errors.New("invoice service returned no id")

type Service struct {
	store   Store
	backend Backend
	bank    Bank
	opts    Options
	log     logrus.FieldLogger
}

func NewService(store Store, backend Backend, bankClient Bank, opts Options) *Service {
	if opts.PaymentTimeout <= 0 {
		opts.PaymentTimeout = 15 * time.Second
	}
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = 5
	}
	if opts.AttemptsPerRun <= 0 {
		opts.AttemptsPerRun = 3
	}
	if opts.ClaimTTL <= 0 {
		opts.ClaimTTL = 2 * time.Minute
	}
	if opts.NewBackOff == nil {
		opts.NewBackOff = func() backoff.BackOff {
			b := backoff.NewExponentialBackOff()
			b.InitialInterval = 250 * time.Millisecond
			b.MaxInterval = 2 * time.Second
			b.MaxElapsedTime = 10 * time.Second
			return b
		}
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Logger == nil {
		opts.Logger = logrus.StandardLogger()
	}
	return &Service{
		store:   store,
		backend: backend,
		bank:    bankClient,
		opts:    opts,
		log:     opts.Logger.WithField("component", "checkout"),
	}
}

func (s *Service) now() time.Time { return s.opts.Now().UTC() }

// Quote is the amount a reservation is charged.
func (s *Service) Quote(r rental.Reservation) money.Quote {
	return money.NewQuote(r.Total, s.opts.TaxRate)
}

// Latest returns the most recent saga for the reservation, or nil.
func (s *Service) Latest(ctx context.Context, reservationID int) (*Saga, error) {
	saga, err := s.store.Latest(ctx, reservationID)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	return saga, err
}

// Pay charges the reservation's total plus tax to the payer's first bank
// account and runs the post-transfer steps. A nil error means the money was
// transferred; the saga may still have steps left for the relay.
func (s *Service) Pay(ctx context.Context, reservationID int, payer Payer) (*Saga, error) {
	const op = "checkout.Pay"

	nationalID := strings.TrimSpace(payer.NationalID)
	if nationalID == "" {
		return nil, apperr.Validation("national id is required")
	}

	r, err := s.backend.Reservation(ctx, reservationID)
	if err != nil {
		if apperr.Is(err, apperr.KindNotFound) {
			return nil, apperr.E(apperr.KindNotFound, op, ErrNotFound)
		}
		return nil, apperr.E(kindOr(err, apperr.KindRemoteUnavailable), op, err)
	}
	if r.Status.Confirmed() {
		return nil, apperr.E(apperr.KindDomainRejected, op, ErrAlreadyPaid)
	}

	prev, err := s.Latest(ctx, reservationID)
	if err != nil {
		return nil, fmt.Errorf("%s: load saga: %w", op, err)
	}
	if prev != nil {
		switch {
		case prev.Paid():
			return prev, apperr.E(apperr.KindDomainRejected, op, ErrAlreadyPaid)
		case prev.State == StateStarted:
			return nil, apperr.E(apperr.KindDomainRejected, op, ErrInProgress)
		}
	}

	payerAccounts, err := s.bank.Accounts(ctx, nationalID)
	if err != nil {
		return nil, apperr.E(kindOr(err, apperr.KindRemoteUnavailable), op, fmt.Errorf("%w: %w", ErrPaymentFailed, err))
	}
	if len(payerAccounts) == 0 {
		return nil, apperr.E(apperr.KindDomainRejected, op, ErrNoAccountFound)
	}
	merchantAccounts, err := s.bank.Accounts(ctx, s.opts.MerchantNationalID)
	if err != nil {
		return nil, apperr.E(kindOr(err, apperr.KindRemoteUnavailable), op, fmt.Errorf("%w: %w", ErrPaymentFailed, err))
	}
	if len(merchantAccounts) == 0 {
		return nil, apperr.E(apperr.KindRemoteUnavailable, op, ErrNoMerchantAccount)
	}

	userID := payer.UserID
	if userID == 0 {
		userID = r.UserID
	}
	now := s.now()
	saga := &Saga{
		ID:              uuid.NewString(),
		ReservationID:   reservationID,
		UserID:          userID,
		NationalID:      nationalID,
		SourceAccount:   payerAccounts[0].ID,
		MerchantAccount: merchantAccounts[0].ID,
		Amount:          s.Quote(r).Total,
		State:           StateStarted,
		Steps:           newSteps(now),
		CreatedAt:       now,
		UpdatedAt:       now,
		ClaimedBy:       uuid.NewString(),
		ClaimedUntil:    now.Add(s.opts.ClaimTTL),
	}
	if err := s.store.Create(ctx, saga); err != nil {
		if errors.Is(err, ErrInProgress) {
			return nil, apperr.E(apperr.KindDomainRejected, op, ErrInProgress)
		}
		return nil, fmt.Errorf("%s: create saga: %w", op, err)
	}

	log := s.sagaLog(saga)

	// Past this point the saga is persisted even if the caller goes away.
	ctx = context.WithoutCancel(ctx)

	tctx, cancel := context.WithTimeout(ctx, s.opts.PaymentTimeout)
	tx, err := s.bank.CreateTransfer(tctx, bank.Transfer{
		From:        saga.SourceAccount,
		To:          saga.MerchantAccount,
		Amount:      saga.Amount,
		Description: fmt.Sprintf("Pago reserva UrbanDrive #%d", reservationID),
	})
	timedOut := errors.Is(tctx.Err(), context.DeadlineExceeded)
	cancel()

	if err != nil {
		saga.State = StateTransferFailed
		saga.LastError = err.Error()
		saga.UpdatedAt = s.now()
		saga.ClaimedBy, saga.ClaimedUntil = "", time.Time{}
		_ = s.save(ctx, saga)
		log.WithError(err).Error("bank transfer failed")

		kind := kindOr(err, apperr.KindRemoteUnavailable)
		if timedOut {
			kind = apperr.KindTimeout
		}
		return saga, apperr.E(kind, op, fmt.Errorf("%w: %w", ErrPaymentFailed, err))
	}

	saga.State = StateTransferred
	saga.TransactionID = tx.ID
	saga.TransactionAt = tx.CreatedAt
	if saga.TransactionAt == "" {
		saga.TransactionAt = s.now().Format(time.RFC3339)
	}
	saga.UpdatedAt = s.now()
	if err := s.save(ctx, saga); errors.Is(err, ErrClaimed) {
		return saga, nil
	}
	log.WithField("transaction_id", tx.ID).Info("bank transfer completed")

	if err := s.advance(ctx, saga); err != nil {
		log.WithError(err).Error("post-transfer steps")
	}
	s.release(ctx, saga)
	if saga.State == StateCompensated {
		return saga, apperr.E(apperr.KindRemoteUnavailable, op, ErrPaymentReversed)
	}
	return saga, nil
}

// Resume continues a saga that still has post-transfer work. It returns
// ErrClaimed without doing anything while another runner holds the saga.
func (s *Service) Resume(ctx context.Context, saga *Saga) error {
	if !saga.Resumable() {
		return nil
	}
	now := s.now()
	if err := s.store.Claim(ctx, saga, uuid.NewString(), now.Add(s.opts.ClaimTTL), now); err != nil {
		return err
	}
	defer s.release(ctx, saga)
	return s.advance(ctx, saga)
}

func (s *Service) advance(ctx context.Context, saga *Saga) error {
	for _, name := range stepOrder {
		st := saga.Step(name)
		if st == nil || st.done() {
			continue
		}
		if name.Required() && st.Attempts >= s.opts.MaxAttempts {
			return s.compensate(ctx, saga, st)
		}

		err := s.runStep(ctx, saga, st)
		saga.UpdatedAt = s.now()
		st.UpdatedAt = saga.UpdatedAt

		if err == nil {
			st.Status = StepSucceeded
			st.LastError = ""
			if err := s.save(ctx, saga); errors.Is(err, ErrClaimed) {
				return err
			}
			continue
		}

		st.LastError = err.Error()
		s.sagaLog(saga).WithFields(logrus.Fields{
			"step":     name,
			"attempts": st.Attempts,
		}).WithError(err).Warn("checkout step failed")

		switch {
		case st.Attempts < s.opts.MaxAttempts:
			st.Status = StepFailed
		case name.Required():
			st.Status = StepFailed
			if err := s.save(ctx, saga); errors.Is(err, ErrClaimed) {
				return err
			}
			return s.compensate(ctx, saga, st)
		default:
			st.Status = StepAbandoned
		}
		if err := s.save(ctx, saga); errors.Is(err, ErrClaimed) {
			return err
		}

		if name.Required() {
			// Later steps depend on this one; the relay picks it up again.
			return nil
		}
	}

	if saga.State == StateTransferred && saga.requiredSucceeded() {
		saga.State = StateCompleted
		saga.LastError = ""
		saga.UpdatedAt = s.now()
		ev, err := s.event(ctx, saga, events.ReservationConfirmedRoutingKey, events.ReservationConfirmedPayload{
			SagaID:          saga.ID,
			ReservationID:   saga.ReservationID,
			UserID:          saga.UserID,
			TransactionID:   saga.TransactionID,
			PaymentID:       saga.PaymentID,
			InvoiceID:       saga.InvoiceID,
			SourceAccount:   saga.SourceAccount,
			MerchantAccount: saga.MerchantAccount,
			Amount:          saga.Amount,
			ConfirmedAt:     saga.UpdatedAt,
		})
		if err != nil {
			return err
		}
		if err := s.store.Save(ctx, saga, ev); err != nil {
			return fmt.Errorf("complete saga %s: %w", saga.ID, err)
		}
		s.sagaLog(saga).Info("checkout completed")
	}
	return nil
}

func (s *Service) runStep(ctx context.Context, saga *Saga, st *Step) error {
	n := s.opts.MaxAttempts - st.Attempts
	if n > s.opts.AttemptsPerRun {
		n = s.opts.AttemptsPerRun
	}
	if n < 1 {
		n = 1
	}
	b := backoff.WithContext(backoff.WithMaxRetries(s.opts.NewBackOff(), uint64(n-1)), ctx)
	return backoff.Retry(func() error {
		st.Attempts++
		return s.execute(ctx, saga, st.Name, st.Attempts)
	}, b)
}

func (s *Service) execute(ctx context.Context, saga *Saga, name StepName, attempt int) error {
	switch name {
	case StepRecordPayment:
		// A timed-out earlier attempt may have been recorded anyway.
		if attempt > 1 {
			if p, ok := s.recordedPayment(ctx, saga); ok {
				saga.PaymentID = p.ID
				return nil
			}
		}
		rec, err := s.backend.CreatePayment(ctx, rental.PaymentRequest{
			ReservationID:   saga.ReservationID,
			SourceAccount:   saga.SourceAccount,
			MerchantAccount: saga.MerchantAccount,
			Amount:          saga.Amount,
		})
		if err != nil {
			return err
		}
		saga.PaymentID = rec.PaymentID
		return nil

	case StepConfirmReservation:
		return s.backend.SetReservationStatus(ctx, saga.ReservationID, rental.StatusConfirmed)

	case StepIssueInvoice:
		if attempt > 1 {
			if inv, err := s.backend.InvoiceForReservation(ctx, saga.ReservationID); err == nil && inv != nil {
				saga.InvoiceID = inv.ID
				saga.InvoiceURI = inv.URI
				return nil
			}
		}
		id, err := s.backend.CreateInvoice(ctx, rental.Invoice{
			ReservationID: saga.ReservationID,
			UserID:        saga.UserID,
			IssuedAt:      s.now(),
			Total:         saga.Amount,
			Description:   fmt.Sprintf("Factura reserva #%d - UrbanDrive", saga.ReservationID),
		})
		if err != nil {
			return err
		}
		if id == 0 {
			return errInvoiceNotIssued
		}
		saga.InvoiceID = id
		if inv, err := s.backend.Invoice(ctx, id); err == nil {
			saga.InvoiceURI = inv.URI
		}
		return nil
	}
	return backoff.Permanent(fmt.Errorf("unknown step %q", name))
}

func (s *Service) recordedPayment(ctx context.Context, saga *Saga) (rental.Payment, bool) {
	for _, p := range s.backend.Payments(ctx, saga.ReservationID) {
		if p.Amount.Equal(saga.Amount) && (p.SourceAccount == 0 || p.SourceAccount == saga.SourceAccount) {
			return p, true
		}
	}
	return rental.Payment{}, false
}

// compensate returns the transferred amount to the payer. A reverse transfer
// that times out is not retried automatically: the bank has no idempotency
// key, so such sagas are left for manual reconciliation.
func (s *Service) compensate(ctx context.Context, saga *Saga, failed *Step) error {
	log := s.sagaLog(saga).WithField("failed_step", failed.Name)

	if saga.CompensationAttempts >= s.opts.MaxAttempts {
		log.Error("compensation exhausted, manual reconciliation required")
		return fmt.Errorf("compensate saga %s: attempts exhausted", saga.ID)
	}
	saga.CompensationAttempts++
	// The attempt is on record before money moves back.
	if err := s.save(ctx, saga); errors.Is(err, ErrClaimed) {
		return err
	}

	tctx, cancel := context.WithTimeout(ctx, s.opts.PaymentTimeout)
	tx, err := s.bank.CreateTransfer(tctx, bank.Transfer{
		From:        saga.MerchantAccount,
		To:          saga.SourceAccount,
		Amount:      saga.Amount,
		Description: fmt.Sprintf("Reverso pago reserva UrbanDrive #%d", saga.ReservationID),
	})
	timedOut := errors.Is(tctx.Err(), context.DeadlineExceeded)
	cancel()

	saga.UpdatedAt = s.now()
	if err != nil {
		saga.LastError = "compensation: " + err.Error()
		if timedOut {
			saga.CompensationAttempts = s.opts.MaxAttempts
		}
		_ = s.save(ctx, saga)
		log.WithError(err).Error("compensating transfer failed")
		return fmt.Errorf("compensate saga %s: %w", saga.ID, err)
	}

	saga.State = StateCompensated
	saga.CompensationID = tx.ID
	saga.LastError = fmt.Sprintf("%s: %s", failed.Name, failed.LastError)
	for i := range saga.Steps {
		if !saga.Steps[i].done() && saga.Steps[i].Status != StepFailed {
			saga.Steps[i].Status = StepAbandoned
			saga.Steps[i].UpdatedAt = saga.UpdatedAt
		}
	}

	ev, err := s.event(ctx, saga, events.CheckoutCompensatedRoutingKey, events.CheckoutCompensatedPayload{
		SagaID:                    saga.ID,
		ReservationID:             saga.ReservationID,
		UserID:                    saga.UserID,
		TransactionID:             saga.TransactionID,
		CompensationTransactionID: tx.ID,
		Amount:                    saga.Amount,
		FailedStep:                string(failed.Name),
		Reason:                    failed.LastError,
		CompensatedAt:             saga.UpdatedAt,
	})
	if err != nil {
		return err
	}
	if err := s.store.Save(ctx, saga, ev); err != nil {
		return fmt.Errorf("save compensated saga %s: %w", saga.ID, err)
	}
	log.WithField("compensation_id", tx.ID).Warn("checkout compensated")
	return nil
}

func (s *Service) event(ctx context.Context, saga *Saga, routingKey string, payload any) (OutboxEvent, error) {
	env, err := events.New(routingKey, events.Meta{
		CorrelationID: middleware.GetCorrelationID(ctx),
		CausationID:   saga.ID,
		PartitionKey:  "reservation-" + strconv.Itoa(saga.ReservationID),
	}, payload, saga.UpdatedAt)
	if err != nil {
		return OutboxEvent{}, err
	}
	body, err := json.Marshal(env)
	if err != nil {
		return OutboxEvent{}, fmt.Errorf("marshal %s envelope: %w", routingKey, err)
	}
	return OutboxEvent{
		ID:         env.EventID,
		SagaID:     saga.ID,
		RoutingKey: routingKey,
		Body:       body,
		CreatedAt:  saga.UpdatedAt,
	}, nil
}

// save persists intermediate progress and extends the runner's claim.
// Failures are logged; the in-memory saga stays authoritative for the rest
// of the run unless the claim was lost.
func (s *Service) save(ctx context.Context, saga *Saga) error {
	if saga.ClaimedBy != "" {
		saga.ClaimedUntil = s.now().Add(s.opts.ClaimTTL)
	}
	err := s.store.Save(ctx, saga)
	switch {
	case errors.Is(err, ErrClaimed):
		s.sagaLog(saga).Warn("saga claimed by another runner, stopping")
	case err != nil:
		s.sagaLog(saga).WithError(err).Error("persist saga")
	}
	return err
}

// release gives up the runner's claim so the relay can pick the saga up.
func (s *Service) release(ctx context.Context, saga *Saga) {
	if saga.ClaimedBy == "" {
		return
	}
	saga.ClaimedBy, saga.ClaimedUntil = "", time.Time{}
	if err := s.store.Save(ctx, saga); err != nil && !errors.Is(err, ErrClaimed) {
		s.sagaLog(saga).WithError(err).Error("release saga")
	}
}

func (s *Service) sagaLog(saga *Saga) logrus.FieldLogger {
	return s.log.WithFields(logrus.Fields{
		"saga_id":        saga.ID,
		"reservation_id": saga.ReservationID,
		"state":          saga.State,
	})
}

func kindOr(err error, fallback apperr.Kind) apperr.Kind {
	if k := apperr.KindOf(err); k != apperr.KindUnknown {
		return k
	}
	return fallback
}
