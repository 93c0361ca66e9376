package checkout

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus/hooks/test"

	"github.com/andreasstove999/urbandrive/web-go/internal/apperr"
	"github.com/andreasstove999/urbandrive/web-go/internal/bank"
	"github.com/andreasstove999/urbandrive/web-go/internal/rental"
)

const (
	payerAccount    int64 = 11
	merchantAccount int64 = 99
	merchantID            = "1790000000001"
)

var errBackend = apperr.E(apperr.KindRemoteUnavailable, "test", errors.New("backend down"))

type fakeBackend struct {
	mu sync.Mutex

	reservation rental.Reservation

	ReservationFunc   func(id int) (rental.Reservation, error)
	SetStatusFunc     func(call int) error
	CreatePaymentFunc func(call int) (rental.PaymentReceipt, error)
	PaymentsFunc      func() []rental.Payment
	CreateInvoiceFunc func(call int) (int, error)
	InvoiceLookupFunc func() (*rental.Invoice, error)

	statusCalls  int
	paymentCalls int
	invoiceCalls int
	statuses     []rental.Status
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		reservation: rental.Reservation{
			ID:     42,
			UserID: 3,
			Total:  decimal.RequireFromString("300.00"),
			Status: rental.StatusPending,
		},
	}
}

func (f *fakeBackend) Reservation(_ context.Context, id int) (rental.Reservation, error) {
	if f.ReservationFunc != nil {
		return f.ReservationFunc(id)
	}
	return f.reservation, nil
}

func (f *fakeBackend) SetReservationStatus(_ context.Context, _ int, status rental.Status) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.statusCalls++
	if f.SetStatusFunc != nil {
		if err := f.SetStatusFunc(f.statusCalls); err != nil {
			return err
		}
	}
	f.statuses = append(f.statuses, status)
	return nil
}

func (f *fakeBackend) CreatePayment(_ context.Context, _ rental.PaymentRequest) (rental.PaymentReceipt, error) {
	f.mu.Lock()
	f.paymentCalls++
	call := f.paymentCalls
	f.mu.Unlock()

	if f.CreatePaymentFunc != nil {
		return f.CreatePaymentFunc(call)
	}
	return rental.PaymentReceipt{PaymentID: 7, Approved: true}, nil
}

func (f *fakeBackend) payments() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.paymentCalls
}

func (f *fakeBackend) Payments(context.Context, int) []rental.Payment {
	if f.PaymentsFunc != nil {
		return f.PaymentsFunc()
	}
	return []rental.Payment{}
}

func (f *fakeBackend) CreateInvoice(_ context.Context, _ rental.Invoice) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.invoiceCalls++
	if f.CreateInvoiceFunc != nil {
		return f.CreateInvoiceFunc(f.invoiceCalls)
	}
	return 9, nil
}

func (f *fakeBackend) Invoice(_ context.Context, id int) (rental.Invoice, error) {
	return rental.Invoice{ID: id, URI: "https://facturas.example/9.pdf"}, nil
}

func (f *fakeBackend) InvoiceForReservation(context.Context, int) (*rental.Invoice, error) {
	if f.InvoiceLookupFunc != nil {
		return f.InvoiceLookupFunc()
	}
	return nil, nil
}

type fakeBank struct {
	mu sync.Mutex

	AccountsFunc func(nationalID string) ([]bank.Account, error)
	TransferFunc func(ctx context.Context, call int, t bank.Transfer) (bank.Transaction, error)

	transfers []bank.Transfer
}

func (f *fakeBank) Accounts(_ context.Context, nationalID string) ([]bank.Account, error) {
	if f.AccountsFunc != nil {
		return f.AccountsFunc(nationalID)
	}
	if nationalID == merchantID {
		return []bank.Account{{ID: merchantAccount, NationalID: merchantID}}, nil
	}
	return []bank.Account{{ID: payerAccount, NationalID: nationalID}, {ID: 12, NationalID: nationalID}}, nil
}

func (f *fakeBank) CreateTransfer(ctx context.Context, t bank.Transfer) (bank.Transaction, error) {
	f.mu.Lock()
	f.transfers = append(f.transfers, t)
	call := len(f.transfers)
	f.mu.Unlock()

	if f.TransferFunc != nil {
		return f.TransferFunc(ctx, call, t)
	}
	return bank.Transaction{ID: int64(500 + call), CreatedAt: "2026-03-01T10:00:00Z"}, nil
}

func (f *fakeBank) all() []bank.Transfer {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]bank.Transfer(nil), f.transfers...)
}

type recordingPublisher struct {
	err  error
	keys []string
}

func (p *recordingPublisher) Publish(_ context.Context, key string, _ []byte) error {
	if p.err != nil {
		return p.err
	}
	p.keys = append(p.keys, key)
	return nil
}

type fixture struct {
	svc     *Service
	store   *MemoryStore
	backend *fakeBackend
	bank    *fakeBank
	hook    *test.Hook
}

func newFixture(t *testing.T, tweak func(*Options)) *fixture {
	t.Helper()

	logger, hook := test.NewNullLogger()
	opts := Options{
		MerchantNationalID: merchantID,
		TaxRate:            decimal.RequireFromString("0.12"),
		PaymentTimeout:     time.Second,
		MaxAttempts:        3,
		AttemptsPerRun:     3,
		NewBackOff:         func() backoff.BackOff { return &backoff.ZeroBackOff{} },
		Now:                func() time.Time { return time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC) },
		Logger:             logger,
	}
	if tweak != nil {
		tweak(&opts)
	}

	f := &fixture{
		store:   NewMemoryStore(),
		backend: newFakeBackend(),
		bank:    &fakeBank{},
		hook:    hook,
	}
	f.svc = NewService(f.store, f.backend, f.bank, opts)
	return f
}

var payer = Payer{UserID: 3, NationalID: "1712345678"}
