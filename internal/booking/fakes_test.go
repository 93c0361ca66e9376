package booking

import (
	"context"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus/hooks/test"

	"github.com/andreasstove999/urbandrive/web-go/internal/checkout"
	"github.com/andreasstove999/urbandrive/web-go/internal/gateway"
	"github.com/andreasstove999/urbandrive/web-go/internal/rental"
)

type fakeBackend struct {
	mu sync.Mutex

	VehiclesFunc          func() ([]rental.Vehicle, error)
	CartByUserFunc        func(userID int) (*rental.Cart, error)
	AddToCartFunc         func(userID, vehicleID int, start, end time.Time) (string, error)
	UpdateCartItemFunc    func(itemID int, start, end time.Time) (gateway.Ack, error)
	CreateReservationFunc func(nr gateway.NewReservation) (rental.Reservation, error)
	ReservationFunc       func(id int) (rental.Reservation, error)
	PaymentsFunc          func(reservationID int) []rental.Payment
	InvoiceFunc           func(reservationID int) (*rental.Invoice, error)

	calls        []string
	deleted      []int
	reservations []gateway.NewReservation
}

func (f *fakeBackend) record(name string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, name)
}

func (f *fakeBackend) count(name string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		if c == name {
			n++
		}
	}
	return n
}

func (f *fakeBackend) Vehicles(context.Context) ([]rental.Vehicle, error) {
	f.record("Vehicles")
	if f.VehiclesFunc != nil {
		return f.VehiclesFunc()
	}
	return nil, nil
}

func (f *fakeBackend) Vehicle(_ context.Context, id int) (rental.Vehicle, error) {
	f.record("Vehicle")
	return rental.Vehicle{ID: id}, nil
}

func (f *fakeBackend) Transmissions(context.Context) []rental.Transmission {
	f.record("Transmissions")
	return rental.Transmissions
}

func (f *fakeBackend) CartByUser(_ context.Context, userID int) (*rental.Cart, error) {
	f.record("CartByUser")
	if f.CartByUserFunc != nil {
		return f.CartByUserFunc(userID)
	}
	return nil, nil
}

func (f *fakeBackend) AddToCart(_ context.Context, userID, vehicleID int, start, end time.Time) (string, error) {
	f.record("AddToCart")
	if f.AddToCartFunc != nil {
		return f.AddToCartFunc(userID, vehicleID, start, end)
	}
	return "", nil
}

func (f *fakeBackend) UpdateCartItem(_ context.Context, itemID int, start, end time.Time) (gateway.Ack, error) {
	f.record("UpdateCartItem")
	if f.UpdateCartItemFunc != nil {
		return f.UpdateCartItemFunc(itemID, start, end)
	}
	return gateway.Ack{OK: true}, nil
}

func (f *fakeBackend) DeleteCartItem(_ context.Context, itemID int) (gateway.Ack, error) {
	f.record("DeleteCartItem")
	f.mu.Lock()
	f.deleted = append(f.deleted, itemID)
	f.mu.Unlock()
	return gateway.Ack{OK: true, Message: "Item eliminado con exito"}, nil
}

func (f *fakeBackend) CreateReservation(_ context.Context, nr gateway.NewReservation) (rental.Reservation, error) {
	f.record("CreateReservation")
	f.mu.Lock()
	f.reservations = append(f.reservations, nr)
	f.mu.Unlock()
	if f.CreateReservationFunc != nil {
		return f.CreateReservationFunc(nr)
	}
	return rental.Reservation{ID: 100 + nr.VehicleID, VehicleID: nr.VehicleID, Status: rental.StatusPending}, nil
}

func (f *fakeBackend) ReservationsByUser(context.Context, int) ([]rental.Reservation, error) {
	f.record("ReservationsByUser")
	return nil, nil
}

func (f *fakeBackend) Reservation(_ context.Context, id int) (rental.Reservation, error) {
	f.record("Reservation")
	if f.ReservationFunc != nil {
		return f.ReservationFunc(id)
	}
	return rental.Reservation{ID: id}, nil
}

func (f *fakeBackend) Payments(_ context.Context, reservationID int) []rental.Payment {
	f.record("Payments")
	if f.PaymentsFunc != nil {
		return f.PaymentsFunc(reservationID)
	}
	return []rental.Payment{}
}

func (f *fakeBackend) InvoiceForReservation(_ context.Context, reservationID int) (*rental.Invoice, error) {
	f.record("InvoiceForReservation")
	if f.InvoiceFunc != nil {
		return f.InvoiceFunc(reservationID)
	}
	return nil, nil
}

type fakeCheckout struct {
	PayFunc    func(id int, p checkout.Payer) (*checkout.Saga, error)
	LatestFunc func(id int) (*checkout.Saga, error)

	payers []checkout.Payer
}

func (f *fakeCheckout) Pay(_ context.Context, id int, p checkout.Payer) (*checkout.Saga, error) {
	f.payers = append(f.payers, p)
	if f.PayFunc != nil {
		return f.PayFunc(id, p)
	}
	return &checkout.Saga{ReservationID: id, State: checkout.StateCompleted}, nil
}

func (f *fakeCheckout) Latest(_ context.Context, id int) (*checkout.Saga, error) {
	if f.LatestFunc != nil {
		return f.LatestFunc(id)
	}
	return nil, nil
}

type mapCache struct {
	m         map[int]PaymentSummary
	forgotten []int
}

func newMapCache() *mapCache { return &mapCache{m: make(map[int]PaymentSummary)} }

func (c *mapCache) Payment(_ context.Context, id int) (PaymentSummary, bool) {
	p, ok := c.m[id]
	return p, ok
}

func (c *mapCache) StorePayment(_ context.Context, id int, p PaymentSummary) { c.m[id] = p }

func (c *mapCache) ForgetPayment(_ context.Context, id int) {
	c.forgotten = append(c.forgotten, id)
	delete(c.m, id)
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

var testUser = &rental.User{ID: 3, FirstName: "Ana", LastName: "Perez", Email: "ana@example.com"}

func newTestService() (*Service, *fakeBackend, *fakeCheckout) {
	b := &fakeBackend{}
	co := &fakeCheckout{}
	logger, _ := test.NewNullLogger()
	svc := NewService(b, co, dec("0.12"), logger)
	svc.now = func() time.Time { return time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC) }
	return svc, b, co
}
