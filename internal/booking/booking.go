// Package booking holds the logic behind the vehicle, cart and reservation
// pages: it validates input, calls the backend and assembles view models.
package booking

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/andreasstove999/urbandrive/web-go/internal/checkout"
	"github.com/andreasstove999/urbandrive/web-go/internal/gateway"
	"github.com/andreasstove999/urbandrive/web-go/internal/money"
	"github.com/andreasstove999/urbandrive/web-go/internal/rental"
)

// Backend is the part of the SOAP gateway the pages use.
type Backend interface {
	Vehicles(ctx context.Context) ([]rental.Vehicle, error)
	Vehicle(ctx context.Context, id int) (rental.Vehicle, error)
	Transmissions(ctx context.Context) []rental.Transmission

	CartByUser(ctx context.Context, userID int) (*rental.Cart, error)
	AddToCart(ctx context.Context, userID, vehicleID int, start, end time.Time) (string, error)
	UpdateCartItem(ctx context.Context, itemID int, start, end time.Time) (gateway.Ack, error)
	DeleteCartItem(ctx context.Context, itemID int) (gateway.Ack, error)

	CreateReservation(ctx context.Context, nr gateway.NewReservation) (rental.Reservation, error)
	ReservationsByUser(ctx context.Context, userID int) ([]rental.Reservation, error)
	Reservation(ctx context.Context, id int) (rental.Reservation, error)
	Payments(ctx context.Context, reservationID int) []rental.Payment
	InvoiceForReservation(ctx context.Context, reservationID int) (*rental.Invoice, error)
}

// Checkout runs payments.
type Checkout interface {
	Pay(ctx context.Context, reservationID int, payer checkout.Payer) (*checkout.Saga, error)
	Latest(ctx context.Context, reservationID int) (*checkout.Saga, error)
}

type Service struct {
	backend  Backend
	checkout Checkout
	taxRate  decimal.Decimal
	now      func() time.Time
	log      logrus.FieldLogger
}

func NewService(backend Backend, co Checkout, taxRate decimal.Decimal, logger logrus.FieldLogger) *Service {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Service{
		backend:  backend,
		checkout: co,
		taxRate:  taxRate,
		now:      time.Now,
		log:      logger.WithField("component", "booking"),
	}
}

func (s *Service) TaxRate() decimal.Decimal { return s.taxRate }

func (s *Service) quote(subtotals ...decimal.Decimal) money.Quote {
	return money.QuoteOf(subtotals, s.taxRate)
}
