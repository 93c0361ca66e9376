package gateway

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/andreasstove999/urbandrive/web-go/internal/apperr"
	"github.com/andreasstove999/urbandrive/web-go/internal/rental"
	"github.com/andreasstove999/urbandrive/web-go/internal/soap"
)

var ErrPaymentNotRecorded = errors.New("payment not recorded")

type paymentDTO struct {
	ReservationID   int             `xml:"IdReserva"`
	SourceAccount   int64           `xml:"CuentaCliente"`
	MerchantAccount int64           `xml:"CuentaComercio"`
	Amount          decimal.Decimal `xml:"Monto"`
}

// CreatePayment records a completed bank transfer in WS_Pagos. The call is
// bounded by the payment timeout; expiry is reported as a Timeout.
func (g *Gateway) CreatePayment(ctx context.Context, p rental.PaymentRequest) (rental.PaymentReceipt, error) {
	ctx, cancel := context.WithTimeout(ctx, g.paymentTimeout)
	defer cancel()

	res, err := g.call(ctx, g.payments, "CrearPago", soap.P("body", paymentDTO{
		ReservationID:   p.ReservationID,
		SourceAccount:   p.SourceAccount,
		MerchantAccount: p.MerchantAccount,
		Amount:          p.Amount,
	}))
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return rental.PaymentReceipt{}, apperr.E(apperr.KindTimeout, "gateway.CreatePayment",
				fmt.Errorf("timeout %s.CrearPago: %w", ServicePayments, err))
		}
		return rental.PaymentReceipt{}, err
	}
	if res.Empty() {
		return rental.PaymentReceipt{}, apperr.E(apperr.KindDomainRejected, "gateway.CreatePayment", ErrPaymentNotRecorded)
	}
	return receiptFrom(res), nil
}

// Payments lists the payments recorded for a reservation, oldest first. It is
// empty when the payment service fails.
func (g *Gateway) Payments(ctx context.Context, reservationID int) []rental.Payment {
	res, err := g.call(ctx, g.payments, "ListarPagosPorReserva", soap.P("idReserva", reservationID))
	if err != nil {
		return nil
	}
	var out []rental.Payment
	for _, n := range res.Items(itemPayment) {
		p := paymentFrom(n)
		if p.ReservationID == 0 {
			p.ReservationID = reservationID
		}
		out = append(out, p)
	}
	return out
}
