// Package gateway exposes the SOAP backend as typed operations. Every result
// passes through the normalisation layer in normalize.go, so callers only see
// rental types.
package gateway

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/andreasstove999/urbandrive/web-go/internal/apperr"
	"github.com/andreasstove999/urbandrive/web-go/internal/soap"
)

const (
	ServiceVehicles     = "WS_Vehiculo"
	ServiceUsers        = "WS_Usuarios"
	ServiceCart         = "WS_CarritoDetalle"
	ServiceReservations = "WS_Reserva"
	ServicePayments     = "WS_Pagos"
	ServiceInvoices     = "WS_Factura"
	ServiceCategories   = "WS_CategoriaVehiculo"
	ServiceBranches     = "WS_Sucursales"
	ServicePromotions   = "WS_Promocion"
)

var ErrNotFound = errors.New("not found")

type Options struct {
	BaseURL        string
	Namespace      string
	HTTP           *http.Client
	PaymentTimeout time.Duration
	Logger         logrus.FieldLogger
}

type Gateway struct {
	vehicles     *soap.Client
	users        *soap.Client
	cart         *soap.Client
	reservations *soap.Client
	payments     *soap.Client
	invoices     *soap.Client
	categories   *soap.Client
	branches     *soap.Client
	promotions   *soap.Client

	paymentTimeout time.Duration
	log            logrus.FieldLogger
}

func New(opts Options) *Gateway {
	httpClient := opts.HTTP
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	logger := opts.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	timeout := opts.PaymentTimeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}

	client := func(service string) *soap.Client {
		return soap.NewClient(opts.BaseURL, service, opts.Namespace, httpClient)
	}

	return &Gateway{
		vehicles:       client(ServiceVehicles),
		users:          client(ServiceUsers),
		cart:           client(ServiceCart),
		reservations:   client(ServiceReservations),
		payments:       client(ServicePayments),
		invoices:       client(ServiceInvoices),
		categories:     client(ServiceCategories),
		branches:       client(ServiceBranches),
		promotions:     client(ServicePromotions),
		paymentTimeout: timeout,
		log:            logger.WithField("component", "gateway"),
	}
}

// Services returns the clients in a stable order for readiness probes.
func (g *Gateway) Services() []*soap.Client {
	return []*soap.Client{
		g.vehicles, g.users, g.cart, g.reservations, g.payments,
		g.invoices, g.categories, g.branches, g.promotions,
	}
}

func (g *Gateway) logFailure(c *soap.Client, op string, err error) {
	g.log.WithFields(logrus.Fields{
		"service":   c.Name,
		"operation": op,
		"kind":      apperr.KindOf(err).String(),
	}).WithError(err).Error("soap call failed")
}

func (g *Gateway) call(ctx context.Context, c *soap.Client, op string, params ...soap.Param) (*soap.Node, error) {
	res, err := c.Call(ctx, op, params...)
	if err != nil {
		g.logFailure(c, op, err)
		return nil, err
	}
	return res, nil
}

func notFound(op string) error {
	return apperr.E(apperr.KindNotFound, op, ErrNotFound)
}
