package gateway

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/andreasstove999/urbandrive/web-go/internal/rental"
	"github.com/andreasstove999/urbandrive/web-go/internal/soap"
)

type invoiceDTO struct {
	ID            int             `xml:"IdFactura"`
	ReservationID int             `xml:"IdReserva"`
	UserID        int             `xml:"IdUsuario"`
	URI           string          `xml:"UriFactura,omitempty"`
	IssuedAt      time.Time       `xml:"FechaEmision"`
	Total         decimal.Decimal `xml:"ValorTotal"`
	Description   string          `xml:"Descripcion"`
}

func (g *Gateway) Invoices(ctx context.Context) ([]rental.Invoice, error) {
	res, err := g.call(ctx, g.invoices, "obtenerFacturas")
	if err != nil {
		return nil, err
	}
	var out []rental.Invoice
	for _, n := range res.Items(itemInvoice) {
		out = append(out, invoiceFrom(n))
	}
	return out, nil
}

// InvoiceForReservation returns the first invoice issued for the reservation.
func (g *Gateway) InvoiceForReservation(ctx context.Context, reservationID int) (*rental.Invoice, error) {
	all, err := g.Invoices(ctx)
	if err != nil {
		return nil, err
	}
	for i := range all {
		if all[i].ReservationID == reservationID {
			return &all[i], nil
		}
	}
	return nil, nil
}

func (g *Gateway) Invoice(ctx context.Context, id int) (rental.Invoice, error) {
	res, err := g.call(ctx, g.invoices, "obtenerFacturaPorId", soap.P("idFactura", id))
	if err != nil {
		return rental.Invoice{}, err
	}
	if res.Empty() {
		return rental.Invoice{}, notFound("gateway.Invoice")
	}
	inv := invoiceFrom(res)
	if inv.ID == 0 {
		inv.ID = id
	}
	return inv, nil
}

// CreateInvoice asks WS_Factura to issue the document and returns its id. The
// backend renders the PDF and fills in the URI.
func (g *Gateway) CreateInvoice(ctx context.Context, inv rental.Invoice) (int, error) {
	issued := inv.IssuedAt
	if issued.IsZero() {
		issued = time.Now().UTC()
	}
	res, err := g.call(ctx, g.invoices, "crearFactura", soap.P("factura", invoiceDTO{
		ReservationID: inv.ReservationID,
		UserID:        inv.UserID,
		URI:           inv.URI,
		IssuedAt:      issued,
		Total:         inv.Total,
		Description:   inv.Description,
	}))
	if err != nil {
		return 0, err
	}
	return res.TextInt(), nil
}
