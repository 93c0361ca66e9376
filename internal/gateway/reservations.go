package gateway

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"github.com/andreasstove999/urbandrive/web-go/internal/apperr"
	"github.com/andreasstove999/urbandrive/web-go/internal/rental"
	"github.com/andreasstove999/urbandrive/web-go/internal/soap"
)

var ErrStatusNotChanged = errors.New("reservation status not changed")

// NewReservation is what checkout of a cart line sends to WS_Reserva.
type NewReservation struct {
	UserID      int
	UserName    string
	UserEmail   string
	VehicleID   int
	VehicleName string
	Start       time.Time
	End         time.Time
	Total       decimal.Decimal
	Status      rental.Status
	BookedAt    time.Time
}

type reservationDTO struct {
	UserID      int             `xml:"IdUsuario"`
	VehicleID   int             `xml:"IdVehiculo"`
	UserName    string          `xml:"NombreUsuario,omitempty"`
	UserEmail   string          `xml:"CorreoUsuario,omitempty"`
	VehicleName string          `xml:"VehiculoNombre,omitempty"`
	Start       time.Time       `xml:"FechaInicio"`
	End         time.Time       `xml:"FechaFin"`
	Total       decimal.Decimal `xml:"Total"`
	Status      string          `xml:"Estado"`
	BookedAt    time.Time       `xml:"FechaReserva"`
}

func (g *Gateway) ReservationsByUser(ctx context.Context, userID int) ([]rental.Reservation, error) {
	res, err := g.call(ctx, g.reservations, "ObtenerReservasPorUsuario", soap.P("idUsuario", userID))
	if err != nil {
		return nil, err
	}
	var out []rental.Reservation
	for _, n := range res.Items(itemReservation) {
		out = append(out, reservationFrom(n))
	}
	return out, nil
}

func (g *Gateway) Reservation(ctx context.Context, id int) (rental.Reservation, error) {
	res, err := g.call(ctx, g.reservations, "ObtenerReservaPorId", soap.P("idReserva", id))
	if err != nil {
		return rental.Reservation{}, err
	}
	if res.Empty() {
		return rental.Reservation{}, notFound("gateway.Reservation")
	}
	r := reservationFrom(res)
	if r.ID == 0 {
		r.ID = id
	}
	return r, nil
}

// CreateReservation returns the stored reservation. The backend answers
// either with the full record or with the new id only; in the latter case the
// request fields fill the rest.
func (g *Gateway) CreateReservation(ctx context.Context, nr NewReservation) (rental.Reservation, error) {
	status := nr.Status
	if status == "" {
		status = rental.StatusPending
	}
	bookedAt := nr.BookedAt
	if bookedAt.IsZero() {
		bookedAt = time.Now().UTC()
	}

	dto := reservationDTO{
		UserID:      nr.UserID,
		VehicleID:   nr.VehicleID,
		UserName:    nr.UserName,
		UserEmail:   nr.UserEmail,
		VehicleName: nr.VehicleName,
		Start:       nr.Start.UTC(),
		End:         nr.End.UTC(),
		Total:       nr.Total,
		Status:      string(status),
		BookedAt:    bookedAt,
	}

	res, err := g.call(ctx, g.reservations, "CrearReserva", soap.P("reserva", dto))
	if err != nil {
		return rental.Reservation{}, err
	}

	created := rental.Reservation{
		UserID:      nr.UserID,
		UserName:    nr.UserName,
		UserEmail:   nr.UserEmail,
		VehicleID:   nr.VehicleID,
		VehicleName: nr.VehicleName,
		Start:       nr.Start,
		End:         nr.End,
		Total:       nr.Total,
		Status:      status,
		CreatedAt:   bookedAt,
	}
	switch {
	case res.Empty():
	case len(res.Children) > 0:
		if r := reservationFrom(res); r.ID != 0 {
			created = r
		}
	default:
		created.ID = res.TextInt()
	}
	return created, nil
}

func (g *Gateway) SetReservationStatus(ctx context.Context, id int, status rental.Status) error {
	res, err := g.call(ctx, g.reservations, "CambiarEstadoReserva",
		soap.P("idReserva", id),
		soap.P("nuevoEstado", string(status)),
	)
	if err != nil {
		return err
	}
	if !res.TextBool() {
		return apperr.E(apperr.KindDomainRejected, "gateway.SetReservationStatus", ErrStatusNotChanged)
	}
	return nil
}
