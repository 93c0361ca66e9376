package gateway

import (
	"context"
	"strings"
	"time"

	"github.com/andreasstove999/urbandrive/web-go/internal/rental"
	"github.com/andreasstove999/urbandrive/web-go/internal/soap"
)

// Ack is the free-text acknowledgement the cart service answers with.
type Ack struct {
	OK      bool
	Message string
}

func ackFrom(n *soap.Node) Ack {
	msg := ""
	if n != nil {
		msg = n.Text
	}
	lower := strings.ToLower(msg)
	return Ack{
		OK:      strings.Contains(lower, "exito") || strings.Contains(lower, "éxito"),
		Message: msg,
	}
}

// CartByUser returns nil when the user has no cart yet.
func (g *Gateway) CartByUser(ctx context.Context, userID int) (*rental.Cart, error) {
	res, err := g.call(ctx, g.cart, "ObtenerCarritoPorUsuario", soap.P("idUsuario", userID))
	if err != nil {
		return nil, err
	}
	if res.Empty() {
		return nil, nil
	}
	c := cartFrom(res)
	if c.UserID == 0 {
		c.UserID = userID
	}
	return c, nil
}

func (g *Gateway) CartItems(ctx context.Context, cartID int) ([]rental.CartItem, error) {
	res, err := g.call(ctx, g.cart, "ObtenerCarrito", soap.P("idCarrito", cartID))
	if err != nil {
		return nil, err
	}
	if res.Empty() {
		return nil, nil
	}
	return cartItemsFrom(res.Child("Items")), nil
}

// AddToCart books a vehicle into the user's cart for whole calendar days.
// The backend creates the cart on first use. Rejections such as "no esta
// disponible" arrive as faults.
func (g *Gateway) AddToCart(ctx context.Context, userID, vehicleID int, start, end time.Time) (string, error) {
	res, err := g.call(ctx, g.cart, "AgregarVehiculo",
		soap.P("idUsuario", userID),
		soap.P("idVehiculo", vehicleID),
		soap.P("fechaInicio", calendarDay(start)),
		soap.P("fechaFin", calendarDay(end)),
	)
	if err != nil {
		return "", err
	}
	if res == nil {
		return "", nil
	}
	return res.Text, nil
}

func (g *Gateway) UpdateCartItem(ctx context.Context, itemID int, start, end time.Time) (Ack, error) {
	res, err := g.call(ctx, g.cart, "ActualizarItem",
		soap.P("idItem", itemID),
		soap.P("fechaInicio", calendarDay(start)),
		soap.P("fechaFin", calendarDay(end)),
	)
	if err != nil {
		return Ack{}, err
	}
	return ackFrom(res), nil
}

func (g *Gateway) DeleteCartItem(ctx context.Context, itemID int) (Ack, error) {
	res, err := g.call(ctx, g.cart, "DeleteItem", soap.P("idItem", itemID))
	if err != nil {
		return Ack{}, err
	}
	return ackFrom(res), nil
}

func calendarDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
