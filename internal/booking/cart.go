package booking

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/andreasstove999/urbandrive/web-go/internal/apperr"
	"github.com/andreasstove999/urbandrive/web-go/internal/gateway"
	"github.com/andreasstove999/urbandrive/web-go/internal/money"
	"github.com/andreasstove999/urbandrive/web-go/internal/rental"
)

var (
	ErrEmptyCart     = errors.New("cart is empty")
	ErrItemNotInCart = errors.New("item is not in the user's cart")
)

const dateLayout = "2006-01-02"

type CartView struct {
	CartID int
	Items  []rental.CartItem
	money.Quote
}

// Cart loads the user's cart. A user without a cart gets an empty view.
func (s *Service) Cart(ctx context.Context, u *rental.User) (CartView, error) {
	c, err := s.backend.CartByUser(ctx, u.ID)
	if err != nil {
		return CartView{Quote: s.quote()}, err
	}
	if c == nil {
		return CartView{Items: []rental.CartItem{}, Quote: s.quote()}, nil
	}
	items := c.Items
	if items == nil {
		items = []rental.CartItem{}
	}
	return CartView{CartID: c.ID, Items: items, Quote: s.quote(c.Subtotals()...)}, nil
}

// AddItem is the add-to-cart form. Fields arrive as the client sent them.
type AddItem struct {
	VehicleID string `json:"idVehiculo"`
	Start     string `json:"fechaInicio"`
	End       string `json:"fechaFin"`
}

type AddResult struct {
	Message string
	CartID  int
}

const (
	msgMissingFields = "Faltan datos obligatorios (vehiculo y fechas)."
	msgAdded         = "Vehiculo agregado al carrito correctamente."
)

// Validate checks the form without touching the backend.
func (a AddItem) Validate() (vehicleID int, start, end time.Time, err error) {
	if strings.TrimSpace(a.VehicleID) == "" || strings.TrimSpace(a.Start) == "" || strings.TrimSpace(a.End) == "" {
		return 0, start, end, apperr.Validation(msgMissingFields)
	}
	vehicleID, convErr := strconv.Atoi(strings.TrimSpace(a.VehicleID))
	if convErr != nil || vehicleID <= 0 {
		return 0, start, end, apperr.Validation("El vehiculo seleccionado no es valido.")
	}
	if start, err = ParseDay(a.Start); err != nil {
		return 0, start, end, apperr.Validation("La fecha de inicio no es valida.")
	}
	if end, err = ParseDay(a.End); err != nil {
		return 0, start, end, apperr.Validation("La fecha de fin no es valida.")
	}
	return vehicleID, start, end, nil
}

// ParseDay keeps the calendar day of an ISO-8601 date or timestamp.
func ParseDay(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if len(s) > len(dateLayout) {
		s = s[:len(dateLayout)]
	}
	return time.Parse(dateLayout, s)
}

// AddToCart adds a vehicle for a date range. Backend rejections come back
// with a curated message; the raw error is logged.
func (s *Service) AddToCart(ctx context.Context, u *rental.User, in AddItem) (AddResult, error) {
	vehicleID, start, end, err := in.Validate()
	if err != nil {
		return AddResult{}, err
	}

	msg, err := s.backend.AddToCart(ctx, u.ID, vehicleID, start, end)
	if err != nil {
		curated, _ := apperr.AddToCart.Message(err)
		s.log.WithFields(logrus.Fields{
			"user_id":    u.ID,
			"vehicle_id": vehicleID,
		}).WithError(err).Warn("add to cart rejected")
		kind := apperr.KindOf(err)
		if kind == apperr.KindUnknown {
			kind = apperr.KindRemoteUnavailable
		}
		return AddResult{Message: curated}, apperr.E(kind, "booking.AddToCart", &UserError{Message: curated, Err: err})
	}

	res := AddResult{Message: strings.TrimSpace(msg)}
	if res.Message == "" {
		res.Message = msgAdded
	}
	if c, err := s.backend.CartByUser(ctx, u.ID); err != nil {
		s.log.WithError(err).Warn("reload cart after add")
	} else if c != nil {
		res.CartID = c.ID
	}
	return res, nil
}

// ownItem checks that itemID is a line of u's cart.
func (s *Service) ownItem(ctx context.Context, op string, u *rental.User, itemID int) error {
	c, err := s.backend.CartByUser(ctx, u.ID)
	if err != nil {
		return apperr.E(apperr.KindOf(err), op, err)
	}
	if c != nil {
		for _, it := range c.Items {
			if it.ID == itemID {
				return nil
			}
		}
	}
	s.log.WithFields(logrus.Fields{"user_id": u.ID, "item_id": itemID}).Warn("cart item not owned by user")
	return apperr.E(apperr.KindNotFound, op, ErrItemNotInCart)
}

// RemoveItem deletes a line of u's cart. A refused delete is logged only.
func (s *Service) RemoveItem(ctx context.Context, u *rental.User, itemID int) error {
	if err := s.ownItem(ctx, "booking.RemoveItem", u, itemID); err != nil {
		return err
	}
	ack, err := s.backend.DeleteCartItem(ctx, itemID)
	if err != nil {
		s.log.WithField("item_id", itemID).WithError(err).Error("delete cart item")
		return err
	}
	if !ack.OK {
		s.log.WithFields(logrus.Fields{"item_id": itemID, "reply": ack.Message}).Warn("delete cart item not acknowledged")
	}
	return nil
}

// UpdateItem changes the dates of a line of u's cart.
func (s *Service) UpdateItem(ctx context.Context, u *rental.User, itemID int, startText, endText string) error {
	if strings.TrimSpace(startText) == "" || strings.TrimSpace(endText) == "" {
		return apperr.Validation("Selecciona las nuevas fechas.")
	}
	start, err := ParseDay(startText)
	if err != nil {
		return apperr.Validation("La fecha de inicio no es valida.")
	}
	end, err := ParseDay(endText)
	if err != nil {
		return apperr.Validation("La fecha de fin no es valida.")
	}
	if end.Before(start) {
		return apperr.Validation("La fecha de fin debe ser posterior a la de inicio.")
	}
	if err := s.ownItem(ctx, "booking.UpdateItem", u, itemID); err != nil {
		return err
	}

	ack, err := s.backend.UpdateCartItem(ctx, itemID, start, end)
	if err != nil {
		s.log.WithField("item_id", itemID).WithError(err).Error("update cart item")
		curated, _ := apperr.AddToCart.Message(err)
		return apperr.E(apperr.KindOf(err), "booking.UpdateItem", &UserError{Message: curated, Err: err})
	}
	if !ack.OK {
		s.log.WithFields(logrus.Fields{"item_id": itemID, "reply": ack.Message}).Warn("update cart item not acknowledged")
	}
	return nil
}

// LineFailure is a cart line whose reservation could not be created.
type LineFailure struct {
	Item rental.CartItem
	Err  error
}

type CheckoutOutcome struct {
	Created []rental.Reservation
	Failed  []LineFailure
}

// GenerateReservations creates one pending reservation per cart line. A line
// is removed from the cart only once its reservation exists, so failed lines
// stay in the cart. Reservations already created are kept when a later line
// fails.
func (s *Service) GenerateReservations(ctx context.Context, u *rental.User) (CheckoutOutcome, error) {
	c, err := s.backend.CartByUser(ctx, u.ID)
	if err != nil {
		return CheckoutOutcome{}, err
	}
	if c == nil || len(c.Items) == 0 {
		return CheckoutOutcome{}, apperr.E(apperr.KindValidation, "booking.GenerateReservations", ErrEmptyCart)
	}

	var out CheckoutOutcome
	for _, it := range c.Items {
		log := s.log.WithFields(logrus.Fields{"user_id": u.ID, "item_id": it.ID, "vehicle_id": it.VehicleID})

		r, err := s.backend.CreateReservation(ctx, gateway.NewReservation{
			UserID:      u.ID,
			UserName:    u.FullName(),
			UserEmail:   u.Email,
			VehicleID:   it.VehicleID,
			VehicleName: it.VehicleName,
			Start:       it.Start,
			End:         it.End,
			Total:       it.Subtotal,
			Status:      rental.StatusPending,
			BookedAt:    s.now().UTC(),
		})
		if err != nil {
			log.WithError(err).Error("create reservation from cart line")
			out.Failed = append(out.Failed, LineFailure{Item: it, Err: err})
			continue
		}
		out.Created = append(out.Created, r)

		if it.ID == 0 {
			continue
		}
		if _, err := s.backend.DeleteCartItem(ctx, it.ID); err != nil {
			log.WithError(err).Error("delete reserved cart line")
		}
	}

	log := s.log.WithFields(logrus.Fields{
		"user_id": u.ID,
		"created": len(out.Created),
		"failed":  len(out.Failed),
	})
	if len(out.Failed) > 0 {
		log.Warn("cart checkout finished with failures")
	} else {
		log.Info("cart checkout finished")
	}
	return out, nil
}

// UserError carries a message that is safe to show next to the cause.
type UserError struct {
	Message string
	Err     error
}

func (e *UserError) Error() string { return fmt.Sprintf("%s: %v", e.Message, e.Err) }
func (e *UserError) Unwrap() error { return e.Err }

// UserMessage returns the curated message carried by err, if any.
func UserMessage(err error) (string, bool) {
	var ue *UserError
	if errors.As(err, &ue) {
		return ue.Message, true
	}
	return "", false
}
