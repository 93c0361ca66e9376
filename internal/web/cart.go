package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/andreasstove999/urbandrive/web-go/internal/apperr"
	"github.com/andreasstove999/urbandrive/web-go/internal/booking"
	"github.com/andreasstove999/urbandrive/web-go/internal/middleware"
)

type cartView struct {
	Page
	Cart    booking.CartView
	TaxRate decimal.Decimal
}

type addResponse struct {
	OK      bool   `json:"ok"`
	Message string `json:"mensaje"`
	CartID  int    `json:"carritoId,omitempty"`
}

func (h *handler) renderCart(w http.ResponseWriter, r *http.Request, status int, errMsg string) {
	u := middleware.CurrentUser(r.Context())
	v := cartView{Page: h.page(r, "Tu carrito"), TaxRate: h.bookings.TaxRate()}
	v.Error = errMsg

	c, err := h.bookings.Cart(r.Context(), u)
	if err != nil {
		h.reqLog(r).WithError(err).Error("load cart")
		v.Cart = c
		if v.Error == "" {
			v.Error = "No se pudo cargar el carrito."
			status = http.StatusInternalServerError
		}
		h.render.render(w, status, "carrito.html", v)
		return
	}
	if c.CartID != 0 {
		h.sessions.SetCartID(r.Context(), c.CartID)
	}
	v.Cart = c
	h.render.render(w, status, "carrito.html", v)
}

func (h *handler) ViewCart(w http.ResponseWriter, r *http.Request) {
	h.renderCart(w, r, http.StatusOK, "")
}

// AddToCart accepts JSON or a form post and always answers JSON.
func (h *handler) AddToCart(w http.ResponseWriter, r *http.Request) {
	var in booking.AddItem
	if strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
		var raw map[string]any
		if err := json.NewDecoder(r.Body).Decode(&raw); err != nil {
			writeJSON(w, http.StatusBadRequest, addResponse{Message: "Solicitud invalida."})
			return
		}
		in = booking.AddItem{
			VehicleID: field(raw, "idVehiculo"),
			Start:     field(raw, "fechaInicio"),
			End:       field(raw, "fechaFin"),
		}
	} else {
		in = booking.AddItem{
			VehicleID: r.FormValue("idVehiculo"),
			Start:     r.FormValue("fechaInicio"),
			End:       r.FormValue("fechaFin"),
		}
	}

	res, err := h.bookings.AddToCart(r.Context(), middleware.CurrentUser(r.Context()), in)
	if err != nil {
		msg := res.Message
		if m, ok := booking.UserMessage(err); ok {
			msg = m
		}
		if apperr.Is(err, apperr.KindValidation) {
			msg = validationMessage(err)
		}
		if msg == "" {
			msg, _ = apperr.AddToCart.Message(err)
		}
		writeJSON(w, http.StatusBadRequest, addResponse{Message: msg})
		return
	}

	if res.CartID != 0 {
		h.sessions.SetCartID(r.Context(), res.CartID)
	}
	writeJSON(w, http.StatusOK, addResponse{OK: true, Message: res.Message, CartID: res.CartID})
}

// field reads a JSON value that clients send either as a string or a number.
func field(raw map[string]any, key string) string {
	switch v := raw[key].(type) {
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case nil:
		return ""
	default:
		return fmt.Sprint(v)
	}
}

func validationMessage(err error) string {
	var e *apperr.Error
	if errors.As(err, &e) && e.Kind == apperr.KindValidation {
		return e.Err.Error()
	}
	return err.Error()
}

func (h *handler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil || id <= 0 {
		h.reqLog(r).WithField("item_id", chi.URLParam(r, "id")).Warn("invalid cart item id")
		http.Redirect(w, r, "/carrito", http.StatusSeeOther)
		return
	}
	// Failures are logged by the booking service; the cart page shows what
	// the backend holds either way.
	_ = h.bookings.RemoveItem(r.Context(), middleware.CurrentUser(r.Context()), id)
	http.Redirect(w, r, "/carrito", http.StatusSeeOther)
}

func (h *handler) UpdateItem(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil || id <= 0 {
		http.Redirect(w, r, "/carrito", http.StatusSeeOther)
		return
	}

	u := middleware.CurrentUser(r.Context())
	if err := h.bookings.UpdateItem(r.Context(), u, id, r.FormValue("fechaInicio"), r.FormValue("fechaFin")); err != nil {
		switch {
		case apperr.Is(err, apperr.KindValidation):
			h.renderCart(w, r, http.StatusBadRequest, validationMessage(err))
			return
		case errors.Is(err, booking.ErrItemNotInCart):
			h.renderCart(w, r, http.StatusNotFound, "Ese item ya no está en tu carrito.")
			return
		}
		h.reqLog(r).WithField("item_id", id).WithError(err).Error("update cart item")
		h.renderCart(w, r, http.StatusOK, "No se pudo actualizar el item del carrito.")
		return
	}
	http.Redirect(w, r, "/carrito", http.StatusSeeOther)
}

func (h *handler) GenerateReservations(w http.ResponseWriter, r *http.Request) {
	u := middleware.CurrentUser(r.Context())
	out, err := h.bookings.GenerateReservations(r.Context(), u)
	if err != nil {
		if errors.Is(err, booking.ErrEmptyCart) {
			h.renderCart(w, r, http.StatusOK, "Tu carrito esta vacio.")
			return
		}
		h.reqLog(r).WithError(err).Error("generate reservations")
		h.renderCart(w, r, http.StatusOK, "No se pudieron generar las reservas. Intenta nuevamente.")
		return
	}

	if len(out.Failed) > 0 {
		// Failed lines are still in the cart.
		msg := fmt.Sprintf("No se pudieron reservar %d de %d vehiculos. Revisa tu carrito.", len(out.Failed), len(out.Failed)+len(out.Created))
		if len(out.Created) == 0 {
			h.renderCart(w, r, http.StatusOK, msg)
			return
		}
		h.sessions.Flash(r.Context(), msg)
	} else {
		h.sessions.SetCartID(r.Context(), 0)
		h.sessions.Flash(r.Context(), fmt.Sprintf("Reservas generadas: %d. Ya puedes pagarlas.", len(out.Created)))
	}
	http.Redirect(w, r, "/reservas", http.StatusSeeOther)
}
