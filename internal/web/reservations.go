package web

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/andreasstove999/urbandrive/web-go/internal/apperr"
	"github.com/andreasstove999/urbandrive/web-go/internal/booking"
	"github.com/andreasstove999/urbandrive/web-go/internal/middleware"
	"github.com/andreasstove999/urbandrive/web-go/internal/receipt"
	"github.com/andreasstove999/urbandrive/web-go/internal/rental"
)

type reservationsView struct {
	Page
	Reservations []rental.Reservation
}

type reservationView struct {
	Page
	Detail     booking.ReservationDetail
	NationalID string
}

func reservationID(r *http.Request) (int, bool) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	return id, err == nil && id > 0
}

func (h *handler) ListReservations(w http.ResponseWriter, r *http.Request) {
	v := reservationsView{Page: h.page(r, "Mis reservas")}
	v.Message = h.sessions.PopFlash(r.Context())

	rs, err := h.bookings.Reservations(r.Context(), middleware.CurrentUser(r.Context()))
	if err != nil {
		h.reqLog(r).WithError(err).Error("list reservations")
		v.Error = "No se pudieron cargar tus reservas."
	}
	v.Reservations = rs
	h.render.render(w, http.StatusOK, "reservas.html", v)
}

// loadDetail redirects to the list when the reservation cannot be shown.
func (h *handler) loadDetail(w http.ResponseWriter, r *http.Request, id int) (booking.ReservationDetail, bool) {
	d, err := h.bookings.Detail(r.Context(), middleware.CurrentUser(r.Context()), id, h.sessions)
	if err != nil {
		if !apperr.Is(err, apperr.KindNotFound) {
			h.reqLog(r).WithField("reservation_id", id).WithError(err).Error("load reservation")
			h.sessions.Flash(r.Context(), "No se pudo cargar la reserva.")
		}
		http.Redirect(w, r, "/reservas", http.StatusSeeOther)
		return d, false
	}
	if u := middleware.CurrentUser(r.Context()); u != nil && d.Reservation.UserID != 0 && d.Reservation.UserID != u.ID {
		h.reqLog(r).WithField("reservation_id", id).Warn("reservation of another user")
		http.Redirect(w, r, "/reservas", http.StatusSeeOther)
		return d, false
	}
	return d, true
}

func (h *handler) ReservationDetail(w http.ResponseWriter, r *http.Request) {
	id, ok := reservationID(r)
	if !ok {
		http.Redirect(w, r, "/reservas", http.StatusSeeOther)
		return
	}
	d, ok := h.loadDetail(w, r, id)
	if !ok {
		return
	}

	v := reservationView{Page: h.page(r, "Resumen de tu reserva"), Detail: d}
	if d.Payment != nil {
		v.NationalID = d.Payment.NationalID
	}
	h.render.render(w, http.StatusOK, "reserva.html", v)
}

func (h *handler) Pay(w http.ResponseWriter, r *http.Request) {
	id, ok := reservationID(r)
	if !ok {
		http.Redirect(w, r, "/reservas", http.StatusSeeOther)
		return
	}
	nationalID := r.FormValue("cedula")

	msg, err := h.bookings.Pay(r.Context(), middleware.CurrentUser(r.Context()), id, nationalID, h.sessions)
	if err == nil {
		h.sessions.Flash(r.Context(), msg)
		http.Redirect(w, r, "/reservas", http.StatusSeeOther)
		return
	}

	d, ok := h.loadDetail(w, r, id)
	if !ok {
		return
	}
	v := reservationView{Page: h.page(r, "Resumen de tu reserva"), Detail: d, NationalID: nationalID}
	status := http.StatusOK
	switch m, found := booking.UserMessage(err); {
	case found:
		v.Error = m
	case apperr.Is(err, apperr.KindValidation):
		v.Error = validationMessage(err)
		status = http.StatusBadRequest
	default:
		v.Error = booking.PaymentMessage(err)
	}
	h.render.render(w, status, "reserva.html", v)
}

// Receipt serves the PDF payment receipt of a paid reservation.
func (h *handler) Receipt(w http.ResponseWriter, r *http.Request) {
	id, ok := reservationID(r)
	if !ok {
		h.notFound(w, r, "Reserva no encontrada")
		return
	}
	d, ok := h.loadDetail(w, r, id)
	if !ok {
		return
	}
	if !d.Paid() {
		h.notFound(w, r, "Esta reserva no tiene un pago registrado.")
		return
	}

	var buf bytes.Buffer
	if err := receipt.Write(&buf, d, h.now()); err != nil {
		h.reqLog(r).WithField("reservation_id", id).WithError(err).Error("render receipt")
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="comprobante-reserva-%d.pdf"`, id))
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}
