package web

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/andreasstove999/urbandrive/web-go/internal/apperr"
	"github.com/andreasstove999/urbandrive/web-go/internal/booking"
	"github.com/andreasstove999/urbandrive/web-go/internal/rental"
)

type vehiclesView struct {
	Page
	booking.VehicleListing
}

type vehicleView struct {
	Page
	Vehicle rental.Vehicle
}

func (h *handler) ListVehicles(w http.ResponseWriter, r *http.Request) {
	f := booking.ParseVehicleFilter(r.URL.Query())
	listing, err := h.bookings.ListVehicles(r.Context(), f)
	v := vehiclesView{Page: h.page(r, "Vehículos disponibles"), VehicleListing: listing}
	if err != nil {
		h.reqLog(r).WithError(err).Error("list vehicles")
		v.Error = "Error al cargar los vehículos."
		v.Filter = f
		h.render.render(w, http.StatusInternalServerError, "vehiculos.html", v)
		return
	}
	h.render.render(w, http.StatusOK, "vehiculos.html", v)
}

func (h *handler) VehicleDetail(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil || id <= 0 {
		h.notFound(w, r, "Vehículo no encontrado")
		return
	}

	vehicle, err := h.bookings.Vehicle(r.Context(), id)
	if err != nil {
		if apperr.Is(err, apperr.KindNotFound) {
			h.notFound(w, r, "Vehículo no encontrado")
			return
		}
		h.reqLog(r).WithField("vehicle_id", id).WithError(err).Error("load vehicle")
		p := h.page(r, "Detalle del vehículo")
		p.Error = "Error al cargar el vehículo."
		h.render.render(w, http.StatusInternalServerError, "error.html", p)
		return
	}

	h.render.render(w, http.StatusOK, "vehiculo.html", vehicleView{
		Page:    h.page(r, "Detalle del vehículo"),
		Vehicle: vehicle,
	})
}

func (h *handler) notFound(w http.ResponseWriter, r *http.Request, msg string) {
	p := h.page(r, "No encontrado")
	p.Error = msg
	h.render.render(w, http.StatusNotFound, "error.html", p)
}
