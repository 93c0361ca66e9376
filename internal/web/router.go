// Package web is the HTML front end: page handlers, the add-to-cart JSON
// endpoint, health probes and the router that wires them to the session and
// the booking service.
package web

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/andreasstove999/urbandrive/web-go/internal/booking"
	"github.com/andreasstove999/urbandrive/web-go/internal/gateway"
	"github.com/andreasstove999/urbandrive/web-go/internal/middleware"
	"github.com/andreasstove999/urbandrive/web-go/internal/rental"
	"github.com/andreasstove999/urbandrive/web-go/internal/session"
)

// Accounts is the user side of the backend gateway.
type Accounts interface {
	Login(ctx context.Context, email, password string) (*rental.User, error)
	Register(ctx context.Context, r rental.Registration) (*rental.User, error)
}

// Bookings is what the page handlers need from the booking service.
type Bookings interface {
	ListVehicles(ctx context.Context, f booking.VehicleFilter) (booking.VehicleListing, error)
	Vehicle(ctx context.Context, id int) (rental.Vehicle, error)

	Cart(ctx context.Context, u *rental.User) (booking.CartView, error)
	AddToCart(ctx context.Context, u *rental.User, in booking.AddItem) (booking.AddResult, error)
	RemoveItem(ctx context.Context, u *rental.User, itemID int) error
	UpdateItem(ctx context.Context, u *rental.User, itemID int, start, end string) error
	GenerateReservations(ctx context.Context, u *rental.User) (booking.CheckoutOutcome, error)

	Reservations(ctx context.Context, u *rental.User) ([]rental.Reservation, error)
	Detail(ctx context.Context, u *rental.User, id int, cache booking.PaymentCache) (booking.ReservationDetail, error)
	Pay(ctx context.Context, u *rental.User, id int, nationalID string, cache booking.PaymentCache) (string, error)

	TaxRate() decimal.Decimal
}

var (
	_ Accounts = (*gateway.Gateway)(nil)
	_ Bookings = (*booking.Service)(nil)
)

type Deps struct {
	Logger logrus.FieldLogger

	Accounts Accounts
	Bookings Bookings
	Sessions *session.Manager

	HealthProbes []HealthProbe

	// Now stamps generated receipts. Defaults to time.Now.
	Now func() time.Time
}

func NewRouter(d Deps) (http.Handler, error) {
	if d.Logger == nil {
		d.Logger = logrus.StandardLogger()
	}
	if d.Now == nil {
		d.Now = time.Now
	}
	rd, err := newRenderer(d.Logger.WithField("component", "templates"))
	if err != nil {
		return nil, err
	}
	h := &handler{
		log:      d.Logger,
		accounts: d.Accounts,
		bookings: d.Bookings,
		sessions: d.Sessions,
		render:   rd,
		now:      d.Now,
	}

	r := chi.NewRouter()

	// Middlewares (outer -> inner)
	r.Use(middleware.Recover(d.Logger))
	r.Use(chimw.RealIP)
	r.Use(chimw.CleanPath)
	r.Use(middleware.CorrelationID)
	r.Use(middleware.Logging(d.Logger))

	health := &HealthHandler{Probes: d.HealthProbes}
	r.Get("/health", health.Gateway)
	r.Get("/health/upstreams", health.Upstreams)

	r.Group(func(r chi.Router) {
		r.Use(d.Sessions.LoadAndSave)

		r.Get("/", func(w http.ResponseWriter, r *http.Request) {
			http.Redirect(w, r, "/vehiculos", http.StatusFound)
		})

		r.Get("/login", h.LoginForm)
		r.Post("/login", h.Login)
		r.Post("/logout", h.Logout)
		r.Get("/registro", h.RegisterForm)
		r.Post("/registro", h.Register)

		r.Get("/vehiculos", h.ListVehicles)
		r.Get("/vehiculos/{id}", h.VehicleDetail)

		r.With(middleware.RequireUserJSON(d.Sessions)).Post("/carrito/agregar", h.AddToCart)

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireUser(d.Sessions))

			r.Get("/carrito", h.ViewCart)
			r.Post("/carrito/{id}/eliminar", h.RemoveItem)
			r.Get("/carrito/{id}/eliminar", h.RemoveItem)
			r.Post("/carrito/{id}/actualizar", h.UpdateItem)
			r.Post("/carrito/reservar", h.GenerateReservations)

			r.Get("/reservas", h.ListReservations)
			r.Get("/reservas/{id}", h.ReservationDetail)
			r.Post("/reservas/{id}/pagar", h.Pay)
			r.Get("/reservas/{id}/comprobante", h.Receipt)
		})
	})

	return r, nil
}

type handler struct {
	log      logrus.FieldLogger
	accounts Accounts
	bookings Bookings
	sessions *session.Manager
	render   *renderer
	now      func() time.Time
}

// page fills the layout fields for the current request.
func (h *handler) page(r *http.Request, title string) Page {
	return Page{Title: title, User: h.sessions.User(r.Context())}
}

func (h *handler) reqLog(r *http.Request) logrus.FieldLogger {
	l := h.log.WithField("correlation_id", middleware.GetCorrelationID(r.Context()))
	if u := middleware.CurrentUser(r.Context()); u != nil {
		l = l.WithField("user_id", u.ID)
	}
	return l
}
