package web

import (
	"context"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/require"

	"github.com/andreasstove999/urbandrive/web-go/internal/booking"
	"github.com/andreasstove999/urbandrive/web-go/internal/rental"
	"github.com/andreasstove999/urbandrive/web-go/internal/session"
)

var testUser = rental.User{ID: 3, FirstName: "Ana", LastName: "Perez", Email: "ana@example.com"}

type fakeAccounts struct {
	LoginFunc    func(ctx context.Context, email, password string) (*rental.User, error)
	RegisterFunc func(ctx context.Context, r rental.Registration) (*rental.User, error)
}

func (f *fakeAccounts) Login(ctx context.Context, email, password string) (*rental.User, error) {
	if f.LoginFunc != nil {
		return f.LoginFunc(ctx, email, password)
	}
	u := testUser
	return &u, nil
}

func (f *fakeAccounts) Register(ctx context.Context, r rental.Registration) (*rental.User, error) {
	if f.RegisterFunc != nil {
		return f.RegisterFunc(ctx, r)
	}
	u := testUser
	return &u, nil
}

type fakeBookings struct {
	ListVehiclesFunc         func(ctx context.Context, f booking.VehicleFilter) (booking.VehicleListing, error)
	VehicleFunc              func(ctx context.Context, id int) (rental.Vehicle, error)
	CartFunc                 func(ctx context.Context, u *rental.User) (booking.CartView, error)
	AddToCartFunc            func(ctx context.Context, u *rental.User, in booking.AddItem) (booking.AddResult, error)
	RemoveItemFunc           func(ctx context.Context, u *rental.User, itemID int) error
	UpdateItemFunc           func(ctx context.Context, u *rental.User, itemID int, start, end string) error
	GenerateReservationsFunc func(ctx context.Context, u *rental.User) (booking.CheckoutOutcome, error)
	ReservationsFunc         func(ctx context.Context, u *rental.User) ([]rental.Reservation, error)
	DetailFunc               func(ctx context.Context, u *rental.User, id int, cache booking.PaymentCache) (booking.ReservationDetail, error)
	PayFunc                  func(ctx context.Context, u *rental.User, id int, nationalID string, cache booking.PaymentCache) (string, error)

	removed []int
}

func (f *fakeBookings) ListVehicles(ctx context.Context, vf booking.VehicleFilter) (booking.VehicleListing, error) {
	if f.ListVehiclesFunc != nil {
		return f.ListVehiclesFunc(ctx, vf)
	}
	return booking.VehicleListing{Filter: vf}, nil
}

func (f *fakeBookings) Vehicle(ctx context.Context, id int) (rental.Vehicle, error) {
	if f.VehicleFunc != nil {
		return f.VehicleFunc(ctx, id)
	}
	return rental.Vehicle{ID: id}, nil
}

func (f *fakeBookings) Cart(ctx context.Context, u *rental.User) (booking.CartView, error) {
	if f.CartFunc != nil {
		return f.CartFunc(ctx, u)
	}
	return booking.CartView{Items: []rental.CartItem{}}, nil
}

func (f *fakeBookings) AddToCart(ctx context.Context, u *rental.User, in booking.AddItem) (booking.AddResult, error) {
	if f.AddToCartFunc != nil {
		return f.AddToCartFunc(ctx, u, in)
	}
	return booking.AddResult{Message: "ok"}, nil
}

func (f *fakeBookings) RemoveItem(ctx context.Context, u *rental.User, itemID int) error {
	f.removed = append(f.removed, itemID)
	if f.RemoveItemFunc != nil {
		return f.RemoveItemFunc(ctx, u, itemID)
	}
	return nil
}

func (f *fakeBookings) UpdateItem(ctx context.Context, u *rental.User, itemID int, start, end string) error {
	if f.UpdateItemFunc != nil {
		return f.UpdateItemFunc(ctx, u, itemID, start, end)
	}
	return nil
}

func (f *fakeBookings) GenerateReservations(ctx context.Context, u *rental.User) (booking.CheckoutOutcome, error) {
	if f.GenerateReservationsFunc != nil {
		return f.GenerateReservationsFunc(ctx, u)
	}
	return booking.CheckoutOutcome{}, nil
}

func (f *fakeBookings) Reservations(ctx context.Context, u *rental.User) ([]rental.Reservation, error) {
	if f.ReservationsFunc != nil {
		return f.ReservationsFunc(ctx, u)
	}
	return []rental.Reservation{}, nil
}

func (f *fakeBookings) Detail(ctx context.Context, u *rental.User, id int, cache booking.PaymentCache) (booking.ReservationDetail, error) {
	if f.DetailFunc != nil {
		return f.DetailFunc(ctx, u, id, cache)
	}
	return booking.ReservationDetail{Reservation: rental.Reservation{ID: id, UserID: u.ID, Status: rental.StatusPending}}, nil
}

func (f *fakeBookings) Pay(ctx context.Context, u *rental.User, id int, nationalID string, cache booking.PaymentCache) (string, error) {
	if f.PayFunc != nil {
		return f.PayFunc(ctx, u, id, nationalID, cache)
	}
	return "Pago realizado correctamente en MiBanca.", nil
}

func (f *fakeBookings) TaxRate() decimal.Decimal { return decimal.RequireFromString("0.12") }

type testServer struct {
	*httptest.Server
	client *http.Client
}

func newTestServer(t *testing.T, b *fakeBookings, a *fakeAccounts, probes ...HealthProbe) *testServer {
	t.Helper()
	if b == nil {
		b = &fakeBookings{}
	}
	if a == nil {
		a = &fakeAccounts{}
	}
	logger, _ := test.NewNullLogger()

	router, err := NewRouter(Deps{
		Logger:       logger,
		Accounts:     a,
		Bookings:     b,
		Sessions:     session.New(time.Hour, false),
		HealthProbes: probes,
		Now:          func() time.Time { return time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC) },
	})
	require.NoError(t, err)

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	client := &http.Client{
		Jar: jar,
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
	return &testServer{Server: srv, client: client}
}

func (s *testServer) get(t *testing.T, path string) *http.Response {
	t.Helper()
	resp, err := s.client.Get(s.URL + path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func (s *testServer) postForm(t *testing.T, path string, form url.Values) *http.Response {
	t.Helper()
	resp, err := s.client.PostForm(s.URL+path, form)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func (s *testServer) postJSON(t *testing.T, path, body string) *http.Response {
	t.Helper()
	resp, err := s.client.Post(s.URL+path, "application/json", strings.NewReader(body))
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func (s *testServer) login(t *testing.T) {
	t.Helper()
	resp := s.postForm(t, "/login", url.Values{"email": {testUser.Email}, "contrasena": {"secreto"}})
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
}
