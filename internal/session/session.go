// Package session keeps per-browser state on top of scs: the logged-in user,
// the active cart id, one-shot flash messages and cached payment summaries.
package session

import (
	"context"
	"encoding/gob"
	"net/http"
	"time"

	"github.com/alexedwards/scs/v2"

	"github.com/andreasstove999/urbandrive/web-go/internal/booking"
	"github.com/andreasstove999/urbandrive/web-go/internal/rental"
)

const (
	keyUser     = "usuario"
	keyCartID   = "carritoId"
	keyFlash    = "mensajeReservas"
	keyPayments = "infoPagos"
)

func init() {
	gob.Register(rental.User{})
	gob.Register(map[int]booking.PaymentSummary{})
}

type Manager struct {
	sm *scs.SessionManager
}

// New uses scs's in-memory store.
func New(lifetime time.Duration, secure bool) *Manager {
	sm := scs.New()
	sm.Lifetime = lifetime
	sm.Cookie.Name = "urbandrive_session"
	sm.Cookie.HttpOnly = true
	sm.Cookie.SameSite = http.SameSiteLaxMode
	sm.Cookie.Secure = secure
	return &Manager{sm: sm}
}

// LoadAndSave is the middleware that loads the session for each request.
func (m *Manager) LoadAndSave(next http.Handler) http.Handler {
	return m.sm.LoadAndSave(next)
}

func (m *Manager) User(ctx context.Context) *rental.User {
	u, ok := m.sm.Get(ctx, keyUser).(rental.User)
	if !ok || u.ID == 0 {
		return nil
	}
	return &u
}

// Login stores the user under a fresh session token.
func (m *Manager) Login(ctx context.Context, u rental.User) error {
	if err := m.sm.RenewToken(ctx); err != nil {
		return err
	}
	m.sm.Put(ctx, keyUser, u)
	if u.CartID != 0 {
		m.sm.Put(ctx, keyCartID, u.CartID)
	}
	return nil
}

func (m *Manager) Logout(ctx context.Context) error {
	return m.sm.Destroy(ctx)
}

func (m *Manager) CartID(ctx context.Context) int {
	if id := m.sm.GetInt(ctx, keyCartID); id != 0 {
		return id
	}
	if u := m.User(ctx); u != nil {
		return u.CartID
	}
	return 0
}

func (m *Manager) SetCartID(ctx context.Context, id int) {
	if id == 0 {
		m.sm.Remove(ctx, keyCartID)
		return
	}
	m.sm.Put(ctx, keyCartID, id)
}

func (m *Manager) Flash(ctx context.Context, msg string) {
	m.sm.Put(ctx, keyFlash, msg)
}

// PopFlash returns the pending flash message and clears it.
func (m *Manager) PopFlash(ctx context.Context) string {
	return m.sm.PopString(ctx, keyFlash)
}

func (m *Manager) payments(ctx context.Context) map[int]booking.PaymentSummary {
	p, _ := m.sm.Get(ctx, keyPayments).(map[int]booking.PaymentSummary)
	return p
}

func (m *Manager) Payment(ctx context.Context, reservationID int) (booking.PaymentSummary, bool) {
	p, ok := m.payments(ctx)[reservationID]
	return p, ok
}

func (m *Manager) StorePayment(ctx context.Context, reservationID int, p booking.PaymentSummary) {
	all := make(map[int]booking.PaymentSummary)
	for k, v := range m.payments(ctx) {
		all[k] = v
	}
	all[reservationID] = p
	m.sm.Put(ctx, keyPayments, all)
}

func (m *Manager) ForgetPayment(ctx context.Context, reservationID int) {
	cur := m.payments(ctx)
	if _, ok := cur[reservationID]; !ok {
		return
	}
	all := make(map[int]booking.PaymentSummary, len(cur))
	for k, v := range cur {
		if k != reservationID {
			all[k] = v
		}
	}
	m.sm.Put(ctx, keyPayments, all)
}

var _ booking.PaymentCache = (*Manager)(nil)
