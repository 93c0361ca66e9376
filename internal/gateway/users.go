package gateway

import (
	"context"
	"errors"
	"strings"

	"github.com/andreasstove999/urbandrive/web-go/internal/apperr"
	"github.com/andreasstove999/urbandrive/web-go/internal/rental"
	"github.com/andreasstove999/urbandrive/web-go/internal/soap"
)

var ErrRegistrationRejected = errors.New("registration rejected")

const badCredentials = "credenciales incorrectas"

// Login returns nil without error when the backend rejects the credentials.
func (g *Gateway) Login(ctx context.Context, email, password string) (*rental.User, error) {
	res, err := g.users.Call(ctx, "Login", soap.P("email", email), soap.P("contrasena", password))
	if err != nil {
		if text, ok := soap.FaultText(err); ok && strings.Contains(strings.ToLower(text), badCredentials) {
			return nil, nil
		}
		g.logFailure(g.users, "Login", err)
		return nil, err
	}
	if res.Empty() {
		return nil, nil
	}
	u := userFrom(res)
	return &u, nil
}

// Register creates the user and reads it back.
func (g *Gateway) Register(ctx context.Context, r rental.Registration) (*rental.User, error) {
	role := r.Role
	if role == "" {
		role = "Cliente"
	}
	res, err := g.call(ctx, g.users, "CrearUsuario",
		soap.P("nombre", r.FirstName),
		soap.P("apellido", r.LastName),
		soap.P("email", r.Email),
		soap.P("contrasena", r.Password),
		soap.P("direccion", r.Address),
		soap.P("pais", r.Country),
		soap.P("edad", r.Age),
		soap.P("tipoIdentificacion", r.IDType),
		soap.P("identificacion", r.NationalID),
		soap.P("rol", role),
	)
	if err != nil {
		return nil, err
	}
	id := res.TextInt()
	if id == 0 {
		return nil, apperr.E(apperr.KindDomainRejected, "gateway.Register", ErrRegistrationRejected)
	}

	u, err := g.User(ctx, id)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (g *Gateway) User(ctx context.Context, id int) (rental.User, error) {
	res, err := g.call(ctx, g.users, "ObtenerUsuarioPorId", soap.P("id", id))
	if err != nil {
		return rental.User{}, err
	}
	if res.Empty() {
		return rental.User{}, notFound("gateway.User")
	}
	u := userFrom(res)
	if u.ID == 0 {
		u.ID = id
	}
	return u, nil
}
