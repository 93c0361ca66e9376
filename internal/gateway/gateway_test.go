package gateway

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andreasstove999/urbandrive/web-go/internal/apperr"
	"github.com/andreasstove999/urbandrive/web-go/internal/rental"
)

type reply struct {
	result string
	fault  string
	delay  time.Duration
	void   bool
}

// fakeBackend answers SOAP calls by operation name and records request bodies.
type fakeBackend struct {
	mu      sync.Mutex
	replies map[string]reply
	bodies  map[string]string
	paths   map[string]string
}

func newFakeBackend(t *testing.T, replies map[string]reply) (*Gateway, *fakeBackend, *test.Hook) {
	t.Helper()
	fb := &fakeBackend{replies: replies, bodies: map[string]string{}, paths: map[string]string{}}
	srv := httptest.NewServer(fb)
	t.Cleanup(srv.Close)

	logger, hook := test.NewNullLogger()
	g := New(Options{
		BaseURL:        srv.URL,
		Namespace:      "http://tempuri.org/",
		HTTP:           srv.Client(),
		PaymentTimeout: 100 * time.Millisecond,
		Logger:         logger,
	})
	return g, fb, hook
}

func (fb *fakeBackend) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	action := strings.Trim(r.Header.Get("SOAPAction"), `"`)
	op := action[strings.LastIndex(action, "/")+1:]
	body, _ := io.ReadAll(r.Body)

	fb.mu.Lock()
	fb.bodies[op] = string(body)
	fb.paths[op] = r.URL.Path
	rep, ok := fb.replies[op]
	fb.mu.Unlock()

	if rep.delay > 0 {
		select {
		case <-r.Context().Done():
			return
		case <-time.After(rep.delay):
		}
	}

	w.Header().Set("Content-Type", "text/xml; charset=utf-8")
	var inner string
	switch {
	case !ok:
		w.WriteHeader(http.StatusInternalServerError)
		inner = `<soap:Fault><faultcode>soap:Client</faultcode><faultstring>unknown operation ` + op + `</faultstring></soap:Fault>`
	case rep.fault != "":
		w.WriteHeader(http.StatusInternalServerError)
		inner = `<soap:Fault><faultcode>soap:Server</faultcode><faultstring>` + rep.fault + `</faultstring></soap:Fault>`
	case rep.void:
		inner = `<` + op + `Response xmlns="http://tempuri.org/"/>`
	default:
		inner = `<` + op + `Response xmlns="http://tempuri.org/"><` + op + `Result>` + rep.result + `</` + op + `Result></` + op + `Response>`
	}
	_, _ = io.WriteString(w, `<?xml version="1.0" encoding="utf-8"?>`+
		`<soap:Envelope xmlns:soap="http://schemas.xmlsoap.org/soap/envelope/"><soap:Body>`+inner+`</soap:Body></soap:Envelope>`)
}

func (fb *fakeBackend) body(op string) string {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	return fb.bodies[op]
}

func (fb *fakeBackend) path(op string) string {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	return fb.paths[op]
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestVehicles_NormalisesSpellings(t *testing.T) {
	g, fb, _ := newFakeBackend(t, map[string]reply{
		"obtenerVehiculos": {result: `` +
			`<VehiculoDto><IdVehiculo>7</IdVehiculo><Marca>Toyota</Marca><Modelo>Corolla</Modelo>` +
			`<PrecioDia>100.00</PrecioDia><IdCategoria>2</IdCategoria><CategoriaNombre>Sedan</CategoriaNombre>` +
			`<Transmision>Automatica</Transmision></VehiculoDto>` +
			`<VehiculoDto><id_vehiculo>8</id_vehiculo><marca>Kia</marca><precio_dia>45.5</precio_dia>` +
			`<id_categoria>3</id_categoria><IdTransmision>1</IdTransmision></VehiculoDto>`},
	})

	vs, err := g.Vehicles(context.Background())
	require.NoError(t, err)
	require.Len(t, vs, 2)
	assert.Equal(t, "/WS_Vehiculo.asmx", fb.path("obtenerVehiculos"))

	assert.Equal(t, 7, vs[0].ID)
	assert.Equal(t, "Toyota Corolla", vs[0].DisplayName())
	assert.True(t, dec("100").Equal(vs[0].DailyRate))
	assert.Equal(t, 2, vs[0].CategoryID)
	assert.Equal(t, "Sedan", vs[0].CategoryName)
	assert.Equal(t, rental.TransmissionAutomatic, vs[0].TransmissionCode)

	assert.Equal(t, 8, vs[1].ID)
	assert.True(t, dec("45.5").Equal(vs[1].DailyRate))
	assert.Equal(t, 3, vs[1].CategoryID)
	assert.Equal(t, rental.TransmissionManual, vs[1].TransmissionCode)
}

func TestVehicles_SingleAndEmptyResultsAreSlices(t *testing.T) {
	g, _, _ := newFakeBackend(t, map[string]reply{
		"obtenerVehiculos": {result: `<VehiculoDto><IdVehiculo>1</IdVehiculo></VehiculoDto>`},
	})
	vs, err := g.Vehicles(context.Background())
	require.NoError(t, err)
	assert.Len(t, vs, 1)

	g, _, _ = newFakeBackend(t, map[string]reply{"obtenerVehiculos": {void: true}})
	vs, err = g.Vehicles(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, vs)
	assert.Empty(t, vs)
}

func TestVehicle_NotFound(t *testing.T) {
	g, fb, _ := newFakeBackend(t, map[string]reply{"obtenerVehiculoPorId": {void: true}})

	_, err := g.Vehicle(context.Background(), 99)
	require.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
	assert.Contains(t, fb.body("obtenerVehiculoPorId"), "<idVehiculo>99</idVehiculo>")
}

func TestCategories_FallsBackToVehicles(t *testing.T) {
	g, _, hook := newFakeBackend(t, map[string]reply{
		"obtenerCategoriasVehiculo": {fault: "boom"},
		"obtenerVehiculos": {result: `` +
			`<VehiculoDto><IdVehiculo>1</IdVehiculo><IdCategoria>2</IdCategoria><Categoria>SUV</Categoria></VehiculoDto>` +
			`<VehiculoDto><IdVehiculo>2</IdVehiculo><IdCategoria>2</IdCategoria><Categoria>SUV</Categoria></VehiculoDto>` +
			`<VehiculoDto><IdVehiculo>3</IdVehiculo><IdCategoria>5</IdCategoria></VehiculoDto>`},
	})

	cats := g.Categories(context.Background())
	assert.Equal(t, []rental.Category{{ID: 2, Name: "SUV"}}, cats)

	require.NotEmpty(t, hook.AllEntries())
	entry := hook.AllEntries()[0]
	assert.Equal(t, logrus.ErrorLevel, entry.Level)
	assert.Equal(t, "WS_CategoriaVehiculo", entry.Data["service"])
	assert.Equal(t, "domain_rejected", entry.Data["kind"])
}

func TestCategoriesOf_Placeholder(t *testing.T) {
	vs := []rental.Vehicle{{CategoryID: 4}, {CategoryID: 4, CategoryName: "Van"}, {CategoryID: 0}}
	assert.Equal(t, []rental.Category{{ID: 4, Name: "Categoria 4"}}, CategoriesOf(vs, true))
	assert.Equal(t, []rental.Category{{ID: 4, Name: "Van"}}, CategoriesOf(vs, false))
}

func TestBranchesAndPromotions_EmptyOnFailure(t *testing.T) {
	g, _, _ := newFakeBackend(t, map[string]reply{
		"obtenerSucursales":  {fault: "down"},
		"ObtenerPromociones": {result: `<PromocionDto><IdPromocion>1</IdPromocion><Nombre>Verano</Nombre><Porcentaje>10</Porcentaje></PromocionDto>`},
	})
	assert.Empty(t, g.Branches(context.Background()))

	promos := g.Promotions(context.Background())
	require.Len(t, promos, 1)
	assert.Equal(t, "Verano", promos[0].Name)
	assert.True(t, dec("10").Equal(promos[0].Percentage))
}

func TestLogin(t *testing.T) {
	g, fb, _ := newFakeBackend(t, map[string]reply{
		"Login": {result: `<IdUsuario>4</IdUsuario><Nombre>Ana</Nombre><Apellido>Perez</Apellido><Email>ana@x.ec</Email>`},
	})
	u, err := g.Login(context.Background(), "ana@x.ec", "secret")
	require.NoError(t, err)
	require.NotNil(t, u)
	assert.Equal(t, 4, u.ID)
	assert.Equal(t, "Ana Perez", u.FullName())
	assert.Contains(t, fb.body("Login"), "<contrasena>secret</contrasena>")
}

func TestLogin_BadCredentialsIsNoUser(t *testing.T) {
	g, _, hook := newFakeBackend(t, map[string]reply{
		"Login": {fault: "System.Web.Services.Protocols.SoapException: Credenciales incorrectas"},
	})
	u, err := g.Login(context.Background(), "ana@x.ec", "nope")
	require.NoError(t, err)
	assert.Nil(t, u)
	assert.Empty(t, hook.AllEntries())
}

func TestLogin_OtherFaultsPropagate(t *testing.T) {
	g, _, _ := newFakeBackend(t, map[string]reply{"Login": {fault: "database offline"}})
	_, err := g.Login(context.Background(), "ana@x.ec", "x")
	require.Error(t, err)
	assert.Equal(t, apperr.KindDomainRejected, apperr.KindOf(err))
}

func TestRegister_CreatesThenFetches(t *testing.T) {
	g, fb, _ := newFakeBackend(t, map[string]reply{
		"CrearUsuario":        {result: `12`},
		"ObtenerUsuarioPorId": {result: `<IdUsuario>12</IdUsuario><Nombre>Luis</Nombre><Rol>Cliente</Rol>`},
	})
	u, err := g.Register(context.Background(), rental.Registration{FirstName: "Luis", Email: "l@x.ec", Age: 30})
	require.NoError(t, err)
	require.NotNil(t, u)
	assert.Equal(t, 12, u.ID)
	assert.Contains(t, fb.body("CrearUsuario"), "<rol>Cliente</rol>")
	assert.Contains(t, fb.body("CrearUsuario"), "<edad>30</edad>")
	assert.Contains(t, fb.body("ObtenerUsuarioPorId"), "<id>12</id>")
}

func TestRegister_ZeroIDIsRejected(t *testing.T) {
	g, _, _ := newFakeBackend(t, map[string]reply{"CrearUsuario": {result: `0`}})
	_, err := g.Register(context.Background(), rental.Registration{FirstName: "Luis"})
	require.ErrorIs(t, err, ErrRegistrationRejected)
}

func TestCartByUser(t *testing.T) {
	g, _, _ := newFakeBackend(t, map[string]reply{
		"ObtenerCarritoPorUsuario": {result: `<IdCarrito>3</IdCarrito><IdUsuario>4</IdUsuario>` +
			`<Items><CarritoItemDto><IdItem>10</IdItem><IdVehiculo>7</IdVehiculo><VehiculoNombre>Corolla</VehiculoNombre>` +
			`<FechaInicio>2024-03-01T00:00:00</FechaInicio><FechaFin>2024-03-04T00:00:00</FechaFin>` +
			`<PrecioDia>100</PrecioDia></CarritoItemDto></Items>`},
	})
	c, err := g.CartByUser(context.Background(), 4)
	require.NoError(t, err)
	require.NotNil(t, c)
	assert.Equal(t, 3, c.ID)
	require.Len(t, c.Items, 1)
	assert.Equal(t, 10, c.Items[0].ID)
	assert.Equal(t, 7, c.Items[0].VehicleID)
	assert.True(t, dec("300").Equal(c.Items[0].Subtotal), "subtotal derived from daily rate and days")
}

func TestCartByUser_NoCart(t *testing.T) {
	g, _, _ := newFakeBackend(t, map[string]reply{"ObtenerCarritoPorUsuario": {void: true}})
	c, err := g.CartByUser(context.Background(), 4)
	require.NoError(t, err)
	assert.Nil(t, c)
}

func TestAddToCart_SendsCalendarDaysInUTC(t *testing.T) {
	g, fb, _ := newFakeBackend(t, map[string]reply{"AgregarVehiculo": {result: `Vehiculo agregado`}})
	start := time.Date(2024, 3, 1, 15, 30, 0, 0, time.UTC)
	end := time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC)

	msg, err := g.AddToCart(context.Background(), 4, 7, start, end)
	require.NoError(t, err)
	assert.Equal(t, "Vehiculo agregado", msg)

	body := fb.body("AgregarVehiculo")
	assert.Contains(t, body, "<idUsuario>4</idUsuario><idVehiculo>7</idVehiculo>")
	assert.Contains(t, body, "<fechaInicio>2024-03-01T00:00:00Z</fechaInicio>")
	assert.Contains(t, body, "<fechaFin>2024-03-04T00:00:00Z</fechaFin>")
}

func TestAddToCart_FaultCarriesText(t *testing.T) {
	g, _, _ := newFakeBackend(t, map[string]reply{"AgregarVehiculo": {fault: "El vehiculo no esta disponible"}})
	_, err := g.AddToCart(context.Background(), 4, 7, time.Now(), time.Now())
	require.Error(t, err)
	msg, matched := apperr.AddToCart.Message(err)
	assert.True(t, matched)
	assert.Contains(t, msg, "no esta disponible")
}

func TestDeleteAndUpdateCartItem_Ack(t *testing.T) {
	g, _, _ := newFakeBackend(t, map[string]reply{
		"DeleteItem":     {result: `Item eliminado con exito`},
		"ActualizarItem": {result: `No se encontro el item`},
	})
	ack, err := g.DeleteCartItem(context.Background(), 10)
	require.NoError(t, err)
	assert.True(t, ack.OK)

	ack, err = g.UpdateCartItem(context.Background(), 10, time.Now(), time.Now())
	require.NoError(t, err)
	assert.False(t, ack.OK)
	assert.Equal(t, "No se encontro el item", ack.Message)
}

func TestCreateReservation_IDOnlyResult(t *testing.T) {
	g, fb, _ := newFakeBackend(t, map[string]reply{"CrearReserva": {result: `55`}})
	start := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

	r, err := g.CreateReservation(context.Background(), NewReservation{
		UserID: 4, UserName: "Ana Perez", VehicleID: 7, Start: start, End: start.AddDate(0, 0, 3), Total: dec("300"),
	})
	require.NoError(t, err)
	assert.Equal(t, 55, r.ID)
	assert.Equal(t, rental.StatusPending, r.Status)

	body := fb.body("CrearReserva")
	assert.Contains(t, body, "<reserva><IdUsuario>4</IdUsuario><IdVehiculo>7</IdVehiculo><NombreUsuario>Ana Perez</NombreUsuario>")
	assert.Contains(t, body, "<Total>300</Total><Estado>Pendiente</Estado>")
	assert.NotContains(t, body, "CorreoUsuario")
}

func TestSetReservationStatus(t *testing.T) {
	g, fb, _ := newFakeBackend(t, map[string]reply{"CambiarEstadoReserva": {result: `true`}})
	require.NoError(t, g.SetReservationStatus(context.Background(), 55, rental.StatusConfirmed))
	assert.Contains(t, fb.body("CambiarEstadoReserva"), "<nuevoEstado>Confirmada</nuevoEstado>")

	g, _, _ = newFakeBackend(t, map[string]reply{"CambiarEstadoReserva": {result: `false`}})
	err := g.SetReservationStatus(context.Background(), 55, rental.StatusConfirmed)
	require.ErrorIs(t, err, ErrStatusNotChanged)
}

func TestReservation(t *testing.T) {
	g, _, _ := newFakeBackend(t, map[string]reply{"ObtenerReservaPorId": {result: `` +
		`<IdReserva>55</IdReserva><IdUsuario>4</IdUsuario><Total>300.00</Total><Estado>Confirmada</Estado>` +
		`<UsuarioCorreo>ana@x.ec</UsuarioCorreo><FechaInicio>2024-03-01T00:00:00</FechaInicio>`}})
	r, err := g.Reservation(context.Background(), 55)
	require.NoError(t, err)
	assert.Equal(t, rental.StatusConfirmed, r.Status)
	assert.Equal(t, "ana@x.ec", r.UserEmail)
	assert.True(t, dec("300").Equal(r.Total))
}

func TestCreatePayment(t *testing.T) {
	g, fb, _ := newFakeBackend(t, map[string]reply{
		"CrearPago": {result: `<IdPago>9</IdPago><Aprobado>true</Aprobado><Mensaje>ok</Mensaje>`},
	})
	rec, err := g.CreatePayment(context.Background(), rental.PaymentRequest{
		ReservationID: 55, SourceAccount: 1001, MerchantAccount: 2002, Amount: dec("336.00"),
	})
	require.NoError(t, err)
	assert.Equal(t, 9, rec.PaymentID)
	assert.True(t, rec.Approved)
	assert.Contains(t, fb.body("CrearPago"), "<body><IdReserva>55</IdReserva><CuentaCliente>1001</CuentaCliente><CuentaComercio>2002</CuentaComercio><Monto>336</Monto></body>")
}

func TestCreatePayment_Timeout(t *testing.T) {
	g, _, _ := newFakeBackend(t, map[string]reply{
		"CrearPago": {result: `<IdPago>9</IdPago>`, delay: 2 * time.Second},
	})
	_, err := g.CreatePayment(context.Background(), rental.PaymentRequest{ReservationID: 55})
	require.Error(t, err)
	assert.Equal(t, apperr.KindTimeout, apperr.KindOf(err))
}

func TestPayments(t *testing.T) {
	g, _, _ := newFakeBackend(t, map[string]reply{"ListarPagosPorReserva": {result: `` +
		`<PagoDto><IdPago>1</IdPago><Monto>10</Monto></PagoDto>` +
		`<PagoDto><IdPago>2</IdPago><cuenta_origen>1001</cuenta_origen><Monto>336</Monto><FechaPago>2024-03-02T10:00:00</FechaPago></PagoDto>`}})
	ps := g.Payments(context.Background(), 55)
	require.Len(t, ps, 2)
	assert.Equal(t, 55, ps[1].ReservationID)
	assert.Equal(t, int64(1001), ps[1].SourceAccount)

	g, _, _ = newFakeBackend(t, map[string]reply{"ListarPagosPorReserva": {fault: "down"}})
	assert.Empty(t, g.Payments(context.Background(), 55))
}

func TestInvoices(t *testing.T) {
	g, fb, _ := newFakeBackend(t, map[string]reply{
		"obtenerFacturas": {result: `` +
			`<FacturaDto><IdFactura>1</IdFactura><IdReserva>50</IdReserva></FacturaDto>` +
			`<FacturaDto><IdFactura>2</IdFactura><IdReserva>55</IdReserva><UriFactura>https://cdn/f2.pdf</UriFactura></FacturaDto>`},
		"crearFactura":        {result: `2`},
		"obtenerFacturaPorId": {result: `<IdFactura>2</IdFactura><UriFactura>https://cdn/f2.pdf</UriFactura>`},
	})

	inv, err := g.InvoiceForReservation(context.Background(), 55)
	require.NoError(t, err)
	require.NotNil(t, inv)
	assert.Equal(t, "https://cdn/f2.pdf", inv.URI)

	none, err := g.InvoiceForReservation(context.Background(), 77)
	require.NoError(t, err)
	assert.Nil(t, none)

	id, err := g.CreateInvoice(context.Background(), rental.Invoice{ReservationID: 55, UserID: 4, Total: dec("336"), Description: "Factura reserva #55"})
	require.NoError(t, err)
	assert.Equal(t, 2, id)
	assert.Contains(t, fb.body("crearFactura"), "<factura><IdFactura>0</IdFactura><IdReserva>55</IdReserva><IdUsuario>4</IdUsuario><FechaEmision>")

	got, err := g.Invoice(context.Background(), 2)
	require.NoError(t, err)
	assert.Equal(t, "https://cdn/f2.pdf", got.URI)
}
