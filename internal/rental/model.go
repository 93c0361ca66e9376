package rental

import (
	"time"

	"github.com/shopspring/decimal"
)

type Vehicle struct {
	ID               int             `json:"idVehiculo"`
	Brand            string          `json:"marca"`
	Model            string          `json:"modelo"`
	Year             int             `json:"anio"`
	Plate            string          `json:"placa"`
	Capacity         int             `json:"capacidad"`
	DailyRate        decimal.Decimal `json:"precioDia"`
	CategoryID       int             `json:"idCategoria"`
	CategoryName     string          `json:"categoria"`
	BranchID         int             `json:"idSucursal"`
	BranchName       string          `json:"sucursal"`
	TransmissionID   int             `json:"idTransmision"`
	TransmissionCode string          `json:"transmision"`
	ImageURL         string          `json:"urlImagen"`
	Status           string          `json:"estado"`
	Description      string          `json:"descripcion"`
	PromotionID      int             `json:"idPromocion,omitempty"`
}

func (v Vehicle) DisplayName() string {
	switch {
	case v.Brand != "" && v.Model != "":
		return v.Brand + " " + v.Model
	case v.Model != "":
		return v.Model
	default:
		return v.Brand
	}
}

type Category struct {
	ID   int    `json:"id"`
	Name string `json:"nombre"`
}

type Branch struct {
	ID      int    `json:"id"`
	Name    string `json:"nombre"`
	City    string `json:"ciudad"`
	Address string `json:"direccion"`
}

type Promotion struct {
	ID          int             `json:"id"`
	Name        string          `json:"nombre"`
	Percentage  decimal.Decimal `json:"porcentaje"`
	ValidFrom   time.Time       `json:"fechaInicio"`
	ValidUntil  time.Time       `json:"fechaFin"`
	Description string          `json:"descripcion"`
}

type Transmission struct {
	Code string `json:"codigo"`
	Name string `json:"nombre"`
}

type User struct {
	ID         int    `json:"idUsuario"`
	FirstName  string `json:"nombre"`
	LastName   string `json:"apellido"`
	Email      string `json:"email"`
	Address    string `json:"direccion"`
	Country    string `json:"pais"`
	Age        int    `json:"edad"`
	IDType     string `json:"tipoIdentificacion"`
	NationalID string `json:"identificacion"`
	Role       string `json:"rol"`
	CartID     int    `json:"idCarrito,omitempty"`
}

func (u User) FullName() string {
	switch {
	case u.FirstName != "" && u.LastName != "":
		return u.FirstName + " " + u.LastName
	case u.FirstName != "":
		return u.FirstName
	default:
		return u.LastName
	}
}

// Registration carries the fields WS_Usuarios.CrearUsuario expects.
type Registration struct {
	FirstName  string
	LastName   string
	Email      string
	Password   string
	Address    string
	Country    string
	Age        int
	IDType     string
	NationalID string
	Role       string
}

type CartItem struct {
	ID          int             `json:"idItem"`
	VehicleID   int             `json:"idVehiculo"`
	VehicleName string          `json:"vehiculoNombre"`
	ImageURL    string          `json:"urlImagen,omitempty"`
	Start       time.Time       `json:"fechaInicio"`
	End         time.Time       `json:"fechaFin"`
	DailyRate   decimal.Decimal `json:"precioDia"`
	Subtotal    decimal.Decimal `json:"subtotal"`
}

type Cart struct {
	ID        int        `json:"idCarrito"`
	UserID    int        `json:"idUsuario"`
	CreatedAt time.Time  `json:"fechaCreacion"`
	Items     []CartItem `json:"items"`
}

func (c *Cart) Subtotals() []decimal.Decimal {
	if c == nil {
		return nil
	}
	out := make([]decimal.Decimal, 0, len(c.Items))
	for _, it := range c.Items {
		out = append(out, it.Subtotal)
	}
	return out
}

type Reservation struct {
	ID          int             `json:"idReserva"`
	UserID      int             `json:"idUsuario"`
	UserName    string          `json:"nombreUsuario"`
	UserEmail   string          `json:"correoUsuario"`
	VehicleID   int             `json:"idVehiculo"`
	VehicleName string          `json:"vehiculoNombre"`
	Start       time.Time       `json:"fechaInicio"`
	End         time.Time       `json:"fechaFin"`
	Total       decimal.Decimal `json:"total"`
	Status      Status          `json:"estado"`
	CreatedAt   time.Time       `json:"fechaReserva"`
}

type Payment struct {
	ID              int             `json:"idPago"`
	ReservationID   int             `json:"idReserva"`
	SourceAccount   int64           `json:"cuentaCliente"`
	MerchantAccount int64           `json:"cuentaComercio"`
	Amount          decimal.Decimal `json:"monto"`
	PaidAt          time.Time       `json:"fechaPago"`
}

// PaymentRequest is the body of WS_Pagos.CrearPago.
type PaymentRequest struct {
	ReservationID   int
	SourceAccount   int64
	MerchantAccount int64
	Amount          decimal.Decimal
}

type PaymentReceipt struct {
	PaymentID    int    `json:"idPago"`
	Approved     bool   `json:"aprobado"`
	Message      string `json:"mensaje"`
	BankResponse string `json:"respuestaBanco"`
}

type Invoice struct {
	ID            int             `json:"idFactura"`
	ReservationID int             `json:"idReserva"`
	UserID        int             `json:"idUsuario"`
	URI           string          `json:"uriFactura"`
	IssuedAt      time.Time       `json:"fechaEmision"`
	Total         decimal.Decimal `json:"valorTotal"`
	Description   string          `json:"descripcion"`
}
