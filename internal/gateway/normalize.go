package gateway

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/andreasstove999/urbandrive/web-go/internal/money"
	"github.com/andreasstove999/urbandrive/web-go/internal/rental"
	"github.com/andreasstove999/urbandrive/web-go/internal/soap"
)

// Alias chains for fields the backend spells inconsistently. Lookups ignore
// case, so only genuinely different spellings are listed.
var (
	aliasVehicleID      = []string{"IdVehiculo", "id_vehiculo", "vehiculoId", "Id"}
	aliasBrand          = []string{"Marca"}
	aliasModel          = []string{"Modelo"}
	aliasYear           = []string{"Anio", "Año", "Year"}
	aliasPlate          = []string{"Placa", "Matricula"}
	aliasCapacity       = []string{"Capacidad"}
	aliasDailyRate      = []string{"PrecioDia", "precio_dia", "PrecioPorDia", "Precio"}
	aliasCategoryID     = []string{"IdCategoria", "id_categoria", "IdCategoriaVehiculo"}
	aliasCategoryName   = []string{"CategoriaNombre", "NombreCategoria", "Categoria"}
	aliasBranchID       = []string{"IdSucursal", "id_sucursal"}
	aliasBranchName     = []string{"SucursalNombre", "NombreSucursal", "Sucursal"}
	aliasTransmissionID = []string{"IdTransmision", "id_transmision"}
	aliasTransmission   = []string{"Transmision", "TransmisionCodigo"}
	aliasImage          = []string{"UrlImagen", "UrlImagenVehiculo", "Imagen"}
	aliasStatus         = []string{"Estado"}
	aliasDescription    = []string{"Descripcion"}
	aliasPromotionID    = []string{"IdPromocion", "id_promocion"}

	aliasName      = []string{"Nombre", "Nombres"}
	aliasID        = []string{"Id"}
	aliasCity      = []string{"Ciudad"}
	aliasAddress   = []string{"Direccion"}
	aliasPercent   = []string{"Porcentaje", "PorcentajeDescuento", "Descuento"}
	aliasStart     = []string{"FechaInicio", "fecha_inicio"}
	aliasEnd       = []string{"FechaFin", "fecha_fin"}
	aliasUserID    = []string{"IdUsuario", "id_usuario", "Id"}
	aliasLastName  = []string{"Apellido", "Apellidos"}
	aliasEmail     = []string{"Email", "Correo"}
	aliasCountry   = []string{"Pais"}
	aliasAge       = []string{"Edad"}
	aliasIDType    = []string{"TipoIdentificacion"}
	aliasNational  = []string{"Identificacion", "Cedula"}
	aliasRole      = []string{"Rol"}
	aliasCartID    = []string{"IdCarrito", "id_carrito"}
	aliasCreatedAt = []string{"FechaCreacion"}

	aliasItemID      = []string{"IdItem", "id_item", "Id"}
	aliasVehicleName = []string{"VehiculoNombre", "NombreVehiculo", "Modelo"}
	aliasSubtotal    = []string{"Subtotal", "TotalItem"}

	aliasReservationID = []string{"IdReserva", "id_reserva", "Id"}
	aliasUserName      = []string{"NombreUsuario"}
	aliasUserEmail     = []string{"CorreoUsuario", "UsuarioCorreo"}
	aliasTotal         = []string{"Total"}
	aliasBookedAt      = []string{"FechaReserva"}

	aliasPaymentID       = []string{"IdPago", "id_pago", "Id"}
	aliasSourceAccount   = []string{"CuentaCliente", "cuenta_origen"}
	aliasMerchantAccount = []string{"CuentaComercio", "cuenta_destino"}
	aliasAmount          = []string{"Monto"}
	aliasPaidAt          = []string{"FechaPago", "fecha_pago"}

	aliasInvoiceID  = []string{"IdFactura", "id_factura", "Id"}
	aliasInvoiceURI = []string{"UriFactura", "uri_factura"}
	aliasIssuedAt   = []string{"FechaEmision", "fecha_emision"}
	aliasInvoiceSum = []string{"ValorTotal", "valor_total", "Total"}
)

// List item element names as the ASMX services emit them.
const (
	itemVehicle     = "VehiculoDto"
	itemCategory    = "CategoriaVehiculoDto"
	itemBranch      = "SucursalDto"
	itemPromotion   = "PromocionDto"
	itemCart        = "CarritoItemDto"
	itemReservation = "ReservaDto"
	itemPayment     = "PagoDto"
	itemInvoice     = "FacturaDto"
)

func vehicleFrom(n *soap.Node) rental.Vehicle {
	transmissionID := n.Int(aliasTransmissionID...)
	return rental.Vehicle{
		ID:               n.Int(aliasVehicleID...),
		Brand:            n.Str(aliasBrand...),
		Model:            n.Str(aliasModel...),
		Year:             n.Int(aliasYear...),
		Plate:            n.Str(aliasPlate...),
		Capacity:         n.Int(aliasCapacity...),
		DailyRate:        n.Decimal(aliasDailyRate...),
		CategoryID:       n.Int(aliasCategoryID...),
		CategoryName:     strings.TrimSpace(n.Str(aliasCategoryName...)),
		BranchID:         n.Int(aliasBranchID...),
		BranchName:       n.Str(aliasBranchName...),
		TransmissionID:   transmissionID,
		TransmissionCode: rental.TransmissionCode(n.Str(aliasTransmission...), transmissionID),
		ImageURL:         n.Str(aliasImage...),
		Status:           n.Str(aliasStatus...),
		Description:      n.Str(aliasDescription...),
		PromotionID:      n.Int(aliasPromotionID...),
	}
}

func categoryFrom(n *soap.Node) rental.Category {
	return rental.Category{
		ID:   n.Int(append(aliasCategoryID, aliasID...)...),
		Name: n.Str(append(aliasName, aliasCategoryName...)...),
	}
}

func branchFrom(n *soap.Node) rental.Branch {
	return rental.Branch{
		ID:      n.Int(append(aliasBranchID, aliasID...)...),
		Name:    n.Str(append(aliasName, aliasBranchName...)...),
		City:    n.Str(aliasCity...),
		Address: n.Str(aliasAddress...),
	}
}

func promotionFrom(n *soap.Node) rental.Promotion {
	return rental.Promotion{
		ID:          n.Int(append(aliasPromotionID, aliasID...)...),
		Name:        n.Str(aliasName...),
		Percentage:  n.Decimal(aliasPercent...),
		ValidFrom:   n.Time(aliasStart...),
		ValidUntil:  n.Time(aliasEnd...),
		Description: n.Str(aliasDescription...),
	}
}

func userFrom(n *soap.Node) rental.User {
	return rental.User{
		ID:         n.Int(aliasUserID...),
		FirstName:  strings.TrimSpace(n.Str(aliasName...)),
		LastName:   strings.TrimSpace(n.Str(aliasLastName...)),
		Email:      n.Str(aliasEmail...),
		Address:    n.Str(aliasAddress...),
		Country:    n.Str(aliasCountry...),
		Age:        n.Int(aliasAge...),
		IDType:     n.Str(aliasIDType...),
		NationalID: n.Str(aliasNational...),
		Role:       n.Str(aliasRole...),
		CartID:     n.Int(aliasCartID...),
	}
}

func cartItemFrom(n *soap.Node) rental.CartItem {
	it := rental.CartItem{
		ID:          n.Int(aliasItemID...),
		VehicleID:   n.Int(aliasVehicleID[:3]...),
		VehicleName: n.Str(aliasVehicleName...),
		ImageURL:    n.Str(aliasImage...),
		Start:       n.Time(aliasStart...),
		End:         n.Time(aliasEnd...),
		DailyRate:   n.Decimal(aliasDailyRate...),
		Subtotal:    n.Decimal(aliasSubtotal...),
	}
	if it.Subtotal.IsZero() && !it.DailyRate.IsZero() {
		days := money.Days(it.Start, it.End)
		it.Subtotal = it.DailyRate.Mul(decimal.NewFromInt(int64(days)))
	}
	return it
}

func cartItemsFrom(n *soap.Node) []rental.CartItem {
	var out []rental.CartItem
	for _, it := range n.Items(itemCart) {
		out = append(out, cartItemFrom(it))
	}
	return out
}

func cartFrom(n *soap.Node) *rental.Cart {
	return &rental.Cart{
		ID:        n.Int(aliasCartID...),
		UserID:    n.Int(aliasUserID[:2]...),
		CreatedAt: n.Time(aliasCreatedAt...),
		Items:     cartItemsFrom(n.Child("Items")),
	}
}

func reservationFrom(n *soap.Node) rental.Reservation {
	return rental.Reservation{
		ID:          n.Int(aliasReservationID...),
		UserID:      n.Int(aliasUserID[:2]...),
		UserName:    strings.TrimSpace(n.Str(aliasUserName...)),
		UserEmail:   n.Str(aliasUserEmail...),
		VehicleID:   n.Int(aliasVehicleID[:3]...),
		VehicleName: n.Str(aliasVehicleName[:2]...),
		Start:       n.Time(aliasStart...),
		End:         n.Time(aliasEnd...),
		Total:       n.Decimal(aliasTotal...),
		Status:      rental.ParseStatus(n.Str(aliasStatus...)),
		CreatedAt:   n.Time(aliasBookedAt...),
	}
}

func paymentFrom(n *soap.Node) rental.Payment {
	return rental.Payment{
		ID:              n.Int(aliasPaymentID...),
		ReservationID:   n.Int(aliasReservationID[:2]...),
		SourceAccount:   n.Int64(aliasSourceAccount...),
		MerchantAccount: n.Int64(aliasMerchantAccount...),
		Amount:          n.Decimal(aliasAmount...),
		PaidAt:          n.Time(aliasPaidAt...),
	}
}

func receiptFrom(n *soap.Node) rental.PaymentReceipt {
	return rental.PaymentReceipt{
		PaymentID:    n.Int(aliasPaymentID[:2]...),
		Approved:     n.Bool("Aprobado"),
		Message:      n.Str("Mensaje"),
		BankResponse: n.Str("RespuestaBanco"),
	}
}

func invoiceFrom(n *soap.Node) rental.Invoice {
	return rental.Invoice{
		ID:            n.Int(aliasInvoiceID...),
		ReservationID: n.Int(aliasReservationID[:2]...),
		UserID:        n.Int(aliasUserID[:2]...),
		URI:           n.Str(aliasInvoiceURI...),
		IssuedAt:      n.Time(aliasIssuedAt...),
		Total:         n.Decimal(aliasInvoiceSum...),
		Description:   n.Str(aliasDescription...),
	}
}
