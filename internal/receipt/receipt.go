// Package receipt renders the payment receipt of a paid reservation as PDF.
package receipt

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/jung-kurt/gofpdf"

	"github.com/andreasstove999/urbandrive/web-go/internal/booking"
)

var ErrNoPayment = errors.New("reservation has no payment")

const dayLayout = "02/01/2006"

// Write renders the receipt for d into w. d must carry a live payment.
func Write(w io.Writer, d booking.ReservationDetail, issuedAt time.Time) error {
	if !d.Paid() {
		return ErrNoPayment
	}
	p := d.Payment
	r := d.Reservation

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetTitle(fmt.Sprintf("Comprobante reserva #%d", r.ID), true)
	pdf.SetAuthor("UrbanDrive", true)
	pdf.AddPage()
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pdf.SetFont("Arial", "B", 16)
	pdf.Cell(190, 10, "UrbanDrive")
	pdf.Ln(8)
	pdf.SetFont("Arial", "", 11)
	pdf.Cell(190, 8, tr(fmt.Sprintf("Comprobante de pago - Reserva #%d", r.ID)))
	pdf.Ln(12)

	line := func(label, value string) {
		pdf.SetFont("Arial", "B", 11)
		pdf.Cell(55, 8, tr(label))
		pdf.SetFont("Arial", "", 11)
		pdf.Cell(135, 8, tr(value))
		pdf.Ln(8)
	}

	line("Cliente:", d.ClientName)
	line("Correo:", d.ClientEmail)
	line("Vehículo:", r.VehicleName)
	line("Desde:", r.Start.Format(dayLayout))
	line("Hasta:", r.End.Format(dayLayout))
	line("Días:", fmt.Sprintf("%d", d.Days))
	line("Precio por día:", "$"+d.PerDay.StringFixed(2))
	pdf.Ln(4)

	if p.TransactionID != 0 {
		line("Transacción MiBanca:", fmt.Sprintf("%d", p.TransactionID))
	}
	if p.PaymentID != 0 {
		line("Pago:", fmt.Sprintf("#%d", p.PaymentID))
	}
	if !p.PaidAt.IsZero() {
		line("Fecha de pago:", p.PaidAt.Format("2006-01-02 15:04:05"))
	}
	line("Cuenta origen:", fmt.Sprintf("%d", p.SourceAccount))
	line("Cuenta destino:", fmt.Sprintf("%d", p.MerchantAccount))
	if p.InvoiceID != 0 {
		line("Factura:", fmt.Sprintf("#%d", p.InvoiceID))
	}
	pdf.Ln(4)

	pdf.SetFont("Arial", "B", 12)
	pdf.Cell(140, 8, "Item")
	pdf.Cell(50, 8, "Valor")
	pdf.Ln(8)
	pdf.SetFont("Arial", "", 12)
	for _, row := range [][2]string{
		{"Subtotal", d.Subtotal.StringFixed(2)},
		{"IVA", d.Tax.StringFixed(2)},
	} {
		pdf.Cell(140, 8, row[0])
		pdf.Cell(50, 8, "$"+row[1])
		pdf.Ln(8)
	}
	pdf.SetFont("Arial", "B", 12)
	pdf.Cell(140, 10, "Total pagado:")
	pdf.Cell(50, 10, "$"+p.Amount.StringFixed(2))
	pdf.Ln(14)

	pdf.SetFont("Arial", "I", 9)
	pdf.Cell(190, 6, tr("Emitido el "+issuedAt.Format("2006-01-02 15:04:05")))

	return pdf.Output(w)
}
