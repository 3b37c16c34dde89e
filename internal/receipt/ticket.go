package receipt

import (
	"strings"

	"parking_terminal/internal/escpos"
	"parking_terminal/internal/parking"

	"github.com/shopspring/decimal"
)

const (
	barcodeHeight = 0x50
	barcodeWidth  = 2
)

type ticketKind int

const (
	kindEntry ticketKind = iota
	kindExit
	kindMonthly
	kindReprint
)

func (k ticketKind) title() string {
	switch k {
	case kindExit:
		return "TICKET DE SALIDA"
	case kindMonthly:
		return "MENSUALIDAD"
	case kindReprint:
		return "REIMPRESION DE TICKET"
	default:
		return "TICKET DE ENTRADA"
	}
}

// Entry renders the receipt handed to the driver at check-in.
func Entry(t parking.TicketRecord, tariffs parking.TariffTable, opts Options) string {
	return renderTicket(t, ticketExtras{kind: kindEntry, tariffs: tariffs}, opts)
}

// Exit renders the check-out receipt. The exit line is only printed when the
// record carries an exit time.
func Exit(t parking.TicketRecord, opts Options) string {
	return renderTicket(t, ticketExtras{kind: kindExit}, opts)
}

// Monthly renders a monthly subscription receipt for the given number of days.
func Monthly(t parking.TicketRecord, days int, total decimal.Decimal, opts Options) string {
	return renderTicket(t, ticketExtras{kind: kindMonthly, days: days, total: total}, opts)
}

// Reprint renders a copy of a ticket in whatever state the API reports.
func Reprint(t parking.TicketRecord, tariffs parking.TariffTable, opts Options) string {
	return renderTicket(t, ticketExtras{kind: kindReprint, tariffs: tariffs}, opts)
}

type ticketExtras struct {
	kind    ticketKind
	tariffs parking.TariffTable
	days    int
	total   decimal.Decimal
}

func renderTicket(t parking.TicketRecord, extras ticketExtras, opts Options) string {
	b := escpos.NewBuilder(opts.width())
	b.Init().Center()
	b.Line(opts.business())
	b.Line(extras.kind.title())
	b.Separator()

	b.Left()
	b.Linef("Parqueadero: %s", orNA(t.Lot))
	b.Linef("Placa: %s", orNA(t.Plate))
	b.Linef("Tipo: %s", orNA(t.VehicleType))
	b.Linef("Entrada: %s", opts.ticketTime(t.EntryAt.Time))

	showCharges := extras.kind == kindExit || (extras.kind == kindReprint && t.HasExited())
	if showCharges && t.HasExited() {
		b.Linef("Salida: %s", opts.ticketTime(t.ExitAt.Time))
	}

	switch extras.kind {
	case kindEntry:
		b.Linef("Tarifa dia: %s", FormatCOP(extras.tariffs.Price(t.VehicleType)))
	case kindMonthly:
		b.Linef("Dias: %d", extras.days)
		if extras.days > 0 && !t.EntryAt.IsZero() {
			b.Linef("Vence: %s", opts.ticketTime(t.EntryAt.AddDate(0, 0, extras.days)))
		}
		b.Linef("Total: %s", FormatCOP(extras.total))
	case kindReprint:
		if !showCharges {
			b.Linef("Tarifa dia: %s", FormatCOP(extras.tariffs.Price(t.VehicleType)))
		}
	}

	if showCharges {
		b.Linef("Total a pagar: %s", FormatCOP(totalDue(t)))
		b.Linef("Estado: %s", paymentStatus(t.Paid))
	}

	b.Linef("Recibido por: %s", orNA(t.ReceivedBy))
	if showCharges {
		b.Linef("Entregado por: %s", orNA(t.DeliveredBy))
	}
	b.Separator()

	b.Center()
	code := strings.TrimSpace(t.Code)
	if err := b.Barcode128(code, barcodeHeight, barcodeWidth); err != nil {
		b.Linef("Codigo: %s", orNA(code))
	}

	switch extras.kind {
	case kindExit:
		b.Line("Gracias por su visita")
	default:
		b.Line("Conserve este ticket")
	}
	b.Feed(1)
	b.Cut()
	return b.String()
}

func totalDue(t parking.TicketRecord) decimal.Decimal {
	if !t.TotalDue.Valid {
		return decimal.Zero
	}
	return t.TotalDue.Decimal
}

func paymentStatus(paid bool) string {
	if paid {
		return "PAGADO"
	}
	return "PENDIENTE"
}
