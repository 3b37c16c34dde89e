package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"maps"
	"slices"
	"strconv"
	"strings"

	"parking_terminal/internal/backend"
	"parking_terminal/internal/parking"
	"parking_terminal/internal/receipt"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
)

const displayLayout = "02/01/2006 15:04"

func writeJSON(w io.Writer, value any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(value)
}

func newTable(headers ...string) *table.Table {
	return table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(mutedStyle).
		Headers(headers...)
}

func (r *Runner) writeTicketPage(page backend.Page[parking.TicketRecord]) error {
	if r.opts.JSON {
		return writeJSON(r.out, page)
	}
	if len(page.Content) == 0 {
		fmt.Fprintln(r.out, "- (sin resultados)")
		return nil
	}

	t := newTable("Código", "Placa", "Tipo", "Parqueadero", "Entrada", "Salida", "Total", "Estado")
	for _, ticket := range page.Content {
		t.Row(
			ticket.Code,
			ticket.Plate,
			ticket.VehicleType,
			ticket.Lot,
			r.displayTime(ticket.EntryAt),
			r.displayTime(ticket.ExitAt),
			formatNullable(ticket),
			paymentLabel(ticket.Paid),
		)
	}
	fmt.Fprintln(r.out, t.String())
	writePageFooter(r.out, page.Number, page.TotalPages, page.TotalElements)
	return nil
}

func (r *Runner) writeClosingPage(page backend.Page[parking.ClosingRecord]) error {
	if r.opts.JSON {
		return writeJSON(r.out, page)
	}
	if len(page.Content) == 0 {
		fmt.Fprintln(r.out, "- (sin resultados)")
		return nil
	}

	t := newTable("Id", "Usuario", "Inicio", "Fin", "Ingresos")
	for _, closing := range page.Content {
		t.Row(
			strconv.FormatInt(closing.ID, 10),
			closing.Attendant,
			r.displayTime(closing.Start),
			r.displayTime(closing.End),
			receipt.FormatCOP(closing.Income),
		)
	}
	fmt.Fprintln(r.out, t.String())
	writePageFooter(r.out, page.Number, page.TotalPages, page.TotalElements)
	return nil
}

func (r *Runner) writeTicket(ticket parking.TicketRecord) error {
	if r.opts.JSON {
		return writeJSON(r.out, ticket)
	}
	fmt.Fprintln(r.out, headingStyle.Render("Ticket "+ticket.Code))
	fmt.Fprintf(r.out, "- placa: %s (%s)\n", ticket.Plate, ticket.VehicleType)
	fmt.Fprintf(r.out, "- parqueadero: %s\n", ticket.Lot)
	fmt.Fprintf(r.out, "- entrada: %s\n", r.displayTime(ticket.EntryAt))
	if ticket.HasExited() {
		fmt.Fprintf(r.out, "- salida: %s\n", r.displayTime(ticket.ExitAt))
	}
	fmt.Fprintf(r.out, "- total: %s (%s)\n", formatNullable(ticket), paymentLabel(ticket.Paid))
	return nil
}

func (r *Runner) writeTariffs(tariffs parking.TariffTable) error {
	if r.opts.JSON {
		return writeJSON(r.out, tariffs)
	}
	if len(tariffs) == 0 {
		fmt.Fprintln(r.out, "- (sin tarifas)")
		return nil
	}
	t := newTable("Tipo", "Valor día")
	for _, kind := range slices.Sorted(maps.Keys(tariffs)) {
		t.Row(kind, receipt.FormatCOP(tariffs[kind]))
	}
	fmt.Fprintln(r.out, t.String())
	return nil
}

func (r *Runner) writeFilters(filters backend.FilterOptions) error {
	if r.opts.JSON {
		return writeJSON(r.out, filters)
	}
	fmt.Fprintf(r.out, "- tipos de vehículo: %s\n", listOrDash(filters.VehicleTypes))
	fmt.Fprintf(r.out, "- parqueaderos: %s\n", listOrDash(filters.Lots))
	fmt.Fprintf(r.out, "- usuarios: %s\n", listOrDash(filters.Users))
	return nil
}

func (r *Runner) writeReceipt(text string) {
	if !r.showReceipts {
		return
	}
	fmt.Fprintln(r.out, mutedStyle.Render(printable(text)))
}

func (r *Runner) displayTime(ts parking.Timestamp) string {
	if ts.IsZero() {
		return "-"
	}
	return ts.In(r.loc).Format(displayLayout)
}

func writePageFooter(w io.Writer, number, totalPages int, totalElements int64) {
	fmt.Fprintln(w, mutedStyle.Render(fmt.Sprintf("Página %d de %d (%d registros)", number+1, max(totalPages, 1), totalElements)))
}

func formatNullable(ticket parking.TicketRecord) string {
	if !ticket.TotalDue.Valid {
		return "-"
	}
	return receipt.FormatCOP(ticket.TotalDue.Decimal)
}

func paymentLabel(paid bool) string {
	if paid {
		return "PAGADO"
	}
	return "PENDIENTE"
}

func listOrDash(values []string) string {
	if len(values) == 0 {
		return "-"
	}
	return strings.Join(values, ", ")
}

// printable strips ESC/POS control sequences so a receipt can be previewed
// on a terminal.
func printable(text string) string {
	var b strings.Builder
	for i := 0; i < len(text); i++ {
		c := text[i]
		switch {
		case c == 0x1B || c == 0x1D:
			i += controlLength(text[i:]) - 1
		case c == '\n' || c >= 0x20:
			b.WriteByte(c)
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

func controlLength(seq string) int {
	if len(seq) < 2 {
		return len(seq)
	}
	switch seq[:2] {
	case "\x1B@":
		return 2
	case "\x1Ba", "\x1Dh", "\x1Dw", "\x1DH":
		return min(3, len(seq))
	case "\x1DV":
		if len(seq) > 2 && seq[2] == 'B' {
			return min(4, len(seq))
		}
		return min(3, len(seq))
	case "\x1Dk":
		if len(seq) < 4 {
			return len(seq)
		}
		return min(4+int(seq[3]), len(seq))
	default:
		return 1
	}
}
