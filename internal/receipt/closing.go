package receipt

import (
	"fmt"
	"strconv"
	"strings"

	"parking_terminal/internal/escpos"
	"parking_terminal/internal/parking"
)

// Closing renders a shift-closing receipt. Lots are printed in the order they
// were received; tallies are printed as the API reported them.
func Closing(c parking.ShiftClosing, opts Options) string {
	b := escpos.NewBuilder(opts.width())
	b.Init().Center()
	b.Line(opts.business())
	if c.Copy {
		b.Line("Copia de Cierre de Turno")
	} else {
		b.Line("Cierre de Turno")
	}
	b.Separator()

	b.Left()
	b.Linef("Vendedor: %s", orNA(c.Attendant))
	b.Linef("Inicio: %s", opts.closingTime(c.Start.Time))
	b.Linef("Fin: %s", opts.closingTime(c.End.Time))
	b.Separator()
	b.Linef("Total Ingresos: %s", FormatCOP(c.Income))
	b.Separator()

	switch {
	case len(c.Lots) > 0:
		for _, lot := range c.Lots {
			writeLot(b, lot)
		}
	case c.Summary != nil:
		writeSummary(b, *c.Summary)
	}

	b.Center()
	b.Line("¡Gracias por tu buen trabajo!")
	b.Feed(1)
	b.Cut()
	return b.String()
}

func writeLot(b *escpos.Builder, lot parking.LotBreakdown) {
	b.Center()
	b.Linef("PARQUEADERO %s", strings.ToUpper(orNA(lot.Lot)))
	b.Left()
	b.Linef("Total a pagar: %s", FormatCOP(lot.TotalDue))
	b.Feed(1)

	entering := make([]string, 0, len(lot.Entering))
	for _, v := range lot.Entering {
		entering = append(entering, vehicleLine(v))
	}
	writeSection(b, "Entraron", entering, lot.EnteringByType)

	exiting := make([]string, 0, len(lot.Exiting))
	for _, v := range lot.Exiting {
		exiting = append(exiting, fmt.Sprintf("%s %s", vehicleLine(parking.Vehicle{Plate: v.Plate, Type: v.Type}), FormatCOP(v.Charged)))
	}
	writeSection(b, "Salieron", exiting, lot.ExitingByType)

	monthly := make([]string, 0, len(lot.Monthly))
	for _, v := range lot.Monthly {
		monthly = append(monthly, vehicleLine(v))
	}
	writeSection(b, "Mensualidades", monthly, nil)

	parked := make([]string, 0, len(lot.Parked))
	for _, v := range lot.Parked {
		parked = append(parked, vehicleLine(v))
	}
	writeSection(b, "En parqueadero", parked, lot.ParkedByType)

	b.Separator()
}

func writeSection(b *escpos.Builder, title string, items []string, tally []parking.TypeCount) {
	b.Linef("%s: %d", title, len(items))
	if line := tallyLine(tally); line != "" {
		b.Linef("  Tipos: %s", line)
	}
	if len(items) == 0 {
		b.Line("  " + notAvailable)
	}
	for _, item := range items {
		b.Line("  - " + item)
	}
	b.Feed(1)
}

func tallyLine(tally []parking.TypeCount) string {
	parts := make([]string, 0, len(tally))
	for _, entry := range tally {
		if strings.TrimSpace(entry.Type) == "" {
			continue
		}
		parts = append(parts, entry.Type+"="+strconv.Itoa(entry.Count))
	}
	return strings.Join(parts, ", ")
}

func vehicleLine(v parking.Vehicle) string {
	return fmt.Sprintf("%s (%s)", orNA(v.Plate), orNA(v.Type))
}

func writeSummary(b *escpos.Builder, s parking.ClosingSummary) {
	b.Line("--- RESUMEN ---")
	b.Linef("Vehiculos que entraron: %s", countOrNA(s.Entered))
	b.Linef("(%s)", orNA(s.EnteredDetail))
	b.Feed(1)
	b.Linef("Vehiculos que salieron: %s", countOrNA(s.Exited))
	b.Linef("(%s)", orNA(s.ExitedDetail))
	b.Feed(1)
	b.Linef("Vehiculos restantes: %s", countOrNA(s.Remaining))
	b.Linef("(%s)", orNA(s.RemainingDetail))
	b.Separator()
}

func countOrNA(n *int) string {
	if n == nil {
		return notAvailable
	}
	return strconv.Itoa(*n)
}
