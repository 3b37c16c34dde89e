package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"parking_terminal/internal/backend"
	"parking_terminal/internal/desk"
	"parking_terminal/internal/lookup"
	"parking_terminal/internal/parking"
	"parking_terminal/internal/receipt"

	"github.com/shopspring/decimal"
	"github.com/spf13/pflag"
	"go.uber.org/zap"
)

type unknownCommandError string

func (e unknownCommandError) Error() string {
	return fmt.Sprintf("Comando desconocido %q. Escriba 'ayuda' para ver los comandos.", string(e))
}

type invalidArgError struct {
	err error
}

func (e invalidArgError) Error() string {
	return "Argumento inválido: " + e.err.Error()
}

type command struct {
	name    string
	aliases []string
	usage   string
	help    string
	run     func(r *Runner, ctx context.Context, args []string) error
}

func commandList() []command {
	return []command{
		{name: "login", usage: "login <nombre> <cedula>", help: "Inicia el turno del vendedor", run: (*Runner).cmdLogin},
		{name: "logout", usage: "logout", help: "Cierra la sesión local sin cerrar el turno", run: (*Runner).cmdLogout},
		{name: "estado", usage: "estado", help: "Muestra la sesión y la impresora activas", run: (*Runner).cmdStatus},
		{name: "entrada", usage: "entrada <placa> <tipo> <parqueadero>", help: "Registra la entrada de un vehículo", run: (*Runner).cmdEntry},
		{name: "mensualidad", usage: "mensualidad <placa> <tipo> <parqueadero> <dias> <total>", help: "Registra una mensualidad", run: (*Runner).cmdMonthly},
		{name: "salida", usage: "salida <codigo>", help: "Registra la salida de un vehículo", run: (*Runner).cmdExit},
		{name: "buscar", usage: "buscar <codigo>", help: "Consulta un ticket y su total actual", run: (*Runner).cmdFind},
		{name: "escanear", usage: "escanear", help: "Consulta códigos leídos por el escáner; línea vacía o 'fin' para terminar", run: (*Runner).cmdScan},
		{name: "reimprimir", usage: "reimprimir <codigo>", help: "Reimprime un ticket", run: (*Runner).cmdReprint},
		{name: "tickets", usage: "tickets [--pagina N] [--tamano N] [--placa P] [--tipo T] [--parqueadero X] [--pagado si|no] [--desde F] [--hasta F]", help: "Lista los tickets", run: (*Runner).cmdTickets},
		{name: "cierre", usage: "cierre", help: "Cierra el turno actual e imprime el cierre", run: (*Runner).cmdClose},
		{name: "turnos", usage: "turnos [--pagina N] [--tamano N] [--desde F] [--hasta F]", help: "Lista los cierres de turno", run: (*Runner).cmdClosings},
		{name: "reimprimir-cierre", usage: "reimprimir-cierre <id>", help: "Reimprime un cierre de turno", run: (*Runner).cmdReprintClosing},
		{name: "tarifas", usage: "tarifas", help: "Actualiza y muestra las tarifas", run: (*Runner).cmdTariffs},
		{name: "filtros", usage: "filtros", help: "Muestra los valores disponibles para filtrar", run: (*Runner).cmdFilters},
		{name: "impresoras", usage: "impresoras", help: "Lista las impresoras del servicio de impresión", run: (*Runner).cmdPrinters},
		{name: "ayuda", aliases: []string{"help", "?"}, usage: "ayuda", help: "Muestra esta ayuda", run: (*Runner).cmdHelp},
		{name: "salir", aliases: []string{"exit", "quit"}, usage: "salir", help: "Termina el programa", run: (*Runner).cmdQuit},
	}
}

func findCommand(name string) (command, bool) {
	name = strings.ToLower(name)
	for _, cmd := range commandList() {
		if cmd.name == name {
			return cmd, true
		}
		for _, alias := range cmd.aliases {
			if alias == name {
				return cmd, true
			}
		}
	}
	return command{}, false
}

func writeHelp(w io.Writer) {
	fmt.Fprintln(w, "Comandos:")
	for _, cmd := range commandList() {
		fmt.Fprintf(w, "  %-60s %s\n", cmd.usage, cmd.help)
	}
}

func (r *Runner) dispatch(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return nil
	}
	cmd, ok := findCommand(args[0])
	if !ok {
		return unknownCommandError(args[0])
	}
	r.logger.Debug("command", zap.String("name", cmd.name), zap.Int("args", len(args)-1))
	return cmd.run(r, ctx, args[1:])
}

func expectArgs(args []string, n int, usage string) error {
	if len(args) != n {
		return usageError{usage: usage}
	}
	return nil
}

func (r *Runner) cmdLogin(ctx context.Context, args []string) error {
	if err := expectArgs(args, 2, "login <nombre> <cedula>"); err != nil {
		return err
	}
	current, err := r.desk.Login(ctx, desk.LoginForm{Name: args[0], NationalID: args[1]})
	if err != nil {
		return err
	}
	notifySuccess(r.out, fmt.Sprintf("Bienvenido, %s. Turno iniciado %s", current.Name, r.displayTime(current.ShiftStart)))
	return nil
}

func (r *Runner) cmdLogout(context.Context, []string) error {
	if err := r.desk.Logout(); err != nil {
		return err
	}
	notifySuccess(r.out, "Sesión cerrada")
	return nil
}

func (r *Runner) cmdStatus(context.Context, []string) error {
	current, ok := r.desk.Current()
	if !ok {
		fmt.Fprintln(r.out, "- sesión: (ninguna)")
	} else {
		fmt.Fprintf(r.out, "- sesión: %s (cédula %s, id %d)\n", current.Name, current.NationalID, current.ID)
		fmt.Fprintf(r.out, "- inicio de turno: %s\n", r.displayTime(current.ShiftStart))
		fmt.Fprintf(r.out, "- tarifas cargadas: %d\n", len(r.desk.Tariffs()))
	}
	if r.tracker != nil {
		fmt.Fprintf(r.out, "- solicitudes en curso: %d\n", r.tracker.Active())
	}
	return nil
}

func (r *Runner) cmdEntry(ctx context.Context, args []string) error {
	if err := expectArgs(args, 3, "entrada <placa> <tipo> <parqueadero>"); err != nil {
		return err
	}
	outcome, err := r.desk.RegisterEntry(ctx, desk.EntryForm{Plate: args[0], VehicleType: args[1], Lot: args[2]})
	if err != nil {
		return err
	}
	r.writeReceipt(outcome.Receipt)
	notifyOutcome(r.out, "El ticket se registró correctamente: "+outcome.Ticket.Code, outcome)
	return nil
}

func (r *Runner) cmdMonthly(ctx context.Context, args []string) error {
	const usage = "mensualidad <placa> <tipo> <parqueadero> <dias> <total>"
	if err := expectArgs(args, 5, usage); err != nil {
		return err
	}
	days, err := strconv.Atoi(args[3])
	if err != nil {
		return invalidArgError{err: fmt.Errorf("dias %q", args[3])}
	}
	// Totals are whole pesos and may be written with "." grouping.
	total, err := decimal.NewFromString(strings.ReplaceAll(args[4], ".", ""))
	if err != nil {
		return invalidArgError{err: fmt.Errorf("total %q", args[4])}
	}

	outcome, err := r.desk.RegisterMonthly(ctx, desk.MonthlyForm{
		Plate:       args[0],
		VehicleType: args[1],
		Lot:         args[2],
		Days:        days,
		Total:       total,
	})
	if err != nil {
		return err
	}
	r.writeReceipt(outcome.Receipt)
	notifyOutcome(r.out, "La mensualidad se registró correctamente: "+outcome.Ticket.Code, outcome)
	return nil
}

func (r *Runner) cmdExit(ctx context.Context, args []string) error {
	if err := expectArgs(args, 1, "salida <codigo>"); err != nil {
		return err
	}
	if _, total, err := r.desk.PreviewExit(ctx, args[0]); err == nil {
		fmt.Fprintf(r.out, "- total a pagar: %s\n", receipt.FormatCOP(total))
	} else if !isPreviewSkippable(err) {
		return err
	}

	outcome, err := r.desk.RegisterExit(ctx, args[0])
	if err != nil {
		return err
	}
	r.writeReceipt(outcome.Receipt)
	notifyOutcome(r.out, "La salida se registró correctamente", outcome)
	return nil
}

// isPreviewSkippable reports whether a failed total preview should still let
// the exit go ahead. Only a missing ticket or session stops it early.
func isPreviewSkippable(err error) bool {
	var validation *desk.ValidationError
	return !errors.Is(err, backend.ErrNotFound) &&
		!errors.Is(err, desk.ErrNoSession) &&
		!errors.As(err, &validation)
}

func (r *Runner) cmdFind(ctx context.Context, args []string) error {
	if err := expectArgs(args, 1, "buscar <codigo>"); err != nil {
		return err
	}
	ticket, total, err := r.desk.PreviewExit(ctx, args[0])
	if err != nil {
		return err
	}
	if !ticket.HasExited() && !ticket.TotalDue.Valid {
		ticket.TotalDue = decimal.NewNullDecimal(total)
	}
	return r.writeTicket(ticket)
}

func (r *Runner) cmdScan(ctx context.Context, _ []string) error {
	if _, ok := r.desk.Current(); !ok {
		return desk.ErrNoSession
	}

	scanner := lookup.New[parking.TicketRecord](r.lookupDelay, r.desk.LookupTicket)
	defer scanner.Close()

	fmt.Fprintln(r.out, mutedStyle.Render("Modo escáner: lea un código (línea vacía o 'fin' para terminar)"))
	lines := r.readLines()
	for {
		select {
		case <-ctx.Done():
			return nil
		case line, ok := <-lines:
			line = strings.TrimSpace(line)
			if !ok || line == "" || strings.EqualFold(line, "fin") {
				return nil
			}
			scanner.Submit(line)
		case result, ok := <-scanner.Results():
			if !ok {
				return nil
			}
			if result.Err != nil {
				notifyError(r.out, result.Err)
				continue
			}
			if err := r.writeTicket(result.Value); err != nil {
				return err
			}
		}
	}
}

func (r *Runner) cmdReprint(ctx context.Context, args []string) error {
	if err := expectArgs(args, 1, "reimprimir <codigo>"); err != nil {
		return err
	}
	outcome, err := r.desk.ReprintTicket(ctx, args[0])
	if err != nil {
		return err
	}
	r.writeReceipt(outcome.Receipt)
	notifyOutcome(r.out, "Ticket reimpreso: "+outcome.Ticket.Code, outcome)
	return nil
}

func (r *Runner) newFlagSet(name string) *pflag.FlagSet {
	fs := pflag.NewFlagSet(name, pflag.ContinueOnError)
	fs.SetOutput(r.errOut)
	return fs
}

func (r *Runner) cmdTickets(ctx context.Context, args []string) error {
	var filter backend.TicketFilter
	var page int
	var paid, from, to string

	fs := r.newFlagSet("tickets")
	fs.IntVar(&page, "pagina", 1, "Página (desde 1)")
	fs.IntVar(&filter.Size, "tamano", 10, "Registros por página")
	fs.StringVar(&filter.Plate, "placa", "", "Placa")
	fs.StringVar(&filter.VehicleType, "tipo", "", "Tipo de vehículo")
	fs.StringVar(&filter.Lot, "parqueadero", "", "Parqueadero")
	fs.StringVar(&paid, "pagado", "", "si | no")
	fs.StringVar(&from, "desde", "", "Fecha inicial (AAAA-MM-DD)")
	fs.StringVar(&to, "hasta", "", "Fecha final (AAAA-MM-DD)")
	if err := fs.Parse(args); err != nil {
		return invalidArgError{err: err}
	}

	var err error
	filter.Page = max(page-1, 0)
	if filter.Paid, err = optionalBool(paid); err != nil {
		return invalidArgError{err: err}
	}
	if filter.From, err = parseDate(from, false, r.loc); err != nil {
		return invalidArgError{err: err}
	}
	if filter.To, err = parseDate(to, true, r.loc); err != nil {
		return invalidArgError{err: err}
	}

	result, err := r.desk.Tickets(ctx, filter)
	if err != nil {
		return err
	}
	return r.writeTicketPage(result)
}

func (r *Runner) cmdClose(ctx context.Context, _ []string) error {
	outcome, err := r.desk.CloseShift(ctx)
	if err != nil {
		return err
	}
	r.writeReceipt(outcome.Receipt)
	notifyOutcome(r.out, fmt.Sprintf("Turno cerrado. Total ingresos: %s", receipt.FormatCOP(outcome.Closing.Income)), outcome)
	return nil
}

func (r *Runner) cmdClosings(ctx context.Context, args []string) error {
	var filter backend.ClosingFilter
	var page int
	var from, to string

	fs := r.newFlagSet("turnos")
	fs.IntVar(&page, "pagina", 1, "Página (desde 1)")
	fs.IntVar(&filter.Size, "tamano", 10, "Registros por página")
	fs.StringVar(&from, "desde", "", "Fecha inicial (AAAA-MM-DD)")
	fs.StringVar(&to, "hasta", "", "Fecha final (AAAA-MM-DD)")
	if err := fs.Parse(args); err != nil {
		return invalidArgError{err: err}
	}

	var err error
	filter.Page = max(page-1, 0)
	if filter.From, err = parseDate(from, false, r.loc); err != nil {
		return invalidArgError{err: err}
	}
	if filter.To, err = parseDate(to, true, r.loc); err != nil {
		return invalidArgError{err: err}
	}

	result, err := r.desk.Closings(ctx, filter)
	if err != nil {
		return err
	}
	return r.writeClosingPage(result)
}

func (r *Runner) cmdReprintClosing(ctx context.Context, args []string) error {
	if err := expectArgs(args, 1, "reimprimir-cierre <id>"); err != nil {
		return err
	}
	id, err := parseID(args[0])
	if err != nil {
		return invalidArgError{err: err}
	}
	outcome, err := r.desk.ReprintClosing(ctx, id)
	if err != nil {
		return err
	}
	r.writeReceipt(outcome.Receipt)
	notifyOutcome(r.out, fmt.Sprintf("Cierre %d reimpreso", id), outcome)
	return nil
}

func (r *Runner) cmdTariffs(ctx context.Context, _ []string) error {
	if _, ok := r.desk.Current(); !ok {
		return desk.ErrNoSession
	}
	tariffs, err := r.desk.RefreshTariffs(ctx)
	if err != nil {
		return err
	}
	return r.writeTariffs(tariffs)
}

func (r *Runner) cmdFilters(ctx context.Context, _ []string) error {
	filters, err := r.desk.Filters(ctx)
	if err != nil {
		return err
	}
	return r.writeFilters(filters)
}

func (r *Runner) cmdPrinters(ctx context.Context, _ []string) error {
	printers, err := r.desk.Printers(ctx)
	if err != nil {
		return err
	}
	if r.opts.JSON {
		return writeJSON(r.out, printers)
	}
	if len(printers) == 0 {
		fmt.Fprintln(r.out, "- (sin impresoras)")
	}
	for _, name := range printers {
		fmt.Fprintf(r.out, "- %s\n", name)
	}
	return nil
}

func (r *Runner) cmdHelp(context.Context, []string) error {
	writeHelp(r.out)
	return nil
}

func (r *Runner) cmdQuit(context.Context, []string) error {
	return errQuit
}
