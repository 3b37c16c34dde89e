// Package desk implements the attendant's actions. Each action validates its
// input, calls the parking API and, where a receipt is involved, renders and
// prints it. A failed print never undoes the API call it follows.
package desk

import (
	"context"
	"fmt"
	"strings"
	"time"

	"parking_terminal/internal/backend"
	"parking_terminal/internal/parking"
	"parking_terminal/internal/receipt"
	"parking_terminal/internal/session"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type API interface {
	Login(ctx context.Context, name, nationalID string) (parking.Session, error)
	Ticket(ctx context.Context, code string) (parking.TicketRecord, error)
	LookupTicket(ctx context.Context, code string) (parking.TicketRecord, error)
	CreateEntry(ctx context.Context, entry backend.EntryRequest) (parking.TicketRecord, error)
	CreateMonthly(ctx context.Context, monthly backend.MonthlyRequest) (parking.TicketRecord, error)
	RegisterExit(ctx context.Context, exit backend.ExitRequest) (parking.TicketRecord, error)
	Tickets(ctx context.Context, filter backend.TicketFilter) (backend.Page[parking.TicketRecord], error)
	CalculateTotal(ctx context.Context, code string) (decimal.Decimal, error)
	Tariffs(ctx context.Context) (parking.TariffTable, error)
	CreateClosing(ctx context.Context, attendant string, start, end time.Time) (parking.ShiftClosing, error)
	Closings(ctx context.Context, filter backend.ClosingFilter) (backend.Page[parking.ClosingRecord], error)
	Closing(ctx context.Context, id int64) (parking.ClosingRecord, error)
	Filters(ctx context.Context) (backend.FilterOptions, error)
}

type Printer interface {
	Print(ctx context.Context, target, text string) error
	Printers(ctx context.Context) ([]string, error)
}

type Options struct {
	Printer string
	Receipt receipt.Options
	Now     func() time.Time
}

// Outcome is the result of an action that produced a receipt. PrintErr is
// set when the action succeeded but its receipt could not be printed.
type Outcome struct {
	Ticket   *parking.TicketRecord
	Closing  *parking.ShiftClosing
	Receipt  string
	PrintErr error
}

func (o Outcome) Printed() bool {
	return o.PrintErr == nil
}

type Desk struct {
	api      API
	sessions *session.Manager
	printer  Printer
	opts     Options
	logger   *zap.Logger
}

func New(api API, sessions *session.Manager, printer Printer, opts Options, logger *zap.Logger) *Desk {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Desk{
		api:      api,
		sessions: sessions,
		printer:  printer,
		opts:     opts,
		logger:   logger.Named("desk"),
	}
}

func (d *Desk) Login(ctx context.Context, form LoginForm) (parking.Session, error) {
	form.Name = strings.TrimSpace(form.Name)
	form.NationalID = strings.TrimSpace(form.NationalID)
	if err := form.validate(); err != nil {
		return parking.Session{}, err
	}

	current, err := d.api.Login(ctx, form.Name, form.NationalID)
	if err != nil {
		return parking.Session{}, err
	}
	if current.ShiftStart.IsZero() {
		current.ShiftStart = parking.At(d.opts.Now())
	}
	if err := d.sessions.Begin(current); err != nil {
		return parking.Session{}, err
	}

	if _, err := d.RefreshTariffs(ctx); err != nil {
		d.logger.Warn("tariffs not loaded after login", zap.Error(err))
	}
	return current, nil
}

// Logout only forgets the local session; the backend keeps no login state.
func (d *Desk) Logout() error {
	return d.sessions.End()
}

func (d *Desk) Current() (parking.Session, bool) {
	return d.sessions.Current()
}

func (d *Desk) Tariffs() parking.TariffTable {
	return d.sessions.Tariffs()
}

// Resume reloads the tariff table for a session restored from disk.
func (d *Desk) Resume(ctx context.Context) {
	if !d.sessions.LoggedIn() {
		return
	}
	if _, err := d.RefreshTariffs(ctx); err != nil {
		d.logger.Warn("tariffs not loaded for restored session", zap.Error(err))
	}
}

// tariffsFor returns the cached table, fetching it first when it is empty.
// A failed fetch renders with the empty table.
func (d *Desk) tariffsFor(ctx context.Context) parking.TariffTable {
	if table := d.sessions.Tariffs(); len(table) > 0 {
		return table
	}
	table, err := d.RefreshTariffs(ctx)
	if err != nil {
		d.logger.Warn("tariffs unavailable", zap.Error(err))
		return d.sessions.Tariffs()
	}
	return table
}

func (d *Desk) RefreshTariffs(ctx context.Context) (parking.TariffTable, error) {
	table, err := d.api.Tariffs(ctx)
	if err != nil {
		return nil, err
	}
	d.sessions.SetTariffs(table)
	return d.sessions.Tariffs(), nil
}

func (d *Desk) RegisterEntry(ctx context.Context, form EntryForm) (Outcome, error) {
	current, err := d.requireSession()
	if err != nil {
		return Outcome{}, err
	}
	form = form.normalize()
	if err := form.validate(); err != nil {
		return Outcome{}, err
	}

	ticket, err := d.api.CreateEntry(ctx, backend.EntryRequest{
		Plate:        form.Plate,
		VehicleType:  form.VehicleType,
		ReceivedByID: current.ID,
		Lot:          form.Lot,
	})
	if err != nil {
		return Outcome{}, err
	}
	d.logger.Info("entry registered", zap.String("code", ticket.Code), zap.String("plate", ticket.Plate))

	return d.printTicket(ctx, ticket, receipt.Entry(ticket, d.tariffsFor(ctx), d.opts.Receipt)), nil
}

func (d *Desk) RegisterMonthly(ctx context.Context, form MonthlyForm) (Outcome, error) {
	current, err := d.requireSession()
	if err != nil {
		return Outcome{}, err
	}
	form = form.normalize()
	if err := form.validate(); err != nil {
		return Outcome{}, err
	}
	if form.Start.IsZero() {
		form.Start = d.opts.Now()
	}

	ticket, err := d.api.CreateMonthly(ctx, backend.MonthlyRequest{
		EntryAt:     form.Start,
		UserID:      current.ID,
		Plate:       form.Plate,
		VehicleType: form.VehicleType,
		Lot:         form.Lot,
		Days:        form.Days,
		Total:       form.Total,
	})
	if err != nil {
		return Outcome{}, err
	}
	d.logger.Info("monthly registered", zap.String("code", ticket.Code), zap.Int("days", form.Days))

	return d.printTicket(ctx, ticket, receipt.Monthly(ticket, form.Days, form.Total, d.opts.Receipt)), nil
}

// PreviewExit returns the ticket and what it would owe if it left now,
// without registering anything.
func (d *Desk) PreviewExit(ctx context.Context, code string) (parking.TicketRecord, decimal.Decimal, error) {
	if _, err := d.requireSession(); err != nil {
		return parking.TicketRecord{}, decimal.Zero, err
	}
	code, err := requireCode(code)
	if err != nil {
		return parking.TicketRecord{}, decimal.Zero, err
	}

	ticket, err := d.api.Ticket(ctx, code)
	if err != nil {
		return parking.TicketRecord{}, decimal.Zero, err
	}
	total, err := d.api.CalculateTotal(ctx, code)
	if err != nil {
		return parking.TicketRecord{}, decimal.Zero, err
	}
	return ticket, total, nil
}

func (d *Desk) RegisterExit(ctx context.Context, code string) (Outcome, error) {
	current, err := d.requireSession()
	if err != nil {
		return Outcome{}, err
	}
	code, err = requireCode(code)
	if err != nil {
		return Outcome{}, err
	}

	ticket, err := d.api.RegisterExit(ctx, backend.ExitRequest{Code: code, UserID: current.ID})
	if err != nil {
		return Outcome{}, err
	}
	d.logger.Info("exit registered", zap.String("code", ticket.Code), zap.String("plate", ticket.Plate))

	return d.printTicket(ctx, ticket, receipt.Exit(ticket, d.opts.Receipt)), nil
}

func (d *Desk) ReprintTicket(ctx context.Context, code string) (Outcome, error) {
	if _, err := d.requireSession(); err != nil {
		return Outcome{}, err
	}
	code, err := requireCode(code)
	if err != nil {
		return Outcome{}, err
	}

	ticket, err := d.api.Ticket(ctx, code)
	if err != nil {
		return Outcome{}, err
	}
	return d.printTicket(ctx, ticket, receipt.Reprint(ticket, d.tariffsFor(ctx), d.opts.Receipt)), nil
}

// LookupTicket backs the as-you-type code lookup.
func (d *Desk) LookupTicket(ctx context.Context, code string) (parking.TicketRecord, error) {
	if _, err := d.requireSession(); err != nil {
		return parking.TicketRecord{}, err
	}
	return d.api.LookupTicket(ctx, strings.TrimSpace(code))
}

// CloseShift settles the current shift from its start until now, prints the
// closing and ends the session. The session ends even if printing fails.
func (d *Desk) CloseShift(ctx context.Context) (Outcome, error) {
	current, err := d.requireSession()
	if err != nil {
		return Outcome{}, err
	}

	closing, err := d.api.CreateClosing(ctx, current.Name, current.ShiftStart.Time, d.opts.Now())
	if err != nil {
		return Outcome{}, err
	}
	d.checkLots(closing)
	d.logger.Info("shift closed", zap.String("attendant", current.Name), zap.String("income", closing.Income.String()))

	outcome := d.printClosing(ctx, closing)
	if err := d.sessions.End(); err != nil {
		d.logger.Warn("session not cleared after closing", zap.Error(err))
	}
	return outcome, nil
}

func (d *Desk) ReprintClosing(ctx context.Context, id int64) (Outcome, error) {
	if _, err := d.requireSession(); err != nil {
		return Outcome{}, err
	}
	if id <= 0 {
		return Outcome{}, &ValidationError{Fields: []string{"id"}}
	}

	record, err := d.api.Closing(ctx, id)
	if err != nil {
		return Outcome{}, err
	}
	closing, err := record.ShiftClosing()
	if err != nil {
		d.logger.Warn("closing details unreadable, printing summary", zap.Int64("id", id), zap.Error(err))
	}
	return d.printClosing(ctx, closing), nil
}

func (d *Desk) Tickets(ctx context.Context, filter backend.TicketFilter) (backend.Page[parking.TicketRecord], error) {
	if _, err := d.requireSession(); err != nil {
		return backend.Page[parking.TicketRecord]{}, err
	}
	filter.Plate = parking.NormalizePlate(filter.Plate)
	return d.api.Tickets(ctx, filter)
}

func (d *Desk) Closings(ctx context.Context, filter backend.ClosingFilter) (backend.Page[parking.ClosingRecord], error) {
	if _, err := d.requireSession(); err != nil {
		return backend.Page[parking.ClosingRecord]{}, err
	}
	return d.api.Closings(ctx, filter)
}

func (d *Desk) Filters(ctx context.Context) (backend.FilterOptions, error) {
	if _, err := d.requireSession(); err != nil {
		return backend.FilterOptions{}, err
	}
	return d.api.Filters(ctx)
}

func (d *Desk) Printers(ctx context.Context) ([]string, error) {
	return d.printer.Printers(ctx)
}

func (d *Desk) requireSession() (parking.Session, error) {
	current, ok := d.sessions.Current()
	if !ok {
		return parking.Session{}, ErrNoSession
	}
	return current, nil
}

func (d *Desk) printTicket(ctx context.Context, ticket parking.TicketRecord, text string) Outcome {
	outcome := Outcome{Ticket: &ticket, Receipt: text}
	outcome.PrintErr = d.print(ctx, text, zap.String("code", ticket.Code))
	return outcome
}

func (d *Desk) printClosing(ctx context.Context, closing parking.ShiftClosing) Outcome {
	text := receipt.Closing(closing, d.opts.Receipt)
	outcome := Outcome{Closing: &closing, Receipt: text}
	outcome.PrintErr = d.print(ctx, text, zap.Int64("closing_id", closing.ID))
	return outcome
}

func (d *Desk) print(ctx context.Context, text string, field zap.Field) error {
	if err := d.printer.Print(ctx, d.opts.Printer, text); err != nil {
		d.logger.Warn("receipt not printed", field, zap.String("printer", d.opts.Printer), zap.Error(err))
		return fmt.Errorf("print receipt: %w", err)
	}
	return nil
}

// checkLots logs tallies that disagree with their lists. The receipt still
// prints the figures the API sent.
func (d *Desk) checkLots(closing parking.ShiftClosing) {
	for _, lot := range closing.Lots {
		if err := lot.Check(); err != nil {
			d.logger.Warn("closing tally mismatch", zap.String("lot", lot.Lot), zap.Error(err))
		}
	}
}

func requireCode(code string) (string, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return "", &ValidationError{Fields: []string{"codigo"}}
	}
	return code, nil
}
