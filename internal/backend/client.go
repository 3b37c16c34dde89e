package backend

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"parking_terminal/internal/config"
	"parking_terminal/internal/parking"

	"github.com/go-resty/resty/v2"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const defaultPageSize = 10

// Client talks to the parking API. Calls are made once; nothing is retried.
type Client struct {
	http    *resty.Client
	signURL string
	loc     *time.Location
	logger  *zap.Logger
}

func NewClient(cfg config.Config, tracker *Tracker, logger *zap.Logger) (*Client, error) {
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}

	httpClient := resty.New().
		SetBaseURL(strings.TrimRight(cfg.APIURL, "/")).
		SetHeader("Accept", "application/json").
		SetHeader("Content-Type", "application/json").
		SetTimeout(cfg.Timeout)
	if tracker != nil {
		tracker.Attach(httpClient)
	}

	return &Client{
		http:    httpClient,
		signURL: strings.TrimSpace(cfg.SignURL),
		loc:     loc,
		logger:  logger.Named("backend"),
	}, nil
}

func (c *Client) Login(ctx context.Context, name, nationalID string) (parking.Session, error) {
	var session parking.Session
	req := c.http.R().
		SetContext(ctx).
		SetBody(loginRequest{Name: name, NationalID: nationalID}).
		SetResult(&session)
	err := c.do(req, resty.MethodPost, "/usuarios/login", statusErrors{
		http.StatusUnauthorized: ErrInvalidCredentials,
		http.StatusConflict:     ErrShiftActive,
	})
	if err != nil {
		return parking.Session{}, err
	}
	return session, nil
}

func (c *Client) Ticket(ctx context.Context, code string) (parking.TicketRecord, error) {
	return c.ticket(ctx, code, false)
}

// LookupTicket fetches a ticket without marking the terminal busy. It backs
// the as-you-type lookup, which fires far more often than real actions.
func (c *Client) LookupTicket(ctx context.Context, code string) (parking.TicketRecord, error) {
	return c.ticket(ctx, code, true)
}

func (c *Client) ticket(ctx context.Context, code string, quiet bool) (parking.TicketRecord, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return parking.TicketRecord{}, ErrEmptyCode
	}

	var ticket parking.TicketRecord
	req := c.http.R().
		SetContext(ctx).
		SetPathParam("codigo", code).
		SetResult(&ticket)
	if quiet {
		req.SetHeader(SkipLoaderHeader, "true")
	}
	if err := c.do(req, resty.MethodGet, "/tickets/{codigo}", nil); err != nil {
		return parking.TicketRecord{}, err
	}
	return ticket, nil
}

func (c *Client) CreateEntry(ctx context.Context, entry EntryRequest) (parking.TicketRecord, error) {
	var ticket parking.TicketRecord
	req := c.http.R().SetContext(ctx).SetBody(entry).SetResult(&ticket)
	if err := c.do(req, resty.MethodPost, "/tickets/entrada", nil); err != nil {
		return parking.TicketRecord{}, err
	}
	return ticket, nil
}

func (c *Client) CreateMonthly(ctx context.Context, monthly MonthlyRequest) (parking.TicketRecord, error) {
	monthly.EntryAt = c.local(monthly.EntryAt)

	var ticket parking.TicketRecord
	req := c.http.R().SetContext(ctx).SetBody(monthly).SetResult(&ticket)
	if err := c.do(req, resty.MethodPost, "/tickets/mensualidad", nil); err != nil {
		return parking.TicketRecord{}, err
	}
	return ticket, nil
}

func (c *Client) RegisterExit(ctx context.Context, exit ExitRequest) (parking.TicketRecord, error) {
	if strings.TrimSpace(exit.Code) == "" {
		return parking.TicketRecord{}, ErrEmptyCode
	}

	var ticket parking.TicketRecord
	req := c.http.R().SetContext(ctx).SetBody(exit).SetResult(&ticket)
	if err := c.do(req, resty.MethodPut, "/tickets/salida", nil); err != nil {
		return parking.TicketRecord{}, err
	}
	return ticket, nil
}

func (c *Client) Tickets(ctx context.Context, filter TicketFilter) (Page[parking.TicketRecord], error) {
	query := pageQuery(filter.Page, filter.Size)
	setIfNotEmpty(query, "placa", filter.Plate)
	setIfNotEmpty(query, "tipoVehiculo", filter.VehicleType)
	setIfNotEmpty(query, "parqueadero", filter.Lot)
	if filter.Paid != nil {
		query["pagado"] = strconv.FormatBool(*filter.Paid)
	}
	setIfNotEmpty(query, "desde", formatLocal(c.local(filter.From)))
	setIfNotEmpty(query, "hasta", formatLocal(c.local(filter.To)))

	var page Page[parking.TicketRecord]
	req := c.http.R().SetContext(ctx).SetQueryParams(query).SetResult(&page)
	if err := c.do(req, resty.MethodGet, "/tickets", nil); err != nil {
		return Page[parking.TicketRecord]{}, err
	}
	return page, nil
}

// CalculateTotal previews what a ticket would owe if it left now.
func (c *Client) CalculateTotal(ctx context.Context, code string) (decimal.Decimal, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return decimal.Zero, ErrEmptyCode
	}

	req := c.http.R().SetContext(ctx).SetPathParam("codigo", code)
	resp, err := c.send(req, resty.MethodGet, "/pagos/calcular-total/{codigo}", nil)
	if err != nil {
		return decimal.Zero, err
	}

	raw := strings.Trim(strings.TrimSpace(resp.String()), `"`)
	total, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, fmt.Errorf("decode total %q: %w", raw, err)
	}
	return total, nil
}

func (c *Client) Tariffs(ctx context.Context) (parking.TariffTable, error) {
	var tariffs []Tariff
	req := c.http.R().SetContext(ctx).SetResult(&tariffs)
	if err := c.do(req, resty.MethodGet, "/tarifas", nil); err != nil {
		return nil, err
	}
	return TariffTable(tariffs), nil
}

// CreateClosing settles a shift. A zero end leaves the backend to use its own clock.
func (c *Client) CreateClosing(ctx context.Context, attendant string, start, end time.Time) (parking.ShiftClosing, error) {
	query := map[string]string{
		"inicio":  formatLocal(c.local(start)),
		"usuario": attendant,
	}
	setIfNotEmpty(query, "fin", formatLocal(c.local(end)))

	var closing parking.ShiftClosing
	req := c.http.R().SetContext(ctx).SetQueryParams(query).SetResult(&closing)
	if err := c.do(req, resty.MethodPost, "/cierre-turno", nil); err != nil {
		return parking.ShiftClosing{}, err
	}
	if closing.Attendant == "" {
		closing.Attendant = attendant
	}
	return closing, nil
}

func (c *Client) Closings(ctx context.Context, filter ClosingFilter) (Page[parking.ClosingRecord], error) {
	query := pageQuery(filter.Page, filter.Size)
	setIfNotEmpty(query, "inicio", formatLocal(c.local(filter.From)))
	setIfNotEmpty(query, "fin", formatLocal(c.local(filter.To)))

	var page Page[parking.ClosingRecord]
	req := c.http.R().SetContext(ctx).SetQueryParams(query).SetResult(&page)
	if err := c.do(req, resty.MethodGet, "/cierre-turno", nil); err != nil {
		return Page[parking.ClosingRecord]{}, err
	}
	return page, nil
}

func (c *Client) Closing(ctx context.Context, id int64) (parking.ClosingRecord, error) {
	var record parking.ClosingRecord
	req := c.http.R().
		SetContext(ctx).
		SetPathParam("id", strconv.FormatInt(id, 10)).
		SetResult(&record)
	if err := c.do(req, resty.MethodGet, "/cierre-turno/{id}", nil); err != nil {
		return parking.ClosingRecord{}, err
	}
	return record, nil
}

func (c *Client) Filters(ctx context.Context) (FilterOptions, error) {
	var filters FilterOptions
	req := c.http.R().SetContext(ctx).SetResult(&filters)
	if err := c.do(req, resty.MethodGet, "/filtros", nil); err != nil {
		return FilterOptions{}, err
	}
	return filters, nil
}

// Sign relays a print bridge challenge to the signing endpoint and returns
// the signature text exactly as received.
func (c *Client) Sign(ctx context.Context, challenge []byte) ([]byte, error) {
	if c.signURL == "" {
		return nil, fmt.Errorf("sign: %w", ErrMissingSignURL)
	}

	req := c.http.R().
		SetContext(ctx).
		SetHeader(SkipLoaderHeader, "true").
		SetHeader("Accept", "text/plain").
		SetBody(signRequest{Request: string(challenge)})
	resp, err := c.send(req, resty.MethodPost, c.signURL, nil)
	if err != nil {
		return nil, fmt.Errorf("sign: %w", err)
	}
	return resp.Body(), nil
}

func (c *Client) do(req *resty.Request, method, path string, overrides statusErrors) error {
	_, err := c.send(req, method, path, overrides)
	return err
}

func (c *Client) send(req *resty.Request, method, path string, overrides statusErrors) (*resty.Response, error) {
	resp, err := req.Execute(method, path)
	if err != nil {
		c.logger.Debug("request failed", zap.String("method", method), zap.String("path", path), zap.Error(err))
		return nil, fmt.Errorf("parking api request: %w", err)
	}
	if resp.IsError() {
		c.logger.Debug("request rejected",
			zap.String("method", method),
			zap.String("path", path),
			zap.Int("status", resp.StatusCode()),
		)
		return nil, apiErrorFromResponse(resp, overrides)
	}
	return resp, nil
}

func (c *Client) local(t time.Time) time.Time {
	if t.IsZero() || c.loc == nil {
		return t
	}
	return t.In(c.loc)
}

func pageQuery(page, size int) map[string]string {
	if page < 0 {
		page = 0
	}
	if size <= 0 {
		size = defaultPageSize
	}
	return map[string]string{
		"page": strconv.Itoa(page),
		"size": strconv.Itoa(size),
	}
}

func setIfNotEmpty(query map[string]string, key, value string) {
	if strings.TrimSpace(value) != "" {
		query[key] = value
	}
}
