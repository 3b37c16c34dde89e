package backend

import (
	"encoding/json"
	"time"

	"parking_terminal/internal/parking"

	"github.com/shopspring/decimal"
)

// Page is one page of a paginated listing, 0-indexed.
type Page[T any] struct {
	Content       []T   `json:"content"`
	TotalElements int64 `json:"totalElements"`
	TotalPages    int   `json:"totalPages"`
	Number        int   `json:"number"`
	Size          int   `json:"size"`
}

type Tariff struct {
	VehicleType string          `json:"tipoVehiculo"`
	DailyRate   decimal.Decimal `json:"valorDia"`
}

func TariffTable(tariffs []Tariff) parking.TariffTable {
	table := parking.TariffTable{}
	for _, tariff := range tariffs {
		table = table.With(tariff.VehicleType, tariff.DailyRate)
	}
	return table
}

type FilterOptions struct {
	VehicleTypes []string `json:"tiposVehiculo"`
	Lots         []string `json:"parqueaderos"`
	Users        []string `json:"usuarios"`
}

type EntryRequest struct {
	Plate        string `json:"placa"`
	VehicleType  string `json:"tipoVehiculo"`
	ReceivedByID int64  `json:"usuarioRecibioId"`
	Lot          string `json:"parqueadero"`
}

type MonthlyRequest struct {
	EntryAt     time.Time
	UserID      int64
	Plate       string
	VehicleType string
	Lot         string
	Days        int
	Total       decimal.Decimal
}

func (r MonthlyRequest) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		EntryAt     string      `json:"fechaHoraEntrada"`
		UserID      int64       `json:"usuarioId"`
		Plate       string      `json:"placa"`
		VehicleType string      `json:"tipoVehiculo"`
		Lot         string      `json:"parqueadero"`
		Days        int         `json:"dias"`
		Total       json.Number `json:"total"`
	}{
		EntryAt:     formatLocal(r.EntryAt),
		UserID:      r.UserID,
		Plate:       r.Plate,
		VehicleType: r.VehicleType,
		Lot:         r.Lot,
		Days:        r.Days,
		Total:       json.Number(r.Total.String()),
	})
}

type ExitRequest struct {
	Code   string `json:"codigo"`
	UserID int64  `json:"idUsuarioLogueado"`
}

type loginRequest struct {
	Name       string `json:"nombre"`
	NationalID string `json:"cedula"`
}

type signRequest struct {
	Request string `json:"request"`
}

// TicketFilter narrows the ticket table. Zero values are left out of the query.
type TicketFilter struct {
	Page        int
	Size        int
	Plate       string
	VehicleType string
	Lot         string
	Paid        *bool
	From        time.Time
	To          time.Time
}

type ClosingFilter struct {
	Page int
	Size int
	From time.Time
	To   time.Time
}

func formatLocal(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(parking.LocalLayout)
}
