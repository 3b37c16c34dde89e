package parking

import (
	"strings"

	"github.com/shopspring/decimal"
)

const (
	VehicleMoto      = "moto"
	VehicleAutomovil = "automovil"
	VehicleTurbo     = "turbo"
	VehicleCamion    = "camion"
)

// Session is the attendant bound to the terminal's single active shift.
type Session struct {
	ID         int64     `json:"id"`
	Name       string    `json:"nombre"`
	NationalID string    `json:"cedula"`
	ShiftStart Timestamp `json:"fechaInicioSesion"`
}

// TicketRecord is produced by the parking API; the terminal only formats it.
type TicketRecord struct {
	Code        string              `json:"codigo"`
	Plate       string              `json:"placa"`
	VehicleType string              `json:"tipoVehiculo"`
	EntryAt     Timestamp           `json:"fechaHoraEntrada"`
	ExitAt      Timestamp           `json:"fechaHoraSalida"`
	Lot         string              `json:"parqueadero"`
	Paid        bool                `json:"estadoPago"`
	TotalDue    decimal.NullDecimal `json:"totalPagar"`
	ReceivedBy  string              `json:"usuarioRecibio"`
	DeliveredBy string              `json:"usuarioEntrego"`
}

func (t TicketRecord) HasExited() bool {
	return !t.ExitAt.IsZero()
}

type Vehicle struct {
	Plate string `json:"placa"`
	Type  string `json:"tipo"`
}

type VehicleCharge struct {
	Plate   string          `json:"placa"`
	Type    string          `json:"tipo"`
	Charged decimal.Decimal `json:"totalCobrado"`
}

type TypeCount struct {
	Type  string `json:"tipo"`
	Count int    `json:"cantidad"`
}

// TariffTable maps a vehicle type to its daily price. Keys are not
// exhaustive: an absent type is priced at zero.
type TariffTable map[string]decimal.Decimal

func (t TariffTable) Price(vehicleType string) decimal.Decimal {
	if price, ok := t[tariffKey(vehicleType)]; ok {
		return price
	}
	return decimal.Zero
}

func (t TariffTable) With(vehicleType string, price decimal.Decimal) TariffTable {
	out := make(TariffTable, len(t)+1)
	for key, value := range t {
		out[key] = value
	}
	out[tariffKey(vehicleType)] = price
	return out
}

func tariffKey(vehicleType string) string {
	return strings.ToLower(strings.TrimSpace(vehicleType))
}

// NormalizePlate uppercases a plate and drops spaces and dashes.
func NormalizePlate(plate string) string {
	var b strings.Builder
	for _, r := range strings.ToUpper(strings.TrimSpace(plate)) {
		if r == ' ' || r == '-' || r == '\t' {
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
