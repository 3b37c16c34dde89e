package desk

import (
	"errors"
	"strings"
	"time"

	"parking_terminal/internal/parking"

	"github.com/shopspring/decimal"
)

var ErrNoSession = errors.New("no active session")

// ValidationError lists every missing or invalid field of a form. It is
// returned before any network call is made.
type ValidationError struct {
	Fields []string
}

func (e *ValidationError) Error() string {
	return "incomplete form: " + strings.Join(e.Fields, ", ")
}

type validator struct {
	fields []string
}

func (v *validator) require(field, value string) {
	if strings.TrimSpace(value) == "" {
		v.fields = append(v.fields, field)
	}
}

func (v *validator) check(field string, ok bool) {
	if !ok {
		v.fields = append(v.fields, field)
	}
}

func (v *validator) err() error {
	if len(v.fields) == 0 {
		return nil
	}
	return &ValidationError{Fields: v.fields}
}

type LoginForm struct {
	Name       string
	NationalID string
}

func (f LoginForm) validate() error {
	var v validator
	v.require("nombre", f.Name)
	v.require("cedula", f.NationalID)
	return v.err()
}

type EntryForm struct {
	Plate       string
	VehicleType string
	Lot         string
}

func (f EntryForm) normalize() EntryForm {
	return EntryForm{
		Plate:       parking.NormalizePlate(f.Plate),
		VehicleType: strings.ToLower(strings.TrimSpace(f.VehicleType)),
		Lot:         strings.TrimSpace(f.Lot),
	}
}

func (f EntryForm) validate() error {
	var v validator
	v.require("placa", f.Plate)
	v.require("tipoVehiculo", f.VehicleType)
	v.require("parqueadero", f.Lot)
	return v.err()
}

type MonthlyForm struct {
	Plate       string
	VehicleType string
	Lot         string
	Days        int
	Total       decimal.Decimal
	// Start defaults to now.
	Start time.Time
}

func (f MonthlyForm) normalize() MonthlyForm {
	entry := EntryForm{Plate: f.Plate, VehicleType: f.VehicleType, Lot: f.Lot}.normalize()
	f.Plate, f.VehicleType, f.Lot = entry.Plate, entry.VehicleType, entry.Lot
	return f
}

func (f MonthlyForm) validate() error {
	var v validator
	v.require("placa", f.Plate)
	v.require("tipoVehiculo", f.VehicleType)
	v.require("parqueadero", f.Lot)
	v.check("dias", f.Days > 0)
	v.check("total", f.Total.IsPositive())
	return v.err()
}
