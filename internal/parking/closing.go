package parking

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// LotBreakdown is one parking lot's section of a shift closing. The per-type
// tallies come from the API alongside the itemized lists.
type LotBreakdown struct {
	Lot            string          `json:"-"`
	Entering       []Vehicle       `json:"listaVehiculosEntrantes"`
	Exiting        []VehicleCharge `json:"listaVehiculosSalientes"`
	TotalDue       decimal.Decimal `json:"totalAPagar"`
	Monthly        []Vehicle       `json:"vehiculosMensualidad"`
	Parked         []Vehicle       `json:"vehiculosEnParqueadero"`
	EnteringByType []TypeCount     `json:"listaTiposVehiculosEntrantes"`
	ExitingByType  []TypeCount     `json:"listaTiposVehiculosSalientes"`
	ParkedByType   []TypeCount     `json:"listaTiposVehiculosParqueadero"`
}

// Check reports tallies that disagree with the itemized lists they summarise.
func (l LotBreakdown) Check() error {
	var errs []error
	errs = append(errs, checkTally(l.Lot, "entrantes", l.EnteringByType, vehicleTypes(l.Entering))...)
	exiting := make([]string, 0, len(l.Exiting))
	for _, v := range l.Exiting {
		exiting = append(exiting, v.Type)
	}
	errs = append(errs, checkTally(l.Lot, "salientes", l.ExitingByType, exiting)...)
	errs = append(errs, checkTally(l.Lot, "en parqueadero", l.ParkedByType, vehicleTypes(l.Parked))...)
	return errors.Join(errs...)
}

func vehicleTypes(vehicles []Vehicle) []string {
	out := make([]string, 0, len(vehicles))
	for _, v := range vehicles {
		out = append(out, v.Type)
	}
	return out
}

func checkTally(lot, category string, tally []TypeCount, listed []string) []error {
	if len(tally) == 0 {
		return nil
	}
	counts := make(map[string]int, len(listed))
	for _, kind := range listed {
		counts[tariffKey(kind)]++
	}
	var errs []error
	for _, entry := range tally {
		key := tariffKey(entry.Type)
		if counts[key] != entry.Count {
			errs = append(errs, fmt.Errorf("lot %q %s: tally %s=%d, listed %d", lot, category, entry.Type, entry.Count, counts[key]))
		}
		delete(counts, key)
	}
	for kind, n := range counts {
		errs = append(errs, fmt.Errorf("lot %q %s: %d listed %s missing from tally", lot, category, n, kind))
	}
	return errs
}

// Lots keeps the per-lot breakdown in the order the API sent it. The wire form
// is a JSON object keyed by lot name.
type Lots []LotBreakdown

func (l Lots) MarshalJSON() ([]byte, error) {
	if l == nil {
		return []byte("null"), nil
	}
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, lot := range l {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(lot.Lot)
		if err != nil {
			return nil, err
		}
		value, err := json.Marshal(lot)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(value)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func (l *Lots) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*l = nil
		return nil
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return fmt.Errorf("lots: %w", err)
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("lots: expected object, got %v", tok)
	}

	out := Lots{}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return fmt.Errorf("lots: %w", err)
		}
		name, _ := tok.(string)
		var lot LotBreakdown
		if err := dec.Decode(&lot); err != nil {
			return fmt.Errorf("lots %q: %w", name, err)
		}
		lot.Lot = name
		out = append(out, lot)
	}
	*l = out
	return nil
}

// ClosingSummary is the flat summary carried by closings stored before the
// per-lot breakdown existed.
type ClosingSummary struct {
	Entered         *int
	EnteredDetail   string
	Exited          *int
	ExitedDetail    string
	Remaining       *int
	RemainingDetail string
}

// ShiftClosing is an attendant's end-of-shift settlement.
type ShiftClosing struct {
	ID        int64           `json:"id,omitempty"`
	Attendant string          `json:"usuario"`
	Start     Timestamp       `json:"fechaInicio"`
	End       Timestamp       `json:"fechaCierre"`
	Income    decimal.Decimal `json:"total"`
	Lots      Lots            `json:"detallesPorParqueadero,omitempty"`
	Summary   *ClosingSummary `json:"-"`
	Copy      bool            `json:"-"`
}

// ClosingRecord is a stored closing as listed by the shift history.
type ClosingRecord struct {
	ID              int64           `json:"id"`
	Attendant       string          `json:"nombreUsuario"`
	Start           Timestamp       `json:"fechaInicioTurno"`
	End             Timestamp       `json:"fechaFinTurno"`
	Income          decimal.Decimal `json:"totalIngresos"`
	DetailsJSON     string          `json:"detallesJson,omitempty"`
	Entered         *int            `json:"totalVehiculosEntraron,omitempty"`
	EnteredDetail   string          `json:"detalleEntrantes,omitempty"`
	Exited          *int            `json:"totalVehiculosSalieron,omitempty"`
	ExitedDetail    string          `json:"detalleSalientes,omitempty"`
	Remaining       *int            `json:"vehiculosRestantes,omitempty"`
	RemainingDetail string          `json:"detalleRestantes,omitempty"`
}

// ShiftClosing converts a stored record into a printable copy. Malformed
// details are reported but the returned closing is still usable.
func (r ClosingRecord) ShiftClosing() (ShiftClosing, error) {
	closing := ShiftClosing{
		ID:        r.ID,
		Attendant: r.Attendant,
		Start:     r.Start,
		End:       r.End,
		Income:    r.Income,
		Copy:      true,
	}
	if r.Entered != nil || r.Exited != nil || r.Remaining != nil ||
		r.EnteredDetail != "" || r.ExitedDetail != "" || r.RemainingDetail != "" {
		closing.Summary = &ClosingSummary{
			Entered:         r.Entered,
			EnteredDetail:   r.EnteredDetail,
			Exited:          r.Exited,
			ExitedDetail:    r.ExitedDetail,
			Remaining:       r.Remaining,
			RemainingDetail: r.RemainingDetail,
		}
	}

	details := strings.TrimSpace(r.DetailsJSON)
	if details == "" {
		return closing, nil
	}
	var lots Lots
	if err := json.Unmarshal([]byte(details), &lots); err != nil {
		return closing, fmt.Errorf("closing %d details: %w", r.ID, err)
	}
	closing.Lots = lots
	return closing, nil
}
