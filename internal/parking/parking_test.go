package parking

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestLotsKeepInputOrder(t *testing.T) {
	payload := `{
		"usuario": "Ana",
		"fechaInicio": "2025-03-01T06:00:00",
		"fechaCierre": "2025-03-01T14:00:00",
		"total": 45000,
		"detallesPorParqueadero": {
			"Zeta": {"totalAPagar": 10000},
			"Alfa": {"totalAPagar": 20000},
			"Medio": {"totalAPagar": 15000}
		}
	}`

	var closing ShiftClosing
	if err := json.Unmarshal([]byte(payload), &closing); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	var names []string
	for _, lot := range closing.Lots {
		names = append(names, lot.Lot)
	}
	if got := strings.Join(names, ","); got != "Zeta,Alfa,Medio" {
		t.Fatalf("expected input order, got %s", got)
	}
	if !closing.Lots[1].TotalDue.Equal(decimal.NewFromInt(20000)) {
		t.Fatalf("unexpected total for Alfa: %s", closing.Lots[1].TotalDue)
	}
	if closing.Start.Hour() != 6 || closing.End.Hour() != 14 {
		t.Fatalf("unexpected shift hours: %v - %v", closing.Start, closing.End)
	}
}

func TestLotsRoundTripKeepsOrder(t *testing.T) {
	lots := Lots{{Lot: "B"}, {Lot: "A"}}
	data, err := json.Marshal(lots)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if !strings.HasPrefix(string(data), `{"B":`) {
		t.Fatalf("expected B first, got %s", data)
	}

	var back Lots
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(back) != 2 || back[0].Lot != "B" || back[1].Lot != "A" {
		t.Fatalf("unexpected lots: %+v", back)
	}
}

func TestLotsRejectArray(t *testing.T) {
	var lots Lots
	if err := json.Unmarshal([]byte(`[1,2]`), &lots); err == nil {
		t.Fatal("expected error for array payload")
	}
}

func TestTimestampFormats(t *testing.T) {
	tests := []struct {
		name  string
		input string
		zero  bool
		hour  int
	}{
		{"local layout", `"2025-03-01T08:30:00"`, false, 8},
		{"fractional seconds", `"2025-03-01T09:30:00.123"`, false, 9},
		{"null", `null`, true, 0},
		{"empty", `""`, true, 0},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var ts Timestamp
			if err := json.Unmarshal([]byte(tc.input), &ts); err != nil {
				t.Fatalf("unmarshal: %v", err)
			}
			if ts.IsZero() != tc.zero {
				t.Fatalf("expected zero=%v, got %v", tc.zero, ts.Time)
			}
			if !tc.zero && ts.Hour() != tc.hour {
				t.Fatalf("expected hour %d, got %d", tc.hour, ts.Hour())
			}
		})
	}

	var ts Timestamp
	if err := json.Unmarshal([]byte(`"2025-03-01T08:30:00Z"`), &ts); err != nil {
		t.Fatalf("unmarshal rfc3339: %v", err)
	}
	if !ts.Equal(time.Date(2025, 3, 1, 8, 30, 0, 0, time.UTC)) {
		t.Fatalf("unexpected rfc3339 value: %v", ts.Time)
	}
	if err := json.Unmarshal([]byte(`"ayer"`), &ts); err == nil {
		t.Fatal("expected error for unsupported format")
	}
}

func TestTariffTableAbsentKeyIsZero(t *testing.T) {
	table := TariffTable{"moto": decimal.NewFromInt(8000)}
	if !table.Price("camion").IsZero() {
		t.Fatalf("expected zero price for absent key")
	}
	if !table.Price(" MOTO ").Equal(decimal.NewFromInt(8000)) {
		t.Fatalf("expected case-insensitive lookup")
	}

	var empty TariffTable
	if !empty.Price("moto").IsZero() {
		t.Fatalf("expected zero price on nil table")
	}

	extended := table.With("Turbo", decimal.NewFromInt(30000))
	if !extended.Price("turbo").Equal(decimal.NewFromInt(30000)) || len(table) != 1 {
		t.Fatalf("With must copy the table")
	}
}

func TestNormalizePlate(t *testing.T) {
	tests := map[string]string{
		" abc-123 ": "ABC123",
		"xyz 12d":   "XYZ12D",
		"":          "",
	}
	for input, want := range tests {
		if got := NormalizePlate(input); got != want {
			t.Fatalf("NormalizePlate(%q) = %q, want %q", input, got, want)
		}
	}
}

func TestLotCheck(t *testing.T) {
	lot := LotBreakdown{
		Lot:      "Principal",
		Entering: []Vehicle{{Plate: "AAA111", Type: "moto"}, {Plate: "BBB222", Type: "moto"}, {Plate: "CCC333", Type: "automovil"}},
		EnteringByType: []TypeCount{
			{Type: "moto", Count: 2},
			{Type: "automovil", Count: 1},
		},
	}
	if err := lot.Check(); err != nil {
		t.Fatalf("expected consistent lot, got %v", err)
	}

	lot.EnteringByType[0].Count = 3
	if err := lot.Check(); err == nil {
		t.Fatal("expected tally mismatch")
	}

	lot.EnteringByType = []TypeCount{{Type: "moto", Count: 2}}
	if err := lot.Check(); err == nil || !strings.Contains(err.Error(), "missing from tally") {
		t.Fatalf("expected missing type error, got %v", err)
	}
}

func TestClosingRecordConversion(t *testing.T) {
	entered := 4
	record := ClosingRecord{
		ID:            7,
		Attendant:     "Luis",
		Income:        decimal.NewFromInt(52000),
		Entered:       &entered,
		EnteredDetail: "moto: 4",
		DetailsJSON:   `{"Norte":{"totalAPagar":52000}}`,
	}

	closing, err := record.ShiftClosing()
	if err != nil {
		t.Fatalf("convert: %v", err)
	}
	if !closing.Copy || closing.Summary == nil || *closing.Summary.Entered != 4 {
		t.Fatalf("unexpected closing: %+v", closing)
	}
	if len(closing.Lots) != 1 || closing.Lots[0].Lot != "Norte" {
		t.Fatalf("unexpected lots: %+v", closing.Lots)
	}

	record.DetailsJSON = "{broken"
	closing, err = record.ShiftClosing()
	if err == nil {
		t.Fatal("expected error for malformed details")
	}
	if closing.Attendant != "Luis" {
		t.Fatalf("closing should still be usable, got %+v", closing)
	}
}

func TestZonelessTimestampsUseConfiguredLocation(t *testing.T) {
	bogota := time.FixedZone("COT", -5*60*60)
	SetLocation(bogota)
	t.Cleanup(func() { SetLocation(nil) })

	var ts Timestamp
	if err := json.Unmarshal([]byte(`"2025-03-01T08:00:00"`), &ts); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !ts.Equal(time.Date(2025, 3, 1, 13, 0, 0, 0, time.UTC)) {
		t.Fatalf("expected 08:00 in the configured zone, got %v", ts.UTC())
	}

	// Explicit offsets are never reinterpreted.
	if err := json.Unmarshal([]byte(`"2025-03-01T08:00:00Z"`), &ts); err != nil {
		t.Fatal(err)
	}
	if ts.UTC().Hour() != 8 {
		t.Fatalf("rfc3339 value shifted: %v", ts.UTC())
	}
}

func TestLocationDefaultsToLocal(t *testing.T) {
	SetLocation(nil)
	if Location() != time.Local {
		t.Fatalf("Location = %v, want Local", Location())
	}
}
