// Package receipt renders tickets and shift closings into ESC/POS streams.
//
// Every function here is a pure transformation: the same record and options
// always produce byte-identical output, and missing optional fields render a
// placeholder instead of failing.
package receipt

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

const (
	DefaultBusiness = "ESTACION DE SERVICIO EL SAMAN"
	DefaultWidth    = 24

	ticketLayout  = "02/01/2006 15:04"
	closingLayout = "02/01/2006 03:04 PM"

	notAvailable = "N/A"
)

var copPrinter = message.NewPrinter(language.MustParse("es-CO"))

type Options struct {
	Business string
	Location *time.Location
	Width    int
}

func (o Options) business() string {
	if strings.TrimSpace(o.Business) == "" {
		return DefaultBusiness
	}
	return o.Business
}

func (o Options) location() *time.Location {
	if o.Location == nil {
		return time.Local
	}
	return o.Location
}

func (o Options) width() int {
	if o.Width <= 0 {
		return DefaultWidth
	}
	return o.Width
}

func (o Options) ticketTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.In(o.location()).Format(ticketLayout)
}

func (o Options) closingTime(t time.Time) string {
	if t.IsZero() {
		return notAvailable
	}
	return t.In(o.location()).Format(closingLayout)
}

// FormatCOP renders an amount in Colombian pesos: rounded to a whole peso,
// grouped with "." and prefixed with "$".
func FormatCOP(value decimal.Decimal) string {
	return "$" + copPrinter.Sprintf("%d", value.Round(0).IntPart())
}

func orNA(value string) string {
	if strings.TrimSpace(value) == "" {
		return notAvailable
	}
	return value
}
