// Package escpos builds receipt-printer byte streams from a small set of
// ESC/POS commands: initialise, alignment, CODE128 barcodes and paper cut.
package escpos

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
)

const (
	Init        = "\x1B\x40"
	AlignLeft   = "\x1B\x61\x00"
	AlignCenter = "\x1B\x61\x01"
	CutFull     = "\x1D\x56\x00"
	CutPartial  = "\x1D\x56\x42\x00"

	// HRI text printed under the bars.
	BarcodeHRIBelow = "\x1D\x48\x02"

	MaxBarcodeLength = 255

	codeSet128 = 73
)

var ErrBarcodeLength = errors.New("barcode length out of range")

func BarcodeHeight(dots byte) string {
	return "\x1D\x68" + string([]byte{dots})
}

func BarcodeWidth(module byte) string {
	return "\x1D\x77" + string([]byte{module})
}

// Barcode128 returns the GS k command for a CODE128 symbol. The single length
// byte limits the payload to 1..255 characters.
func Barcode128(code string) (string, error) {
	if len(code) == 0 || len(code) > MaxBarcodeLength {
		return "", fmt.Errorf("%w: %d", ErrBarcodeLength, len(code))
	}
	return "\x1D\x6B" + string([]byte{codeSet128, byte(len(code))}) + code, nil
}

type Builder struct {
	buf       bytes.Buffer
	separator string
}

func NewBuilder(width int) *Builder {
	if width <= 0 {
		width = 24
	}
	return &Builder{separator: strings.Repeat("-", width)}
}

func (b *Builder) Init() *Builder   { return b.raw(Init) }
func (b *Builder) Left() *Builder   { return b.raw(AlignLeft) }
func (b *Builder) Center() *Builder { return b.raw(AlignCenter) }

func (b *Builder) Line(text string) *Builder {
	b.buf.WriteString(text)
	b.buf.WriteByte('\n')
	return b
}

func (b *Builder) Linef(format string, args ...any) *Builder {
	return b.Line(fmt.Sprintf(format, args...))
}

func (b *Builder) Separator() *Builder {
	return b.Line(b.separator)
}

func (b *Builder) Feed(lines int) *Builder {
	for i := 0; i < lines; i++ {
		b.buf.WriteByte('\n')
	}
	return b
}

// Barcode128 writes height, width, HRI position and the symbol. Nothing is
// written when the code cannot be encoded.
func (b *Builder) Barcode128(code string, height, width byte) error {
	cmd, err := Barcode128(code)
	if err != nil {
		return err
	}
	b.raw(BarcodeHeight(height))
	b.raw(BarcodeWidth(width))
	b.raw(BarcodeHRIBelow)
	b.raw(cmd)
	b.buf.WriteByte('\n')
	return nil
}

func (b *Builder) Cut() *Builder {
	return b.raw(CutPartial)
}

func (b *Builder) Bytes() []byte {
	out := make([]byte, b.buf.Len())
	copy(out, b.buf.Bytes())
	return out
}

func (b *Builder) String() string {
	return b.buf.String()
}

func (b *Builder) raw(seq string) *Builder {
	b.buf.WriteString(seq)
	return b
}
