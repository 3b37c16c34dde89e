package escpos

import (
	"errors"
	"strings"
	"testing"
)

func TestBarcodeLengthByte(t *testing.T) {
	for _, n := range []int{1, 12, 128, 255} {
		code := strings.Repeat("7", n)
		cmd, err := Barcode128(code)
		if err != nil {
			t.Fatalf("length %d: unexpected error %v", n, err)
		}
		if !strings.HasPrefix(cmd, "\x1D\x6B\x49") {
			t.Fatalf("length %d: missing GS k 73 prefix: %q", n, cmd[:3])
		}
		if got := int(cmd[3]); got != n {
			t.Fatalf("length byte = %d, want %d", got, n)
		}
		if cmd[4:] != code {
			t.Fatalf("length %d: payload mismatch", n)
		}
	}
}

func TestBarcodeLengthOutOfRange(t *testing.T) {
	for _, n := range []int{0, 256, 400} {
		_, err := Barcode128(strings.Repeat("A", n))
		if !errors.Is(err, ErrBarcodeLength) {
			t.Fatalf("length %d: expected ErrBarcodeLength, got %v", n, err)
		}
	}
}

func TestBuilderSkipsInvalidBarcode(t *testing.T) {
	b := NewBuilder(10)
	b.Init().Center()
	if err := b.Barcode128("", 80, 2); err == nil {
		t.Fatal("expected error for empty code")
	}
	if got := b.String(); got != Init+AlignCenter {
		t.Fatalf("invalid barcode must not write bytes, got %q", got)
	}
}

func TestBuilderSequence(t *testing.T) {
	b := NewBuilder(4)
	b.Init().Left().Line("hola").Separator().Linef("n=%d", 3).Feed(2)
	if err := b.Barcode128("AB", 0x50, 2); err != nil {
		t.Fatalf("barcode: %v", err)
	}
	b.Cut()

	want := Init + AlignLeft + "hola\n" + "----\n" + "n=3\n" + "\n\n" +
		"\x1D\x68\x50" + "\x1D\x77\x02" + BarcodeHRIBelow + "\x1D\x6B\x49\x02AB" + "\n" +
		CutPartial
	if got := b.String(); got != want {
		t.Fatalf("unexpected stream:\n got %q\nwant %q", got, want)
	}
	if string(b.Bytes()) != want {
		t.Fatal("Bytes and String disagree")
	}
}
