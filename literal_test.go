package warpscript

import "testing"

func TestParseHexLiteralTruncates(t *testing.T) {
	// 0xFFFFFFFFFFFFFFFF is -1 as a 64-bit two's-complement value.
	v, err := parseHexLiteral("0xFFFFFFFFFFFFFFFF")
	if err != nil {
		t.Fatal(err)
	}
	if v != Int(-1) {
		t.Fatalf("0xFFFFFFFFFFFFFFFF = %v, want -1", v)
	}
}

func TestParseHexLiteralOverlongWraps(t *testing.T) {
	// More than 16 hex digits still truncates to the low 64 bits rather
	// than erroring.
	v, err := parseHexLiteral("0x10000000000000000")
	if err != nil {
		t.Fatal(err)
	}
	if v != Int(0) {
		t.Fatalf("0x1_0000000000000000 = %v, want 0", v)
	}
}

func TestParseBinLiteral(t *testing.T) {
	v, err := parseBinLiteral("0b1010")
	if err != nil {
		t.Fatal(err)
	}
	if v != Int(10) {
		t.Fatalf("0b1010 = %v, want 10", v)
	}
}

func TestParseIntLiteralOverflowErrors(t *testing.T) {
	// Decimal literals are signed, not truncated: overflow is an error.
	if _, err := parseIntLiteral("99999999999999999999"); err == nil {
		t.Fatal("expected overflow error for oversized decimal literal")
	}
}

func TestParseIntLiteralNegative(t *testing.T) {
	v, err := parseIntLiteral("-42")
	if err != nil {
		t.Fatal(err)
	}
	if v != Int(-42) {
		t.Fatalf("-42 = %v, want -42", v)
	}
}

func TestLiteralClassification(t *testing.T) {
	cases := []struct {
		tok      string
		hex, bin, integer, float, boolean bool
	}{
		{"0xFF", true, false, false, false, false},
		{"0b101", false, true, false, false, false},
		{"42", false, false, true, false, false},
		{"-42", false, false, true, false, false},
		{"3.14", false, false, false, true, false},
		{"T", false, false, false, false, true},
		{"false", false, false, false, false, true},
		{"hello", false, false, false, false, false},
	}
	for _, c := range cases {
		if got := isHexLiteral(c.tok); got != c.hex {
			t.Errorf("isHexLiteral(%q) = %v, want %v", c.tok, got, c.hex)
		}
		if got := isBinLiteral(c.tok); got != c.bin {
			t.Errorf("isBinLiteral(%q) = %v, want %v", c.tok, got, c.bin)
		}
		if got := isIntLiteral(c.tok); got != c.integer {
			t.Errorf("isIntLiteral(%q) = %v, want %v", c.tok, got, c.integer)
		}
		if got := isFloatLiteral(c.tok); got != c.float {
			t.Errorf("isFloatLiteral(%q) = %v, want %v", c.tok, got, c.float)
		}
		if got := isBoolLiteral(c.tok); got != c.boolean {
			t.Errorf("isBoolLiteral(%q) = %v, want %v", c.tok, got, c.boolean)
		}
	}
}

func TestPercentRoundTrip(t *testing.T) {
	in := "hello world!/<%SECURE%>"
	enc := percentEncode(in)
	if enc == in {
		t.Fatalf("percentEncode did not change %q", in)
	}
	dec := percentDecode(enc)
	if dec != in {
		t.Fatalf("round trip = %q, want %q", dec, in)
	}
}

func TestPercentEncodeZeroPadsLowBytes(t *testing.T) {
	enc := percentEncode("\n")
	if enc != "%0A" {
		t.Fatalf("percentEncode(\\n) = %q, want %%0A", enc)
	}
}
