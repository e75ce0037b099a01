package types

import "testing"

func TestParseAddressRoundTrip(t *testing.T) {
	hex := "0x00000000000000000000000000000000000000ab"
	addr, err := ParseAddress(hex)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if addr.Hex() != hex {
		t.Fatalf("expected %s, got %s", hex, addr.Hex())
	}
	if addr[19] != 0xab {
		t.Fatalf("expected trailing byte 0xab")
	}
}

func TestParseAddressRejectsBadInput(t *testing.T) {
	cases := []string{
		"",
		"0x",
		// missing prefix
		"00000000000000000000000000000000000000ab",
		// too short
		"0x00000000000000000000000000000000000000",
		// too long
		"0x00000000000000000000000000000000000000abcd",
		// not hex
		"0x00000000000000000000000000000000000000zz",
	}
	for _, input := range cases {
		if _, err := ParseAddress(input); err == nil {
			t.Fatalf("expected error for %q", input)
		}
	}
}

func TestAddressIsZero(t *testing.T) {
	var zero Address
	if !zero.IsZero() {
		t.Fatalf("zero value must report zero")
	}
	if (Address{1}).IsZero() {
		t.Fatalf("non-zero address must not report zero")
	}
}

func TestAddressTextMarshalling(t *testing.T) {
	addr := Address{0xab}
	text, err := addr.MarshalText()
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var decoded Address
	if err := decoded.UnmarshalText(text); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if decoded != addr {
		t.Fatalf("expected %s, got %s", addr.Hex(), decoded.Hex())
	}
}
