package types

import (
	"encoding/json"
	"testing"
)

func TestHexToAddress(t *testing.T) {
	a, err := HexToAddress("0x00000000000000000000000000000000000000aa")
	if err != nil {
		t.Fatalf("HexToAddress failed: %v", err)
	}
	if a[AddressSize-1] != 0xaa {
		t.Errorf("expected last byte 0xaa, got %x", a[AddressSize-1])
	}

	// Without prefix
	b, err := HexToAddress("00000000000000000000000000000000000000aa")
	if err != nil {
		t.Fatalf("HexToAddress without prefix failed: %v", err)
	}
	if a != b {
		t.Error("prefix should not change the address")
	}
}

func TestHexToAddressErrors(t *testing.T) {
	if _, err := HexToAddress("0x1234"); err == nil {
		t.Error("expected error for short address")
	}
	if _, err := HexToAddress("0xzz"); err == nil {
		t.Error("expected error for invalid hex")
	}
}

func TestBytesToAddressPadsAndTruncates(t *testing.T) {
	short := BytesToAddress([]byte{0x01})
	if short[AddressSize-1] != 0x01 || short[0] != 0 {
		t.Errorf("short input should be left padded, got %s", short)
	}

	long := make([]byte, 32)
	long[31] = 0x02
	long[0] = 0xff
	a := BytesToAddress(long)
	if a[AddressSize-1] != 0x02 || a[0] != 0 {
		t.Errorf("long input should keep the last 20 bytes, got %s", a)
	}
}

func TestAddressJSON(t *testing.T) {
	a := MustHexToAddress("0x0102030405060708090a0b0c0d0e0f1011121314")
	data, err := json.Marshal(map[string]Address{"a": a})
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}
	if string(data) != `{"a":"0x0102030405060708090a0b0c0d0e0f1011121314"}` {
		t.Errorf("unexpected JSON: %s", data)
	}

	var out map[string]Address
	if err := json.Unmarshal(data, &out); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	if out["a"] != a {
		t.Error("address changed through JSON")
	}
}

func TestAddressLess(t *testing.T) {
	a := BytesToAddress([]byte{1})
	b := BytesToAddress([]byte{2})
	if !a.Less(b) || b.Less(a) || a.Less(a) {
		t.Error("Less should order bytewise")
	}
}
