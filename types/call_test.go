package types

import (
	"bytes"
	"errors"
	"testing"
)

type transferArgs struct {
	To     Address `json:"to"`
	Amount uint64  `json:"amount"`
}

func TestSelectorOfIsStable(t *testing.T) {
	a := SelectorOf("transfer(address,uint64)")
	b := SelectorOf("transfer(address,uint64)")
	c := SelectorOf("mint(address,uint64)")
	if a != b {
		t.Error("same signature should give the same selector")
	}
	if a == c {
		t.Error("different signatures should give different selectors")
	}
}

func TestCallRoundTrip(t *testing.T) {
	to := BytesToAddress([]byte{7})
	payload, err := EncodeCall("transfer(address,uint64)", transferArgs{To: to, Amount: 42})
	if err != nil {
		t.Fatalf("EncodeCall failed: %v", err)
	}

	call, err := DecodeCall(payload)
	if err != nil {
		t.Fatalf("DecodeCall failed: %v", err)
	}
	if call.Selector != SelectorOf("transfer(address,uint64)") {
		t.Errorf("wrong selector %s", call.Selector)
	}
	if !bytes.Equal(call.Encode(), payload) {
		t.Error("Encode should reproduce the payload")
	}

	var args transferArgs
	if err := call.Bind(&args); err != nil {
		t.Fatalf("Bind failed: %v", err)
	}
	if args.To != to || args.Amount != 42 {
		t.Errorf("unexpected args %+v", args)
	}
}

func TestDecodeCallShortPayload(t *testing.T) {
	_, err := DecodeCall([]byte{1, 2})
	if !errors.Is(err, ErrUnknownOperation) {
		t.Errorf("expected ErrUnknownOperation, got %v", err)
	}
}

func TestBindRejectsUnknownFields(t *testing.T) {
	call := Call{Selector: SelectorOf("x()"), Args: []byte(`{"to":"0x0000000000000000000000000000000000000001","amount":1,"extra":true}`)}
	var args transferArgs
	if err := call.Bind(&args); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("expected ErrInvalidArgument, got %v", err)
	}

	empty := Call{Selector: SelectorOf("x()")}
	if err := empty.Bind(&args); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("expected ErrInvalidArgument for missing args, got %v", err)
	}
}

func TestBindRejectsTrailingData(t *testing.T) {
	tests := []struct {
		name string
		args string
		ok   bool
	}{
		{"single value", `{"amount":1}`, true},
		{"trailing whitespace", "{\"amount\":1}\n ", true},
		{"trailing garbage", `{"amount":1} garbage{`, false},
		{"second value", `{"amount":1}{"amount":2}`, false},
		{"stray brace", `{"amount":1}}`, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var args transferArgs
			err := Call{Selector: SelectorOf("x()"), Args: []byte(tt.args)}.Bind(&args)
			if tt.ok {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				if args.Amount != 1 {
					t.Errorf("expected amount 1, got %d", args.Amount)
				}
				return
			}
			if !errors.Is(err, ErrInvalidArgument) {
				t.Errorf("expected ErrInvalidArgument, got %v", err)
			}
		})
	}
}
