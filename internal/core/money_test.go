package core

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestParseAmount(t *testing.T) {
	cases := []struct {
		in  string
		out string
		ok  bool
	}{
		{"1", "1", true},
		{"1.0", "1", true},
		{"1.23", "1.23", true},
		{"1,23", "1.23", true},
		{"0.01", "0.01", true},
		{" 2.50 ", "2.5", true},
		{"-1", "", false},
		{"+1", "", false},
		{"0", "", false},
		{"1e3", "", false},
		{"abc", "", false},
		{"1.2.3", "", false},
		{"", "", false},
	}
	for _, tc := range cases {
		got, err := ParseAmount(tc.in)
		if tc.ok {
			if err != nil || !got.Equals(MustMoney(tc.out)) {
				t.Fatalf("%q expected %s, got %s (err=%v)", tc.in, tc.out, got, err)
			}
		} else {
			if !errors.Is(err, ErrInvalidAmount) {
				t.Fatalf("%q expected ErrInvalidAmount, got %v", tc.in, err)
			}
		}
	}
}

func TestMoneyJSON(t *testing.T) {
	b, err := json.Marshal(struct {
		Amount Money `json:"amount"`
	}{MustMoney("12.50")})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(b) != `{"amount":12.5}` {
		t.Fatalf("unexpected json %s", b)
	}

	for _, in := range []string{`{"amount":12.5}`, `{"amount":"12.5"}`} {
		var v struct {
			Amount Money `json:"amount"`
		}
		if err := json.Unmarshal([]byte(in), &v); err != nil {
			t.Fatalf("unmarshal %s: %v", in, err)
		}
		if !v.Amount.Equals(MustMoney("12.5")) {
			t.Fatalf("%s decoded to %s", in, v.Amount)
		}
	}
}

func TestMoneyArithmetic(t *testing.T) {
	a := MustMoney("0.1")
	b := MustMoney("0.2")
	if !a.Plus(b).Equals(MustMoney("0.3")) {
		t.Fatalf("0.1+0.2 = %s", a.Plus(b))
	}
	if got := MustMoney("10").Minus(MustMoney("2.5")).String(); got != "7.50" {
		t.Fatalf("expected 7.50, got %s", got)
	}
	if !Zero.IsZero() {
		t.Fatalf("Zero should be zero")
	}
}
