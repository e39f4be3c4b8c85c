package core

import "testing"

func TestIsqrt(t *testing.T) {
	cases := []struct {
		n    uint64
		want uint64
	}{
		{0, 0}, {1, 1}, {3, 1}, {4, 2}, {100_000_000, 10000}, {99_999_999, 9999},
	}
	for _, c := range cases {
		if got := isqrt(c.n); got != c.want {
			t.Errorf("isqrt(%d) = %d, want %d", c.n, got, c.want)
		}
	}
}

func TestCeilDiv(t *testing.T) {
	cases := []struct{ a, b, want uint64 }{
		{10, 5, 2}, {11, 5, 3}, {0, 5, 0}, {100_000_000, 10997, 9094},
	}
	for _, c := range cases {
		if got := ceilDiv(c.a, c.b); got != c.want {
			t.Errorf("ceilDiv(%d,%d) = %d, want %d", c.a, c.b, got, c.want)
		}
	}
}

func TestFeeValidate(t *testing.T) {
	if err := (Fee{LPFeeBps: 900, EuclidFeeBps: 101}).Validate(); err == nil {
		t.Fatal("expected error when lp+euclid exceeds MaxFeeBps")
	}
	if err := (Fee{LPFeeBps: 20, EuclidFeeBps: 10}).Validate(); err != nil {
		t.Fatalf("valid fee rejected: %v", err)
	}
}

func TestValidatePartnerFeeBps(t *testing.T) {
	if err := validatePartnerFeeBps(30); err != nil {
		t.Fatalf("30 bps at the limit should be accepted: %v", err)
	}
	if err := validatePartnerFeeBps(31); err == nil {
		t.Fatal("31 bps should be rejected")
	}
}

func TestClampTimeout(t *testing.T) {
	cases := []struct {
		in      int
		want    int
		wantErr bool
	}{
		{0, DefaultTimeoutSeconds, false},
		{30, 30, false},
		{240, 240, false},
		{29, 0, true},
		{241, 0, true},
	}
	for _, c := range cases {
		got, err := ClampTimeout(c.in)
		if c.wantErr {
			if err == nil {
				t.Errorf("ClampTimeout(%d) expected error, got none", c.in)
			}
			continue
		}
		if err != nil {
			t.Errorf("ClampTimeout(%d) unexpected error: %v", c.in, err)
		}
		if got != c.want {
			t.Errorf("ClampTimeout(%d) = %d, want %d", c.in, got, c.want)
		}
	}
}

func TestNewPairCanonicalOrdering(t *testing.T) {
	p1, err := NewPair("tokB", "tokA")
	if err != nil {
		t.Fatalf("NewPair: %v", err)
	}
	p2, err := NewPair("tokA", "tokB")
	if err != nil {
		t.Fatalf("NewPair: %v", err)
	}
	if p1 != p2 {
		t.Fatalf("NewPair(B,A) = %+v, NewPair(A,B) = %+v, want equal", p1, p2)
	}
	if p1.Token1 != "tokA" || p1.Token2 != "tokB" {
		t.Fatalf("unexpected canonical order: %+v", p1)
	}
}

func TestNewPairRejectsDuplicateTokens(t *testing.T) {
	if _, err := NewPair("tokA", "tokA"); err == nil {
		t.Fatal("expected error pairing a token with itself")
	}
}
