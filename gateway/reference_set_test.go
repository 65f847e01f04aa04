package gateway_test

import (
	"testing"

	"github.com/cgartco6/apex-studio-platform/gateway"
)

func TestReferenceSet(t *testing.T) {
	s := gateway.NewReferenceSet()
	s.Reserve(5000000)
	if s.NextFree(5000000) != 5000001 {
		t.Error("Expected 5000001, got", s.NextFree(5000000))
	}

	s.Reserve(5000001)
	if s.NextFree(5000000) != 5000002 {
		t.Error("Expected 5000002, got", s.NextFree(5000000))
	}

	s.Reserve(5000003)
	if s.NextFree(5000000) != 5000002 {
		t.Error("Expected 5000002, got", s.NextFree(5000000))
	}

	s.Release(5000001)
	if s.NextFree(5000000) != 5000001 {
		t.Error("Expected 5000001, got", s.NextFree(5000000))
	}

	s.Release(5000000)
	if s.NextFree(5000000) != 5000000 {
		t.Error("Expected 5000000, got", s.NextFree(5000000))
	}

	s.Reserve(5000000)
	s.Reserve(5000001)
	s.Reserve(5000002)
	if s.NextFree(5000000) != 5000004 {
		t.Error("Expected 5000004, got", s.NextFree(5000000))
	}
}

func TestReserveEFTAmountIsUnique(t *testing.T) {
	a := gateway.ReserveEFTAmount(1, 57500)
	b := gateway.ReserveEFTAmount(2, 57500)
	c := gateway.ReserveEFTAmount(3, 57500)
	defer gateway.ReleaseEFTAmount(a)
	defer gateway.ReleaseEFTAmount(b)
	defer gateway.ReleaseEFTAmount(c)

	if a == b || b == c || a == c {
		t.Error("Expected distinct reference amounts, got", a, b, c)
	}
	if a < 57500 || b < 57500 || c < 57500 {
		t.Error("Reference amounts must not undercharge the order total")
	}
}

func TestSettleEFTAmount(t *testing.T) {
	ref := gateway.ReserveEFTAmount(42, 10000)

	paymentID, ok := gateway.SettleEFTAmount(ref)
	if !ok {
		t.Fatal("Expected settlement to match the reserved amount")
	}
	if paymentID != 42 {
		t.Error("Expected payment 42, got", paymentID)
	}

	if _, ok := gateway.SettleEFTAmount(ref); ok {
		t.Error("Expected second settlement of the same amount to fail")
	}
}
