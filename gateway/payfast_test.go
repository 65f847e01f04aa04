package gateway_test

import (
	"testing"

	"github.com/cgartco6/apex-studio-platform/gateway"
)

func TestPayFastSignatureIsStable(t *testing.T) {
	fields := map[string]string{
		"merchant_id":   "10000100",
		"merchant_key":  "46f0cd694581a",
		"m_payment_id":  "pf-test-1",
		"amount":        "575.00",
		"item_name":     "Apex Studio order",
		"email_address": "client@example.com",
	}

	a := gateway.PayFastSignature(fields, "secret")
	b := gateway.PayFastSignature(fields, "secret")
	if a != b {
		t.Error("Expected identical signatures for identical input, got", a, "and", b)
	}
	if len(a) != 32 {
		t.Error("Expected 32-char md5 hex signature, got", a)
	}

	if gateway.PayFastSignature(fields, "other") == a {
		t.Error("Expected passphrase to change the signature")
	}

	fields["amount"] = "1.00"
	if gateway.PayFastSignature(fields, "secret") == a {
		t.Error("Expected amount to change the signature")
	}
}

func TestVerifyPayFastITN(t *testing.T) {
	t.Setenv("PAYFAST_PASSPHRASE", "secret")

	posted := map[string]string{
		"merchant_id":    "10000100",
		"m_payment_id":   "pf-test-2",
		"amount":         "575.00",
		"item_name":      "Apex Studio order",
		"payment_status": "COMPLETE",
	}
	posted["signature"] = gateway.PayFastSignature(posted, "secret")

	if !gateway.VerifyPayFastITN(posted) {
		t.Error("Expected a correctly signed ITN to verify")
	}

	posted["amount"] = "1.00"
	if gateway.VerifyPayFastITN(posted) {
		t.Error("Expected a tampered ITN to fail verification")
	}

	delete(posted, "signature")
	if gateway.VerifyPayFastITN(posted) {
		t.Error("Expected an unsigned ITN to fail verification")
	}
}
