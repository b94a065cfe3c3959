package vnpay

import (
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/hoangkimbao/garage-backend/pkg/config"
	pkgerrors "github.com/hoangkimbao/garage-backend/pkg/errors"
)

func testGateway(t *testing.T) *Gateway {
	t.Helper()
	gw, err := NewGateway(config.VNPayConfig{
		TmnCode:    "GARAGE01",
		HashSecret: "super-secret-key",
		PaymentURL: "https://sandbox.vnpayment.vn/paymentv2/vpcpay.html",
		ReturnURL:  "https://garage.example.com/payments/return",
		Locale:     "vn",
	})
	if err != nil {
		t.Fatalf("new gateway: %v", err)
	}
	return gw
}

func TestBuildPaymentURL(t *testing.T) {
	gw := testGateway(t)
	gw.now = func() time.Time { return time.Date(2025, 8, 20, 10, 30, 0, 0, time.UTC) }

	raw, err := gw.BuildPaymentURL(PaymentRequest{
		OrderID:  123,
		Total:    decimal.NewFromInt(250000),
		ClientIP: "203.0.113.7",
	})
	if err != nil {
		t.Fatalf("build url: %v", err)
	}

	parsed, err := url.Parse(raw)
	if err != nil {
		t.Fatalf("parse url: %v", err)
	}
	query := parsed.Query()

	if got := query.Get("vnp_Amount"); got != "25000000" {
		t.Fatalf("amount must be total x100, got %s", got)
	}
	if got := query.Get("vnp_TxnRef"); got != "123_20250820103000" {
		t.Fatalf("unexpected txn ref %s", got)
	}
	if got := query.Get("vnp_Version"); got != "2.1.0" {
		t.Fatalf("unexpected version %s", got)
	}
	if got := query.Get("vnp_Command"); got != "pay" {
		t.Fatalf("unexpected command %s", got)
	}
	if query.Get("vnp_SecureHash") == "" {
		t.Fatal("payment url must be signed")
	}

	// The generated URL must verify with the same secret.
	if err := gw.VerifyParams(query); err != nil {
		t.Fatalf("self-signed url failed verification: %v", err)
	}
}

func TestVerifyParamsRejectsMutation(t *testing.T) {
	gw := testGateway(t)

	raw, err := gw.BuildPaymentURL(PaymentRequest{
		OrderID:  55,
		Total:    decimal.NewFromInt(100000),
		ClientIP: "198.51.100.9",
	})
	if err != nil {
		t.Fatalf("build url: %v", err)
	}
	parsed, _ := url.Parse(raw)
	query := parsed.Query()

	// Flipping a single parameter byte must invalidate the signature.
	query.Set("vnp_Amount", "10000001")
	err = gw.VerifyParams(query)
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeSignature {
		t.Fatalf("expected signature error, got %v", err)
	}
}

func TestVerifyParamsIgnoresSecureHashType(t *testing.T) {
	gw := testGateway(t)

	raw, err := gw.BuildPaymentURL(PaymentRequest{
		OrderID:  9,
		Total:    decimal.NewFromInt(75000),
		ClientIP: "192.0.2.1",
	})
	if err != nil {
		t.Fatalf("build url: %v", err)
	}
	parsed, _ := url.Parse(raw)
	query := parsed.Query()
	query.Set("vnp_SecureHashType", "HMACSHA512")

	if err := gw.VerifyParams(query); err != nil {
		t.Fatalf("hash type parameter must be excluded from the digest: %v", err)
	}
}

func TestVerifyParamsMissingSignature(t *testing.T) {
	gw := testGateway(t)
	err := gw.VerifyParams(url.Values{"vnp_TxnRef": {"1_20250820103000"}})
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeSignature {
		t.Fatalf("expected signature error, got %v", err)
	}
}

func TestTxnRefRoundTrip(t *testing.T) {
	at := time.Date(2025, 9, 1, 8, 0, 0, 0, time.UTC)
	ref := FormatTxnRef(42, at)
	if ref != "42_20250901080000" {
		t.Fatalf("unexpected ref %s", ref)
	}
	orderID, err := ParseTxnRef(ref)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if orderID != 42 {
		t.Fatalf("expected order 42, got %d", orderID)
	}
}

func TestParseTxnRefRejectsGarbage(t *testing.T) {
	for _, ref := range []string{"", "abc_20250901080000", "_20250901080000", "-5_20250901080000", "0_x"} {
		if _, err := ParseTxnRef(ref); err == nil {
			t.Fatalf("expected error for ref %q", ref)
		}
	}
}

func TestSignIsDeterministicAndSorted(t *testing.T) {
	gw := testGateway(t)
	params := map[string]string{
		"vnp_TxnRef":  "1_20250901080000",
		"vnp_Amount":  "100000",
		"vnp_TmnCode": "GARAGE01",
	}
	first := gw.sign(params)
	second := gw.sign(params)
	if first != second {
		t.Fatal("signature must be deterministic")
	}
	if len(first) != 128 || strings.ToLower(first) != first {
		t.Fatalf("expected lowercase hex sha512 digest, got %q", first)
	}
}
