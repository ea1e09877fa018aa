package provider

import (
	"testing"
	"time"
)

func TestFreedomPaySignatureRoundTrip(t *testing.T) {
	params := map[string]string{
		"pg_order_id":    "u1_starter_monthly_123",
		"pg_status":      "ok",
		"pg_amount":      "4990",
		"pg_merchant_id": "552170",
		"pg_salt":        "salt",
	}
	secret := "fp-secret"

	sig := SignFreedomPay(params, secret)
	if !VerifyFreedomPay(params, secret, sig) {
		t.Fatal("expected signature to verify")
	}

	params["pg_sig"] = sig
	if SignFreedomPay(params, secret) != sig {
		t.Fatal("expected pg_sig to be excluded from the signed set")
	}
	if VerifyFreedomPay(params, "other", sig) {
		t.Fatal("expected wrong secret to fail")
	}
}

func TestFreedomPaySignatureDetectsTampering(t *testing.T) {
	params := map[string]string{
		"pg_order_id": "u1_starter_monthly_123",
		"pg_status":   "ok",
		"pg_amount":   "4990",
	}
	sig := SignFreedomPay(params, "fp-secret")

	for key := range params {
		tampered := map[string]string{}
		for k, v := range params {
			tampered[k] = v
		}
		tampered[key] = tampered[key] + "x"
		if VerifyFreedomPay(tampered, "fp-secret", sig) {
			t.Fatalf("expected tampered %s to fail verification", key)
		}
	}
}

func TestFreedomPaySignatureKnownDigest(t *testing.T) {
	// md5("a;b;secret")
	got := SignFreedomPay(map[string]string{"b": "b", "a": "a"}, "secret")
	if got != "3dcae05c94cb1f46a8dd6fc19e6ce0b8" {
		t.Fatalf("unexpected digest: %s", got)
	}
	if got != SignFreedomPay(map[string]string{"a": "a", "b": "b"}, "secret") {
		t.Fatal("expected digest to be independent of map order")
	}
}

func TestPaymeSignature(t *testing.T) {
	body := []byte(`{"transaction_id":"tx1","status":"success"}`)
	sig := SignPayme(body, "pm-secret")

	if !VerifyPayme(body, "pm-secret", sig) {
		t.Fatal("expected payme signature to verify")
	}
	if !VerifyPayme(body, "pm-secret", "  "+sig+" ") {
		t.Fatal("expected surrounding whitespace to be ignored")
	}
	if VerifyPayme([]byte(`{"transaction_id":"tx2","status":"success"}`), "pm-secret", sig) {
		t.Fatal("expected modified body to fail")
	}
	if VerifyPayme(body, "pm-secret", "") {
		t.Fatal("expected empty signature to fail")
	}
}

func TestPaddleSignature(t *testing.T) {
	body := []byte(`{"event_id":"evt_1"}`)
	now := time.Unix(1_700_000_000, 0)
	header := SignPaddle(body, "pdl-secret", now)

	if !VerifyPaddle(body, header, "pdl-secret", 300, now.Add(10*time.Second)) {
		t.Fatal("expected paddle signature to verify")
	}
	if VerifyPaddle(body, header, "wrong", 300, now) {
		t.Fatal("expected wrong secret to fail")
	}
	if VerifyPaddle(body, header, "pdl-secret", 300, now.Add(10*time.Minute)) {
		t.Fatal("expected stale timestamp to fail")
	}
	if VerifyPaddle(body, "h1=abc", "pdl-secret", 300, now) {
		t.Fatal("expected header without ts to fail")
	}

	rotated := header + ";h1=deadbeef"
	if !VerifyPaddle(body, rotated, "pdl-secret", 300, now) {
		t.Fatal("expected any matching h1 to verify")
	}
}
