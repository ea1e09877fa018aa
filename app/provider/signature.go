package provider

import (
	"crypto/hmac"
	"crypto/md5"
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strconv"
	"strings"
	"time"
)

const freedomPaySignatureField = "pg_sig"

// SignFreedomPay joins the values of every parameter except pg_sig, ordered by
// key, with ";" then appends the secret and returns the hex MD5 digest.
func SignFreedomPay(params map[string]string, secret string) string {
	keys := make([]string, 0, len(params))
	for key := range params {
		if key == freedomPaySignatureField {
			continue
		}
		keys = append(keys, key)
	}
	sort.Strings(keys)

	values := make([]string, 0, len(keys)+1)
	for _, key := range keys {
		values = append(values, params[key])
	}
	values = append(values, secret)

	sum := md5.Sum([]byte(strings.Join(values, ";")))
	return hex.EncodeToString(sum[:])
}

func VerifyFreedomPay(params map[string]string, secret, digest string) bool {
	return equalHex(SignFreedomPay(params, secret), digest)
}

func SignPayme(body []byte, secret string) string {
	return hmacSHA256Hex(body, secret)
}

func VerifyPayme(body []byte, secret, digest string) bool {
	return equalHex(SignPayme(body, secret), digest)
}

func SignPaddle(body []byte, secret string, ts time.Time) string {
	unix := strconv.FormatInt(ts.Unix(), 10)
	return "ts=" + unix + ";h1=" + hmacSHA256Hex([]byte(unix+":"+string(body)), secret)
}

// VerifyPaddle checks a "ts=<unix>;h1=<hex>" header. Several h1 entries are
// accepted during secret rotation.
func VerifyPaddle(body []byte, header, secret string, toleranceSeconds int64, now time.Time) bool {
	header = strings.TrimSpace(header)
	if header == "" || secret == "" {
		return false
	}

	var ts string
	h1 := make([]string, 0, 1)
	for _, part := range strings.Split(header, ";") {
		part = strings.TrimSpace(part)
		switch {
		case strings.HasPrefix(part, "ts="):
			ts = strings.TrimPrefix(part, "ts=")
		case strings.HasPrefix(part, "h1="):
			h1 = append(h1, strings.TrimPrefix(part, "h1="))
		}
	}
	if ts == "" || len(h1) == 0 {
		return false
	}

	tsUnix, err := strconv.ParseInt(ts, 10, 64)
	if err != nil {
		return false
	}
	if toleranceSeconds > 0 {
		delta := now.Unix() - tsUnix
		if delta > toleranceSeconds || -delta > toleranceSeconds {
			return false
		}
	}

	expected := hmacSHA256Hex([]byte(ts+":"+string(body)), secret)
	for _, sig := range h1 {
		if equalHex(expected, sig) {
			return true
		}
	}
	return false
}

func hmacSHA256Hex(payload []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	_, _ = mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}

func equalHex(expected, actual string) bool {
	return hmac.Equal([]byte(expected), []byte(strings.ToLower(strings.TrimSpace(actual))))
}
