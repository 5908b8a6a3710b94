package psp

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ErrSignatureInvalid is returned for any webhook signature failure: missing
// header, malformed header, stale timestamp, or HMAC mismatch. All of these
// are reported identically — the envelope is already recorded, so there is
// nothing more specific to tell the caller.
var ErrSignatureInvalid = fmt.Errorf("invalid webhook signature")

// VerifySignature parses `t=<unix_ts>,v1=<hex_hmac>`, rejects stale
// timestamps BEFORE computing the HMAC (cheap replay rejection), then
// compares in constant time. The processor signs with its own header format
// rather than Stripe's, so verification is hand-rolled over crypto/hmac +
// crypto/subtle instead of webhook.ConstructEvent.
func VerifySignature(header, secret string, rawBody []byte, tolerance time.Duration, now time.Time) error {
	ts, sig, err := parseSignatureHeader(header)
	if err != nil {
		return ErrSignatureInvalid
	}

	eventTime := time.Unix(ts, 0)
	skew := now.Sub(eventTime)
	if skew < 0 {
		skew = -skew
	}
	if skew > tolerance {
		return ErrSignatureInvalid
	}

	expected := computeSignature(secret, ts, rawBody)
	if len(expected) != len(sig) {
		return ErrSignatureInvalid
	}
	if subtle.ConstantTimeCompare([]byte(expected), []byte(sig)) != 1 {
		return ErrSignatureInvalid
	}
	return nil
}

func parseSignatureHeader(header string) (timestamp int64, signature string, err error) {
	parts := strings.Split(header, ",")
	if len(parts) != 2 {
		return 0, "", ErrSignatureInvalid
	}

	var tsRaw, v1Raw string
	for _, part := range parts {
		kv := strings.SplitN(part, "=", 2)
		if len(kv) != 2 {
			return 0, "", ErrSignatureInvalid
		}
		switch kv[0] {
		case "t":
			tsRaw = kv[1]
		case "v1":
			v1Raw = kv[1]
		}
	}
	if tsRaw == "" || v1Raw == "" {
		return 0, "", ErrSignatureInvalid
	}

	ts, err := strconv.ParseInt(tsRaw, 10, 64)
	if err != nil {
		return 0, "", ErrSignatureInvalid
	}
	return ts, v1Raw, nil
}

func computeSignature(secret string, ts int64, rawBody []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(strconv.FormatInt(ts, 10)))
	mac.Write([]byte("."))
	mac.Write(rawBody)
	return hex.EncodeToString(mac.Sum(nil))
}
