package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Signature header format: t={unix-seconds},v1={hex(hmac-sha256)}.
// The MAC covers "{timestamp}." followed by the raw request body.

var (
	errBadSignature   = errors.New("signature mismatch")
	errStaleSignature = errors.New("signature timestamp outside tolerance")
)

// DefaultTolerance is how far a signature timestamp may drift.
const DefaultTolerance = 5 * time.Minute

// Sign computes the signature header value for a payload.
func Sign(body []byte, secret string, timestamp int64) string {
	mac := hmac.New(sha256.New, []byte(secret))
	fmt.Fprintf(mac, "%d.", timestamp)
	mac.Write(body)
	return fmt.Sprintf("t=%d,v1=%s", timestamp, hex.EncodeToString(mac.Sum(nil)))
}

// Verify checks a signature header against the payload and shared
// secret, rejecting signatures older than the tolerance window.
func Verify(header string, body []byte, secret string, now time.Time, tolerance time.Duration) error {
	var ts int64
	var sig string
	for _, part := range strings.Split(header, ",") {
		k, v, ok := strings.Cut(part, "=")
		if !ok {
			continue
		}
		switch k {
		case "t":
			parsed, err := strconv.ParseInt(v, 10, 64)
			if err != nil {
				return errBadSignature
			}
			ts = parsed
		case "v1":
			sig = v
		}
	}
	if ts == 0 || sig == "" {
		return errBadSignature
	}

	if tolerance <= 0 {
		tolerance = DefaultTolerance
	}
	drift := now.Unix() - ts
	if drift < 0 {
		drift = -drift
	}
	if time.Duration(drift)*time.Second > tolerance {
		return errStaleSignature
	}

	expected := Sign(body, secret, ts)
	if !hmac.Equal([]byte(expected), []byte(fmt.Sprintf("t=%d,v1=%s", ts, sig))) {
		return errBadSignature
	}
	return nil
}
