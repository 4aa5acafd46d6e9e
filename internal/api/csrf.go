package api

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// CSRF tokens protect the admin key-management endpoints. A token is
// base64url(hmac_sha256(secret, ts)) + "|" + ts where ts is the UNIX
// timestamp in seconds, valid for five minutes either side of issuance.

const csrfMaxAge = 5 * time.Minute

// MakeCSRFToken issues a token bound to the given secret and time.
func MakeCSRFToken(secret string, now time.Time) string {
	ts := strconv.FormatInt(now.Unix(), 10)
	return csrfSignature(secret, ts) + "|" + ts
}

// VerifyCSRFToken reports whether the token was minted with the secret
// and is still within the freshness window.
func VerifyCSRFToken(token, secret string, now time.Time) bool {
	sig, ts, ok := strings.Cut(token, "|")
	if !ok {
		return false
	}
	unix, err := strconv.ParseInt(ts, 10, 64)
	if err != nil {
		return false
	}
	age := now.Unix() - unix
	if age < 0 {
		age = -age
	}
	if age > int64(csrfMaxAge/time.Second) {
		return false
	}
	expected := csrfSignature(secret, ts)
	return hmac.Equal([]byte(expected), []byte(strings.TrimRight(sig, "=")))
}

func csrfSignature(secret, ts string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	fmt.Fprint(mac, ts)
	return base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}
