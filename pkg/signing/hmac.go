// Package signing holds the HMAC primitives exchange adapters sign requests with.
package signing

import (
	"crypto/hmac"
	"crypto/sha1"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"hash"
	"strings"
)

func sum(h func() hash.Hash, secret []byte, message string) []byte {
	mac := hmac.New(h, secret)
	mac.Write([]byte(message))
	return mac.Sum(nil)
}

// HmacSHA512Hex signs message with a raw secret and hex-encodes the digest.
func HmacSHA512Hex(secret, message string) string {
	return hex.EncodeToString(sum(sha512.New, []byte(secret), message))
}

// HmacSHA256Hex signs message with a raw secret and hex-encodes the digest.
func HmacSHA256Hex(secret, message string) string {
	return hex.EncodeToString(sum(sha256.New, []byte(secret), message))
}

// HmacSHA1Hex signs message with a raw secret and hex-encodes the digest.
func HmacSHA1Hex(secret, message string) string {
	return hex.EncodeToString(sum(sha1.New, []byte(secret), message))
}

// HmacSHA256Base64 signs message with a base64 (or base64url) encoded secret
// and returns a URL-safe base64 digest that keeps its '=' padding.
func HmacSHA256Base64(secret, message string) (string, error) {
	sanitized := strings.ReplaceAll(secret, "-", "+")
	sanitized = strings.ReplaceAll(sanitized, "_", "/")
	sanitized = strings.Map(func(r rune) rune {
		if (r >= 'A' && r <= 'Z') || (r >= 'a' && r <= 'z') ||
			(r >= '0' && r <= '9') || r == '+' || r == '/' || r == '=' {
			return r
		}
		return -1
	}, sanitized)

	key, err := base64.StdEncoding.DecodeString(sanitized)
	if err != nil {
		return "", fmt.Errorf("decode secret: %w", err)
	}
	sig := base64.StdEncoding.EncodeToString(sum(sha256.New, key, message))
	sig = strings.ReplaceAll(sig, "+", "-")
	return strings.ReplaceAll(sig, "/", "_"), nil
}

// BasicAuth builds an HTTP Basic credential value (without the "Basic " prefix).
func BasicAuth(user, password string) string {
	return base64.StdEncoding.EncodeToString([]byte(user + ":" + password))
}
