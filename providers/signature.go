package providers

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/hex"
	"hash"
	"net/url"
	"strings"
)

// HashAlgorithm selects the HMAC digest a provider signs with.
type HashAlgorithm int

const (
	HashSHA256 HashAlgorithm = iota
	HashSHA512
)

func (a HashAlgorithm) newHash() func() hash.Hash {
	if a == HashSHA512 {
		return sha512.New
	}
	return sha256.New
}

// CanonicalOptions are the per-provider rules for building the signed string.
type CanonicalOptions struct {
	// SkipEmpty drops keys whose value is empty or absent.
	SkipEmpty bool
	// EncodeValues query-escapes each value before joining.
	EncodeValues bool
}

// Canonicalize joins key=value pairs with '&' in exactly the order given.
func Canonicalize(params map[string]string, orderedKeys []string, opts CanonicalOptions) string {
	var sb strings.Builder
	for _, key := range orderedKeys {
		value := params[key]
		if opts.SkipEmpty && value == "" {
			continue
		}
		if opts.EncodeValues {
			value = url.QueryEscape(value)
		}
		if sb.Len() > 0 {
			sb.WriteByte('&')
		}
		sb.WriteString(key)
		sb.WriteByte('=')
		sb.WriteString(value)
	}
	return sb.String()
}

// Sign returns the lowercase hex HMAC of canonical under secret.
func Sign(canonical string, secret []byte, alg HashAlgorithm) string {
	mac := hmac.New(alg.newHash(), secret)
	mac.Write([]byte(canonical))
	return hex.EncodeToString(mac.Sum(nil))
}

// Verify recomputes the digest and compares it in constant time. Malformed or
// empty input yields false.
func Verify(canonical string, secret []byte, alg HashAlgorithm, supplied string) bool {
	if canonical == "" || len(secret) == 0 || supplied == "" {
		return false
	}
	got, err := hex.DecodeString(strings.ToLower(strings.TrimSpace(supplied)))
	if err != nil {
		return false
	}
	mac := hmac.New(alg.newHash(), secret)
	mac.Write([]byte(canonical))
	return hmac.Equal(mac.Sum(nil), got)
}
