package token

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrMalformed is returned by [DecodePayload] for any credential whose structure
// or payload cannot be read.
var ErrMalformed = errors.New("malformed token")

// Claims is the decoded payload of a credential. Only the registered claims are
// interpreted; unknown fields are ignored.
type Claims struct {
	jwt.RegisteredClaims
}

// segmentParser restores stripped base64 padding before decoding.
var segmentParser = jwt.NewParser(jwt.WithPaddingAllowed())

// DecodePayload splits tok on '.', decodes the second segment from URL-safe base64
// and parses it as a JSON claims object. The signature is not checked.
func DecodePayload(tok string) (*Claims, error) {
	parts := strings.Split(tok, ".")
	if len(parts) < 2 {
		return nil, fmt.Errorf("%w: expected at least 2 segments, got %d", ErrMalformed, len(parts))
	}

	raw, err := segmentParser.DecodeSegment(parts[1])
	if err != nil {
		return nil, fmt.Errorf("%w: payload encoding: %v", ErrMalformed, err)
	}

	var claims Claims
	if err := json.Unmarshal(raw, &claims); err != nil {
		return nil, fmt.Errorf("%w: payload json: %v", ErrMalformed, err)
	}

	return &claims, nil
}

// ExpiresAtTime reports the credential's expiry instant. ok is false when the claim
// is absent or zero.
func (c *Claims) ExpiresAtTime() (time.Time, bool) {
	if c == nil || c.ExpiresAt == nil || c.ExpiresAt.Unix() == 0 {
		return time.Time{}, false
	}
	return c.ExpiresAt.Time, true
}

// IsExpired reports whether tok is expired at the current wall-clock time.
func IsExpired(tok string) bool {
	return IsExpiredAt(tok, time.Now())
}

// IsExpiredAt reports whether tok is expired at now. Undecodable credentials and
// credentials without an exp claim are never expired. A credential is expired
// once exp <= now, compared at second resolution.
func IsExpiredAt(tok string, now time.Time) bool {
	claims, err := DecodePayload(tok)
	if err != nil {
		return false
	}

	exp, ok := claims.ExpiresAtTime()
	if !ok {
		return false
	}

	return exp.Unix() <= now.Unix()
}
